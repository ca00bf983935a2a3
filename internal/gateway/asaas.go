package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ambtus/checkout-api/internal/obs"
)

// Asaas raw statuses grouped into the simplified polling statuses.
var (
	confirmedStatuses = map[string]struct{}{
		"CONFIRMED": {}, "RECEIVED": {}, "RECEIVED_IN_CASH": {},
	}
	pendingStatuses = map[string]struct{}{
		"PENDING": {}, "AWAITING_RISK_ANALYSIS": {},
	}
	failedStatuses = map[string]struct{}{
		"REFUNDED": {}, "REFUND_REQUESTED": {}, "CHARGEBACK_REQUESTED": {},
		"CHARGEBACK_DISPUTE": {}, "OVERDUE": {}, "DELETED": {},
	}
)

// SimplifyStatus collapses an Asaas payment status into one of the four
// values polling clients consume.
func SimplifyStatus(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if _, ok := confirmedStatuses[s]; ok {
		return StatusConfirmed
	}
	if _, ok := pendingStatuses[s]; ok {
		return StatusPending
	}
	if _, ok := failedStatuses[s]; ok {
		return StatusFailed
	}
	return StatusUnknown
}

// APIError is a non-2xx reply from Asaas.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("asaas: %d %s: %s", e.StatusCode, e.Code, e.Description)
	}
	return fmt.Sprintf("asaas: unexpected status %d", e.StatusCode)
}

// NotFound reports whether the gateway rejected the lookup with 404.
func (e *APIError) NotFound() bool { return e.StatusCode == http.StatusNotFound }

// Asaas talks to the Asaas v3 REST API. Customers are deduplicated by
// CPF/CNPJ before a charge is opened, matching the provider's own
// recommendation for guest checkouts.
type Asaas struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
}

// NewAsaas builds a client against the given base URL (the sandbox URL when
// empty) with a bounded request timeout.
func NewAsaas(apiKey, baseURL string, timeout time.Duration) *Asaas {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://sandbox.asaas.com/api/v3"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Asaas{
		APIKey:  apiKey,
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type asaasCustomer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	CpfCnpj string `json:"cpfCnpj"`
	Phone   string `json:"phone,omitempty"`
}

type asaasPayment struct {
	ID          string  `json:"id"`
	Status      string  `json:"status"`
	Value       float64 `json:"value"`
	BillingType string  `json:"billingType"`
	InvoiceURL  string  `json:"invoiceUrl"`
	BankSlipURL string  `json:"bankSlipUrl"`
}

// CreateCharge finds or creates the customer, opens the payment, and for PIX
// fetches the QR code in a follow-up call.
func (a *Asaas) CreateCharge(ctx context.Context, req ChargeRequest) (Charge, error) {
	customerID, err := a.findOrCreateCustomer(ctx, req.Customer)
	if err != nil {
		countGateway("create_charge", err)
		return Charge{}, fmt.Errorf("resolve customer: %w", err)
	}

	body := map[string]any{
		"customer":          customerID,
		"billingType":       string(req.BillingType),
		"value":             centsToBRL(req.AmountCents),
		"description":       req.Description,
		"externalReference": req.ExternalReference,
		"dueDate":           req.DueDate,
	}
	if req.BillingType == BillingCard {
		body["installmentCount"] = req.InstallmentCount
		body["installmentValue"] = centsToBRL(req.AmountCents) / float64(req.InstallmentCount)
		body["creditCardToken"] = req.CreditCardToken
		if req.HolderInfo != nil {
			body["creditCardHolderInfo"] = req.HolderInfo
		}
		if req.Customer.RemoteIP != "" {
			body["remoteIp"] = req.Customer.RemoteIP
		}
	}

	var payment asaasPayment
	if err := a.do(ctx, http.MethodPost, "/payments", body, &payment); err != nil {
		countGateway("create_charge", err)
		return Charge{}, fmt.Errorf("create payment: %w", err)
	}

	charge := toCharge(payment)
	if req.BillingType == BillingPix {
		var qr PixQRCode
		if err := a.do(ctx, http.MethodGet, "/payments/"+url.PathEscape(payment.ID)+"/pixQrCode", nil, &qr); err != nil {
			countGateway("create_charge", err)
			return Charge{}, fmt.Errorf("fetch pix qr code: %w", err)
		}
		charge.PixQRCode = &qr
	}
	countGateway("create_charge", nil)
	return charge, nil
}

// GetChargeStatus polls a payment by its Asaas identifier.
func (a *Asaas) GetChargeStatus(ctx context.Context, paymentID string) (Charge, error) {
	var payment asaasPayment
	err := a.do(ctx, http.MethodGet, "/payments/"+url.PathEscape(paymentID), nil, &payment)
	countGateway("get_status", err)
	if err != nil {
		return Charge{}, fmt.Errorf("get payment %s: %w", paymentID, err)
	}
	return toCharge(payment), nil
}

func (a *Asaas) findOrCreateCustomer(ctx context.Context, c Customer) (string, error) {
	var list struct {
		Data []asaasCustomer `json:"data"`
	}
	q := url.Values{"cpfCnpj": {c.CpfCnpj}}
	if err := a.do(ctx, http.MethodGet, "/customers?"+q.Encode(), nil, &list); err != nil {
		return "", err
	}
	if len(list.Data) > 0 {
		return list.Data[0].ID, nil
	}

	var created asaasCustomer
	payload := map[string]any{
		"name":    c.Name,
		"email":   c.Email,
		"cpfCnpj": c.CpfCnpj,
	}
	if c.Phone != "" {
		payload["mobilePhone"] = c.Phone
	}
	if err := a.do(ctx, http.MethodPost, "/customers", payload, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

func (a *Asaas) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("access_token", a.APIKey)

	resp, err := a.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var envelope struct {
		Errors []struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"errors"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(raw, &envelope) == nil && len(envelope.Errors) > 0 {
		apiErr.Code = envelope.Errors[0].Code
		apiErr.Description = envelope.Errors[0].Description
	}
	return apiErr
}

func toCharge(p asaasPayment) Charge {
	return Charge{
		ID:          p.ID,
		RawStatus:   p.Status,
		Status:      SimplifyStatus(p.Status),
		ValueCents:  brlToCents(p.Value),
		BillingType: BillingType(p.BillingType),
		InvoiceURL:  p.InvoiceURL,
		BankSlipURL: p.BankSlipURL,
	}
}

func centsToBRL(cents int64) float64 { return float64(cents) / 100 }

func brlToCents(v float64) int64 {
	if v >= 0 {
		return int64(v*100 + 0.5)
	}
	return int64(v*100 - 0.5)
}

func countGateway(operation string, err error) {
	if obs.GatewayRequestsTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	obs.GatewayRequestsTotal.WithLabelValues(operation, result).Inc()
}
