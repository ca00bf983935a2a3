package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ambtus/checkout-api/internal/catalog"
	"github.com/ambtus/checkout-api/internal/common"
	"github.com/ambtus/checkout-api/internal/config"
	"github.com/ambtus/checkout-api/internal/gateway"
	"github.com/ambtus/checkout-api/internal/obs"
	"github.com/ambtus/checkout-api/internal/order"
	"github.com/ambtus/checkout-api/internal/pricing"
	"github.com/ambtus/checkout-api/internal/security"
)

// Messages the gateway's card decline codes map to. Anything outside this
// table is treated as a gateway fault, not a user error.
var cardDeclineMessages = map[string]string{
	"CREDIT_CARD_DECLINED": "Cartão recusado pelo banco emissor. Tente outro cartão.",
	"INSUFFICIENT_FUNDS":   "Saldo insuficiente para realizar a transação.",
	"INVALID_CREDIT_CARD":  "Dados do cartão inválidos. Verifique o número e validade.",
	"EXPIRED_CREDIT_CARD":  "Cartão vencido.",
	"BLOCKED_CREDIT_CARD":  "Cartão bloqueado. Contate o emissor.",
}

// Breakdown shows the payer where the charged amount comes from.
type Breakdown struct {
	ProductCents  int64 `json:"productCents"`
	ShippingCents int64 `json:"shippingCents"`
	FeeCents      int64 `json:"feeCents"`
}

// PaymentOut is the charge view returned to the client.
type PaymentOut struct {
	ID           string             `json:"id"`
	Status       string             `json:"status"`
	RawStatus    string             `json:"rawStatus"`
	Method       string             `json:"method"`
	ValueCents   int64              `json:"valueCents"`
	Installments int                `json:"installments,omitempty"`
	Breakdown    Breakdown          `json:"breakdown"`
	InvoiceURL   string             `json:"invoiceUrl,omitempty"`
	BankSlipURL  string             `json:"bankSlipUrl,omitempty"`
	PixQRCode    *gateway.PixQRCode `json:"pixQrCode,omitempty"`
}

// PayResult is the full success envelope for a checkout.
type PayResult struct {
	Payment           PaymentOut `json:"payment"`
	ExternalReference string     `json:"externalReference"`
}

// Simulation is the installment ladder for a product/destination pair.
type Simulation struct {
	ProductID         string           `json:"productId"`
	ProductPriceCents int64            `json:"productPrice"`
	ShippingCents     int64            `json:"shipping"`
	BaseTotalCents    int64            `json:"baseTotal"`
	Installments      []pricing.Option `json:"installments"`
}

// Service orchestrates a checkout: server-side price derivation, divergence
// detection, reverse fee application and the gateway call.
type Service struct {
	Calc     *order.Calculator
	Pricer   *pricing.Engine
	Gateway  gateway.Provider
	Security security.Recorder
	Log      zerolog.Logger

	MismatchPolicy         config.MismatchPolicy
	MismatchToleranceCents int64
}

// Pay runs the full checkout. The *http.Request is used only for security
// event provenance and the card charge's remote IP.
func (s *Service) Pay(ctx context.Context, req PayRequest, httpReq *http.Request) (PayResult, error) {
	if err := Validate.Struct(req); err != nil {
		return PayResult{}, common.NewAppError(common.CodeSchemaValidation, "dados inválidos no formulário", http.StatusBadRequest, err)
	}

	total, err := s.Calc.Total(req.ProductID, req.Address.UF)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			s.recordEvent(security.Event{
				Kind:      security.EventProductNotFound,
				ProductID: req.ProductID,
				Detail:    "checkout named an unknown product",
			}, httpReq)
			return PayResult{}, common.NewAppError(common.CodeProductNotFound, "produto não encontrado", http.StatusNotFound, err)
		}
		return PayResult{}, common.NewAppError(common.CodeSchemaValidation, "destino de entrega inválido", http.StatusBadRequest, err)
	}

	installments := 1
	isCard := req.PaymentMethod == string(gateway.BillingCard)
	chargeable := total.BaseTotalCents
	if isCard {
		if req.CreditCard == nil {
			return PayResult{}, common.NewAppError(common.CodeSchemaValidation, "dados do cartão são obrigatórios", http.StatusBadRequest, nil)
		}
		// Absent means single payment; an explicit 0 or negative is a
		// malformed count and falls through to the range check below.
		if req.Installments != nil {
			installments = *req.Installments
		}
		maxInstallments := total.MaxInstallments
		if maxInstallments <= 0 || maxInstallments > s.Pricer.MaxInstallments {
			maxInstallments = s.Pricer.MaxInstallments
		}
		if installments < 1 || installments > maxInstallments {
			s.recordEvent(security.Event{
				Kind:      security.EventInvalidInstallments,
				ProductID: req.ProductID,
				Detail:    fmt.Sprintf("requested %d, maximum %d", installments, maxInstallments),
			}, httpReq)
			return PayResult{}, common.NewAppError(common.CodeInvalidInstallments,
				fmt.Sprintf("número de parcelas inválido (máx: %d)", maxInstallments), http.StatusBadRequest, nil)
		}
		chargeable, err = s.Pricer.ReverseTotal(total.BaseTotalCents, installments)
		if err != nil {
			if errors.Is(err, pricing.ErrFeeOverflow) {
				return PayResult{}, common.NewAppError(common.CodeFeeOverflow, "taxas excedem o valor cobrável", http.StatusInternalServerError, err)
			}
			return PayResult{}, common.NewAppError(common.CodeInvalidInstallments, "número de parcelas inválido", http.StatusBadRequest, err)
		}
	}

	if err := s.checkEchoedTotal(req, chargeable, httpReq); err != nil {
		return PayResult{}, err
	}

	externalReference := req.ProductID + "-" + uuid.NewString()
	dueDate := time.Now().AddDate(0, 0, 3).Format("2006-01-02")

	chargeReq := gateway.ChargeRequest{
		Customer: gateway.Customer{
			Name:    req.Customer.Name,
			Email:   req.Customer.Email,
			CpfCnpj: req.Customer.CpfCnpj,
			Phone:   req.Customer.Phone,
		},
		BillingType:       gateway.BillingType(req.PaymentMethod),
		AmountCents:       chargeable,
		Description:       total.ProductName + " + Frete",
		ExternalReference: externalReference,
		DueDate:           dueDate,
	}
	if isCard {
		chargeReq.Description = total.ProductName + " + Frete + Taxas"
		chargeReq.InstallmentCount = installments
		chargeReq.CreditCardToken = req.CreditCard.Token
		chargeReq.HolderInfo = &gateway.CardHolderInfo{
			Name:          req.CreditCard.HolderName,
			Email:         req.CreditCard.HolderEmail,
			CpfCnpj:       req.CreditCard.HolderCpfCnpj,
			PostalCode:    req.CreditCard.HolderPostalCode,
			AddressNumber: req.CreditCard.HolderAddressNumber,
			Phone:         req.CreditCard.HolderPhone,
		}
		if httpReq != nil {
			chargeReq.Customer.RemoteIP = common.ClientIP(httpReq)
		}
	}

	charge, err := s.Gateway.CreateCharge(ctx, chargeReq)
	s.countCharge(req.PaymentMethod, err)
	if err != nil {
		return PayResult{}, s.mapGatewayError(err)
	}

	// Installments only mean something on card charges; PIX and boleto
	// responses leave the field out entirely.
	outInstallments := 0
	if isCard {
		outInstallments = installments
	}

	s.Log.Info().
		Str("payment_id", charge.ID).
		Str("method", req.PaymentMethod).
		Str("product_id", req.ProductID).
		Int64("value_cents", chargeable).
		Int("installments", installments).
		Str("external_reference", externalReference).
		Msg("charge created")

	return PayResult{
		Payment: PaymentOut{
			ID:           charge.ID,
			Status:       charge.Status,
			RawStatus:    charge.RawStatus,
			Method:       req.PaymentMethod,
			ValueCents:   chargeable,
			Installments: outInstallments,
			Breakdown: Breakdown{
				ProductCents:  total.ProductPriceCents,
				ShippingCents: total.ShippingFeeCents,
				FeeCents:      chargeable - total.BaseTotalCents,
			},
			InvoiceURL:  charge.InvoiceURL,
			BankSlipURL: charge.BankSlipURL,
			PixQRCode:   charge.PixQRCode,
		},
		ExternalReference: externalReference,
	}, nil
}

// Simulate builds the installment ladder for a product and destination.
func (s *Service) Simulate(productID, uf string, maxInstallments int) (Simulation, error) {
	total, err := s.Calc.Total(productID, uf)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return Simulation{}, common.NewAppError(common.CodeProductNotFound, "produto não encontrado", http.StatusNotFound, err)
		}
		return Simulation{}, common.NewAppError(common.CodeSchemaValidation, "destino de entrega inválido", http.StatusBadRequest, err)
	}
	if maxInstallments <= 0 || maxInstallments > total.MaxInstallments {
		maxInstallments = total.MaxInstallments
	}
	options, err := s.Pricer.Ladder(total.BaseTotalCents, maxInstallments)
	if err != nil {
		return Simulation{}, common.NewAppError(common.CodeFeeOverflow, "falha ao simular parcelas", http.StatusInternalServerError, err)
	}
	return Simulation{
		ProductID:         total.ProductID,
		ProductPriceCents: total.ProductPriceCents,
		ShippingCents:     total.ShippingFeeCents,
		BaseTotalCents:    total.BaseTotalCents,
		Installments:      options,
	}, nil
}

// Status polls the gateway for a charge's simplified status.
func (s *Service) Status(ctx context.Context, paymentID string) (gateway.Charge, error) {
	charge, err := s.Gateway.GetChargeStatus(ctx, paymentID)
	if err != nil {
		var apiErr *gateway.APIError
		if errors.As(err, &apiErr) && apiErr.NotFound() {
			return gateway.Charge{}, common.NewAppError(common.CodePaymentNotFound, "pagamento não encontrado", http.StatusNotFound, err)
		}
		return gateway.Charge{}, common.NewAppError(common.CodeGatewayError, "erro ao verificar pagamento", http.StatusBadGateway, err)
	}
	return charge, nil
}

// checkEchoedTotal compares the client-displayed total against the
// server-derived charge. Divergence beyond tolerance is always recorded;
// whether it aborts the checkout depends on the configured policy.
func (s *Service) checkEchoedTotal(req PayRequest, chargeableCents int64, httpReq *http.Request) error {
	echoed, ok := req.EchoedTotalCents()
	if !ok {
		return nil
	}
	delta := echoed - chargeableCents
	if delta < 0 {
		delta = -delta
	}
	if delta <= s.MismatchToleranceCents {
		return nil
	}
	s.recordEvent(security.Event{
		Kind:          security.EventPriceMismatch,
		ProductID:     req.ProductID,
		ExpectedCents: chargeableCents,
		ReceivedCents: echoed,
		Detail:        req.PaymentMethod,
	}, httpReq)
	if s.MismatchPolicy == config.MismatchLog {
		return nil
	}
	return common.NewAppError(common.CodePriceMismatch,
		"divergência de valores. Atualize a página e tente novamente.", http.StatusForbidden, nil)
}

func (s *Service) recordEvent(ev security.Event, httpReq *http.Request) {
	if s.Security == nil {
		return
	}
	security.Provenance(&ev, httpReq)
	s.Security.Record(ev)
}

func (s *Service) mapGatewayError(err error) error {
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		if msg, ok := cardDeclineMessages[apiErr.Code]; ok {
			return common.NewAppError(common.CodeGatewayError, msg, http.StatusBadRequest, err)
		}
	}
	s.Log.Error().Err(err).Msg("gateway charge failed")
	return common.NewAppError(common.CodeGatewayError,
		"sistema temporariamente instável. Tente novamente em alguns instantes.", http.StatusBadGateway, err)
}

func (s *Service) countCharge(method string, err error) {
	if obs.CheckoutChargesTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	obs.CheckoutChargesTotal.WithLabelValues(method, result).Inc()
}
