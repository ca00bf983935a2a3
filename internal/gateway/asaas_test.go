package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimplifyStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"CONFIRMED", StatusConfirmed},
		{"RECEIVED", StatusConfirmed},
		{"RECEIVED_IN_CASH", StatusConfirmed},
		{"PENDING", StatusPending},
		{"AWAITING_RISK_ANALYSIS", StatusPending},
		{"REFUNDED", StatusFailed},
		{"OVERDUE", StatusFailed},
		{"DELETED", StatusFailed},
		{"pending", StatusPending},
		{"SOMETHING_NEW", StatusUnknown},
		{"", StatusUnknown},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, SimplifyStatus(c.raw), "raw=%q", c.raw)
	}
}

func TestNewAsaasDefaults(t *testing.T) {
	a := NewAsaas("secret-key", "", 0)

	assert.Equal(t, "https://sandbox.asaas.com/api/v3", a.BaseURL)
	assert.Equal(t, 15*time.Second, a.HTTP.Timeout)
	// Outbound calls run through the tracing round-tripper.
	assert.NotNil(t, a.HTTP.Transport)
}

func TestCreateChargePixReusesExistingCustomer(t *testing.T) {
	var paymentBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret-key", r.Header.Get("access_token"))
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/customers":
			assert.Equal(t, "12345678901", r.URL.Query().Get("cpfCnpj"))
			json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{{"id": "cus_1", "cpfCnpj": "12345678901"}},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/payments":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&paymentBody))
			json.NewEncoder(w).Encode(map[string]any{
				"id": "pay_1", "status": "PENDING", "value": 8017.49,
				"billingType": "PIX", "invoiceUrl": "https://inv/pay_1",
			})
		case r.Method == http.MethodGet && r.URL.Path == "/payments/pay_1/pixQrCode":
			json.NewEncoder(w).Encode(map[string]any{
				"encodedImage": "base64img", "payload": "000201pix", "expirationDate": "2026-09-04 23:59:59",
			})
		default:
			t.Fatalf("unexpected call %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	a := NewAsaas("secret-key", srv.URL, time.Second)
	charge, err := a.CreateCharge(context.Background(), ChargeRequest{
		Customer:          Customer{Name: "Maria Silva", Email: "maria@example.com", CpfCnpj: "12345678901"},
		BillingType:       BillingPix,
		AmountCents:       801749,
		Description:       "Ambtus Flash + Frete",
		ExternalReference: "ambtus-flash-abc",
		DueDate:           "2026-09-04",
	})
	require.NoError(t, err)

	assert.Equal(t, "pay_1", charge.ID)
	assert.Equal(t, StatusPending, charge.Status)
	assert.Equal(t, int64(801749), charge.ValueCents)
	require.NotNil(t, charge.PixQRCode)
	assert.Equal(t, "000201pix", charge.PixQRCode.Payload)

	assert.Equal(t, "cus_1", paymentBody["customer"])
	assert.Equal(t, 8017.49, paymentBody["value"])
	assert.NotContains(t, paymentBody, "installmentCount")
}

func TestCreateChargeCardCreatesCustomerAndSendsInstallments(t *testing.T) {
	var customerBody, paymentBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/customers":
			json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{}})
		case r.Method == http.MethodPost && r.URL.Path == "/customers":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&customerBody))
			json.NewEncoder(w).Encode(map[string]any{"id": "cus_new"})
		case r.Method == http.MethodPost && r.URL.Path == "/payments":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&paymentBody))
			json.NewEncoder(w).Encode(map[string]any{
				"id": "pay_2", "status": "CONFIRMED", "value": 10154.26, "billingType": "CREDIT_CARD",
			})
		default:
			t.Fatalf("unexpected call %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	a := NewAsaas("secret-key", srv.URL, time.Second)
	charge, err := a.CreateCharge(context.Background(), ChargeRequest{
		Customer:         Customer{Name: "João Souza", Email: "joao@example.com", CpfCnpj: "12345678901", RemoteIP: "203.0.113.9"},
		BillingType:      BillingCard,
		AmountCents:      1015426,
		InstallmentCount: 12,
		CreditCardToken:  "tok_123",
		HolderInfo: &CardHolderInfo{
			Name: "João Souza", Email: "joao@example.com", CpfCnpj: "12345678901",
			PostalCode: "01310100", AddressNumber: "100",
		},
		DueDate: "2026-09-04",
	})
	require.NoError(t, err)

	assert.Equal(t, "pay_2", charge.ID)
	assert.Equal(t, StatusConfirmed, charge.Status)
	assert.Nil(t, charge.PixQRCode)

	assert.Equal(t, "João Souza", customerBody["name"])
	assert.Equal(t, float64(12), paymentBody["installmentCount"])
	assert.Equal(t, "tok_123", paymentBody["creditCardToken"])
	assert.Equal(t, "203.0.113.9", paymentBody["remoteIp"])
	assert.InDelta(t, 10154.26/12, paymentBody["installmentValue"], 0.0001)
}

func TestGetChargeStatusNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]any{{"code": "invalid_object", "description": "payment not found"}},
		})
	}))
	defer srv.Close()

	a := NewAsaas("secret-key", srv.URL, time.Second)
	_, err := a.GetChargeStatus(context.Background(), "pay_missing")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.NotFound())
	assert.Equal(t, "payment not found", apiErr.Description)
}

func TestBRLConversionRoundTrip(t *testing.T) {
	assert.Equal(t, 8017.49, centsToBRL(801749))
	assert.Equal(t, int64(801749), brlToCents(8017.49))
	assert.Equal(t, int64(100), brlToCents(1.0))
	assert.Equal(t, int64(0), brlToCents(0))
}
