package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambtus/checkout-api/internal/catalog"
	"github.com/ambtus/checkout-api/internal/common"
	"github.com/ambtus/checkout-api/internal/config"
	"github.com/ambtus/checkout-api/internal/gateway"
	"github.com/ambtus/checkout-api/internal/order"
	"github.com/ambtus/checkout-api/internal/pricing"
	"github.com/ambtus/checkout-api/internal/security"
	"github.com/ambtus/checkout-api/internal/shipping"
)

type stubGateway struct {
	lastReq gateway.ChargeRequest
	charge  gateway.Charge
	err     error
}

func (g *stubGateway) CreateCharge(_ context.Context, req gateway.ChargeRequest) (gateway.Charge, error) {
	g.lastReq = req
	if g.err != nil {
		return gateway.Charge{}, g.err
	}
	return g.charge, nil
}

func (g *stubGateway) GetChargeStatus(_ context.Context, _ string) (gateway.Charge, error) {
	if g.err != nil {
		return gateway.Charge{}, g.err
	}
	return g.charge, nil
}

type stubRecorder struct {
	events []security.Event
}

func (r *stubRecorder) Record(ev security.Event) { r.events = append(r.events, ev) }

func newService(gw *stubGateway, rec *stubRecorder) *Service {
	return &Service{
		Calc:                   order.NewCalculator(catalog.Default(), shipping.Resolver{}),
		Pricer:                 pricing.NewEngine(),
		Gateway:                gw,
		Security:               rec,
		Log:                    zerolog.Nop(),
		MismatchPolicy:         config.MismatchFatal,
		MismatchToleranceCents: 5,
	}
}

func validPixRequest() PayRequest {
	return PayRequest{
		ProductID: "ambtus-flash",
		Customer: CustomerInput{
			Name:    "Maria Silva",
			Email:   "maria@example.com",
			CpfCnpj: "12345678901",
		},
		Address:       AddressInput{UF: "SP", PostalCode: "01310100"},
		PaymentMethod: "PIX",
	}
}

// validCardRequest builds a card payload; installments <= 0 leaves the field
// unset, as a client paying in a single installment would.
func validCardRequest(installments int) PayRequest {
	req := validPixRequest()
	req.PaymentMethod = "CREDIT_CARD"
	if installments > 0 {
		req.Installments = &installments
	}
	req.CreditCard = &CreditCardInput{
		Token:               "tok_123",
		HolderName:          "Maria Silva",
		HolderEmail:         "maria@example.com",
		HolderCpfCnpj:       "12345678901",
		HolderPostalCode:    "01310100",
		HolderAddressNumber: "100",
	}
	return req
}

func TestPayPixChargesBaseTotal(t *testing.T) {
	gw := &stubGateway{charge: gateway.Charge{
		ID: "pay_1", RawStatus: "PENDING", Status: gateway.StatusPending,
		PixQRCode: &gateway.PixQRCode{Payload: "000201pix"},
	}}
	svc := newService(gw, &stubRecorder{})

	out, err := svc.Pay(context.Background(), validPixRequest(), nil)
	require.NoError(t, err)

	// ambtus-flash (R$7.499,00) + SP shipping (R$150,00), no card fees.
	assert.Equal(t, int64(764900), gw.lastReq.AmountCents)
	assert.Equal(t, gateway.BillingPix, gw.lastReq.BillingType)
	assert.Equal(t, "FLASH + Frete", gw.lastReq.Description)
	assert.True(t, strings.HasPrefix(out.ExternalReference, "ambtus-flash-"))

	assert.Equal(t, int64(764900), out.Payment.ValueCents)
	assert.Equal(t, int64(0), out.Payment.Breakdown.FeeCents)
	require.NotNil(t, out.Payment.PixQRCode)

	// Installments belong to card charges only; the field stays out of the
	// PIX response body.
	assert.Zero(t, out.Payment.Installments)
	body, err := json.Marshal(out.Payment)
	require.NoError(t, err)
	assert.NotContains(t, string(body), `"installments"`)
}

func TestPayWithoutAddressRejected(t *testing.T) {
	gw := &stubGateway{}
	svc := newService(gw, &stubRecorder{})

	req := validPixRequest()
	req.Address = AddressInput{}
	_, err := svc.Pay(context.Background(), req, nil)

	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, common.CodeSchemaValidation, appErr.Code)
	// No charge (and no zero-shipping total) ever reaches the gateway.
	assert.Zero(t, gw.lastReq.AmountCents)
}

func TestPayWithoutPostalCodeRejected(t *testing.T) {
	svc := newService(&stubGateway{}, &stubRecorder{})

	req := validPixRequest()
	req.Address.PostalCode = ""
	_, err := svc.Pay(context.Background(), req, nil)

	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, common.CodeSchemaValidation, appErr.Code)
}

func TestPayCardAppliesReverseFees(t *testing.T) {
	gw := &stubGateway{charge: gateway.Charge{ID: "pay_2", RawStatus: "CONFIRMED", Status: gateway.StatusConfirmed}}
	svc := newService(gw, &stubRecorder{})

	req := validCardRequest(12)
	req.Address.UF = "AM"
	out, err := svc.Pay(context.Background(), req, nil)
	require.NoError(t, err)

	// base 779900 (far shipping) grossed up for 12 installments.
	assert.Equal(t, int64(1015426), gw.lastReq.AmountCents)
	assert.Equal(t, 12, gw.lastReq.InstallmentCount)
	assert.Equal(t, "FLASH + Frete + Taxas", gw.lastReq.Description)
	require.NotNil(t, gw.lastReq.HolderInfo)
	assert.Equal(t, "tok_123", gw.lastReq.CreditCardToken)

	assert.Equal(t, int64(1015426-779900), out.Payment.Breakdown.FeeCents)
	assert.Equal(t, 12, out.Payment.Installments)
}

func TestPayCardSingleInstallmentDefault(t *testing.T) {
	gw := &stubGateway{charge: gateway.Charge{ID: "pay_3", Status: gateway.StatusConfirmed}}
	svc := newService(gw, &stubRecorder{})

	// No installments field at all: charge in a single installment.
	_, err := svc.Pay(context.Background(), validCardRequest(0), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(801749), gw.lastReq.AmountCents)
	assert.Equal(t, 1, gw.lastReq.InstallmentCount)
}

func TestPayCardRejectsOutOfRangeInstallments(t *testing.T) {
	for _, count := range []int{0, -3, 22} {
		rec := &stubRecorder{}
		gw := &stubGateway{}
		svc := newService(gw, rec)

		req := validCardRequest(1)
		n := count
		req.Installments = &n
		_, err := svc.Pay(context.Background(), req, nil)

		appErr, ok := common.AsAppError(err)
		require.True(t, ok, "count=%d", count)
		assert.Equal(t, common.CodeInvalidInstallments, appErr.Code, "count=%d", count)
		assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
		assert.Zero(t, gw.lastReq.AmountCents)

		require.Len(t, rec.events, 1, "count=%d", count)
		assert.Equal(t, security.EventInvalidInstallments, rec.events[0].Kind)
	}
}

func TestPayUnknownProductRecordsEvent(t *testing.T) {
	rec := &stubRecorder{}
	svc := newService(&stubGateway{}, rec)

	req := validPixRequest()
	req.ProductID = "ghost-bike"
	_, err := svc.Pay(context.Background(), req, httptest.NewRequest("POST", "/pay", nil))

	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, common.CodeProductNotFound, appErr.Code)
	assert.Equal(t, http.StatusNotFound, appErr.HTTPStatus)

	require.Len(t, rec.events, 1)
	assert.Equal(t, security.EventProductNotFound, rec.events[0].Kind)
	assert.Equal(t, "ghost-bike", rec.events[0].ProductID)
}

func TestPayInstallmentsAboveCeiling(t *testing.T) {
	rec := &stubRecorder{}
	svc := newService(&stubGateway{}, rec)
	svc.Pricer.MaxInstallments = 12

	_, err := svc.Pay(context.Background(), validCardRequest(15), nil)

	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, common.CodeInvalidInstallments, appErr.Code)
	assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)

	require.Len(t, rec.events, 1)
	assert.Equal(t, security.EventInvalidInstallments, rec.events[0].Kind)
}

func TestPayCardWithoutCardData(t *testing.T) {
	svc := newService(&stubGateway{}, &stubRecorder{})

	req := validPixRequest()
	req.PaymentMethod = "CREDIT_CARD"
	_, err := svc.Pay(context.Background(), req, nil)

	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, common.CodeSchemaValidation, appErr.Code)
}

func TestPayMismatchFatal(t *testing.T) {
	rec := &stubRecorder{}
	svc := newService(&stubGateway{}, rec)

	req := validPixRequest()
	echoed := 1.00 // client claims R$1,00 against a R$7.649,00 charge
	req.DebugTotal = &echoed
	_, err := svc.Pay(context.Background(), req, nil)

	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, common.CodePriceMismatch, appErr.Code)
	assert.Equal(t, http.StatusForbidden, appErr.HTTPStatus)

	require.Len(t, rec.events, 1)
	assert.Equal(t, security.EventPriceMismatch, rec.events[0].Kind)
	assert.Equal(t, int64(764900), rec.events[0].ExpectedCents)
	assert.Equal(t, int64(100), rec.events[0].ReceivedCents)
}

func TestPayMismatchLogPolicyProceeds(t *testing.T) {
	rec := &stubRecorder{}
	gw := &stubGateway{charge: gateway.Charge{ID: "pay_4", Status: gateway.StatusPending}}
	svc := newService(gw, rec)
	svc.MismatchPolicy = config.MismatchLog

	req := validPixRequest()
	echoed := 1.00
	req.DebugTotal = &echoed
	out, err := svc.Pay(context.Background(), req, nil)
	require.NoError(t, err)

	// Event still recorded, charge still uses the server total.
	require.Len(t, rec.events, 1)
	assert.Equal(t, int64(764900), out.Payment.ValueCents)
}

func TestPayMismatchWithinTolerance(t *testing.T) {
	rec := &stubRecorder{}
	gw := &stubGateway{charge: gateway.Charge{ID: "pay_5", Status: gateway.StatusPending}}
	svc := newService(gw, rec)

	req := validPixRequest()
	echoed := 7649.03 // 3 cents off
	req.DebugTotal = &echoed
	_, err := svc.Pay(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Empty(t, rec.events)
}

func TestPayCardDeclineMapsToUserError(t *testing.T) {
	gw := &stubGateway{err: &gateway.APIError{StatusCode: 400, Code: "CREDIT_CARD_DECLINED", Description: "declined"}}
	svc := newService(gw, &stubRecorder{})

	_, err := svc.Pay(context.Background(), validCardRequest(1), nil)

	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, common.CodeGatewayError, appErr.Code)
	assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
	assert.Contains(t, appErr.Message, "recusado")
}

func TestPayGatewayFaultMapsToBadGateway(t *testing.T) {
	gw := &stubGateway{err: &gateway.APIError{StatusCode: 500}}
	svc := newService(gw, &stubRecorder{})

	_, err := svc.Pay(context.Background(), validPixRequest(), nil)

	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, common.CodeGatewayError, appErr.Code)
	assert.Equal(t, http.StatusBadGateway, appErr.HTTPStatus)
}

func TestPayRejectsMalformedPayload(t *testing.T) {
	svc := newService(&stubGateway{}, &stubRecorder{})

	req := validPixRequest()
	req.Customer.CpfCnpj = "123" // neither CPF nor CNPJ length
	_, err := svc.Pay(context.Background(), req, nil)

	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, common.CodeSchemaValidation, appErr.Code)
}

func TestSimulateLadder(t *testing.T) {
	svc := newService(&stubGateway{}, &stubRecorder{})

	sim, err := svc.Simulate("ambtus-flash", "SP", 0)
	require.NoError(t, err)

	assert.Equal(t, int64(749900), sim.ProductPriceCents)
	assert.Equal(t, int64(15000), sim.ShippingCents)
	assert.Equal(t, int64(764900), sim.BaseTotalCents)
	require.Len(t, sim.Installments, 21)
	assert.Equal(t, int64(801749), sim.Installments[0].GrossTotalCents)
}

func TestSimulateUnknownProduct(t *testing.T) {
	svc := newService(&stubGateway{}, &stubRecorder{})

	_, err := svc.Simulate("ghost-bike", "SP", 0)
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, common.CodeProductNotFound, appErr.Code)
}

func TestStatusNotFound(t *testing.T) {
	gw := &stubGateway{err: &gateway.APIError{StatusCode: 404, Description: "payment not found"}}
	svc := newService(gw, &stubRecorder{})

	_, err := svc.Status(context.Background(), "pay_missing")
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, common.CodePaymentNotFound, appErr.Code)
	assert.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
}
