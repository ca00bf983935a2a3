package checkout

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var cpfCnpjRe = regexp.MustCompile(`^\d{11}$|^\d{14}$`)

// Validate is the shared validator instance for checkout payloads.
var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// CPF is 11 digits, CNPJ is 14, nothing else.
	_ = v.RegisterValidation("cpfcnpj", func(fl validator.FieldLevel) bool {
		return cpfCnpjRe.MatchString(fl.Field().String())
	})
	return v
}

// CustomerInput identifies the payer. The document number arrives digits
// only; formatting is the client's job.
type CustomerInput struct {
	Name    string `json:"name" validate:"required,min=3"`
	Email   string `json:"email" validate:"required,email"`
	CpfCnpj string `json:"cpfCnpj" validate:"required,cpfcnpj"`
	Phone   string `json:"phone" validate:"omitempty,max=20"`
}

// AddressInput carries the destination. Only UF feeds pricing; the rest is
// passed through for the charge record. UF and CEP are mandatory: a charge
// without a destination would silently skip the shipping fee.
type AddressInput struct {
	UF         string `json:"uf" validate:"required,len=2,alpha"`
	PostalCode string `json:"cep" validate:"required,len=8,numeric"`
	Street     string `json:"street" validate:"omitempty,max=200"`
	Number     string `json:"number" validate:"omitempty,max=20"`
	City       string `json:"city" validate:"omitempty,max=100"`
}

// CreditCardInput references a tokenized card plus the holder identity the
// gateway requires. Raw PANs are never accepted.
type CreditCardInput struct {
	Token               string `json:"token" validate:"required"`
	HolderName          string `json:"holderName" validate:"required,min=3"`
	HolderEmail         string `json:"holderEmail" validate:"required,email"`
	HolderCpfCnpj       string `json:"holderCpfCnpj" validate:"required,cpfcnpj"`
	HolderPostalCode    string `json:"holderPostalCode" validate:"required,len=8,numeric"`
	HolderAddressNumber string `json:"holderAddressNumber" validate:"required,max=20"`
	HolderPhone         string `json:"holderPhone" validate:"omitempty,max=20"`
}

// PayRequest is the checkout payload. It names a product, never a price:
// the server derives every amount from the catalog. DebugTotal is the total
// the client displayed, in BRL, used only for divergence detection.
type PayRequest struct {
	ProductID     string           `json:"productId" validate:"required"`
	Customer      CustomerInput    `json:"customer" validate:"required"`
	Address       AddressInput     `json:"address" validate:"required"`
	PaymentMethod string           `json:"paymentMethod" validate:"required,oneof=PIX CREDIT_CARD BOLETO"`
	CreditCard    *CreditCardInput `json:"creditCard" validate:"omitempty"`
	Installments  *int             `json:"installments"`
	DebugTotal    *float64         `json:"debugTotal"`
}

// EchoedTotalCents converts the advisory client total to integer cents.
// The second return is false when the client sent nothing.
func (r PayRequest) EchoedTotalCents() (int64, bool) {
	if r.DebugTotal == nil {
		return 0, false
	}
	v := *r.DebugTotal * 100
	if v >= 0 {
		return int64(v + 0.5), true
	}
	return int64(v - 0.5), true
}
