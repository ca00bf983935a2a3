package gateway

import (
	"context"
)

// BillingType selects the charge rail at the payment provider.
type BillingType string

const (
	BillingPix    BillingType = "PIX"
	BillingCard   BillingType = "CREDIT_CARD"
	BillingBoleto BillingType = "BOLETO"
)

// Simplified status values surfaced to polling clients.
const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
	StatusFailed    = "FAILED"
	StatusUnknown   = "UNKNOWN"
)

// Customer identifies the payer. CpfCnpj is digits only, 11 or 14 long.
type Customer struct {
	Name      string
	Email     string
	CpfCnpj   string
	Phone     string
	RemoteIP  string
	UserAgent string
}

// CardHolderInfo is the billing identity Asaas requires alongside a card token.
type CardHolderInfo struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	CpfCnpj       string `json:"cpfCnpj"`
	PostalCode    string `json:"postalCode"`
	AddressNumber string `json:"addressNumber"`
	Phone         string `json:"phone,omitempty"`
}

// ChargeRequest carries everything needed to open a charge. Amounts are in
// integer cents; the provider adapter converts to the wire currency unit.
type ChargeRequest struct {
	Customer          Customer
	BillingType       BillingType
	AmountCents       int64
	InstallmentCount  int
	Description       string
	ExternalReference string
	DueDate           string

	CreditCardToken string
	HolderInfo      *CardHolderInfo
}

// PixQRCode is the scannable payload returned for PIX charges.
type PixQRCode struct {
	EncodedImage   string `json:"encodedImage"`
	Payload        string `json:"payload"`
	ExpirationDate string `json:"expirationDate"`
}

// Charge is the provider's view of a created or polled payment.
type Charge struct {
	ID          string
	RawStatus   string
	Status      string
	ValueCents  int64
	BillingType BillingType
	InvoiceURL  string
	BankSlipURL string
	PixQRCode   *PixQRCode
}

// Provider abstracts the upstream payment gateway.
type Provider interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (Charge, error)
	GetChargeStatus(ctx context.Context, paymentID string) (Charge, error)
}
