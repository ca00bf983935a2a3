package common

import "errors"

// Canonical error codes surfaced to clients. The message attached to each is
// intentionally generic; computed values and internals stay in the logs.
const (
	CodeSchemaValidation    = "SCHEMA_VALIDATION"
	CodeProductNotFound     = "PRODUCT_NOT_FOUND"
	CodePaymentNotFound     = "PAYMENT_NOT_FOUND"
	CodeInvalidInstallments = "INVALID_INSTALLMENTS"
	CodePriceMismatch       = "PRICE_MISMATCH"
	CodeFeeOverflow         = "FEE_OVERFLOW"
	CodeGatewayError        = "GATEWAY_ERROR"
	CodeInternal            = "INTERNAL"
)

// AppError carries an error code and the HTTP status it maps to.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes the underlying error to errors.Is/As.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// AsAppError extracts an AppError from an error chain.
func AsAppError(err error) (*AppError, bool) {
	var target *AppError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
