package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrInvalidProduct       = errors.New("invalid_product")
	ErrInvalidPrice         = errors.New("invalid_price")
	ErrInvalidShippingCost  = errors.New("invalid_shipping_cost")
	ErrInvalidQuantity      = errors.New("invalid_quantity")
	ErrInvalidBuyerLocation = errors.New("invalid_buyer_location")
	ErrInvalidCountry       = errors.New("invalid_country")
	ErrInvalidID            = errors.New("invalid_id")
	ErrNotFound             = errors.New("not_found")
	ErrInvalidTaxRate       = errors.New("invalid_tax_rate")
	ErrInvalidPageToken     = errors.New("invalid_page_token")

	// ErrGeoLookupFailed marks geolocation failures the calculator may ignore.
	ErrGeoLookupFailed = errors.New("geo_lookup_failed")
)

// FieldError describes one rejected calculator input.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError is returned when a calculator is built from malformed input.
// It is never recovered inside the engine.
type ValidationError struct {
	Errors []FieldError
	cause  error
}

func NewValidationError(cause error, fields ...FieldError) *ValidationError {
	return &ValidationError{Errors: fields, cause: cause}
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validation error"
	}
	parts := make([]string, 0, len(e.Errors))
	for _, f := range e.Errors {
		parts = append(parts, f.Field+": "+f.Code)
	}
	return "validation error: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return e.cause }

// TaxAPIError is a failed call to the third-party tax API.
type TaxAPIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *TaxAPIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tax api error (status %d): %s: %v", e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("tax api error (status %d): %s", e.StatusCode, e.Message)
}

func (e *TaxAPIError) Unwrap() error { return e.Err }

func (e *TaxAPIError) IsClientError() bool {
	return e.StatusCode >= http.StatusBadRequest && e.StatusCode < http.StatusInternalServerError
}

// IsServerError also covers transport failures, which carry no status code.
func (e *TaxAPIError) IsServerError() bool {
	return e.StatusCode == 0 || e.StatusCode >= http.StatusInternalServerError
}

// Class returns "client" or "server".
func (e *TaxAPIError) Class() string {
	if e.IsClientError() {
		return "client"
	}
	return "server"
}
