package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPrice            = errors.New("invalid price")
	ErrInvalidField            = errors.New("invalid field")
	ErrPriceMismatch           = errors.New("price does not belong to the checkout product")
	ErrNotOpen                 = errors.New("checkout is not open")
	ErrNotConfirmed            = errors.New("checkout is not confirmed")
	ErrMissingAmount           = errors.New("amount is required for a custom price")
	ErrMissingRequiredField    = errors.New("missing required field")
	ErrCheckoutDoesNotExist    = errors.New("checkout does not exist")
	ErrSetupIntentNotSucceeded = errors.New("setup intent has not succeeded")
	ErrNoCustomer              = errors.New("setup intent has no customer")
	ErrNoPaymentMethod         = errors.New("setup intent has no payment method")
	// ErrAlreadyProcessed is returned when a payment result arrives for a
	// checkout that already settled. Callers treat it as a no-op.
	ErrAlreadyProcessed = errors.New("checkout already processed")
)

// FieldError ties a validation failure to the request field that caused it.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func fieldErr(field string, err error) error {
	return &FieldError{Field: field, Err: err}
}

// IsValidation reports whether err was raised before any side effect because
// the request itself is unacceptable.
func IsValidation(err error) bool {
	for _, target := range []error{ErrInvalidPrice, ErrInvalidField, ErrPriceMismatch, ErrMissingAmount, ErrMissingRequiredField} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
