package domain

import (
	"errors"
	"fmt"
)

// Business-rule and upstream failure values. Callers match with errors.Is.
var (
	// ErrInsufficientFunds is returned when a BUY exceeds the cash balance
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientQuantity is returned when a SELL exceeds the held quantity
	ErrInsufficientQuantity = errors.New("insufficient quantity held")

	// ErrQuoteUnavailable is returned when no live quote can be obtained.
	// Portfolio reads degrade to nil market data; trade execution fails closed.
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrSessionExpired is returned when the broker rejects the session token.
	// The user must re-authenticate; the core never retries.
	ErrSessionExpired = errors.New("broker session expired")

	// ErrUpstreamTimeout is returned when a broker call exceeds its deadline.
	// Treated the same as unavailable, never retried automatically.
	ErrUpstreamTimeout = errors.New("upstream timeout")

	// ErrAccountNotFound is returned when no account row exists for a user
	ErrAccountNotFound = errors.New("account not found")
)

// ValidationError reports malformed transaction inputs. Fatal to the single
// call; no state change occurs.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for a field
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidationError reports whether err is (or wraps) a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
