package estimator

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrInvalidBytecode = errors.New("estimator: invalid bytecode")
	ErrInvalidOptions  = errors.New("estimator: invalid options")
	ErrNetworkMismatch = errors.New("estimator: network mismatch")
)

// Validation failure reasons.
const (
	ReasonEmpty         = "empty"
	ReasonMissingPrefix = "missing_prefix"
	ReasonInvalidHex    = "invalid_hex"
	ReasonInvalidTier   = "invalid_tier"
	ReasonInvalidPrice  = "invalid_price"
	ReasonInvalidSort   = "invalid_sort"
	ReasonNoPrices      = "no_prices"
)

// ValidationError reports a malformed input. Field names the input and
// Reason the specific malformed aspect.
type ValidationError struct {
	Field   string
	Reason  string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// Is maps bytecode failures to ErrInvalidBytecode and everything else to ErrInvalidOptions.
func (e *ValidationError) Is(target error) bool {
	if e.Field == "bytecode" {
		return target == ErrInvalidBytecode
	}
	return target == ErrInvalidOptions
}

func newValidationError(field, reason, message string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Message: message}
}

// NetworkMismatchError is returned when an estimate for one network would be
// priced with another network's gas price.
type NetworkMismatchError struct {
	Requested    string
	PriceNetwork string
}

// Error implements the error interface.
func (e *NetworkMismatchError) Error() string {
	return fmt.Sprintf("network mismatch: estimate requested for %q but gas price is for %q", e.Requested, e.PriceNetwork)
}

// Is implements errors.Is support for ErrNetworkMismatch.
func (e *NetworkMismatchError) Is(target error) bool {
	return target == ErrNetworkMismatch
}
