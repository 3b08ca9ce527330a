package oracle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Sentinel errors
var (
	ErrUnsupportedNetwork = errors.New("oracle: unsupported network")
	ErrMalformedResponse  = errors.New("oracle: malformed response")
	ErrHTTPStatus         = errors.New("oracle: unexpected http status")
	ErrRetriesExhausted   = errors.New("oracle: failed after retries")
	ErrRPC                = errors.New("oracle: rpc error")
	ErrNoFallback         = errors.New("oracle: no fallback rpc configured")
)

// HTTPStatusError is returned when the gas oracle answers with a non-2xx status.
type HTTPStatusError struct {
	Network    string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("gas oracle for %s returned status %d", e.Network, e.StatusCode)
	}
	return fmt.Sprintf("gas oracle for %s returned status %d: %s", e.Network, e.StatusCode, e.Body)
}

// Is implements errors.Is support for ErrHTTPStatus.
func (e *HTTPStatusError) Is(target error) bool {
	return target == ErrHTTPStatus
}

// ParseError is returned when an oracle body lacks a required field.
type ParseError struct {
	Network string
	Field   string
	Err     error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	msg := fmt.Sprintf("malformed gas oracle response for %s", e.Network)
	if e.Field != "" {
		msg += ": missing or invalid " + e.Field
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying decode error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support for ErrMalformedResponse.
func (e *ParseError) Is(target error) bool {
	return target == ErrMalformedResponse
}

// RetriesExhaustedError is returned when the oracle kept rate limiting.
type RetriesExhaustedError struct {
	Network  string
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("gas oracle for %s failed after retries (%d attempts): %v", e.Network, e.Attempts, e.Err)
}

// Unwrap returns the last attempt's error.
func (e *RetriesExhaustedError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support for ErrRetriesExhausted.
func (e *RetriesExhaustedError) Is(target error) bool {
	return target == ErrRetriesExhausted
}

// RPCError is an error object returned by the fallback JSON-RPC endpoint.
type RPCError struct {
	Network string
	Code    int
	Message string
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	return fmt.Sprintf("eth_gasPrice on %s failed with rpc error %d: %s", e.Network, e.Code, e.Message)
}

// Is implements errors.Is support for ErrRPC.
func (e *RPCError) Is(target error) bool {
	return target == ErrRPC
}

// AggregateError lists every network whose fetch failed during a fan-out.
type AggregateError struct {
	Networks []string
	Errors   *multierror.Error
}

func newAggregateError() *AggregateError {
	return &AggregateError{Errors: &multierror.Error{ErrorFormat: inlineFormat}}
}

func (e *AggregateError) add(network string, err error) {
	e.Networks = append(e.Networks, network)
	e.Errors = multierror.Append(e.Errors, err)
}

// Error implements the error interface.
func (e *AggregateError) Error() string {
	return fmt.Sprintf("failed to fetch gas prices for %s: %s", strings.Join(e.Networks, ", "), e.Errors.Error())
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *AggregateError) Unwrap() error {
	return e.Errors
}

func inlineFormat(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}
