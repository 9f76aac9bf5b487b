package toolkit

import (
	"errors"
	"fmt"
)

// Kind classifies every failure a capability provider or the dispatch
// layer can produce. Normalization in Dispatch is total over this set.
type Kind string

const (
	// KindUnsupported marks an unknown operation or tool type. Usage
	// error, never retried.
	KindUnsupported Kind = "unsupported"

	// KindMissingCredential marks a tool that cannot be constructed
	// because its required secret is absent. Fatal for that tool only.
	KindMissingCredential Kind = "missing_credential"

	// KindProviderFailure marks a network, API or system-call failure.
	// Eligible for caller-side retry.
	KindProviderFailure Kind = "provider_failure"

	// KindMalformedResponse marks provider data the handler cannot
	// interpret. Not retried automatically.
	KindMalformedResponse Kind = "malformed_response"
)

// ErrMissingCredential is the sentinel wrapped by every
// construction-time credential failure, so callers can test with
// errors.Is regardless of which tool produced it.
var ErrMissingCredential = errors.New("missing credential")

// ToolError carries a taxonomy kind alongside the message.
type ToolError struct {
	Kind    Kind
	Message string
	wrapped error
}

func (e *ToolError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *ToolError) Unwrap() error { return e.wrapped }

// ProviderFailuref builds a provider-failure error.
func ProviderFailuref(format string, args ...any) error {
	return &ToolError{Kind: KindProviderFailure, Message: fmt.Sprintf(format, args...)}
}

// Malformedf builds a malformed-response error.
func Malformedf(format string, args ...any) error {
	return &ToolError{Kind: KindMalformedResponse, Message: fmt.Sprintf(format, args...)}
}

// MissingCredentialf builds a construction-time credential error
// wrapping ErrMissingCredential.
func MissingCredentialf(format string, args ...any) error {
	return &ToolError{
		Kind:    KindMissingCredential,
		Message: fmt.Sprintf(format, args...),
		wrapped: ErrMissingCredential,
	}
}

// KindOf reports the taxonomy kind of err. Errors without an explicit
// kind are treated as provider failures, so normalization stays total.
func KindOf(err error) Kind {
	var te *ToolError
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindProviderFailure
}
