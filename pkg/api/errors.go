package api

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a gateway error. The kind decides the HTTP status
// returned to the client, the log severity, and whether a retry can help.
type ErrorKind string

const (
	// ErrorKindInvalidRequest covers malformed client input. Never
	// forwarded upstream.
	ErrorKindInvalidRequest ErrorKind = "invalid_request"

	// ErrorKindUnavailable covers deployment problems: a mapping that
	// points at a disabled provider, or a provider with unusable
	// credentials configured. Operator action required.
	ErrorKindUnavailable ErrorKind = "provider_unavailable"

	// ErrorKindTransient covers upstream timeouts, rate limits and 5xx
	// replies. Retried with backoff for non-streaming calls.
	ErrorKindTransient ErrorKind = "upstream_transient"

	// ErrorKindAuth covers rejected upstream credentials. Retrying
	// cannot change the outcome.
	ErrorKindAuth ErrorKind = "upstream_auth"

	// ErrorKindInternal covers everything the gateway did wrong itself.
	ErrorKindInternal ErrorKind = "internal"
)

// GatewayError is the error type flowing between the provider adapters
// and the transport layer.
type GatewayError struct {
	Kind    ErrorKind
	Param   string
	Message string

	// RetryAfter is an upstream-suggested delay before retrying, parsed
	// from a Retry-After header or a structured 429 body. Zero when the
	// upstream gave no hint.
	RetryAfter time.Duration
}

func (e *GatewayError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Kind, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewInvalidRequestError creates a GatewayError for malformed client input.
func NewInvalidRequestError(param, message string) *GatewayError {
	return &GatewayError{Kind: ErrorKindInvalidRequest, Param: param, Message: message}
}

// NewUnavailableError creates a GatewayError for a misconfigured or
// disabled provider.
func NewUnavailableError(message string) *GatewayError {
	return &GatewayError{Kind: ErrorKindUnavailable, Message: message}
}

// NewTransientError creates a GatewayError for a retryable upstream failure.
func NewTransientError(message string) *GatewayError {
	return &GatewayError{Kind: ErrorKindTransient, Message: message}
}

// NewAuthError creates a GatewayError for rejected upstream credentials.
func NewAuthError(message string) *GatewayError {
	return &GatewayError{Kind: ErrorKindAuth, Message: message}
}

// NewInternalError creates a GatewayError for a gateway-side failure.
func NewInternalError(message string) *GatewayError {
	return &GatewayError{Kind: ErrorKindInternal, Message: message}
}

// AsGatewayError extracts a *GatewayError from err, wrapping foreign
// errors as internal ones so the transport layer always has a kind to
// dispatch on.
func AsGatewayError(err error) *GatewayError {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge
	}
	return NewInternalError(err.Error())
}

// IsTransient reports whether err is a retryable upstream failure.
func IsTransient(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge) && ge.Kind == ErrorKindTransient
}

// IsAuth reports whether err is an upstream credential failure.
func IsAuth(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge) && ge.Kind == ErrorKindAuth
}
