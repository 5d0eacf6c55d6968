package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// TransportCause identifies why a transport attempt failed.
type TransportCause string

const (
	CauseTimeout    TransportCause = "timeout"
	CauseConnection TransportCause = "connection"
)

// CauseHTTPStatus builds the cause tag for a terminal HTTP status.
func CauseHTTPStatus(code int) TransportCause {
	return TransportCause(fmt.Sprintf("http_status:%d", code))
}

// TransportError is raised by the transport client after its internal retry
// budget is exhausted, or immediately for non-retryable statuses.
type TransportError struct {
	Cause  TransportCause
	Status int // HTTP status for http_status causes, zero otherwise
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport: %s: %v", e.Cause, e.Err)
	}
	return fmt.Sprintf("transport: %s", e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NewTimeoutError creates a transport error for a timed-out request cycle.
func NewTimeoutError(err error) *TransportError {
	return &TransportError{Cause: CauseTimeout, Err: err}
}

// NewConnectionError creates a transport error for a connection-level failure.
func NewConnectionError(err error) *TransportError {
	return &TransportError{Cause: CauseConnection, Err: err}
}

// NewHTTPStatusError creates a transport error for a terminal HTTP status.
func NewHTTPStatusError(code int) *TransportError {
	return &TransportError{Cause: CauseHTTPStatus(code), Status: code}
}

// ParseReason identifies why response normalization failed.
type ParseReason string

const (
	ReasonUnparsable  ParseReason = "unparsable"
	ReasonNotAnObject ParseReason = "not_an_object"
)

// ParseError is raised by the response normalizer when no recovery heuristic
// yields a JSON object. Snippet holds the head of the original response text.
type ParseError struct {
	Reason  ParseReason
	Snippet string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Snippet != "" {
		return fmt.Sprintf("parse: %s: %q", e.Reason, e.Snippet)
	}
	return fmt.Sprintf("parse: %s", e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NewParseError creates a parse error with a snippet of the offending text.
func NewParseError(reason ParseReason, snippet string, err error) *ParseError {
	return &ParseError{Reason: reason, Snippet: snippet, Err: err}
}

// ServiceKind identifies which pipeline stage a service error originated from.
type ServiceKind string

const (
	KindTransport         ServiceKind = "transport"
	KindMalformedResponse ServiceKind = "malformed_response"
)

// ServiceError is the only error type crossing the service boundary. The
// originating TransportError or ParseError is preserved as the cause.
type ServiceError struct {
	Kind ServiceKind
	Err  error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("extraction failed (%s)", e.Kind)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// NewServiceError wraps a stage failure into the boundary error type.
func NewServiceError(kind ServiceKind, err error) *ServiceError {
	return &ServiceError{Kind: kind, Err: err}
}

// IsKind checks whether err is a ServiceError of the given kind.
func IsKind(err error, kind ServiceKind) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Kind == kind
}

// StatusCode maps a boundary error onto the HTTP status the transport layer
// should respond with.
func StatusCode(err error) int {
	var se *ServiceError
	if !errors.As(err, &se) {
		return http.StatusInternalServerError
	}

	switch se.Kind {
	case KindTransport:
		var te *TransportError
		if errors.As(se.Err, &te) && te.Cause == CauseTimeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case KindMalformedResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
