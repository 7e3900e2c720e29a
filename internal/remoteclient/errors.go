package remoteclient

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// ErrorKind classifies every outbound call's failure mode so the Batch
// Executor and Orchestrator can react without inspecting transport
// details.
type ErrorKind string

const (
	Transient           ErrorKind = "TRANSIENT"
	PermanentConflict   ErrorKind = "PERMANENT_CONFLICT"
	PermanentNotFound   ErrorKind = "PERMANENT_NOT_FOUND"
	PermanentValidation ErrorKind = "PERMANENT_VALIDATION"
	PermanentAuth       ErrorKind = "PERMANENT_AUTH"
	PermanentOther      ErrorKind = "PERMANENT_OTHER"
)

// CallError wraps an underlying error with its classification and
// request context (method, endpoint, attempt count, HTTP status), without
// ever including the bearer token. Elapsed time is logged by the client,
// not stored here.
type CallError struct {
	Kind     ErrorKind
	Method   string
	Endpoint string
	Attempt  int
	Status   int
	Err      error
}

func (e *CallError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *CallError) Unwrap() error { return e.Err }

// Kind satisfies the taxonomy-lookup convenience used by callers that
// only have an error value in hand.
func Kind(err error) ErrorKind {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return PermanentOther
}

// classifyHTTPStatus maps a recipe-service HTTP status code to an
// ErrorKind.
func classifyHTTPStatus(status int) ErrorKind {
	switch status {
	case http.StatusRequestTimeout, 425, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return Transient
	case http.StatusConflict:
		return PermanentConflict
	case http.StatusNotFound:
		return PermanentNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return PermanentValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		return PermanentAuth
	default:
		if status >= 200 && status < 300 {
			return ""
		}
		return PermanentOther
	}
}

// classifyTransportErr maps a network-level error (no HTTP response at
// all) to an ErrorKind — always Transient (network error, I/O timeout).
func classifyTransportErr(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Transient
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Transient
	}
	return Transient
}

// Retryable reports whether an ErrorKind should be retried by the
// backoff policy — only TRANSIENT.
func (k ErrorKind) Retryable() bool {
	return k == Transient
}

// Fatal reports whether the session must halt on this error — only
// PERMANENT_AUTH.
func (k ErrorKind) Fatal() bool {
	return k == PermanentAuth
}
