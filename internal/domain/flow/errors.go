// Package flow holds the upstream-facing domain types shared by the provider
// client and the generation orchestrator: the error taxonomy, the wire
// constants and the normalized upstream results.
package flow

import (
	"errors"
	"fmt"
)

// Kind classifies a provider failure.
type Kind string

const (
	KindNetwork                Kind = "network"
	KindHTTP                   Kind = "http"
	KindRateLimited            Kind = "rate_limited"
	KindMissingCredential      Kind = "missing_credential"
	KindUnsupportedCombination Kind = "unsupported_combination"
	KindUploadFailed           Kind = "upload_failed"
	KindNotFound               Kind = "not_found"
	KindMissingToken           Kind = "missing_token"
)

// Sentinels for errors.Is matching on kind.
var (
	ErrNetwork                = &Error{Kind: KindNetwork}
	ErrHTTP                   = &Error{Kind: KindHTTP}
	ErrRateLimited            = &Error{Kind: KindRateLimited}
	ErrMissingCredential      = &Error{Kind: KindMissingCredential}
	ErrUnsupportedCombination = &Error{Kind: KindUnsupportedCombination}
	ErrUploadFailed           = &Error{Kind: KindUploadFailed}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrMissingToken           = &Error{Kind: KindMissingToken}
)

// Error is a classified provider failure.
type Error struct {
	Kind      Kind
	Status    int    // upstream HTTP status, when there was one
	Operation string // upstream operation name, e.g. "generate_video_text"
	Message   string
	Cause     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Operation != "" {
		msg = e.Operation + ": " + msg
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Retryable reports whether the retry policy may repeat the call.
func (e *Error) Retryable() bool {
	return e.Kind == KindNetwork || e.Kind == KindRateLimited
}

// NewError creates a classified error.
func NewError(kind Kind, operation, message string) *Error {
	return &Error{Kind: kind, Operation: operation, Message: message}
}

// WithCause attaches an underlying cause.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithStatus records the upstream HTTP status.
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

// HTTPError builds the Http{status} variant.
func HTTPError(operation string, status int) *Error {
	return &Error{Kind: KindHTTP, Operation: operation, Status: status, Message: "unexpected upstream status"}
}

// KindOf returns the kind of a flow error, or "" for anything else.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// IsRetryable reports whether err is a retryable flow error.
func IsRetryable(err error) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Retryable()
	}
	return false
}
