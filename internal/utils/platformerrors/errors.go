// Package platformerrors carries typed errors from the repository and domain
// layers up to the HTTP layer, tagged with the request that produced them.
package platformerrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

type requestIDKey struct{}

// WithRequestID stores the request id so errors created further down can carry it.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext extracts the request id set by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if requestID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return requestID
	}
	return ""
}

// ErrorType is the category an HTTP status is derived from.
type ErrorType string

const (
	ErrorTypeNotFound        ErrorType = "NOT_FOUND"
	ErrorTypeValidation      ErrorType = "VALIDATION"
	ErrorTypeConflict        ErrorType = "CONFLICT"
	ErrorTypeUnauthorized    ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden       ErrorType = "FORBIDDEN"
	ErrorTypeTooManyRequests ErrorType = "TOO_MANY_REQUESTS"
	ErrorTypeInternal        ErrorType = "INTERNAL"
	ErrorTypeExternal        ErrorType = "EXTERNAL"
	ErrorTypeDatabaseError   ErrorType = "DATABASE_ERROR"
)

// Layer is where the error was raised.
type Layer string

const (
	LayerRepository Layer = "repository"
	LayerDomain     Layer = "domain"
	LayerRoute      Layer = "route"
)

// PlatformError is a typed error. UUID is a fixed id per call site so a log
// line can be traced back to the code that raised it.
type PlatformError struct {
	UUID      string
	Type      ErrorType
	Message   string
	Err       error
	Fields    map[string]any
	RequestID string
	Layer     Layer
	Timestamp time.Time
}

func (e *PlatformError) Error() string {
	prefix := fmt.Sprintf("[%s][%s]", e.Layer, e.Type)
	if e.UUID != "" {
		prefix += "[" + e.UUID + "]"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", prefix, e.Message, e.Err)
	}
	return prefix + " " + e.Message
}

func (e *PlatformError) Unwrap() error {
	return e.Err
}

// With returns e with an extra structured field for logging.
func (e *PlatformError) With(key string, value any) *PlatformError {
	if e.Fields == nil {
		e.Fields = make(map[string]any, 1)
	}
	e.Fields[key] = value
	return e
}

// NewError creates a PlatformError stamped with the request id from ctx.
func NewError(ctx context.Context, layer Layer, errorType ErrorType, message string, err error, errorUUID string) *PlatformError {
	return &PlatformError{
		UUID:      errorUUID,
		Type:      errorType,
		Message:   message,
		Err:       err,
		RequestID: RequestIDFromContext(ctx),
		Layer:     layer,
		Timestamp: time.Now().UTC(),
	}
}

// ErrorTypeToHTTPStatus maps error types to HTTP status codes
func ErrorTypeToHTTPStatus(errorType ErrorType) int {
	switch errorType {
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case ErrorTypeForbidden:
		return http.StatusForbidden
	case ErrorTypeTooManyRequests:
		return http.StatusTooManyRequests
	case ErrorTypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsErrorType checks if an error is a PlatformError with the specified type
func IsErrorType(err error, errorType ErrorType) bool {
	var platformErr *PlatformError
	if errors.As(err, &platformErr) {
		return platformErr.Type == errorType
	}
	return false
}

// Log writes err at level. A PlatformError anywhere in the chain contributes
// its type, layer, uuid, request id and fields.
func Log(logger zerolog.Logger, level zerolog.Level, err error, msg string) {
	if err == nil {
		return
	}
	event := logger.WithLevel(level).Err(err)

	var platformErr *PlatformError
	if errors.As(err, &platformErr) {
		event = event.
			Str("error_uuid", platformErr.UUID).
			Str("error_type", string(platformErr.Type)).
			Str("layer", string(platformErr.Layer))
		if platformErr.RequestID != "" {
			event = event.Str("request_id", platformErr.RequestID)
		}
		for k, v := range platformErr.Fields {
			event = event.Interface(k, v)
		}
	}
	event.Msg(msg)
}
