package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"jan-server/services/flow-api/internal/domain/flow"
	"jan-server/services/flow-api/internal/utils/platformerrors"
	"jan-server/services/flow-api/internal/utils/redact"
)

// Fallback codes for errors that carry no code of their own.
const (
	CodeGenerationError = "GENERATION_ERROR"
	CodeStatusError     = "STATUS_ERROR"
	CodeCreditsError    = "CREDITS_ERROR"
	CodeJobsError       = "JOBS_ERROR"
	CodeInvalidRequest  = "INVALID_REQUEST"
)

// ErrorBody is the inner object of the error envelope.
type ErrorBody struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse is the {"error":{...}} envelope every failure is rendered with.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type errorMapping struct {
	status  int
	errType string
	code    string
}

var flowErrors = map[flow.Kind]errorMapping{
	flow.KindMissingCredential:      {http.StatusBadRequest, "configuration_error", "NO_SESSION_TOKEN"},
	flow.KindUnsupportedCombination: {http.StatusBadRequest, "invalid_request_error", "UNSUPPORTED_COMBINATION"},
	flow.KindNotFound:               {http.StatusNotFound, "not_found", "GENERATION_NOT_FOUND"},
	flow.KindRateLimited:            {http.StatusTooManyRequests, "rate_limit_error", "RATE_LIMIT_ERROR"},
	flow.KindUploadFailed:           {http.StatusBadGateway, "api_error", "UPLOAD_ERROR"},
	flow.KindMissingToken:           {http.StatusBadGateway, "api_error", "NO_ACCESS_TOKEN"},
	flow.KindHTTP:                   {http.StatusBadGateway, "api_error", "HTTP_ERROR"},
	flow.KindNetwork:                {http.StatusBadGateway, "api_error", "NETWORK_ERROR"},
}

var platformErrors = map[platformerrors.ErrorType]errorMapping{
	platformerrors.ErrorTypeValidation:      {http.StatusBadRequest, "invalid_request_error", CodeInvalidRequest},
	platformerrors.ErrorTypeNotFound:        {http.StatusNotFound, "not_found", "NOT_FOUND"},
	platformerrors.ErrorTypeUnauthorized:    {http.StatusUnauthorized, "authentication_error", "UNAUTHORIZED"},
	platformerrors.ErrorTypeForbidden:       {http.StatusForbidden, "permission_error", "FORBIDDEN"},
	platformerrors.ErrorTypeConflict:        {http.StatusConflict, "conflict_error", "CONFLICT"},
	platformerrors.ErrorTypeTooManyRequests: {http.StatusTooManyRequests, "rate_limit_error", "RATE_LIMIT_ERROR"},
	platformerrors.ErrorTypeExternal:        {http.StatusBadGateway, "api_error", ""},
}

// Classify maps err onto an HTTP status and an error body. Platform errors are
// checked first: they may wrap a flow error that only explains the cause.
// Messages never carry signed URL queries or bearer tokens.
func Classify(err error, fallbackCode string) (int, ErrorBody) {
	var platformErr *platformerrors.PlatformError
	if errors.As(err, &platformErr) {
		m, ok := platformErrors[platformErr.Type]
		if !ok {
			m = errorMapping{status: platformerrors.ErrorTypeToHTTPStatus(platformErr.Type), errType: "internal_error"}
		}
		if m.code == "" {
			m.code = fallbackCode
		}
		return m.status, ErrorBody{
			Message:   redact.Message(platformErr.Message),
			Type:      m.errType,
			Code:      m.code,
			RequestID: platformErr.RequestID,
		}
	}

	var flowErr *flow.Error
	if errors.As(err, &flowErr) {
		if m, ok := flowErrors[flowErr.Kind]; ok {
			return m.status, ErrorBody{Message: redact.Message(flowErr.Error()), Type: m.errType, Code: m.code}
		}
	}

	return http.StatusInternalServerError, ErrorBody{
		Message: redact.Message(err.Error()),
		Type:    "internal_error",
		Code:    fallbackCode,
	}
}

// HandleError renders err with the error envelope and aborts the request.
func HandleError(reqCtx *gin.Context, err error, fallbackCode string) {
	status, body := Classify(err, fallbackCode)
	if body.RequestID == "" {
		body.RequestID = platformerrors.RequestIDFromContext(reqCtx.Request.Context())
	}
	_ = reqCtx.Error(err)
	reqCtx.AbortWithStatusJSON(status, ErrorResponse{Error: body})
}

// HandleNewError creates a typed error at the route layer and renders it.
func HandleNewError(reqCtx *gin.Context, errorType platformerrors.ErrorType, message string, uuid string) {
	err := platformerrors.NewError(reqCtx.Request.Context(), platformerrors.LayerRoute, errorType, message, nil, uuid)
	HandleError(reqCtx, err, CodeInvalidRequest)
}
