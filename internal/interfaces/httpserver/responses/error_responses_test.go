package responses

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"jan-server/services/flow-api/internal/domain/flow"
	"jan-server/services/flow-api/internal/utils/platformerrors"
)

func TestClassify(t *testing.T) {
	ctx := platformerrors.WithRequestID(context.Background(), "req-1")

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantCode   string
	}{
		{"missing credential", flow.NewError(flow.KindMissingCredential, "", "no session"), http.StatusBadRequest, "configuration_error", "NO_SESSION_TOKEN"},
		{"rate limited", flow.NewError(flow.KindRateLimited, "generate_video_text", "busy"), http.StatusTooManyRequests, "rate_limit_error", "RATE_LIMIT_ERROR"},
		{"upstream http", flow.HTTPError("get_credits", http.StatusForbidden), http.StatusBadGateway, "api_error", "HTTP_ERROR"},
		{"validation", platformerrors.NewError(ctx, platformerrors.LayerRoute, platformerrors.ErrorTypeValidation, "bad", nil, "u1"), http.StatusBadRequest, "invalid_request_error", CodeInvalidRequest},
		{"external uses fallback", platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, "upstream", nil, "u2"), http.StatusBadGateway, "api_error", CodeStatusError},
		{"internal wrapping flow error", platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal, "no operations", flow.HTTPError("x", 500), "u3"), http.StatusInternalServerError, "internal_error", CodeStatusError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "internal_error", CodeStatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := Classify(tt.err, CodeStatusError)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantType, body.Type)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestClassify_RequestIDFromPlatformError(t *testing.T) {
	ctx := platformerrors.WithRequestID(context.Background(), "req-42")
	err := platformerrors.NewError(ctx, platformerrors.LayerRoute, platformerrors.ErrorTypeNotFound, "missing", nil, "u")

	_, body := Classify(err, CodeJobsError)
	assert.Equal(t, "req-42", body.RequestID)
}

func TestClassify_StripsSignedURLs(t *testing.T) {
	err := flow.NewError(flow.KindNetwork, "download_image", "transport failure").
		WithCause(errors.New(`Get "https://cdn.example.com/a.png?sig=secret": timeout`))

	status, body := Classify(err, CodeGenerationError)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "NETWORK_ERROR", body.Code)
	assert.Contains(t, body.Message, "https://cdn.example.com/a.png")
	assert.NotContains(t, body.Message, "sig=secret")
}
