package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/flow-api/internal/config"
	"jan-server/services/flow-api/internal/domain/flow"
	"jan-server/services/flow-api/internal/domain/generation"
	"jan-server/services/flow-api/internal/infrastructure/auth"
	"jan-server/services/flow-api/internal/interfaces/httpserver/handlers"
	"jan-server/services/flow-api/internal/interfaces/httpserver/responses"
	v1 "jan-server/services/flow-api/internal/interfaces/httpserver/routes/v1"
	"jan-server/services/flow-api/internal/utils/platformerrors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockGenerationService is a mock implementation of handlers.GenerationService.
type MockGenerationService struct {
	GenerateVideoFunc  func(ctx context.Context, in generation.VideoInput) (*generation.GenerationResult, error)
	GetVideoStatusFunc func(ctx context.Context, operationName, sceneID string) (*generation.GenerationResult, error)
	GenerateImageFunc  func(ctx context.Context, in generation.ImageInput) (*generation.ImageResult, error)
	GetCreditsFunc     func(ctx context.Context) (flow.Credits, error)
	ListJobsFunc       func(ctx context.Context, limit int) ([]generation.Job, error)
}

func (m *MockGenerationService) GenerateVideo(ctx context.Context, in generation.VideoInput) (*generation.GenerationResult, error) {
	if m.GenerateVideoFunc != nil {
		return m.GenerateVideoFunc(ctx, in)
	}
	return nil, errors.New("not implemented")
}

func (m *MockGenerationService) GetVideoStatus(ctx context.Context, operationName, sceneID string) (*generation.GenerationResult, error) {
	if m.GetVideoStatusFunc != nil {
		return m.GetVideoStatusFunc(ctx, operationName, sceneID)
	}
	return nil, errors.New("not implemented")
}

func (m *MockGenerationService) GenerateImage(ctx context.Context, in generation.ImageInput) (*generation.ImageResult, error) {
	if m.GenerateImageFunc != nil {
		return m.GenerateImageFunc(ctx, in)
	}
	return nil, errors.New("not implemented")
}

func (m *MockGenerationService) GetCredits(ctx context.Context) (flow.Credits, error) {
	if m.GetCreditsFunc != nil {
		return m.GetCreditsFunc(ctx)
	}
	return flow.Credits{}, errors.New("not implemented")
}

func (m *MockGenerationService) ListJobs(ctx context.Context, limit int) ([]generation.Job, error) {
	if m.ListJobsFunc != nil {
		return m.ListJobsFunc(ctx, limit)
	}
	return nil, nil
}

type testEnv struct {
	router   *gin.Engine
	settings *config.SettingsStore
}

func setupRouter(t *testing.T, svc *MockGenerationService, apiKeys ...string) *testEnv {
	t.Helper()
	settings, err := config.NewSettingsStore(filepath.Join(t.TempDir(), "setting.toml"))
	require.NoError(t, err)

	adminAuth, err := auth.NewAdminAuth(&config.Config{AdminJWTSecret: "test-secret"}, func() (string, string) {
		global := settings.Global()
		return global.AdminUsername, global.AdminPassword
	}, nil, zerolog.Nop())
	require.NoError(t, err)

	provider := handlers.NewProvider(svc, adminAuth, settings, zerolog.Nop())
	router := gin.New()
	v1.NewRoutes(provider, auth.APIKeyMiddleware(apiKeys), adminAuth.Middleware()).Register(router.Group("/"))
	return &testEnv{router: router, settings: settings}
}

func (e *testEnv) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) responses.ErrorBody {
	t.Helper()
	var resp responses.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestGenerateVideoSuccess(t *testing.T) {
	var got generation.VideoInput
	svc := &MockGenerationService{
		GenerateVideoFunc: func(ctx context.Context, in generation.VideoInput) (*generation.GenerationResult, error) {
			assert.Nil(t, ctx.Done(), "handler context must not be cancellable")
			got = in
			return &generation.GenerationResult{
				ID:               "operations/abc",
				JobID:            "job_01",
				Status:           "media generation status pending",
				Prompt:           in.Prompt,
				SceneID:          "scene-1",
				ProjectID:        "p1",
				ModelKey:         "veo_3_1_i2v_s_fast_portrait_ultra",
				RemainingCredits: 80,
				Created:          time.Unix(1700000000, 0),
			}, nil
		},
	}
	env := setupRouter(t, svc)

	w := env.do(http.MethodPost, "/v1/video/generations", map[string]any{
		"prompt":       "a cat",
		"aspect_ratio": "portrait",
		"images": []map[string]any{
			{"type": "image_url", "image_url": map[string]string{"url": "https://x/a.png"}, "role": "first_frame"},
		},
	}, "")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, flow.VideoAspectPortrait, got.AspectRatio)
	assert.Equal(t, flow.TierFast, got.Model)
	require.Len(t, got.Images, 1)
	assert.Equal(t, flow.RoleFirstFrame, got.Images[0].Role)

	var resp responses.VideoGenerationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "operations/abc", resp.ID)
	assert.Equal(t, responses.ObjectVideoGeneration, resp.Object)
	assert.Equal(t, int64(1700000000), resp.Created)
	assert.Equal(t, "scene-1", resp.SceneID)
	assert.Equal(t, "job_01", resp.JobID)
	assert.Equal(t, 80, resp.RemainingCredits)
}

func TestGenerateVideoRejectsBadRequests(t *testing.T) {
	called := false
	svc := &MockGenerationService{
		GenerateVideoFunc: func(ctx context.Context, in generation.VideoInput) (*generation.GenerationResult, error) {
			called = true
			return &generation.GenerationResult{}, nil
		},
	}
	env := setupRouter(t, svc)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing prompt", map[string]any{"aspect_ratio": "landscape"}},
		{"unknown role", map[string]any{"prompt": "p", "images": []map[string]any{
			{"image_url": map[string]string{"url": "https://x/a.png"}, "role": "middle"},
		}}},
		{"unknown model", map[string]any{"prompt": "p", "model": "veo-2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/v1/video/generations", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, "invalid_request_error", body.Type)
			assert.Equal(t, responses.CodeInvalidRequest, body.Code)
		})
	}
	assert.False(t, called)
}

func TestGenerateVideoErrorEnvelope(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantCode   string
	}{
		{"missing credential", flow.NewError(flow.KindMissingCredential, "resolve", "no session"), http.StatusBadRequest, "configuration_error", "NO_SESSION_TOKEN"},
		{"unsupported", flow.NewError(flow.KindUnsupportedCombination, "select", "no"), http.StatusBadRequest, "invalid_request_error", "UNSUPPORTED_COMBINATION"},
		{"rate limited", flow.NewError(flow.KindRateLimited, "gen", "busy").WithStatus(429), http.StatusTooManyRequests, "rate_limit_error", "RATE_LIMIT_ERROR"},
		{"upload failed", flow.NewError(flow.KindUploadFailed, "upload", "rejected"), http.StatusBadGateway, "api_error", "UPLOAD_ERROR"},
		{"missing token", flow.NewError(flow.KindMissingToken, "token", "none"), http.StatusBadGateway, "api_error", "NO_ACCESS_TOKEN"},
		{"http", flow.HTTPError("gen", 500), http.StatusBadGateway, "api_error", "HTTP_ERROR"},
		{"network", flow.NewError(flow.KindNetwork, "gen", "reset"), http.StatusBadGateway, "api_error", "NETWORK_ERROR"},
		{"empty operations", platformerrors.NewError(context.Background(), platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
			"no operations", flow.HTTPError("gen", 200), "uuid"), http.StatusInternalServerError, "internal_error", responses.CodeGenerationError},
		{"oversize image", platformerrors.NewError(context.Background(), platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"too big", nil, "uuid"), http.StatusBadRequest, "invalid_request_error", responses.CodeInvalidRequest},
		{"plain", errors.New("boom"), http.StatusInternalServerError, "internal_error", responses.CodeGenerationError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupRouter(t, &MockGenerationService{
				GenerateVideoFunc: func(ctx context.Context, in generation.VideoInput) (*generation.GenerationResult, error) {
					return nil, tt.err
				},
			})

			w := env.do(http.MethodPost, "/v1/video/generations", map[string]any{"prompt": "p"}, "")
			assert.Equal(t, tt.wantStatus, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, tt.wantType, body.Type)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestVideoStatus(t *testing.T) {
	svc := &MockGenerationService{
		GetVideoStatusFunc: func(ctx context.Context, operationName, sceneID string) (*generation.GenerationResult, error) {
			assert.Equal(t, "op-1", operationName)
			assert.Equal(t, "scene-9", sceneID)
			return &generation.GenerationResult{
				ID:        operationName,
				Status:    "media generation status successful",
				SceneID:   sceneID,
				MediaURLs: []string{"https://cdn/x.mp4", "https://fife/x"},
				Video:     &flow.VideoMetadata{FifeURL: "https://fife/x", Seed: 42},
			}, nil
		},
	}
	env := setupRouter(t, svc)

	w := env.do(http.MethodGet, "/v1/video/generations/op-1?scene_id=scene-9", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp responses.VideoGenerationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"https://cdn/x.mp4", "https://fife/x"}, resp.MediaURLs)
	require.NotNil(t, resp.Video)
	assert.Equal(t, 42, resp.Video.Seed)
	assert.Zero(t, resp.Created)
}

func TestVideoStatusNotFound(t *testing.T) {
	env := setupRouter(t, &MockGenerationService{
		GetVideoStatusFunc: func(ctx context.Context, operationName, sceneID string) (*generation.GenerationResult, error) {
			return nil, flow.NewError(flow.KindNotFound, "check_video_status", "generation not found")
		},
	})

	w := env.do(http.MethodGet, "/v1/video/generations/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "GENERATION_NOT_FOUND", decodeError(t, w).Code)
}

func TestListJobs(t *testing.T) {
	var gotLimit int
	env := setupRouter(t, &MockGenerationService{
		ListJobsFunc: func(ctx context.Context, limit int) ([]generation.Job, error) {
			gotLimit = limit
			return []generation.Job{{
				ID:            "job_2",
				Kind:          generation.JobKindVideo,
				OperationName: "op-2",
				Status:        flow.StatusPending,
				CreatedAt:     time.Unix(10, 0),
				UpdatedAt:     time.Unix(20, 0),
			}}, nil
		},
	})

	w := env.do(http.MethodGet, "/v1/video/generations?limit=5", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, gotLimit)

	var resp responses.JobListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, responses.ObjectList, resp.Object)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "media generation status pending", resp.Data[0].Status)
	assert.Equal(t, int64(20), resp.Data[0].UpdatedAt)

	w = env.do(http.MethodGet, "/v1/video/generations?limit=abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCredits(t *testing.T) {
	env := setupRouter(t, &MockGenerationService{
		GetCreditsFunc: func(ctx context.Context) (flow.Credits, error) {
			return flow.Credits{Credits: 120, UserPaygateTier: "PAYGATE_TIER_TWO"}, nil
		},
	})

	w := env.do(http.MethodGet, "/v1/video/credits", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"credits":120,"user_paygate_tier":"PAYGATE_TIER_TWO"}`, w.Body.String())
}

func TestCreditsErrorUsesCreditsCode(t *testing.T) {
	env := setupRouter(t, &MockGenerationService{
		GetCreditsFunc: func(ctx context.Context) (flow.Credits, error) {
			return flow.Credits{}, errors.New("decode failure")
		},
	})

	w := env.do(http.MethodGet, "/v1/video/credits", nil, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, responses.CodeCreditsError, decodeError(t, w).Code)
}

func TestGenerateImage(t *testing.T) {
	var got generation.ImageInput
	env := setupRouter(t, &MockGenerationService{
		GenerateImageFunc: func(ctx context.Context, in generation.ImageInput) (*generation.ImageResult, error) {
			got = in
			return &generation.ImageResult{
				ID:                "media-1",
				Prompt:            in.Prompt,
				ProjectID:         "p1",
				MediaGenerationID: "media-1",
				B64JSON:           "aGVsbG8=",
				Seed:              11,
				Created:           time.Unix(1700000000, 0),
			}, nil
		},
	})

	w := env.do(http.MethodPost, "/v1/images/generations", map[string]any{"prompt": "a dog"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, flow.ImageAspectLandscape, got.AspectRatio)
	assert.Empty(t, got.ImageURL)

	var resp responses.ImageGenerationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, responses.ObjectImageGeneration, resp.Object)
	assert.Equal(t, "aGVsbG8=", resp.B64JSON)
	assert.Equal(t, 11, resp.Seed)
}

func TestPublicRoutesRequireAPIKey(t *testing.T) {
	env := setupRouter(t, &MockGenerationService{
		GetCreditsFunc: func(ctx context.Context) (flow.Credits, error) {
			return flow.Credits{Credits: 1}, nil
		},
	}, "sk-test")

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/v1/video/credits", nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/v1/video/credits", nil, "sk-wrong").Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/v1/video/credits", nil, "sk-test").Code)
}

func login(t *testing.T, env *testEnv) string {
	t.Helper()
	w := env.do(http.MethodPost, "/api/login", map[string]string{"username": "admin", "password": "admin"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp responses.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestAdminLogin(t *testing.T) {
	env := setupRouter(t, &MockGenerationService{})

	w := env.do(http.MethodPost, "/api/login", map[string]string{"username": "admin", "password": "nope"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp responses.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Empty(t, resp.Token)

	token := login(t, env)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/settings", nil, token).Code)
}

func TestAdminSettings(t *testing.T) {
	env := setupRouter(t, &MockGenerationService{})
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/settings", nil, "").Code)

	token := login(t, env)

	w := env.do(http.MethodPost, "/api/settings", map[string]any{
		"flow_config": map[string]any{"session_token": "session-secret-1234"},
	}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "session-secret-1234", env.settings.Flow().SessionToken)

	w = env.do(http.MethodGet, "/api/settings", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var resp responses.SettingsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "********1234", resp.Data.Flow.SessionToken)
	assert.NotEqual(t, "admin", resp.Data.Global.AdminPassword)
	assert.Equal(t, "admin", resp.Data.Global.AdminUsername)

	w = env.do(http.MethodPost, "/api/settings", map[string]any{
		"global_config": map[string]any{"no_such_key": "x"},
	}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminLogoutRevokesToken(t *testing.T) {
	env := setupRouter(t, &MockGenerationService{})
	token := login(t, env)

	w := env.do(http.MethodPost, "/api/logout", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"message":"logged out"}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/settings", nil, token).Code)
}

func TestAdminCreditsNeverFails(t *testing.T) {
	env := setupRouter(t, &MockGenerationService{
		GetCreditsFunc: func(ctx context.Context) (flow.Credits, error) {
			return flow.Credits{}, flow.NewError(flow.KindMissingCredential, "resolve", "session token is not configured")
		},
	})
	token := login(t, env)

	w := env.do(http.MethodGet, "/api/credits", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var resp responses.AdminCreditsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "session token")
	assert.Zero(t, resp.Credits)
}
