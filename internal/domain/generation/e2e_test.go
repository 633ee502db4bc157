package generation_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"jan-server/services/flow-api/internal/config"
	"jan-server/services/flow-api/internal/domain/credentials"
	"jan-server/services/flow-api/internal/domain/flow"
	"jan-server/services/flow-api/internal/domain/generation"
	"jan-server/services/flow-api/internal/domain/retry"
	"jan-server/services/flow-api/internal/infrastructure/cache"
	"jan-server/services/flow-api/internal/infrastructure/flowclient"
	"jan-server/services/flow-api/internal/infrastructure/repository/job"
	"jan-server/services/flow-api/internal/infrastructure/uploadcache"
)

func TestGenerateVideoAgainstUpstream(t *testing.T) {
	var uploads, downloads atomic.Int32
	var generateBody atomic.Value

	mux := http.NewServeMux()
	mux.HandleFunc("/fx/api/auth/session", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"access_token":"at-1"}`)
	})
	mux.HandleFunc("/fx/api/trpc/project.searchUserProjects", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"result":{"data":{"json":{"result":{"projects":[{"projectId":"p-old","creationTime":"2024-01-01T00:00:00Z"},{"projectId":"p-new","creationTime":"2025-01-01T00:00:00Z"}]}}}}}`)
	})
	mux.HandleFunc("/images/cat.png", func(w http.ResponseWriter, r *http.Request) {
		downloads.Add(1)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A})
	})
	mux.HandleFunc("/v1:uploadUserImage", func(w http.ResponseWriter, r *http.Request) {
		uploads.Add(1)
		_, _ = io.WriteString(w, `{"mediaGenerationId":{"mediaGenerationId":"uploaded-1"}}`)
	})
	mux.HandleFunc("/v1/video:batchAsyncGenerateVideoStartImage", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		generateBody.Store(string(body))
		_, _ = io.WriteString(w, `{"operations":[{"operation":{"name":"op-e2e"},"sceneId":"scene-e2e","status":"MEDIA_GENERATION_STATUS_PENDING"}],"remainingCredits":99}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := flowclient.NewClient(flowclient.Config{
		LabsBaseURL:    srv.URL,
		SandboxBaseURL: srv.URL,
		Timeout:        5 * time.Second,
		RetryPolicy:    retry.UpstreamPolicy(time.Millisecond, 3),
	}, cache.NewProjectLocker(nil, time.Second), zerolog.Nop())

	resolver := credentials.NewResolver(credentials.StaticSource{
		Values: map[credentials.Kind]string{credentials.KindSession: "session-cookie"},
		Label:  "test",
	})
	jobs, err := job.NewMemoryRepository(10)
	require.NoError(t, err)
	store := uploadcache.NewFileStore(filepath.Join(t.TempDir(), "image_upload_cache.json"), zerolog.Nop())

	svc := generation.NewService(&config.Config{MaxImageBytes: 1 << 20}, resolver, client, store, jobs, nil, zerolog.Nop())

	in := generation.VideoInput{
		Prompt:      "a cat",
		Images:      []generation.Image{{URL: srv.URL + "/images/cat.png", Role: flow.RoleFirstFrame}},
		AspectRatio: flow.VideoAspectLandscape,
	}
	res, err := svc.GenerateVideo(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "op-e2e", res.ID)
	assert.Equal(t, "media generation status pending", res.Status)
	assert.Equal(t, "p-new", res.ProjectID)
	assert.Equal(t, 99, res.RemainingCredits)

	body := generateBody.Load().(string)
	assert.Equal(t, "veo_3_1_i2v_s_fast_ultra", gjson.Get(body, "requests.0.videoModelKey").String())
	assert.Equal(t, "uploaded-1", gjson.Get(body, "requests.0.startImage.mediaId").String())
	assert.Equal(t, "p-new", gjson.Get(body, "clientContext.projectId").String())
	seed := gjson.Get(body, "requests.0.seed").Int()
	assert.True(t, seed >= 1 && seed <= 99999, "seed %d out of range", seed)

	_, err = svc.GenerateVideo(context.Background(), in)
	require.NoError(t, err)
	assert.EqualValues(t, 1, uploads.Load())
	assert.EqualValues(t, 1, downloads.Load())

	recent, err := svc.ListJobs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "scene-e2e", recent[0].SceneID)
}
