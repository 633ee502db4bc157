// Package generation orchestrates a generation end to end: credentials,
// access token, project, media uploads, model key selection, the upstream
// call and the job log.
package generation

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"jan-server/services/flow-api/internal/config"
	"jan-server/services/flow-api/internal/domain/flow"
	"jan-server/services/flow-api/internal/domain/modelkey"
	"jan-server/services/flow-api/internal/infrastructure/metrics"
	"jan-server/services/flow-api/internal/infrastructure/observability"
	"jan-server/services/flow-api/internal/infrastructure/storage"
	"jan-server/services/flow-api/internal/utils/jobid"
	"jan-server/services/flow-api/internal/utils/platformerrors"
	"jan-server/services/flow-api/internal/utils/redact"
)

const (
	maxVideoSeed = 99999
	maxImageSeed = 999999
)

// CredentialResolver supplies the upstream credentials for a call.
type CredentialResolver interface {
	RequireSession(ctx context.Context) (flow.Credentials, error)
}

// Provider is the upstream surface the orchestrator drives.
type Provider interface {
	GetAccessToken(ctx context.Context, creds flow.Credentials) (string, error)
	GetCredits(ctx context.Context, accessToken string) (flow.Credits, error)
	GetOrCreateProject(ctx context.Context, creds flow.Credentials) (string, error)
	GenerateVideoText(ctx context.Context, accessToken string, req flow.VideoRequest) (flow.OperationsResult, error)
	GenerateVideoStartImage(ctx context.Context, accessToken string, req flow.VideoRequest) (flow.OperationsResult, error)
	GenerateVideoStartAndEndImage(ctx context.Context, accessToken string, req flow.VideoRequest) (flow.OperationsResult, error)
	GenerateVideoReferenceImages(ctx context.Context, accessToken string, req flow.VideoRequest) (flow.OperationsResult, error)
	CheckStatus(ctx context.Context, accessToken string, ops []flow.OperationRef) (flow.OperationsResult, error)
	UploadImage(ctx context.Context, accessToken, imageBase64, mimeType, aspectRatio string) (string, error)
	GenerateImage(ctx context.Context, accessToken string, req flow.ImageRequest) ([]flow.GeneratedImage, error)
	DownloadImage(ctx context.Context, url string) ([]byte, string, error)
	DownloadVideo(ctx context.Context, url string) ([]byte, string, error)
}

// UploadCache maps source URLs to upstream media ids.
type UploadCache interface {
	Get(ctx context.Context, url string) (string, bool)
	Set(ctx context.Context, url, mediaID string) error
}

// Service is the generation orchestrator. It never retries; retries live in
// the provider.
type Service struct {
	credentials   CredentialResolver
	provider      Provider
	cache         UploadCache
	jobs          JobRepository
	mirror        storage.Mirror
	maxImageBytes int64
	mirrorVideos  bool
	prompts       *redact.Sanitizer
	log           zerolog.Logger

	seed       func(upper int) int
	newSceneID func() string
	now        func() time.Time
}

func NewService(cfg *config.Config, credentials CredentialResolver, provider Provider, cache UploadCache, jobs JobRepository, mirror storage.Mirror, log zerolog.Logger) *Service {
	return &Service{
		credentials:   credentials,
		provider:      provider,
		cache:         cache,
		jobs:          jobs,
		mirror:        mirror,
		maxImageBytes: cfg.MaxImageBytes,
		mirrorVideos:  cfg.MirrorVideos,
		prompts:       redact.NewSanitizer(redact.Level(cfg.PromptLogLevel), cfg.ServiceName),
		log:           log.With().Str("component", "generation-service").Logger(),
		seed:          func(upper int) int { return rand.IntN(upper) + 1 },
		newSceneID:    uuid.NewString,
		now:           time.Now,
	}
}

// session resolves credentials and exchanges them for an access token.
func (s *Service) session(ctx context.Context) (flow.Credentials, string, error) {
	creds, err := s.credentials.RequireSession(ctx)
	if err != nil {
		return flow.Credentials{}, "", err
	}
	token, err := s.provider.GetAccessToken(ctx, creds)
	if err != nil {
		return flow.Credentials{}, "", err
	}
	return creds, token, nil
}

// GenerateVideo submits a video generation and records it in the job log.
func (s *Service) GenerateVideo(ctx context.Context, in VideoInput) (*GenerationResult, error) {
	ctx, span := observability.StartGenerationSpan(ctx, "video")
	defer span.End()

	result, err := s.generateVideo(ctx, in)
	if err != nil {
		observability.RecordError(span, err, string(flow.KindOf(err)))
		return nil, err
	}
	return result, nil
}

func (s *Service) generateVideo(ctx context.Context, in VideoInput) (*GenerationResult, error) {
	creds, err := s.credentials.RequireSession(ctx)
	if err != nil {
		return nil, err
	}

	aspect := in.AspectRatio
	if aspect == "" {
		aspect = flow.VideoAspectLandscape
	}
	hasStart, hasEnd, hasRefs := roles(in.Images)
	path := modelkey.ClassifyPath(hasStart, hasEnd, hasRefs)
	modelKey, err := modelkey.SelectForPath(modelkey.NormalizeTier(in.Model), aspect, path)
	if err != nil {
		return nil, err
	}

	token, err := s.provider.GetAccessToken(ctx, creds)
	if err != nil {
		return nil, err
	}
	projectID, err := s.provider.GetOrCreateProject(ctx, creds)
	if err != nil {
		return nil, err
	}

	req := flow.VideoRequest{
		ProjectID:   projectID,
		Prompt:      in.Prompt,
		AspectRatio: aspect,
		Seed:        s.pickSeed(in.Seed, maxVideoSeed),
		ModelKey:    modelKey,
		SceneID:     s.newSceneID(),
	}
	for _, img := range in.Images {
		// The upload aspect is the video aspect, exactly as the web client sends it.
		mediaID, err := s.resolveMediaID(ctx, token, img.URL, aspect)
		if err != nil {
			return nil, err
		}
		switch img.Role {
		case flow.RoleFirstFrame:
			req.StartImageID = mediaID
		case flow.RoleLastFrame:
			req.EndImageID = mediaID
		case flow.RoleReferenceImage:
			req.ReferenceImageIDs = append(req.ReferenceImageIDs, mediaID)
		}
	}

	var out flow.OperationsResult
	switch path {
	case modelkey.PathStartAndEnd:
		out, err = s.provider.GenerateVideoStartAndEndImage(ctx, token, req)
	case modelkey.PathStartImage:
		out, err = s.provider.GenerateVideoStartImage(ctx, token, req)
	case modelkey.PathReferenceImgs:
		out, err = s.provider.GenerateVideoReferenceImages(ctx, token, req)
	default:
		out, err = s.provider.GenerateVideoText(ctx, token, req)
	}
	if err != nil {
		metrics.RecordGeneration(string(JobKindVideo), modelKey, string(flow.KindOf(err)))
		return nil, err
	}
	if len(out.Operations) == 0 {
		metrics.RecordGeneration(string(JobKindVideo), modelKey, "empty")
		return nil, generationError(ctx, "generate_video", "upstream returned no operations")
	}
	metrics.RecordGeneration(string(JobKindVideo), modelKey, "submitted")

	op := out.Operations[0]
	sceneID := op.SceneID
	if sceneID == "" {
		sceneID = req.SceneID
	}
	job := &Job{
		ID:            jobid.New(),
		Kind:          JobKindVideo,
		OperationName: op.Name,
		SceneID:       sceneID,
		ProjectID:     projectID,
		ModelKey:      modelKey,
		Prompt:        in.Prompt,
		Status:        op.Status,
	}
	s.recordJob(ctx, job)

	s.log.Info().
		Str("operation", op.Name).
		Str("model_key", modelKey).
		Str("path", string(path)).
		Int("images", len(in.Images)).
		Str("prompt", s.prompts.Prompt(in.Prompt)).
		Msg("video generation submitted")

	return &GenerationResult{
		ID:               op.Name,
		JobID:            job.ID,
		Status:           flow.NormalizeStatus(op.Status),
		Prompt:           in.Prompt,
		SceneID:          sceneID,
		ProjectID:        projectID,
		ModelKey:         modelKey,
		RemainingCredits: out.RemainingCredits,
		Created:          s.now(),
	}, nil
}

// GetVideoStatus polls one operation. An empty sceneID is looked up in the
// job log.
func (s *Service) GetVideoStatus(ctx context.Context, operationName, sceneID string) (*GenerationResult, error) {
	ctx, span := observability.StartGenerationSpan(ctx, "status")
	defer span.End()

	result, err := s.getVideoStatus(ctx, operationName, sceneID)
	if err != nil {
		observability.RecordError(span, err, string(flow.KindOf(err)))
		return nil, err
	}
	return result, nil
}

func (s *Service) getVideoStatus(ctx context.Context, operationName, sceneID string) (*GenerationResult, error) {
	_, token, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	job := s.findJob(ctx, operationName)
	if sceneID == "" && job != nil {
		sceneID = job.SceneID
	}
	if sceneID == "" {
		return nil, flow.NewError(flow.KindNotFound, "check_video_status", "scene id is unknown for this generation")
	}

	out, err := s.provider.CheckStatus(ctx, token, []flow.OperationRef{{
		Name:    operationName,
		SceneID: sceneID,
		Status:  flow.StatusPending,
	}})
	if err != nil {
		return nil, err
	}
	if len(out.Operations) == 0 {
		return nil, flow.NewError(flow.KindNotFound, "check_video_status", "generation not found")
	}

	op := out.Operations[0]
	result := &GenerationResult{
		ID:               operationName,
		Status:           flow.NormalizeStatus(op.Status),
		SceneID:          sceneID,
		RemainingCredits: out.RemainingCredits,
	}
	if job != nil {
		result.JobID = job.ID
		result.Prompt = job.Prompt
		result.ProjectID = job.ProjectID
		result.ModelKey = job.ModelKey
		result.Created = job.CreatedAt
	}
	if op.Status != flow.StatusSuccessful || op.Video == nil {
		if job != nil && job.Status != op.Status {
			s.updateJob(ctx, operationName, op.Status, "")
		}
		return result, nil
	}

	result.Video = op.Video
	mirrorURL := ""
	if job != nil {
		mirrorURL = job.MediaURL
	}
	if mirrorURL == "" && s.mirrorVideos && op.Video.FifeURL != "" {
		mirrorURL = s.mirrorVideo(ctx, op)
	}
	if mirrorURL != "" {
		result.MediaURLs = append(result.MediaURLs, mirrorURL)
	}
	if op.Video.FifeURL != "" {
		result.MediaURLs = append(result.MediaURLs, op.Video.FifeURL)
	}
	if job != nil && (job.Status != op.Status || job.MediaURL != mirrorURL) {
		s.updateJob(ctx, operationName, op.Status, mirrorURL)
	}
	return result, nil
}

// GenerateImage runs a text-to-image or image-to-image generation.
func (s *Service) GenerateImage(ctx context.Context, in ImageInput) (*ImageResult, error) {
	ctx, span := observability.StartGenerationSpan(ctx, "image")
	defer span.End()

	result, err := s.generateImage(ctx, in)
	if err != nil {
		observability.RecordError(span, err, string(flow.KindOf(err)))
		return nil, err
	}
	return result, nil
}

func (s *Service) generateImage(ctx context.Context, in ImageInput) (*ImageResult, error) {
	creds, token, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	projectID, err := s.provider.GetOrCreateProject(ctx, creds)
	if err != nil {
		return nil, err
	}

	aspect := in.AspectRatio
	if aspect == "" {
		aspect = flow.ImageAspectLandscape
	}
	referenceID := ""
	if in.ImageURL != "" {
		if referenceID, err = s.resolveMediaID(ctx, token, in.ImageURL, aspect); err != nil {
			return nil, err
		}
	}

	images, err := s.provider.GenerateImage(ctx, token, flow.ImageRequest{
		ProjectID:        projectID,
		Prompt:           in.Prompt,
		AspectRatio:      aspect,
		Seed:             s.pickSeed(in.Seed, maxImageSeed),
		ModelName:        flow.ImageModelGemPix2,
		ReferenceImageID: referenceID,
	})
	if err != nil {
		metrics.RecordGeneration(string(JobKindImage), flow.ImageModelGemPix2, string(flow.KindOf(err)))
		return nil, err
	}
	if len(images) == 0 {
		metrics.RecordGeneration(string(JobKindImage), flow.ImageModelGemPix2, "empty")
		return nil, generationError(ctx, "generate_image", "upstream returned no images")
	}
	metrics.RecordGeneration(string(JobKindImage), flow.ImageModelGemPix2, "succeeded")

	img := images[0]
	result := &ImageResult{
		ID:                img.MediaGenerationID,
		Prompt:            in.Prompt,
		ProjectID:         projectID,
		MediaGenerationID: img.MediaGenerationID,
		FifeURL:           img.FifeURL,
		AspectRatio:       img.AspectRatio,
		Seed:              img.Seed,
		Model:             img.ModelNameType,
		B64JSON:           img.EncodedImage,
		Created:           s.now(),
	}
	if img.EncodedImage != "" {
		result.MirrorURL = s.mirrorImage(ctx, img)
	}

	job := &Job{
		ID:        jobid.New(),
		Kind:      JobKindImage,
		ProjectID: projectID,
		ModelKey:  flow.ImageModelGemPix2,
		Prompt:    in.Prompt,
		Status:    flow.StatusSuccessful,
		MediaURL:  result.MirrorURL,
	}
	s.recordJob(ctx, job)
	result.JobID = job.ID

	s.log.Info().
		Str("media_id", img.MediaGenerationID).
		Bool("reference", in.ImageURL != "").
		Str("prompt", s.prompts.Prompt(in.Prompt)).
		Msg("image generated")
	return result, nil
}

// GetCredits returns the account balance.
func (s *Service) GetCredits(ctx context.Context) (flow.Credits, error) {
	_, token, err := s.session(ctx)
	if err != nil {
		return flow.Credits{}, err
	}
	return s.provider.GetCredits(ctx, token)
}

// ListJobs returns the most recent jobs, newest first.
func (s *Service) ListJobs(ctx context.Context, limit int) ([]Job, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.jobs.List(ctx, limit)
}

// resolveMediaID returns the upstream media id for a source URL: a cache hit
// costs nothing, a miss costs one download and one upload.
func (s *Service) resolveMediaID(ctx context.Context, token, url, aspect string) (string, error) {
	if id, ok := s.cache.Get(ctx, url); ok {
		s.log.Debug().Str("media_id", id).Msg("upload cache hit")
		return id, nil
	}

	data, mimeType, err := s.provider.DownloadImage(ctx, url)
	if err != nil {
		return "", err
	}
	if s.maxImageBytes > 0 && int64(len(data)) > s.maxImageBytes {
		return "", platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			fmt.Sprintf("image exceeds max size of %d bytes", s.maxImageBytes), nil,
			"6f2c8e14-3a7b-4d9e-b1c5-0e8f2a4d6b7c")
	}

	id, err := s.provider.UploadImage(ctx, token, base64.StdEncoding.EncodeToString(data), mimeType, aspect)
	if err != nil {
		return "", err
	}
	if err := s.cache.Set(ctx, url, id); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist upload cache entry")
	}
	return id, nil
}

func (s *Service) mirrorVideo(ctx context.Context, op flow.Operation) string {
	data, mimeType, err := s.provider.DownloadVideo(ctx, op.Video.FifeURL)
	if err != nil {
		s.log.Warn().Err(err).Str("operation", op.Name).Msg("failed to download video for mirroring")
		return ""
	}
	id := op.MediaGenerationID
	if id == "" {
		id = op.Name
	}
	return s.put(ctx, storage.ObjectKey("videos", id, mimeType), data, mimeType)
}

func (s *Service) mirrorImage(ctx context.Context, img flow.GeneratedImage) string {
	data, err := base64.StdEncoding.DecodeString(img.EncodedImage)
	if err != nil {
		s.log.Warn().Err(err).Str("media_id", img.MediaGenerationID).Msg("generated image is not valid base64")
		return ""
	}
	mimeType := strings.SplitN(mimetype.Detect(data).String(), ";", 2)[0]
	return s.put(ctx, storage.ObjectKey("images", img.MediaGenerationID, mimeType), data, mimeType)
}

func (s *Service) put(ctx context.Context, key string, data []byte, contentType string) string {
	if s.mirror == nil {
		return ""
	}
	url, ok, err := s.mirror.Put(ctx, key, data, contentType)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to mirror generated media")
		return ""
	}
	if !ok {
		return ""
	}
	return url
}

func (s *Service) recordJob(ctx context.Context, job *Job) {
	if err := s.jobs.Create(ctx, job); err != nil {
		platformerrors.Log(s.log.With().Str("job_id", job.ID).Logger(), zerolog.WarnLevel, err, "failed to record generation job")
	}
}

func (s *Service) updateJob(ctx context.Context, operationName, status, mediaURL string) {
	if err := s.jobs.UpdateStatus(ctx, operationName, status, mediaURL); err != nil {
		platformerrors.Log(s.log.With().Str("operation", operationName).Logger(), zerolog.WarnLevel, err, "failed to update generation job")
	}
}

func (s *Service) findJob(ctx context.Context, operationName string) *Job {
	job, err := s.jobs.FindByOperation(ctx, operationName)
	if err != nil {
		platformerrors.Log(s.log.With().Str("operation", operationName).Logger(), zerolog.WarnLevel, err, "job log lookup failed")
		return nil
	}
	return job
}

func (s *Service) pickSeed(seed *int, upper int) int {
	if seed != nil {
		return *seed
	}
	return s.seed(upper)
}

func roles(images []Image) (hasStart, hasEnd, hasRefs bool) {
	for _, img := range images {
		switch img.Role {
		case flow.RoleFirstFrame:
			hasStart = true
		case flow.RoleLastFrame:
			hasEnd = true
		case flow.RoleReferenceImage:
			hasRefs = true
		}
	}
	return hasStart, hasEnd, hasRefs
}

// generationError reports an upstream success that carried nothing usable.
func generationError(ctx context.Context, op, message string) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
		message, flow.NewError(flow.KindHTTP, op, message), "c41d9b2e-7f3a-4e6c-8d5b-2a9f1e0c3b7d").
		With("operation", op)
}
