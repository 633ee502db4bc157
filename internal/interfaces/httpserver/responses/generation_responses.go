package responses

import (
	"jan-server/services/flow-api/internal/domain/flow"
	"jan-server/services/flow-api/internal/domain/generation"
)

const (
	ObjectVideoGeneration = "video.generation"
	ObjectImageGeneration = "image.generation"
	ObjectJob             = "generation.job"
	ObjectList            = "list"
)

// VideoMetadata describes a finished video.
type VideoMetadata struct {
	MediaGenerationID string `json:"media_generation_id,omitempty"`
	FifeURL           string `json:"fife_url,omitempty"`
	ServingBaseURI    string `json:"serving_base_uri,omitempty"`
	Seed              int    `json:"seed,omitempty"`
	Model             string `json:"model,omitempty"`
	AspectRatio       string `json:"aspect_ratio,omitempty"`
	Prompt            string `json:"prompt,omitempty"`
}

// VideoGenerationResponse is returned by the generate and status endpoints.
type VideoGenerationResponse struct {
	ID               string         `json:"id"`
	Object           string         `json:"object"`
	Created          int64          `json:"created,omitempty"`
	Status           string         `json:"status"`
	Prompt           string         `json:"prompt,omitempty"`
	SceneID          string         `json:"scene_id"`
	ProjectID        string         `json:"project_id,omitempty"`
	ModelKey         string         `json:"model_key,omitempty"`
	JobID            string         `json:"job_id,omitempty"`
	MediaURLs        []string       `json:"media_urls,omitempty"`
	RemainingCredits int            `json:"remaining_credits"`
	Video            *VideoMetadata `json:"video,omitempty"`
}

// BuildVideoGenerationResponse creates the response from a generation result
func BuildVideoGenerationResponse(result *generation.GenerationResult) *VideoGenerationResponse {
	resp := &VideoGenerationResponse{
		ID:               result.ID,
		Object:           ObjectVideoGeneration,
		Status:           result.Status,
		Prompt:           result.Prompt,
		SceneID:          result.SceneID,
		ProjectID:        result.ProjectID,
		ModelKey:         result.ModelKey,
		JobID:            result.JobID,
		MediaURLs:        result.MediaURLs,
		RemainingCredits: result.RemainingCredits,
		Video:            buildVideoMetadata(result.Video),
	}
	if !result.Created.IsZero() {
		resp.Created = result.Created.Unix()
	}
	return resp
}

func buildVideoMetadata(video *flow.VideoMetadata) *VideoMetadata {
	if video == nil {
		return nil
	}
	return &VideoMetadata{
		MediaGenerationID: video.MediaGenerationID,
		FifeURL:           video.FifeURL,
		ServingBaseURI:    video.ServingBaseURI,
		Seed:              video.Seed,
		Model:             video.Model,
		AspectRatio:       video.AspectRatio,
		Prompt:            video.Prompt,
	}
}

// ImageGenerationResponse is returned by the image endpoint.
type ImageGenerationResponse struct {
	ID                string `json:"id"`
	Object            string `json:"object"`
	Created           int64  `json:"created"`
	Prompt            string `json:"prompt"`
	ProjectID         string `json:"project_id"`
	JobID             string `json:"job_id,omitempty"`
	MediaGenerationID string `json:"media_generation_id"`
	FifeURL           string `json:"fife_url,omitempty"`
	MirrorURL         string `json:"mirror_url,omitempty"`
	AspectRatio       string `json:"aspect_ratio,omitempty"`
	Seed              int    `json:"seed,omitempty"`
	Model             string `json:"model,omitempty"`
	B64JSON           string `json:"b64_json,omitempty"`
}

// BuildImageGenerationResponse creates the response from an image result
func BuildImageGenerationResponse(result *generation.ImageResult) *ImageGenerationResponse {
	return &ImageGenerationResponse{
		ID:                result.ID,
		Object:            ObjectImageGeneration,
		Created:           result.Created.Unix(),
		Prompt:            result.Prompt,
		ProjectID:         result.ProjectID,
		JobID:             result.JobID,
		MediaGenerationID: result.MediaGenerationID,
		FifeURL:           result.FifeURL,
		MirrorURL:         result.MirrorURL,
		AspectRatio:       result.AspectRatio,
		Seed:              result.Seed,
		Model:             result.Model,
		B64JSON:           result.B64JSON,
	}
}

// CreditsResponse reports the account balance.
type CreditsResponse struct {
	Credits         int    `json:"credits"`
	UserPaygateTier string `json:"user_paygate_tier"`
}

// JobResponse is one job log entry.
type JobResponse struct {
	ID            string `json:"id"`
	Object        string `json:"object"`
	Kind          string `json:"kind"`
	OperationName string `json:"operation_name,omitempty"`
	SceneID       string `json:"scene_id,omitempty"`
	ProjectID     string `json:"project_id,omitempty"`
	ModelKey      string `json:"model_key,omitempty"`
	Prompt        string `json:"prompt"`
	Status        string `json:"status"`
	MediaURL      string `json:"media_url,omitempty"`
	CreatedAt     int64  `json:"created_at"`
	UpdatedAt     int64  `json:"updated_at"`
}

// JobListResponse wraps job log entries.
type JobListResponse struct {
	Object string        `json:"object"`
	Data   []JobResponse `json:"data"`
}

// BuildJobListResponse converts job log rows. Statuses are normalized the same
// way the generation endpoints report them.
func BuildJobListResponse(jobs []generation.Job) *JobListResponse {
	data := make([]JobResponse, 0, len(jobs))
	for _, job := range jobs {
		data = append(data, JobResponse{
			ID:            job.ID,
			Object:        ObjectJob,
			Kind:          string(job.Kind),
			OperationName: job.OperationName,
			SceneID:       job.SceneID,
			ProjectID:     job.ProjectID,
			ModelKey:      job.ModelKey,
			Prompt:        job.Prompt,
			Status:        flow.NormalizeStatus(job.Status),
			MediaURL:      job.MediaURL,
			CreatedAt:     job.CreatedAt.Unix(),
			UpdatedAt:     job.UpdatedAt.Unix(),
		})
	}
	return &JobListResponse{Object: ObjectList, Data: data}
}
