package generation

import (
	"time"

	"jan-server/services/flow-api/internal/domain/flow"
)

// Image is one image attached to a video request.
type Image struct {
	URL  string
	Role flow.Role
}

// VideoInput is a normalized video generation request. AspectRatio is the
// upstream enum; Model is a tier name or one of its short aliases.
type VideoInput struct {
	Prompt      string
	Images      []Image
	AspectRatio string
	Seed        *int
	Model       string
}

// ImageInput is a normalized image generation request.
type ImageInput struct {
	Prompt      string
	ImageURL    string
	AspectRatio string
	Seed        *int
}

// GenerationResult describes a video generation as returned to callers.
// Status is normalized: lowercase with spaces instead of underscores.
type GenerationResult struct {
	ID               string
	JobID            string
	Status           string
	Prompt           string
	SceneID          string
	ProjectID        string
	ModelKey         string
	MediaURLs        []string
	RemainingCredits int
	Video            *flow.VideoMetadata
	Created          time.Time
}

// ImageResult describes a finished image generation.
type ImageResult struct {
	ID                string
	JobID             string
	Prompt            string
	ProjectID         string
	MediaGenerationID string
	FifeURL           string
	MirrorURL         string
	AspectRatio       string
	Seed              int
	Model             string
	B64JSON           string
	Created           time.Time
}
