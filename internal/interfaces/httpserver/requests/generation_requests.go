package requests

import (
	"fmt"
	"strings"

	"jan-server/services/flow-api/internal/domain/flow"
	"jan-server/services/flow-api/internal/domain/generation"
	"jan-server/services/flow-api/internal/domain/modelkey"
)

// ImageURL holds the source URL of an attached image.
type ImageURL struct {
	URL string `json:"url" binding:"required"`
}

// VideoImage is one image attached to a video request.
type VideoImage struct {
	Type     string   `json:"type"`
	ImageURL ImageURL `json:"image_url"`
	Role     string   `json:"role" binding:"required"`
}

// VideoGenerationRequest is the body of POST /v1/video/generations.
type VideoGenerationRequest struct {
	Prompt      string       `json:"prompt" binding:"required"`
	Images      []VideoImage `json:"images" binding:"omitempty,dive"`
	AspectRatio string       `json:"aspect_ratio"`
	Seed        *int         `json:"seed"`
	Model       string       `json:"model"`
}

// ToDomain normalizes aliases and rejects unknown roles and tiers.
func (r *VideoGenerationRequest) ToDomain() (generation.VideoInput, error) {
	in := generation.VideoInput{
		Prompt:      r.Prompt,
		AspectRatio: modelkey.NormalizeVideoAspect(r.AspectRatio),
		Seed:        r.Seed,
		Model:       modelkey.NormalizeTier(r.Model),
	}
	if !modelkey.KnownTier(in.Model) {
		return generation.VideoInput{}, fmt.Errorf("unknown model %q", r.Model)
	}
	for i, img := range r.Images {
		if img.Type != "" && img.Type != "image_url" {
			return generation.VideoInput{}, fmt.Errorf("images[%d]: unsupported type %q", i, img.Type)
		}
		role := flow.Role(strings.ToLower(strings.TrimSpace(img.Role)))
		if !role.Valid() {
			return generation.VideoInput{}, fmt.Errorf("images[%d]: unknown role %q", i, img.Role)
		}
		url := strings.TrimSpace(img.ImageURL.URL)
		if url == "" {
			return generation.VideoInput{}, fmt.Errorf("images[%d]: image_url.url is required", i)
		}
		in.Images = append(in.Images, generation.Image{URL: url, Role: role})
	}
	return in, nil
}

// ImageGenerationRequest is the body of POST /v1/images/generations.
// Image is an optional reference URL that turns the request into image-to-image.
type ImageGenerationRequest struct {
	Prompt      string `json:"prompt" binding:"required"`
	Image       string `json:"image"`
	AspectRatio string `json:"aspect_ratio"`
	Seed        *int   `json:"seed"`
}

// ToDomain normalizes the aspect ratio alias.
func (r *ImageGenerationRequest) ToDomain() generation.ImageInput {
	return generation.ImageInput{
		Prompt:      r.Prompt,
		ImageURL:    strings.TrimSpace(r.Image),
		AspectRatio: modelkey.NormalizeImageAspect(r.AspectRatio),
		Seed:        r.Seed,
	}
}
