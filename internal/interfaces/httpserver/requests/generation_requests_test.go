package requests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/flow-api/internal/domain/flow"
)

func TestVideoGenerationRequestToDomain(t *testing.T) {
	seed := 7
	req := VideoGenerationRequest{
		Prompt:      "a cat",
		AspectRatio: "portrait",
		Seed:        &seed,
		Model:       "relaxed",
		Images: []VideoImage{
			{Type: "image_url", ImageURL: ImageURL{URL: " https://x/a.png "}, Role: "First_Frame"},
			{ImageURL: ImageURL{URL: "https://x/b.png"}, Role: "reference_image"},
		},
	}

	in, err := req.ToDomain()
	require.NoError(t, err)
	assert.Equal(t, flow.VideoAspectPortrait, in.AspectRatio)
	assert.Equal(t, flow.TierRelaxed, in.Model)
	assert.Equal(t, 7, *in.Seed)
	require.Len(t, in.Images, 2)
	assert.Equal(t, "https://x/a.png", in.Images[0].URL)
	assert.Equal(t, flow.RoleFirstFrame, in.Images[0].Role)
	assert.Equal(t, flow.RoleReferenceImage, in.Images[1].Role)
}

func TestVideoGenerationRequestDefaults(t *testing.T) {
	req := VideoGenerationRequest{Prompt: "a cat"}

	in, err := req.ToDomain()
	require.NoError(t, err)
	assert.Equal(t, flow.VideoAspectLandscape, in.AspectRatio)
	assert.Equal(t, flow.TierFast, in.Model)
	assert.Nil(t, in.Seed)
	assert.Empty(t, in.Images)
}

func TestVideoGenerationRequestRejects(t *testing.T) {
	tests := []struct {
		name string
		req  VideoGenerationRequest
	}{
		{"unknown role", VideoGenerationRequest{Prompt: "p", Images: []VideoImage{{ImageURL: ImageURL{URL: "u"}, Role: "middle_frame"}}}},
		{"unknown type", VideoGenerationRequest{Prompt: "p", Images: []VideoImage{{Type: "video_url", ImageURL: ImageURL{URL: "u"}, Role: "first_frame"}}}},
		{"blank url", VideoGenerationRequest{Prompt: "p", Images: []VideoImage{{ImageURL: ImageURL{URL: "  "}, Role: "first_frame"}}}},
		{"unknown model", VideoGenerationRequest{Prompt: "p", Model: "veo-2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.req.ToDomain()
			assert.Error(t, err)
		})
	}
}

func TestImageGenerationRequestToDomain(t *testing.T) {
	req := ImageGenerationRequest{Prompt: "a dog", Image: " https://x/ref.jpg ", AspectRatio: "1:1"}

	in := req.ToDomain()
	assert.Equal(t, "a dog", in.Prompt)
	assert.Equal(t, "https://x/ref.jpg", in.ImageURL)
	assert.Equal(t, flow.ImageAspectSquare, in.AspectRatio)
}
