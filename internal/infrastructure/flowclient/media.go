package flowclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"

	"jan-server/services/flow-api/internal/domain/flow"
	"jan-server/services/flow-api/internal/domain/modelkey"
	"jan-server/services/flow-api/internal/infrastructure/metrics"
)

const (
	uploadImagePath   = "/v1:uploadUserImage"
	generateImagePath = "/v1/projects/%s/flowMedia:batchGenerateImages"

	defaultImageMime = "image/jpeg"
	defaultVideoMime = "video/mp4"
)

type imageInput struct {
	RawImageBytes  string `json:"rawImageBytes"`
	MimeType       string `json:"mimeType"`
	IsUserUploaded bool   `json:"isUserUploaded"`
	AspectRatio    string `json:"aspectRatio"`
}

type uploadBody struct {
	ImageInput    imageInput    `json:"imageInput"`
	ClientContext clientContext `json:"clientContext"`
}

// UploadImage uploads base64 image bytes and returns the upstream media id.
func (c *Client) UploadImage(ctx context.Context, accessToken, imageBase64, mimeType, aspectRatio string) (string, error) {
	const op = "upload_image"
	if mimeType == "" {
		mimeType = defaultImageMime
	}
	if aspectRatio == "" {
		aspectRatio = flow.ImageAspectLandscape
	}

	payload, err := marshal(op, uploadBody{
		ImageInput: imageInput{
			RawImageBytes:  imageBase64,
			MimeType:       mimeType,
			IsUserUploaded: true,
			AspectRatio:    aspectRatio,
		},
		ClientContext: clientContext{Tool: flow.ToolAssetManager},
	})
	if err != nil {
		return "", err
	}

	size := int64(len(imageBase64))
	result, err := c.withRetry(ctx, op, c.postSandbox(accessToken, uploadImagePath, payload))
	if err != nil {
		metrics.RecordUpload(mimeType, "failed", size)
		if flow.KindOf(err) == flow.KindHTTP {
			return "", flow.NewError(flow.KindUploadFailed, op, "upstream rejected the upload").
				WithStatus(statusOf(err)).
				WithCause(err)
		}
		return "", err
	}

	id := result.Get("mediaGenerationId.mediaGenerationId").String()
	if id == "" {
		metrics.RecordUpload(mimeType, "failed", size)
		return "", flow.NewError(flow.KindUploadFailed, op, "upload response has no mediaGenerationId")
	}
	metrics.RecordUpload(mimeType, "success", size)
	return id, nil
}

type imageRequestItem struct {
	Seed             int                   `json:"seed"`
	ImageModelName   string                `json:"imageModelName"`
	ImageAspectRatio string                `json:"imageAspectRatio"`
	Prompt           string                `json:"prompt"`
	ImageInputs      []modelkey.ImageInput `json:"imageInputs"`
}

type imageBody struct {
	Requests []imageRequestItem `json:"requests"`
}

// GenerateImage runs a text-to-image or image-to-image generation and
// returns the generated images in response order.
func (c *Client) GenerateImage(ctx context.Context, accessToken string, req flow.ImageRequest) ([]flow.GeneratedImage, error) {
	const op = "generate_image"
	_, inputs := modelkey.SelectImageRequest(req.ReferenceImageID)
	model := req.ModelName
	if model == "" {
		model = flow.ImageModelGemPix2
	}

	payload, err := marshal(op, imageBody{Requests: []imageRequestItem{{
		Seed:             req.Seed,
		ImageModelName:   model,
		ImageAspectRatio: req.AspectRatio,
		Prompt:           req.Prompt,
		ImageInputs:      inputs,
	}}})
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf(generateImagePath, url.PathEscape(req.ProjectID))
	result, err := c.withRetry(ctx, op, c.postSandbox(accessToken, path, payload))
	if err != nil {
		return nil, err
	}

	media := result.Get("media").Array()
	images := make([]flow.GeneratedImage, 0, len(media))
	for _, item := range media {
		img := item.Get("image.generatedImage")
		images = append(images, flow.GeneratedImage{
			MediaGenerationID: img.Get("mediaGenerationId").String(),
			FifeURL:           img.Get("fifeUrl").String(),
			EncodedImage:      img.Get("encodedImage").String(),
			AspectRatio:       img.Get("aspectRatio").String(),
			Seed:              int(img.Get("seed").Int()),
			ModelNameType:     img.Get("modelNameType").String(),
		})
	}
	return images, nil
}

// DownloadImage fetches an image and reports its mime type.
func (c *Client) DownloadImage(ctx context.Context, rawURL string) ([]byte, string, error) {
	return c.fetch(ctx, "download_image", c.download, rawURL, "image/", DetectImageMime)
}

// DownloadVideo fetches a video with three times the base timeout.
func (c *Client) DownloadVideo(ctx context.Context, rawURL string) ([]byte, string, error) {
	return c.fetch(ctx, "download_video", c.videoDownload, rawURL, "video/", DetectVideoMime)
}

func (c *Client) fetch(ctx context.Context, op string, client *resty.Client, rawURL, family string, sniff func([]byte) string) ([]byte, string, error) {
	resp, err := c.onceRaw(ctx, op, func(ctx context.Context) (*resty.Response, error) {
		return client.R().SetContext(ctx).Get(rawURL)
	})
	if err != nil {
		return nil, "", err
	}
	body := resp.Body()
	if c.cfg.MaxDownload > 0 && int64(len(body)) > c.cfg.MaxDownload {
		return nil, "", flow.NewError(flow.KindHTTP, op, fmt.Sprintf("body exceeds %d bytes", c.cfg.MaxDownload)).
			WithStatus(http.StatusRequestEntityTooLarge)
	}
	return body, pickMime(resp.Header().Get("Content-Type"), family, body, sniff), nil
}

func pickMime(header, family string, body []byte, sniff func([]byte) string) string {
	if ct := strings.TrimSpace(strings.SplitN(header, ";", 2)[0]); strings.HasPrefix(strings.ToLower(ct), family) {
		return strings.ToLower(ct)
	}
	return sniff(body)
}

// DetectImageMime sniffs JPEG, PNG and WEBP magic numbers, then falls back to
// content detection, then to image/jpeg.
func DetectImageMime(body []byte) string {
	switch {
	case bytes.HasPrefix(body, []byte{0xFF, 0xD8, 0xFF}):
		return "image/jpeg"
	case bytes.HasPrefix(body, []byte{0x89, 0x50, 0x4E, 0x47}):
		return "image/png"
	case isRIFF(body, "WEBP"):
		return "image/webp"
	}
	if detected := mimetype.Detect(body).String(); strings.HasPrefix(detected, "image/") {
		return strings.SplitN(detected, ";", 2)[0]
	}
	return defaultImageMime
}

// DetectVideoMime sniffs MP4 and WEBM signatures, then falls back to content
// detection, then to video/mp4.
func DetectVideoMime(body []byte) string {
	switch {
	case len(body) >= 8 && string(body[4:8]) == "ftyp":
		return "video/mp4"
	case isRIFF(body, "WEBM"):
		return "video/webm"
	}
	if detected := mimetype.Detect(body).String(); strings.HasPrefix(detected, "video/") {
		return strings.SplitN(detected, ";", 2)[0]
	}
	return defaultVideoMime
}

func isRIFF(body []byte, form string) bool {
	if !bytes.HasPrefix(body, []byte("RIFF")) {
		return false
	}
	head := body
	if len(head) > 16 {
		head = head[:16]
	}
	return bytes.Contains(head[4:], []byte(form))
}

func statusOf(err error) int {
	var fe *flow.Error
	if errors.As(err, &fe) {
		return fe.Status
	}
	return 0
}
