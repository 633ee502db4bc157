package flowclient

import (
	"context"

	"github.com/tidwall/gjson"

	"jan-server/services/flow-api/internal/domain/flow"
)

const (
	videoTextPath       = "/v1/video:batchAsyncGenerateVideoText"
	videoStartPath      = "/v1/video:batchAsyncGenerateVideoStartImage"
	videoStartEndPath   = "/v1/video:batchAsyncGenerateVideoStartAndEndImage"
	videoReferencesPath = "/v1/video:batchAsyncGenerateVideoReferenceImages"
	videoStatusPath     = "/v1/video:batchCheckAsyncVideoGenerationStatus"
)

type clientContext struct {
	ProjectID       string `json:"projectId,omitempty"`
	Tool            string `json:"tool"`
	UserPaygateTier string `json:"userPaygateTier,omitempty"`
}

type textInput struct {
	Prompt string `json:"prompt"`
}

type mediaRef struct {
	MediaID string `json:"mediaId"`
}

type referenceImage struct {
	ImageUsageType string `json:"imageUsageType"`
	MediaID        string `json:"mediaId"`
}

type sceneMetadata struct {
	SceneID string `json:"sceneId"`
}

type videoRequestItem struct {
	AspectRatio     string           `json:"aspectRatio"`
	Seed            int              `json:"seed"`
	TextInput       textInput        `json:"textInput"`
	VideoModelKey   string           `json:"videoModelKey"`
	Metadata        sceneMetadata    `json:"metadata"`
	StartImage      *mediaRef        `json:"startImage,omitempty"`
	EndImage        *mediaRef        `json:"endImage,omitempty"`
	ReferenceImages []referenceImage `json:"referenceImages,omitempty"`
}

type videoBody struct {
	ClientContext clientContext      `json:"clientContext"`
	Requests      []videoRequestItem `json:"requests"`
}

func (c *Client) videoBody(req flow.VideoRequest) videoBody {
	tier := req.PaygateTier
	if tier == "" {
		tier = c.cfg.PaygateTier
	}
	item := videoRequestItem{
		AspectRatio:   req.AspectRatio,
		Seed:          req.Seed,
		TextInput:     textInput{Prompt: req.Prompt},
		VideoModelKey: req.ModelKey,
		Metadata:      sceneMetadata{SceneID: req.SceneID},
	}
	if req.StartImageID != "" {
		item.StartImage = &mediaRef{MediaID: req.StartImageID}
	}
	if req.EndImageID != "" {
		item.EndImage = &mediaRef{MediaID: req.EndImageID}
	}
	for _, id := range req.ReferenceImageIDs {
		item.ReferenceImages = append(item.ReferenceImages, referenceImage{
			ImageUsageType: flow.ImageUsageAsset,
			MediaID:        id,
		})
	}
	return videoBody{
		ClientContext: clientContext{
			ProjectID:       req.ProjectID,
			Tool:            flow.ToolPinhole,
			UserPaygateTier: tier,
		},
		Requests: []videoRequestItem{item},
	}
}

// GenerateVideoText submits a text-to-video generation.
func (c *Client) GenerateVideoText(ctx context.Context, accessToken string, req flow.VideoRequest) (flow.OperationsResult, error) {
	req.StartImageID, req.EndImageID, req.ReferenceImageIDs = "", "", nil
	return c.generateVideo(ctx, "generate_video_text", videoTextPath, accessToken, req)
}

// GenerateVideoStartImage submits a first-frame generation.
func (c *Client) GenerateVideoStartImage(ctx context.Context, accessToken string, req flow.VideoRequest) (flow.OperationsResult, error) {
	req.EndImageID, req.ReferenceImageIDs = "", nil
	return c.generateVideo(ctx, "generate_video_start_image", videoStartPath, accessToken, req)
}

// GenerateVideoStartAndEndImage submits a first+last frame generation.
func (c *Client) GenerateVideoStartAndEndImage(ctx context.Context, accessToken string, req flow.VideoRequest) (flow.OperationsResult, error) {
	req.ReferenceImageIDs = nil
	return c.generateVideo(ctx, "generate_video_start_end_image", videoStartEndPath, accessToken, req)
}

// GenerateVideoReferenceImages submits a reference-images generation.
func (c *Client) GenerateVideoReferenceImages(ctx context.Context, accessToken string, req flow.VideoRequest) (flow.OperationsResult, error) {
	req.StartImageID, req.EndImageID = "", ""
	return c.generateVideo(ctx, "generate_video_reference_images", videoReferencesPath, accessToken, req)
}

func (c *Client) generateVideo(ctx context.Context, op, path, accessToken string, req flow.VideoRequest) (flow.OperationsResult, error) {
	payload, err := marshal(op, c.videoBody(req))
	if err != nil {
		return flow.OperationsResult{}, err
	}
	result, err := c.withRetry(ctx, op, c.postSandbox(accessToken, path, payload))
	if err != nil {
		return flow.OperationsResult{}, err
	}
	out := parseOperations(result)
	if len(out.Operations) > 0 {
		c.log.Debug().Str("operation", out.Operations[0].Name).Str("model_key", req.ModelKey).Msg("video generation submitted")
	}
	return out, nil
}

type operationName struct {
	Name string `json:"name"`
}

type statusOperation struct {
	Operation operationName `json:"operation"`
	SceneID   string        `json:"sceneId"`
	Status    string        `json:"status"`
}

type statusBody struct {
	Operations []statusOperation `json:"operations"`
}

// CheckStatus polls the given operations. It is a read and is not retried.
func (c *Client) CheckStatus(ctx context.Context, accessToken string, ops []flow.OperationRef) (flow.OperationsResult, error) {
	const op = "check_video_status"
	body := statusBody{Operations: make([]statusOperation, 0, len(ops))}
	for _, ref := range ops {
		status := ref.Status
		if status == "" {
			status = flow.StatusPending
		}
		body.Operations = append(body.Operations, statusOperation{
			Operation: operationName{Name: ref.Name},
			SceneID:   ref.SceneID,
			Status:    status,
		})
	}

	payload, err := marshal(op, body)
	if err != nil {
		return flow.OperationsResult{}, err
	}
	result, err := c.once(ctx, op, c.postSandbox(accessToken, videoStatusPath, payload))
	if err != nil {
		return flow.OperationsResult{}, err
	}
	return parseOperations(result), nil
}

// parseOperations reads operations[] and remainingCredits. Missing fields
// read as zero values.
func parseOperations(result gjson.Result) flow.OperationsResult {
	items := result.Get("operations").Array()
	out := flow.OperationsResult{
		Operations:       make([]flow.Operation, 0, len(items)),
		RemainingCredits: int(result.Get("remainingCredits").Int()),
	}
	for _, item := range items {
		op := flow.Operation{
			Name:              item.Get("operation.name").String(),
			SceneID:           item.Get("sceneId").String(),
			Status:            item.Get("status").String(),
			MediaGenerationID: item.Get("mediaGenerationId").String(),
		}
		if op.Status == flow.StatusSuccessful {
			video := item.Get("operation.metadata.video")
			op.Video = &flow.VideoMetadata{
				MediaGenerationID: op.MediaGenerationID,
				FifeURL:           video.Get("fifeUrl").String(),
				ServingBaseURI:    video.Get("servingBaseUri").String(),
				Seed:              int(video.Get("seed").Int()),
				Model:             video.Get("model").String(),
				AspectRatio:       video.Get("aspectRatio").String(),
				Prompt:            video.Get("prompt").String(),
			}
		}
		out.Operations = append(out.Operations, op)
	}
	return out
}
