package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"jan-server/services/flow-api/internal/interfaces/httpserver/requests"
	"jan-server/services/flow-api/internal/interfaces/httpserver/responses"
	"jan-server/services/flow-api/internal/utils/platformerrors"
)

// VideoHandler exposes the video generation endpoints.
type VideoHandler struct {
	service GenerationService
	log     zerolog.Logger
}

func NewVideoHandler(service GenerationService, log zerolog.Logger) *VideoHandler {
	return &VideoHandler{
		service: service,
		log:     log.With().Str("component", "video-handler").Logger(),
	}
}

// Generate godoc
// @Summary      Submit a video generation
// @Description  Text-to-video, first frame, first and last frame, or reference images depending on the attached image roles.
// @Tags         video
// @Accept       json
// @Produce      json
// @Param        request  body      requests.VideoGenerationRequest  true  "Video request"
// @Success      200      {object}  responses.VideoGenerationResponse
// @Failure      400      {object}  responses.ErrorResponse
// @Failure      502      {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/video/generations [post]
func (h *VideoHandler) Generate(c *gin.Context) {
	var req requests.VideoGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error(), "0d6e3b52-8f41-4c2a-9e7d-5b1a3c6f8e20")
		return
	}
	in, err := req.ToDomain()
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error(), "7a2f9c31-4b6e-4d8a-a1f3-9c5e2b7d0a64")
		return
	}

	// Not cancelled by client disconnects.
	ctx := context.WithoutCancel(c.Request.Context())
	result, err := h.service.GenerateVideo(ctx, in)
	if err != nil {
		h.log.Error().Err(err).Int("images", len(in.Images)).Msg("video generation failed")
		responses.HandleError(c, err, responses.CodeGenerationError)
		return
	}

	c.JSON(http.StatusOK, responses.BuildVideoGenerationResponse(result))
}

// Status godoc
// @Summary      Poll a video generation
// @Tags         video
// @Produce      json
// @Param        id        path   string  true   "Operation name"
// @Param        scene_id  query  string  false  "Scene id returned at submission"
// @Success      200  {object}  responses.VideoGenerationResponse
// @Failure      404  {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/video/generations/{id} [get]
func (h *VideoHandler) Status(c *gin.Context) {
	operationName := c.Param("id")
	sceneID := c.Query("scene_id")

	result, err := h.service.GetVideoStatus(context.WithoutCancel(c.Request.Context()), operationName, sceneID)
	if err != nil {
		h.log.Warn().Err(err).Str("operation", operationName).Msg("video status check failed")
		responses.HandleError(c, err, responses.CodeStatusError)
		return
	}

	c.JSON(http.StatusOK, responses.BuildVideoGenerationResponse(result))
}

// List godoc
// @Summary      List recent generations from the job log
// @Tags         video
// @Produce      json
// @Param        limit  query  int  false  "Page size (1-100, default 20)"
// @Success      200  {object}  responses.JobListResponse
// @Security     BearerAuth
// @Router       /v1/video/generations [get]
func (h *VideoHandler) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "limit must be an integer", "3e8b1d74-2c5f-4a9e-b6d0-7f4a2c9e1b35")
			return
		}
		limit = parsed
	}

	jobs, err := h.service.ListJobs(c.Request.Context(), limit)
	if err != nil {
		responses.HandleError(c, err, responses.CodeJobsError)
		return
	}
	c.JSON(http.StatusOK, responses.BuildJobListResponse(jobs))
}

// Credits godoc
// @Summary      Account balance
// @Tags         video
// @Produce      json
// @Success      200  {object}  responses.CreditsResponse
// @Security     BearerAuth
// @Router       /v1/video/credits [get]
func (h *VideoHandler) Credits(c *gin.Context) {
	credits, err := h.service.GetCredits(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		h.log.Warn().Err(err).Msg("credits lookup failed")
		responses.HandleError(c, err, responses.CodeCreditsError)
		return
	}
	c.JSON(http.StatusOK, responses.CreditsResponse{
		Credits:         credits.Credits,
		UserPaygateTier: credits.UserPaygateTier,
	})
}
