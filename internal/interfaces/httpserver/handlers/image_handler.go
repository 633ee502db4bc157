package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"jan-server/services/flow-api/internal/interfaces/httpserver/requests"
	"jan-server/services/flow-api/internal/interfaces/httpserver/responses"
	"jan-server/services/flow-api/internal/utils/platformerrors"
)

// ImageHandler exposes image generation.
type ImageHandler struct {
	service GenerationService
	log     zerolog.Logger
}

func NewImageHandler(service GenerationService, log zerolog.Logger) *ImageHandler {
	return &ImageHandler{
		service: service,
		log:     log.With().Str("component", "image-handler").Logger(),
	}
}

// Generate godoc
// @Summary      Generate an image
// @Description  Text-to-image, or image-to-image when a reference image URL is given.
// @Tags         images
// @Accept       json
// @Produce      json
// @Param        request  body      requests.ImageGenerationRequest  true  "Image request"
// @Success      200      {object}  responses.ImageGenerationResponse
// @Failure      400      {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/images/generations [post]
func (h *ImageHandler) Generate(c *gin.Context) {
	var req requests.ImageGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error(), "b5c7e2a9-1d3f-4e8b-9a6c-4f0d2e8b7c13")
		return
	}

	result, err := h.service.GenerateImage(context.WithoutCancel(c.Request.Context()), req.ToDomain())
	if err != nil {
		h.log.Error().Err(err).Bool("image_to_image", req.Image != "").Msg("image generation failed")
		responses.HandleError(c, err, responses.CodeGenerationError)
		return
	}

	c.JSON(http.StatusOK, responses.BuildImageGenerationResponse(result))
}
