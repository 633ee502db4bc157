package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"jan-server/services/flow-api/internal/config"
	"jan-server/services/flow-api/internal/infrastructure/auth"
	"jan-server/services/flow-api/internal/interfaces/httpserver/requests"
	"jan-server/services/flow-api/internal/interfaces/httpserver/responses"
	"jan-server/services/flow-api/internal/utils/platformerrors"
)

// AdminHandler serves the admin API behind a JWT session.
type AdminHandler struct {
	auth     AdminAuthenticator
	settings SettingsStore
	service  GenerationService
	log      zerolog.Logger
}

func NewAdminHandler(authenticator AdminAuthenticator, settings SettingsStore, service GenerationService, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		auth:     authenticator,
		settings: settings,
		service:  service,
		log:      log.With().Str("component", "admin-handler").Logger(),
	}
}

// Login checks the admin credentials from the [global] settings section.
// Wrong credentials answer 200 with success=false.
func (h *AdminHandler) Login(c *gin.Context) {
	var req requests.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error(), "e1a4c8d2-6b3f-4f7a-8c9e-2d5b7a1f4e60")
		return
	}

	token, expiresAt, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusOK, responses.LoginResponse{Success: false, Message: "invalid username or password"})
		return
	}
	if err != nil {
		responses.HandleError(c, err, "LOGIN_ERROR")
		return
	}

	c.JSON(http.StatusOK, responses.LoginResponse{
		Success:   true,
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
		Message:   "logged in",
	})
}

// Logout revokes the presented token.
func (h *AdminHandler) Logout(c *gin.Context) {
	token := auth.BearerToken(c.GetHeader("Authorization"))
	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		h.log.Warn().Err(err).Msg("admin logout failed")
		c.JSON(http.StatusOK, responses.MessageResponse{Success: false, Message: "invalid session"})
		return
	}
	c.JSON(http.StatusOK, responses.MessageResponse{Success: true, Message: "logged out"})
}

// GetSettings returns both settings sections with secrets masked.
func (h *AdminHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, responses.BuildSettingsResponse(h.settings.Current()))
}

// UpdateSettings applies a partial update to either section.
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req requests.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error(), "4c9d2f81-7e5a-4b3c-a8d6-1e7f3b9c5a28")
		return
	}

	if err := h.settings.Update(req.GlobalConfig, req.FlowConfig); err != nil {
		if errors.Is(err, config.ErrInvalidSetting) {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error(), "9f3e7b15-2a8c-4d6f-b4e1-6c2a8f5d3b97")
			return
		}
		h.log.Error().Err(err).Msg("failed to persist settings")
		responses.HandleError(c, err, "UPDATE_SETTINGS_ERROR")
		return
	}

	h.log.Info().
		Int("global_keys", len(req.GlobalConfig)).
		Int("flow_keys", len(req.FlowConfig)).
		Msg("settings updated")
	c.JSON(http.StatusOK, responses.MessageResponse{Success: true, Message: "settings updated"})
}

// Credits never fails: problems are reported as success=false.
func (h *AdminHandler) Credits(c *gin.Context) {
	credits, err := h.service.GetCredits(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		h.log.Warn().Err(err).Msg("admin credits lookup failed")
		c.JSON(http.StatusOK, responses.AdminCreditsResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, responses.AdminCreditsResponse{
		Success:         true,
		Credits:         credits.Credits,
		UserPaygateTier: credits.UserPaygateTier,
	})
}
