package responses

import "jan-server/services/flow-api/internal/config"

// LoginResponse answers POST /api/login.
type LoginResponse struct {
	Success   bool   `json:"success"`
	Token     string `json:"token,omitempty"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
	Message   string `json:"message"`
}

// MessageResponse is a plain success flag with a message.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SettingsData groups both settings sections.
type SettingsData struct {
	Global config.GlobalSettings `json:"global"`
	Flow   config.FlowSettings   `json:"flow"`
}

// SettingsResponse answers GET /api/settings.
type SettingsResponse struct {
	Success bool         `json:"success"`
	Data    SettingsData `json:"data"`
}

// BuildSettingsResponse masks secrets before they leave the process.
func BuildSettingsResponse(settings config.Settings) *SettingsResponse {
	global := settings.Global
	global.AdminPassword = config.MaskSecret(global.AdminPassword)
	flow := settings.Flow
	flow.SessionToken = config.MaskSecret(flow.SessionToken)
	flow.CSRFToken = config.MaskSecret(flow.CSRFToken)
	return &SettingsResponse{
		Success: true,
		Data:    SettingsData{Global: global, Flow: flow},
	}
}

// AdminCreditsResponse answers GET /api/credits. It is always 200.
type AdminCreditsResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message,omitempty"`
	Credits         int    `json:"credits"`
	UserPaygateTier string `json:"user_paygate_tier"`
}
