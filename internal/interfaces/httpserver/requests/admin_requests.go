package requests

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateSettingsRequest is a partial update of either settings section.
type UpdateSettingsRequest struct {
	GlobalConfig map[string]any `json:"global_config"`
	FlowConfig   map[string]any `json:"flow_config"`
}
