package v1

import (
	"github.com/gin-gonic/gin"

	"jan-server/services/flow-api/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
	apiKey   gin.HandlerFunc
	admin    gin.HandlerFunc
}

// NewRoutes takes the public API key check and the admin session check.
func NewRoutes(provider *handlers.Provider, apiKey, admin gin.HandlerFunc) *Routes {
	return &Routes{handlers: provider, apiKey: apiKey, admin: admin}
}

// Register attaches the public API under /v1 and the admin API under /api.
func (r *Routes) Register(router gin.IRouter) {
	public := router.Group("/v1", r.apiKey)
	public.POST("/video/generations", r.handlers.Video.Generate)
	public.GET("/video/generations", r.handlers.Video.List)
	public.GET("/video/generations/:id", r.handlers.Video.Status)
	public.GET("/video/credits", r.handlers.Video.Credits)
	public.POST("/images/generations", r.handlers.Image.Generate)

	adminAPI := router.Group("/api")
	adminAPI.POST("/login", r.handlers.Admin.Login)

	session := adminAPI.Group("", r.admin)
	session.POST("/logout", r.handlers.Admin.Logout)
	session.GET("/settings", r.handlers.Admin.GetSettings)
	session.POST("/settings", r.handlers.Admin.UpdateSettings)
	session.GET("/credits", r.handlers.Admin.Credits)
}
