package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kantikoala/planner-api/internal/middleware"
	"github.com/kantikoala/planner-api/internal/service"
)

// Handlers bundles every HTTP handler of the API.
type Handlers struct {
	Auth     *AuthHandler
	Events   *EventHandler
	Settings *SettingsHandler
	Plan     *PlanHandler
}

// RegisterRoutes mounts all API routes under the given prefix. Everything
// except registration and login requires a valid token.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, authService *service.AuthService) {
	api := r.Group(prefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.GET("/me", middleware.JWT(authService), h.Auth.Me)
	}

	secured := api.Group("", middleware.JWT(authService))
	{
		secured.GET("/events", h.Events.List)
		secured.POST("/events", h.Events.Create)
		secured.PUT("/events/:id", h.Events.Update)
		secured.DELETE("/events/:id", h.Events.Delete)
		secured.POST("/events/import-ics", h.Events.ImportICS)
		// Route kept for clients of the original calendar UI.
		secured.POST("/events/run-learning-algorithm", h.Plan.Run)

		secured.GET("/settings", h.Settings.Get)
		secured.PUT("/settings", h.Settings.Update)
		secured.POST("/settings/priorities", h.Settings.AddPriority)
		secured.DELETE("/settings/priorities/:level", h.Settings.RemovePriority)

		secured.POST("/plan/run", h.Plan.Run)
		secured.GET("/plan/report", h.Plan.Report)
		secured.GET("/plan/export", h.Plan.Export)
	}
}
