package http

import (
	"github.com/fasthttp/router"
	"github.com/rs/zerolog"

	apikeyhttp "github.com/AhmadKaify/Sanasend/internal/domain/apikey/delivery/http"
	"github.com/AhmadKaify/Sanasend/pkg/httputil"
)

// Router registers session HTTP routes
type Router struct {
	handler *SessionHandler
	auth    *apikeyhttp.AuthMiddleware
	logger  zerolog.Logger
}

// NewRouter creates a new session router
func NewRouter(handler *SessionHandler, auth *apikeyhttp.AuthMiddleware, logger zerolog.Logger) *Router {
	return &Router{
		handler: handler,
		auth:    auth,
		logger:  logger,
	}
}

// RegisterRoutes registers session routes on the router
func (r *Router) RegisterRoutes(rt *router.Router) {
	api := httputil.NewMiddlewareGroup(rt.Group("/api/v1")).Use(r.auth.Require())

	api.GET("/sessions", r.handler.List)
	api.POST("/sessions", r.handler.Init)
	api.GET("/sessions/stats", r.handler.Stats)
	api.POST("/sessions/rotate", r.handler.Rotate)
	api.GET("/sessions/{id}", r.handler.Get)
	api.DELETE("/sessions/{id}", r.handler.Delete)
	api.POST("/sessions/{id}/refresh-qr", r.handler.RefreshQR)
	api.POST("/sessions/{id}/disconnect", r.handler.Disconnect)
	api.POST("/sessions/{id}/primary", r.handler.SetPrimary)

	// Backend callbacks authenticate with the shared webhook key
	rt.POST("/api/v1/webhooks/session-status", r.handler.StatusWebhook)

	r.logger.Info().Msg("session routes registered")
}
