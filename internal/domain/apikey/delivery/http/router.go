package http

import (
	"github.com/fasthttp/router"
	"github.com/rs/zerolog"

	"github.com/AhmadKaify/Sanasend/pkg/httputil"
)

// Router registers API key HTTP routes
type Router struct {
	handler *KeyHandler
	auth    *AuthMiddleware
	logger  zerolog.Logger
}

// NewRouter creates a new API key router
func NewRouter(handler *KeyHandler, auth *AuthMiddleware, logger zerolog.Logger) *Router {
	return &Router{
		handler: handler,
		auth:    auth,
		logger:  logger,
	}
}

// RegisterRoutes registers API key routes on the router
func (r *Router) RegisterRoutes(rt *router.Router) {
	api := httputil.NewMiddlewareGroup(rt.Group("/api/v1")).Use(r.auth.Require())

	api.GET("/keys", r.handler.List)
	api.POST("/keys", r.handler.Create)
	api.DELETE("/keys/{id}", r.handler.Deactivate)

	r.logger.Info().Msg("API key routes registered")
}
