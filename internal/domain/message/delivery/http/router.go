package http

import (
	"github.com/fasthttp/router"
	"github.com/rs/zerolog"

	apikeyhttp "github.com/AhmadKaify/Sanasend/internal/domain/apikey/delivery/http"
	ratelimithttp "github.com/AhmadKaify/Sanasend/internal/domain/ratelimit/delivery/http"
	ratelimitentities "github.com/AhmadKaify/Sanasend/internal/domain/ratelimit/entities"
	"github.com/AhmadKaify/Sanasend/pkg/httputil"
)

// Router registers message HTTP routes
type Router struct {
	handler *MessageHandler
	auth    *apikeyhttp.AuthMiddleware
	limits  *ratelimithttp.Middleware
	logger  zerolog.Logger
}

// NewRouter creates a new message router
func NewRouter(
	handler *MessageHandler,
	auth *apikeyhttp.AuthMiddleware,
	limits *ratelimithttp.Middleware,
	logger zerolog.Logger,
) *Router {
	return &Router{
		handler: handler,
		auth:    auth,
		limits:  limits,
		logger:  logger,
	}
}

// RegisterRoutes registers message routes on the router
func (r *Router) RegisterRoutes(rt *router.Router) {
	api := httputil.NewMiddlewareGroup(rt.Group("/api/v1")).Use(r.auth.Require())
	send := api.Group("/messages").Use(r.limits.Enforce())

	send.POST("/send-text", r.limits.Track("send_text", ratelimitentities.KindText)(r.handler.SendText))
	send.POST("/send-media", r.limits.Track("send_media", ratelimitentities.KindMedia)(r.handler.SendMedia))
	api.GET("/messages", r.limits.Track("list_messages", ratelimitentities.KindNone)(r.handler.List))

	r.logger.Info().Msg("message routes registered")
}
