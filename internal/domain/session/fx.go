package session

import (
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/AhmadKaify/Sanasend/config"
	apikeyhttp "github.com/AhmadKaify/Sanasend/internal/domain/apikey/delivery/http"
	sessionhttp "github.com/AhmadKaify/Sanasend/internal/domain/session/delivery/http"
	"github.com/AhmadKaify/Sanasend/internal/domain/session/deps"
	"github.com/AhmadKaify/Sanasend/internal/domain/session/repository/postgres"
	rediscache "github.com/AhmadKaify/Sanasend/internal/domain/session/repository/redis"
	"github.com/AhmadKaify/Sanasend/internal/domain/session/usecase/business"
	"github.com/AhmadKaify/Sanasend/internal/domain/session/workers"
	"github.com/AhmadKaify/Sanasend/internal/infrastructure/http/server"
	"github.com/AhmadKaify/Sanasend/internal/infrastructure/kafka"
	"github.com/AhmadKaify/Sanasend/internal/infrastructure/metrics"
	"github.com/AhmadKaify/Sanasend/internal/infrastructure/whatsapp"
	pkgerrors "github.com/AhmadKaify/Sanasend/pkg/errors"
)

// Module provides session pool and lifecycle components for fx DI
var Module = fx.Module("session",
	fx.Provide(postgres.NewRepository),
	fx.Provide(NewCacheFx),
	fx.Provide(NewBackendFx),
	fx.Provide(NewStatusPublisherFx),
	fx.Provide(NewPoolFx),
	fx.Provide(NewLifecycleFx),
	fx.Provide(NewSessionHandlerFx),
	fx.Provide(NewSessionRouterFx),
	fx.Invoke(RegisterRoutes),
	workers.Module,
)

// NewCacheFx creates the Redis session cache for fx DI
func NewCacheFx(client *redis.Client, cfg *config.SessionConfig) deps.Cache {
	return rediscache.NewCache(client, cfg)
}

// NewBackendFx exposes the WhatsApp client as the session backend
func NewBackendFx(client *whatsapp.Client) deps.Backend {
	return client
}

// NewStatusPublisherFx exposes the Kafka adapter as the status publisher
func NewStatusPublisherFx(adapter *kafka.EventAdapter) deps.StatusPublisher {
	return adapter
}

// NewPoolFx creates the session pool router for fx DI
func NewPoolFx(
	repo deps.Repository,
	cache deps.Cache,
	backend deps.Backend,
	publisher deps.StatusPublisher,
	m *metrics.Metrics,
	logger zerolog.Logger,
) deps.PoolService {
	return business.NewPool(repo, cache, backend, publisher, m, logger)
}

// NewLifecycleFx creates the session lifecycle service for fx DI
func NewLifecycleFx(
	repo deps.Repository,
	cache deps.Cache,
	backend deps.Backend,
	publisher deps.StatusPublisher,
	cfg *config.SessionConfig,
	m *metrics.Metrics,
	logger zerolog.Logger,
) deps.LifecycleService {
	return business.NewLifecycle(repo, cache, backend, publisher, cfg, m, logger)
}

// NewSessionHandlerFx creates the session handler for fx DI
func NewSessionHandlerFx(
	pool deps.PoolService,
	lifecycle deps.LifecycleService,
	mapper *pkgerrors.Mapper,
	securityCfg *config.SecurityConfig,
	logger zerolog.Logger,
) *sessionhttp.SessionHandler {
	return sessionhttp.NewSessionHandler(pool, lifecycle, mapper, securityCfg, logger)
}

// NewSessionRouterFx creates the session router for fx DI
func NewSessionRouterFx(handler *sessionhttp.SessionHandler, auth *apikeyhttp.AuthMiddleware, logger zerolog.Logger) *sessionhttp.Router {
	return sessionhttp.NewRouter(handler, auth, logger)
}

// RegisterRoutes registers session routes on the server
func RegisterRoutes(server *server.Server, router *sessionhttp.Router) {
	router.RegisterRoutes(server.Router)
}
