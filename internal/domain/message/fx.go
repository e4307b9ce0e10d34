package message

import (
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	apikeyhttp "github.com/AhmadKaify/Sanasend/internal/domain/apikey/delivery/http"
	messagehttp "github.com/AhmadKaify/Sanasend/internal/domain/message/delivery/http"
	"github.com/AhmadKaify/Sanasend/internal/domain/message/deps"
	"github.com/AhmadKaify/Sanasend/internal/domain/message/repository/postgres"
	"github.com/AhmadKaify/Sanasend/internal/domain/message/usecase/business"
	ratelimithttp "github.com/AhmadKaify/Sanasend/internal/domain/ratelimit/delivery/http"
	sessiondeps "github.com/AhmadKaify/Sanasend/internal/domain/session/deps"
	"github.com/AhmadKaify/Sanasend/internal/infrastructure/http/server"
	"github.com/AhmadKaify/Sanasend/internal/infrastructure/kafka"
	"github.com/AhmadKaify/Sanasend/internal/infrastructure/metrics"
)

// Module provides message sending components for fx DI
var Module = fx.Module("message",
	fx.Provide(postgres.NewRepository),
	fx.Provide(NewUseCaseFx),
	fx.Provide(messagehttp.NewMessageHandler),
	fx.Provide(NewMessageRouterFx),
	fx.Invoke(RegisterRoutes),
)

// NewUseCaseFx wires the session pool and Kafka adapter into the message use case
func NewUseCaseFx(
	repo deps.Repository,
	pool sessiondeps.PoolService,
	adapter *kafka.EventAdapter,
	m *metrics.Metrics,
	logger zerolog.Logger,
) deps.UseCase {
	return business.NewUseCase(repo, pool, adapter, m, logger)
}

// NewMessageRouterFx creates the message router for fx DI
func NewMessageRouterFx(
	handler *messagehttp.MessageHandler,
	auth *apikeyhttp.AuthMiddleware,
	limits *ratelimithttp.Middleware,
	logger zerolog.Logger,
) *messagehttp.Router {
	return messagehttp.NewRouter(handler, auth, limits, logger)
}

// RegisterRoutes registers message routes on the server
func RegisterRoutes(server *server.Server, router *messagehttp.Router) {
	router.RegisterRoutes(server.Router)
}
