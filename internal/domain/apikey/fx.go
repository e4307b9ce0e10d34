package apikey

import (
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	apikeyhttp "github.com/AhmadKaify/Sanasend/internal/domain/apikey/delivery/http"
	"github.com/AhmadKaify/Sanasend/internal/domain/apikey/deps"
	"github.com/AhmadKaify/Sanasend/internal/domain/apikey/repository/postgres"
	"github.com/AhmadKaify/Sanasend/internal/domain/apikey/usecase/business"
	userdeps "github.com/AhmadKaify/Sanasend/internal/domain/user/deps"
	"github.com/AhmadKaify/Sanasend/internal/infrastructure/http/server"
	"github.com/AhmadKaify/Sanasend/internal/infrastructure/metrics"
)

// Module provides API key authentication components for fx DI
var Module = fx.Module("apikey",
	fx.Provide(postgres.NewRepository),
	fx.Provide(business.NewKeyHasher),
	fx.Provide(NewAuthenticatorFx),
	fx.Provide(apikeyhttp.NewAuthMiddleware),
	fx.Provide(apikeyhttp.NewKeyHandler),
	fx.Provide(NewRouterFx),
	fx.Invoke(RegisterRoutes),
)

// NewAuthenticatorFx creates the authenticator for fx DI
func NewAuthenticatorFx(
	repo deps.Repository,
	users userdeps.Repository,
	hasher *business.KeyHasher,
	m *metrics.Metrics,
	logger zerolog.Logger,
) deps.Authenticator {
	return business.NewAuthenticator(repo, users, hasher, m, logger)
}

// NewRouterFx creates the API key router for fx DI
func NewRouterFx(handler *apikeyhttp.KeyHandler, auth *apikeyhttp.AuthMiddleware, logger zerolog.Logger) *apikeyhttp.Router {
	return apikeyhttp.NewRouter(handler, auth, logger)
}

// RegisterRoutes registers API key routes on the server
func RegisterRoutes(server *server.Server, router *apikeyhttp.Router) {
	router.RegisterRoutes(server.Router)
}
