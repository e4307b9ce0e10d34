package http

import (
	"net"
	"strings"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/AhmadKaify/Sanasend/config"
	"github.com/AhmadKaify/Sanasend/internal/domain/apikey/deps"
	"github.com/AhmadKaify/Sanasend/internal/utils"
	pkgerrors "github.com/AhmadKaify/Sanasend/pkg/errors"
	"github.com/AhmadKaify/Sanasend/pkg/httputil"
)

const authScheme = "ApiKey"

// AuthMiddleware authenticates requests by API key
type AuthMiddleware struct {
	auth    deps.Authenticator
	mapper  *pkgerrors.Mapper
	proxies []*net.IPNet
	logger  zerolog.Logger
}

// NewAuthMiddleware creates the API key middleware factory
func NewAuthMiddleware(
	auth deps.Authenticator,
	mapper *pkgerrors.Mapper,
	security *config.SecurityConfig,
	logger zerolog.Logger,
) (*AuthMiddleware, error) {
	proxies, err := utils.ParseTrustedProxies(security.TrustedProxies)
	if err != nil {
		return nil, err
	}

	return &AuthMiddleware{
		auth:    auth,
		mapper:  mapper,
		proxies: proxies,
		logger:  logger.With().Str("component", "auth_middleware").Logger(),
	}, nil
}

// ExtractKey reads the key from "Authorization: ApiKey <key>" or X-API-Key
func ExtractKey(ctx *fasthttp.RequestCtx) string {
	header := string(ctx.Request.Header.Peek(fasthttp.HeaderAuthorization))
	if scheme, key, ok := strings.Cut(header, " "); ok && scheme == authScheme {
		return strings.TrimSpace(key)
	}

	return strings.TrimSpace(string(ctx.Request.Header.Peek("X-API-Key")))
}

// Require rejects requests without a valid key and stores the principal
func (m *AuthMiddleware) Require() httputil.Middleware {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			clientIP := utils.ClientIP(
				string(ctx.Request.Header.Peek("X-Forwarded-For")),
				ctx.RemoteAddr().String(),
				m.proxies,
			)

			identity, err := m.auth.Authenticate(ctx, ExtractKey(ctx), clientIP)
			if err != nil {
				status, message := m.mapper.MapErrorToHTTP(err)
				if status == fasthttp.StatusUnauthorized {
					ctx.Response.Header.Set(fasthttp.HeaderWWWAuthenticate, authScheme)
				}
				httputil.WriteErrorResponse(ctx, message, status)
				return
			}

			httputil.SetPrincipal(ctx, &httputil.Principal{
				UserID:     identity.UserID,
				KeyID:      identity.KeyID,
				DailyLimit: identity.DailyLimit,
			})

			next(ctx)
		}
	}
}
