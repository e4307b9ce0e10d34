package http

import (
	"strconv"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/AhmadKaify/Sanasend/internal/domain/apikey/deps"
	"github.com/AhmadKaify/Sanasend/internal/domain/apikey/dto"
	pkgerrors "github.com/AhmadKaify/Sanasend/pkg/errors"
	"github.com/AhmadKaify/Sanasend/pkg/httputil"
)

// KeyHandler handles API key management requests
type KeyHandler struct {
	auth   deps.Authenticator
	mapper *pkgerrors.Mapper
	logger zerolog.Logger
}

// NewKeyHandler creates a new API key handler
func NewKeyHandler(auth deps.Authenticator, mapper *pkgerrors.Mapper, logger zerolog.Logger) *KeyHandler {
	return &KeyHandler{
		auth:   auth,
		mapper: mapper,
		logger: logger.With().Str("handler", "api_keys").Logger(),
	}
}

// Create handles POST /api/v1/keys
func (h *KeyHandler) Create(ctx *fasthttp.RequestCtx) {
	principal, _ := httputil.PrincipalFrom(ctx)

	var req dto.CreateKeyRequest
	if err := httputil.BindJSON(ctx, &req); err != nil {
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}

	created, err := h.auth.CreateKey(ctx, principal.UserID, req.Name, req.ExpiresAt, req.IPWhitelist)
	if err != nil {
		h.logger.Error().Err(err).Uint("user_id", principal.UserID).Msg("failed to create api key")
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}

	httputil.WriteResponseWithStatus(ctx, dto.CreateKeyResponse{
		KeyResponse: dto.NewKeyResponse(&created.APIKey),
		Key:         created.RawKey,
		Warning:     "store this key now, it cannot be shown again",
	}, fasthttp.StatusCreated)
}

// List handles GET /api/v1/keys
func (h *KeyHandler) List(ctx *fasthttp.RequestCtx) {
	principal, _ := httputil.PrincipalFrom(ctx)

	keys, err := h.auth.List(ctx, principal.UserID)
	if err != nil {
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}

	resp := make([]dto.KeyResponse, len(keys))
	for i := range keys {
		resp[i] = dto.NewKeyResponse(&keys[i])
	}
	httputil.WriteResponse(ctx, resp)
}

// Deactivate handles DELETE /api/v1/keys/{id}
func (h *KeyHandler) Deactivate(ctx *fasthttp.RequestCtx) {
	principal, _ := httputil.PrincipalFrom(ctx)

	raw, _ := ctx.UserValue("id").(string)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		httputil.WriteErrorResponse(ctx, "invalid key id", fasthttp.StatusBadRequest)
		return
	}

	if err := h.auth.Deactivate(ctx, principal.UserID, uint(id)); err != nil {
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}

	httputil.WriteResponse(ctx, map[string]interface{}{"id": id, "is_active": false})
}
