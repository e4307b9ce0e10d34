package http

import (
	"crypto/subtle"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/AhmadKaify/Sanasend/config"
	"github.com/AhmadKaify/Sanasend/internal/domain/session/deps"
	"github.com/AhmadKaify/Sanasend/internal/domain/session/dto"
	pkgerrors "github.com/AhmadKaify/Sanasend/pkg/errors"
	"github.com/AhmadKaify/Sanasend/pkg/httputil"
)

// SessionHandler handles session management HTTP requests
type SessionHandler struct {
	pool       deps.PoolService
	lifecycle  deps.LifecycleService
	mapper     *pkgerrors.Mapper
	webhookKey string
	logger     zerolog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(
	pool deps.PoolService,
	lifecycle deps.LifecycleService,
	mapper *pkgerrors.Mapper,
	securityCfg *config.SecurityConfig,
	logger zerolog.Logger,
) *SessionHandler {
	return &SessionHandler{
		pool:       pool,
		lifecycle:  lifecycle,
		mapper:     mapper,
		webhookKey: securityCfg.WebhookKey,
		logger:     logger.With().Str("handler", "sessions").Logger(),
	}
}

func sessionID(ctx *fasthttp.RequestCtx) (uint, bool) {
	raw, _ := ctx.UserValue("id").(string)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		httputil.WriteErrorResponse(ctx, "invalid session id", fasthttp.StatusBadRequest)
		return 0, false
	}
	return uint(id), true
}

func userID(ctx *fasthttp.RequestCtx) uint {
	principal, _ := httputil.PrincipalFrom(ctx)
	return principal.UserID
}

// List handles GET /api/v1/sessions
func (h *SessionHandler) List(ctx *fasthttp.RequestCtx) {
	sessions, err := h.lifecycle.List(ctx, userID(ctx))
	if err != nil {
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}
	httputil.WriteResponse(ctx, sessions)
}

// Stats handles GET /api/v1/sessions/stats
func (h *SessionHandler) Stats(ctx *fasthttp.RequestCtx) {
	stats, err := h.pool.GetSessionStats(ctx, userID(ctx))
	if err != nil {
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}
	httputil.WriteResponse(ctx, stats)
}

// Init handles POST /api/v1/sessions
func (h *SessionHandler) Init(ctx *fasthttp.RequestCtx) {
	var req dto.InitSessionRequest
	if err := httputil.BindJSON(ctx, &req); err != nil {
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}

	session, err := h.lifecycle.InitSession(ctx, userID(ctx), req.InstanceName)
	if err != nil {
		h.logger.Warn().Err(err).Str("instance", req.InstanceName).Msg("failed to initialize session")
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}
	httputil.WriteResponseWithStatus(ctx, session, fasthttp.StatusCreated)
}

// Get handles GET /api/v1/sessions/{id}
func (h *SessionHandler) Get(ctx *fasthttp.RequestCtx) {
	id, ok := sessionID(ctx)
	if !ok {
		return
	}

	session, err := h.lifecycle.Get(ctx, userID(ctx), id)
	if err != nil {
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}
	httputil.WriteResponse(ctx, session)
}

// RefreshQR handles POST /api/v1/sessions/{id}/refresh-qr
func (h *SessionHandler) RefreshQR(ctx *fasthttp.RequestCtx) {
	id, ok := sessionID(ctx)
	if !ok {
		return
	}

	session, err := h.lifecycle.RefreshQR(ctx, userID(ctx), id)
	if err != nil {
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}
	httputil.WriteResponse(ctx, session)
}

// Disconnect handles POST /api/v1/sessions/{id}/disconnect
func (h *SessionHandler) Disconnect(ctx *fasthttp.RequestCtx) {
	id, ok := sessionID(ctx)
	if !ok {
		return
	}

	session, err := h.lifecycle.Disconnect(ctx, userID(ctx), id)
	if err != nil {
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}
	httputil.WriteResponse(ctx, session)
}

// Delete handles DELETE /api/v1/sessions/{id}
func (h *SessionHandler) Delete(ctx *fasthttp.RequestCtx) {
	id, ok := sessionID(ctx)
	if !ok {
		return
	}

	if err := h.lifecycle.Delete(ctx, userID(ctx), id); err != nil {
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}
	httputil.WriteResponse(ctx, map[string]uint{"deleted": id})
}

// SetPrimary handles POST /api/v1/sessions/{id}/primary
func (h *SessionHandler) SetPrimary(ctx *fasthttp.RequestCtx) {
	id, ok := sessionID(ctx)
	if !ok {
		return
	}

	session, err := h.pool.SetPrimarySession(ctx, userID(ctx), id)
	if err != nil {
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}
	httputil.WriteResponse(ctx, session)
}

// Rotate handles POST /api/v1/sessions/rotate
func (h *SessionHandler) Rotate(ctx *fasthttp.RequestCtx) {
	session, err := h.pool.RotatePrimarySession(ctx, userID(ctx))
	if err != nil {
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}
	httputil.WriteResponse(ctx, dto.RotateResponse{Rotated: session != nil, Primary: session})
}

// StatusWebhook handles POST /api/v1/webhooks/session-status from the backend
func (h *SessionHandler) StatusWebhook(ctx *fasthttp.RequestCtx) {
	presented := ctx.Request.Header.Peek("X-API-Key")
	if h.webhookKey == "" || subtle.ConstantTimeCompare(presented, []byte(h.webhookKey)) != 1 {
		h.logger.Warn().Str("remote", ctx.RemoteAddr().String()).Msg("rejected webhook with bad key")
		httputil.WriteErrorResponse(ctx, "unauthorized", fasthttp.StatusUnauthorized)
		return
	}

	var req dto.StatusWebhookRequest
	if err := httputil.BindJSON(ctx, &req); err != nil {
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}

	session, err := h.lifecycle.ApplyStatusUpdate(ctx, req.ToUpdate())
	if err != nil {
		h.logger.Warn().
			Err(err).
			Str("session_id", req.SessionID).
			Str("status", req.Status).
			Str("reason", req.Reason).
			Str("backend_error", req.Error).
			Msg("failed to apply webhook status")
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}
	httputil.WriteResponse(ctx, map[string]interface{}{"id": session.ID, "status": session.Status})
}
