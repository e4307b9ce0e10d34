package http

import (
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/AhmadKaify/Sanasend/internal/domain/message/deps"
	"github.com/AhmadKaify/Sanasend/internal/domain/message/dto"
	"github.com/AhmadKaify/Sanasend/internal/domain/message/entities"
	pkgerrors "github.com/AhmadKaify/Sanasend/pkg/errors"
	"github.com/AhmadKaify/Sanasend/pkg/httputil"
)

// MessageHandler handles message HTTP requests
type MessageHandler struct {
	useCase deps.UseCase
	mapper  *pkgerrors.Mapper
	logger  zerolog.Logger
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(useCase deps.UseCase, mapper *pkgerrors.Mapper, logger zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		useCase: useCase,
		mapper:  mapper,
		logger:  logger.With().Str("handler", "messages").Logger(),
	}
}

// SendText handles POST /api/v1/messages/send-text
func (h *MessageHandler) SendText(ctx *fasthttp.RequestCtx) {
	var req dto.SendTextRequest
	if err := httputil.BindJSON(ctx, &req); err != nil {
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}

	h.send(ctx, req.ToMessage())
}

// SendMedia handles POST /api/v1/messages/send-media
func (h *MessageHandler) SendMedia(ctx *fasthttp.RequestCtx) {
	var req dto.SendMediaRequest
	if err := httputil.BindJSON(ctx, &req); err != nil {
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}

	h.send(ctx, req.ToMessage())
}

func (h *MessageHandler) send(ctx *fasthttp.RequestCtx, message *entities.Message) {
	principal, _ := httputil.PrincipalFrom(ctx)

	sent, attempts, err := h.useCase.Send(ctx, principal.UserID, message)
	if err != nil {
		status, msg := h.mapper.MapErrorToHTTP(err)
		if sent == nil {
			httputil.WriteErrorResponse(ctx, msg, status)
			return
		}
		httputil.WriteErrorDetails(ctx, msg, dto.FailureDetails{
			MessageID: sent.ID,
			Attempts:  attempts,
		}, status)
		return
	}

	httputil.WriteResponse(ctx, dto.NewSendResponse(sent, attempts))
}

// List handles GET /api/v1/messages
func (h *MessageHandler) List(ctx *fasthttp.RequestCtx) {
	principal, _ := httputil.PrincipalFrom(ctx)
	limit := ctx.QueryArgs().GetUintOrZero("limit")

	messages, err := h.useCase.List(ctx, principal.UserID, limit)
	if err != nil {
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}
	httputil.WriteResponse(ctx, messages)
}
