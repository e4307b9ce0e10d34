package business

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/AhmadKaify/Sanasend/internal/domain/message/deps"
	"github.com/AhmadKaify/Sanasend/internal/domain/message/entities"
	messageerrors "github.com/AhmadKaify/Sanasend/internal/domain/message/errors"
	sessionentities "github.com/AhmadKaify/Sanasend/internal/domain/session/entities"
	sessionerrors "github.com/AhmadKaify/Sanasend/internal/domain/session/errors"
	"github.com/AhmadKaify/Sanasend/internal/infrastructure/metrics"
	"github.com/AhmadKaify/Sanasend/internal/utils"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

var phonePattern = regexp.MustCompile(`^\+?1?\d{9,15}$`)

// UseCase records outbound messages and delivers them through the session pool
type UseCase struct {
	repo      deps.Repository
	sender    deps.Sender
	publisher deps.EventPublisher
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	now       func() time.Time
}

// NewUseCase creates the message use case
func NewUseCase(
	repo deps.Repository,
	sender deps.Sender,
	publisher deps.EventPublisher,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *UseCase {
	return &UseCase{
		repo:      repo,
		sender:    sender,
		publisher: publisher,
		metrics:   m,
		logger:    logger.With().Str("component", "message_usecase").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func validate(message *entities.Message) error {
	message.Recipient = strings.TrimSpace(message.Recipient)
	if !phonePattern.MatchString(message.Recipient) {
		return messageerrors.ErrInvalidRecipient
	}
	if !message.Type.Valid() {
		return sessionerrors.ErrUnsupportedMessageType
	}
	if strings.TrimSpace(message.Content) == "" {
		if message.Type.IsMedia() {
			return messageerrors.ErrMediaURLRequired
		}
		return messageerrors.ErrEmptyContent
	}
	return nil
}

// Send stores the message as pending, delivers it with fallback across the
// user's sessions and records the outcome
func (uc *UseCase) Send(
	ctx context.Context,
	userID uint,
	message *entities.Message,
) (*entities.Message, []sessionentities.Attempt, error) {
	if err := validate(message); err != nil {
		return nil, nil, err
	}

	sessions, err := uc.sender.GetAvailableSessions(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if len(sessions) == 0 {
		uc.metrics.RecordMessage("no_session")
		return nil, nil, sessionerrors.ErrNoSessionAvailable
	}

	message.ID = 0
	message.UserID = userID
	message.Status = entities.StatusPending
	if err := uc.repo.Create(ctx, message); err != nil {
		return nil, nil, err
	}

	result, sendErr := uc.sender.SendWithFallback(ctx, userID, message.Recipient, message.Payload())

	var attempts []sessionentities.Attempt
	if sendErr != nil {
		var failed *sessionerrors.AllSessionsFailedError
		if errors.As(sendErr, &failed) {
			attempts = failed.Attempts
		}
		message.Status = entities.StatusFailed
		message.ErrorMessage = sendErr.Error()
		message.Attempts = len(attempts)
	} else {
		attempts = result.Attempts
		sentAt := uc.now()
		sessionID := result.Session.ID
		message.Status = entities.StatusSent
		message.SessionID = &sessionID
		message.BackendMessageID = result.MessageID
		message.Attempts = len(attempts)
		message.SentAt = &sentAt
	}

	// The outcome is stored even if the caller went away mid-send
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := uc.repo.Update(persistCtx, message); err != nil {
		uc.logger.Error().Err(err).Uint("message_id", message.ID).Msg("failed to store message outcome")
	}

	uc.metrics.RecordMessage(string(message.Status))
	if err := uc.publisher.PublishMessageResult(persistCtx, entities.NewResultEvent(message)); err != nil {
		uc.logger.Warn().Err(err).Uint("message_id", message.ID).Msg("failed to publish message event")
	}

	if sendErr != nil {
		uc.logger.Error().
			Err(sendErr).
			Uint("user_id", userID).
			Uint("message_id", message.ID).
			Str("recipient", utils.MaskPhoneNumber(message.Recipient)).
			Int("attempts", message.Attempts).
			Msg("message delivery failed")
		return message, attempts, sendErr
	}

	uc.logger.Info().
		Uint("user_id", userID).
		Uint("message_id", message.ID).
		Str("recipient", utils.MaskPhoneNumber(message.Recipient)).
		Str("instance", result.Session.InstanceName).
		Int("attempts", message.Attempts).
		Msg("message delivered")

	return message, attempts, nil
}

// List returns the user's most recent messages
func (uc *UseCase) List(ctx context.Context, userID uint, limit int) ([]entities.Message, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return uc.repo.ListByUser(ctx, userID, limit)
}
