package business

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/AhmadKaify/Sanasend/internal/domain/session/deps"
	"github.com/AhmadKaify/Sanasend/internal/domain/session/entities"
	sessionerrors "github.com/AhmadKaify/Sanasend/internal/domain/session/errors"
	"github.com/AhmadKaify/Sanasend/internal/infrastructure/metrics"
)

// Pool routes outbound messages across the connected sessions of a user
type Pool struct {
	repo      deps.Repository
	cache     deps.Cache
	backend   deps.Backend
	publisher deps.StatusPublisher
	metrics   *metrics.Metrics
	logger    zerolog.Logger

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewPool creates a session pool router
func NewPool(
	repo deps.Repository,
	cache deps.Cache,
	backend deps.Backend,
	publisher deps.StatusPublisher,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Pool {
	return &Pool{
		repo:      repo,
		cache:     cache,
		backend:   backend,
		publisher: publisher,
		metrics:   m,
		logger:    logger.With().Str("component", "session_pool").Logger(),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// GetAvailableSessions returns the user's connected sessions through the cache
func (p *Pool) GetAvailableSessions(ctx context.Context, userID uint) ([]entities.Session, error) {
	sessions, hit, err := p.cache.GetConnected(ctx, userID)
	if err != nil {
		p.logger.Warn().Err(err).Uint("user_id", userID).Msg("session cache read failed, falling back to database")
	}
	if hit {
		p.metrics.RecordCacheLookup(true)
		return sessions, nil
	}
	p.metrics.RecordCacheLookup(false)

	sessions, err = p.repo.ListConnected(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := p.cache.SetConnected(ctx, userID, sessions); err != nil {
		p.logger.Warn().Err(err).Uint("user_id", userID).Msg("failed to cache connected sessions")
	}

	return sessions, nil
}

// InvalidateUserSessions drops cached session state for the user
func (p *Pool) InvalidateUserSessions(ctx context.Context, userID uint) {
	if err := p.cache.InvalidateUser(ctx, userID); err != nil {
		p.logger.Warn().Err(err).Uint("user_id", userID).Msg("failed to invalidate session cache")
	}
}

// sessionWeight favours sessions idle for longer
func sessionWeight(s entities.Session, now time.Time) float64 {
	if s.LastActiveAt == nil {
		return 1
	}

	hours := now.Sub(*s.LastActiveAt).Hours()
	if hours < 0 {
		hours = 0
	}
	return 1 + hours
}

// SelectSession picks one session at random, weighted by idle time
func (p *Pool) SelectSession(sessions []entities.Session) (*entities.Session, error) {
	if len(sessions) == 0 {
		return nil, sessionerrors.ErrNoSessionAvailable
	}

	now := p.now()
	weights := make([]float64, len(sessions))
	var total float64
	for i, s := range sessions {
		weights[i] = sessionWeight(s, now)
		total += weights[i]
	}

	p.mu.Lock()
	r := p.rng.Float64() * total
	p.mu.Unlock()

	for i := range sessions {
		r -= weights[i]
		if r < 0 {
			selected := sessions[i]
			return &selected, nil
		}
	}

	selected := sessions[len(sessions)-1]
	return &selected, nil
}

// GetPrimarySession returns the connected primary session or nil
func (p *Pool) GetPrimarySession(ctx context.Context, userID uint) (*entities.Session, error) {
	session, err := p.repo.GetPrimaryConnected(ctx, userID)
	if errors.Is(err, sessionerrors.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// sendOrder puts the primary first and shuffles the rest
func (p *Pool) sendOrder(sessions []entities.Session) []entities.Session {
	ordered := make([]entities.Session, 0, len(sessions))
	rest := make([]entities.Session, 0, len(sessions))

	for _, s := range sessions {
		if s.IsPrimary && len(ordered) == 0 {
			ordered = append(ordered, s)
			continue
		}
		rest = append(rest, s)
	}

	p.mu.Lock()
	p.rng.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
	p.mu.Unlock()

	return append(ordered, rest...)
}

// SendWithFallback tries the user's sessions one at a time until one delivers
func (p *Pool) SendWithFallback(
	ctx context.Context,
	userID uint,
	recipient string,
	payload entities.Payload,
) (*entities.SendResult, error) {
	if !payload.Type.Valid() {
		return nil, sessionerrors.ErrUnsupportedMessageType
	}

	sessions, err := p.GetAvailableSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	if len(sessions) == 0 {
		p.logger.Warn().Uint("user_id", userID).Msg("no connected sessions for send")
		return nil, sessionerrors.ErrNoSessionAvailable
	}

	attempts := make([]entities.Attempt, 0, len(sessions))
	var lastErr error

	for i, session := range p.sendOrder(sessions) {
		receipt, err := p.attempt(ctx, session, recipient, payload)
		p.metrics.RecordSendAttempt(err == nil)

		if err == nil {
			attempts = append(attempts, entities.Attempt{
				SessionID:    session.ID,
				InstanceName: session.InstanceName,
				Success:      true,
			})
			if i > 0 {
				p.metrics.RecordFallback()
			}

			p.logger.Info().
				Uint("user_id", userID).
				Uint("session_id", session.ID).
				Str("instance", session.InstanceName).
				Int("attempts", len(attempts)).
				Msg("message sent")

			return &entities.SendResult{
				Session:   session,
				MessageID: receipt.MessageID,
				Attempts:  attempts,
			}, nil
		}

		lastErr = err
		attempts = append(attempts, entities.Attempt{
			SessionID:    session.ID,
			InstanceName: session.InstanceName,
			Error:        err.Error(),
		})

		p.logger.Warn().
			Err(err).
			Uint("user_id", userID).
			Uint("session_id", session.ID).
			Str("instance", session.InstanceName).
			Msg("send attempt failed")

		if sessionerrors.IndicatesDisconnect(err) {
			p.markDisconnected(ctx, session, "send_failure")
		}

		if ctx.Err() != nil {
			break
		}
	}

	return nil, &sessionerrors.AllSessionsFailedError{Attempts: attempts, LastError: lastErr}
}

// attempt stamps the session and dispatches one send; panics become errors
func (p *Pool) attempt(
	ctx context.Context,
	session entities.Session,
	recipient string,
	payload entities.Payload,
) (receipt *entities.DeliveryReceipt, err error) {
	defer func() {
		if r := recover(); r != nil {
			receipt = nil
			err = fmt.Errorf("unexpected error while sending: %v", r)
		}
	}()

	if err := p.repo.TouchLastActive(ctx, session.ID, p.now()); err != nil {
		p.logger.Warn().Err(err).Uint("session_id", session.ID).Msg("failed to update last_active_at")
	}

	if payload.Type.IsMedia() {
		receipt, err = p.backend.SendMedia(ctx, session.SessionID, recipient, payload.MediaURL, payload.Caption, payload.Type)
	} else {
		receipt, err = p.backend.SendText(ctx, session.SessionID, recipient, payload.Text)
	}
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		receipt = &entities.DeliveryReceipt{}
	}
	return receipt, nil
}

// markDisconnected persists the disconnected status and drops the cache
func (p *Pool) markDisconnected(ctx context.Context, session entities.Session, source string) {
	// Persist even when the request context is already cancelled
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := p.repo.UpdateStatus(persistCtx, session.ID, entities.StatusDisconnected); err != nil {
		p.logger.Error().Err(err).Uint("session_id", session.ID).Msg("failed to mark session disconnected")
		return
	}

	p.metrics.RecordSessionDisconnected(source)
	p.InvalidateUserSessions(persistCtx, session.UserID)

	p.logger.Warn().
		Uint("session_id", session.ID).
		Str("instance", session.InstanceName).
		Str("source", source).
		Msg("session marked disconnected")

	p.publish(persistCtx, session, entities.StatusDisconnected, source)
}

func (p *Pool) publish(ctx context.Context, session entities.Session, status entities.Status, source string) {
	event := entities.StatusChangedEvent{
		UserID:       session.UserID,
		SessionID:    session.ID,
		InstanceName: session.InstanceName,
		Status:       status,
		Source:       source,
		OccurredAt:   p.now(),
	}
	if err := p.publisher.PublishSessionStatus(ctx, event); err != nil {
		p.logger.Warn().Err(err).Uint("session_id", session.ID).Msg("failed to publish session status event")
	}
}

// RotatePrimarySession moves the primary flag from the connected primary to
// another connected session. Without a connected primary nothing changes.
func (p *Pool) RotatePrimarySession(ctx context.Context, userID uint) (*entities.Session, error) {
	connected, err := p.GetAvailableSessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(connected) < 2 {
		return nil, nil
	}

	var previous string
	target, err := p.repo.SwitchPrimary(ctx, userID, func(locked []entities.Session) (*entities.Session, error) {
		var candidates []entities.Session
		for _, s := range locked {
			if s.Status != entities.StatusConnected {
				continue
			}
			if s.IsPrimary {
				previous = s.InstanceName
				continue
			}
			candidates = append(candidates, s)
		}
		// rotation only moves an existing connected primary
		if previous == "" || len(candidates) == 0 {
			return nil, nil
		}
		target := candidates[0]
		return &target, nil
	})
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, nil
	}

	p.InvalidateUserSessions(ctx, userID)
	p.metrics.RecordPrimaryRotation()

	p.logger.Info().
		Uint("user_id", userID).
		Str("from", previous).
		Str("to", target.InstanceName).
		Msg("rotated primary session")

	return target, nil
}

// SetPrimarySession makes the given session the user's primary
func (p *Pool) SetPrimarySession(ctx context.Context, userID, id uint) (*entities.Session, error) {
	target, err := p.repo.SwitchPrimary(ctx, userID, func(locked []entities.Session) (*entities.Session, error) {
		for _, s := range locked {
			if s.ID == id {
				target := s
				return &target, nil
			}
		}
		return nil, sessionerrors.ErrSessionNotFound
	})
	if err != nil {
		return nil, err
	}

	p.InvalidateUserSessions(ctx, userID)
	p.metrics.RecordPrimaryRotation()

	p.logger.Info().
		Uint("user_id", userID).
		Str("instance", target.InstanceName).
		Msg("primary session set")

	return target, nil
}

// GetSessionStats summarises the user's sessions straight from the database
func (p *Pool) GetSessionStats(ctx context.Context, userID uint) (*entities.Stats, error) {
	sessions, err := p.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := &entities.Stats{Total: len(sessions)}
	for _, s := range sessions {
		switch s.Status {
		case entities.StatusConnected:
			stats.Connected++
			if s.IsPrimary && stats.Primary == nil {
				stats.Primary = &entities.PrimaryInfo{ID: s.ID, InstanceName: s.InstanceName}
			}
		case entities.StatusDisconnected:
			stats.Disconnected++
		case entities.StatusQRPending:
			stats.QRPending++
		}
	}
	stats.AvailableForSending = stats.Connected > 0

	return stats, nil
}
