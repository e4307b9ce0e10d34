package business

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/AhmadKaify/Sanasend/config"
	"github.com/AhmadKaify/Sanasend/internal/domain/session/deps"
	"github.com/AhmadKaify/Sanasend/internal/domain/session/entities"
	sessionerrors "github.com/AhmadKaify/Sanasend/internal/domain/session/errors"
	"github.com/AhmadKaify/Sanasend/internal/infrastructure/metrics"
	"github.com/AhmadKaify/Sanasend/internal/utils"
)

const maxInstanceNameLength = 100

// Lifecycle pairs, refreshes and tears down sessions
type Lifecycle struct {
	repo      deps.Repository
	cache     deps.Cache
	backend   deps.Backend
	publisher deps.StatusPublisher
	cfg       *config.SessionConfig
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	now       func() time.Time
}

// NewLifecycle creates the session lifecycle service
func NewLifecycle(
	repo deps.Repository,
	cache deps.Cache,
	backend deps.Backend,
	publisher deps.StatusPublisher,
	cfg *config.SessionConfig,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Lifecycle {
	return &Lifecycle{
		repo:      repo,
		cache:     cache,
		backend:   backend,
		publisher: publisher,
		cfg:       cfg,
		metrics:   m,
		logger:    logger.With().Str("component", "session_lifecycle").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// BackendSessionID derives the backend identifier for an instance
func BackendSessionID(userID uint, instanceName string) string {
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(instanceName)), " ", "_")
	return fmt.Sprintf("user_%d_instance_%s", userID, slug)
}

func (l *Lifecycle) invalidate(ctx context.Context, userID uint) {
	if err := l.cache.InvalidateUser(ctx, userID); err != nil {
		l.logger.Warn().Err(err).Uint("user_id", userID).Msg("failed to invalidate session cache")
	}
}

func (l *Lifecycle) publish(ctx context.Context, s *entities.Session, source string) {
	event := entities.StatusChangedEvent{
		UserID:       s.UserID,
		SessionID:    s.ID,
		InstanceName: s.InstanceName,
		Status:       s.Status,
		Source:       source,
		OccurredAt:   l.now(),
	}
	if err := l.publisher.PublishSessionStatus(ctx, event); err != nil {
		l.logger.Warn().Err(err).Uint("session_id", s.ID).Msg("failed to publish session status event")
	}
}

// applyInit copies a backend init result onto the session
func (l *Lifecycle) applyInit(s *entities.Session, result *entities.InitResult) {
	now := l.now()

	s.Status = result.Status
	if !s.Status.Valid() {
		s.Status = entities.StatusQRPending
	}

	s.QRCode = result.QRCode
	s.QRExpiresAt = nil
	if result.QRCode != "" {
		expires := now.Add(l.cfg.QRTTL)
		s.QRExpiresAt = &expires
	}

	if result.PhoneNumber != "" {
		s.PhoneNumber = result.PhoneNumber
	}
	if s.Status == entities.StatusConnected && s.ConnectedAt == nil {
		s.ConnectedAt = &now
	}
}

// InitSession registers a new instance with the backend and stores it
func (l *Lifecycle) InitSession(ctx context.Context, userID uint, instanceName string) (*entities.Session, error) {
	instanceName = strings.TrimSpace(instanceName)
	if instanceName == "" || len(instanceName) > maxInstanceNameLength {
		return nil, sessionerrors.ErrInvalidInstanceName
	}

	exists, err := l.repo.InstanceExists(ctx, userID, instanceName)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, sessionerrors.ErrInstanceExists
	}

	count, err := l.repo.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if count >= int64(l.cfg.MaxPerUser) {
		return nil, sessionerrors.ErrSessionLimitReached
	}

	sessionID := BackendSessionID(userID, instanceName)

	result, err := l.backend.InitSession(ctx, userID, sessionID)
	if err != nil {
		l.logger.Error().Err(err).Uint("user_id", userID).Str("session_id", sessionID).Msg("backend init failed")
		return nil, err
	}

	session := &entities.Session{
		UserID:       userID,
		InstanceName: instanceName,
		SessionID:    sessionID,
	}
	l.applyInit(session, result)

	if err := l.repo.Create(ctx, session, l.cfg.MaxPerUser); err != nil {
		if derr := l.backend.Disconnect(context.WithoutCancel(ctx), sessionID); derr != nil {
			l.logger.Warn().Err(derr).Str("session_id", sessionID).Msg("failed to release backend session after create error")
		}
		return nil, err
	}

	l.invalidate(ctx, userID)
	l.publish(ctx, session, "init")

	l.logger.Info().
		Uint("user_id", userID).
		Str("instance", instanceName).
		Str("status", string(session.Status)).
		Bool("primary", session.IsPrimary).
		Msg("session initialized")

	return session, nil
}

// RefreshQR re-pairs a session that is not connected under a fresh backend id
func (l *Lifecycle) RefreshQR(ctx context.Context, userID, id uint) (*entities.Session, error) {
	session, err := l.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if session.Status == entities.StatusConnected {
		return nil, sessionerrors.ErrAlreadyConnected
	}

	if err := l.backend.Disconnect(ctx, session.SessionID); err != nil {
		l.logger.Debug().Err(err).Str("session_id", session.SessionID).Msg("old backend session not released")
	}

	newID := fmt.Sprintf("%s_%d", BackendSessionID(userID, session.InstanceName), l.now().Unix())

	result, err := l.backend.InitSession(ctx, userID, newID)
	if err != nil {
		return nil, err
	}

	session.SessionID = newID
	l.applyInit(session, result)

	if err := l.repo.Update(ctx, session); err != nil {
		return nil, err
	}

	l.invalidate(ctx, userID)
	l.publish(ctx, session, "refresh_qr")

	l.logger.Info().
		Uint("user_id", userID).
		Str("instance", session.InstanceName).
		Msg("session QR refreshed")

	return session, nil
}

// Disconnect logs the device out and clears pairing data
func (l *Lifecycle) Disconnect(ctx context.Context, userID, id uint) (*entities.Session, error) {
	session, err := l.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if err := l.backend.Disconnect(ctx, session.SessionID); err != nil {
		l.logger.Warn().Err(err).Str("session_id", session.SessionID).Msg("backend disconnect failed, marking disconnected locally")
	}

	session.Status = entities.StatusDisconnected
	session.QRCode = ""
	session.QRExpiresAt = nil

	if err := l.repo.Update(ctx, session); err != nil {
		return nil, err
	}

	l.metrics.RecordSessionDisconnected("user")
	l.invalidate(ctx, userID)
	l.publish(ctx, session, "user")

	return session, nil
}

// Delete removes a session, logging it out first when connected
func (l *Lifecycle) Delete(ctx context.Context, userID, id uint) error {
	session, err := l.repo.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}

	if session.Status == entities.StatusConnected {
		if err := l.backend.Disconnect(ctx, session.SessionID); err != nil {
			l.logger.Warn().Err(err).Str("session_id", session.SessionID).Msg("backend disconnect failed before delete")
		}
	}

	if err := l.repo.Delete(ctx, session.ID); err != nil {
		return err
	}

	l.invalidate(ctx, userID)

	l.logger.Info().
		Uint("user_id", userID).
		Str("instance", session.InstanceName).
		Msg("session deleted")

	return nil
}

// List returns every session of the user
func (l *Lifecycle) List(ctx context.Context, userID uint) ([]entities.Session, error) {
	return l.repo.ListByUser(ctx, userID)
}

// Get returns one session of the user
func (l *Lifecycle) Get(ctx context.Context, userID, id uint) (*entities.Session, error) {
	return l.repo.GetByID(ctx, userID, id)
}

// ApplyStatusUpdate records a status pushed by the backend
func (l *Lifecycle) ApplyStatusUpdate(ctx context.Context, update entities.StatusUpdate) (*entities.Session, error) {
	if update.SessionID == "" {
		return nil, sessionerrors.ErrSessionNotFound
	}
	if !update.Status.Valid() {
		return nil, sessionerrors.ErrInvalidStatus
	}

	session, err := l.repo.GetBySessionID(ctx, update.SessionID)
	if err != nil {
		return nil, err
	}

	now := l.now()
	session.Status = update.Status
	session.LastActiveAt = &now

	switch update.Status {
	case entities.StatusConnected:
		if update.PhoneNumber != "" {
			session.PhoneNumber = update.PhoneNumber
		}
		if session.ConnectedAt == nil {
			session.ConnectedAt = &now
		}
		session.QRCode = ""
		session.QRExpiresAt = nil
	case entities.StatusQRPending:
		if update.QRCode != "" {
			expires := now.Add(l.cfg.QRTTL)
			session.QRCode = update.QRCode
			session.QRExpiresAt = &expires
		}
	case entities.StatusDisconnected, entities.StatusAuthFailed:
		session.QRCode = ""
		session.QRExpiresAt = nil
	}

	if err := l.repo.Update(ctx, session); err != nil {
		return nil, err
	}

	l.invalidate(ctx, session.UserID)
	l.publish(ctx, session, "webhook")

	l.logger.Info().
		Str("session_id", session.SessionID).
		Str("status", string(session.Status)).
		Str("phone", utils.MaskPhoneNumber(session.PhoneNumber)).
		Msg("session status updated by backend")

	return session, nil
}

// ExpireQRCodes disconnects sessions whose pairing QR was never scanned
func (l *Lifecycle) ExpireQRCodes(ctx context.Context) (int, error) {
	expired, err := l.repo.ListExpiredQR(ctx, l.now())
	if err != nil {
		return 0, err
	}

	users := make(map[uint]struct{})
	count := 0

	for i := range expired {
		session := &expired[i]

		if err := l.backend.Disconnect(ctx, session.SessionID); err != nil {
			l.logger.Warn().Err(err).Str("session_id", session.SessionID).Msg("failed to disconnect expired session")
		}

		session.Status = entities.StatusDisconnected
		session.QRCode = ""
		session.QRExpiresAt = nil

		if err := l.repo.Update(ctx, session); err != nil {
			l.logger.Error().Err(err).Str("session_id", session.SessionID).Msg("failed to expire session")
			continue
		}

		users[session.UserID] = struct{}{}
		l.publish(ctx, session, "qr_expired")
		count++
	}

	for userID := range users {
		l.invalidate(ctx, userID)
	}

	l.metrics.RecordSweep("qr_expiry", count)
	return count, nil
}

// backendStatus maps a backend status string onto a session status
func backendStatus(raw string) (entities.Status, bool) {
	if raw == "not_found" {
		return entities.StatusDisconnected, true
	}
	status := entities.Status(raw)
	return status, status.Valid()
}

// SyncStatuses reconciles active sessions with the backend
func (l *Lifecycle) SyncStatuses(ctx context.Context) (int, error) {
	active, err := l.repo.ListByStatuses(ctx, entities.StatusQRPending, entities.StatusConnected, entities.StatusInitializing)
	if err != nil {
		return 0, err
	}

	users := make(map[uint]struct{})
	updated := 0

	for i := range active {
		if ctx.Err() != nil {
			break
		}

		session := &active[i]
		previous := session.Status

		remote, err := l.backend.GetStatus(ctx, session.SessionID)
		if err != nil {
			if !isGone(err) {
				l.logger.Warn().Err(err).Str("session_id", session.SessionID).Msg("failed to sync session status")
				continue
			}
			session.Status = entities.StatusDisconnected
		} else {
			status, ok := backendStatus(remote.Status)
			if !ok || status == session.Status {
				continue
			}

			now := l.now()
			session.Status = status
			session.LastActiveAt = &now
			if status == entities.StatusConnected && remote.PhoneNumber != "" {
				session.PhoneNumber = remote.PhoneNumber
				if session.ConnectedAt == nil {
					session.ConnectedAt = &now
				}
			}
		}

		if err := l.repo.Update(ctx, session); err != nil {
			l.logger.Error().Err(err).Str("session_id", session.SessionID).Msg("failed to store synced status")
			continue
		}

		l.logger.Info().
			Str("session_id", session.SessionID).
			Str("from", string(previous)).
			Str("to", string(session.Status)).
			Msg("session status synced")

		if previous == entities.StatusConnected || session.Status == entities.StatusConnected {
			users[session.UserID] = struct{}{}
		}
		l.publish(ctx, session, "sync")
		updated++
	}

	for userID := range users {
		l.invalidate(ctx, userID)
	}

	l.metrics.RecordSweep("status_sync", updated)
	return updated, nil
}

// isGone reports backend failures that mean the session no longer exists there
func isGone(err error) bool {
	if errors.Is(err, sessionerrors.ErrBackendThrottled) {
		return false
	}
	if errors.Is(err, sessionerrors.ErrBackendUnavailable) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not_found") || strings.Contains(msg, "unavailable")
}

// PurgeDisconnected deletes sessions disconnected for longer than olderThan
func (l *Lifecycle) PurgeDisconnected(ctx context.Context, olderThan time.Duration) (int, error) {
	stale, err := l.repo.ListDisconnectedBefore(ctx, l.now().Add(-olderThan))
	if err != nil {
		return 0, err
	}

	users := make(map[uint]struct{})
	count := 0

	for _, session := range stale {
		if err := l.repo.Delete(ctx, session.ID); err != nil {
			if !errors.Is(err, sessionerrors.ErrSessionNotFound) {
				l.logger.Error().Err(err).Uint("session_id", session.ID).Msg("failed to purge session")
			}
			continue
		}
		users[session.UserID] = struct{}{}
		count++
	}

	for userID := range users {
		l.invalidate(ctx, userID)
	}

	if count > 0 {
		l.logger.Info().Int("deleted", count).Msg("purged old disconnected sessions")
	}

	l.metrics.RecordSweep("retention", count)
	return count, nil
}
