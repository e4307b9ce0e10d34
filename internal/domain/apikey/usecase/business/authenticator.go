package business

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/AhmadKaify/Sanasend/internal/domain/apikey/deps"
	"github.com/AhmadKaify/Sanasend/internal/domain/apikey/entities"
	apikeyerrors "github.com/AhmadKaify/Sanasend/internal/domain/apikey/errors"
	userdeps "github.com/AhmadKaify/Sanasend/internal/domain/user/deps"
	usererrors "github.com/AhmadKaify/Sanasend/internal/domain/user/errors"
	"github.com/AhmadKaify/Sanasend/internal/infrastructure/metrics"
	"github.com/AhmadKaify/Sanasend/internal/utils"
)

// Authenticator verifies raw API keys and manages a user's keys
type Authenticator struct {
	repo    deps.Repository
	users   userdeps.Repository
	hasher  *KeyHasher
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

// NewAuthenticator creates the API key authenticator
func NewAuthenticator(
	repo deps.Repository,
	users userdeps.Repository,
	hasher *KeyHasher,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Authenticator {
	return &Authenticator{
		repo:    repo,
		users:   users,
		hasher:  hasher,
		metrics: m,
		logger:  logger.With().Str("component", "api_key_auth").Logger(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// outcome labels an authentication result for logs and metrics
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, apikeyerrors.ErrMissingAPIKey):
		return "missing"
	case errors.Is(err, apikeyerrors.ErrAPIKeyInactive):
		return "inactive"
	case errors.Is(err, apikeyerrors.ErrAPIKeyExpired):
		return "expired"
	case errors.Is(err, apikeyerrors.ErrAPIKeyLocked):
		return "locked"
	case errors.Is(err, apikeyerrors.ErrIPNotAllowed):
		return "ip_denied"
	case errors.Is(err, apikeyerrors.ErrUserInactive):
		return "user_inactive"
	case errors.Is(err, apikeyerrors.ErrInvalidAPIKey):
		return "invalid"
	default:
		return "error"
	}
}

// verify applies the key checks in order and persists the attempt
func (a *Authenticator) verify(ctx context.Context, record *entities.APIKey, raw string) error {
	now := a.now()

	if !record.IsActive {
		return apikeyerrors.ErrAPIKeyInactive
	}
	if record.Expired(now) {
		return apikeyerrors.ErrAPIKeyExpired
	}
	if record.Locked(now) {
		return apikeyerrors.ErrAPIKeyLocked
	}

	if a.hasher.Equal(record.Key, a.hasher.HashKey(raw)) {
		record.FailedAttempts = 0
		record.LastUsedAt = &now
		if err := a.repo.RecordSuccess(ctx, record.ID, now); err != nil {
			a.logger.Warn().Err(err).Uint("key_id", record.ID).Msg("failed to record api key use")
		}
		return nil
	}

	record.FailedAttempts++
	record.LastFailedAttempt = &now
	if err := a.repo.RecordFailure(ctx, record.ID, now); err != nil {
		a.logger.Warn().Err(err).Uint("key_id", record.ID).Msg("failed to record api key failure")
	}
	return apikeyerrors.ErrInvalidAPIKey
}

// VerifyKey reports whether raw is a usable secret for record
func (a *Authenticator) VerifyKey(ctx context.Context, record *entities.APIKey, raw string) bool {
	return a.verify(ctx, record, raw) == nil
}

// IsIPAllowed reports whether ip is in the key whitelist; an empty whitelist allows all
func (a *Authenticator) IsIPAllowed(record *entities.APIKey, ip string) bool {
	allowed := record.Whitelist()
	if len(allowed) == 0 {
		return true
	}

	for _, entry := range allowed {
		if entry == ip {
			return true
		}
	}
	return false
}

// Authenticate resolves a raw key presented from clientIP to an identity
func (a *Authenticator) Authenticate(ctx context.Context, rawKey, clientIP string) (*entities.Identity, error) {
	identity, keyID, err := a.authenticate(ctx, rawKey, clientIP)

	result := outcome(err)
	a.metrics.RecordAuth(result)

	var event *zerolog.Event
	if err != nil {
		event = a.logger.Warn().Err(err)
	} else {
		event = a.logger.Info()
	}
	event.
		Str("outcome", result).
		Uint("key_id", keyID).
		Str("key_prefix", utils.KeyPrefix(rawKey)).
		Str("client_ip", clientIP).
		Msg("api key authentication")

	return identity, err
}

func (a *Authenticator) authenticate(ctx context.Context, rawKey, clientIP string) (*entities.Identity, uint, error) {
	if rawKey == "" {
		return nil, 0, apikeyerrors.ErrMissingAPIKey
	}

	record, err := a.repo.GetByDigest(ctx, a.hasher.HashKey(rawKey))
	if err != nil {
		if errors.Is(err, apikeyerrors.ErrAPIKeyNotFound) {
			return nil, 0, apikeyerrors.ErrInvalidAPIKey
		}
		return nil, 0, err
	}

	if err := a.verify(ctx, record, rawKey); err != nil {
		return nil, record.ID, err
	}

	if !a.IsIPAllowed(record, clientIP) {
		return nil, record.ID, apikeyerrors.ErrIPNotAllowed
	}

	user, err := a.users.GetByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, usererrors.ErrUserNotFound) {
			return nil, record.ID, apikeyerrors.ErrUserInactive
		}
		return nil, record.ID, err
	}
	if !user.IsActive {
		return nil, record.ID, apikeyerrors.ErrUserInactive
	}

	return &entities.Identity{
		UserID:     user.ID,
		KeyID:      record.ID,
		Username:   user.Username,
		DailyLimit: user.MaxMessagesPerDay,
	}, record.ID, nil
}

// CreateKey issues a new key; the raw secret is only available in the result
func (a *Authenticator) CreateKey(
	ctx context.Context,
	userID uint,
	name string,
	expiresAt *time.Time,
	whitelist []string,
) (*entities.CreatedKey, error) {
	now := a.now()

	if expiresAt != nil && !expiresAt.After(now) {
		return nil, apikeyerrors.ErrInvalidExpiry
	}

	entries := make([]string, 0, len(whitelist))
	for _, ip := range whitelist {
		ip = strings.TrimSpace(ip)
		if ip == "" {
			continue
		}
		if net.ParseIP(ip) == nil {
			return nil, fmt.Errorf("%w: %s", apikeyerrors.ErrInvalidWhitelist, ip)
		}
		entries = append(entries, ip)
	}

	if _, err := a.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	raw, err := a.hasher.GenerateKey(now)
	if err != nil {
		return nil, err
	}

	key := entities.APIKey{
		UserID:      userID,
		Name:        strings.TrimSpace(name),
		Key:         a.hasher.HashKey(raw),
		IsActive:    true,
		ExpiresAt:   expiresAt,
		IPWhitelist: strings.Join(entries, ","),
	}
	if err := a.repo.Create(ctx, &key); err != nil {
		return nil, err
	}

	a.logger.Info().
		Uint("user_id", userID).
		Uint("key_id", key.ID).
		Str("key_prefix", utils.KeyPrefix(raw)).
		Msg("api key created")

	return &entities.CreatedKey{APIKey: key, RawKey: raw}, nil
}

// Deactivate disables one of the user's keys
func (a *Authenticator) Deactivate(ctx context.Context, userID, id uint) error {
	if err := a.repo.Deactivate(ctx, userID, id); err != nil {
		return err
	}

	a.logger.Info().Uint("user_id", userID).Uint("key_id", id).Msg("api key deactivated")
	return nil
}

// List returns the user's keys without secrets
func (a *Authenticator) List(ctx context.Context, userID uint) ([]entities.APIKey, error) {
	return a.repo.ListByUser(ctx, userID)
}
