package business

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/AhmadKaify/Sanasend/config"
	"github.com/AhmadKaify/Sanasend/internal/domain/apikey/entities"
	apikeyerrors "github.com/AhmadKaify/Sanasend/internal/domain/apikey/errors"
	userentities "github.com/AhmadKaify/Sanasend/internal/domain/user/entities"
	usererrors "github.com/AhmadKaify/Sanasend/internal/domain/user/errors"
	"github.com/AhmadKaify/Sanasend/internal/infrastructure/metrics"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type memoryKeyRepository struct {
	mu        sync.Mutex
	keys      map[uint]*entities.APIKey
	nextID    uint
	failures  int
	successes int
}

func newMemoryKeyRepository() *memoryKeyRepository {
	return &memoryKeyRepository{keys: make(map[uint]*entities.APIKey), nextID: 1}
}

func (r *memoryKeyRepository) Create(ctx context.Context, key *entities.APIKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key.ID = r.nextID
	r.nextID++
	cp := *key
	r.keys[key.ID] = &cp
	return nil
}

func (r *memoryKeyRepository) GetByDigest(ctx context.Context, digest string) (*entities.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.keys {
		if k.Key == digest {
			cp := *k
			return &cp, nil
		}
	}
	return nil, apikeyerrors.ErrAPIKeyNotFound
}

func (r *memoryKeyRepository) ListByUser(ctx context.Context, userID uint) ([]entities.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entities.APIKey
	for _, k := range r.keys {
		if k.UserID == userID {
			out = append(out, *k)
		}
	}
	return out, nil
}

func (r *memoryKeyRepository) Deactivate(ctx context.Context, userID, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[id]
	if !ok || k.UserID != userID {
		return apikeyerrors.ErrAPIKeyNotFound
	}
	k.IsActive = false
	return nil
}

func (r *memoryKeyRepository) RecordSuccess(ctx context.Context, id uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes++
	if k, ok := r.keys[id]; ok {
		k.FailedAttempts = 0
		k.LastUsedAt = &at
	}
	return nil
}

func (r *memoryKeyRepository) RecordFailure(ctx context.Context, id uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures++
	if k, ok := r.keys[id]; ok {
		k.FailedAttempts++
		k.LastFailedAttempt = &at
	}
	return nil
}

type mockUserRepository struct {
	users map[uint]*userentities.User
}

func (m *mockUserRepository) GetByID(ctx context.Context, id uint) (*userentities.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, usererrors.ErrUserNotFound
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*userentities.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, usererrors.ErrUserNotFound
}

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestAuthenticator() (*Authenticator, *memoryKeyRepository, *mockUserRepository) {
	repo := newMemoryKeyRepository()
	users := &mockUserRepository{users: map[uint]*userentities.User{
		1: {ID: 1, Username: "alice", IsActive: true, MaxMessagesPerDay: 500},
		2: {ID: 2, Username: "bob", IsActive: false, MaxMessagesPerDay: 1000},
	}}
	hasher := NewKeyHasher(&config.SecurityConfig{SecretKey: testSecret})
	a := NewAuthenticator(repo, users, hasher, metrics.GetDefaultMetrics(), zerolog.Nop())
	a.now = func() time.Time { return fixedNow }
	return a, repo, users
}

func TestGenerateKey_Format(t *testing.T) {
	hasher := NewKeyHasher(&config.SecurityConfig{SecretKey: testSecret})

	raw, err := hasher.GenerateKey(fixedNow)
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^wsk_1710072000_[A-Za-z0-9_-]{43}$`), raw)

	other, err := hasher.GenerateKey(fixedNow)
	require.NoError(t, err)
	require.NotEqual(t, raw, other)
}

func TestHashKey_HexHMAC(t *testing.T) {
	hasher := NewKeyHasher(&config.SecurityConfig{SecretKey: testSecret})
	other := NewKeyHasher(&config.SecurityConfig{SecretKey: strings.Repeat("x", 32)})

	digest := hasher.HashKey("wsk_1_abc")
	require.Len(t, digest, 64)
	require.Equal(t, digest, hasher.HashKey("wsk_1_abc"))
	require.NotEqual(t, digest, other.HashKey("wsk_1_abc"))
	require.True(t, hasher.Equal(digest, hasher.HashKey("wsk_1_abc")))
	require.False(t, hasher.Equal(digest, hasher.HashKey("wsk_1_abd")))
}

func TestAuthenticate_Success(t *testing.T) {
	a, repo, _ := newTestAuthenticator()

	created, err := a.CreateKey(context.Background(), 1, " integration ", nil, nil)
	require.NoError(t, err)
	require.NotEqual(t, created.RawKey, created.Key)
	require.Equal(t, "integration", created.Name)

	identity, err := a.Authenticate(context.Background(), created.RawKey, "10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, uint(1), identity.UserID)
	require.Equal(t, created.ID, identity.KeyID)
	require.Equal(t, 500, identity.DailyLimit)
	require.Equal(t, 1, repo.successes)
	require.NotNil(t, repo.keys[created.ID].LastUsedAt)
}

func TestAuthenticate_UnknownKey(t *testing.T) {
	a, _, _ := newTestAuthenticator()

	_, err := a.Authenticate(context.Background(), "wsk_1_nope", "10.0.0.1")
	require.ErrorIs(t, err, apikeyerrors.ErrInvalidAPIKey)

	_, err = a.Authenticate(context.Background(), "", "10.0.0.1")
	require.ErrorIs(t, err, apikeyerrors.ErrMissingAPIKey)
}

func TestAuthenticate_InactiveUser(t *testing.T) {
	a, _, _ := newTestAuthenticator()

	created, err := a.CreateKey(context.Background(), 2, "", nil, nil)
	require.NoError(t, err)

	_, err = a.Authenticate(context.Background(), created.RawKey, "10.0.0.1")
	require.ErrorIs(t, err, apikeyerrors.ErrUserInactive)
}

func TestAuthenticate_Expired(t *testing.T) {
	a, repo, _ := newTestAuthenticator()

	expires := fixedNow.Add(time.Hour)
	created, err := a.CreateKey(context.Background(), 1, "", &expires, nil)
	require.NoError(t, err)

	a.now = func() time.Time { return fixedNow.Add(2 * time.Hour) }
	_, err = a.Authenticate(context.Background(), created.RawKey, "10.0.0.1")
	require.ErrorIs(t, err, apikeyerrors.ErrAPIKeyExpired)
	require.Equal(t, 0, repo.successes)
}

func TestAuthenticate_Deactivated(t *testing.T) {
	a, _, _ := newTestAuthenticator()

	created, err := a.CreateKey(context.Background(), 1, "", nil, nil)
	require.NoError(t, err)
	require.NoError(t, a.Deactivate(context.Background(), 1, created.ID))

	_, err = a.Authenticate(context.Background(), created.RawKey, "10.0.0.1")
	require.ErrorIs(t, err, apikeyerrors.ErrAPIKeyInactive)

	require.ErrorIs(t, a.Deactivate(context.Background(), 2, created.ID), apikeyerrors.ErrAPIKeyNotFound)
}

func TestAuthenticate_IPWhitelist(t *testing.T) {
	a, _, _ := newTestAuthenticator()

	created, err := a.CreateKey(context.Background(), 1, "", nil, []string{"10.0.0.1", " 192.168.1.5 "})
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1,192.168.1.5", created.IPWhitelist)

	_, err = a.Authenticate(context.Background(), created.RawKey, "192.168.1.5")
	require.NoError(t, err)

	_, err = a.Authenticate(context.Background(), created.RawKey, "172.16.0.9")
	require.ErrorIs(t, err, apikeyerrors.ErrIPNotAllowed)
}

func TestVerifyKey_LockoutAfterFiveFailures(t *testing.T) {
	a, repo, _ := newTestAuthenticator()

	created, err := a.CreateKey(context.Background(), 1, "", nil, nil)
	require.NoError(t, err)
	record := created.APIKey

	for i := 0; i < entities.MaxFailedAttempts; i++ {
		require.False(t, a.VerifyKey(context.Background(), &record, "wsk_wrong"))
	}
	require.Equal(t, 5, record.FailedAttempts)
	require.Equal(t, 5, repo.failures)

	// Correct key is refused inside the window without touching counters
	require.ErrorIs(t, a.verify(context.Background(), &record, created.RawKey), apikeyerrors.ErrAPIKeyLocked)
	require.Equal(t, 5, repo.failures)
	require.Equal(t, 0, repo.successes)

	a.now = func() time.Time { return fixedNow.Add(14 * time.Minute) }
	require.False(t, a.VerifyKey(context.Background(), &record, created.RawKey))

	a.now = func() time.Time { return fixedNow.Add(15 * time.Minute) }
	require.True(t, a.VerifyKey(context.Background(), &record, created.RawKey))
	require.Equal(t, 0, record.FailedAttempts)
}

func TestVerifyKey_WrongSecretAfterWindowRelocks(t *testing.T) {
	a, repo, _ := newTestAuthenticator()

	created, err := a.CreateKey(context.Background(), 1, "", nil, nil)
	require.NoError(t, err)
	record := created.APIKey

	for i := 0; i < entities.MaxFailedAttempts; i++ {
		require.False(t, a.VerifyKey(context.Background(), &record, "wsk_wrong"))
	}

	// the window has passed, so the key is checked again and fails again
	retry := fixedNow.Add(15 * time.Minute)
	a.now = func() time.Time { return retry }
	require.ErrorIs(t, a.verify(context.Background(), &record, "wsk_wrong"), apikeyerrors.ErrInvalidAPIKey)
	require.Equal(t, 6, record.FailedAttempts)
	require.NotNil(t, record.LastFailedAttempt)
	require.True(t, record.LastFailedAttempt.Equal(retry))
	require.Equal(t, 6, repo.failures)

	// the fresh failure opens a new window that refuses the right secret
	a.now = func() time.Time { return retry.Add(time.Minute) }
	require.ErrorIs(t, a.verify(context.Background(), &record, created.RawKey), apikeyerrors.ErrAPIKeyLocked)
	require.Equal(t, 6, record.FailedAttempts)
	require.Equal(t, 0, repo.successes)
}

func TestIsIPAllowed(t *testing.T) {
	a, _, _ := newTestAuthenticator()

	tests := []struct {
		whitelist string
		ip        string
		want      bool
	}{
		{"", "1.2.3.4", true},
		{"  ", "1.2.3.4", true},
		{"1.2.3.4", "1.2.3.4", true},
		{"1.2.3.4, 5.6.7.8", "5.6.7.8", true},
		{"1.2.3.4", "1.2.3.5", false},
		{"10.0.0.0/8", "10.1.1.1", false},
	}

	for _, tt := range tests {
		record := &entities.APIKey{IPWhitelist: tt.whitelist}
		if got := a.IsIPAllowed(record, tt.ip); got != tt.want {
			t.Errorf("IsIPAllowed(%q, %q) = %v, want %v", tt.whitelist, tt.ip, got, tt.want)
		}
	}
}

func TestCreateKey_Validation(t *testing.T) {
	a, _, _ := newTestAuthenticator()

	past := fixedNow.Add(-time.Minute)
	_, err := a.CreateKey(context.Background(), 1, "", &past, nil)
	require.ErrorIs(t, err, apikeyerrors.ErrInvalidExpiry)

	_, err = a.CreateKey(context.Background(), 1, "", nil, []string{"not-an-ip"})
	require.ErrorIs(t, err, apikeyerrors.ErrInvalidWhitelist)

	_, err = a.CreateKey(context.Background(), 99, "", nil, nil)
	require.True(t, errors.Is(err, usererrors.ErrUserNotFound))
}

func TestList(t *testing.T) {
	a, _, _ := newTestAuthenticator()

	for i := 0; i < 3; i++ {
		_, err := a.CreateKey(context.Background(), 1, "", nil, nil)
		require.NoError(t, err)
	}

	keys, err := a.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, keys, 3)
}
