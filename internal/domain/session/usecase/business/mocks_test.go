package business

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/AhmadKaify/Sanasend/config"
	"github.com/AhmadKaify/Sanasend/internal/domain/session/entities"
	sessionerrors "github.com/AhmadKaify/Sanasend/internal/domain/session/errors"
	"github.com/AhmadKaify/Sanasend/internal/infrastructure/metrics"
)

// memoryRepository is an in-memory deps.Repository; its mutex plays the row lock
type memoryRepository struct {
	mu       sync.Mutex
	sessions map[uint]*entities.Session
	nextID   uint

	listConnectedCalls int
	touched            []uint
}

func newMemoryRepository(sessions ...entities.Session) *memoryRepository {
	r := &memoryRepository{sessions: make(map[uint]*entities.Session), nextID: 1}
	for i := range sessions {
		s := sessions[i]
		if s.ID == 0 {
			s.ID = r.nextID
		}
		if s.ID >= r.nextID {
			r.nextID = s.ID + 1
		}
		r.sessions[s.ID] = &s
	}
	return r
}

func (r *memoryRepository) snapshot(filter func(*entities.Session) bool) []entities.Session {
	var out []entities.Session
	for _, s := range r.sessions {
		if filter(s) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memoryRepository) get(id uint) *entities.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		cp := *s
		return &cp
	}
	return nil
}

func (r *memoryRepository) primaries(userID uint) []uint {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uint
	for _, s := range r.sessions {
		if s.UserID == userID && s.IsPrimary {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

func (r *memoryRepository) Create(ctx context.Context, session *entities.Session, limit int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, s := range r.sessions {
		if s.UserID != session.UserID {
			continue
		}
		if s.InstanceName == session.InstanceName {
			return sessionerrors.ErrInstanceExists
		}
		count++
	}
	if count >= limit {
		return sessionerrors.ErrSessionLimitReached
	}
	session.IsPrimary = count == 0
	session.ID = r.nextID
	r.nextID++
	session.CreatedAt = time.Now().UTC()
	session.UpdatedAt = session.CreatedAt
	cp := *session
	r.sessions[session.ID] = &cp
	return nil
}

func (r *memoryRepository) Update(ctx context.Context, session *entities.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[session.ID]
	if !ok {
		return sessionerrors.ErrSessionNotFound
	}
	session.UpdatedAt = time.Now().UTC()
	cp := *session
	cp.IsPrimary = stored.IsPrimary
	r.sessions[session.ID] = &cp
	return nil
}

func (r *memoryRepository) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return sessionerrors.ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *memoryRepository) GetByID(ctx context.Context, userID, id uint) (*entities.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.UserID != userID {
		return nil, sessionerrors.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memoryRepository) GetBySessionID(ctx context.Context, sessionID string) (*entities.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.SessionID == sessionID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, sessionerrors.ErrSessionNotFound
}

func (r *memoryRepository) ListByUser(ctx context.Context, userID uint) ([]entities.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot(func(s *entities.Session) bool { return s.UserID == userID }), nil
}

func (r *memoryRepository) ListConnected(ctx context.Context, userID uint) ([]entities.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listConnectedCalls++
	return r.snapshot(func(s *entities.Session) bool {
		return s.UserID == userID && s.Status == entities.StatusConnected
	}), nil
}

func (r *memoryRepository) GetPrimaryConnected(ctx context.Context, userID uint) (*entities.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.UserID == userID && s.IsPrimary && s.Status == entities.StatusConnected {
			cp := *s
			return &cp, nil
		}
	}
	return nil, sessionerrors.ErrSessionNotFound
}

func (r *memoryRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.sessions {
		if s.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *memoryRepository) InstanceExists(ctx context.Context, userID uint, instanceName string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.UserID == userID && s.InstanceName == instanceName {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepository) TouchLastActive(ctx context.Context, id uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return sessionerrors.ErrSessionNotFound
	}
	s.LastActiveAt = &at
	r.touched = append(r.touched, id)
	return nil
}

func (r *memoryRepository) UpdateStatus(ctx context.Context, id uint, status entities.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return sessionerrors.ErrSessionNotFound
	}
	s.Status = status
	return nil
}

func (r *memoryRepository) SwitchPrimary(
	ctx context.Context,
	userID uint,
	choose func(locked []entities.Session) (*entities.Session, error),
) (*entities.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	locked := r.snapshot(func(s *entities.Session) bool { return s.UserID == userID })
	target, err := choose(locked)
	if err != nil || target == nil {
		return nil, err
	}

	for _, s := range r.sessions {
		if s.UserID == userID {
			s.IsPrimary = false
		}
	}
	r.sessions[target.ID].IsPrimary = true
	target.IsPrimary = true
	return target, nil
}

func (r *memoryRepository) ListExpiredQR(ctx context.Context, now time.Time) ([]entities.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot(func(s *entities.Session) bool {
		return s.Status == entities.StatusQRPending && s.QRExpiresAt != nil && s.QRExpiresAt.Before(now)
	}), nil
}

func (r *memoryRepository) ListByStatuses(ctx context.Context, statuses ...entities.Status) ([]entities.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot(func(s *entities.Session) bool {
		for _, st := range statuses {
			if s.Status == st {
				return true
			}
		}
		return false
	}), nil
}

func (r *memoryRepository) ListDisconnectedBefore(ctx context.Context, cutoff time.Time) ([]entities.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot(func(s *entities.Session) bool {
		return s.Status == entities.StatusDisconnected && s.UpdatedAt.Before(cutoff)
	}), nil
}

// memoryCache is an in-memory deps.Cache
type memoryCache struct {
	mu          sync.Mutex
	entries     map[uint][]entities.Session
	getErr      error
	invalidated []uint
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[uint][]entities.Session)}
}

func (c *memoryCache) GetConnected(ctx context.Context, userID uint) ([]entities.Session, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	s, ok := c.entries[userID]
	return s, ok, nil
}

func (c *memoryCache) SetConnected(ctx context.Context, userID uint, sessions []entities.Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = sessions
	return nil
}

func (c *memoryCache) InvalidateUser(ctx context.Context, userID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
	c.invalidated = append(c.invalidated, userID)
	return nil
}

func (c *memoryCache) invalidations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.invalidated)
}

// mockBackend is a func-field deps.Backend
type mockBackend struct {
	mu    sync.Mutex
	calls []string

	initFunc       func(ctx context.Context, userID uint, sessionID string) (*entities.InitResult, error)
	statusFunc     func(ctx context.Context, sessionID string) (*entities.BackendStatus, error)
	disconnectFunc func(ctx context.Context, sessionID string) error
	sendTextFunc   func(ctx context.Context, sessionID, recipient, message string) (*entities.DeliveryReceipt, error)
	sendMediaFunc  func(ctx context.Context, sessionID, recipient, mediaURL, caption string, mediaType entities.MessageType) (*entities.DeliveryReceipt, error)
}

func (m *mockBackend) record(call string) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
}

func (m *mockBackend) callLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockBackend) InitSession(ctx context.Context, userID uint, sessionID string) (*entities.InitResult, error) {
	m.record("init:" + sessionID)
	if m.initFunc != nil {
		return m.initFunc(ctx, userID, sessionID)
	}
	return &entities.InitResult{Status: entities.StatusQRPending, QRCode: "data:image/png;base64,AAA"}, nil
}

func (m *mockBackend) GetStatus(ctx context.Context, sessionID string) (*entities.BackendStatus, error) {
	m.record("status:" + sessionID)
	if m.statusFunc != nil {
		return m.statusFunc(ctx, sessionID)
	}
	return &entities.BackendStatus{Exists: true, Status: "connected"}, nil
}

func (m *mockBackend) Disconnect(ctx context.Context, sessionID string) error {
	m.record("disconnect:" + sessionID)
	if m.disconnectFunc != nil {
		return m.disconnectFunc(ctx, sessionID)
	}
	return nil
}

func (m *mockBackend) SendText(ctx context.Context, sessionID, recipient, message string) (*entities.DeliveryReceipt, error) {
	m.record("text:" + sessionID)
	if m.sendTextFunc != nil {
		return m.sendTextFunc(ctx, sessionID, recipient, message)
	}
	return &entities.DeliveryReceipt{MessageID: "msg-" + sessionID}, nil
}

func (m *mockBackend) SendMedia(ctx context.Context, sessionID, recipient, mediaURL, caption string, mediaType entities.MessageType) (*entities.DeliveryReceipt, error) {
	m.record("media:" + sessionID)
	if m.sendMediaFunc != nil {
		return m.sendMediaFunc(ctx, sessionID, recipient, mediaURL, caption, mediaType)
	}
	return &entities.DeliveryReceipt{MessageID: "media-" + sessionID}, nil
}

// recordingPublisher collects published status events
type recordingPublisher struct {
	mu     sync.Mutex
	events []entities.StatusChangedEvent
}

func (p *recordingPublisher) PublishSessionStatus(ctx context.Context, event entities.StatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func newTestPool(repo *memoryRepository, cache *memoryCache, backend *mockBackend) *Pool {
	return NewPool(repo, cache, backend, &recordingPublisher{}, metrics.GetDefaultMetrics(), zerolog.Nop())
}

func newTestLifecycle(repo *memoryRepository, cache *memoryCache, backend *mockBackend, pub *recordingPublisher) *Lifecycle {
	cfg := &config.SessionConfig{MaxPerUser: 10, QRTTL: 60 * time.Second}
	return NewLifecycle(repo, cache, backend, pub, cfg, metrics.GetDefaultMetrics(), zerolog.Nop())
}

func connected(id, userID uint, name string, primary bool) entities.Session {
	return entities.Session{
		ID:           id,
		UserID:       userID,
		InstanceName: name,
		SessionID:    BackendSessionID(userID, name),
		Status:       entities.StatusConnected,
		IsPrimary:    primary,
	}
}
