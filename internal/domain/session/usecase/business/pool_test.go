package business

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AhmadKaify/Sanasend/internal/domain/session/entities"
	sessionerrors "github.com/AhmadKaify/Sanasend/internal/domain/session/errors"
)

var textPayload = entities.Payload{Type: entities.MessageTypeText, Text: "hello"}

func TestSendWithFallback_NoSessions(t *testing.T) {
	backend := &mockBackend{}
	pool := newTestPool(newMemoryRepository(), newMemoryCache(), backend)

	_, err := pool.SendWithFallback(context.Background(), 1, "15550001111", textPayload)

	if !errors.Is(err, sessionerrors.ErrNoSessionAvailable) {
		t.Fatalf("Expected ErrNoSessionAvailable, got %v", err)
	}
	if calls := backend.callLog(); len(calls) != 0 {
		t.Errorf("Expected zero backend calls, got %v", calls)
	}
}

func TestSendWithFallback_SingleSessionSuccess(t *testing.T) {
	repo := newMemoryRepository(connected(1, 1, "main", true))
	backend := &mockBackend{}
	pool := newTestPool(repo, newMemoryCache(), backend)

	result, err := pool.SendWithFallback(context.Background(), 1, "15550001111", textPayload)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(result.Attempts) != 1 {
		t.Errorf("Expected 1 attempt, got %d", len(result.Attempts))
	}
	if !result.Attempts[0].Success {
		t.Error("Expected attempt to be successful")
	}
	if result.MessageID != "msg-"+BackendSessionID(1, "main") {
		t.Errorf("Expected backend message id, got %q", result.MessageID)
	}
	if s := repo.get(1); s.LastActiveAt == nil {
		t.Error("Expected last_active_at to be persisted")
	}
}

func TestSendWithFallback_PrimaryFirst(t *testing.T) {
	for i := 0; i < 25; i++ {
		repo := newMemoryRepository(
			connected(1, 1, "a", false),
			connected(2, 1, "b", true),
			connected(3, 1, "c", false),
		)
		backend := &mockBackend{}
		pool := newTestPool(repo, newMemoryCache(), backend)

		if _, err := pool.SendWithFallback(context.Background(), 1, "15550001111", textPayload); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}

		calls := backend.callLog()
		expected := "text:" + BackendSessionID(1, "b")
		if len(calls) != 1 || calls[0] != expected {
			t.Fatalf("Expected primary to be tried first (%s), got %v", expected, calls)
		}
	}
}

func TestSendWithFallback_DisconnectIndicatorMarksSession(t *testing.T) {
	repo := newMemoryRepository(
		connected(1, 1, "primary", true),
		connected(2, 1, "backup", false),
	)
	cache := newMemoryCache()
	backend := &mockBackend{
		sendTextFunc: func(ctx context.Context, sessionID, recipient, message string) (*entities.DeliveryReceipt, error) {
			if sessionID == BackendSessionID(1, "primary") {
				return nil, &sessionerrors.BackendError{StatusCode: 400, Message: "Session not connected"}
			}
			return &entities.DeliveryReceipt{MessageID: "ok"}, nil
		},
	}
	pool := newTestPool(repo, cache, backend)

	result, err := pool.SendWithFallback(context.Background(), 1, "15550001111", textPayload)
	if err != nil {
		t.Fatalf("Expected fallback success, got %v", err)
	}

	if result.Session.ID != 2 {
		t.Errorf("Expected backup session to deliver, got %d", result.Session.ID)
	}
	if len(result.Attempts) != 2 || result.Attempts[0].Success || !result.Attempts[1].Success {
		t.Errorf("Expected [failed, success] attempts, got %+v", result.Attempts)
	}
	if s := repo.get(1); s.Status != entities.StatusDisconnected {
		t.Errorf("Expected primary marked disconnected, got %s", s.Status)
	}
	if cache.invalidations() == 0 {
		t.Error("Expected session cache to be invalidated")
	}
}

func TestSendWithFallback_TransportErrorMarksSession(t *testing.T) {
	repo := newMemoryRepository(connected(1, 1, "only", true))
	backend := &mockBackend{
		sendTextFunc: func(ctx context.Context, sessionID, recipient, message string) (*entities.DeliveryReceipt, error) {
			return nil, fmt.Errorf("post send-text: %w", sessionerrors.ErrBackendTimeout)
		},
	}
	pool := newTestPool(repo, newMemoryCache(), backend)

	_, err := pool.SendWithFallback(context.Background(), 1, "15550001111", textPayload)

	var failed *sessionerrors.AllSessionsFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("Expected AllSessionsFailedError, got %v", err)
	}
	if !errors.Is(failed.LastError, sessionerrors.ErrBackendTimeout) {
		t.Errorf("Expected last error to be a timeout, got %v", failed.LastError)
	}
	if s := repo.get(1); s.Status != entities.StatusDisconnected {
		t.Errorf("Expected session marked disconnected, got %s", s.Status)
	}
}

func TestSendWithFallback_ThrottledKeepsSessionConnected(t *testing.T) {
	repo := newMemoryRepository(connected(1, 1, "only", true))
	backend := &mockBackend{
		sendTextFunc: func(ctx context.Context, sessionID, recipient, message string) (*entities.DeliveryReceipt, error) {
			return nil, fmt.Errorf("post send-text: %w: rate: Wait(n=1) would exceed context deadline", sessionerrors.ErrBackendThrottled)
		},
	}
	pool := newTestPool(repo, newMemoryCache(), backend)

	_, err := pool.SendWithFallback(context.Background(), 1, "15550001111", textPayload)

	var failed *sessionerrors.AllSessionsFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("Expected AllSessionsFailedError, got %v", err)
	}
	if s := repo.get(1); s.Status != entities.StatusConnected {
		t.Errorf("Expected session to stay connected, got %s", s.Status)
	}
}

func TestSendWithFallback_AllFail(t *testing.T) {
	repo := newMemoryRepository(
		connected(1, 1, "a", true),
		connected(2, 1, "b", false),
		connected(3, 1, "c", false),
	)
	backend := &mockBackend{
		sendTextFunc: func(ctx context.Context, sessionID, recipient, message string) (*entities.DeliveryReceipt, error) {
			return nil, &sessionerrors.BackendError{StatusCode: 400, Message: "Invalid phone number"}
		},
	}
	pool := newTestPool(repo, newMemoryCache(), backend)

	_, err := pool.SendWithFallback(context.Background(), 1, "bad", textPayload)

	if !errors.Is(err, sessionerrors.ErrAllSessionsFailed) {
		t.Fatalf("Expected ErrAllSessionsFailed, got %v", err)
	}

	var failed *sessionerrors.AllSessionsFailedError
	errors.As(err, &failed)
	if len(failed.Attempts) != 3 {
		t.Errorf("Expected 3 attempts, got %d", len(failed.Attempts))
	}

	for id := uint(1); id <= 3; id++ {
		if s := repo.get(id); s.Status != entities.StatusConnected {
			t.Errorf("Expected session %d to stay connected on non-disconnect error, got %s", id, s.Status)
		}
	}
}

func TestSendWithFallback_MediaUsesMediaEndpoint(t *testing.T) {
	repo := newMemoryRepository(connected(1, 1, "main", true))
	var gotType entities.MessageType
	backend := &mockBackend{
		sendMediaFunc: func(ctx context.Context, sessionID, recipient, mediaURL, caption string, mediaType entities.MessageType) (*entities.DeliveryReceipt, error) {
			gotType = mediaType
			return &entities.DeliveryReceipt{MessageID: "m1"}, nil
		},
	}
	pool := newTestPool(repo, newMemoryCache(), backend)

	payload := entities.Payload{Type: entities.MessageTypeImage, MediaURL: "https://cdn/x.png", Caption: "hi"}
	if _, err := pool.SendWithFallback(context.Background(), 1, "15550001111", payload); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if gotType != entities.MessageTypeImage {
		t.Errorf("Expected image media type, got %q", gotType)
	}
	if calls := backend.callLog(); len(calls) != 1 || calls[0] != "media:"+BackendSessionID(1, "main") {
		t.Errorf("Expected one media call, got %v", calls)
	}
}

func TestSendWithFallback_UnsupportedType(t *testing.T) {
	backend := &mockBackend{}
	pool := newTestPool(newMemoryRepository(connected(1, 1, "main", true)), newMemoryCache(), backend)

	_, err := pool.SendWithFallback(context.Background(), 1, "15550001111", entities.Payload{Type: "sticker"})
	if !errors.Is(err, sessionerrors.ErrUnsupportedMessageType) {
		t.Errorf("Expected ErrUnsupportedMessageType, got %v", err)
	}
	if len(backend.callLog()) != 0 {
		t.Error("Expected no backend calls")
	}
}

func TestSendWithFallback_SequentialAttempts(t *testing.T) {
	repo := newMemoryRepository(
		connected(1, 1, "a", true),
		connected(2, 1, "b", false),
		connected(3, 1, "c", false),
	)

	var inFlight, maxInFlight int32
	backend := &mockBackend{
		sendTextFunc: func(ctx context.Context, sessionID, recipient, message string) (*entities.DeliveryReceipt, error) {
			n := atomic.AddInt32(&inFlight, 1)
			defer atomic.AddInt32(&inFlight, -1)
			for {
				old := atomic.LoadInt32(&maxInFlight)
				if n <= old || atomic.CompareAndSwapInt32(&maxInFlight, old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			return nil, errors.New("temporary failure")
		},
	}
	pool := newTestPool(repo, newMemoryCache(), backend)

	_, _ = pool.SendWithFallback(context.Background(), 1, "15550001111", textPayload)

	if maxInFlight != 1 {
		t.Errorf("Expected attempts to run one at a time, max in flight was %d", maxInFlight)
	}
}

func TestSendWithFallback_PanicIsRecordedAsFailure(t *testing.T) {
	repo := newMemoryRepository(
		connected(1, 1, "a", true),
		connected(2, 1, "b", false),
	)
	backend := &mockBackend{
		sendTextFunc: func(ctx context.Context, sessionID, recipient, message string) (*entities.DeliveryReceipt, error) {
			if sessionID == BackendSessionID(1, "a") {
				panic("nil map")
			}
			return &entities.DeliveryReceipt{MessageID: "ok"}, nil
		},
	}
	pool := newTestPool(repo, newMemoryCache(), backend)

	result, err := pool.SendWithFallback(context.Background(), 1, "15550001111", textPayload)
	if err != nil {
		t.Fatalf("Expected recovery and fallback, got %v", err)
	}
	if len(result.Attempts) != 2 {
		t.Errorf("Expected 2 attempts, got %d", len(result.Attempts))
	}
}

func TestSendWithFallback_ConcurrentSendsDeliverOnce(t *testing.T) {
	repo := newMemoryRepository(
		connected(1, 1, "a", true),
		connected(2, 1, "b", false),
	)

	var mu sync.Mutex
	delivered := make(map[string]int)
	backend := &mockBackend{
		sendTextFunc: func(ctx context.Context, sessionID, recipient, message string) (*entities.DeliveryReceipt, error) {
			mu.Lock()
			delivered[message]++
			mu.Unlock()
			return &entities.DeliveryReceipt{MessageID: message}, nil
		},
	}
	pool := newTestPool(repo, newMemoryCache(), backend)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := entities.Payload{Type: entities.MessageTypeText, Text: fmt.Sprintf("m-%d", i)}
			if _, err := pool.SendWithFallback(context.Background(), 1, "15550001111", payload); err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		}(i)
	}
	wg.Wait()

	if len(delivered) != n {
		t.Fatalf("Expected %d distinct messages, got %d", n, len(delivered))
	}
	for msg, count := range delivered {
		if count != 1 {
			t.Errorf("Expected %s delivered once, got %d", msg, count)
		}
	}
}

func TestSelectSession_Empty(t *testing.T) {
	pool := newTestPool(newMemoryRepository(), newMemoryCache(), &mockBackend{})

	if _, err := pool.SelectSession(nil); !errors.Is(err, sessionerrors.ErrNoSessionAvailable) {
		t.Errorf("Expected ErrNoSessionAvailable, got %v", err)
	}
}

func TestSelectSession_UniformWhenNeverActive(t *testing.T) {
	pool := newTestPool(newMemoryRepository(), newMemoryCache(), &mockBackend{})
	sessions := []entities.Session{connected(1, 1, "a", false), connected(2, 1, "b", false), connected(3, 1, "c", false)}

	const draws = 30000
	counts := make(map[uint]int)
	for i := 0; i < draws; i++ {
		s, err := pool.SelectSession(sessions)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		counts[s.ID]++
	}

	for id, c := range counts {
		share := float64(c) / draws
		if math.Abs(share-1.0/3) > 0.03 {
			t.Errorf("Expected session %d share near 1/3, got %.3f", id, share)
		}
	}
}

func TestSelectSession_PrefersIdleSessions(t *testing.T) {
	pool := newTestPool(newMemoryRepository(), newMemoryCache(), &mockBackend{})
	now := time.Now().UTC()
	pool.now = func() time.Time { return now }

	recent := now
	idle := now.Add(-9 * time.Hour)
	a := connected(1, 1, "recent", false)
	a.LastActiveAt = &recent
	b := connected(2, 1, "idle", false)
	b.LastActiveAt = &idle

	const draws = 20000
	idleCount := 0
	for i := 0; i < draws; i++ {
		s, _ := pool.SelectSession([]entities.Session{a, b})
		if s.ID == 2 {
			idleCount++
		}
	}

	// Weights 1 and 10
	share := float64(idleCount) / draws
	if math.Abs(share-10.0/11) > 0.03 {
		t.Errorf("Expected idle share near 0.909, got %.3f", share)
	}
}

func TestGetAvailableSessions_UsesCache(t *testing.T) {
	repo := newMemoryRepository(connected(1, 1, "a", true))
	cache := newMemoryCache()
	pool := newTestPool(repo, cache, &mockBackend{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		sessions, err := pool.GetAvailableSessions(ctx, 1)
		if err != nil || len(sessions) != 1 {
			t.Fatalf("Expected 1 session, got %d (err %v)", len(sessions), err)
		}
	}
	if repo.listConnectedCalls != 1 {
		t.Errorf("Expected 1 database query, got %d", repo.listConnectedCalls)
	}

	pool.InvalidateUserSessions(ctx, 1)
	if _, err := pool.GetAvailableSessions(ctx, 1); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if repo.listConnectedCalls != 2 {
		t.Errorf("Expected reload after invalidation, got %d queries", repo.listConnectedCalls)
	}
}

func TestGetAvailableSessions_CacheErrorFallsBack(t *testing.T) {
	repo := newMemoryRepository(connected(1, 1, "a", true))
	cache := newMemoryCache()
	cache.getErr = errors.New("connection refused")
	pool := newTestPool(repo, cache, &mockBackend{})

	sessions, err := pool.GetAvailableSessions(context.Background(), 1)
	if err != nil {
		t.Fatalf("Expected database fallback, got %v", err)
	}
	if len(sessions) != 1 {
		t.Errorf("Expected 1 session, got %d", len(sessions))
	}
}

func TestGetPrimarySession(t *testing.T) {
	repo := newMemoryRepository(connected(1, 1, "a", false), connected(2, 1, "b", true))
	pool := newTestPool(repo, newMemoryCache(), &mockBackend{})

	primary, err := pool.GetPrimarySession(context.Background(), 1)
	if err != nil || primary == nil || primary.ID != 2 {
		t.Fatalf("Expected primary session 2, got %+v (err %v)", primary, err)
	}

	none, err := pool.GetPrimarySession(context.Background(), 99)
	if err != nil || none != nil {
		t.Errorf("Expected nil primary for unknown user, got %+v (err %v)", none, err)
	}
}

func TestRotatePrimarySession_NeedsTwoConnected(t *testing.T) {
	repo := newMemoryRepository(connected(1, 1, "a", true))
	pool := newTestPool(repo, newMemoryCache(), &mockBackend{})

	rotated, err := pool.RotatePrimarySession(context.Background(), 1)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rotated != nil {
		t.Errorf("Expected no rotation with one session, got %+v", rotated)
	}
}

func TestRotatePrimarySession_ExactlyOneDifferentPrimary(t *testing.T) {
	repo := newMemoryRepository(
		connected(1, 1, "a", true),
		connected(2, 1, "b", false),
		connected(3, 1, "c", false),
	)
	cache := newMemoryCache()
	pool := newTestPool(repo, cache, &mockBackend{})

	rotated, err := pool.RotatePrimarySession(context.Background(), 1)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rotated == nil || rotated.ID == 1 {
		t.Fatalf("Expected a different primary, got %+v", rotated)
	}

	primaries := repo.primaries(1)
	if len(primaries) != 1 || primaries[0] != rotated.ID {
		t.Errorf("Expected exactly one primary (%d), got %v", rotated.ID, primaries)
	}
	if cache.invalidations() == 0 {
		t.Error("Expected cache invalidation after rotation")
	}
}

func TestRotatePrimarySession_NoConnectedPrimary(t *testing.T) {
	offline := connected(1, 1, "a", true)
	offline.Status = entities.StatusDisconnected

	repo := newMemoryRepository(
		offline,
		connected(2, 1, "b", false),
		connected(3, 1, "c", false),
	)
	pool := newTestPool(repo, newMemoryCache(), &mockBackend{})

	rotated, err := pool.RotatePrimarySession(context.Background(), 1)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rotated != nil {
		t.Errorf("Expected no rotation without a connected primary, got %+v", rotated)
	}
	if primaries := repo.primaries(1); len(primaries) != 1 || primaries[0] != 1 {
		t.Errorf("Expected primary flag untouched, got %v", primaries)
	}
}

func TestRotatePrimarySession_ConcurrentRotations(t *testing.T) {
	repo := newMemoryRepository(
		connected(1, 1, "a", true),
		connected(2, 1, "b", false),
		connected(3, 1, "c", false),
	)
	pool := newTestPool(repo, newMemoryCache(), &mockBackend{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := pool.RotatePrimarySession(context.Background(), 1); err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		}()
	}
	wg.Wait()

	if primaries := repo.primaries(1); len(primaries) != 1 {
		t.Errorf("Expected exactly one primary after concurrent rotations, got %v", primaries)
	}
}

func TestSetPrimarySession(t *testing.T) {
	repo := newMemoryRepository(connected(1, 1, "a", true), connected(2, 1, "b", false))
	pool := newTestPool(repo, newMemoryCache(), &mockBackend{})

	target, err := pool.SetPrimarySession(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !target.IsPrimary {
		t.Error("Expected returned session flagged primary")
	}
	if primaries := repo.primaries(1); len(primaries) != 1 || primaries[0] != 2 {
		t.Errorf("Expected session 2 as sole primary, got %v", primaries)
	}

	if _, err := pool.SetPrimarySession(context.Background(), 1, 42); !errors.Is(err, sessionerrors.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestGetSessionStats(t *testing.T) {
	pending := connected(3, 1, "c", false)
	pending.Status = entities.StatusQRPending
	down := connected(4, 1, "d", false)
	down.Status = entities.StatusDisconnected

	repo := newMemoryRepository(connected(1, 1, "a", true), connected(2, 1, "b", false), pending, down)
	pool := newTestPool(repo, newMemoryCache(), &mockBackend{})

	stats, err := pool.GetSessionStats(context.Background(), 1)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if stats.Total != 4 || stats.Connected != 2 || stats.QRPending != 1 || stats.Disconnected != 1 {
		t.Errorf("Unexpected counts: %+v", stats)
	}
	if stats.Primary == nil || stats.Primary.InstanceName != "a" {
		t.Errorf("Expected primary 'a', got %+v", stats.Primary)
	}
	if !stats.AvailableForSending {
		t.Error("Expected available_for_sending true")
	}
}
