package deps

import (
	"context"
	"time"

	"github.com/AhmadKaify/Sanasend/internal/domain/session/entities"
)

// Repository defines persistent storage for sessions
type Repository interface {
	// Create stores the session unless the user already holds limit sessions
	// (ErrSessionLimitReached) and marks the user's first session primary
	Create(ctx context.Context, session *entities.Session, limit int) error
	// Update never writes is_primary
	Update(ctx context.Context, session *entities.Session) error
	Delete(ctx context.Context, id uint) error

	GetByID(ctx context.Context, userID, id uint) (*entities.Session, error)
	GetBySessionID(ctx context.Context, sessionID string) (*entities.Session, error)
	ListByUser(ctx context.Context, userID uint) ([]entities.Session, error)
	// ListConnected returns connected sessions ordered by last activity
	ListConnected(ctx context.Context, userID uint) ([]entities.Session, error)
	GetPrimaryConnected(ctx context.Context, userID uint) (*entities.Session, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
	InstanceExists(ctx context.Context, userID uint, instanceName string) (bool, error)

	TouchLastActive(ctx context.Context, id uint, at time.Time) error
	UpdateStatus(ctx context.Context, id uint, status entities.Status) error

	// SwitchPrimary locks every session row of the user, lets choose pick the
	// new primary from the locked rows and moves the flag in one transaction.
	// A nil choice commits without changes.
	SwitchPrimary(ctx context.Context, userID uint, choose func(locked []entities.Session) (*entities.Session, error)) (*entities.Session, error)

	ListExpiredQR(ctx context.Context, now time.Time) ([]entities.Session, error)
	ListByStatuses(ctx context.Context, statuses ...entities.Status) ([]entities.Session, error)
	ListDisconnectedBefore(ctx context.Context, cutoff time.Time) ([]entities.Session, error)
}

// Cache holds the per-user connected session list
type Cache interface {
	GetConnected(ctx context.Context, userID uint) ([]entities.Session, bool, error)
	SetConnected(ctx context.Context, userID uint, sessions []entities.Session) error
	// InvalidateUser removes every cached key registered for the user
	InvalidateUser(ctx context.Context, userID uint) error
}

// Backend is the WhatsApp protocol service
type Backend interface {
	InitSession(ctx context.Context, userID uint, sessionID string) (*entities.InitResult, error)
	GetStatus(ctx context.Context, sessionID string) (*entities.BackendStatus, error)
	Disconnect(ctx context.Context, sessionID string) error
	SendText(ctx context.Context, sessionID, recipient, message string) (*entities.DeliveryReceipt, error)
	SendMedia(ctx context.Context, sessionID, recipient, mediaURL, caption string, mediaType entities.MessageType) (*entities.DeliveryReceipt, error)
}

// StatusPublisher emits session status change events
type StatusPublisher interface {
	PublishSessionStatus(ctx context.Context, event entities.StatusChangedEvent) error
}

// PoolService routes outbound messages across a user's sessions
type PoolService interface {
	GetAvailableSessions(ctx context.Context, userID uint) ([]entities.Session, error)
	InvalidateUserSessions(ctx context.Context, userID uint)
	SelectSession(sessions []entities.Session) (*entities.Session, error)
	GetPrimarySession(ctx context.Context, userID uint) (*entities.Session, error)
	SendWithFallback(ctx context.Context, userID uint, recipient string, payload entities.Payload) (*entities.SendResult, error)
	RotatePrimarySession(ctx context.Context, userID uint) (*entities.Session, error)
	SetPrimarySession(ctx context.Context, userID, id uint) (*entities.Session, error)
	GetSessionStats(ctx context.Context, userID uint) (*entities.Stats, error)
}

// LifecycleService manages pairing and teardown of sessions
type LifecycleService interface {
	InitSession(ctx context.Context, userID uint, instanceName string) (*entities.Session, error)
	RefreshQR(ctx context.Context, userID, id uint) (*entities.Session, error)
	Disconnect(ctx context.Context, userID, id uint) (*entities.Session, error)
	Delete(ctx context.Context, userID, id uint) error
	List(ctx context.Context, userID uint) ([]entities.Session, error)
	Get(ctx context.Context, userID, id uint) (*entities.Session, error)
	ApplyStatusUpdate(ctx context.Context, update entities.StatusUpdate) (*entities.Session, error)

	ExpireQRCodes(ctx context.Context) (int, error)
	SyncStatuses(ctx context.Context) (int, error)
	PurgeDisconnected(ctx context.Context, olderThan time.Duration) (int, error)
}
