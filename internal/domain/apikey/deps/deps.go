package deps

import (
	"context"
	"time"

	"github.com/AhmadKaify/Sanasend/internal/domain/apikey/entities"
)

// Repository defines persistent storage for API keys
type Repository interface {
	Create(ctx context.Context, key *entities.APIKey) error
	GetByDigest(ctx context.Context, digest string) (*entities.APIKey, error)
	ListByUser(ctx context.Context, userID uint) ([]entities.APIKey, error)
	Deactivate(ctx context.Context, userID, id uint) error

	// RecordSuccess clears the failure counter and stamps last use
	RecordSuccess(ctx context.Context, id uint, at time.Time) error
	// RecordFailure increments the failure counter atomically
	RecordFailure(ctx context.Context, id uint, at time.Time) error
}

// Authenticator turns raw keys into identities and manages keys
type Authenticator interface {
	Authenticate(ctx context.Context, rawKey, clientIP string) (*entities.Identity, error)
	VerifyKey(ctx context.Context, record *entities.APIKey, rawKey string) bool
	IsIPAllowed(record *entities.APIKey, ip string) bool

	CreateKey(ctx context.Context, userID uint, name string, expiresAt *time.Time, whitelist []string) (*entities.CreatedKey, error)
	Deactivate(ctx context.Context, userID, id uint) error
	List(ctx context.Context, userID uint) ([]entities.APIKey, error)
}
