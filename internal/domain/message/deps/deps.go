package deps

import (
	"context"

	"github.com/AhmadKaify/Sanasend/internal/domain/message/entities"
	sessionentities "github.com/AhmadKaify/Sanasend/internal/domain/session/entities"
)

// Repository defines persistent storage for messages
type Repository interface {
	Create(ctx context.Context, message *entities.Message) error
	Update(ctx context.Context, message *entities.Message) error
	ListByUser(ctx context.Context, userID uint, limit int) ([]entities.Message, error)
}

// Sender is the part of the session pool used to deliver messages
type Sender interface {
	GetAvailableSessions(ctx context.Context, userID uint) ([]sessionentities.Session, error)
	SendWithFallback(ctx context.Context, userID uint, recipient string, payload sessionentities.Payload) (*sessionentities.SendResult, error)
}

// EventPublisher emits message outcome events
type EventPublisher interface {
	PublishMessageResult(ctx context.Context, event entities.ResultEvent) error
}

// UseCase defines message business logic
type UseCase interface {
	Send(ctx context.Context, userID uint, message *entities.Message) (*entities.Message, []sessionentities.Attempt, error)
	List(ctx context.Context, userID uint, limit int) ([]entities.Message, error)
}
