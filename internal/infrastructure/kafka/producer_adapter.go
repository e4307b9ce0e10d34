package kafka

import (
	"context"
	"strconv"

	"github.com/AhmadKaify/Sanasend/config"
	messageentities "github.com/AhmadKaify/Sanasend/internal/domain/message/entities"
	sessionentities "github.com/AhmadKaify/Sanasend/internal/domain/session/entities"
)

const (
	eventMessageSent    = "message.sent"
	eventMessageFailed  = "message.failed"
	eventSessionChanged = "session.status_changed"
)

// EventAdapter maps domain events onto topics
type EventAdapter struct {
	producer *Producer
	cfg      *config.KafkaConfig
}

// NewEventAdapter creates the domain event adapter
func NewEventAdapter(producer *Producer, cfg *config.KafkaConfig) *EventAdapter {
	return &EventAdapter{producer: producer, cfg: cfg}
}

// PublishSessionStatus publishes a session status change keyed by user
func (a *EventAdapter) PublishSessionStatus(ctx context.Context, event sessionentities.StatusChangedEvent) error {
	key := strconv.FormatUint(uint64(event.UserID), 10)
	return a.producer.SendToTopic(ctx, a.cfg.TopicSessionChanged, key, eventSessionChanged, event)
}

// PublishMessageResult publishes a delivered or failed message keyed by user
func (a *EventAdapter) PublishMessageResult(ctx context.Context, event messageentities.ResultEvent) error {
	key := strconv.FormatUint(uint64(event.UserID), 10)
	if event.Status == messageentities.StatusSent {
		return a.producer.SendToTopic(ctx, a.cfg.TopicMessageSent, key, eventMessageSent, event)
	}
	return a.producer.SendToTopic(ctx, a.cfg.TopicMessageFailed, key, eventMessageFailed, event)
}
