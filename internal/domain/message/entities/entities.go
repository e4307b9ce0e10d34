package entities

import (
	"time"

	sessionentities "github.com/AhmadKaify/Sanasend/internal/domain/session/entities"
)

// Status is the delivery state of a message
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Message is one outbound message and its delivery outcome
type Message struct {
	ID               uint                        `json:"id"`
	UserID           uint                        `json:"user_id"`
	Recipient        string                      `json:"recipient"`
	Type             sessionentities.MessageType `json:"message_type"`
	Content          string                      `json:"content"`
	Caption          string                      `json:"caption,omitempty"`
	Status           Status                      `json:"status"`
	ErrorMessage     string                      `json:"error_message,omitempty"`
	SessionID        *uint                       `json:"session_id,omitempty"`
	BackendMessageID string                      `json:"backend_message_id,omitempty"`
	Attempts         int                         `json:"attempts"`
	SentAt           *time.Time                  `json:"sent_at,omitempty"`
	CreatedAt        time.Time                   `json:"created_at"`
}

// Payload converts the stored message into a session payload
func (m *Message) Payload() sessionentities.Payload {
	p := sessionentities.Payload{Type: m.Type}
	if m.Type.IsMedia() {
		p.MediaURL = m.Content
		p.Caption = m.Caption
	} else {
		p.Text = m.Content
	}
	return p
}

// ResultEvent is published once a message is sent or has failed
type ResultEvent struct {
	MessageID        uint                        `json:"message_id"`
	UserID           uint                        `json:"user_id"`
	Type             sessionentities.MessageType `json:"message_type"`
	Status           Status                      `json:"status"`
	SessionID        *uint                       `json:"session_id,omitempty"`
	BackendMessageID string                      `json:"backend_message_id,omitempty"`
	Attempts         int                         `json:"attempts"`
	Error            string                      `json:"error,omitempty"`
}

// NewResultEvent builds the event for a finished message
func NewResultEvent(m *Message) ResultEvent {
	return ResultEvent{
		MessageID:        m.ID,
		UserID:           m.UserID,
		Type:             m.Type,
		Status:           m.Status,
		SessionID:        m.SessionID,
		BackendMessageID: m.BackendMessageID,
		Attempts:         m.Attempts,
		Error:            m.ErrorMessage,
	}
}
