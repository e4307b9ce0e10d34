package dto

import (
	"time"

	"github.com/AhmadKaify/Sanasend/internal/domain/message/entities"
	sessionentities "github.com/AhmadKaify/Sanasend/internal/domain/session/entities"
)

// SendTextRequest is the body of POST /api/v1/messages/send-text
type SendTextRequest struct {
	Recipient string `json:"recipient" validate:"required,max=20"`
	Message   string `json:"message" validate:"required,max=4096"`
}

// SendMediaRequest is the body of POST /api/v1/messages/send-media
type SendMediaRequest struct {
	Recipient string `json:"recipient" validate:"required,max=20"`
	MediaURL  string `json:"media_url" validate:"required,url,max=2048"`
	Caption   string `json:"caption" validate:"max=1024"`
	MediaType string `json:"media_type" validate:"required,oneof=image document video"`
}

// ToMessage converts the request into a text message
func (r *SendTextRequest) ToMessage() *entities.Message {
	return &entities.Message{
		Recipient: r.Recipient,
		Type:      sessionentities.MessageTypeText,
		Content:   r.Message,
	}
}

// ToMessage converts the request into a media message
func (r *SendMediaRequest) ToMessage() *entities.Message {
	return &entities.Message{
		Recipient: r.Recipient,
		Type:      sessionentities.MessageType(r.MediaType),
		Content:   r.MediaURL,
		Caption:   r.Caption,
	}
}

// SessionUsed identifies the session that delivered a message
type SessionUsed struct {
	ID           uint   `json:"id"`
	InstanceName string `json:"instance_name"`
}

// SendResponse reports a delivered message
type SendResponse struct {
	MessageID         uint                      `json:"message_id"`
	Status            entities.Status           `json:"status"`
	Recipient         string                    `json:"recipient"`
	WhatsAppMessageID string                    `json:"whatsapp_message_id"`
	SessionUsed       *SessionUsed              `json:"session_used,omitempty"`
	Attempts          []sessionentities.Attempt `json:"attempts"`
	SentAt            *time.Time                `json:"sent_at,omitempty"`
}

// FailureDetails accompany a failed send
type FailureDetails struct {
	MessageID uint                      `json:"message_id,omitempty"`
	Attempts  []sessionentities.Attempt `json:"attempts,omitempty"`
}

// NewSendResponse builds the response for a delivered message
func NewSendResponse(m *entities.Message, attempts []sessionentities.Attempt) SendResponse {
	resp := SendResponse{
		MessageID:         m.ID,
		Status:            m.Status,
		Recipient:         m.Recipient,
		WhatsAppMessageID: m.BackendMessageID,
		Attempts:          attempts,
		SentAt:            m.SentAt,
	}

	if n := len(attempts); n > 0 && attempts[n-1].Success {
		resp.SessionUsed = &SessionUsed{
			ID:           attempts[n-1].SessionID,
			InstanceName: attempts[n-1].InstanceName,
		}
	}
	return resp
}
