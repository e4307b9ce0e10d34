package entities

import (
	"time"

	sessionentities "github.com/AhmadKaify/Sanasend/internal/domain/session/entities"
)

// MessageModel is a GORM model for messages table
type MessageModel struct {
	ID               uint       `gorm:"primaryKey"`
	UserID           uint       `gorm:"not null;index"`
	Recipient        string     `gorm:"not null;size:20"`
	MessageType      string     `gorm:"not null;size:20;default:'text'"`
	Content          string     `gorm:"type:text;not null"`
	Caption          string     `gorm:"type:text;default:''"`
	Status           string     `gorm:"not null;size:20;default:'pending';index"`
	ErrorMessage     string     `gorm:"type:text;default:''"`
	SessionID        *uint      `gorm:"column:session_id"`
	BackendMessageID string     `gorm:"size:255;default:''"`
	Attempts         int        `gorm:"not null;default:0"`
	SentAt           *time.Time `gorm:"column:sent_at"`
	CreatedAt        time.Time  `gorm:"autoCreateTime"`
}

func (MessageModel) TableName() string {
	return "messages"
}

// ToEntity converts DB model to domain entity
func (m *MessageModel) ToEntity() *Message {
	return &Message{
		ID:               m.ID,
		UserID:           m.UserID,
		Recipient:        m.Recipient,
		Type:             sessionentities.MessageType(m.MessageType),
		Content:          m.Content,
		Caption:          m.Caption,
		Status:           Status(m.Status),
		ErrorMessage:     m.ErrorMessage,
		SessionID:        m.SessionID,
		BackendMessageID: m.BackendMessageID,
		Attempts:         m.Attempts,
		SentAt:           m.SentAt,
		CreatedAt:        m.CreatedAt,
	}
}

// NewMessageModel converts a domain entity to its DB model
func NewMessageModel(m *Message) *MessageModel {
	return &MessageModel{
		ID:               m.ID,
		UserID:           m.UserID,
		Recipient:        m.Recipient,
		MessageType:      string(m.Type),
		Content:          m.Content,
		Caption:          m.Caption,
		Status:           string(m.Status),
		ErrorMessage:     m.ErrorMessage,
		SessionID:        m.SessionID,
		BackendMessageID: m.BackendMessageID,
		Attempts:         m.Attempts,
		SentAt:           m.SentAt,
		CreatedAt:        m.CreatedAt,
	}
}
