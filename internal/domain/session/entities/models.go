package entities

import "time"

// SessionModel is a GORM model for whatsapp_sessions table
type SessionModel struct {
	ID           uint       `gorm:"primaryKey"`
	UserID       uint       `gorm:"not null;uniqueIndex:uq_user_instance;index"`
	InstanceName string     `gorm:"not null;size:100;uniqueIndex:uq_user_instance"`
	SessionID    string     `gorm:"not null;size:255;uniqueIndex"`
	Status       string     `gorm:"not null;size:20;default:'initializing'"`
	QRCode       string     `gorm:"type:text;default:''"`
	QRExpiresAt  *time.Time `gorm:"column:qr_expires_at"`
	PhoneNumber  string     `gorm:"size:20;default:''"`
	IsPrimary    bool       `gorm:"not null;default:false"`
	LastActiveAt *time.Time `gorm:"column:last_active_at"`
	ConnectedAt  *time.Time `gorm:"column:connected_at"`
	CreatedAt    time.Time  `gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime"`
}

func (SessionModel) TableName() string {
	return "whatsapp_sessions"
}

// ToEntity converts DB model to domain entity
func (m *SessionModel) ToEntity() *Session {
	return &Session{
		ID:           m.ID,
		UserID:       m.UserID,
		InstanceName: m.InstanceName,
		SessionID:    m.SessionID,
		Status:       Status(m.Status),
		QRCode:       m.QRCode,
		QRExpiresAt:  m.QRExpiresAt,
		PhoneNumber:  m.PhoneNumber,
		IsPrimary:    m.IsPrimary,
		LastActiveAt: m.LastActiveAt,
		ConnectedAt:  m.ConnectedAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// NewSessionModel converts a domain entity to its DB model
func NewSessionModel(s *Session) *SessionModel {
	return &SessionModel{
		ID:           s.ID,
		UserID:       s.UserID,
		InstanceName: s.InstanceName,
		SessionID:    s.SessionID,
		Status:       string(s.Status),
		QRCode:       s.QRCode,
		QRExpiresAt:  s.QRExpiresAt,
		PhoneNumber:  s.PhoneNumber,
		IsPrimary:    s.IsPrimary,
		LastActiveAt: s.LastActiveAt,
		ConnectedAt:  s.ConnectedAt,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}
