package entities

import "time"

// APIKeyModel is a GORM model for api_keys table
type APIKeyModel struct {
	ID                uint       `gorm:"primaryKey"`
	UserID            uint       `gorm:"not null;index:idx_api_keys_user_active"`
	Name              string     `gorm:"size:100;default:''"`
	Key               string     `gorm:"not null;size:128;uniqueIndex"`
	IsActive          bool       `gorm:"not null;default:true;index:idx_api_keys_user_active"`
	ExpiresAt         *time.Time `gorm:"column:expires_at"`
	FailedAttempts    int        `gorm:"not null;default:0"`
	LastFailedAttempt *time.Time `gorm:"column:last_failed_attempt"`
	IPWhitelist       string     `gorm:"type:text;default:''"`
	LastUsedAt        *time.Time `gorm:"column:last_used_at"`
	CreatedAt         time.Time  `gorm:"autoCreateTime"`
}

func (APIKeyModel) TableName() string {
	return "api_keys"
}

// ToEntity converts DB model to domain entity
func (m *APIKeyModel) ToEntity() *APIKey {
	return &APIKey{
		ID:                m.ID,
		UserID:            m.UserID,
		Name:              m.Name,
		Key:               m.Key,
		IsActive:          m.IsActive,
		ExpiresAt:         m.ExpiresAt,
		FailedAttempts:    m.FailedAttempts,
		LastFailedAttempt: m.LastFailedAttempt,
		IPWhitelist:       m.IPWhitelist,
		LastUsedAt:        m.LastUsedAt,
		CreatedAt:         m.CreatedAt,
	}
}

// NewAPIKeyModel converts a domain entity to its DB model
func NewAPIKeyModel(k *APIKey) *APIKeyModel {
	return &APIKeyModel{
		ID:                k.ID,
		UserID:            k.UserID,
		Name:              k.Name,
		Key:               k.Key,
		IsActive:          k.IsActive,
		ExpiresAt:         k.ExpiresAt,
		FailedAttempts:    k.FailedAttempts,
		LastFailedAttempt: k.LastFailedAttempt,
		IPWhitelist:       k.IPWhitelist,
		LastUsedAt:        k.LastUsedAt,
		CreatedAt:         k.CreatedAt,
	}
}
