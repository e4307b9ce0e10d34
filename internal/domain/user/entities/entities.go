package entities

import "time"

// User is an account owning sessions and API keys
type User struct {
	ID                uint      `json:"id"`
	Username          string    `json:"username"`
	IsActive          bool      `json:"is_active"`
	MaxMessagesPerDay int       `json:"max_messages_per_day"`
	CreatedAt         time.Time `json:"created_at"`
}

// UserModel is a GORM model for users table
type UserModel struct {
	ID                uint      `gorm:"primaryKey"`
	Username          string    `gorm:"not null;size:150;uniqueIndex"`
	IsActive          bool      `gorm:"not null;default:true"`
	MaxMessagesPerDay int       `gorm:"not null;default:1000"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
}

func (UserModel) TableName() string {
	return "users"
}

// ToEntity converts DB model to domain entity
func (m *UserModel) ToEntity() *User {
	return &User{
		ID:                m.ID,
		Username:          m.Username,
		IsActive:          m.IsActive,
		MaxMessagesPerDay: m.MaxMessagesPerDay,
		CreatedAt:         m.CreatedAt,
	}
}
