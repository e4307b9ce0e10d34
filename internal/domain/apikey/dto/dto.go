package dto

import (
	"time"

	"github.com/AhmadKaify/Sanasend/internal/domain/apikey/entities"
)

// CreateKeyRequest is the body of POST /api/v1/keys
type CreateKeyRequest struct {
	Name        string     `json:"name" validate:"max=100"`
	ExpiresAt   *time.Time `json:"expires_at"`
	IPWhitelist []string   `json:"ip_whitelist" validate:"max=50,dive,ip"`
}

// KeyResponse describes a key without its secret
type KeyResponse struct {
	ID          uint       `json:"id"`
	Name        string     `json:"name"`
	IsActive    bool       `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	IPWhitelist []string   `json:"ip_whitelist,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreateKeyResponse includes the raw key, returned only once
type CreateKeyResponse struct {
	KeyResponse
	Key     string `json:"key"`
	Warning string `json:"warning"`
}

// NewKeyResponse converts an entity to its response form
func NewKeyResponse(k *entities.APIKey) KeyResponse {
	return KeyResponse{
		ID:          k.ID,
		Name:        k.Name,
		IsActive:    k.IsActive,
		ExpiresAt:   k.ExpiresAt,
		IPWhitelist: k.Whitelist(),
		LastUsedAt:  k.LastUsedAt,
		CreatedAt:   k.CreatedAt,
	}
}
