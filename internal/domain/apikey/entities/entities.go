package entities

import (
	"strings"
	"time"
)

const (
	// MaxFailedAttempts locks a key once reached inside LockoutWindow
	MaxFailedAttempts = 5
	LockoutWindow     = 15 * time.Minute
)

// APIKey is a stored credential; Key holds the HMAC digest, never the raw secret
type APIKey struct {
	ID                uint       `json:"id"`
	UserID            uint       `json:"user_id"`
	Name              string     `json:"name"`
	Key               string     `json:"-"`
	IsActive          bool       `json:"is_active"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	FailedAttempts    int        `json:"-"`
	LastFailedAttempt *time.Time `json:"-"`
	IPWhitelist       string     `json:"ip_whitelist,omitempty"`
	LastUsedAt        *time.Time `json:"last_used_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// Whitelist returns the trimmed non-empty whitelist entries
func (k *APIKey) Whitelist() []string {
	if strings.TrimSpace(k.IPWhitelist) == "" {
		return nil
	}

	parts := strings.Split(k.IPWhitelist, ",")
	ips := make([]string, 0, len(parts))
	for _, p := range parts {
		if ip := strings.TrimSpace(p); ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

// Expired reports whether the key has an expiry before now
func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}

// Locked reports whether repeated failures put the key in its lockout window
func (k *APIKey) Locked(now time.Time) bool {
	return k.FailedAttempts >= MaxFailedAttempts &&
		k.LastFailedAttempt != nil &&
		now.Sub(*k.LastFailedAttempt) < LockoutWindow
}

// Identity is the verified caller behind a raw key
type Identity struct {
	UserID     uint
	KeyID      uint
	Username   string
	DailyLimit int
}

// CreatedKey carries the raw secret, shown to the caller exactly once
type CreatedKey struct {
	APIKey
	RawKey string
}
