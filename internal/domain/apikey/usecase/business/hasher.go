package business

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/AhmadKaify/Sanasend/config"
)

const (
	keyPrefix      = "wsk_"
	keyRandomBytes = 32
)

// KeyHasher generates raw API keys and derives their stored digests
type KeyHasher struct {
	secret []byte
}

// NewKeyHasher creates a hasher keyed with the server secret
func NewKeyHasher(cfg *config.SecurityConfig) *KeyHasher {
	return &KeyHasher{secret: []byte(cfg.SecretKey)}
}

// GenerateKey returns a new raw key: wsk_<unix>_<url-safe random>
func (h *KeyHasher) GenerateKey(now time.Time) (string, error) {
	buf := make([]byte, keyRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	return fmt.Sprintf("%s%d_%s", keyPrefix, now.Unix(), base64.RawURLEncoding.EncodeToString(buf)), nil
}

// HashKey returns the hex HMAC-SHA256 digest of the raw key
func (h *KeyHasher) HashKey(raw string) string {
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// Equal compares two digests in constant time
func (h *KeyHasher) Equal(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
