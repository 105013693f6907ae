// Package domain holds the API key model and hashing helpers.
package domain

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
)

const keyPrefix = "rb_live_"

// Scope strings attached to api_keys rows and checked per route.
const (
	ScopeBillingRead    = "billing:read"
	ScopeBillingWrite   = "billing:write"
	ScopeDisputeResolve = "disputes:resolve"
)

type APIKey struct {
	ID        snowflake.ID   `gorm:"primaryKey"`
	OrgID     snowflake.ID   `gorm:"not null;index"`
	Name      string         `gorm:"type:text;not null"`
	KeyHash   string         `gorm:"type:text;not null;uniqueIndex"`
	Scopes    pq.StringArray `gorm:"type:text[]"`
	IsActive  bool           `gorm:"not null;default:true"`
	ExpiresAt *time.Time
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (APIKey) TableName() string { return "api_keys" }

// HashAPIKey derives the stored digest for a presented key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// GenerateKey returns a new plaintext key. Only the hash is persisted; the
// plaintext is shown once to the caller.
func GenerateKey() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return keyPrefix + hex.EncodeToString(raw), nil
}

// HasScope reports whether the key grants the given scope.
func HasScope(scopes []string, want string) bool {
	for _, s := range scopes {
		if s == want {
			return true
		}
	}
	return false
}
