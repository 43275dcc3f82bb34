package apikeys

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Providers a user can connect their own key for.
var Providers = []string{"openai", "anthropic", "gemini", "groq", "deepgram"}

// ValidProvider reports whether p is a supported provider name.
func ValidProvider(p string) bool {
	return slices.Contains(Providers, p)
}

// KeyRow matches the api_keys table schema.
type KeyRow struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Provider     string
	EncryptedKey string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StoredKey is the public view of a key. Key material is never returned.
type StoredKey struct {
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type StoreKeyRequest struct {
	Key string `json:"key" validate:"required,min=8,max=512"`
}
