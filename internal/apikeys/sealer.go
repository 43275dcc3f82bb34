package apikeys

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// sealVersion prefixes every sealed value so the format can change without
// guessing at stored rows.
const sealVersion = "v1"

var errSealedFormat = errors.New("sealed key has an unknown format")

// Sealer encrypts provider keys with AES-256-GCM. Each value is bound to the
// owning user and provider through the AEAD additional data, so a row copied
// to another user or provider fails to open.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer takes the 32-byte key as 64 hex characters.
func NewSealer(hexKey string) (*Sealer, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decoding encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes (64 hex chars), got %d bytes", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

func binding(userID uuid.UUID, provider string) []byte {
	return []byte(sealVersion + ":" + userID.String() + ":" + provider)
}

// Seal returns "v1:" followed by base64url(nonce || ciphertext).
func (s *Sealer) Seal(plaintext string, userID uuid.UUID, provider string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), binding(userID, provider))
	return sealVersion + ":" + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal for the same user and provider.
func (s *Sealer) Open(sealed string, userID uuid.UUID, provider string) (string, error) {
	version, body, ok := strings.Cut(sealed, ":")
	if !ok || version != sealVersion {
		return "", errSealedFormat
	}
	raw, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return "", fmt.Errorf("decoding sealed key: %w", err)
	}

	n := s.aead.NonceSize()
	if len(raw) < n+s.aead.Overhead() {
		return "", errSealedFormat
	}
	plaintext, err := s.aead.Open(nil, raw[:n], raw[n:], binding(userID, provider))
	if err != nil {
		return "", fmt.Errorf("opening sealed key: %w", err)
	}
	return string(plaintext), nil
}
