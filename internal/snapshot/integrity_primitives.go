package snapshot

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrSigningKeyMissing is returned when no signing key is configured
// outside development (§4.7 "in production the signing key must come
// from the environment; absence is fatal").
var ErrSigningKeyMissing = errors.New("snapshot: signing key not configured")

const devSigningKey = "dev-snapshot-signing-key-change-in-production"

// Signer produces and verifies HMAC-SHA256 signatures over content
// hashes, fail-closed outside development.
type Signer struct {
	key []byte
}

// NewSigner builds a Signer. key must be non-empty unless devMode is
// true, in which case an empty key falls back to a fixed development
// value — never permitted when environment is production (enforced by
// the caller wiring internal/config, not here).
func NewSigner(key string, devMode bool) (*Signer, error) {
	if key == "" {
		if !devMode {
			return nil, ErrSigningKeyMissing
		}
		key = devSigningKey
	}
	return &Signer{key: []byte(key)}, nil
}

// HashContent returns the hex-encoded SHA-256 digest of canonical bytes.
func HashContent(canonical []byte) string {
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// Sign returns the hex-encoded HMAC-SHA256 signature of a content hash.
func (s *Signer) Sign(contentHash string) (string, error) {
	if len(contentHash) != 64 {
		return "", fmt.Errorf("snapshot: content hash must be 64 hex characters, got %d", len(contentHash))
	}
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(contentHash))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify reports whether signature is the HMAC-SHA256 of contentHash
// under this signer's key, using a constant-time comparison (§4.8
// "verify_signature ... uses constant-time comparison").
func (s *Signer) Verify(contentHash, signature string) bool {
	expected, err := s.Sign(contentHash)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(signature))
}
