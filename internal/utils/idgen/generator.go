package idgen

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
)

const charset = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateSecureID generates a cryptographically secure ID with the given prefix and length.
// Uses only alphanumeric characters (0-9, a-z) - no dashes or special characters.
func GenerateSecureID(prefix string, length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("id length must be positive, got %d", length)
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = charset[int(b)%len(charset)]
	}

	return fmt.Sprintf("%s_%s", prefix, buf), nil
}

// SessionID returns a new relay session identifier.
func SessionID() (string, error) {
	return GenerateSecureID("sess", 24)
}

// Generator produces ids for entities created inside pure code paths.
type Generator interface {
	NewID() string
}

// UUIDGenerator produces random UUIDv4 strings.
type UUIDGenerator struct{}

// NewID implements Generator.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// SequenceGenerator produces prefix-1, prefix-2, ... for deterministic tests.
type SequenceGenerator struct {
	Prefix string
	n      int
}

// NewID implements Generator.
func (g *SequenceGenerator) NewID() string {
	g.n++
	return fmt.Sprintf("%s-%d", g.Prefix, g.n)
}
