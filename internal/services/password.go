package services

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const saltBytes = 32

// HashParams are the Argon2id cost settings. Tests use lighter values.
type HashParams struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
}

var DefaultHashParams = HashParams{Time: 2, Memory: 64 * 1024, Threads: 2, KeyLen: 32}

// NewSalt returns a fresh 256-bit salt, hex encoded.
func NewSalt() (string, error) {
	b := make([]byte, saltBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashPassword derives the hex digest of password under salt. Equal inputs
// always give equal digests.
func (p HashParams) HashPassword(password, salt string) string {
	key := argon2.IDKey([]byte(password), []byte(salt), p.Time, p.Memory, p.Threads, p.KeyLen)
	return hex.EncodeToString(key)
}

// VerifyPassword compares in constant time.
func (p HashParams) VerifyPassword(password, salt, digest string) bool {
	got := p.HashPassword(password, salt)
	return subtle.ConstantTimeCompare([]byte(got), []byte(digest)) == 1
}
