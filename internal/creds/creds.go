// Package creds derives and checks salted password hashes for account login.
package creds

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltSize is the length in bytes of per-account random salts.
	SaltSize = 16
	// Iterations is the PBKDF2 iteration count.
	Iterations = 100_000
	// KeySize is the derived key length, matching SHA-256 output.
	KeySize = 32
)

// NewSalt returns a fresh cryptographically random salt.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// Derive computes the PBKDF2-HMAC-SHA256 key for a password and salt.
func Derive(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, Iterations, KeySize, sha256.New)
}

// Verify reports whether password matches the stored salt/hash pair. The
// comparison is constant time. An empty stored hash never verifies.
func Verify(password string, salt, hash []byte) bool {
	if len(hash) == 0 {
		return false
	}
	derived := Derive(password, salt)
	return subtle.ConstantTimeCompare(derived, hash) == 1
}
