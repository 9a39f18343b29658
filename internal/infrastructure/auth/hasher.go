// Package auth holds the credential primitives: password derivation,
// session token signing and single-use token generation.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/forecastingteller/auth-api/internal/core/domain"
)

// PBKDF2 parameters. They must stay identical between Hash and Verify for
// every stored record, so they are constants rather than configuration.
const (
	pbkdf2Iterations = 10000
	saltSize         = 16
	digestSize       = 32
)

var (
	// ErrEmptyPassword is returned when hashing an empty password.
	ErrEmptyPassword = errors.New("password cannot be empty")
	// ErrMalformedDigest signals a stored hash or salt that cannot be
	// decoded. It indicates corrupted data, not a wrong password.
	ErrMalformedDigest = errors.New("malformed password digest")
)

// PBKDF2Hasher implements ports.PasswordHasher with PBKDF2-HMAC-SHA256.
type PBKDF2Hasher struct{}

func NewPBKDF2Hasher() *PBKDF2Hasher {
	return &PBKDF2Hasher{}
}

// Hash derives a digest from password and a fresh random salt.
func (h *PBKDF2Hasher) Hash(password string) (domain.PasswordDigest, error) {
	if password == "" {
		return domain.PasswordDigest{}, ErrEmptyPassword
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return domain.PasswordDigest{}, fmt.Errorf("generate salt: %w", err)
	}

	return domain.PasswordDigest{
		Hash: base64.StdEncoding.EncodeToString(derive(password, salt)),
		Salt: base64.StdEncoding.EncodeToString(salt),
	}, nil
}

// Verify recomputes the digest with the stored salt and compares it in
// constant time.
func (h *PBKDF2Hasher) Verify(password string, stored domain.PasswordDigest) (bool, error) {
	salt, err := base64.StdEncoding.DecodeString(stored.Salt)
	if err != nil || len(salt) == 0 {
		return false, fmt.Errorf("%w: salt", ErrMalformedDigest)
	}
	expected, err := base64.StdEncoding.DecodeString(stored.Hash)
	if err != nil || len(expected) != digestSize {
		return false, fmt.Errorf("%w: hash", ErrMalformedDigest)
	}

	computed := derive(password, salt)
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

func derive(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, digestSize, sha256.New)
}
