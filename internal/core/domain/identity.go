package domain

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// RoleUser is the single implicit role carried by every session.
const RoleUser = "User"

// PasswordDigest is the storable output of password derivation: the digest
// and the salt it was derived with, both base64 encoded.
type PasswordDigest struct {
	Hash string
	Salt string
}

// Identity is the durable account record: credentials plus the state of the
// email-verification and password-reset flows.
type Identity struct {
	ID                     string     `json:"id"`
	Username               string     `json:"username"`
	Email                  string     `json:"email"`
	PasswordHash           string     `json:"-"`
	PasswordSalt           string     `json:"-"`
	EmailVerified          bool       `json:"email_verified"`
	EmailVerificationToken string     `json:"-"`
	PasswordResetToken     string     `json:"-"`
	PasswordResetExpiry    *time.Time `json:"-"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
	LastLoginAt            time.Time  `json:"last_login_at,omitempty"`
	// Version is bumped by the store on every Update and used for
	// compare-and-swap; callers never modify it.
	Version int64 `json:"-"`
}

// Digest returns the stored hash and salt as a single value.
func (i *Identity) Digest() PasswordDigest {
	return PasswordDigest{Hash: i.PasswordHash, Salt: i.PasswordSalt}
}

// SetPassword replaces hash and salt together.
func (i *Identity) SetPassword(d PasswordDigest) {
	i.PasswordHash = d.Hash
	i.PasswordSalt = d.Salt
}

// IssueResetToken sets the reset token and its expiry together.
func (i *Identity) IssueResetToken(token string, expiry time.Time) {
	exp := expiry.UTC()
	i.PasswordResetToken = token
	i.PasswordResetExpiry = &exp
}

// ClearResetToken removes the reset token and its expiry together.
func (i *Identity) ClearResetToken() {
	i.PasswordResetToken = ""
	i.PasswordResetExpiry = nil
}

// ResetTokenExpired reports whether the pending reset token is no longer
// usable at now. The token is valid strictly before its expiry; an identity
// without an expiry is treated as expired.
func (i *Identity) ResetTokenExpired(now time.Time) bool {
	if i.PasswordResetExpiry == nil {
		return true
	}
	return !now.Before(*i.PasswordResetExpiry)
}

// MarkEmailVerified flips the verified flag and consumes the verification token.
func (i *Identity) MarkEmailVerified() {
	i.EmailVerified = true
	i.EmailVerificationToken = ""
}

// NormalizeEmail returns the key used for case-insensitive email uniqueness.
func NormalizeEmail(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}

// NormalizeUsername returns the key used for case-insensitive username uniqueness.
func NormalizeUsername(username string) string {
	return cases.Fold().String(strings.TrimSpace(username))
}
