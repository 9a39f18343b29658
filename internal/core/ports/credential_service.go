package ports

import (
	"context"
	"time"
)

// RegisterInput carries the registration form.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// LoginInput carries login credentials.
type LoginInput struct {
	Email    string
	Password string
}

// ResetPasswordInput carries a password reset submission.
type ResetPasswordInput struct {
	Email              string
	Token              string
	NewPassword        string
	ConfirmNewPassword string
}

// AuthResult is returned by every use case that establishes a session.
type AuthResult struct {
	IdentityID    string
	Username      string
	Email         string
	EmailVerified bool
	Token         string
	ExpiresAt     time.Time
}

// IdentitySummary is the public view of an identity.
type IdentitySummary struct {
	ID            string
	Username      string
	Email         string
	EmailVerified bool
	CreatedAt     time.Time
	LastLoginAt   time.Time
}

// CredentialService defines the account and session use cases.
type CredentialService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, in LoginInput) (*AuthResult, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, in ResetPasswordInput) error
	VerifyEmail(ctx context.Context, token string) error
	GetIdentity(ctx context.Context, id string) (*IdentitySummary, error)
}
