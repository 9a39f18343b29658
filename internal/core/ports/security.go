package ports

import "github.com/forecastingteller/auth-api/internal/core/domain"

// PasswordHasher derives and verifies password digests.
type PasswordHasher interface {
	Hash(password string) (domain.PasswordDigest, error)
	// Verify returns (false, nil) on a wrong password and a non-nil error
	// when the stored digest cannot be decoded.
	Verify(password string, stored domain.PasswordDigest) (bool, error)
}

// SessionIssuer builds signed session credentials.
type SessionIssuer interface {
	Issue(identity *domain.Identity) (*domain.Session, error)
}

// TokenGenerator produces single-use secrets for verification and reset flows.
type TokenGenerator interface {
	Generate() (string, error)
}
