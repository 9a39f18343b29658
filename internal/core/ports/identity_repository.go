package ports

import (
	"context"
	"time"

	"github.com/forecastingteller/auth-api/internal/core/domain"
)

// IdentityRepository is the durable identity store. Lookups by email and
// username are case-insensitive. Missing records yield domain.ErrIdentityNotFound.
type IdentityRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Identity, error)
	FindByEmail(ctx context.Context, email string) (*domain.Identity, error)
	FindByUsername(ctx context.Context, username string) (*domain.Identity, error)
	FindByVerificationToken(ctx context.Context, token string) (*domain.Identity, error)

	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// Create persists a new identity. A uniqueness violation, including one
	// caused by a concurrent registration, returns domain.ErrDuplicateEmail
	// or domain.ErrDuplicateUsername.
	Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error)

	// Update replaces the stored identity only if its version still matches
	// identity.Version, otherwise it returns domain.ErrConcurrentUpdate.
	Update(ctx context.Context, identity *domain.Identity) (*domain.Identity, error)

	// RecordLogin sets the last-login timestamp unconditionally.
	RecordLogin(ctx context.Context, id string, at time.Time) error
}
