// Package memory provides an in-process identity store for development and
// tests. It enforces the same uniqueness and compare-and-swap rules as the
// MongoDB adapter.
package memory

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forecastingteller/auth-api/internal/core/domain"
)

type IdentityRepository struct {
	mu         sync.RWMutex
	byID       map[string]*domain.Identity
	byEmail    map[string]string
	byUsername map[string]string
}

func NewIdentityRepository() *IdentityRepository {
	return &IdentityRepository{
		byID:       make(map[string]*domain.Identity),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
	}
}

func clone(i *domain.Identity) *domain.Identity {
	c := *i
	if i.PasswordResetExpiry != nil {
		exp := *i.PasswordResetExpiry
		c.PasswordResetExpiry = &exp
	}
	return &c
}

func (r *IdentityRepository) FindByID(_ context.Context, id string) (*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	return clone(i), nil
}

func (r *IdentityRepository) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	r.mu.RLock()
	id, ok := r.byEmail[domain.NormalizeEmail(email)]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *IdentityRepository) FindByUsername(ctx context.Context, username string) (*domain.Identity, error) {
	r.mu.RLock()
	id, ok := r.byUsername[domain.NormalizeUsername(username)]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *IdentityRepository) FindByVerificationToken(_ context.Context, token string) (*domain.Identity, error) {
	if token == "" {
		return nil, domain.ErrIdentityNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, i := range r.byID {
		if i.EmailVerificationToken != "" &&
			subtle.ConstantTimeCompare([]byte(i.EmailVerificationToken), []byte(token)) == 1 {
			return clone(i), nil
		}
	}
	return nil, domain.ErrIdentityNotFound
}

func (r *IdentityRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byEmail[domain.NormalizeEmail(email)]
	return ok, nil
}

func (r *IdentityRepository) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byUsername[domain.NormalizeUsername(username)]
	return ok, nil
}

// Create checks uniqueness and inserts under a single lock, so two
// concurrent registrations of the same email cannot both succeed.
func (r *IdentityRepository) Create(_ context.Context, identity *domain.Identity) (*domain.Identity, error) {
	emailKey := domain.NormalizeEmail(identity.Email)
	usernameKey := domain.NormalizeUsername(identity.Username)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[emailKey]; ok {
		return nil, domain.ErrDuplicateEmail
	}
	if _, ok := r.byUsername[usernameKey]; ok {
		return nil, domain.ErrDuplicateUsername
	}

	stored := clone(identity)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	stored.Version = 1

	r.byID[stored.ID] = stored
	r.byEmail[emailKey] = stored.ID
	r.byUsername[usernameKey] = stored.ID
	return clone(stored), nil
}

func (r *IdentityRepository) Update(_ context.Context, identity *domain.Identity) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[identity.ID]
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	if current.Version != identity.Version {
		return nil, domain.ErrConcurrentUpdate
	}

	oldEmail := domain.NormalizeEmail(current.Email)
	newEmail := domain.NormalizeEmail(identity.Email)
	if oldEmail != newEmail {
		if _, taken := r.byEmail[newEmail]; taken {
			return nil, domain.ErrDuplicateEmail
		}
	}
	oldUsername := domain.NormalizeUsername(current.Username)
	newUsername := domain.NormalizeUsername(identity.Username)
	if oldUsername != newUsername {
		if _, taken := r.byUsername[newUsername]; taken {
			return nil, domain.ErrDuplicateUsername
		}
	}

	stored := clone(identity)
	stored.Version = current.Version + 1
	// Owned by RecordLogin.
	stored.LastLoginAt = current.LastLoginAt
	r.byID[stored.ID] = stored

	delete(r.byEmail, oldEmail)
	r.byEmail[newEmail] = stored.ID
	delete(r.byUsername, oldUsername)
	r.byUsername[newUsername] = stored.ID

	return clone(stored), nil
}

func (r *IdentityRepository) RecordLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.byID[id]
	if !ok {
		return domain.ErrIdentityNotFound
	}
	i.LastLoginAt = at.UTC()
	return nil
}
