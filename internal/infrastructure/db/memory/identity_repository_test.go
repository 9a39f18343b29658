package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forecastingteller/auth-api/internal/core/domain"
)

func seed(t *testing.T, r *IdentityRepository, username, email string) *domain.Identity {
	t.Helper()
	created, err := r.Create(context.Background(), &domain.Identity{
		Username:               username,
		Email:                  email,
		PasswordHash:           "hash",
		PasswordSalt:           "salt",
		EmailVerificationToken: "verify-" + username,
	})
	require.NoError(t, err)
	return created
}

func TestIdentityRepository_CreateAssignsIDAndVersion(t *testing.T) {
	r := NewIdentityRepository()
	created := seed(t, r, "alice", "alice@x.com")

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, int64(1), created.Version)

	found, err := r.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, found)
}

func TestIdentityRepository_CaseInsensitiveLookups(t *testing.T) {
	ctx := context.Background()
	r := NewIdentityRepository()
	created := seed(t, r, "Alice", "Alice@X.com")

	byEmail, err := r.FindByEmail(ctx, "ALICE@x.COM")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byUsername, err := r.FindByUsername(ctx, "aLiCe")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byUsername.ID)

	exists, err := r.ExistsByEmail(ctx, " alice@x.com ")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = r.ExistsByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestIdentityRepository_CreateRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	r := NewIdentityRepository()
	seed(t, r, "alice", "alice@x.com")

	_, err := r.Create(ctx, &domain.Identity{Username: "other", Email: "ALICE@X.COM"})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

	_, err = r.Create(ctx, &domain.Identity{Username: "ALICE", Email: "other@x.com"})
	assert.ErrorIs(t, err, domain.ErrDuplicateUsername)
}

func TestIdentityRepository_ConcurrentCreateSameEmail(t *testing.T) {
	r := NewIdentityRepository()

	var wg sync.WaitGroup
	var ok, dup atomic.Int32
	for n := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Create(context.Background(), &domain.Identity{
				Username: fmt.Sprintf("user%d", n),
				Email:    "race@x.com",
			})
			switch err {
			case nil:
				ok.Add(1)
			case domain.ErrDuplicateEmail:
				dup.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(31), dup.Load())
}

func TestIdentityRepository_UpdateCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	r := NewIdentityRepository()
	created := seed(t, r, "alice", "alice@x.com")

	first := *created
	second := *created

	first.MarkEmailVerified()
	updated, err := r.Update(ctx, &first)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	second.MarkEmailVerified()
	_, err = r.Update(ctx, &second)
	assert.ErrorIs(t, err, domain.ErrConcurrentUpdate)

	_, err = r.Update(ctx, &domain.Identity{ID: "missing"})
	assert.ErrorIs(t, err, domain.ErrIdentityNotFound)
}

func TestIdentityRepository_UpdateReindexesEmail(t *testing.T) {
	ctx := context.Background()
	r := NewIdentityRepository()
	alice := seed(t, r, "alice", "alice@x.com")
	seed(t, r, "bob", "bob@x.com")

	alice.Email = "BOB@x.com"
	_, err := r.Update(ctx, alice)
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

	alice.Email = "alice@new.com"
	_, err = r.Update(ctx, alice)
	require.NoError(t, err)

	_, err = r.FindByEmail(ctx, "alice@x.com")
	assert.ErrorIs(t, err, domain.ErrIdentityNotFound)
	found, err := r.FindByEmail(ctx, "alice@new.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, found.ID)
}

func TestIdentityRepository_FindByVerificationToken(t *testing.T) {
	ctx := context.Background()
	r := NewIdentityRepository()
	alice := seed(t, r, "alice", "alice@x.com")

	found, err := r.FindByVerificationToken(ctx, "verify-alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, found.ID)

	_, err = r.FindByVerificationToken(ctx, "")
	assert.ErrorIs(t, err, domain.ErrIdentityNotFound)
	_, err = r.FindByVerificationToken(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrIdentityNotFound)
}

func TestIdentityRepository_FindByVerificationTokenExactMatchOnly(t *testing.T) {
	ctx := context.Background()
	r := NewIdentityRepository()
	alice := seed(t, r, "alice", "alice@x.com")

	for _, token := range []string{"verify-", "verify-alic", "verify-alice2", "VERIFY-ALICE"} {
		_, err := r.FindByVerificationToken(ctx, token)
		assert.ErrorIs(t, err, domain.ErrIdentityNotFound, token)
	}

	// A consumed token leaves the field empty and must not match anything.
	alice.MarkEmailVerified()
	_, err := r.Update(ctx, alice)
	require.NoError(t, err)
	_, err = r.FindByVerificationToken(ctx, "verify-alice")
	assert.ErrorIs(t, err, domain.ErrIdentityNotFound)
}

func TestIdentityRepository_RecordLogin(t *testing.T) {
	ctx := context.Background()
	r := NewIdentityRepository()
	alice := seed(t, r, "alice", "alice@x.com")
	at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, r.RecordLogin(ctx, alice.ID, at))

	found, err := r.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, at, found.LastLoginAt)
	assert.Equal(t, alice.Version, found.Version)

	assert.ErrorIs(t, r.RecordLogin(ctx, "missing", at), domain.ErrIdentityNotFound)
}

func TestIdentityRepository_UpdateKeepsLastLogin(t *testing.T) {
	ctx := context.Background()
	r := NewIdentityRepository()
	alice := seed(t, r, "alice", "alice@x.com")
	at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	// alice was read before the login was recorded.
	require.NoError(t, r.RecordLogin(ctx, alice.ID, at))
	alice.EmailVerified = true
	_, err := r.Update(ctx, alice)
	require.NoError(t, err)

	found, err := r.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, found.EmailVerified)
	assert.Equal(t, at, found.LastLoginAt)
}

func TestIdentityRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	r := NewIdentityRepository()
	alice := seed(t, r, "alice", "alice@x.com")

	alice.IssueResetToken("tok", time.Now())
	found, err := r.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, found.PasswordResetToken)
	assert.Nil(t, found.PasswordResetExpiry)
}
