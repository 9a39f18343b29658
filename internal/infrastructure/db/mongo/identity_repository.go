package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/forecastingteller/auth-api/internal/core/domain"
)

const (
	collectionIdentities = "identities"

	indexUniqueEmail       = "uniq_email"
	indexUniqueUsername    = "uniq_username"
	indexVerificationToken = "idx_verification_token"
)

// IdentityRepository implements ports.IdentityRepository on MongoDB.
// Case-insensitive uniqueness is enforced by unique indexes over the
// normalized email and username fields, so a racing insert fails with a
// duplicate key error instead of producing a second record.
type IdentityRepository struct {
	col *mongo.Collection
}

func NewIdentityRepository(db *mongo.Database) *IdentityRepository {
	return &IdentityRepository{col: db.Collection(collectionIdentities)}
}

type identityDocument struct {
	ID                     string     `bson:"_id"`
	Username               string     `bson:"username"`
	UsernameNormalized     string     `bson:"username_normalized"`
	Email                  string     `bson:"email"`
	EmailNormalized        string     `bson:"email_normalized"`
	PasswordHash           string     `bson:"password_hash"`
	PasswordSalt           string     `bson:"password_salt"`
	EmailVerified          bool       `bson:"email_verified"`
	EmailVerificationToken string     `bson:"email_verification_token,omitempty"`
	PasswordResetToken     string     `bson:"password_reset_token,omitempty"`
	PasswordResetExpiry    *time.Time `bson:"password_reset_expiry,omitempty"`
	CreatedAt              time.Time  `bson:"created_at"`
	UpdatedAt              time.Time  `bson:"updated_at"`
	LastLoginAt            time.Time  `bson:"last_login_at,omitempty"`
	Version                int64      `bson:"version"`
}

func toDocument(i *domain.Identity) identityDocument {
	return identityDocument{
		ID:                     i.ID,
		Username:               i.Username,
		UsernameNormalized:     domain.NormalizeUsername(i.Username),
		Email:                  i.Email,
		EmailNormalized:        domain.NormalizeEmail(i.Email),
		PasswordHash:           i.PasswordHash,
		PasswordSalt:           i.PasswordSalt,
		EmailVerified:          i.EmailVerified,
		EmailVerificationToken: i.EmailVerificationToken,
		PasswordResetToken:     i.PasswordResetToken,
		PasswordResetExpiry:    i.PasswordResetExpiry,
		CreatedAt:              i.CreatedAt,
		UpdatedAt:              i.UpdatedAt,
		LastLoginAt:            i.LastLoginAt,
		Version:                i.Version,
	}
}

func (d identityDocument) toDomain() *domain.Identity {
	var expiry *time.Time
	if d.PasswordResetExpiry != nil {
		exp := d.PasswordResetExpiry.UTC()
		expiry = &exp
	}
	return &domain.Identity{
		ID:                     d.ID,
		Username:               d.Username,
		Email:                  d.Email,
		PasswordHash:           d.PasswordHash,
		PasswordSalt:           d.PasswordSalt,
		EmailVerified:          d.EmailVerified,
		EmailVerificationToken: d.EmailVerificationToken,
		PasswordResetToken:     d.PasswordResetToken,
		PasswordResetExpiry:    expiry,
		CreatedAt:              d.CreatedAt.UTC(),
		UpdatedAt:              d.UpdatedAt.UTC(),
		LastLoginAt:            d.LastLoginAt.UTC(),
		Version:                d.Version,
	}
}

// duplicateKeyError maps a unique index violation to the matching domain error.
func duplicateKeyError(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return nil
	}
	if strings.Contains(err.Error(), indexUniqueUsername) {
		return domain.ErrDuplicateUsername
	}
	return domain.ErrDuplicateEmail
}

func (r *IdentityRepository) findOne(ctx context.Context, filter bson.M) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc identityDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *IdentityRepository) exists(ctx context.Context, filter bson.M) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOne().SetProjection(bson.M{"_id": 1})
	err := r.col.FindOne(ctx, filter, opts).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return false, nil
	default:
		return false, fmt.Errorf("check identity: %w", err)
	}
}

func (r *IdentityRepository) FindByID(ctx context.Context, id string) (*domain.Identity, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *IdentityRepository) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return r.findOne(ctx, bson.M{"email_normalized": domain.NormalizeEmail(email)})
}

func (r *IdentityRepository) FindByUsername(ctx context.Context, username string) (*domain.Identity, error) {
	return r.findOne(ctx, bson.M{"username_normalized": domain.NormalizeUsername(username)})
}

func (r *IdentityRepository) FindByVerificationToken(ctx context.Context, token string) (*domain.Identity, error) {
	if token == "" {
		return nil, domain.ErrIdentityNotFound
	}
	return r.findOne(ctx, bson.M{"email_verification_token": token})
}

func (r *IdentityRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, bson.M{"email_normalized": domain.NormalizeEmail(email)})
}

func (r *IdentityRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, bson.M{"username_normalized": domain.NormalizeUsername(username)})
}

// Create inserts a new identity with version 1.
func (r *IdentityRepository) Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toDocument(identity)
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	doc.Version = 1

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if dup := duplicateKeyError(err); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("insert identity: %w", err)
	}
	return doc.toDomain(), nil
}

// Update writes the mutable fields only when the stored version matches.
// last_login_at is left to RecordLogin so a concurrent login is never
// overwritten by a stale copy.
func (r *IdentityRepository) Update(ctx context.Context, identity *domain.Identity) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toDocument(identity)
	doc.Version = identity.Version + 1

	set := bson.M{
		"username":            doc.Username,
		"username_normalized": doc.UsernameNormalized,
		"email":               doc.Email,
		"email_normalized":    doc.EmailNormalized,
		"password_hash":       doc.PasswordHash,
		"password_salt":       doc.PasswordSalt,
		"email_verified":      doc.EmailVerified,
		"updated_at":          doc.UpdatedAt,
		"version":             doc.Version,
	}
	unset := bson.M{}
	setOrUnset(set, unset, "email_verification_token", doc.EmailVerificationToken, doc.EmailVerificationToken != "")
	setOrUnset(set, unset, "password_reset_token", doc.PasswordResetToken, doc.PasswordResetToken != "")
	setOrUnset(set, unset, "password_reset_expiry", doc.PasswordResetExpiry, doc.PasswordResetExpiry != nil)

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": identity.ID, "version": identity.Version}, update)
	if err != nil {
		if dup := duplicateKeyError(err); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("update identity: %w", err)
	}
	if res.MatchedCount == 0 {
		exists, err := r.exists(ctx, bson.M{"_id": identity.ID})
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, domain.ErrConcurrentUpdate
	}
	return doc.toDomain(), nil
}

func setOrUnset(set, unset bson.M, field string, value any, present bool) {
	if present {
		set[field] = value
		return
	}
	unset[field] = ""
}

func (r *IdentityRepository) RecordLogin(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"last_login_at": at.UTC()}})
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrIdentityNotFound
	}
	return nil
}

// EnsureIndexes creates the uniqueness and lookup indexes on the identities collection.
func (r *IdentityRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email_normalized", Value: 1}},
			Options: options.Index().SetName(indexUniqueEmail).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "username_normalized", Value: 1}},
			Options: options.Index().SetName(indexUniqueUsername).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email_verification_token", Value: 1}},
			Options: options.Index().SetName(indexVerificationToken).SetSparse(true),
		},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
