package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/forecastingteller/auth-api/internal/core/domain"
)

const defaultExpiryMinutes = 60

var (
	// ErrMissingSubject is returned when asked to sign a token for an identity without an ID.
	ErrMissingSubject = errors.New("identity id is required for session token")
	// ErrInvalidSession is returned by Parse for any unusable bearer token.
	ErrInvalidSession = errors.New("invalid session token")
)

// SessionClaims is the claim set carried by every session token. Subject
// holds the identity ID and ID holds the unique token identifier.
type SessionClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// JWTConfig is the signing policy shared by every instance of the service.
type JWTConfig struct {
	Secret        string
	Issuer        string
	Audience      string
	ExpiryMinutes int
}

// JWTIssuer signs HS256 session tokens and parses them back for the bearer middleware.
type JWTIssuer struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

func NewJWTIssuer(cfg JWTConfig) (*JWTIssuer, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret must be provided")
	}
	minutes := cfg.ExpiryMinutes
	if minutes <= 0 {
		minutes = defaultExpiryMinutes
	}
	return &JWTIssuer{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      time.Duration(minutes) * time.Minute,
		now:      time.Now,
	}, nil
}

// WithClock replaces the time source. Used by tests.
func (i *JWTIssuer) WithClock(now func() time.Time) *JWTIssuer {
	i.now = now
	return i
}

// Issue signs a session token for identity.
func (i *JWTIssuer) Issue(identity *domain.Identity) (*domain.Session, error) {
	if identity == nil || identity.ID == "" {
		return nil, ErrMissingSubject
	}

	now := i.now().UTC()
	expiresAt := now.Add(i.ttl)
	tokenID := uuid.NewString()

	claims := SessionClaims{
		Email: identity.Email,
		Name:  identity.Username,
		Role:  domain.RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			ID:        tokenID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if i.audience != "" {
		claims.Audience = jwt.ClaimStrings{i.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	return &domain.Session{Token: signed, TokenID: tokenID, ExpiresAt: expiresAt}, nil
}

// Parse validates signature, algorithm, issuer, audience and expiry.
func (i *JWTIssuer) Parse(token string) (*SessionClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}
	if i.audience != "" {
		opts = append(opts, jwt.WithAudience(i.audience))
	}

	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidSession)
	}
	return claims, nil
}
