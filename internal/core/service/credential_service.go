package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/forecastingteller/auth-api/internal/core/domain"
	"github.com/forecastingteller/auth-api/internal/core/ports"
	"github.com/forecastingteller/auth-api/internal/infrastructure/metrics"
)

const (
	DefaultResetTokenTTL = 24 * time.Hour

	// dummyPassword is hashed once and verified against on unknown-email
	// logins so both paths pay for a PBKDF2 derivation.
	dummyPassword = "timing-equalizer-not-a-real-password"
)

// Options tunes credential policy.
type Options struct {
	// RequireEmailVerification rejects logins until the address is confirmed.
	RequireEmailVerification bool
	// ResetTokenTTL is the lifetime of a password-reset token. Zero means 24h.
	ResetTokenTTL time.Duration
}

// CredentialService implements account registration, login, password
// recovery and email verification.
type CredentialService struct {
	repo     ports.IdentityRepository
	hasher   ports.PasswordHasher
	issuer   ports.SessionIssuer
	tokens   ports.TokenGenerator
	notifier ports.Notifier
	opts     Options
	log      zerolog.Logger
	now      func() time.Time

	dummyOnce   sync.Once
	dummyDigest domain.PasswordDigest
}

func NewCredentialService(
	repo ports.IdentityRepository,
	hasher ports.PasswordHasher,
	issuer ports.SessionIssuer,
	tokens ports.TokenGenerator,
	notifier ports.Notifier,
	opts Options,
	log zerolog.Logger,
) *CredentialService {
	if opts.ResetTokenTTL <= 0 {
		opts.ResetTokenTTL = DefaultResetTokenTTL
	}
	return &CredentialService{
		repo:     repo,
		hasher:   hasher,
		issuer:   issuer,
		tokens:   tokens,
		notifier: notifier,
		opts:     opts,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *CredentialService) WithClock(now func() time.Time) *CredentialService {
	s.now = now
	return s
}

func (s *CredentialService) Register(ctx context.Context, in ports.RegisterInput) (res *ports.AuthResult, err error) {
	defer func() { observe("register", err) }()

	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" || email == "" || in.Password == "" || in.ConfirmPassword == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.Password != in.ConfirmPassword {
		return nil, domain.ErrPasswordMismatch
	}

	taken, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, s.internal("register", err)
	}
	if taken {
		return nil, domain.ErrDuplicateEmail
	}
	taken, err = s.repo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, s.internal("register", err)
	}
	if taken {
		return nil, domain.ErrDuplicateUsername
	}

	digest, err := s.hash(in.Password)
	if err != nil {
		return nil, s.internal("register", err)
	}
	verification, err := s.tokens.Generate()
	if err != nil {
		return nil, s.internal("register", err)
	}

	now := s.now()
	identity := &domain.Identity{
		Username:               username,
		Email:                  email,
		EmailVerified:          false,
		EmailVerificationToken: verification,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	identity.SetPassword(digest)

	created, err := s.repo.Create(ctx, identity)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) || errors.Is(err, domain.ErrDuplicateUsername) {
			return nil, err
		}
		return nil, s.internal("register", err)
	}

	s.notifier.Notify(domain.Notification{
		IdentityID: created.ID,
		Email:      created.Email,
		Username:   created.Username,
		Token:      verification,
		Kind:       domain.NotificationVerification,
	})

	res, err = s.session(created)
	if err != nil {
		return nil, s.internal("register", err)
	}
	s.log.Info().Str("identity_id", created.ID).Str("operation", "register").Msg("identity registered")
	return res, nil
}

func (s *CredentialService) Login(ctx context.Context, in ports.LoginInput) (res *ports.AuthResult, err error) {
	defer func() { observe("login", err) }()

	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	identity, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrIdentityNotFound) {
		s.equalizeTiming(in.Password)
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, s.internal("login", err)
	}

	ok, err := s.verify(in.Password, identity.Digest())
	if err != nil {
		s.log.Error().Err(err).
			Str("identity_id", identity.ID).
			Str("operation", "login").
			Msg("stored password digest is corrupt")
		return nil, domain.ErrInvalidCredentials
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}

	if s.opts.RequireEmailVerification && !identity.EmailVerified {
		return nil, domain.ErrEmailNotVerified
	}

	now := s.now()
	if err := s.repo.RecordLogin(ctx, identity.ID, now); err != nil {
		return nil, s.internal("login", err)
	}
	identity.LastLoginAt = now

	res, err = s.session(identity)
	if err != nil {
		return nil, s.internal("login", err)
	}
	return res, nil
}

// ForgotPassword issues a reset token when email belongs to an identity.
// The outcome is indistinguishable to the caller either way.
func (s *CredentialService) ForgotPassword(ctx context.Context, email string) (err error) {
	defer func() { observe("forgot_password", err) }()

	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}

	identity, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrIdentityNotFound) {
		return nil
	}
	if err != nil {
		return s.internal("forgot password", err)
	}

	token, err := s.tokens.Generate()
	if err != nil {
		return s.internal("forgot password", err)
	}

	now := s.now()
	identity.IssueResetToken(token, now.Add(s.opts.ResetTokenTTL))
	identity.UpdatedAt = now

	updated, err := s.repo.Update(ctx, identity)
	if err != nil {
		return s.internal("forgot password", err)
	}

	s.notifier.Notify(domain.Notification{
		IdentityID: updated.ID,
		Email:      updated.Email,
		Username:   updated.Username,
		Token:      token,
		Kind:       domain.NotificationPasswordReset,
	})
	return nil
}

func (s *CredentialService) ResetPassword(ctx context.Context, in ports.ResetPasswordInput) (err error) {
	defer func() { observe("reset_password", err) }()

	email := strings.TrimSpace(in.Email)
	if email == "" || in.Token == "" || in.NewPassword == "" || in.ConfirmNewPassword == "" {
		return domain.ErrInvalidInput
	}
	if in.NewPassword != in.ConfirmNewPassword {
		return domain.ErrPasswordMismatch
	}

	identity, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrIdentityNotFound) {
		return domain.ErrInvalidToken
	}
	if err != nil {
		return s.internal("reset password", err)
	}

	if identity.PasswordResetToken == "" ||
		subtle.ConstantTimeCompare([]byte(identity.PasswordResetToken), []byte(in.Token)) != 1 {
		return domain.ErrInvalidToken
	}
	now := s.now()
	if identity.ResetTokenExpired(now) {
		return domain.ErrTokenExpired
	}

	digest, err := s.hash(in.NewPassword)
	if err != nil {
		return s.internal("reset password", err)
	}
	identity.SetPassword(digest)
	identity.ClearResetToken()
	identity.UpdatedAt = now

	if _, err := s.repo.Update(ctx, identity); err != nil {
		if errors.Is(err, domain.ErrConcurrentUpdate) {
			return domain.ErrInvalidToken
		}
		return s.internal("reset password", err)
	}
	s.log.Info().Str("identity_id", identity.ID).Str("operation", "reset_password").Msg("password reset")
	return nil
}

func (s *CredentialService) VerifyEmail(ctx context.Context, token string) (err error) {
	defer func() { observe("verify_email", err) }()

	if token == "" {
		return domain.ErrInvalidToken
	}

	identity, err := s.repo.FindByVerificationToken(ctx, token)
	if errors.Is(err, domain.ErrIdentityNotFound) {
		return domain.ErrInvalidToken
	}
	if err != nil {
		return s.internal("verify email", err)
	}

	identity.MarkEmailVerified()
	identity.UpdatedAt = s.now()

	if _, err := s.repo.Update(ctx, identity); err != nil {
		if errors.Is(err, domain.ErrConcurrentUpdate) {
			return domain.ErrInvalidToken
		}
		return s.internal("verify email", err)
	}
	return nil
}

func (s *CredentialService) GetIdentity(ctx context.Context, id string) (*ports.IdentitySummary, error) {
	if id == "" {
		return nil, domain.ErrIdentityNotFound
	}
	identity, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, domain.ErrIdentityNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, s.internal("get identity", err)
	}
	return &ports.IdentitySummary{
		ID:            identity.ID,
		Username:      identity.Username,
		Email:         identity.Email,
		EmailVerified: identity.EmailVerified,
		CreatedAt:     identity.CreatedAt,
		LastLoginAt:   identity.LastLoginAt,
	}, nil
}

func (s *CredentialService) session(identity *domain.Identity) (*ports.AuthResult, error) {
	sess, err := s.issuer.Issue(identity)
	if err != nil {
		return nil, err
	}
	metrics.SessionsIssuedTotal.Inc()
	return &ports.AuthResult{
		IdentityID:    identity.ID,
		Username:      identity.Username,
		Email:         identity.Email,
		EmailVerified: identity.EmailVerified,
		Token:         sess.Token,
		ExpiresAt:     sess.ExpiresAt,
	}, nil
}

func (s *CredentialService) hash(password string) (domain.PasswordDigest, error) {
	start := time.Now()
	defer func() { metrics.HashDuration.WithLabelValues("hash").Observe(time.Since(start).Seconds()) }()
	return s.hasher.Hash(password)
}

func (s *CredentialService) verify(password string, stored domain.PasswordDigest) (bool, error) {
	start := time.Now()
	defer func() { metrics.HashDuration.WithLabelValues("verify").Observe(time.Since(start).Seconds()) }()
	return s.hasher.Verify(password, stored)
}

func (s *CredentialService) equalizeTiming(password string) {
	s.dummyOnce.Do(func() {
		d, err := s.hasher.Hash(dummyPassword)
		if err == nil {
			s.dummyDigest = d
		}
	})
	if s.dummyDigest.Hash == "" {
		return
	}
	_, _ = s.verify(password, s.dummyDigest)
}

// internal logs the underlying fault and returns an error whose chain holds
// only domain.ErrInternal, so storage details never reach callers.
func (s *CredentialService) internal(op string, cause error) error {
	s.log.Error().Err(cause).Str("operation", op).Msg("credential operation failed")
	return fmt.Errorf("%s: %w", op, domain.ErrInternal)
}

func observe(op string, err error) {
	metrics.OperationsTotal.WithLabelValues(op, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, domain.ErrDuplicateUsername):
		return "duplicate_username"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrEmailNotVerified):
		return "email_not_verified"
	case errors.Is(err, domain.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, domain.ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrPasswordMismatch):
		return "invalid_input"
	default:
		return "internal"
	}
}

var _ ports.CredentialService = (*CredentialService)(nil)
