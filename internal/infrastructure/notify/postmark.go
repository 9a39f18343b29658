// Package notify delivers verification and password-reset tokens to users.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mrz1836/postmark"

	"github.com/forecastingteller/auth-api/internal/core/domain"
)

var (
	ErrInvalidConfig = errors.New("notify: invalid configuration")
	ErrSendFailed    = errors.New("notify: failed to send email")
	ErrUnknownKind   = errors.New("notify: unknown notification kind")
)

const defaultResetTTL = 24 * time.Hour

// PostmarkConfig holds the Postmark credentials and the link base URL.
// ResetTokenTTL is quoted in the reset email and should match the policy
// that issues the token.
type PostmarkConfig struct {
	ServerToken   string
	AccountToken  string
	SenderEmail   string
	BaseURL       string
	ResetTokenTTL time.Duration
}

type emailClient interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

// PostmarkSender implements ports.NotificationSender with Postmark's
// transactional email API.
type PostmarkSender struct {
	client   emailClient
	from     string
	baseURL  string
	resetTTL time.Duration
}

func NewPostmarkSender(cfg PostmarkConfig) (*PostmarkSender, error) {
	if cfg.ServerToken == "" || cfg.AccountToken == "" {
		return nil, fmt.Errorf("%w: postmark tokens are required", ErrInvalidConfig)
	}
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("%w: sender email is required", ErrInvalidConfig)
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("%w: base url: %v", ErrInvalidConfig, err)
	}
	if cfg.ResetTokenTTL < 0 {
		return nil, fmt.Errorf("%w: reset token ttl must not be negative", ErrInvalidConfig)
	}
	return &PostmarkSender{
		client:   postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		from:     cfg.SenderEmail,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		resetTTL: cfg.ResetTokenTTL,
	}, nil
}

func (s *PostmarkSender) Send(ctx context.Context, n domain.Notification) error {
	msg, err := s.compose(ctx, n)
	if err != nil {
		return err
	}

	resp, err := s.client.SendEmail(ctx, msg)
	if err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrSendFailed, fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return nil
}

func (s *PostmarkSender) compose(ctx context.Context, n domain.Notification) (postmark.Email, error) {
	var subject string
	body := emailBody{Username: n.Username}

	switch n.Kind {
	case domain.NotificationVerification:
		q := url.Values{"token": {n.Token}}
		subject = "Confirm your email address"
		body.Link = s.baseURL + "/auth/verify-email?" + q.Encode()
		body.Intro = "Welcome! Please confirm your email address by opening the link below."
	case domain.NotificationPasswordReset:
		ttl := s.resetTTL
		if ttl <= 0 {
			ttl = defaultResetTTL
		}
		q := url.Values{"email": {n.Email}, "token": {n.Token}}
		subject = "Reset your password"
		body.Link = s.baseURL + "/reset-password?" + q.Encode()
		body.Intro = "We received a request to reset your password. The link below is valid for " +
			humanDuration(ttl) + "."
	default:
		return postmark.Email{}, fmt.Errorf("%w: %q", ErrUnknownKind, n.Kind)
	}

	html, err := render(ctx, htmlEmail(body))
	if err != nil {
		return postmark.Email{}, fmt.Errorf("render html body: %w", err)
	}
	text, err := render(ctx, textEmail(body))
	if err != nil {
		return postmark.Email{}, fmt.Errorf("render text body: %w", err)
	}

	return postmark.Email{
		From:       s.from,
		To:         n.Email,
		Subject:    subject,
		Tag:        string(n.Kind),
		TextBody:   text,
		HTMLBody:   html,
		TrackOpens: false,
	}, nil
}
