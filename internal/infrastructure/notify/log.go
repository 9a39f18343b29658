package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/forecastingteller/auth-api/internal/core/domain"
)

// LogSender records notifications without delivering them. Used in
// development when no mail provider is configured; the token is not logged.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, n domain.Notification) error {
	s.log.Info().
		Str("identity_id", n.IdentityID).
		Str("kind", string(n.Kind)).
		Str("email", n.Email).
		Msg("notification not delivered: log sender")
	return nil
}
