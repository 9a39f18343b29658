package ports

import (
	"context"

	"github.com/forecastingteller/auth-api/internal/core/domain"
)

// Notifier accepts a notification for asynchronous delivery. It must not
// block the caller and does not report delivery failures.
type Notifier interface {
	Notify(n domain.Notification)
}

// NotificationSender performs the actual delivery (email, outbox, log).
type NotificationSender interface {
	Send(ctx context.Context, n domain.Notification) error
}
