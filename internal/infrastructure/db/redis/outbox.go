package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/forecastingteller/auth-api/internal/core/domain"
)

const (
	// DefaultOutboxKey is the list an external mail worker consumes with BLPOP.
	DefaultOutboxKey = "notifications:outbox"
	outboxTTL        = 48 * time.Hour
)

// outboxMessage is the wire format pushed to the outbox list.
type outboxMessage struct {
	domain.Notification
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Outbox implements ports.NotificationSender by appending notifications to
// a Redis list for an out-of-process delivery worker.
type Outbox struct {
	client redis.Cmdable
	key    string
	now    func() time.Time
}

// NewOutbox creates an Outbox writing to key (DefaultOutboxKey when empty).
func NewOutbox(client redis.Cmdable, key string) *Outbox {
	if key == "" {
		key = DefaultOutboxKey
	}
	return &Outbox{client: client, key: key, now: time.Now}
}

// Send pushes the notification and refreshes the list TTL so an abandoned
// outbox does not hold tokens forever.
func (o *Outbox) Send(ctx context.Context, n domain.Notification) error {
	payload, err := encodeOutboxMessage(n, o.now())
	if err != nil {
		return err
	}

	pipe := o.client.TxPipeline()
	pipe.RPush(ctx, o.key, payload)
	pipe.Expire(ctx, o.key, outboxTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("outbox push: %w", err)
	}
	return nil
}

func encodeOutboxMessage(n domain.Notification, at time.Time) ([]byte, error) {
	payload, err := json.Marshal(outboxMessage{Notification: n, EnqueuedAt: at.UTC()})
	if err != nil {
		return nil, fmt.Errorf("outbox encode: %w", err)
	}
	return payload, nil
}
