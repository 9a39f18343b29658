package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forecastingteller/auth-api/internal/core/domain"
)

func TestEncodeOutboxMessage(t *testing.T) {
	at := time.Date(2026, 4, 2, 10, 30, 0, 0, time.FixedZone("X", 3600))
	payload, err := encodeOutboxMessage(domain.Notification{
		IdentityID: "id-1",
		Email:      "alice@x.com",
		Username:   "alice",
		Token:      "tok",
		Kind:       domain.NotificationPasswordReset,
	}, at)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "id-1", decoded["identity_id"])
	assert.Equal(t, "alice@x.com", decoded["email"])
	assert.Equal(t, "tok", decoded["token"])
	assert.Equal(t, "password_reset", decoded["kind"])
	assert.Equal(t, "2026-04-02T09:30:00Z", decoded["enqueued_at"])
}

func TestNewOutbox_DefaultKey(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	assert.Equal(t, DefaultOutboxKey, NewOutbox(client, "").key)
	assert.Equal(t, "custom", NewOutbox(client, "custom").key)
}

func TestOutbox_SendReportsConnectionErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := NewOutbox(client, "").Send(ctx, domain.Notification{Kind: domain.NotificationVerification})
	assert.ErrorContains(t, err, "outbox push")
}
