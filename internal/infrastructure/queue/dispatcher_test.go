package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/forecastingteller/auth-api/internal/core/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingSender struct {
	mu    sync.Mutex
	sent  []domain.Notification
	err   error
	block chan struct{}
	done  chan struct{}
}

func (s *recordingSender) Send(ctx context.Context, n domain.Notification) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	s.sent = append(s.sent, n)
	s.mu.Unlock()
	if s.done != nil {
		s.done <- struct{}{}
	}
	return s.err
}

func (s *recordingSender) snapshot() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Notification(nil), s.sent...)
}

func TestDispatcher_DeliversInOrderPerIdentity(t *testing.T) {
	sender := &recordingSender{done: make(chan struct{}, 64)}
	d := NewDispatcher(3, sender, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	const total = 20
	for i := 0; i < total; i++ {
		d.Notify(domain.Notification{
			IdentityID: "id-1",
			Token:      fmt.Sprintf("tok-%02d", i),
			Kind:       domain.NotificationPasswordReset,
		})
	}
	for i := 0; i < total; i++ {
		select {
		case <-sender.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d deliveries", i)
		}
	}

	cancel()
	d.Wait()

	sent := sender.snapshot()
	require.Len(t, sent, total)
	for i, n := range sent {
		assert.Equal(t, fmt.Sprintf("tok-%02d", i), n.Token)
	}
}

func TestDispatcher_SenderErrorDoesNotStopWorker(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down"), done: make(chan struct{}, 4)}
	d := NewDispatcher(1, sender, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	d.Notify(domain.Notification{IdentityID: "a", Kind: domain.NotificationVerification})
	d.Notify(domain.Notification{IdentityID: "b", Kind: domain.NotificationVerification})
	for i := 0; i < 2; i++ {
		select {
		case <-sender.done:
		case <-time.After(2 * time.Second):
			t.Fatal("worker stopped after sender error")
		}
	}

	cancel()
	d.Wait()
	assert.Len(t, sender.snapshot(), 2)
}

func TestDispatcher_NotifyNeverBlocks(t *testing.T) {
	sender := &recordingSender{block: make(chan struct{})}
	d := NewDispatcher(1, sender, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	finished := make(chan struct{})
	go func() {
		for i := 0; i < channelBuffer*2; i++ {
			d.Notify(domain.Notification{IdentityID: "id-1", Kind: domain.NotificationVerification})
		}
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked on a full queue")
	}

	cancel()
	d.Wait()
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(0, &recordingSender{}, zerolog.Nop())
	require.Len(t, d.workers, defaultWorkers)

	for _, id := range []string{"", "a", "0b6f6c2e-4c3e-4b8a-9a51-3a0e2f1c9d7e"} {
		idx := d.shardIndex(id)
		assert.Equal(t, idx, d.shardIndex(id))
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, defaultWorkers)
	}
}
