//go:build !integration

package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mpesa-subscription-shop/internal/domain/ports/adapter"
)

type captureNotifier struct {
	mu   sync.Mutex
	sent []string
	done chan struct{}
	want int
}

func (c *captureNotifier) Send(ctx context.Context, recipient, subject, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, recipient)
	if len(c.sent) == c.want {
		close(c.done)
	}
	return nil
}

// gatedNotifier holds every delivery until the gate closes.
type gatedNotifier struct {
	next adapter.Notifier
	gate chan struct{}
}

func (g *gatedNotifier) Send(ctx context.Context, recipient, subject, body string) error {
	<-g.gate
	return g.next.Send(ctx, recipient, subject, body)
}

func TestAsyncNotifier(t *testing.T) {
	t.Run("should deliver queued messages via workers", func(t *testing.T) {
		logger := zerolog.Nop()
		capture := &captureNotifier{done: make(chan struct{}), want: 5}
		n := NewAsyncNotifier(capture, 2, &logger)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		n.Start(ctx, 2)

		for i := 0; i < 5; i++ {
			if err := n.Send(ctx, "user@example.com", "subject", "body"); err != nil {
				t.Fatalf("Send failed: %v", err)
			}
		}

		select {
		case <-capture.done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for async deliveries")
		}
	})

	t.Run("should drain accepted jobs on shutdown", func(t *testing.T) {
		logger := zerolog.Nop()
		capture := &captureNotifier{done: make(chan struct{}), want: 3}
		gate := make(chan struct{})
		n := NewAsyncNotifier(&gatedNotifier{next: capture, gate: gate}, 1, &logger)

		ctx, cancel := context.WithCancel(context.Background())
		n.Start(ctx, 1)

		for i := 0; i < 3; i++ {
			if err := n.Send(context.Background(), "user@example.com", "subject", "body"); err != nil {
				t.Fatalf("Send failed: %v", err)
			}
		}

		// Shutdown with deliveries still blocked; everything accepted must
		// still go out before Wait returns.
		cancel()
		close(gate)
		n.Wait()

		capture.mu.Lock()
		got := len(capture.sent)
		capture.mu.Unlock()
		if got != 3 {
			t.Errorf("expected all 3 accepted messages delivered, got %d", got)
		}
	})

	t.Run("should fail fast when the context is gone", func(t *testing.T) {
		logger := zerolog.Nop()
		capture := &captureNotifier{done: make(chan struct{}), want: 1}
		n := NewAsyncNotifier(capture, 1, &logger)
		// Workers never started: the queue fills and Send must respect ctx.

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		for i := 0; i < cap(n.jobs); i++ {
			_ = n.Send(context.Background(), "user@example.com", "s", "b")
		}
		if err := n.Send(ctx, "user@example.com", "s", "b"); err == nil {
			t.Fatal("expected a context error on a full queue")
		}
	})
}
