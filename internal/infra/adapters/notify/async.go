package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"mpesa-subscription-shop/internal/domain/ports/adapter"
	"mpesa-subscription-shop/internal/infra/logging"
)

var _ adapter.Notifier = (*AsyncNotifier)(nil)

type job struct {
	recipient, subject, body string
}

// AsyncNotifier queues deliveries onto a small worker pool so the poll path
// never blocks on SMTP. Send only fails when the queue is full; delivery
// errors are logged by the workers, consistent with the fire-and-log policy.
type AsyncNotifier struct {
	next adapter.Notifier
	jobs chan job
	wg   sync.WaitGroup
	log  *zerolog.Logger
}

func NewAsyncNotifier(next adapter.Notifier, workers int, logger *zerolog.Logger) *AsyncNotifier {
	if workers <= 0 {
		workers = 4
	}
	compLog := logger.With().Str("component", "AsyncNotifier").Logger()
	return &AsyncNotifier{
		next: next,
		jobs: make(chan job, workers*8),
		log:  &compLog,
	}
}

// Start launches the delivery workers. On cancellation each worker drains
// the jobs already accepted before exiting, so Wait never returns with
// queued mail silently dropped.
func (n *AsyncNotifier) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 4
	}
	for i := 0; i < workers; i++ {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			for {
				select {
				case <-ctx.Done():
					n.drain()
					return
				case j := <-n.jobs:
					n.deliver(j)
				}
			}
		}()
	}
}

func (n *AsyncNotifier) deliver(j job) {
	sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := n.next.Send(sendCtx, j.recipient, j.subject, j.body); err != nil {
		n.log.Error().Err(err).Str("recipient", logging.Redact(j.recipient)).Msg("async delivery failed")
	}
}

func (n *AsyncNotifier) drain() {
	for {
		select {
		case j := <-n.jobs:
			n.deliver(j)
		default:
			return
		}
	}
}

// Wait blocks until all workers have exited.
func (n *AsyncNotifier) Wait() { n.wg.Wait() }

func (n *AsyncNotifier) Send(ctx context.Context, recipient, subject, body string) error {
	select {
	case n.jobs <- job{recipient: recipient, subject: subject, body: body}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
