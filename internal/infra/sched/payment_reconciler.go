// File: internal/infra/sched/payment_reconciler.go
package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"mpesa-subscription-shop/internal/domain/ports/repository"
	"mpesa-subscription-shop/internal/usecase"
)

// PaymentReconciler periodically scans for stale pending payments and polls
// their status server-side. This covers payers who paid but never came back
// to poll, and processes that crashed mid-fulfillment. Polling is idempotent,
// so a concurrent client poll is harmless.
type PaymentReconciler struct {
	uc         usecase.PaymentUseCase
	payments   repository.PaymentRepository
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending payment must be to retry
	maxAttempt int           // reconciler polls per reference; client polls are not counted

	retention time.Duration // terminal records older than this are deleted

	attempts map[string]int
	log      *zerolog.Logger
}

func NewPaymentReconciler(
	uc usecase.PaymentUseCase,
	payments repository.PaymentRepository,
	interval, staleAfter time.Duration,
	maxAttempt int,
	retention time.Duration,
	logger *zerolog.Logger,
) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 2 * time.Minute
	}
	if maxAttempt <= 0 {
		maxAttempt = 30
	}
	compLog := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{
		uc:         uc,
		payments:   payments,
		interval:   interval,
		staleAfter: staleAfter,
		maxAttempt: maxAttempt,
		retention:  retention,
		attempts:   make(map[string]int),
		log:        &compLog,
	}
}

// Start blocks until ctx is cancelled. The retention sweep runs on its own
// slower cadence.
func (w *PaymentReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	sweep := time.NewTicker(time.Hour)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		case <-sweep.C:
			w.sweepRetention(ctx)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	pending, err := w.payments.ListPendingOlderThan(ctx, repository.NoTX, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("list pending failed")
		return
	}

	live := make(map[string]int, len(pending))
	for _, p := range pending {
		n := w.attempts[p.Reference]
		if n >= w.maxAttempt {
			// Give up server-side; an explicit client poll can still resolve it.
			live[p.Reference] = n
			continue
		}
		live[p.Reference] = n + 1

		res, err := w.uc.CheckStatus(ctx, p.Reference)
		if err != nil {
			w.log.Warn().Err(err).Str("reference", p.Reference).Msg("reconcile poll failed")
			continue
		}
		if res.Status.Terminal() {
			delete(live, p.Reference)
			w.log.Info().Str("reference", p.Reference).Str("status", string(res.Status)).Msg("payment reconciled")
		}
	}
	// Forget references that settled or fell out of the pending window.
	w.attempts = live
}

func (w *PaymentReconciler) sweepRetention(ctx context.Context) {
	if w.retention <= 0 {
		return
	}
	cutoff := time.Now().Add(-w.retention)
	n, err := w.payments.DeleteTerminalOlderThan(ctx, repository.NoTX, cutoff)
	if err != nil {
		w.log.Error().Err(err).Msg("retention sweep failed")
		return
	}
	if n > 0 {
		w.log.Info().Int64("deleted", n).Msg("retention sweep")
	}
}
