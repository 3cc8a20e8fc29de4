package repository

import (
	"context"
	"time"

	"mpesa-subscription-shop/internal/domain/model"
)

// PaymentRepository persists payment records keyed by reference.
type PaymentRepository interface {
	// Create inserts a new record; domain.ErrAlreadyExists on a duplicate
	// reference (the engine retries with a fresh reference).
	Create(ctx context.Context, tx Tx, p *model.PaymentRecord) error
	FindByReference(ctx context.Context, tx Tx, reference string) (*model.PaymentRecord, error)
	// UpdateStatus moves a record to a new status. Implementations must keep
	// transitions monotonic: a terminal record is never moved back to pending.
	UpdateStatus(ctx context.Context, tx Tx, reference string, status model.PaymentStatus, message string, paidAt *time.Time) error
	// MarkFulfilled records the outcome of fulfillment exactly once. The
	// credential is stored for reconciliation; shortage records a confirmed
	// payment that found no credential.
	MarkFulfilled(ctx context.Context, tx Tx, reference string, credential string, shortage bool) error
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.PaymentRecord, error)
	// DeleteTerminalOlderThan enforces the retention window. Only terminal,
	// fulfillment-settled records are eligible.
	DeleteTerminalOlderThan(ctx context.Context, tx Tx, olderThan time.Time) (int64, error)
	CountByStatus(ctx context.Context, tx Tx) (map[model.PaymentStatus]int64, error)
	SumRevenueSince(ctx context.Context, tx Tx, since time.Time) (int64, error)
}
