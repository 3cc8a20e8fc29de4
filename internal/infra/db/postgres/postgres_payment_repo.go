// File: internal/infra/db/postgres/postgres_payment_repo.go
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"mpesa-subscription-shop/internal/domain"
	"mpesa-subscription-shop/internal/domain/model"
	"mpesa-subscription-shop/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, reference, intent, plan_id, provider, amount, currency, phone, payer_name, payer_email, provider_ref, status, message, fulfilled, shortage, credential, created_at, updated_at, paid_at`

func scanPayment(row pgx.Row) (*model.PaymentRecord, error) {
	p := &model.PaymentRecord{}
	err := row.Scan(
		&p.ID, &p.Reference, &p.Intent, &p.PlanID, &p.Provider, &p.Amount, &p.Currency,
		&p.Phone, &p.PayerName, &p.PayerEmail, &p.ProviderRef, &p.Status, &p.Message,
		&p.Fulfilled, &p.Shortage, &p.Credential, &p.CreatedAt, &p.UpdatedAt, &p.PaidAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

// isUniqueViolation reports a Postgres 23505 error (duplicate key).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *paymentRepo) Create(ctx context.Context, tx repository.Tx, p *model.PaymentRecord) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	const q = `
INSERT INTO payments (` + paymentColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19);`

	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.Reference, p.Intent, p.PlanID, p.Provider, p.Amount, p.Currency,
		p.Phone, p.PayerName, p.PayerEmail, p.ProviderRef, p.Status, p.Message,
		p.Fulfilled, p.Shortage, p.Credential, p.CreatedAt, p.UpdatedAt, p.PaidAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.PaymentRecord, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE reference=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, reference)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

// UpdateStatus keeps transitions monotonic: the WHERE clause refuses to move
// a terminal row back to pending. Updating a missing reference is ErrNotFound;
// a refused transition is a silent no-op.
func (r *paymentRepo) UpdateStatus(ctx context.Context, tx repository.Tx, reference string, status model.PaymentStatus, message string, paidAt *time.Time) error {
	const q = `
UPDATE payments
   SET status=$2, message=$3, paid_at=COALESCE($4, paid_at), updated_at=NOW()
 WHERE reference=$1
   AND NOT (status IN ('success','failed') AND $2 = 'pending');`

	cmd, err := execSQL(ctx, r.pool, tx, q, reference, string(status), message, paidAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		// Either the row is missing or the transition was refused.
		if _, ferr := r.FindByReference(ctx, tx, reference); ferr != nil {
			return ferr
		}
	}
	return nil
}

func (r *paymentRepo) MarkFulfilled(ctx context.Context, tx repository.Tx, reference string, credential string, shortage bool) error {
	const q = `
UPDATE payments
   SET fulfilled=$2, shortage=$3, credential=$4, updated_at=NOW()
 WHERE reference=$1;`

	cmd, err := execSQL(ctx, r.pool, tx, q, reference, !shortage, shortage, credential)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *paymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PaymentRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE status='pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.PaymentRecord
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *paymentRepo) DeleteTerminalOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time) (int64, error) {
	// Only settled rows leave: failed, or success already fulfilled/short.
	const q = `
DELETE FROM payments
 WHERE updated_at < $1
   AND (status = 'failed' OR (status = 'success' AND (fulfilled OR shortage)));`

	cmd, err := execSQL(ctx, r.pool, tx, q, olderThan)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return 0, err
		}
		return 0, domain.ErrOperationFailed
	}
	return cmd.RowsAffected(), nil
}

func (r *paymentRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.PaymentStatus]int64, error) {
	const q = `SELECT status, COUNT(*) FROM payments GROUP BY status;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	out := make(map[model.PaymentStatus]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[model.PaymentStatus(status)] = n
	}
	return out, nil
}

func (r *paymentRepo) SumRevenueSince(ctx context.Context, tx repository.Tx, since time.Time) (int64, error) {
	const q = `SELECT COALESCE(SUM(amount),0) FROM payments WHERE status='success' AND paid_at >= $1;`
	row, err := pickRow(ctx, r.pool, tx, q, since)
	if err != nil {
		return 0, err
	}

	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return sum, nil
}
