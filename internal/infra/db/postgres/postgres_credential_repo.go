// File: internal/infra/db/postgres/postgres_credential_repo.go
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"mpesa-subscription-shop/internal/domain"
	"mpesa-subscription-shop/internal/domain/ports/repository"
	"mpesa-subscription-shop/internal/infra/metrics"
)

var _ repository.CredentialInventory = (*credentialRepo)(nil)

// credentialRepo keeps per-plan credential pools ordered by pos. The pop is a
// single DELETE with SKIP LOCKED, so concurrent pollers never receive the
// same credential.
type credentialRepo struct{ pool *pgxpool.Pool }

func NewCredentialRepo(pool *pgxpool.Pool) *credentialRepo {
	return &credentialRepo{pool: pool}
}

func (r *credentialRepo) TakeOne(ctx context.Context, planID string) (string, error) {
	const q = `
DELETE FROM credentials
 WHERE id = (
       SELECT id FROM credentials
        WHERE plan_id = $1
        ORDER BY pos ASC
          FOR UPDATE SKIP LOCKED
        LIMIT 1)
RETURNING credential;`

	var cred string
	if err := r.pool.QueryRow(ctx, q, planID).Scan(&cred); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrInventoryEmpty
		}
		return "", domain.ErrOperationFailed
	}
	metrics.IncInventoryTake(planID)
	return cred, nil
}

func (r *credentialRepo) ReturnOne(ctx context.Context, planID, credential string) error {
	const q = `
INSERT INTO credentials (plan_id, credential, pos)
VALUES ($1, $2, COALESCE((SELECT MIN(pos) FROM credentials WHERE plan_id = $1), 1) - 1);`

	if _, err := r.pool.Exec(ctx, q, planID, credential); err != nil {
		return domain.ErrOperationFailed
	}
	metrics.IncInventoryReturn(planID)
	return nil
}

func (r *credentialRepo) Add(ctx context.Context, planID string, credentials ...string) error {
	if len(credentials) == 0 {
		return nil
	}
	const q = `
INSERT INTO credentials (plan_id, credential, pos)
SELECT $1, c, COALESCE((SELECT MAX(pos) FROM credentials WHERE plan_id = $1), 0) + ord
  FROM unnest($2::text[]) WITH ORDINALITY AS t(c, ord);`

	if _, err := r.pool.Exec(ctx, q, planID, credentials); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *credentialRepo) Count(ctx context.Context, planID string) (int, error) {
	const q = `SELECT COUNT(*) FROM credentials WHERE plan_id = $1;`

	var n int
	if err := r.pool.QueryRow(ctx, q, planID).Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}
