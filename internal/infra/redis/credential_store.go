// File: internal/infra/redis/credential_store.go
package redis

import (
	"context"
	"errors"

	"github.com/go-redis/redis/v8"

	"mpesa-subscription-shop/internal/domain"
	"mpesa-subscription-shop/internal/domain/ports/repository"
	"mpesa-subscription-shop/internal/infra/metrics"
)

var _ repository.CredentialInventory = (*CredentialStore)(nil)

// CredentialStore keeps per-plan credential pools as Redis lists. LPOP is
// atomic, so concurrent pollers never hand out the same credential twice.
type CredentialStore struct {
	cli *redis.Client
}

func NewCredentialStore(c *Client) *CredentialStore {
	return &CredentialStore{cli: c.cli}
}

func invKey(planID string) string {
	return "inventory:" + planID
}

func (s *CredentialStore) TakeOne(ctx context.Context, planID string) (string, error) {
	cred, err := s.cli.LPop(ctx, invKey(planID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrInventoryEmpty
	}
	if err != nil {
		return "", err
	}
	metrics.IncInventoryTake(planID)
	return cred, nil
}

func (s *CredentialStore) ReturnOne(ctx context.Context, planID, credential string) error {
	if err := s.cli.LPush(ctx, invKey(planID), credential).Err(); err != nil {
		return err
	}
	metrics.IncInventoryReturn(planID)
	return nil
}

func (s *CredentialStore) Add(ctx context.Context, planID string, credentials ...string) error {
	if len(credentials) == 0 {
		return nil
	}
	vals := make([]interface{}, len(credentials))
	for i, c := range credentials {
		vals[i] = c
	}
	return s.cli.RPush(ctx, invKey(planID), vals...).Err()
}

func (s *CredentialStore) Count(ctx context.Context, planID string) (int, error) {
	n, err := s.cli.LLen(ctx, invKey(planID)).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
