// Package inventory provides the in-memory credential store used in dev
// mode and tests. Production deployments use the Redis or Postgres stores.
package inventory

import (
	"context"
	"sync"

	"mpesa-subscription-shop/internal/domain"
	"mpesa-subscription-shop/internal/domain/ports/repository"
	"mpesa-subscription-shop/internal/infra/metrics"
)

var _ repository.CredentialInventory = (*MemoryStore)(nil)

// MemoryStore keeps an ordered credential list per plan behind one mutex.
type MemoryStore struct {
	mu    sync.Mutex
	lists map[string][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{lists: make(map[string][]string)}
}

func (s *MemoryStore) TakeOne(ctx context.Context, planID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.lists[planID]
	if len(list) == 0 {
		return "", domain.ErrInventoryEmpty
	}
	cred := list[0]
	s.lists[planID] = list[1:]
	metrics.IncInventoryTake(planID)
	return cred, nil
}

func (s *MemoryStore) ReturnOne(ctx context.Context, planID, credential string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[planID] = append([]string{credential}, s.lists[planID]...)
	metrics.IncInventoryReturn(planID)
	return nil
}

func (s *MemoryStore) Add(ctx context.Context, planID string, credentials ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[planID] = append(s.lists[planID], credentials...)
	return nil
}

func (s *MemoryStore) Count(ctx context.Context, planID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lists[planID]), nil
}
