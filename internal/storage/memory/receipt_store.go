package memory

import (
	"context"
	"sync"

	"ticket-settlement-lab/internal/domain"
	"ticket-settlement-lab/internal/storage"
)

// ReceiptStore is an in-memory implementation of storage.ReceiptStore.
type ReceiptStore struct {
	mu   sync.RWMutex
	ids  map[string]struct{}
	list []*domain.Receipt // append order
}

// NewReceiptStore creates a new in-memory receipt store.
func NewReceiptStore() *ReceiptStore {
	return &ReceiptStore{ids: make(map[string]struct{})}
}

var _ storage.ReceiptStore = (*ReceiptStore)(nil)

func (s *ReceiptStore) Append(_ context.Context, r *domain.Receipt) error {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[r.ID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *r
	s.ids[r.ID] = struct{}{}
	s.list = append(s.list, &cp)
	return nil
}

func (s *ReceiptStore) List(_ context.Context, limit int) ([]*domain.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		return nil, nil
	}
	if limit > len(s.list) {
		limit = len(s.list)
	}

	out := make([]*domain.Receipt, 0, limit)
	for i := len(s.list) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *s.list[i]
		out = append(out, &cp)
	}
	return out, nil
}
