package memory

import (
	"context"
	"sync"

	"ticket-settlement-lab/internal/domain"
	"ticket-settlement-lab/internal/storage"
)

// VenueStore is an in-memory implementation of storage.VenueStore.
type VenueStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Venue
}

// NewVenueStore creates a new in-memory venue store.
func NewVenueStore() *VenueStore {
	return &VenueStore{data: make(map[string]*domain.Venue)}
}

var _ storage.VenueStore = (*VenueStore)(nil)

func (s *VenueStore) Create(_ context.Context, v *domain.Venue) error {
	if v == nil || v.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[v.ID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *v
	s.data[v.ID] = &cp
	return nil
}

func (s *VenueStore) Get(_ context.Context, id string) (*domain.Venue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (s *VenueStore) Mutate(_ context.Context, id string, fn func(*domain.Venue) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.data[id]
	if !ok {
		return storage.ErrNotFound
	}

	cp := *v
	if err := fn(&cp); err != nil {
		return err
	}
	s.data[id] = &cp
	return nil
}
