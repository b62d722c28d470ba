package memory

import (
	"context"
	"sync"

	"ticket-settlement-lab/internal/domain"
	"ticket-settlement-lab/internal/storage"
)

// ListingStore is an in-memory implementation of storage.ListingStore.
type ListingStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Listing
}

// NewListingStore creates a new in-memory listing store.
func NewListingStore() *ListingStore {
	return &ListingStore{data: make(map[string]*domain.Listing)}
}

// Compile-time interface check.
var _ storage.ListingStore = (*ListingStore)(nil)

func (s *ListingStore) Create(_ context.Context, l *domain.Listing) error {
	if l == nil || l.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[l.ID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *l
	s.data[l.ID] = &cp
	return nil
}

func (s *ListingStore) Get(_ context.Context, id string) (*domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *ListingStore) Update(_ context.Context, l *domain.Listing) error {
	if l == nil || l.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[l.ID]; !ok {
		return storage.ErrNotFound
	}
	cp := *l
	s.data[l.ID] = &cp
	return nil
}

func (s *ListingStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.data, id)
	return nil
}
