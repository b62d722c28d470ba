package memory

import (
	"context"
	"sync"

	"ticket-settlement-lab/internal/domain"
	"ticket-settlement-lab/internal/storage"
)

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Event
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{data: make(map[string]*domain.Event)}
}

var _ storage.EventStore = (*EventStore)(nil)

func (s *EventStore) Create(_ context.Context, e *domain.Event) error {
	if e == nil || e.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.ID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *e
	s.data[e.ID] = &cp
	return nil
}

func (s *EventStore) Get(_ context.Context, id string) (*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

// Mutate applies fn under the store lock so concurrent counter bumps from
// different settlement paths cannot lose updates.
func (s *EventStore) Mutate(_ context.Context, id string, fn func(*domain.Event) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[id]
	if !ok {
		return storage.ErrNotFound
	}

	cp := *e
	if err := fn(&cp); err != nil {
		return err
	}
	s.data[id] = &cp
	return nil
}
