package memory

import (
	"context"
	"sync"

	"ticket-settlement-lab/internal/domain"
	"ticket-settlement-lab/internal/storage"
)

// MarketplaceStore is an in-memory implementation of storage.MarketplaceStore.
// It holds the single marketplace configuration row.
type MarketplaceStore struct {
	mu   sync.RWMutex
	data *domain.Marketplace
}

// NewMarketplaceStore creates an uninitialized marketplace store.
func NewMarketplaceStore() *MarketplaceStore {
	return &MarketplaceStore{}
}

var _ storage.MarketplaceStore = (*MarketplaceStore)(nil)

func (s *MarketplaceStore) Init(_ context.Context, m *domain.Marketplace) error {
	if m == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data != nil {
		return storage.ErrDuplicateKey
	}
	cp := *m
	s.data = &cp
	return nil
}

func (s *MarketplaceStore) Get(_ context.Context) (*domain.Marketplace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.data == nil {
		return nil, storage.ErrNotFound
	}
	cp := *s.data
	return &cp, nil
}

func (s *MarketplaceStore) Mutate(_ context.Context, fn func(*domain.Marketplace) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return storage.ErrNotFound
	}

	cp := *s.data
	if err := fn(&cp); err != nil {
		return err
	}
	s.data = &cp
	return nil
}

// PlatformStore is an in-memory implementation of storage.PlatformStore.
type PlatformStore struct {
	mu   sync.RWMutex
	data *domain.Platform
}

// NewPlatformStore creates an uninitialized platform store.
func NewPlatformStore() *PlatformStore {
	return &PlatformStore{}
}

var _ storage.PlatformStore = (*PlatformStore)(nil)

func (s *PlatformStore) Init(_ context.Context, p *domain.Platform) error {
	if p == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data != nil {
		return storage.ErrDuplicateKey
	}
	cp := *p
	s.data = &cp
	return nil
}

func (s *PlatformStore) Get(_ context.Context) (*domain.Platform, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.data == nil {
		return nil, storage.ErrNotFound
	}
	cp := *s.data
	return &cp, nil
}

func (s *PlatformStore) Mutate(_ context.Context, fn func(*domain.Platform) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return storage.ErrNotFound
	}

	cp := *s.data
	if err := fn(&cp); err != nil {
		return err
	}
	s.data = &cp
	return nil
}
