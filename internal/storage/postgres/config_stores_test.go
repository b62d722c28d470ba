package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-settlement-lab/internal/domain"
	"ticket-settlement-lab/internal/storage"
)

func TestMarketplaceStore_InitOnce(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMarketplaceStore(pool)
	ctx := context.Background()

	_, err := store.Get(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	m := &domain.Marketplace{
		Authority: "authority-addr",
		Treasury:  "treasury-addr",
		FeeBps:    250,
	}
	require.NoError(t, store.Init(ctx, m))

	err = store.Init(ctx, m)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestMarketplaceStore_Mutate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMarketplaceStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Init(ctx, &domain.Marketplace{
		Authority: "authority-addr",
		Treasury:  "treasury-addr",
		FeeBps:    250,
	}))

	err := store.Mutate(ctx, func(m *domain.Marketplace) error {
		m.Paused = true
		m.TotalListings++
		return nil
	})
	require.NoError(t, err)

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.True(t, got.Paused)
	assert.Equal(t, uint64(1), got.TotalListings)
}

func TestPlatformStore_InitAndMutate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPlatformStore(pool)
	ctx := context.Background()

	p := &domain.Platform{
		Owner:    "owner-addr",
		Treasury: "platform-treasury",
		FeeBps:   500,
	}
	require.NoError(t, store.Init(ctx, p))

	err := store.Init(ctx, p)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	err = store.Mutate(ctx, func(p *domain.Platform) error {
		p.TotalTicketsSold += 4
		p.TotalFeesCollected += 100_000
		return nil
	})
	require.NoError(t, err)

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), got.TotalTicketsSold)
	assert.Equal(t, uint64(100_000), got.TotalFeesCollected)
}
