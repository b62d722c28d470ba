package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-settlement-lab/internal/domain"
	"ticket-settlement-lab/internal/storage"
)

func testListing(id string) *domain.Listing {
	return &domain.Listing{
		ID:            id,
		Seller:        "seller-addr",
		EventID:       "event-1",
		AssetID:       "asset-1",
		Price:         5_000_000,
		OriginalPrice: 5_000_000,
		ListedAt:      1_700_000_000,
		ExpiresAt:     1_700_086_400,
		Active:        true,
	}
}

func TestListingStore_CreateAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewListingStore(pool)
	ctx := context.Background()

	l := testListing("lst-1")
	require.NoError(t, store.Create(ctx, l))

	got, err := store.Get(ctx, "lst-1")
	require.NoError(t, err)
	assert.Equal(t, l, got)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListingStore_CreateDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewListingStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testListing("lst-1")))
	err := store.Create(ctx, testListing("lst-1"))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestListingStore_Update(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewListingStore(pool)
	ctx := context.Background()

	l := testListing("lst-1")
	require.NoError(t, store.Create(ctx, l))

	l.Active = false
	require.NoError(t, store.Update(ctx, l))

	got, err := store.Get(ctx, "lst-1")
	require.NoError(t, err)
	assert.False(t, got.Active)

	err = store.Update(ctx, testListing("missing"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListingStore_Delete(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewListingStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testListing("lst-1")))
	require.NoError(t, store.Delete(ctx, "lst-1"))

	_, err := store.Get(ctx, "lst-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = store.Delete(ctx, "lst-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
