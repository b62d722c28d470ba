package postgres

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-settlement-lab/internal/domain"
	"ticket-settlement-lab/internal/storage"
)

func TestReceiptStore_AppendAndList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewReceiptStore(pool)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		r := &domain.Receipt{
			ID:        fmt.Sprintf("rcpt-%d", i),
			Kind:      domain.ReceiptListingSold,
			Actor:     "buyer-addr",
			Price:     uint64(1000 * (i + 1)),
			TotalPaid: uint64(1000 * (i + 1)),
			Timestamp: int64(1_700_000_000 + i),
		}
		require.NoError(t, store.Append(ctx, r))
	}

	got, err := store.List(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Newest first.
	assert.Equal(t, "rcpt-4", got[0].ID)
	assert.Equal(t, "rcpt-3", got[1].ID)
	assert.Equal(t, "rcpt-2", got[2].ID)
	assert.Equal(t, uint64(5000), got[0].Price)
}

func TestReceiptStore_AppendDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewReceiptStore(pool)
	ctx := context.Background()

	r := &domain.Receipt{ID: "rcpt-1", Kind: domain.ReceiptListingCreated, Actor: "seller", Timestamp: 1}
	require.NoError(t, store.Append(ctx, r))

	err := store.Append(ctx, r)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestReceiptStore_ListEmpty(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewReceiptStore(pool)
	ctx := context.Background()

	got, err := store.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = store.List(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, got)
}
