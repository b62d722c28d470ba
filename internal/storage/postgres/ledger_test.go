package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-settlement-lab/internal/domain"
	"ticket-settlement-lab/internal/storage"
)

func TestLedger_DepositAndBalance(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ledger := NewLedger(pool)
	ctx := context.Background()

	// Unknown accounts hold zero.
	balance, err := ledger.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), balance)

	require.NoError(t, ledger.Deposit(ctx, "alice", 1_000_000))
	require.NoError(t, ledger.Deposit(ctx, "alice", 500_000))

	balance, err = ledger.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000), balance)
}

func TestLedger_ApplyMovesAllLegs(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ledger := NewLedger(pool)
	ctx := context.Background()

	require.NoError(t, ledger.Deposit(ctx, "buyer", 1_000_000))

	err := ledger.Apply(ctx, []storage.Transfer{
		{From: "buyer", To: "seller", Amount: 900_000},
		{From: "buyer", To: "treasury", Amount: 100_000},
	})
	require.NoError(t, err)

	for addr, want := range map[string]uint64{"buyer": 0, "seller": 900_000, "treasury": 100_000} {
		got, err := ledger.Balance(ctx, addr)
		require.NoError(t, err)
		assert.Equal(t, want, got, addr)
	}
}

func TestLedger_ApplyAtomicOnFailure(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ledger := NewLedger(pool)
	ctx := context.Background()

	require.NoError(t, ledger.Deposit(ctx, "buyer", 100))

	// Second leg cannot clear, so the first must not commit.
	err := ledger.Apply(ctx, []storage.Transfer{
		{From: "buyer", To: "seller", Amount: 60},
		{From: "buyer", To: "treasury", Amount: 60},
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	balance, err := ledger.Balance(ctx, "buyer")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), balance)

	balance, err = ledger.Balance(ctx, "seller")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), balance)
}

func TestLedger_ApplyRejectsSelfTransfer(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ledger := NewLedger(pool)
	ctx := context.Background()

	err := ledger.Apply(ctx, []storage.Transfer{{From: "alice", To: "alice", Amount: 1}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	err = ledger.Apply(ctx, []storage.Transfer{{From: "", To: "bob", Amount: 1}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestLedger_SequentialLegsShareBalance(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ledger := NewLedger(pool)
	ctx := context.Background()

	require.NoError(t, ledger.Deposit(ctx, "a", 100))

	// Funds received in an earlier leg cover a later leg of the same batch.
	err := ledger.Apply(ctx, []storage.Transfer{
		{From: "a", To: "b", Amount: 100},
		{From: "b", To: "c", Amount: 100},
	})
	require.NoError(t, err)

	balance, err := ledger.Balance(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), balance)
}
