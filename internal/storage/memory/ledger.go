package memory

import (
	"context"
	"math"
	"sync"

	"ticket-settlement-lab/internal/domain"
	"ticket-settlement-lab/internal/storage"
)

// Ledger is an in-memory implementation of storage.Ledger.
//
// Apply validates the whole batch against a working copy of the balances and
// commits only when every leg clears, so a failed batch moves no funds. After
// a commit the optional transfer hook runs once per leg outside the balance
// lock; a hook standing in for a programmable receiver may call back into a
// settlement entry point, which is exactly the reentrancy window the guard
// defends.
type Ledger struct {
	mu       sync.RWMutex
	balances map[string]uint64

	hookMu sync.RWMutex
	hook   func(storage.Transfer)
}

// NewLedger creates an empty in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[string]uint64)}
}

var _ storage.Ledger = (*Ledger)(nil)

// SetTransferHook installs fn to run after each committed transfer leg.
// Pass nil to remove the hook.
func (l *Ledger) SetTransferHook(fn func(storage.Transfer)) {
	l.hookMu.Lock()
	defer l.hookMu.Unlock()
	l.hook = fn
}

func (l *Ledger) Balance(_ context.Context, addr string) (uint64, error) {
	if addr == "" {
		return 0, storage.ErrInvalidInput
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[addr], nil
}

func (l *Ledger) Deposit(_ context.Context, addr string, amount uint64) error {
	if addr == "" {
		return storage.ErrInvalidInput
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[addr] > math.MaxUint64-amount {
		return domain.ErrMathOverflow
	}
	l.balances[addr] += amount
	return nil
}

func (l *Ledger) Apply(_ context.Context, transfers []storage.Transfer) error {
	if len(transfers) == 0 {
		return nil
	}

	l.mu.Lock()

	// First pass: validate every leg against a working copy.
	working := make(map[string]uint64, len(transfers)*2)
	balance := func(addr string) uint64 {
		if b, ok := working[addr]; ok {
			return b
		}
		return l.balances[addr]
	}

	for _, t := range transfers {
		if t.From == "" || t.To == "" || t.From == t.To {
			l.mu.Unlock()
			return storage.ErrInvalidInput
		}
		from := balance(t.From)
		if from < t.Amount {
			l.mu.Unlock()
			return domain.ErrInsufficientFunds
		}
		to := balance(t.To)
		if to > math.MaxUint64-t.Amount {
			l.mu.Unlock()
			return domain.ErrMathOverflow
		}
		working[t.From] = from - t.Amount
		working[t.To] = to + t.Amount
	}

	// Second pass: commit.
	for addr, b := range working {
		l.balances[addr] = b
	}
	l.mu.Unlock()

	l.hookMu.RLock()
	hook := l.hook
	l.hookMu.RUnlock()
	if hook != nil {
		for _, t := range transfers {
			hook(t)
		}
	}
	return nil
}
