package postgres

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/jackc/pgx/v5"

	"ticket-settlement-lab/internal/domain"
	"ticket-settlement-lab/internal/storage"
)

// Ledger implements storage.Ledger on a PostgreSQL accounts table. Apply runs
// the whole batch in one transaction; rows are locked in sorted address order
// so concurrent batches touching the same accounts cannot deadlock.
type Ledger struct {
	pool *Pool
}

// NewLedger creates a new Ledger.
func NewLedger(pool *Pool) *Ledger {
	return &Ledger{pool: pool}
}

var _ storage.Ledger = (*Ledger)(nil)

func (l *Ledger) Balance(ctx context.Context, addr string) (uint64, error) {
	if addr == "" {
		return 0, storage.ErrInvalidInput
	}

	var balance int64
	err := l.pool.QueryRow(ctx, `SELECT balance FROM accounts WHERE addr = $1`, addr).Scan(&balance)
	if err != nil {
		if isNotFoundError(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("select balance: %w", err)
	}
	return uint64(balance), nil
}

func (l *Ledger) Deposit(ctx context.Context, addr string, amount uint64) error {
	if addr == "" {
		return storage.ErrInvalidInput
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	balance, err := lockAccount(ctx, tx, addr)
	if err != nil {
		return err
	}
	if balance > math.MaxUint64-amount {
		return domain.ErrMathOverflow
	}

	if err := setBalance(ctx, tx, addr, balance+amount); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (l *Ledger) Apply(ctx context.Context, transfers []storage.Transfer) error {
	if len(transfers) == 0 {
		return nil
	}

	addrs := make([]string, 0, len(transfers)*2)
	seen := make(map[string]bool, len(transfers)*2)
	for _, t := range transfers {
		if t.From == "" || t.To == "" || t.From == t.To {
			return storage.ErrInvalidInput
		}
		for _, a := range []string{t.From, t.To} {
			if !seen[a] {
				seen[a] = true
				addrs = append(addrs, a)
			}
		}
	}
	sort.Strings(addrs)

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	working := make(map[string]uint64, len(addrs))
	for _, a := range addrs {
		b, err := lockAccount(ctx, tx, a)
		if err != nil {
			return err
		}
		working[a] = b
	}

	for _, t := range transfers {
		from := working[t.From]
		if from < t.Amount {
			return domain.ErrInsufficientFunds
		}
		to := working[t.To]
		if to > math.MaxUint64-t.Amount {
			return domain.ErrMathOverflow
		}
		working[t.From] = from - t.Amount
		working[t.To] = to + t.Amount
	}

	for _, a := range addrs {
		if err := setBalance(ctx, tx, a, working[a]); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// lockAccount creates the account row if missing and returns its balance with
// the row lock held for the rest of the transaction.
func lockAccount(ctx context.Context, tx pgx.Tx, addr string) (uint64, error) {
	_, err := tx.Exec(ctx,
		`INSERT INTO accounts (addr, balance) VALUES ($1, 0) ON CONFLICT (addr) DO NOTHING`, addr)
	if err != nil {
		return 0, fmt.Errorf("ensure account: %w", err)
	}

	var balance int64
	err = tx.QueryRow(ctx, `SELECT balance FROM accounts WHERE addr = $1 FOR UPDATE`, addr).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("lock account: %w", err)
	}
	return uint64(balance), nil
}

func setBalance(ctx context.Context, tx pgx.Tx, addr string, balance uint64) error {
	_, err := tx.Exec(ctx, `UPDATE accounts SET balance = $2 WHERE addr = $1`, addr, int64(balance))
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	return nil
}
