package storage

import (
	"context"

	"ticket-settlement-lab/internal/domain"
)

// ListingStore provides access to resale listings. Mutations beyond Create are
// only performed by the settlement path holding the listing's guard.
type ListingStore interface {
	// Create adds a new listing. Returns ErrDuplicateKey if the ID exists.
	Create(ctx context.Context, l *domain.Listing) error

	// Get retrieves a listing by ID. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.Listing, error)

	// Update replaces the stored listing. Returns ErrNotFound if absent.
	Update(ctx context.Context, l *domain.Listing) error

	// Delete destroys the listing. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id string) error
}

// EventStore provides access to events.
type EventStore interface {
	Create(ctx context.Context, e *domain.Event) error
	Get(ctx context.Context, id string) (*domain.Event, error)

	// Mutate applies fn to the stored event atomically. fn returning an error
	// aborts the mutation with no change.
	Mutate(ctx context.Context, id string, fn func(*domain.Event) error) error
}

// VenueStore provides access to venues.
type VenueStore interface {
	Create(ctx context.Context, v *domain.Venue) error
	Get(ctx context.Context, id string) (*domain.Venue, error)
	Mutate(ctx context.Context, id string, fn func(*domain.Venue) error) error
}

// MarketplaceStore holds the single resale marketplace configuration row.
type MarketplaceStore interface {
	// Init creates the marketplace state. Returns ErrDuplicateKey if already initialized.
	Init(ctx context.Context, m *domain.Marketplace) error
	Get(ctx context.Context) (*domain.Marketplace, error)
	Mutate(ctx context.Context, fn func(*domain.Marketplace) error) error
}

// PlatformStore holds the single primary-sale platform configuration row.
type PlatformStore interface {
	Init(ctx context.Context, p *domain.Platform) error
	Get(ctx context.Context) (*domain.Platform, error)
	Mutate(ctx context.Context, fn func(*domain.Platform) error) error
}

// ReceiptStore is an append-only log of settlement records.
type ReceiptStore interface {
	// Append adds a receipt. Returns ErrDuplicateKey if the ID exists.
	Append(ctx context.Context, r *domain.Receipt) error

	// List returns the most recent receipts, newest first, up to limit.
	List(ctx context.Context, limit int) ([]*domain.Receipt, error)
}

// SaleRecordStore is the analytics sink mirroring settlement receipts into
// columnar storage for aggregation queries.
type SaleRecordStore interface {
	Insert(ctx context.Context, r *domain.Receipt) error
	InsertBulk(ctx context.Context, rs []*domain.Receipt) error

	// VolumeByEvent sums total_paid over all sale receipts of the event.
	VolumeByEvent(ctx context.Context, eventID string) (uint64, error)

	// CountByKind counts stored receipts of a kind.
	CountByKind(ctx context.Context, kind domain.ReceiptKind) (uint64, error)
}

// Transfer is a single fund movement between two accounts.
type Transfer struct {
	From   string // base58 source address
	To     string // base58 destination address
	Amount uint64 // smallest currency units
}

// Ledger holds account balances and applies transfer batches. A batch commits
// all legs or none; a failed batch moves no funds.
type Ledger interface {
	// Balance returns the account balance. Unknown accounts hold zero.
	Balance(ctx context.Context, addr string) (uint64, error)

	// Deposit credits an account, creating it if needed.
	Deposit(ctx context.Context, addr string, amount uint64) error

	// Apply moves funds for every transfer in order, atomically. Returns
	// domain.ErrInsufficientFunds when a source cannot cover its legs and
	// domain.ErrMathOverflow when a destination balance would overflow.
	Apply(ctx context.Context, transfers []Transfer) error
}
