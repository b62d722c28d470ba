package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ticket-settlement-lab/internal/domain"
	"ticket-settlement-lab/internal/storage"
)

// The marketplace and platform tables each hold a single row keyed by a fixed
// singleton ID, mirroring the one-config-per-deployment model.
const singletonID = 1

// MarketplaceStore implements storage.MarketplaceStore using PostgreSQL.
type MarketplaceStore struct {
	pool *Pool
}

// NewMarketplaceStore creates a new MarketplaceStore.
func NewMarketplaceStore(pool *Pool) *MarketplaceStore {
	return &MarketplaceStore{pool: pool}
}

var _ storage.MarketplaceStore = (*MarketplaceStore)(nil)

const marketplaceColumns = `authority, treasury, fee_bps, paused, total_listings, total_sales, total_volume`

func scanMarketplace(row pgx.Row) (*domain.Marketplace, error) {
	var m domain.Marketplace
	var totalListings, totalSales, totalVolume int64
	err := row.Scan(
		&m.Authority,
		&m.Treasury,
		&m.FeeBps,
		&m.Paused,
		&totalListings,
		&totalSales,
		&totalVolume,
	)
	if err != nil {
		return nil, err
	}
	m.TotalListings = uint64(totalListings)
	m.TotalSales = uint64(totalSales)
	m.TotalVolume = uint64(totalVolume)
	return &m, nil
}

func (s *MarketplaceStore) Init(ctx context.Context, m *domain.Marketplace) error {
	if m == nil {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO marketplace (id, ` + marketplaceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		singletonID, m.Authority, m.Treasury, int32(m.FeeBps), m.Paused,
		int64(m.TotalListings), int64(m.TotalSales), int64(m.TotalVolume),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert marketplace: %w", err)
	}
	return nil
}

func (s *MarketplaceStore) Get(ctx context.Context) (*domain.Marketplace, error) {
	query := `SELECT ` + marketplaceColumns + ` FROM marketplace WHERE id = $1`

	m, err := scanMarketplace(s.pool.QueryRow(ctx, query, singletonID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("select marketplace: %w", err)
	}
	return m, nil
}

func (s *MarketplaceStore) Mutate(ctx context.Context, fn func(*domain.Marketplace) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + marketplaceColumns + ` FROM marketplace WHERE id = $1 FOR UPDATE`
	m, err := scanMarketplace(tx.QueryRow(ctx, query, singletonID))
	if err != nil {
		if isNotFoundError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("select marketplace for update: %w", err)
	}

	if err := fn(m); err != nil {
		return err
	}

	update := `
		UPDATE marketplace
		SET authority = $2, treasury = $3, fee_bps = $4, paused = $5,
			total_listings = $6, total_sales = $7, total_volume = $8
		WHERE id = $1
	`
	_, err = tx.Exec(ctx, update,
		singletonID, m.Authority, m.Treasury, int32(m.FeeBps), m.Paused,
		int64(m.TotalListings), int64(m.TotalSales), int64(m.TotalVolume),
	)
	if err != nil {
		return fmt.Errorf("update marketplace: %w", err)
	}

	return tx.Commit(ctx)
}

// PlatformStore implements storage.PlatformStore using PostgreSQL.
type PlatformStore struct {
	pool *Pool
}

// NewPlatformStore creates a new PlatformStore.
func NewPlatformStore(pool *Pool) *PlatformStore {
	return &PlatformStore{pool: pool}
}

var _ storage.PlatformStore = (*PlatformStore)(nil)

const platformColumns = `owner, treasury, fee_bps, paused, total_venues, total_events, total_tickets_sold, total_fees_collected`

func scanPlatform(row pgx.Row) (*domain.Platform, error) {
	var p domain.Platform
	var venues, events, sold, fees int64
	err := row.Scan(
		&p.Owner,
		&p.Treasury,
		&p.FeeBps,
		&p.Paused,
		&venues,
		&events,
		&sold,
		&fees,
	)
	if err != nil {
		return nil, err
	}
	p.TotalVenues = uint64(venues)
	p.TotalEvents = uint64(events)
	p.TotalTicketsSold = uint64(sold)
	p.TotalFeesCollected = uint64(fees)
	return &p, nil
}

func (s *PlatformStore) Init(ctx context.Context, p *domain.Platform) error {
	if p == nil {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO platform (id, ` + platformColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		singletonID, p.Owner, p.Treasury, int32(p.FeeBps), p.Paused,
		int64(p.TotalVenues), int64(p.TotalEvents),
		int64(p.TotalTicketsSold), int64(p.TotalFeesCollected),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert platform: %w", err)
	}
	return nil
}

func (s *PlatformStore) Get(ctx context.Context) (*domain.Platform, error) {
	query := `SELECT ` + platformColumns + ` FROM platform WHERE id = $1`

	p, err := scanPlatform(s.pool.QueryRow(ctx, query, singletonID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("select platform: %w", err)
	}
	return p, nil
}

func (s *PlatformStore) Mutate(ctx context.Context, fn func(*domain.Platform) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + platformColumns + ` FROM platform WHERE id = $1 FOR UPDATE`
	p, err := scanPlatform(tx.QueryRow(ctx, query, singletonID))
	if err != nil {
		if isNotFoundError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("select platform for update: %w", err)
	}

	if err := fn(p); err != nil {
		return err
	}

	update := `
		UPDATE platform
		SET owner = $2, treasury = $3, fee_bps = $4, paused = $5,
			total_venues = $6, total_events = $7,
			total_tickets_sold = $8, total_fees_collected = $9
		WHERE id = $1
	`
	_, err = tx.Exec(ctx, update,
		singletonID, p.Owner, p.Treasury, int32(p.FeeBps), p.Paused,
		int64(p.TotalVenues), int64(p.TotalEvents),
		int64(p.TotalTicketsSold), int64(p.TotalFeesCollected),
	)
	if err != nil {
		return fmt.Errorf("update platform: %w", err)
	}

	return tx.Commit(ctx)
}
