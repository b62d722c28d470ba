package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ticket-settlement-lab/internal/domain"
	"ticket-settlement-lab/internal/storage"
)

// VenueStore implements storage.VenueStore using PostgreSQL.
type VenueStore struct {
	pool *Pool
}

// NewVenueStore creates a new VenueStore.
func NewVenueStore(pool *Pool) *VenueStore {
	return &VenueStore{pool: pool}
}

var _ storage.VenueStore = (*VenueStore)(nil)

const venueColumns = `id, owner, name, metadata_uri, verified, active, event_count, total_sales`

func scanVenue(row pgx.Row) (*domain.Venue, error) {
	var v domain.Venue
	var eventCount, totalSales int64
	err := row.Scan(
		&v.ID,
		&v.Owner,
		&v.Name,
		&v.MetadataURI,
		&v.Verified,
		&v.Active,
		&eventCount,
		&totalSales,
	)
	if err != nil {
		return nil, err
	}
	v.EventCount = uint64(eventCount)
	v.TotalSales = uint64(totalSales)
	return &v, nil
}

func (s *VenueStore) Create(ctx context.Context, v *domain.Venue) error {
	if v == nil || v.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO venues (` + venueColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		v.ID, v.Owner, v.Name, v.MetadataURI, v.Verified, v.Active,
		int64(v.EventCount), int64(v.TotalSales),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert venue: %w", err)
	}
	return nil
}

func (s *VenueStore) Get(ctx context.Context, id string) (*domain.Venue, error) {
	query := `SELECT ` + venueColumns + ` FROM venues WHERE id = $1`

	v, err := scanVenue(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("select venue: %w", err)
	}
	return v, nil
}

func (s *VenueStore) Mutate(ctx context.Context, id string, fn func(*domain.Venue) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + venueColumns + ` FROM venues WHERE id = $1 FOR UPDATE`
	v, err := scanVenue(tx.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("select venue for update: %w", err)
	}

	if err := fn(v); err != nil {
		return err
	}

	update := `
		UPDATE venues
		SET owner = $2, name = $3, metadata_uri = $4, verified = $5,
			active = $6, event_count = $7, total_sales = $8
		WHERE id = $1
	`
	_, err = tx.Exec(ctx, update,
		v.ID, v.Owner, v.Name, v.MetadataURI, v.Verified, v.Active,
		int64(v.EventCount), int64(v.TotalSales),
	)
	if err != nil {
		return fmt.Errorf("update venue: %w", err)
	}

	return tx.Commit(ctx)
}
