package postgres

import (
	"context"
	"fmt"

	"ticket-settlement-lab/internal/domain"
	"ticket-settlement-lab/internal/storage"
)

// ListingStore implements storage.ListingStore using PostgreSQL.
type ListingStore struct {
	pool *Pool
}

// NewListingStore creates a new ListingStore.
func NewListingStore(pool *Pool) *ListingStore {
	return &ListingStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ListingStore = (*ListingStore)(nil)

func (s *ListingStore) Create(ctx context.Context, l *domain.Listing) error {
	if l == nil || l.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO listings (
			id, seller, event_id, asset_id, price, original_price, listed_at, expires_at, active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		l.ID,
		l.Seller,
		l.EventID,
		l.AssetID,
		int64(l.Price),
		int64(l.OriginalPrice),
		l.ListedAt,
		l.ExpiresAt,
		l.Active,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert listing: %w", err)
	}
	return nil
}

func (s *ListingStore) Get(ctx context.Context, id string) (*domain.Listing, error) {
	query := `
		SELECT id, seller, event_id, asset_id, price, original_price, listed_at, expires_at, active
		FROM listings
		WHERE id = $1
	`

	var l domain.Listing
	var price, originalPrice int64
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&l.ID,
		&l.Seller,
		&l.EventID,
		&l.AssetID,
		&price,
		&originalPrice,
		&l.ListedAt,
		&l.ExpiresAt,
		&l.Active,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("select listing: %w", err)
	}
	l.Price = uint64(price)
	l.OriginalPrice = uint64(originalPrice)
	return &l, nil
}

func (s *ListingStore) Update(ctx context.Context, l *domain.Listing) error {
	if l == nil || l.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE listings
		SET seller = $2, event_id = $3, asset_id = $4, price = $5,
			original_price = $6, listed_at = $7, expires_at = $8, active = $9
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		l.ID,
		l.Seller,
		l.EventID,
		l.AssetID,
		int64(l.Price),
		int64(l.OriginalPrice),
		l.ListedAt,
		l.ExpiresAt,
		l.Active,
	)
	if err != nil {
		return fmt.Errorf("update listing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *ListingStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM listings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
