package postgres

import (
	"context"
	"fmt"

	"ticket-settlement-lab/internal/domain"
	"ticket-settlement-lab/internal/storage"
)

// ReceiptStore implements storage.ReceiptStore using PostgreSQL. Receipts are
// append-only; the seq column preserves insertion order for listing.
type ReceiptStore struct {
	pool *Pool
}

// NewReceiptStore creates a new ReceiptStore.
func NewReceiptStore(pool *Pool) *ReceiptStore {
	return &ReceiptStore{pool: pool}
}

var _ storage.ReceiptStore = (*ReceiptStore)(nil)

func (s *ReceiptStore) Append(ctx context.Context, r *domain.Receipt) error {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO receipts (
			id, kind, actor, counterparty, venue_id, event_id, listing_id,
			asset_id, price, total_paid, fee, royalty, quantity, first_ticket, ts
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := s.pool.Exec(ctx, query,
		r.ID, string(r.Kind), r.Actor, r.Counterparty, r.VenueID, r.EventID,
		r.ListingID, r.AssetID, int64(r.Price), int64(r.TotalPaid),
		int64(r.Fee), int64(r.Royalty), r.Quantity, r.FirstTicket, r.Timestamp,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert receipt: %w", err)
	}
	return nil
}

func (s *ReceiptStore) List(ctx context.Context, limit int) ([]*domain.Receipt, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `
		SELECT id, kind, actor, counterparty, venue_id, event_id, listing_id,
			asset_id, price, total_paid, fee, royalty, quantity, first_ticket, ts
		FROM receipts
		ORDER BY seq DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select receipts: %w", err)
	}
	defer rows.Close()

	var out []*domain.Receipt
	for rows.Next() {
		var r domain.Receipt
		var kind string
		var price, totalPaid, fee, royalty int64
		err := rows.Scan(
			&r.ID, &kind, &r.Actor, &r.Counterparty, &r.VenueID, &r.EventID,
			&r.ListingID, &r.AssetID, &price, &totalPaid, &fee, &royalty,
			&r.Quantity, &r.FirstTicket, &r.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		r.Kind = domain.ReceiptKind(kind)
		r.Price = uint64(price)
		r.TotalPaid = uint64(totalPaid)
		r.Fee = uint64(fee)
		r.Royalty = uint64(royalty)
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate receipts: %w", err)
	}
	return out, nil
}
