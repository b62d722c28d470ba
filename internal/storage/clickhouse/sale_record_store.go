package clickhouse

import (
	"context"
	"fmt"

	"ticket-settlement-lab/internal/domain"
	"ticket-settlement-lab/internal/storage"
)

// SaleRecordStore implements storage.SaleRecordStore using ClickHouse.
// Receipts are mirrored here for analytics; the PostgreSQL receipt log stays
// the source of truth.
type SaleRecordStore struct {
	conn *Conn
}

// NewSaleRecordStore creates a new SaleRecordStore.
func NewSaleRecordStore(conn *Conn) *SaleRecordStore {
	return &SaleRecordStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SaleRecordStore = (*SaleRecordStore)(nil)

func (s *SaleRecordStore) Insert(ctx context.Context, r *domain.Receipt) error {
	return s.InsertBulk(ctx, []*domain.Receipt{r})
}

// InsertBulk appends receipts as a single batch.
func (s *SaleRecordStore) InsertBulk(ctx context.Context, rs []*domain.Receipt) error {
	if len(rs) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO sale_records (
			id, kind, actor, counterparty, venue_id, event_id, listing_id,
			asset_id, price, total_paid, fee, royalty, quantity, first_ticket, ts
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rs {
		if r == nil || r.ID == "" {
			return storage.ErrInvalidInput
		}
		err = batch.Append(
			r.ID, string(r.Kind), r.Actor, r.Counterparty, r.VenueID,
			r.EventID, r.ListingID, r.AssetID,
			r.Price, r.TotalPaid, r.Fee, r.Royalty,
			r.Quantity, r.FirstTicket, r.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// VolumeByEvent sums total_paid over all sale receipts of the event.
func (s *SaleRecordStore) VolumeByEvent(ctx context.Context, eventID string) (uint64, error) {
	query := `
		SELECT sum(total_paid)
		FROM sale_records
		WHERE event_id = ? AND kind IN ('listing_sold', 'tickets_purchased')
	`

	var volume uint64
	if err := s.conn.QueryRow(ctx, query, eventID).Scan(&volume); err != nil {
		return 0, fmt.Errorf("query volume by event: %w", err)
	}
	return volume, nil
}

// CountByKind counts stored receipts of a kind.
func (s *SaleRecordStore) CountByKind(ctx context.Context, kind domain.ReceiptKind) (uint64, error) {
	query := `SELECT count(*) FROM sale_records WHERE kind = ?`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, string(kind)).Scan(&count); err != nil {
		return 0, fmt.Errorf("query count by kind: %w", err)
	}
	return count, nil
}
