package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ticket-settlement-lab/internal/domain"
	"ticket-settlement-lab/internal/storage"
)

// EventStore implements storage.EventStore using PostgreSQL.
type EventStore struct {
	pool *Pool
}

// NewEventStore creates a new EventStore.
func NewEventStore(pool *Pool) *EventStore {
	return &EventStore{pool: pool}
}

var _ storage.EventStore = (*EventStore)(nil)

const eventColumns = `
	id, venue_id, event_id, name, ticket_price, total_tickets, tickets_sold,
	tickets_reserved, start_time, end_time, refund_window, metadata_uri,
	description, transferable, resaleable
`

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var e domain.Event
	var ticketPrice int64
	err := row.Scan(
		&e.ID,
		&e.VenueID,
		&e.EventID,
		&e.Name,
		&ticketPrice,
		&e.TotalTickets,
		&e.TicketsSold,
		&e.TicketsReserved,
		&e.StartTime,
		&e.EndTime,
		&e.RefundWindow,
		&e.MetadataURI,
		&e.Description,
		&e.Transferable,
		&e.Resaleable,
	)
	if err != nil {
		return nil, err
	}
	e.TicketPrice = uint64(ticketPrice)
	return &e, nil
}

func (s *EventStore) Create(ctx context.Context, e *domain.Event) error {
	if e == nil || e.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := s.pool.Exec(ctx, query,
		e.ID, e.VenueID, int64(e.EventID), e.Name, int64(e.TicketPrice),
		e.TotalTickets, e.TicketsSold, e.TicketsReserved,
		e.StartTime, e.EndTime, e.RefundWindow,
		e.MetadataURI, e.Description, e.Transferable, e.Resaleable,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *EventStore) Get(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	e, err := scanEvent(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("select event: %w", err)
	}
	return e, nil
}

// Mutate applies fn inside a transaction holding the row lock, so concurrent
// counter bumps cannot lose updates.
func (s *EventStore) Mutate(ctx context.Context, id string, fn func(*domain.Event) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 FOR UPDATE`
	e, err := scanEvent(tx.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("select event for update: %w", err)
	}

	if err := fn(e); err != nil {
		return err
	}

	update := `
		UPDATE events
		SET venue_id = $2, event_id = $3, name = $4, ticket_price = $5,
			total_tickets = $6, tickets_sold = $7, tickets_reserved = $8,
			start_time = $9, end_time = $10, refund_window = $11,
			metadata_uri = $12, description = $13, transferable = $14, resaleable = $15
		WHERE id = $1
	`
	_, err = tx.Exec(ctx, update,
		e.ID, e.VenueID, int64(e.EventID), e.Name, int64(e.TicketPrice),
		e.TotalTickets, e.TicketsSold, e.TicketsReserved,
		e.StartTime, e.EndTime, e.RefundWindow,
		e.MetadataURI, e.Description, e.Transferable, e.Resaleable,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}

	return tx.Commit(ctx)
}
