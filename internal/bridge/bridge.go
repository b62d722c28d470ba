// Package bridge lets the primary-sale module list a ticket on the resale
// marketplace. It pre-validates locally, then forwards a versioned
// create_listing call; all state effects happen inside the invoked module,
// which re-validates independently. The bridge owns no state.
package bridge

import (
	"context"
	"fmt"
	"io"
	"log"

	"ticket-settlement-lab/internal/address"
	"ticket-settlement-lab/internal/callenc"
	"ticket-settlement-lab/internal/clock"
	"ticket-settlement-lab/internal/domain"
	"ticket-settlement-lab/internal/observability"
	"ticket-settlement-lab/internal/safemath"
	"ticket-settlement-lab/internal/storage"
)

// Dispatcher delivers an encoded cross-module call to its target module.
type Dispatcher interface {
	Dispatch(ctx context.Context, data []byte) error
}

// RecordSink receives settlement records as they are emitted.
type RecordSink interface {
	Publish(r *domain.Receipt)
}

// Service forwards listing requests from the primary-sale side to the
// marketplace.
type Service struct {
	events     storage.EventStore
	dispatcher Dispatcher
	receipts   storage.ReceiptStore
	clock      clock.Clock
	sink       RecordSink // optional
	logger     *log.Logger
}

// NewService creates a bridge service. sink may be nil.
func NewService(
	events storage.EventStore,
	dispatcher Dispatcher,
	receipts storage.ReceiptStore,
	clk clock.Clock,
	sink RecordSink,
	logger *log.Logger,
) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		events:     events,
		dispatcher: dispatcher,
		receipts:   receipts,
		clock:      clk,
		sink:       sink,
		logger:     logger,
	}
}

// ListTicketInput carries the arguments of a list_ticket_on_marketplace call.
type ListTicketInput struct {
	Owner     string
	EventID   string
	AssetID   string
	Price     uint64
	ExpiresAt int64
}

// ListTicket pre-validates against the event and forwards a create_listing
// call with the original ticket price as the resale cap basis, signed as the
// ticket owner.
func (s *Service) ListTicket(ctx context.Context, in ListTicketInput) error {
	if err := address.Validate(in.Owner); err != nil {
		return fmt.Errorf("owner: %w", err)
	}
	if in.AssetID == "" {
		return domain.ErrInvalidInput
	}

	event, err := s.events.Get(ctx, in.EventID)
	if err != nil {
		return fmt.Errorf("load event: %w", err)
	}
	if !event.Resaleable {
		return domain.ErrResaleNotAllowed
	}

	now := s.clock.Now().Unix()
	if now >= event.StartTime {
		return domain.ErrInvalidTiming
	}

	maxPrice, err := safemath.PriceCap(event.TicketPrice)
	if err != nil {
		return err
	}
	if in.Price > maxPrice {
		return domain.ErrPriceCapExceeded
	}
	if in.ExpiresAt <= now || in.ExpiresAt > event.StartTime {
		return domain.ErrInvalidTiming
	}

	call := &callenc.CreateListingCall{
		Seller:        in.Owner,
		EventID:       in.EventID,
		AssetID:       in.AssetID,
		Price:         in.Price,
		OriginalPrice: event.TicketPrice,
		ExpiresAt:     in.ExpiresAt,
	}
	data, err := call.Encode()
	if err != nil {
		return fmt.Errorf("encode create_listing call: %w", err)
	}
	err = s.dispatcher.Dispatch(ctx, data)
	observability.RecordBridgeCall("create_listing", err)
	if err != nil {
		return fmt.Errorf("invoke marketplace: %w", err)
	}

	if err := s.emit(ctx, &domain.Receipt{
		Kind:      domain.ReceiptTicketListedOnMarketplace,
		Actor:     in.Owner,
		VenueID:   event.VenueID,
		EventID:   event.ID,
		AssetID:   in.AssetID,
		Price:     in.Price,
		Timestamp: now,
	}); err != nil {
		return err
	}

	s.logger.Printf("ticket %s listed on marketplace at price %d", in.AssetID, in.Price)
	return nil
}

// emit appends the durable record and forwards it to the sink. The append is
// part of the settlement; its failure surfaces to the caller.
func (s *Service) emit(ctx context.Context, r *domain.Receipt) error {
	r.ID = domain.ComputeReceiptID(r)
	if err := s.receipts.Append(ctx, r); err != nil {
		return fmt.Errorf("append receipt %s: %w", r.ID, err)
	}
	if s.sink != nil {
		s.sink.Publish(r)
	}
	return nil
}
