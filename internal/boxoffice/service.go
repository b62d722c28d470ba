// Package boxoffice implements primary-sale settlement: capacity-checked
// batch ticket purchases with a two-way fund split and ticket-number range
// reservation. Minting of the reserved assets is delegated to an external
// collaborator.
package boxoffice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"ticket-settlement-lab/internal/address"
	"ticket-settlement-lab/internal/clock"
	"ticket-settlement-lab/internal/domain"
	"ticket-settlement-lab/internal/guard"
	"ticket-settlement-lab/internal/observability"
	"ticket-settlement-lab/internal/safemath"
	"ticket-settlement-lab/internal/storage"
)

// RecordSink receives settlement records as they are emitted.
type RecordSink interface {
	Publish(r *domain.Receipt)
}

// Minter consumes a reserved ticket-number range. The settlement only reserves
// the range; the collaborator mints the actual assets.
type Minter interface {
	MintRange(ctx context.Context, event *domain.Event, first, count uint32) error
}

// NopMinter is a Minter that does nothing. Used where minting is handled by an
// out-of-process collaborator watching the purchase records.
type NopMinter struct{}

func (NopMinter) MintRange(context.Context, *domain.Event, uint32, uint32) error { return nil }

// Service executes primary ticket sales.
type Service struct {
	platform storage.PlatformStore
	venues   storage.VenueStore
	events   storage.EventStore
	ledger   storage.Ledger
	guards   *guard.Registry
	receipts storage.ReceiptStore
	minter   Minter
	clock    clock.Clock
	sink     RecordSink // optional
	logger   *log.Logger
}

// NewService creates a box office service. sink may be nil; a nil minter
// defaults to NopMinter.
func NewService(
	platform storage.PlatformStore,
	venues storage.VenueStore,
	events storage.EventStore,
	ledger storage.Ledger,
	guards *guard.Registry,
	receipts storage.ReceiptStore,
	minter Minter,
	clk clock.Clock,
	sink RecordSink,
	logger *log.Logger,
) *Service {
	if minter == nil {
		minter = NopMinter{}
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		platform: platform,
		venues:   venues,
		events:   events,
		ledger:   ledger,
		guards:   guards,
		receipts: receipts,
		minter:   minter,
		clock:    clk,
		sink:     sink,
		logger:   logger,
	}
}

// PurchaseInput carries the arguments of a purchase_tickets call. The venue
// treasury is supplied per-call and only type-checked (trust boundary).
type PurchaseInput struct {
	Buyer         string
	EventID       string
	Quantity      uint32
	VenueTreasury string
}

// PurchaseResult is the settled outcome of a purchase, including the reserved
// ticket-number range [FirstTicket, FirstTicket+Quantity).
type PurchaseResult struct {
	FirstTicket uint32
	Quantity    uint32
	PriceEach   uint64
	TotalPaid   uint64
	PlatformFee uint64
	Receipt     *domain.Receipt
}

// Purchase settles a primary ticket sale under the event's guard. Any failed
// precondition aborts with no fund movement and no counter change.
func (s *Service) Purchase(ctx context.Context, in PurchaseInput) (*PurchaseResult, error) {
	if err := address.Validate(in.Buyer); err != nil {
		return nil, fmt.Errorf("buyer: %w", err)
	}
	if err := address.Validate(in.VenueTreasury); err != nil {
		return nil, fmt.Errorf("venue treasury: %w", err)
	}

	release, err := s.guards.Acquire(in.EventID)
	if err != nil {
		if errors.Is(err, guard.ErrNotRegistered) {
			return nil, storage.ErrNotFound
		}
		observability.RecordGuardRejection()
		return nil, err
	}
	defer release()

	event, err := s.events.Get(ctx, in.EventID)
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	venue, err := s.venues.Get(ctx, event.VenueID)
	if err != nil {
		return nil, fmt.Errorf("load venue: %w", err)
	}
	if !venue.Verified {
		return nil, domain.ErrVenueNotVerified
	}
	if !venue.Active {
		return nil, domain.ErrNotActive
	}

	platform, err := s.platform.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load platform: %w", err)
	}
	if platform.Paused {
		return nil, domain.ErrPaused
	}

	now := s.clock.Now().Unix()
	if now >= event.StartTime {
		return nil, domain.ErrInvalidTiming
	}
	if in.Quantity == 0 || in.Quantity > domain.MaxTicketPurchase {
		return nil, domain.ErrInvalidQuantity
	}

	newSold, err := safemath.Add(uint64(event.TicketsSold), uint64(in.Quantity))
	if err != nil {
		return nil, err
	}
	if newSold > uint64(event.TotalTickets) {
		return nil, domain.ErrInsufficientCapacity
	}

	ticketCost, err := safemath.Mul(event.TicketPrice, uint64(in.Quantity))
	if err != nil {
		return nil, err
	}
	platformFee, err := safemath.Fee(ticketCost, platform.FeeBps)
	if err != nil {
		return nil, err
	}
	venueAmount, err := safemath.Sub(ticketCost, platformFee)
	if err != nil {
		return nil, err
	}
	// Counter overflow would abort after funds moved; check both up front.
	if _, err := safemath.Add(venue.TotalSales, uint64(in.Quantity)); err != nil {
		return nil, err
	}
	if _, err := safemath.Add(platform.TotalFeesCollected, platformFee); err != nil {
		return nil, err
	}

	transfers := []storage.Transfer{
		{From: in.Buyer, To: in.VenueTreasury, Amount: venueAmount},
	}
	if platformFee > 0 {
		transfers = append(transfers, storage.Transfer{From: in.Buyer, To: platform.Treasury, Amount: platformFee})
	}
	if err := s.ledger.Apply(ctx, transfers); err != nil {
		return nil, fmt.Errorf("settle transfers: %w", err)
	}

	if err := s.events.Mutate(ctx, in.EventID, func(e *domain.Event) error {
		e.TicketsSold = uint32(newSold)
		// Reserved tracks the handed-out ticket-number ranges; the minter
		// consumes them out of band.
		e.TicketsReserved = uint32(newSold)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if err := s.venues.Mutate(ctx, event.VenueID, func(v *domain.Venue) error {
		total, err := safemath.Add(v.TotalSales, uint64(in.Quantity))
		if err != nil {
			return err
		}
		v.TotalSales = total
		return nil
	}); err != nil {
		return nil, fmt.Errorf("update venue: %w", err)
	}
	if err := s.platform.Mutate(ctx, func(p *domain.Platform) error {
		sold, err := safemath.Add(p.TotalTicketsSold, uint64(in.Quantity))
		if err != nil {
			return err
		}
		fees, err := safemath.Add(p.TotalFeesCollected, platformFee)
		if err != nil {
			return err
		}
		p.TotalTicketsSold = sold
		p.TotalFeesCollected = fees
		return nil
	}); err != nil {
		return nil, fmt.Errorf("update platform totals: %w", err)
	}

	firstTicket := uint32(newSold) - in.Quantity
	if err := s.minter.MintRange(ctx, event, firstTicket, in.Quantity); err != nil {
		// Minting is accounting-external; reservation stands either way.
		s.logger.Printf("mint range [%d,%d) for event %s: %v", firstTicket, firstTicket+in.Quantity, event.ID, err)
	}

	receipt := &domain.Receipt{
		Kind:        domain.ReceiptTicketsPurchased,
		Actor:       in.Buyer,
		VenueID:     venue.ID,
		EventID:     event.ID,
		Price:       event.TicketPrice,
		TotalPaid:   ticketCost,
		Fee:         platformFee,
		Quantity:    in.Quantity,
		FirstTicket: firstTicket,
		Timestamp:   now,
	}
	if err := s.emit(ctx, receipt); err != nil {
		return nil, err
	}

	s.logger.Printf("purchased %d tickets for event %s, range [%d,%d)", in.Quantity, event.ID, firstTicket, firstTicket+in.Quantity)
	return &PurchaseResult{
		FirstTicket: firstTicket,
		Quantity:    in.Quantity,
		PriceEach:   event.TicketPrice,
		TotalPaid:   ticketCost,
		PlatformFee: platformFee,
		Receipt:     receipt,
	}, nil
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
