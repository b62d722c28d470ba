// Package registry manages the venue and event records that settlement reads:
// venue creation and verification, and event creation with timing, price, and
// capacity validation. It moves no funds.
package registry

import (
	"context"
	"fmt"
	"io"
	"log"

	"ticket-settlement-lab/internal/address"
	"ticket-settlement-lab/internal/clock"
	"ticket-settlement-lab/internal/domain"
	"ticket-settlement-lab/internal/guard"
	"ticket-settlement-lab/internal/storage"
)

// Service executes registry operations.
type Service struct {
	platform storage.PlatformStore
	venues   storage.VenueStore
	events   storage.EventStore
	guards   *guard.Registry
	clock    clock.Clock
	logger   *log.Logger
}

// NewService creates a registry service.
func NewService(
	platform storage.PlatformStore,
	venues storage.VenueStore,
	events storage.EventStore,
	guards *guard.Registry,
	clk clock.Clock,
	logger *log.Logger,
) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		platform: platform,
		venues:   venues,
		events:   events,
		guards:   guards,
		clock:    clk,
		logger:   logger,
	}
}

// InitializePlatform creates the platform configuration.
func (s *Service) InitializePlatform(ctx context.Context, owner, treasury string, feeBps uint16) (*domain.Platform, error) {
	if err := address.Validate(owner); err != nil {
		return nil, fmt.Errorf("owner: %w", err)
	}
	if err := address.Validate(treasury); err != nil {
		return nil, fmt.Errorf("treasury: %w", err)
	}
	if feeBps > domain.FeeCapBps {
		return nil, domain.ErrPriceCapExceeded
	}

	p := &domain.Platform{Owner: owner, Treasury: treasury, FeeBps: feeBps}
	if err := s.platform.Init(ctx, p); err != nil {
		return nil, fmt.Errorf("init platform: %w", err)
	}
	s.logger.Printf("platform initialized with %d bps fee", feeBps)
	return p, nil
}

// SetPaused toggles the platform paused flag. Owner only.
func (s *Service) SetPaused(ctx context.Context, owner string, paused bool) error {
	return s.platform.Mutate(ctx, func(p *domain.Platform) error {
		if p.Owner != owner {
			return domain.ErrUnauthorized
		}
		p.Paused = paused
		return nil
	})
}

// CreateVenueInput carries the arguments of a create_venue call.
type CreateVenueInput struct {
	Owner       string
	VenueID     string // venue-chosen identifier, ≤32 chars
	Name        string
	MetadataURI string
}

// CreateVenue registers a new venue. Venues start active but unverified;
// verification is a separate platform-owner action.
func (s *Service) CreateVenue(ctx context.Context, in CreateVenueInput) (*domain.Venue, error) {
	if err := address.Validate(in.Owner); err != nil {
		return nil, fmt.Errorf("owner: %w", err)
	}
	if in.VenueID == "" || len(in.VenueID) > 32 {
		return nil, domain.ErrInvalidInput
	}
	if err := validateString(in.Name, domain.MaxVenueNameLen); err != nil {
		return nil, err
	}
	if err := validateString(in.MetadataURI, domain.MaxURILen); err != nil {
		return nil, err
	}

	venue := &domain.Venue{
		ID:          address.Derive("venue", in.Owner, in.VenueID),
		Owner:       in.Owner,
		Name:        in.Name,
		MetadataURI: in.MetadataURI,
		Active:      true,
	}
	if err := s.venues.Create(ctx, venue); err != nil {
		return nil, fmt.Errorf("create venue: %w", err)
	}

	if err := s.platform.Mutate(ctx, func(p *domain.Platform) error {
		p.TotalVenues++
		return nil
	}); err != nil {
		return nil, fmt.Errorf("update platform totals: %w", err)
	}

	s.logger.Printf("venue %s created", venue.ID)
	return venue, nil
}

// VerifyVenue marks a venue verified. Platform owner only.
func (s *Service) VerifyVenue(ctx context.Context, caller, venueID string) error {
	p, err := s.platform.Get(ctx)
	if err != nil {
		return fmt.Errorf("load platform: %w", err)
	}
	if p.Owner != caller {
		return domain.ErrUnauthorized
	}

	if err := s.venues.Mutate(ctx, venueID, func(v *domain.Venue) error {
		v.Verified = true
		return nil
	}); err != nil {
		return fmt.Errorf("verify venue: %w", err)
	}

	s.logger.Printf("venue %s verified", venueID)
	return nil
}

// CreateEventInput carries the arguments of a create_event call.
type CreateEventInput struct {
	Caller       string
	VenueID      string
	EventID      uint64
	Name         string
	TicketPrice  uint64
	TotalTickets uint32
	StartTime    int64
	EndTime      int64
	RefundWindow int64
	MetadataURI  string
	Description  string
	Transferable bool
	Resaleable   bool
}

// CreateEvent creates an event under a verified, active venue owned by the
// caller, along with the event's settlement guard.
func (s *Service) CreateEvent(ctx context.Context, in CreateEventInput) (*domain.Event, error) {
	venue, err := s.venues.Get(ctx, in.VenueID)
	if err != nil {
		return nil, fmt.Errorf("load venue: %w", err)
	}
	if venue.Owner != in.Caller {
		return nil, domain.ErrUnauthorized
	}
	if !venue.Verified {
		return nil, domain.ErrVenueNotVerified
	}
	if !venue.Active {
		return nil, domain.ErrNotActive
	}

	if err := validateString(in.Name, domain.MaxEventNameLen); err != nil {
		return nil, err
	}
	if err := validateString(in.MetadataURI, domain.MaxURILen); err != nil {
		return nil, err
	}
	if err := validateString(in.Description, domain.MaxDescriptionLen); err != nil {
		return nil, err
	}

	now := s.clock.Now().Unix()
	if err := validateEventTimes(in.StartTime, in.EndTime, now); err != nil {
		return nil, err
	}
	if err := validatePriceBounds(in.TicketPrice); err != nil {
		return nil, err
	}
	if err := validateCapacity(in.TotalTickets); err != nil {
		return nil, err
	}
	if err := validateRefundWindow(in.RefundWindow); err != nil {
		return nil, err
	}

	event := &domain.Event{
		ID:           address.Derive("event", in.VenueID, fmt.Sprintf("%d", in.EventID)),
		VenueID:      in.VenueID,
		EventID:      in.EventID,
		Name:         in.Name,
		TicketPrice:  in.TicketPrice,
		TotalTickets: in.TotalTickets,
		StartTime:    in.StartTime,
		EndTime:      in.EndTime,
		RefundWindow: in.RefundWindow,
		MetadataURI:  in.MetadataURI,
		Description:  in.Description,
		Transferable: in.Transferable,
		Resaleable:   in.Resaleable,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.guards.Register(event.ID)

	if err := s.venues.Mutate(ctx, in.VenueID, func(v *domain.Venue) error {
		v.EventCount++
		return nil
	}); err != nil {
		return nil, fmt.Errorf("update venue: %w", err)
	}
	if err := s.platform.Mutate(ctx, func(p *domain.Platform) error {
		p.TotalEvents++
		return nil
	}); err != nil {
		return nil, fmt.Errorf("update platform totals: %w", err)
	}

	s.logger.Printf("event %s created under venue %s", event.ID, in.VenueID)
	return event, nil
}
