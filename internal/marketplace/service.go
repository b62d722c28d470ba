// Package marketplace implements the resale listing lifecycle: create, buy,
// and cancel. Buying is a settlement: a three-way fund split executed under
// the listing's reentrancy guard with all-or-nothing semantics.
package marketplace

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

// RecordSink receives settlement records as they are emitted. Implementations
// must not block settlement.
type RecordSink interface {
	Publish(r *domain.Receipt)
}

// Service executes resale marketplace operations.
type Service struct {
	config   storage.MarketplaceStore
	listings storage.ListingStore
	ledger   storage.Ledger
	guards   *guard.Registry
	receipts storage.ReceiptStore
	clock    clock.Clock
	sink     RecordSink // optional
	logger   *log.Logger
}

// NewService creates a marketplace service. sink may be nil.
func NewService(
	config storage.MarketplaceStore,
	listings storage.ListingStore,
	ledger storage.Ledger,
	guards *guard.Registry,
	receipts storage.ReceiptStore,
	clk clock.Clock,
	sink RecordSink,
	logger *log.Logger,
) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		config:   config,
		listings: listings,
		ledger:   ledger,
		guards:   guards,
		receipts: receipts,
		clock:    clk,
		sink:     sink,
		logger:   logger,
	}
}

// Initialize creates the marketplace configuration. fee_bps above the 10% cap
// is rejected.
func (s *Service) Initialize(ctx context.Context, authority, treasury string, feeBps uint16) (*domain.Marketplace, error) {
	if err := address.Validate(authority); err != nil {
		return nil, fmt.Errorf("authority: %w", err)
	}
	if err := address.Validate(treasury); err != nil {
		return nil, fmt.Errorf("treasury: %w", err)
	}
	if feeBps > domain.FeeCapBps {
		return nil, domain.ErrPriceCapExceeded
	}

	m := &domain.Marketplace{
		Authority: authority,
		Treasury:  treasury,
		FeeBps:    feeBps,
	}
	if err := s.config.Init(ctx, m); err != nil {
		return nil, fmt.Errorf("init marketplace: %w", err)
	}

	s.logger.Printf("marketplace initialized with %d bps fee", feeBps)
	return m, nil
}

// SetPaused toggles the paused flag. Authority only.
func (s *Service) SetPaused(ctx context.Context, authority string, paused bool) error {
	return s.config.Mutate(ctx, func(m *domain.Marketplace) error {
		if m.Authority != authority {
			return domain.ErrUnauthorized
		}
		m.Paused = paused
		return nil
	})
}

// CreateListingInput carries the arguments of a create_listing call.
type CreateListingInput struct {
	Seller        string
	EventID       string
	AssetID       string
	Price         uint64
	OriginalPrice uint64
	ExpiresAt     int64 // unix seconds
}

// CreateListing creates an active listing and its paired guard. The 110%
// price cap over OriginalPrice is enforced here and never re-checked later.
// No funds move.
func (s *Service) CreateListing(ctx context.Context, in CreateListingInput) (*domain.Listing, error) {
	if err := address.Validate(in.Seller); err != nil {
		return nil, fmt.Errorf("seller: %w", err)
	}
	if in.EventID == "" || in.AssetID == "" {
		return nil, domain.ErrInvalidInput
	}

	m, err := s.config.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load marketplace: %w", err)
	}
	if m.Paused {
		return nil, domain.ErrPaused
	}

	now := s.clock.Now().Unix()
	if in.ExpiresAt <= now {
		return nil, domain.ErrInvalidTiming
	}

	maxPrice, err := safemath.PriceCap(in.OriginalPrice)
	if err != nil {
		return nil, err
	}
	if in.Price > maxPrice {
		return nil, domain.ErrPriceCapExceeded
	}

	listing := &domain.Listing{
		ID:            address.Derive("listing", in.Seller, in.AssetID),
		Seller:        in.Seller,
		EventID:       in.EventID,
		AssetID:       in.AssetID,
		Price:         in.Price,
		OriginalPrice: in.OriginalPrice,
		ListedAt:      now,
		ExpiresAt:     in.ExpiresAt,
		Active:        true,
	}
	if err := s.listings.Create(ctx, listing); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, domain.ErrAlreadyUsed
		}
		return nil, fmt.Errorf("create listing: %w", err)
	}
	s.guards.Register(listing.ID)

	if err := s.config.Mutate(ctx, func(m *domain.Marketplace) error {
		m.TotalListings++
		return nil
	}); err != nil {
		return nil, fmt.Errorf("update marketplace totals: %w", err)
	}

	if err := s.emit(ctx, &domain.Receipt{
		Kind:      domain.ReceiptListingCreated,
		Actor:     listing.Seller,
		EventID:   listing.EventID,
		ListingID: listing.ID,
		AssetID:   listing.AssetID,
		Price:     listing.Price,
		Timestamp: now,
	}); err != nil {
		return nil, err
	}

	s.logger.Printf("listing %s created for asset %s at price %d", listing.ID, listing.AssetID, listing.Price)
	return listing, nil
}

// BuyListingInput carries the arguments of a buy_listing call. Treasury
// destinations are supplied per-call and only type-checked; that is a trust
// boundary, not a concurrency guarantee.
type BuyListingInput struct {
	Buyer         string
	ListingID     string
	VenueTreasury string
	// MarketplaceTreasury overrides the configured treasury when set.
	MarketplaceTreasury string
}

// BuyListing settles a resale purchase. The listing guard is held from before
// the first fund movement until after the sale record is emitted; any failed
// precondition or arithmetic step aborts the whole call with no partial fund
// movement and no counter update.
func (s *Service) BuyListing(ctx context.Context, in BuyListingInput) (*domain.Receipt, error) {
	if err := address.Validate(in.Buyer); err != nil {
		return nil, fmt.Errorf("buyer: %w", err)
	}
	if err := address.Validate(in.VenueTreasury); err != nil {
		return nil, fmt.Errorf("venue treasury: %w", err)
	}

	release, err := s.guards.Acquire(in.ListingID)
	if err != nil {
		if errors.Is(err, guard.ErrNotRegistered) {
			return nil, storage.ErrNotFound
		}
		observability.RecordGuardRejection()
		return nil, err
	}
	defer release()

	listing, err := s.listings.Get(ctx, in.ListingID)
	if err != nil {
		return nil, fmt.Errorf("load listing: %w", err)
	}
	if !listing.Active {
		return nil, domain.ErrNotActive
	}
	now := s.clock.Now().Unix()
	if listing.IsExpired(now) {
		return nil, domain.ErrExpired
	}

	m, err := s.config.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load marketplace: %w", err)
	}
	mpTreasury := in.MarketplaceTreasury
	if mpTreasury == "" {
		mpTreasury = m.Treasury
	}

	marketplaceFee, err := safemath.Fee(listing.Price, m.FeeBps)
	if err != nil {
		return nil, err
	}
	venueRoyalty, err := safemath.Fee(listing.Price, domain.VenueRoyaltyBps)
	if err != nil {
		return nil, err
	}
	afterFee, err := safemath.Sub(listing.Price, marketplaceFee)
	if err != nil {
		return nil, err
	}
	sellerAmount, err := safemath.Sub(afterFee, venueRoyalty)
	if err != nil {
		return nil, err
	}
	// Counter overflow would abort after funds moved; check it up front.
	if _, err := safemath.Add(m.TotalVolume, listing.Price); err != nil {
		return nil, err
	}

	transfers := []storage.Transfer{
		{From: in.Buyer, To: listing.Seller, Amount: sellerAmount},
	}
	if marketplaceFee > 0 {
		transfers = append(transfers, storage.Transfer{From: in.Buyer, To: mpTreasury, Amount: marketplaceFee})
	}
	if venueRoyalty > 0 {
		transfers = append(transfers, storage.Transfer{From: in.Buyer, To: in.VenueTreasury, Amount: venueRoyalty})
	}
	if err := s.ledger.Apply(ctx, transfers); err != nil {
		return nil, fmt.Errorf("settle transfers: %w", err)
	}

	listing.Active = false
	if err := s.listings.Update(ctx, listing); err != nil {
		return nil, fmt.Errorf("deactivate listing: %w", err)
	}

	if err := s.config.Mutate(ctx, func(m *domain.Marketplace) error {
		newVolume, err := safemath.Add(m.TotalVolume, listing.Price)
		if err != nil {
			return err
		}
		m.TotalSales++
		m.TotalVolume = newVolume
		return nil
	}); err != nil {
		return nil, fmt.Errorf("update marketplace totals: %w", err)
	}

	receipt := &domain.Receipt{
		Kind:         domain.ReceiptListingSold,
		Actor:        in.Buyer,
		Counterparty: listing.Seller,
		EventID:      listing.EventID,
		ListingID:    listing.ID,
		AssetID:      listing.AssetID,
		Price:        listing.Price,
		TotalPaid:    listing.Price,
		Fee:          marketplaceFee,
		Royalty:      venueRoyalty,
		Timestamp:    now,
	}
	if err := s.emit(ctx, receipt); err != nil {
		return nil, err
	}

	s.logger.Printf("listing %s sold for %d (fee %d, royalty %d)", listing.ID, listing.Price, marketplaceFee, venueRoyalty)
	return receipt, nil
}

// CancelListing destroys an active listing and its guard. Only the seller may
// cancel. The guard is acquired for symmetry with BuyListing so a nested buy
// triggered mid-cancel cannot observe a half-destroyed listing.
func (s *Service) CancelListing(ctx context.Context, seller, listingID string) error {
	release, err := s.guards.Acquire(listingID)
	if err != nil {
		if errors.Is(err, guard.ErrNotRegistered) {
			return storage.ErrNotFound
		}
		observability.RecordGuardRejection()
		return err
	}
	defer release()

	listing, err := s.listings.Get(ctx, listingID)
	if err != nil {
		return fmt.Errorf("load listing: %w", err)
	}
	if listing.Seller != seller {
		return domain.ErrUnauthorized
	}
	if !listing.Active {
		return domain.ErrNotActive
	}

	if err := s.listings.Delete(ctx, listingID); err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	s.guards.Remove(listingID)

	if err := s.emit(ctx, &domain.Receipt{
		Kind:      domain.ReceiptListingCancelled,
		Actor:     seller,
		EventID:   listing.EventID,
		ListingID: listing.ID,
		AssetID:   listing.AssetID,
		Timestamp: s.clock.Now().Unix(),
	}); err != nil {
		return err
	}

	s.logger.Printf("listing %s cancelled", listingID)
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
