package domain

// Financial constants, in smallest currency units unless noted.
const (
	// MinTicketPrice is the lowest allowed primary ticket price.
	MinTicketPrice uint64 = 100_000
	// MaxTicketPrice is the highest allowed primary ticket price.
	MaxTicketPrice uint64 = 1_000_000_000_000

	// FeeCapBps caps the configurable platform/marketplace fee at 10%.
	FeeCapBps uint16 = 1000
	// VenueRoyaltyBps is the fixed resale royalty paid to the venue. Not configurable.
	VenueRoyaltyBps uint16 = 500
	// ResalePriceCapPct is the maximum resale markup over the original price.
	ResalePriceCapPct uint64 = 110

	// MaxTicketPurchase is the largest batch a single purchase may settle.
	MaxTicketPurchase uint32 = 10
)

// Event timing constraints.
const (
	// MinEventLeadTime is how far in the future an event must start at creation.
	MinEventLeadTime int64 = 3600
	// MaxEventDuration bounds end_time - start_time.
	MaxEventDuration int64 = 365 * 24 * 3600
	// MaxRefundWindow bounds the post-start refund window.
	MaxRefundWindow int64 = 48 * 3600
)

// Registry string limits.
const (
	MaxVenueNameLen   = 64
	MaxEventNameLen   = 32
	MaxDescriptionLen = 200
	MaxURILen         = 64
)

const (
	// MaxEventCapacity bounds total_tickets for a single event.
	MaxEventCapacity uint32 = 1_000_000
	// TreeCapacity is the external minting collaborator's per-event asset tree
	// limit. Settlement does not enforce it; it is surfaced for operators.
	TreeCapacity uint32 = 16_384
)
