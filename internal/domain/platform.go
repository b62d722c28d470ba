package domain

// Platform is the primary-sale platform configuration and aggregate counters.
type Platform struct {
	Owner              string
	Treasury           string
	FeeBps             uint16 // capped at FeeCapBps
	Paused             bool
	TotalVenues        uint64
	TotalEvents        uint64
	TotalTicketsSold   uint64
	TotalFeesCollected uint64
}

// Venue is a verified seller of primary tickets. Owned by the registry; the
// settlement path reads verified/active and bumps total_sales.
type Venue struct {
	ID          string // deterministic sub-account address
	Owner       string
	Name        string
	MetadataURI string
	Verified    bool
	Active      bool
	EventCount  uint64
	TotalSales  uint64
}

// IsActive reports whether the venue may sell tickets.
func (v *Venue) IsActive() bool {
	return v.Active && v.Verified
}

// Event is a single ticketed event under a venue. The guard for the primary
// sale path is keyed by the event ID.
type Event struct {
	ID              string
	VenueID         string
	EventID         uint64 // venue-scoped sequence number
	Name            string
	TicketPrice     uint64
	TotalTickets    uint32
	TicketsSold     uint32
	TicketsReserved uint32
	StartTime       int64 // unix seconds
	EndTime         int64
	RefundWindow    int64 // seconds after start
	MetadataURI     string
	Description     string
	Transferable    bool
	Resaleable      bool
}

// SalesOpen reports whether primary sales are still possible at the given time.
func (e *Event) SalesOpen(now int64) bool {
	return now < e.StartTime && e.TicketsSold < e.TotalTickets
}
