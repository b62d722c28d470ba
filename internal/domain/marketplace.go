package domain

// Marketplace is the resale marketplace configuration and aggregate counters.
// One instance exists for the lifetime of the deployed module. Counters are
// mutated only by the settlement path holding the relevant listing guard.
type Marketplace struct {
	Authority     string // base58 authority address
	Treasury      string // base58 fee destination
	FeeBps        uint16 // marketplace fee, capped at FeeCapBps
	Paused        bool
	TotalListings uint64
	TotalSales    uint64
	TotalVolume   uint64 // sum of settled listing prices
}

// Listing is an offer to resell one ticket asset at a capped price until expiry.
type Listing struct {
	ID            string // deterministic sub-account address, guard key
	Seller        string
	EventID       string
	AssetID       string // ticket asset identifier
	Price         uint64
	OriginalPrice uint64 // cap basis, fixed at creation
	ListedAt      int64  // unix seconds
	ExpiresAt     int64  // unix seconds
	Active        bool
}

// IsExpired reports whether the listing can no longer be bought at the given time.
func (l *Listing) IsExpired(now int64) bool {
	return now > l.ExpiresAt
}
