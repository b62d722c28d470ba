package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ReceiptKind identifies the settlement record type.
type ReceiptKind string

const (
	ReceiptListingCreated            ReceiptKind = "listing_created"
	ReceiptListingSold               ReceiptKind = "listing_sold"
	ReceiptListingCancelled          ReceiptKind = "listing_cancelled"
	ReceiptTicketsPurchased          ReceiptKind = "tickets_purchased"
	ReceiptTicketListedOnMarketplace ReceiptKind = "ticket_listed_on_marketplace"
)

// Receipt is the record emitted by a completed settlement call. Fields not
// meaningful for a given kind are zero.
type Receipt struct {
	ID           string      // deterministic hash, see ComputeReceiptID
	Kind         ReceiptKind
	Actor        string // buyer, seller, or owner initiating the call
	Counterparty string // seller on a sale, empty otherwise
	VenueID      string
	EventID      string
	ListingID    string
	AssetID      string
	Price        uint64 // per-unit price for purchases, listing price for sales
	TotalPaid    uint64
	Fee          uint64 // marketplace or platform fee
	Royalty      uint64 // venue royalty on resales
	Quantity     uint32 // batch size for primary purchases
	FirstTicket  uint32 // start of the reserved ticket-number range
	Timestamp    int64  // unix seconds
}

// ComputeReceiptID computes a deterministic receipt ID using SHA256.
// Formula: SHA256(kind|actor|listing|event|asset|price|total|quantity|first|timestamp).
// FirstTicket is part of the hash so two same-second purchases by one buyer,
// which differ only in their reserved range, get distinct IDs.
// Returns hex-encoded hash (64 characters).
func ComputeReceiptID(r *Receipt) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%s|%d|%d|%d|%d|%d",
		r.Kind,
		r.Actor,
		r.ListingID,
		r.EventID,
		r.AssetID,
		r.Price,
		r.TotalPaid,
		r.Quantity,
		r.FirstTicket,
		r.Timestamp,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
