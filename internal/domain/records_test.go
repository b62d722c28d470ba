package domain

import "testing"

func TestComputeReceiptID_Deterministic(t *testing.T) {
	r := &Receipt{
		Kind:      ReceiptListingSold,
		Actor:     "buyer",
		ListingID: "listing-1",
		EventID:   "event-1",
		AssetID:   "asset-1",
		Price:     1_000_000,
		TotalPaid: 1_000_000,
		Timestamp: 1_700_000_000,
	}
	a, b := ComputeReceiptID(r), ComputeReceiptID(r)
	if a != b {
		t.Fatalf("same receipt hashed to %s and %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("ID length = %d, want 64", len(a))
	}
}

// Receipts that differ only in their reserved range or total must not share an
// ID. Same-second repeat purchases by one buyer produce exactly such pairs.
func TestComputeReceiptID_DistinguishesRepeatPurchases(t *testing.T) {
	base := Receipt{
		Kind:      ReceiptTicketsPurchased,
		Actor:     "buyer",
		EventID:   "event-1",
		Price:     1_000_000,
		TotalPaid: 1_000_000,
		Quantity:  1,
		Timestamp: 1_700_000_000,
	}

	second := base
	second.FirstTicket = 1
	if ComputeReceiptID(&base) == ComputeReceiptID(&second) {
		t.Error("receipts differing only in FirstTicket share an ID")
	}

	bigger := base
	bigger.TotalPaid = 2_000_000
	if ComputeReceiptID(&base) == ComputeReceiptID(&bigger) {
		t.Error("receipts differing only in TotalPaid share an ID")
	}
}
