package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"ticket-settlement-lab/internal/address"
	"ticket-settlement-lab/internal/callenc"
	"ticket-settlement-lab/internal/clock"
	"ticket-settlement-lab/internal/domain"
	"ticket-settlement-lab/internal/observability"
	"ticket-settlement-lab/internal/storage/memory"
)

var testNow = time.Unix(1_700_000_000, 0)

func testAddr(tag byte) string {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = tag
	}
	return address.Encode(raw)
}

// captureDispatcher records the payloads it receives.
type captureDispatcher struct {
	calls [][]byte
	err   error
}

func (d *captureDispatcher) Dispatch(_ context.Context, data []byte) error {
	if d.err != nil {
		return d.err
	}
	d.calls = append(d.calls, data)
	return nil
}

func newFixture(t *testing.T) (*Service, *captureDispatcher, *memory.EventStore) {
	t.Helper()
	events := memory.NewEventStore()
	dispatcher := &captureDispatcher{}
	receipts := memory.NewReceiptStore()
	svc := NewService(events, dispatcher, receipts, clock.NewFixed(testNow), nil, nil)

	err := events.Create(context.Background(), &domain.Event{
		ID:          "event-1",
		VenueID:     "venue-1",
		TicketPrice: 1_000_000,
		StartTime:   testNow.Unix() + 7200,
		Resaleable:  true,
	})
	if err != nil {
		t.Fatalf("event Create failed: %v", err)
	}
	return svc, dispatcher, events
}

func TestListTicket_ForwardsCall(t *testing.T) {
	ctx := context.Background()
	svc, dispatcher, _ := newFixture(t)
	owner := testAddr(1)

	err := svc.ListTicket(ctx, ListTicketInput{
		Owner:     owner,
		EventID:   "event-1",
		AssetID:   "asset-1",
		Price:     1_100_000,
		ExpiresAt: testNow.Unix() + 3600,
	})
	if err != nil {
		t.Fatalf("ListTicket failed: %v", err)
	}

	if len(dispatcher.calls) != 1 {
		t.Fatalf("expected 1 dispatched call, got %d", len(dispatcher.calls))
	}
	call, err := callenc.DecodeCreateListing(dispatcher.calls[0])
	if err != nil {
		t.Fatalf("dispatched payload does not decode: %v", err)
	}
	if call.Seller != owner {
		t.Errorf("seller = %s, want owner", call.Seller)
	}
	// The original ticket price rides along as the cap basis.
	if call.OriginalPrice != 1_000_000 {
		t.Errorf("original price = %d, want 1_000_000", call.OriginalPrice)
	}
	if call.Price != 1_100_000 || call.AssetID != "asset-1" {
		t.Errorf("unexpected call: %+v", call)
	}
}

func TestListTicket_PreValidation(t *testing.T) {
	ctx := context.Background()
	svc, dispatcher, events := newFixture(t)
	owner := testAddr(1)

	list := func(price uint64, expiresAt int64) error {
		return svc.ListTicket(ctx, ListTicketInput{
			Owner:     owner,
			EventID:   "event-1",
			AssetID:   "asset-1",
			Price:     price,
			ExpiresAt: expiresAt,
		})
	}

	// Price above 110% of the ticket price.
	if err := list(1_100_001, testNow.Unix()+3600); !errors.Is(err, domain.ErrPriceCapExceeded) {
		t.Fatalf("expected ErrPriceCapExceeded, got %v", err)
	}

	// Expiry beyond event start.
	if err := list(1_000_000, testNow.Unix()+7201); !errors.Is(err, domain.ErrInvalidTiming) {
		t.Fatalf("expected ErrInvalidTiming for expiry past start, got %v", err)
	}

	// Expiry in the past.
	if err := list(1_000_000, testNow.Unix()-1); !errors.Is(err, domain.ErrInvalidTiming) {
		t.Fatalf("expected ErrInvalidTiming for past expiry, got %v", err)
	}

	// Non-resaleable event.
	if err := events.Mutate(ctx, "event-1", func(e *domain.Event) error {
		e.Resaleable = false
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if err := list(1_000_000, testNow.Unix()+3600); !errors.Is(err, domain.ErrResaleNotAllowed) {
		t.Fatalf("expected ErrResaleNotAllowed, got %v", err)
	}

	// Event already started.
	if err := events.Mutate(ctx, "event-1", func(e *domain.Event) error {
		e.Resaleable = true
		e.StartTime = testNow.Unix() - 1
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if err := list(1_000_000, testNow.Unix()+3600); !errors.Is(err, domain.ErrInvalidTiming) {
		t.Fatalf("expected ErrInvalidTiming for started event, got %v", err)
	}

	if len(dispatcher.calls) != 0 {
		t.Errorf("failed pre-validation still dispatched %d calls", len(dispatcher.calls))
	}
}

func TestListTicket_DispatchErrorPropagates(t *testing.T) {
	ctx := context.Background()
	svc, dispatcher, _ := newFixture(t)
	dispatcher.err = domain.ErrPaused

	err := svc.ListTicket(ctx, ListTicketInput{
		Owner:     testAddr(1),
		EventID:   "event-1",
		AssetID:   "asset-1",
		Price:     1_000_000,
		ExpiresAt: testNow.Unix() + 3600,
	})
	if !errors.Is(err, domain.ErrPaused) {
		t.Fatalf("expected far-side error to propagate, got %v", err)
	}
}

func TestListTicket_CallCounters(t *testing.T) {
	ctx := context.Background()
	svc, dispatcher, _ := newFixture(t)

	calls := observability.DefaultMetrics.BridgeCalls.WithLabelValues("create_listing")
	callsBefore := testutil.ToFloat64(calls)
	errorsBefore := testutil.ToFloat64(observability.DefaultMetrics.BridgeErrors)

	in := ListTicketInput{
		Owner:     testAddr(1),
		EventID:   "event-1",
		AssetID:   "asset-1",
		Price:     1_000_000,
		ExpiresAt: testNow.Unix() + 3600,
	}
	if err := svc.ListTicket(ctx, in); err != nil {
		t.Fatalf("ListTicket failed: %v", err)
	}
	if got := testutil.ToFloat64(calls); got != callsBefore+1 {
		t.Errorf("call counter = %v, want %v", got, callsBefore+1)
	}
	if got := testutil.ToFloat64(observability.DefaultMetrics.BridgeErrors); got != errorsBefore {
		t.Errorf("error counter moved on success: %v", got)
	}

	dispatcher.err = errors.New("target unavailable")
	in.AssetID = "asset-2"
	if err := svc.ListTicket(ctx, in); err == nil {
		t.Fatal("expected dispatch failure to surface")
	}
	if got := testutil.ToFloat64(calls); got != callsBefore+2 {
		t.Errorf("call counter = %v, want %v", got, callsBefore+2)
	}
	if got := testutil.ToFloat64(observability.DefaultMetrics.BridgeErrors); got != errorsBefore+1 {
		t.Errorf("error counter = %v, want %v", got, errorsBefore+1)
	}
}
