package guard

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"ticket-settlement-lab/internal/domain"
	"ticket-settlement-lab/internal/observability"
)

func TestAcquireRelease(t *testing.T) {
	r := NewRegistry()
	r.Register("listing-1")

	if r.IsLocked("listing-1") {
		t.Fatal("fresh guard should be unlocked")
	}

	release, err := r.Acquire("listing-1")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if !r.IsLocked("listing-1") {
		t.Fatal("guard should be locked after Acquire")
	}

	release()
	if r.IsLocked("listing-1") {
		t.Fatal("guard should be unlocked after release")
	}
}

// A second acquire before release fails with ReentrancyLocked and the guard
// stays locked.
func TestAcquire_Reentrant(t *testing.T) {
	r := NewRegistry()
	r.Register("listing-1")

	release, err := r.Acquire("listing-1")
	if err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}

	if _, err := r.Acquire("listing-1"); !errors.Is(err, domain.ErrReentrancyLocked) {
		t.Fatalf("expected ErrReentrancyLocked, got %v", err)
	}
	if !r.IsLocked("listing-1") {
		t.Fatal("guard should remain locked after rejected acquire")
	}

	release()
	if _, err := r.Acquire("listing-1"); err != nil {
		t.Fatalf("Acquire after release failed: %v", err)
	}
}

func TestRelease_Idempotent(t *testing.T) {
	r := NewRegistry()
	r.Register("listing-1")

	release, err := r.Acquire("listing-1")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	release()
	release() // second release is a no-op
	if r.IsLocked("listing-1") {
		t.Fatal("guard should stay unlocked")
	}
}

func TestAcquire_Unregistered(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Acquire("missing"); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
}

func TestRemove_ReleaseAfterRemove(t *testing.T) {
	r := NewRegistry()
	r.Register("listing-1")

	release, err := r.Acquire("listing-1")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	r.Remove("listing-1")
	release() // must not panic or resurrect the guard

	if r.IsLocked("listing-1") {
		t.Fatal("removed guard should not report locked")
	}
	if _, err := r.Acquire("listing-1"); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered after Remove, got %v", err)
	}
}

func TestGuards_Independent(t *testing.T) {
	r := NewRegistry()
	r.Register("a")
	r.Register("b")

	release, err := r.Acquire("a")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer release()

	if _, err := r.Acquire("b"); err != nil {
		t.Fatalf("guard b should be independent of a: %v", err)
	}
}

func TestRegistry_GaugeTracksRegistrations(t *testing.T) {
	r := NewRegistry()
	gauge := observability.DefaultMetrics.ActiveGuards
	before := testutil.ToFloat64(gauge)

	r.Register("listing-a")
	r.Register("listing-a") // re-register is a no-op
	r.Register("listing-b")
	if got := testutil.ToFloat64(gauge); got != before+2 {
		t.Errorf("gauge = %v, want %v", got, before+2)
	}

	r.Remove("listing-a")
	r.Remove("listing-a") // absent key is a no-op
	if got := testutil.ToFloat64(gauge); got != before+1 {
		t.Errorf("gauge = %v, want %v", got, before+1)
	}
	r.Remove("listing-b")
	if got := testutil.ToFloat64(gauge); got != before {
		t.Errorf("gauge = %v, want %v", got, before)
	}
}
