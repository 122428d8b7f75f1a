package engine

import (
	"context"
	"testing"
)

func TestSupersede_CancelsPriorQuote(t *testing.T) {
	t.Parallel()

	e := &Engine{}

	ctx1, done1 := e.supersede(context.Background())
	ctx2, done2 := e.supersede(context.Background())

	select {
	case <-ctx1.Done():
	default:
		t.Fatal("first quote context must be cancelled by the second")
	}
	if ctx2.Err() != nil {
		t.Fatalf("second quote context cancelled early: %v", ctx2.Err())
	}

	// The stale quote finishing must not evict the newer holder.
	done1()
	if e.inFlight == nil {
		t.Fatal("stale quote vacated the newer quote's slot")
	}
	if ctx2.Err() != nil {
		t.Fatal("stale quote cancelled the newer context")
	}

	done2()
	if e.inFlight != nil {
		t.Fatal("slot must be empty after the current quote finishes")
	}
}

func TestSupersede_RespectsParentCancellation(t *testing.T) {
	t.Parallel()

	e := &Engine{}
	parent, cancel := context.WithCancel(context.Background())
	ctx, done := e.supersede(parent)
	defer done()

	cancel()
	select {
	case <-ctx.Done():
	default:
		t.Fatal("quote context must follow its parent")
	}
}
