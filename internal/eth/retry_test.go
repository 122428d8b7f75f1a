package eth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackoff_SucceedsAfterTransientFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	b := Backoff{Attempts: 3, Base: time.Millisecond}
	err := b.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do returned %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestBackoff_ExhaustsBudget(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("still failing")
	calls := 0
	b := Backoff{Attempts: 2, Base: time.Millisecond}
	err := b.Do(context.Background(), func(context.Context) error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want sentinel", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestBackoff_StopsOnPermanentError(t *testing.T) {
	t.Parallel()

	// A revert carries contract semantics; retrying it only burns the
	// budget and the backoff sleeps.
	sentinel := errors.New("execution reverted")
	calls := 0
	b := Backoff{Attempts: 3, Base: 50 * time.Millisecond}

	start := time.Now()
	err := b.Do(context.Background(), func(context.Context) error {
		calls++
		return permanent{sentinel}
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want wrapped sentinel", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if elapsed := time.Since(start); elapsed > 25*time.Millisecond {
		t.Fatalf("Do slept %s on a permanent error", elapsed)
	}
}

func TestBackoff_StopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	b := Backoff{Attempts: 5, Base: 10 * time.Millisecond}
	err := b.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("429 Too Many Requests"), true},
		{errors.New("read tcp: i/o timeout"), true},
		{errors.New("connection refused"), true},
		{context.DeadlineExceeded, true},
		{errors.New("execution reverted: ReachSwapRouter: INSUFFICIENT_OUTPUT_AMOUNT"), false},
		{errors.New("insufficient funds for gas * price + value"), false},
	}
	for _, tc := range cases {
		if got := isTransient(tc.err); got != tc.want {
			t.Errorf("isTransient(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
