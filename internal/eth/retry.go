package eth

import (
	"context"
	"errors"
	"time"
)

// Backoff is a bounded retry schedule. Attempt n sleeps Base*n before
// retrying, so the default schedule waits 500ms then 1s.
type Backoff struct {
	Attempts int
	Base     time.Duration
}

// DefaultBackoff matches the engine-wide policy for transient remote faults.
var DefaultBackoff = Backoff{Attempts: 3, Base: 500 * time.Millisecond}

// Do runs fn up to b.Attempts times, sleeping linearly growing delays between
// attempts. Context cancellation and permanent-wrapped errors stop
// immediately; the last error is returned when the budget is exhausted.
func (b Backoff) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := b.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var p permanent
		if errors.As(err, &p) {
			return err
		}
		if i == attempts-1 {
			break
		}

		timer := time.NewTimer(b.Base * time.Duration(i+1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
