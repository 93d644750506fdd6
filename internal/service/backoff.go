package service

import (
	"context"
	"time"
)

// Backoff polls with exponentially growing delays until the condition is met
// or MaxWait has elapsed.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64
	MaxWait time.Duration
}

func DefaultWatchBackoff(maxWait time.Duration) Backoff {
	if maxWait <= 0 {
		maxWait = 2 * time.Minute
	}
	return Backoff{
		Initial: 2 * time.Second,
		Max:     10 * time.Second,
		Factor:  1.5,
		MaxWait: maxWait,
	}
}

// Poll calls fn until it reports done, returns an error, the context ends or
// MaxWait runs out (ErrWatchTimeout).
func (b Backoff) Poll(ctx context.Context, fn func(ctx context.Context) (bool, error)) error {
	deadline := time.Now().Add(b.MaxWait)
	delay := b.Initial

	for {
		done, err := fn(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrWatchTimeout
		}
		wait := delay
		if wait > remaining {
			wait = remaining
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * b.Factor)
		if b.Max > 0 && delay > b.Max {
			delay = b.Max
		}
	}
}
