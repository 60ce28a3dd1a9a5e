package retry

import (
	"context"
	"time"
)

// maxShift caps the exponential growth of the wait at Base * 2^maxShift.
const maxShift = 16

// Backoff retries an idempotent operation with exponentially growing waits.
// Each attempt runs under its own timeout when Timeout is set.
type Backoff struct {
	Base       time.Duration
	MaxRetries int
	Timeout    time.Duration
	OnRetry    func(attempt int, err error)
}

func New(base time.Duration, maxRetries int) Backoff {
	return Backoff{Base: base, MaxRetries: maxRetries}
}

// WithTimeout returns a copy of b whose attempts are bounded by d.
func (b Backoff) WithTimeout(d time.Duration) Backoff {
	b.Timeout = d
	return b
}

// Do calls fn until it returns nil, the parent context is done, or MaxRetries
// retries have been spent. The last error is returned.
func (b Backoff) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	var err error
	for i := 0; i <= b.MaxRetries; i++ {
		err = b.attempt(ctx, i, fn)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || i == b.MaxRetries {
			return err
		}
		if b.OnRetry != nil {
			b.OnRetry(i+1, err)
		}

		t := time.NewTimer(b.delay(i))
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
	return err
}

func (b Backoff) attempt(ctx context.Context, i int, fn func(ctx context.Context, attempt int) error) error {
	if b.Timeout <= 0 {
		return fn(ctx, i)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, b.Timeout)
	defer cancel()
	return fn(attemptCtx, i)
}

// delay is the wait before retry i+1.
func (b Backoff) delay(i int) time.Duration {
	if i > maxShift {
		i = maxShift
	}
	return b.Base << uint(i)
}
