// Package retry holds the single backoff policy used around external
// AI calls, so the behavior is not duplicated per call site.
package retry

import (
	"context"
	"time"
)

// Policy retries an operation a fixed number of times with exponential
// backoff. Only errors the classifier marks transient are retried;
// permanent failures surface immediately.
type Policy struct {
	MaxRetries int           // Additional attempts after the first
	BaseDelay  time.Duration // Delay before the first retry; doubles each retry
}

// Default is the policy for embedding and generation calls: one retry
// after a short pause.
func Default() Policy {
	return Policy{MaxRetries: 1, BaseDelay: 500 * time.Millisecond}
}

// Do runs fn, retrying per the policy when transient(err) is true.
// Context cancellation aborts the wait and returns the last error.
func (p Policy) Do(ctx context.Context, transient func(error) bool, fn func(ctx context.Context) error) error {
	delay := p.BaseDelay
	var err error

	for attempt := 0; ; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= p.MaxRetries || transient == nil || !transient(err) {
			return err
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return err
		}
		delay *= 2
	}
}
