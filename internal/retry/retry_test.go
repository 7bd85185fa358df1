package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("transient")
var errPermanent = errors.New("permanent")

func isTransient(err error) bool {
	return errors.Is(err, errTransient)
}

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Default().Do(context.Background(), isTransient, func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoRetriesTransientOnce(t *testing.T) {
	p := Policy{MaxRetries: 1, BaseDelay: time.Millisecond}
	calls := 0
	err := p.Do(context.Background(), isTransient, func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return errTransient
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestDoGivesUpAfterMaxRetries(t *testing.T) {
	p := Policy{MaxRetries: 1, BaseDelay: time.Millisecond}
	calls := 0
	err := p.Do(context.Background(), isTransient, func(ctx context.Context) error {
		calls++
		return errTransient
	})
	if !errors.Is(err, errTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2 (one retry)", calls)
	}
}

func TestDoDoesNotRetryPermanent(t *testing.T) {
	p := Policy{MaxRetries: 3, BaseDelay: time.Millisecond}
	calls := 0
	err := p.Do(context.Background(), isTransient, func(ctx context.Context) error {
		calls++
		return errPermanent
	})
	if !errors.Is(err, errPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxRetries: 5, BaseDelay: time.Hour}
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := p.Do(ctx, isTransient, func(ctx context.Context) error {
		calls++
		return errTransient
	})
	if !errors.Is(err, errTransient) {
		t.Fatalf("expected last error back, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (cancel aborts the wait)", calls)
	}
}
