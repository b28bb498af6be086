package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestPollReachesTerminalStatus(t *testing.T) {
	var calls int32
	fetch := func(ctx context.Context) (string, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return "pending", nil
		}
		return "confirmed", nil
	}
	res := Poll(context.Background(), fetch, func(s string) bool { return s == "confirmed" }, Options{
		Interval:    time.Millisecond,
		MaxAttempts: 10,
	})
	if res.Outcome != OutcomeTerminal {
		t.Fatalf("expected terminal outcome, got %s", res.Outcome)
	}
	if res.Status != "confirmed" {
		t.Fatalf("expected confirmed status, got %q", res.Status)
	}
	if res.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", res.Attempts)
	}
}

func TestPollTimeoutAfterBudget(t *testing.T) {
	fetch := func(ctx context.Context) (string, error) { return "pending", nil }
	res := Poll(context.Background(), fetch, func(s string) bool { return s == "confirmed" }, Options{
		Interval:    time.Millisecond,
		MaxAttempts: 4,
	})
	if res.Outcome != OutcomeTimeout {
		t.Fatalf("expected timeout outcome, got %s", res.Outcome)
	}
	if res.Attempts != 4 {
		t.Fatalf("expected attempt budget consumed, got %d", res.Attempts)
	}
}

func TestPollFetchErrorsConsumeBudgetWithoutAborting(t *testing.T) {
	var calls int32
	fetch := func(ctx context.Context) (string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return "", errors.New("rpc hiccup")
		}
		return "confirmed", nil
	}
	res := Poll(context.Background(), fetch, func(s string) bool { return s == "confirmed" }, Options{
		Interval:    time.Millisecond,
		MaxAttempts: 5,
	})
	if res.Outcome != OutcomeTerminal {
		t.Fatalf("expected terminal outcome despite fetch error, got %s", res.Outcome)
	}
	if res.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", res.Attempts)
	}
}

func TestPollCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fetch := func(ctx context.Context) (string, error) {
		cancel()
		return "pending", nil
	}
	res := Poll(ctx, fetch, func(s string) bool { return false }, Options{
		Interval:    time.Minute, // poll would block here if cancellation were ignored
		MaxAttempts: 10,
	})
	if res.Outcome != OutcomeCancelled {
		t.Fatalf("expected cancelled outcome, got %s", res.Outcome)
	}
}

func TestPollCancelledBeforeFirstFetch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls int32
	res := Poll(ctx, func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, nil
	}, func(int) bool { return true }, Options{Interval: time.Millisecond, MaxAttempts: 3})
	if res.Outcome != OutcomeCancelled {
		t.Fatalf("expected cancelled outcome, got %s", res.Outcome)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatal("fetch must not run after cancellation")
	}
}
