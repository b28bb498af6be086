// Package poller provides the bounded-retry polling primitive shared by the
// swap executor (chain confirmation) and the bridge executor (route
// settlement).
package poller

import (
	"context"
	"time"
)

// Outcome classifies how a poll ended. Cancellation and timeout are
// first-class outcomes, distinct from reaching a terminal status.
type Outcome string

const (
	OutcomeTerminal  Outcome = "terminal"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeCancelled Outcome = "cancelled"
)

// Result carries the last observed status alongside the outcome. Status is
// only meaningful for OutcomeTerminal; Attempts counts completed fetches.
type Result[S any] struct {
	Status   S
	Outcome  Outcome
	Attempts int
}

// Options bound a poll. Interval must be positive; MaxAttempts caps the
// number of fetch calls.
type Options struct {
	Interval    time.Duration
	MaxAttempts int
}

// Poll repeatedly calls fetch every Interval until isTerminal reports true,
// the attempt budget is exhausted, or ctx is cancelled. Fetch errors are
// treated as "no answer this attempt" and consume budget; they never abort
// the poll, because a transient RPC failure says nothing about the
// transaction's fate. Cancellation stops polling without returning an error.
func Poll[S any](ctx context.Context, fetch func(context.Context) (S, error), isTerminal func(S) bool, opts Options) Result[S] {
	var zero S
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 60
	}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	result := Result[S]{Status: zero}
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			result.Outcome = OutcomeCancelled
			return result
		}

		status, err := fetch(ctx)
		result.Attempts = attempt
		if err == nil {
			result.Status = status
			if isTerminal(status) {
				result.Outcome = OutcomeTerminal
				return result
			}
		}

		if attempt == opts.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			result.Outcome = OutcomeCancelled
			return result
		case <-ticker.C:
		}
	}

	result.Outcome = OutcomeTimeout
	return result
}
