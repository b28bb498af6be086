package model

import (
	"testing"
	"time"
)

func TestSwapStepTransitions(t *testing.T) {
	if !SwapStepIdle.CanTransition(SwapStepCheckingAllowance) {
		t.Fatal("idle -> checking-allowance must be allowed")
	}
	if !SwapStepCheckingAllowance.CanTransition(SwapStepSwapping) {
		t.Fatal("skipping approving when allowance is sufficient must be allowed")
	}
	if SwapStepSwapping.CanTransition(SwapStepApproving) {
		t.Fatal("backward transition must be rejected")
	}
	if !SwapStepConfirming.CanTransition(SwapStepError) {
		t.Fatal("error must be reachable from confirming")
	}
	if SwapStepComplete.CanTransition(SwapStepError) {
		t.Fatal("complete is terminal")
	}
	if SwapStepError.CanTransition(SwapStepSwapping) {
		t.Fatal("error is terminal; retry starts a fresh execution")
	}
}

func TestBridgeStatusTransitions(t *testing.T) {
	if !BridgeStatusCheckingApproval.CanTransition(BridgeStatusPendingSource) {
		t.Fatal("approval states are skipped when no approval is required")
	}
	if !BridgeStatusAwaitingApproval.CanTransition(BridgeStatusApproving) {
		t.Fatal("awaiting-approval -> approving must be allowed")
	}
	if BridgeStatusBridging.CanTransition(BridgeStatusPendingSource) {
		t.Fatal("backward transition must be rejected")
	}
	if BridgeStatusCompleted.CanTransition(BridgeStatusFailed) {
		t.Fatal("completed is terminal")
	}
	if BridgeStatusFailed.CanTransition(BridgeStatusBridging) {
		t.Fatal("failed is terminal")
	}
}

func TestRouteStale(t *testing.T) {
	now := time.Now()
	r := Route{FetchedAt: now.Add(-45 * time.Second)}
	if !r.Stale(now, 30*time.Second) {
		t.Fatal("route older than max age must be stale")
	}
	if r.Stale(now, 2*time.Minute) {
		t.Fatal("route within max age must not be stale")
	}
	if !(Route{}).Stale(now, time.Hour) {
		t.Fatal("route with no fetch time must be treated as stale")
	}
}

func TestBridgeElapsed(t *testing.T) {
	now := time.Now()
	b := BridgeTransaction{StartTime: now.Add(-90 * time.Second)}
	if got := b.Elapsed(now); got != 90*time.Second {
		t.Fatalf("expected 90s elapsed, got %s", got)
	}
	if got := (BridgeTransaction{}).Elapsed(now); got != 0 {
		t.Fatalf("expected zero elapsed without start time, got %s", got)
	}
}
