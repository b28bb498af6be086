package engine

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/Dev72112/xlamaexchange/internal/allowance"
	"github.com/Dev72112/xlamaexchange/internal/model"
	"github.com/Dev72112/xlamaexchange/internal/poller"
)

func bridgeRoute() model.Route {
	r := freshRoute()
	r.RouteID = "bridge-route-1"
	r.Provider = "stargate"
	r.ToChainID = 10
	r.EstimatedTimeSeconds = 180
	return r
}

func bridgeReq() BridgeRequest {
	return BridgeRequest{
		RequestID:    "breq-1",
		FromChainID:  1,
		ToChainID:    10,
		FromToken:    usdc(),
		ToToken:      usdc(),
		Amount:       "2.0",
		SlippagePct:  0.5,
		ApprovalType: model.ApprovalExact,
	}
}

func newBridgeExecutor(t *testing.T, reader *fakeAllowanceReader, provider *fakeProvider, signer *fakeSigner, chain *fakeChain, opts func(*BridgeDeps)) *BridgeExecutor {
	t.Helper()
	deps := BridgeDeps{
		Allowance:  allowance.NewManager(reader),
		Provider:   provider,
		Signer:     signer,
		Chain:      chain,
		Logger:     testLogger(),
		SourcePoll: poller.Options{Interval: time.Millisecond, MaxAttempts: 5},
		BridgePoll: poller.Options{Interval: time.Millisecond, MaxAttempts: 5},
	}
	if opts != nil {
		opts(&deps)
	}
	return NewBridgeExecutor(deps)
}

func collectBridgeStatuses(updates <-chan model.BridgeTransaction) []model.BridgeStatus {
	var statuses []model.BridgeStatus
	for tx := range updates {
		statuses = append(statuses, tx.Status)
	}
	return statuses
}

func TestBridgeHappyPathWithoutApproval(t *testing.T) {
	reader := &fakeAllowanceReader{allowance: big.NewInt(5_000_000)}
	signer := &fakeSigner{hashes: []string{"0xswap"}}
	provider := &fakeProvider{
		route: bridgeRoute(),
		statuses: []model.RouteStatus{
			{State: model.RouteStatePending},
			{State: model.RouteStateCompleted, DestTxHash: "0xdest", ToAmount: "1990000"},
		},
	}

	exec := newBridgeExecutor(t, reader, provider, signer, confirmEverything(), nil)
	updates := make(chan model.BridgeTransaction, 16)
	done := make(chan []model.BridgeStatus, 1)
	go func() { done <- collectBridgeStatuses(updates) }()

	final, err := exec.Execute(context.Background(), bridgeReq(), updates)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if final.Status != model.BridgeStatusCompleted {
		t.Fatalf("status = %q: %+v", final.Status, final)
	}
	if final.SourceTxHash != "0xswap" || final.DestTxHash != "0xdest" {
		t.Errorf("hashes = %q/%q", final.SourceTxHash, final.DestTxHash)
	}
	if final.ToAmount != "1990000" {
		t.Errorf("to amount = %q, want the settled amount", final.ToAmount)
	}
	if final.BridgeName != "stargate" {
		t.Errorf("bridge name = %q", final.BridgeName)
	}

	statuses := <-done
	want := []model.BridgeStatus{
		model.BridgeStatusCheckingApproval,
		model.BridgeStatusPendingSource,
		model.BridgeStatusBridging,
		model.BridgeStatusCompleted,
	}
	if len(statuses) != len(want) {
		t.Fatalf("statuses = %v, want %v", statuses, want)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Errorf("status[%d] = %q, want %q", i, statuses[i], want[i])
		}
	}
}

func TestBridgeAwaitingApprovalOnlyWhenProviderFlags(t *testing.T) {
	route := bridgeRoute()
	route.NeedsApprovalConfirmation = true
	reader := &fakeAllowanceReader{allowance: big.NewInt(0)} // approval needed
	signer := &fakeSigner{hashes: []string{"0xapprove", "0xswap"}}
	provider := &fakeProvider{
		route:    route,
		statuses: []model.RouteStatus{{State: model.RouteStateCompleted, DestTxHash: "0xdest"}},
	}

	var confirmed bool
	exec := newBridgeExecutor(t, reader, provider, signer, confirmEverything(), func(d *BridgeDeps) {
		d.ConfirmApproval = func(_ context.Context, info model.ApprovalInfo) bool {
			confirmed = true
			if info.Spender == "" || info.Token.Symbol != "USDC" {
				t.Errorf("approval info = %+v", info)
			}
			return true
		}
	})
	updates := make(chan model.BridgeTransaction, 16)
	done := make(chan []model.BridgeStatus, 1)
	go func() { done <- collectBridgeStatuses(updates) }()

	final, err := exec.Execute(context.Background(), bridgeReq(), updates)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if final.Status != model.BridgeStatusCompleted {
		t.Fatalf("status = %q: %+v", final.Status, final)
	}
	if !confirmed {
		t.Error("confirm hook was not consulted")
	}

	statuses := <-done
	sawAwaiting := false
	for _, s := range statuses {
		if s == model.BridgeStatusAwaitingApproval {
			sawAwaiting = true
		}
	}
	if !sawAwaiting {
		t.Errorf("statuses = %v, want awaiting-approval visited", statuses)
	}
}

func TestBridgeSkipsAwaitingWhenFlagUnset(t *testing.T) {
	reader := &fakeAllowanceReader{allowance: big.NewInt(0)}
	signer := &fakeSigner{hashes: []string{"0xapprove", "0xswap"}}
	provider := &fakeProvider{
		route:    bridgeRoute(),
		statuses: []model.RouteStatus{{State: model.RouteStateCompleted, DestTxHash: "0xdest"}},
	}

	exec := newBridgeExecutor(t, reader, provider, signer, confirmEverything(), func(d *BridgeDeps) {
		d.ConfirmApproval = func(context.Context, model.ApprovalInfo) bool {
			t.Error("confirm hook must not run without the provider flag")
			return true
		}
	})
	updates := make(chan model.BridgeTransaction, 16)
	done := make(chan []model.BridgeStatus, 1)
	go func() { done <- collectBridgeStatuses(updates) }()

	final, _ := exec.Execute(context.Background(), bridgeReq(), updates)
	if final.Status != model.BridgeStatusCompleted {
		t.Fatalf("status = %q: %+v", final.Status, final)
	}
	for _, s := range <-done {
		if s == model.BridgeStatusAwaitingApproval {
			t.Error("awaiting-approval must be skipped when the flag is unset")
		}
	}
}

func TestBridgeDeclinedConfirmationFails(t *testing.T) {
	route := bridgeRoute()
	route.NeedsApprovalConfirmation = true
	reader := &fakeAllowanceReader{allowance: big.NewInt(0)}
	signer := &fakeSigner{}
	provider := &fakeProvider{route: route}

	exec := newBridgeExecutor(t, reader, provider, signer, confirmEverything(), func(d *BridgeDeps) {
		d.ConfirmApproval = func(context.Context, model.ApprovalInfo) bool { return false }
	})
	final, _ := exec.Execute(context.Background(), bridgeReq(), nil)
	if final.Status != model.BridgeStatusFailed || final.ErrorCategory != "user-declined" {
		t.Errorf("final = %+v, want failed/user-declined", final)
	}
	if len(signer.sent) != 0 {
		t.Error("nothing may be submitted after a declined confirmation")
	}
}

func TestBridgeSettlementTimeoutIsTimeoutUnknown(t *testing.T) {
	reader := &fakeAllowanceReader{allowance: big.NewInt(5_000_000)}
	signer := &fakeSigner{hashes: []string{"0xswap"}}
	// Provider never leaves pending.
	provider := &fakeProvider{route: bridgeRoute()}

	exec := newBridgeExecutor(t, reader, provider, signer, confirmEverything(), nil)
	final, _ := exec.Execute(context.Background(), bridgeReq(), nil)
	if final.Status != model.BridgeStatusFailed {
		t.Fatalf("status = %q, want failed", final.Status)
	}
	if final.ErrorCategory != "timeout-unknown" {
		t.Errorf("category = %q, want timeout-unknown", final.ErrorCategory)
	}
	if final.DestTxHash != "" {
		t.Errorf("dest hash = %q, must stay empty outside completed", final.DestTxHash)
	}
}

func TestBridgeProviderReportedFailureIsDistinct(t *testing.T) {
	reader := &fakeAllowanceReader{allowance: big.NewInt(5_000_000)}
	signer := &fakeSigner{hashes: []string{"0xswap"}}
	provider := &fakeProvider{
		route:    bridgeRoute(),
		statuses: []model.RouteStatus{{State: model.RouteStateFailed, Reason: "relayer refund"}},
	}

	exec := newBridgeExecutor(t, reader, provider, signer, confirmEverything(), nil)
	final, _ := exec.Execute(context.Background(), bridgeReq(), nil)
	if final.ErrorCategory == "timeout-unknown" {
		t.Error("provider-reported failure must not look like a timeout")
	}
	if final.Error != "relayer refund" {
		t.Errorf("error = %q, want provider reason", final.Error)
	}
}

func TestBridgeJournalRecordsTerminalResult(t *testing.T) {
	journal, err := OpenJournal(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	defer journal.Close()

	reader := &fakeAllowanceReader{allowance: big.NewInt(5_000_000)}
	signer := &fakeSigner{hashes: []string{"0xswap"}}
	provider := &fakeProvider{
		route:    bridgeRoute(),
		statuses: []model.RouteStatus{{State: model.RouteStateCompleted, DestTxHash: "0xdest", ToAmount: "1990000"}},
	}

	exec := newBridgeExecutor(t, reader, provider, signer, confirmEverything(), func(d *BridgeDeps) {
		d.Journal = journal
	})
	if _, err := exec.Execute(context.Background(), bridgeReq(), nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	records, err := journal.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.Kind != "bridge" || rec.Status != string(model.BridgeStatusCompleted) || rec.DestTxHash != "0xdest" {
		t.Errorf("record = %+v", rec)
	}
}

func TestBridgeElapsedIsDisplayOnly(t *testing.T) {
	start := time.Now().Add(-90 * time.Second)
	tx := model.BridgeTransaction{StartTime: start, EstimatedTimeSeconds: 10}
	if got := tx.Elapsed(time.Now()); got < 89*time.Second {
		t.Errorf("elapsed = %v, want ~90s regardless of the estimate", got)
	}
}
