package chainstatus

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Dev72112/xlamaexchange/internal/model"
)

type fakeBackend struct {
	receipt *types.Receipt
	err     error
	closed  bool
}

func (f *fakeBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return f.receipt, f.err
}

func (f *fakeBackend) Close() { f.closed = true }

func sourceWith(backend *fakeBackend) *RPCSource {
	return &RPCSource{
		rpcOverride: "http://localhost:8545",
		dial: func(ctx context.Context, url string) (rpcBackend, error) {
			return backend, nil
		},
	}
}

func TestTransactionStatusPendingWhenNotFound(t *testing.T) {
	backend := &fakeBackend{err: ethereum.NotFound}
	status, err := sourceWith(backend).TransactionStatus(context.Background(), 1, "0xabc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.State != model.TxStatePending {
		t.Fatalf("expected pending, got %s", status.State)
	}
	if !backend.closed {
		t.Fatal("backend must be closed")
	}
}

func TestTransactionStatusConfirmed(t *testing.T) {
	backend := &fakeBackend{receipt: &types.Receipt{Status: types.ReceiptStatusSuccessful}}
	status, err := sourceWith(backend).TransactionStatus(context.Background(), 1, "0xabc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.State != model.TxStateConfirmed {
		t.Fatalf("expected confirmed, got %s", status.State)
	}
}

func TestTransactionStatusReverted(t *testing.T) {
	backend := &fakeBackend{receipt: &types.Receipt{Status: types.ReceiptStatusFailed}}
	status, err := sourceWith(backend).TransactionStatus(context.Background(), 1, "0xabc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.State != model.TxStateReverted {
		t.Fatalf("expected reverted, got %s", status.State)
	}
	if status.Reason == "" {
		t.Fatal("reverted status carries a reason")
	}
}
