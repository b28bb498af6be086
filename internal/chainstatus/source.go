// Package chainstatus answers "what happened to this transaction" at the
// chain level. It is the source the swap executor polls while confirming.
package chainstatus

import (
	"context"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/Dev72112/xlamaexchange/internal/model"
	"github.com/Dev72112/xlamaexchange/internal/registry"

	xerr "github.com/Dev72112/xlamaexchange/internal/errors"
)

// Source reports the status of a submitted transaction on one chain.
type Source interface {
	TransactionStatus(ctx context.Context, chainID int64, txHash string) (model.TxStatus, error)
}

// RPCSource queries receipts over the chain's JSON-RPC endpoint.
type RPCSource struct {
	rpcOverride string
	dial        func(ctx context.Context, url string) (rpcBackend, error)
}

type rpcBackend interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	Close()
}

func NewRPCSource(rpcOverride string) *RPCSource {
	return &RPCSource{
		rpcOverride: rpcOverride,
		dial: func(ctx context.Context, url string) (rpcBackend, error) {
			return ethclient.DialContext(ctx, url)
		},
	}
}

func (s *RPCSource) TransactionStatus(ctx context.Context, chainID int64, txHash string) (model.TxStatus, error) {
	rpcURL, err := registry.ResolveRPCURL(s.rpcOverride, chainID)
	if err != nil {
		return model.TxStatus{}, xerr.Wrap(xerr.CodeUsage, "resolve rpc url", err)
	}
	client, err := s.dial(ctx, rpcURL)
	if err != nil {
		return model.TxStatus{}, xerr.Wrap(xerr.CodeTransient, "connect rpc", err)
	}
	defer client.Close()

	hash := common.HexToHash(strings.TrimSpace(txHash))
	receipt, err := client.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return model.TxStatus{State: model.TxStatePending}, nil
		}
		return model.TxStatus{}, xerr.Wrap(xerr.CodeTransient, "fetch receipt", err)
	}
	if receipt == nil {
		return model.TxStatus{State: model.TxStatePending}, nil
	}
	if receipt.Status == types.ReceiptStatusSuccessful {
		return model.TxStatus{State: model.TxStateConfirmed}, nil
	}
	return model.TxStatus{State: model.TxStateReverted, Reason: "transaction reverted on-chain"}, nil
}
