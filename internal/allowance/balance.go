package allowance

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/Dev72112/xlamaexchange/internal/registry"

	xerr "github.com/Dev72112/xlamaexchange/internal/errors"
)

// Balance returns the owner's token balance in base units. An empty token
// address means the chain's native asset.
func (r *RPCReader) Balance(ctx context.Context, chainID int64, token, owner string) (*big.Int, error) {
	rpcURL, err := registry.ResolveRPCURL(r.rpcOverride, chainID)
	if err != nil {
		return nil, xerr.Wrap(xerr.CodeUsage, "resolve rpc url", err)
	}
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, xerr.Wrap(xerr.CodeTransient, "connect rpc for balance check", err)
	}
	defer client.Close()

	ownerAddr := common.HexToAddress(owner)
	if token == "" {
		balance, err := client.BalanceAt(ctx, ownerAddr, nil)
		if err != nil {
			return nil, xerr.Wrap(xerr.CodeTransient, "read native balance", err)
		}
		return balance, nil
	}

	tokenAddr := common.HexToAddress(token)
	data, err := erc20ABI.Pack("balanceOf", ownerAddr)
	if err != nil {
		return nil, xerr.Wrap(xerr.CodeInternal, "pack balanceOf call", err)
	}
	raw, err := client.CallContract(ctx, ethereum.CallMsg{From: ownerAddr, To: &tokenAddr, Data: data}, nil)
	if err != nil {
		return nil, xerr.Wrap(xerr.CodeTransient, "read token balance", err)
	}
	out, err := erc20ABI.Unpack("balanceOf", raw)
	if err != nil || len(out) == 0 {
		return nil, xerr.Wrap(xerr.CodeTransient, "decode token balance", err)
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, xerr.New(xerr.CodeTransient, "invalid balance response type")
	}
	return balance, nil
}
