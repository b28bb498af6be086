// Package allowance decides whether a swap or bridge needs an ERC-20
// approval and builds the approval transaction. Nothing here submits
// anything; the signable payload is handed back to the caller.
package allowance

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/Dev72112/xlamaexchange/internal/amount"
	"github.com/Dev72112/xlamaexchange/internal/model"
	"github.com/Dev72112/xlamaexchange/internal/registry"

	xerr "github.com/Dev72112/xlamaexchange/internal/errors"
)

var erc20ABI = mustABI(registry.ERC20MinimalABI)

func mustABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// Reader fetches the current on-chain allowance for (owner, spender).
type Reader interface {
	Allowance(ctx context.Context, chainID int64, token, owner, spender string) (*big.Int, error)
}

// RPCReader reads allowances through eth_call on the chain's RPC endpoint.
type RPCReader struct {
	rpcOverride string
}

func NewRPCReader(rpcOverride string) *RPCReader {
	return &RPCReader{rpcOverride: rpcOverride}
}

func (r *RPCReader) Allowance(ctx context.Context, chainID int64, token, owner, spender string) (*big.Int, error) {
	rpcURL, err := registry.ResolveRPCURL(r.rpcOverride, chainID)
	if err != nil {
		return nil, xerr.Wrap(xerr.CodeUsage, "resolve rpc url", err)
	}
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, xerr.Wrap(xerr.CodeTransient, "connect rpc for allowance check", err)
	}
	defer client.Close()

	tokenAddr := common.HexToAddress(token)
	ownerAddr := common.HexToAddress(owner)
	spenderAddr := common.HexToAddress(spender)
	data, err := erc20ABI.Pack("allowance", ownerAddr, spenderAddr)
	if err != nil {
		return nil, xerr.Wrap(xerr.CodeInternal, "pack allowance call", err)
	}
	raw, err := client.CallContract(ctx, ethereum.CallMsg{From: ownerAddr, To: &tokenAddr, Data: data}, nil)
	if err != nil {
		return nil, xerr.Wrap(xerr.CodeTransient, "read allowance", err)
	}
	out, err := erc20ABI.Unpack("allowance", raw)
	if err != nil || len(out) == 0 {
		return nil, xerr.Wrap(xerr.CodeTransient, "decode allowance", err)
	}
	current, ok := out[0].(*big.Int)
	if !ok {
		return nil, xerr.New(xerr.CodeTransient, "invalid allowance response type")
	}
	return current, nil
}

// Manager answers approval questions for executors.
type Manager struct {
	reader Reader
}

func NewManager(reader Reader) *Manager {
	return &Manager{reader: reader}
}

// NeedsApproval reports whether the current allowance for (owner, spender)
// is strictly less than requiredBaseUnits.
func (m *Manager) NeedsApproval(ctx context.Context, chainID int64, token model.Token, owner, spender, requiredBaseUnits string) (bool, error) {
	required, err := amount.ParseBaseUnits(requiredBaseUnits)
	if err != nil {
		return false, err
	}
	current, err := m.reader.Allowance(ctx, chainID, token.Address, owner, spender)
	if err != nil {
		return false, err
	}
	return current.Cmp(required) < 0, nil
}

// approvalBits is the allowance slot width for standard ERC-20 tokens.
const approvalBits = 256

// BuildApproval constructs the signable approve(spender, amount)
// transaction. It is pure and deterministic: the same request always yields
// an identical payload. Tokens whose decimals could not be resolved
// (Decimals < 0) are opaque; no approval of any type is built for them.
func BuildApproval(chainID int64, spender string, req model.AllowanceRequest) (model.TxPayload, error) {
	if !common.IsHexAddress(req.Token.Address) {
		return model.TxPayload{}, xerr.New(xerr.CodeUsage, "approval requires a valid token address")
	}
	if !common.IsHexAddress(spender) {
		return model.TxPayload{}, xerr.New(xerr.CodeUsage, "approval requires a valid spender address")
	}
	if req.Token.Decimals < 0 {
		return model.TxPayload{}, xerr.New(xerr.CodeUsage, fmt.Sprintf("token %s has unresolved decimals; refusing to build approval", req.Token.Symbol))
	}

	var baseUnits string
	var err error
	switch req.Type {
	case model.ApprovalUnlimited:
		baseUnits, err = amount.MaxUint(approvalBits)
	case model.ApprovalExact:
		baseUnits, err = amount.ToSmallestUnit(req.RequiredAmount, req.Token.Decimals)
	case model.ApprovalCustom:
		if strings.TrimSpace(req.CustomAmount) == "" {
			return model.TxPayload{}, xerr.New(xerr.CodeUsage, "custom approval requires a custom amount")
		}
		baseUnits, err = amount.ToSmallestUnit(req.CustomAmount, req.Token.Decimals)
	default:
		return model.TxPayload{}, xerr.New(xerr.CodeUsage, fmt.Sprintf("unknown approval type %q", req.Type))
	}
	if err != nil {
		return model.TxPayload{}, err
	}

	value, ok := new(big.Int).SetString(baseUnits, 10)
	if !ok {
		return model.TxPayload{}, xerr.New(xerr.CodeInternal, "approval amount is not an integer")
	}
	data, err := erc20ABI.Pack("approve", common.HexToAddress(spender), value)
	if err != nil {
		return model.TxPayload{}, xerr.Wrap(xerr.CodeInternal, "pack approve calldata", err)
	}
	return model.TxPayload{
		ChainID: chainID,
		To:      common.HexToAddress(req.Token.Address).Hex(),
		Data:    "0x" + common.Bytes2Hex(data),
		Value:   "0",
	}, nil
}
