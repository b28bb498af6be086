package wallet

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/Dev72112/xlamaexchange/internal/model"
	"github.com/Dev72112/xlamaexchange/internal/registry"

	xerr "github.com/Dev72112/xlamaexchange/internal/errors"
)

const (
	EnvPrivateKey     = "XLX_PRIVATE_KEY"
	EnvPrivateKeyFile = "XLX_PRIVATE_KEY_FILE"
)

// LocalSigner signs with an in-process private key and broadcasts through
// the chain's RPC endpoint. It can never decline a request; the typed
// user-rejection path exists for interactive signers in front of it.
type LocalSigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	rpcURL     string // optional override; default resolved per chain
}

func NewLocalSignerFromEnv() (*LocalSigner, error) {
	raw := strings.TrimSpace(os.Getenv(EnvPrivateKey))
	if raw == "" {
		if path := strings.TrimSpace(os.Getenv(EnvPrivateKeyFile)); path != "" {
			buf, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read private key file: %w", err)
			}
			raw = strings.TrimSpace(string(buf))
		}
	}
	if raw == "" {
		return nil, fmt.Errorf("missing signing key: set %s or %s", EnvPrivateKey, EnvPrivateKeyFile)
	}
	return NewLocalSigner(raw, "")
}

func NewLocalSigner(privateKeyHex, rpcURL string) (*LocalSigner, error) {
	clean := strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	if clean == "" {
		return nil, fmt.Errorf("empty private key")
	}
	pk, err := crypto.HexToECDSA(clean)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	pub, ok := pk.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("invalid ECDSA public key")
	}
	return &LocalSigner{
		privateKey: pk,
		address:    crypto.PubkeyToAddress(*pub),
		rpcURL:     strings.TrimSpace(rpcURL),
	}, nil
}

func (s *LocalSigner) Address() string {
	return s.address.Hex()
}

func (s *LocalSigner) SendTransaction(ctx context.Context, payload model.TxPayload) (string, error) {
	rpcURL, err := registry.ResolveRPCURL(s.rpcURL, payload.ChainID)
	if err != nil {
		return "", xerr.Wrap(xerr.CodeUsage, "resolve rpc url", err)
	}
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return "", xerr.Wrap(xerr.CodeTransient, "connect rpc", err)
	}
	defer client.Close()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return "", xerr.Wrap(xerr.CodeTransient, "read chain id", err)
	}
	if chainID.Int64() != payload.ChainID {
		return "", xerr.New(xerr.CodeUsage, fmt.Sprintf("rpc chain id %d does not match payload chain id %d", chainID.Int64(), payload.ChainID))
	}
	if !common.IsHexAddress(payload.To) {
		return "", xerr.New(xerr.CodeUsage, "transaction target must be a valid address")
	}
	target := common.HexToAddress(payload.To)
	data, err := decodeHex(payload.Data)
	if err != nil {
		return "", xerr.Wrap(xerr.CodeUsage, "decode calldata", err)
	}
	value, ok := new(big.Int).SetString(strings.TrimSpace(payload.Value), 10)
	if !ok {
		return "", xerr.New(xerr.CodeUsage, "invalid transaction value")
	}

	msg := ethereum.CallMsg{From: s.address, To: &target, Value: value, Data: data}
	gasLimit, err := client.EstimateGas(ctx, msg)
	if err != nil {
		return "", xerr.Wrap(xerr.CodeTransient, "estimate gas", err)
	}
	gasLimit = uint64(float64(gasLimit) * 1.2)

	tipCap, err := client.SuggestGasTipCap(ctx)
	if err != nil {
		tipCap = big.NewInt(2_000_000_000) // 2 gwei fallback
	}
	header, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		return "", xerr.Wrap(xerr.CodeTransient, "fetch latest header", err)
	}
	baseFee := header.BaseFee
	if baseFee == nil {
		baseFee = big.NewInt(1_000_000_000)
	}
	feeCap := new(big.Int).Mul(baseFee, big.NewInt(2))
	feeCap.Add(feeCap, tipCap)

	nonce, err := client.PendingNonceAt(ctx, s.address)
	if err != nil {
		return "", xerr.Wrap(xerr.CodeTransient, "fetch nonce", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        &target,
		Value:     value,
		Data:      data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), s.privateKey)
	if err != nil {
		return "", xerr.Wrap(xerr.CodeInternal, "sign transaction", err)
	}
	if err := client.SendTransaction(ctx, signed); err != nil {
		return "", xerr.Wrap(xerr.CodeTransient, "broadcast transaction", err)
	}
	return signed.Hash().Hex(), nil
}

func decodeHex(v string) ([]byte, error) {
	clean := strings.TrimSpace(v)
	clean = strings.TrimPrefix(clean, "0x")
	if clean == "" {
		return []byte{}, nil
	}
	if len(clean)%2 != 0 {
		clean = "0" + clean
	}
	buf, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return buf, nil
}
