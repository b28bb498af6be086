package registry

import (
	"fmt"
	"strings"
)

// Chain describes one supported EVM network.
type Chain struct {
	Name    string
	Slug    string
	ChainID int64
}

var chainBySlug = map[string]Chain{
	"ethereum":  {Name: "Ethereum", Slug: "ethereum", ChainID: 1},
	"mainnet":   {Name: "Ethereum", Slug: "ethereum", ChainID: 1},
	"optimism":  {Name: "Optimism", Slug: "optimism", ChainID: 10},
	"bsc":       {Name: "BSC", Slug: "bsc", ChainID: 56},
	"polygon":   {Name: "Polygon", Slug: "polygon", ChainID: 137},
	"base":      {Name: "Base", Slug: "base", ChainID: 8453},
	"arbitrum":  {Name: "Arbitrum", Slug: "arbitrum", ChainID: 42161},
	"avalanche": {Name: "Avalanche", Slug: "avalanche", ChainID: 43114},
	"linea":     {Name: "Linea", Slug: "linea", ChainID: 59144},
	"scroll":    {Name: "Scroll", Slug: "scroll", ChainID: 534352},
}

var chainByID = func() map[int64]Chain {
	out := make(map[int64]Chain, len(chainBySlug))
	for _, c := range chainBySlug {
		out[c.ChainID] = c
	}
	return out
}()

func ChainBySlug(slug string) (Chain, error) {
	c, ok := chainBySlug[strings.ToLower(strings.TrimSpace(slug))]
	if !ok {
		return Chain{}, fmt.Errorf("unknown chain %q", slug)
	}
	return c, nil
}

func ChainByID(id int64) (Chain, error) {
	c, ok := chainByID[id]
	if !ok {
		return Chain{}, fmt.Errorf("unknown chain id %d", id)
	}
	return c, nil
}

// Canonical default EVM RPC endpoints by chain ID, used whenever a command
// does not pass --rpc-url.
var defaultRPCByChainID = map[int64]string{
	1:      "https://eth.llamarpc.com",
	10:     "https://mainnet.optimism.io",
	56:     "https://bsc-dataseed.binance.org",
	137:    "https://polygon-rpc.com",
	8453:   "https://mainnet.base.org",
	42161:  "https://arb1.arbitrum.io/rpc",
	43114:  "https://api.avax.network/ext/bc/C/rpc",
	59144:  "https://rpc.linea.build",
	534352: "https://rpc.scroll.io",
}

func DefaultRPCURL(chainID int64) (string, bool) {
	value, ok := defaultRPCByChainID[chainID]
	return value, ok
}

func ResolveRPCURL(override string, chainID int64) (string, error) {
	if strings.TrimSpace(override) != "" {
		return strings.TrimSpace(override), nil
	}
	if value, ok := DefaultRPCURL(chainID); ok {
		return value, nil
	}
	return "", fmt.Errorf("no default rpc configured for chain id %d; provide --rpc-url", chainID)
}

// ExplorerTxURL renders a block explorer link for a submitted transaction;
// used in timeout-unknown guidance.
func ExplorerTxURL(chainID int64, txHash string) string {
	base, ok := map[int64]string{
		1:      "https://etherscan.io",
		10:     "https://optimistic.etherscan.io",
		56:     "https://bscscan.com",
		137:    "https://polygonscan.com",
		8453:   "https://basescan.org",
		42161:  "https://arbiscan.io",
		43114:  "https://snowtrace.io",
		59144:  "https://lineascan.build",
		534352: "https://scrollscan.com",
	}[chainID]
	if !ok {
		return ""
	}
	return base + "/tx/" + txHash
}
