// Package quote talks to the route aggregator that prices swaps and bridges
// and tracks cross-chain settlement.
package quote

import (
	"context"
	"time"

	"github.com/Dev72112/xlamaexchange/internal/model"
)

// MaxQuoteAge is how long a fetched route may be reused before the executor
// must re-quote. Aggregator quotes embed market prices that drift quickly.
const MaxQuoteAge = 30 * time.Second

// Request asks for a priced route. FromChainID == ToChainID for a
// same-chain swap.
type Request struct {
	FromChainID     int64
	ToChainID       int64
	FromToken       model.Token
	ToToken         model.Token
	AmountBaseUnits string
	SlippagePct     float64
	Sender          string
	Recipient       string
}

// Provider is the quote/route aggregator surface the executors consume.
// RouteStatus is only meaningful for cross-chain routes; the destination
// chain and its timing are provider-specific, so settlement is always asked
// of the provider rather than chain RPC.
type Provider interface {
	GetRoute(ctx context.Context, req Request) (model.Route, error)
	RouteStatus(ctx context.Context, routeID string) (model.RouteStatus, error)
}
