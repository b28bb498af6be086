// Package pricefeed supplies current exchange rates for token pairs. An
// unavailable or stale rate is a normal condition the order watcher treats
// as "no trigger this cycle", never as a trigger.
package pricefeed

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Dev72112/xlamaexchange/internal/httpx"
	"github.com/Dev72112/xlamaexchange/internal/model"
	"github.com/Dev72112/xlamaexchange/internal/registry"
)

// Pair identifies the rate being asked for: how much ToToken one FromToken
// buys on the given chain.
type Pair struct {
	ChainID   int64
	FromToken model.Token
	ToToken   model.Token
}

// Symbol is the upstream market identifier and the cache/stream key. Both
// feed backends quote symbol-level market rates, so the same pair on two
// chains intentionally shares one rate; ChainID and token addresses are
// identity for the order, not for the price source.
func (p Pair) Symbol() string {
	return strings.ToUpper(p.FromToken.Symbol + p.ToToken.Symbol)
}

func (p Pair) String() string {
	return fmt.Sprintf("%s/%s@%d", p.FromToken.Symbol, p.ToToken.Symbol, p.ChainID)
}

// Feed returns the current rate for a pair, or an error when no usable
// rate exists right now.
type Feed interface {
	CurrentRate(ctx context.Context, pair Pair) (float64, error)
}

// cacheTTL keeps repeat lookups within one evaluation sweep from hammering
// the spot API.
const cacheTTL = 2 * time.Second

// HTTPFeed fetches spot prices from a ticker endpoint with a short
// read-through cache.
type HTTPFeed struct {
	http    *httpx.Client
	baseURL string
	now     func() time.Time

	mu    sync.RWMutex
	cache map[string]cachedRate
}

type cachedRate struct {
	price   float64
	fetched time.Time
}

func NewHTTPFeed(httpClient *httpx.Client) *HTTPFeed {
	return &HTTPFeed{
		http:    httpClient,
		baseURL: registry.SpotPriceBaseURL,
		now:     time.Now,
		cache:   make(map[string]cachedRate),
	}
}

func (f *HTTPFeed) CurrentRate(ctx context.Context, pair Pair) (float64, error) {
	symbol := pair.Symbol()

	f.mu.RLock()
	cached, ok := f.cache[symbol]
	f.mu.RUnlock()
	if ok && f.now().Sub(cached.fetched) < cacheTTL {
		return cached.price, nil
	}

	vals := url.Values{}
	vals.Set("symbol", symbol)
	var resp struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if _, err := f.http.GetJSON(ctx, f.baseURL+"?"+vals.Encode(), &resp); err != nil {
		return 0, err
	}
	price, err := strconv.ParseFloat(resp.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse spot price for %s: %w", symbol, err)
	}

	f.mu.Lock()
	f.cache[symbol] = cachedRate{price: price, fetched: f.now()}
	f.mu.Unlock()
	return price, nil
}
