package pricefeed

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Dev72112/xlamaexchange/internal/httpx"
	"github.com/Dev72112/xlamaexchange/internal/model"
)

func testPair() Pair {
	return Pair{
		ChainID:   1,
		FromToken: model.Token{Symbol: "ETH", Decimals: 18},
		ToToken:   model.Token{Symbol: "USDT", Decimals: 6},
	}
}

func TestHTTPFeedCurrentRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbol"); got != "ETHUSDT" {
			t.Errorf("symbol = %q, want ETHUSDT", got)
		}
		w.Write([]byte(`{"symbol":"ETHUSDT","price":"3421.50000000"}`))
	}))
	defer srv.Close()

	feed := newTestFeed(t, srv.URL)
	price, err := feed.CurrentRate(context.Background(), testPair())
	if err != nil {
		t.Fatalf("CurrentRate: %v", err)
	}
	if price != 3421.5 {
		t.Errorf("price = %v, want 3421.5", price)
	}
}

func TestHTTPFeedCachesWithinTTL(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"symbol":"ETHUSDT","price":"3400"}`))
	}))
	defer srv.Close()

	feed := newTestFeed(t, srv.URL)
	for i := 0; i < 3; i++ {
		if _, err := feed.CurrentRate(context.Background(), testPair()); err != nil {
			t.Fatalf("CurrentRate: %v", err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}
}

func TestHTTPFeedRefetchesAfterTTL(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"symbol":"ETHUSDT","price":"3400"}`))
	}))
	defer srv.Close()

	feed := newTestFeed(t, srv.URL)
	now := time.Now()
	feed.now = func() time.Time { return now }

	if _, err := feed.CurrentRate(context.Background(), testPair()); err != nil {
		t.Fatalf("CurrentRate: %v", err)
	}
	now = now.Add(cacheTTL + time.Second)
	if _, err := feed.CurrentRate(context.Background(), testPair()); err != nil {
		t.Fatalf("CurrentRate: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("upstream calls = %d, want 2", got)
	}
}

func TestHTTPFeedBadPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"ETHUSDT","price":"not-a-number"}`))
	}))
	defer srv.Close()

	feed := newTestFeed(t, srv.URL)
	if _, err := feed.CurrentRate(context.Background(), testPair()); err == nil {
		t.Fatal("expected error for unparseable price")
	}
}

func TestStreamFeedStaleness(t *testing.T) {
	feed := NewStreamFeed(discardLogger())
	now := time.Now()
	feed.now = func() time.Time { return now }

	if _, err := feed.CurrentRate(context.Background(), testPair()); err == nil {
		t.Fatal("expected error before any tick")
	}

	feed.handleMessage([]byte(`{"s":"ETHUSDT","c":"3500.25"}`))
	price, err := feed.CurrentRate(context.Background(), testPair())
	if err != nil {
		t.Fatalf("CurrentRate after tick: %v", err)
	}
	if price != 3500.25 {
		t.Errorf("price = %v, want 3500.25", price)
	}

	now = now.Add(staleAfter + time.Second)
	if _, err := feed.CurrentRate(context.Background(), testPair()); err == nil {
		t.Fatal("expected stale error after cutoff")
	}
}

func TestStreamFeedIgnoresMalformedTicks(t *testing.T) {
	feed := NewStreamFeed(discardLogger())
	feed.handleMessage([]byte(`not json`))
	feed.handleMessage([]byte(`{"s":"","c":"1"}`))
	feed.handleMessage([]byte(`{"s":"ETHUSDT","c":"oops"}`))
	if _, err := feed.CurrentRate(context.Background(), testPair()); err == nil {
		t.Fatal("malformed ticks must not populate the rate table")
	}
}

func newTestFeed(t *testing.T, baseURL string) *HTTPFeed {
	t.Helper()
	feed := NewHTTPFeed(httpx.New(5*time.Second, 1))
	feed.baseURL = baseURL
	return feed
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
