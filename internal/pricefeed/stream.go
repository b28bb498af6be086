package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	streamURL = "wss://stream.binance.com:9443/ws"

	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
	backoffFactor  = 2

	pingInterval = 30 * time.Second
	pongTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second

	// staleAfter bounds how long a last-seen tick stays usable once the
	// stream goes quiet.
	staleAfter = 15 * time.Second
)

// StreamFeed keeps a table of last-seen rates from a ticker websocket.
// CurrentRate answers from the table without blocking on the network, and
// refuses once a rate ages past the staleness cutoff.
type StreamFeed struct {
	url    string
	logger *slog.Logger
	now    func() time.Time

	connMu sync.Mutex
	conn   *websocket.Conn

	mu         sync.RWMutex
	subscribed map[string]bool
	rates      map[string]cachedRate

	done chan struct{}
}

func NewStreamFeed(logger *slog.Logger) *StreamFeed {
	return &StreamFeed{
		url:        streamURL,
		logger:     logger,
		now:        time.Now,
		subscribed: make(map[string]bool),
		rates:      make(map[string]cachedRate),
		done:       make(chan struct{}),
	}
}

// Subscribe registers a pair before or after the stream is running. New
// subscriptions on a live connection are sent immediately.
func (s *StreamFeed) Subscribe(pair Pair) error {
	symbol := pair.Symbol()

	s.mu.Lock()
	already := s.subscribed[symbol]
	s.subscribed[symbol] = true
	s.mu.Unlock()
	if already {
		return nil
	}

	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.sendSubscribe([]string{symbol})
}

func (s *StreamFeed) CurrentRate(_ context.Context, pair Pair) (float64, error) {
	symbol := pair.Symbol()

	s.mu.RLock()
	last, ok := s.rates[symbol]
	s.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("no rate yet for %s", symbol)
	}
	if s.now().Sub(last.fetched) > staleAfter {
		return 0, fmt.Errorf("rate for %s is stale", symbol)
	}
	return last.price, nil
}

// Run connects and reads until the context is cancelled, reconnecting with
// exponential backoff after any failure.
func (s *StreamFeed) Run(ctx context.Context) error {
	backoff := initialBackoff
	for {
		if err := s.connect(ctx); err != nil {
			s.logger.Warn("price stream connect failed", "error", err, "retry_in", backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*backoffFactor, maxBackoff)
			continue
		}
		backoff = initialBackoff

		err := s.readLoop(ctx)
		s.closeConn()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn("price stream disconnected", "error", err)
	}
}

func (s *StreamFeed) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(s.now().Add(pingInterval + pongTimeout))
	})

	s.connMu.Lock()
	s.conn = conn
	s.mu.RLock()
	symbols := make([]string, 0, len(s.subscribed))
	for sym := range s.subscribed {
		symbols = append(symbols, sym)
	}
	s.mu.RUnlock()
	var subErr error
	if len(symbols) > 0 {
		subErr = s.sendSubscribe(symbols)
	}
	s.connMu.Unlock()
	if subErr != nil {
		s.closeConn()
		return subErr
	}
	return nil
}

func (s *StreamFeed) sendSubscribe(symbols []string) error {
	params := make([]string, len(symbols))
	for i, sym := range symbols {
		params[i] = strings.ToLower(sym) + "@ticker"
	}
	msg := map[string]any{
		"method": "SUBSCRIBE",
		"params": params,
		"id":     s.now().UnixNano(),
	}
	if err := s.conn.SetWriteDeadline(s.now().Add(writeTimeout)); err != nil {
		return err
	}
	return s.conn.WriteJSON(msg)
}

func (s *StreamFeed) readLoop(ctx context.Context) error {
	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	errCh := make(chan error, 1)
	go func() {
		for {
			_, raw, err := s.conn.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			s.handleMessage(raw)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-pingTicker.C:
			s.connMu.Lock()
			err := s.conn.SetWriteDeadline(s.now().Add(writeTimeout))
			if err == nil {
				err = s.conn.WriteMessage(websocket.PingMessage, nil)
			}
			s.connMu.Unlock()
			if err != nil {
				return err
			}
		}
	}
}

func (s *StreamFeed) handleMessage(raw []byte) {
	var tick struct {
		Symbol string `json:"s"`
		Last   string `json:"c"`
	}
	if err := json.Unmarshal(raw, &tick); err != nil || tick.Symbol == "" || tick.Last == "" {
		return
	}
	price, err := strconv.ParseFloat(tick.Last, 64)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.rates[tick.Symbol] = cachedRate{price: price, fetched: s.now()}
	s.mu.Unlock()
}

func (s *StreamFeed) closeConn() {
	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()
}
