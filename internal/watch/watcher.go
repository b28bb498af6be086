// Package watch runs the limit-order evaluation loop. Triggering is the
// watcher's only job: it never signs transactions, it hands primary
// triggers to an optional execute hook and otherwise just transitions the
// record and notifies.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Dev72112/xlamaexchange/internal/metrics"
	"github.com/Dev72112/xlamaexchange/internal/notify"
	"github.com/Dev72112/xlamaexchange/internal/orders"
	"github.com/Dev72112/xlamaexchange/internal/pricefeed"
)

const defaultInterval = 10 * time.Second

// ExecuteFunc is invoked after a primary-condition trigger when the caller
// opted into auto-execution. It runs outside the evaluation pass; its
// outcome never changes the order record.
type ExecuteFunc func(ctx context.Context, order orders.LimitOrder)

// pairSubscriber is implemented by streaming feeds that must be told which
// pairs to carry. Subscribing an already-known pair is a no-op.
type pairSubscriber interface {
	Subscribe(pricefeed.Pair) error
}

type Watcher struct {
	store    orders.Store
	feed     pricefeed.Feed
	notifier notify.Notifier
	logger   *slog.Logger
	interval time.Duration
	execute  ExecuteFunc
	execs    sync.WaitGroup
	now      func() time.Time
}

type Option func(*Watcher)

func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithAutoExecute installs the hand-off hook for primary triggers.
func WithAutoExecute(fn ExecuteFunc) Option {
	return func(w *Watcher) { w.execute = fn }
}

func New(store orders.Store, feed pricefeed.Feed, notifier notify.Notifier, logger *slog.Logger, opts ...Option) *Watcher {
	w := &Watcher{
		store:    store,
		feed:     feed,
		notifier: notifier,
		logger:   logger,
		interval: defaultInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run evaluates all active orders on a fixed cadence until the context is
// cancelled. Evaluation errors degrade to a skipped cycle; Run only
// returns on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("order watcher started", "interval", w.interval)
	for {
		select {
		case <-ctx.Done():
			w.execs.Wait()
			w.logger.Info("order watcher stopped")
			return ctx.Err()
		case <-ticker.C:
			w.EvaluateAll(ctx)
		}
	}
}

// EvaluateAll runs one evaluation pass over every active order.
func (w *Watcher) EvaluateAll(ctx context.Context) {
	active, err := w.store.ListByStatus(ctx, orders.StatusActive)
	if err != nil {
		w.logger.Warn("listing active orders failed, skipping cycle", "error", err)
		return
	}
	metrics.ActiveOrders.Set(float64(len(active)))

	// A streaming feed only carries pairs it was told about; orders created
	// after startup must be subscribed before their first evaluation.
	if sub, ok := w.feed.(pairSubscriber); ok {
		for _, order := range active {
			pair := pricefeed.Pair{ChainID: order.ChainID, FromToken: order.FromToken, ToToken: order.ToToken}
			if err := sub.Subscribe(pair); err != nil {
				w.logger.Warn("pair subscription failed", "pair", pair.String(), "error", err)
			}
		}
	}

	for _, order := range active {
		w.evaluate(ctx, order)
	}
}

// evaluate applies the fixed precedence: expiration, then stop-loss, then
// take-profit, then the primary condition. The first match fires; an order
// transitions at most once.
func (w *Watcher) evaluate(ctx context.Context, order orders.LimitOrder) {
	now := w.now()

	if order.Expired(now) {
		w.transition(ctx, order, orders.StatusExpired, nil)
		metrics.OrdersEvaluated.WithLabelValues("expired").Inc()
		return
	}

	pair := pricefeed.Pair{ChainID: order.ChainID, FromToken: order.FromToken, ToToken: order.ToToken}
	price, err := w.feed.CurrentRate(ctx, pair)
	if err != nil {
		// Missing or stale price is never a trigger.
		w.logger.Debug("price unavailable, skipping order this cycle",
			"order_id", order.ID, "pair", order.Pair(), "error", err)
		metrics.PriceFetchErrors.WithLabelValues(order.Pair()).Inc()
		metrics.OrdersEvaluated.WithLabelValues("skipped").Inc()
		return
	}

	if reason, ok := matchTrigger(order, price); ok {
		trig := &orders.Trigger{Reason: reason, Price: price, At: now.UTC()}
		if !w.transition(ctx, order, orders.StatusTriggered, trig) {
			return
		}
		metrics.OrdersEvaluated.WithLabelValues("triggered").Inc()
		metrics.OrdersTriggered.WithLabelValues(string(reason)).Inc()
		if reason == orders.ReasonPrimary && w.execute != nil {
			// The hand-off must not hold up the rest of the pass; an
			// execution can poll for minutes.
			w.execs.Add(1)
			go func(order orders.LimitOrder) {
				defer w.execs.Done()
				w.execute(ctx, order)
			}(order)
		}
		return
	}

	metrics.OrdersEvaluated.WithLabelValues("no_trigger").Inc()
}

// matchTrigger returns the first matching trigger leg for price, in
// stop-loss, take-profit, primary order.
func matchTrigger(order orders.LimitOrder, price float64) (orders.TriggerReason, bool) {
	if order.StopLossPrice != nil && price <= *order.StopLossPrice {
		return orders.ReasonStopLoss, true
	}
	if order.TakeProfitPrice != nil && price >= *order.TakeProfitPrice {
		return orders.ReasonTakeProfit, true
	}
	switch order.Condition {
	case orders.ConditionAbove:
		if price >= order.TargetPrice {
			return orders.ReasonPrimary, true
		}
	case orders.ConditionBelow:
		if price <= order.TargetPrice {
			return orders.ReasonPrimary, true
		}
	}
	return "", false
}

func (w *Watcher) transition(ctx context.Context, order orders.LimitOrder, to orders.Status, trig *orders.Trigger) bool {
	err := w.store.Transition(ctx, order.ID, orders.StatusActive, to, trig)
	if err != nil {
		if errors.Is(err, orders.ErrConflict) {
			// Another writer (usually a manual cancel) got there first.
			w.logger.Debug("order transitioned elsewhere", "order_id", order.ID)
		} else {
			w.logger.Warn("order transition failed", "order_id", order.ID, "error", err)
		}
		return false
	}

	ev := notify.Event{OrderID: order.ID, Pair: order.Pair(), Status: to}
	if trig != nil {
		ev.Reason = trig.Reason
		ev.Price = trig.Price
	}
	w.notifier.Notify(ctx, ev)
	return true
}
