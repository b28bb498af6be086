// Package notify delivers order trigger and expiry events. Delivery is
// fire-and-forget: a failed notification is logged and dropped, it never
// feeds back into order state.
package notify

import (
	"context"
	"log/slog"

	"github.com/Dev72112/xlamaexchange/internal/orders"
)

// Event describes one order transition worth telling the user about.
type Event struct {
	OrderID string
	Pair    string
	Status  orders.Status
	Reason  orders.TriggerReason
	Price   float64
}

type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// LogNotifier writes events to the structured log. It is the default sink
// when no external channel is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, ev Event) {
	n.logger.Info("order event",
		"order_id", ev.OrderID,
		"pair", ev.Pair,
		"status", ev.Status,
		"reason", ev.Reason,
		"price", ev.Price,
	)
}

// Multi fans one event out to several sinks.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event) {
	for _, n := range m {
		n.Notify(ctx, ev)
	}
}
