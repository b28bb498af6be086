package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersEvaluated counts watcher evaluation passes per order outcome.
	OrdersEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xlx_orders_evaluated_total",
			Help: "Total limit order evaluations by outcome",
		},
		[]string{"outcome"},
	)

	// OrdersTriggered counts fired orders per trigger reason.
	OrdersTriggered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xlx_orders_triggered_total",
			Help: "Total limit orders triggered by reason",
		},
		[]string{"reason"},
	)

	// PriceFetchErrors counts price feed failures per pair.
	PriceFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xlx_price_fetch_errors_total",
			Help: "Total price feed fetch failures",
		},
		[]string{"pair"},
	)

	// ExecutorTransitions counts executor step transitions.
	ExecutorTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xlx_executor_transitions_total",
			Help: "Total executor state transitions",
		},
		[]string{"executor", "step"},
	)

	// ExecutorFailures counts terminal executor errors per category.
	ExecutorFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xlx_executor_failures_total",
			Help: "Total executor failures by error category",
		},
		[]string{"executor", "category"},
	)

	// PollAttempts tracks status poll attempts before a terminal answer.
	PollAttempts = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "xlx_poll_attempts",
			Help:    "Status poll attempts until outcome",
			Buckets: []float64{1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"target", "outcome"},
	)

	// ActiveOrders tracks the size of the active order set.
	ActiveOrders = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "xlx_active_orders",
			Help: "Number of active limit orders",
		},
	)
)
