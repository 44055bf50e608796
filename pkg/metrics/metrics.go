package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Billing
	PaymentsAllocated  prometheus.Counter
	PaymentsFailed     prometheus.Counter
	AllocationDuration prometheus.Histogram
	AmountSettled      prometheus.Counter

	// Inventory
	StockDrawdowns   *prometheus.CounterVec
	DrawdownFailures prometheus.Counter
	LowStockSupplies prometheus.Gauge

	// Outbox
	OutboxEventsProcessed prometheus.Counter
	OutboxEventsFailed    prometheus.Counter
	OutboxPublishLatency  prometheus.Histogram
}

// New creates and registers all application metrics.
func New(namespace string) *Metrics {
	return &Metrics{
		PaymentsAllocated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_allocated_total",
			Help:      "Total number of committed payment allocations",
		}),
		PaymentsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_failed_total",
			Help:      "Total number of rolled-back payment allocations",
		}),
		AllocationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payment_allocation_duration_seconds",
			Help:      "Duration of the payment allocation unit of work",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		AmountSettled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "amount_settled_total",
			Help:      "Sum of settled payment amounts",
		}),
		StockDrawdowns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_drawdowns_total",
			Help:      "Total number of supply drawdowns",
		}, []string{"kind"}),
		DrawdownFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_drawdown_failures_total",
			Help:      "Total number of swallowed drawdown failures",
		}),
		LowStockSupplies: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "low_stock_supplies",
			Help:      "Supplies at or below their minimum threshold, last alert sweep",
		}),
		OutboxEventsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_processed_total",
			Help:      "Total number of successfully published outbox events",
		}),
		OutboxEventsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_failed_total",
			Help:      "Total number of failed outbox events",
		}),
		OutboxPublishLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outbox_publish_duration_seconds",
			Help:      "Time spent publishing outbox events",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
	}
}
