package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	OrdersSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_sent_total",
		Help: "Total number of orders sent (stock committed)",
	})

	OrdersFinishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_finished_total",
		Help: "Total number of orders finished",
	})

	OrdersRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_rejected_total",
		Help: "Total number of rejected order operations",
	}, []string{"reason"})

	StockGateFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_gate_failures_total",
		Help: "Total number of operations rejected by the stock availability gate",
	}, []string{"operation"})

	CartMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Total number of shopping cart mutations",
	}, []string{"operation"})

	CartMutationsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_failed_total",
		Help: "Total number of failed shopping cart mutations",
	}, []string{"operation", "reason"})

	TxRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "store_tx_retries_total",
		Help: "Total number of transaction retries after serialization failures",
	})

	TxConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "store_tx_conflicts_total",
		Help: "Total number of transactions abandoned after exhausting retries",
	})

	OrderSendLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_send_latency_seconds",
		Help:    "Latency of the send-order transition including stock decrement",
		Buckets: prometheus.DefBuckets,
	})

	ReportRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_report_requests_total",
		Help: "Total number of order report requests",
	})

	ProductCacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "product_cache_requests_total",
		Help: "Product cache lookups by result",
	}, []string{"result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
