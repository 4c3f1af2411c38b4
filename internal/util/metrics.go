package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders placed through checkout",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed checkout attempts",
	}, []string{"reason"})

	OrdersShippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_shipped_total",
		Help: "Total number of orders shipped",
	})

	OrdersDeliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_delivered_total",
		Help: "Total number of orders delivered",
	})

	OrdersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Total number of cancelled orders",
	})

	TransitionsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_rejected_total",
		Help: "Total number of rejected status transitions",
	}, []string{"reason"})

	ShipmentReconcileLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shipment_reconcile_latency_seconds",
		Help:    "Latency of inventory reconciliation at ship time",
		Buckets: prometheus.DefBuckets,
	})

	ShipmentReconcileFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipment_reconcile_failed_total",
		Help: "Total number of failed shipment reconciliations",
	}, []string{"reason"})

	CartsClearedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "carts_cleared_total",
		Help: "Total number of carts cleared after checkout",
	})

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
