package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhooksReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhooks_received_total",
		Help: "Total number of webhook notifications received",
	}, []string{"type"})

	WebhooksFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhooks_failed_total",
		Help: "Total number of webhook notifications that failed processing",
	}, []string{"reason"})

	WebhooksDuplicateTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webhooks_duplicate_total",
		Help: "Total number of duplicate webhook deliveries ignored",
	})

	OrdersIngestedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_ingested_total",
		Help: "Total number of orders ingested from sale webhooks",
	})

	OrdersFlaggedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_flagged_total",
		Help: "Total number of orders flagged cancelled or refunded",
	}, []string{"flag"})

	DanglingPromoterRefsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dangling_promoter_refs_total",
		Help: "Orders whose promoter_id matched no promoter during aggregation",
	})

	DanglingEventRefsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dangling_event_refs_total",
		Help: "Orders whose event_id matched no event during aggregation",
	})

	RankingRecalcTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ranking_recalc_total",
		Help: "Total number of full ranking recomputations",
	})

	RankingRecalcDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ranking_recalc_duration_seconds",
		Help:    "Duration of full ranking recomputations",
		Buckets: prometheus.DefBuckets,
	})

	MetricsCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "metrics_cache_hits_total",
		Help: "Total number of rollup cache hits",
	})

	MetricsCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "metrics_cache_misses_total",
		Help: "Total number of rollup cache misses",
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
