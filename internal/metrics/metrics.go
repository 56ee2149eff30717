// Package metrics registers the Prometheus collectors for Splitbook.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Mutations counts committed mutations by entity and action.
	Mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitbook_mutations_total",
		Help: "Committed ledger mutations by entity type and action.",
	}, []string{"entity", "action"})

	// RequestDuration observes HTTP request latency by route and status.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "splitbook_http_request_duration_seconds",
		Help:    "HTTP request latency by method, route and status code.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
