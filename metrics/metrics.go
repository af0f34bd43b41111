package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veritas_validations_total",
			Help: "Total number of validation calls by module and verdict",
		},
		[]string{"module", "verdict"},
	)

	PhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "veritas_phase_duration_seconds",
			Help:    "Time spent in each validation phase",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"phase"},
	)

	RuleEvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veritas_rule_evaluations_total",
			Help: "Total number of cross-module rule evaluations by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	RuleFaultsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "veritas_rule_faults_total",
			Help: "Total number of rule evaluations downgraded to RULE_ERROR",
		},
	)

	GatewayRejectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veritas_gateway_rejects_total",
			Help: "Total number of gateway requests rejected at the perimeter",
		},
		[]string{"reason"},
	)

	ReferenceCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veritas_reference_cache_hits_total",
			Help: "Reference existence cache hits and misses",
		},
		[]string{"result"},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veritas_cache_errors_total",
			Help: "Cache operation errors by backend and operation",
		},
		[]string{"backend", "operation"},
	)
)
