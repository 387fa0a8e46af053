package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records login attempts by result (success|invalid|unverified|error).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salonhub_auth_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"result"},
	)

	// CachedPools tracks how many schema connection pools are currently open.
	CachedPools = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "salonhub_cached_pools",
			Help: "Number of schema connection pools held by the registry",
		},
	)

	// PoolEvictions counts pools closed by LRU eviction or an explicit drop.
	PoolEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "salonhub_pool_evictions_total",
			Help: "Schema connection pools evicted from the registry",
		},
	)

	// SchemaRepairFailures counts failed structural repair steps by schema kind.
	SchemaRepairFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salonhub_schema_repair_failures_total",
			Help: "Schema repair steps that failed",
		},
		[]string{"kind"},
	)

	// DirectoryReconciliations counts fallback scans by outcome (repaired|missing|ambiguous).
	DirectoryReconciliations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salonhub_directory_reconciliations_total",
			Help: "Central directory reconciliation attempts",
		},
		[]string{"result"},
	)

	// TenantsProvisioned counts provisioning runs by outcome (ready|failed).
	TenantsProvisioned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salonhub_tenants_provisioned_total",
			Help: "Tenant provisioning runs",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies. Scope is "tenant" for
	// requests that passed the tenant guard and "public" otherwise.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "salonhub_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status", "scope"},
	)

	// RecoveredPanics counts handler panics turned into 500 responses.
	RecoveredPanics = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "salonhub_recovered_panics_total",
			Help: "Handler panics recovered by the HTTP middleware",
		},
	)
)
