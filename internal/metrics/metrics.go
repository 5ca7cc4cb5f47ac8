// Package metrics exposes Prometheus metrics for the resolution engine.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RemoteCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolve_remote_calls_total",
			Help: "Total number of warehouse API calls, by store and outcome",
		},
		[]string{"store", "outcome"},
	)

	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolve_cache_lookups_total",
			Help: "Total number of local cache lookups, by outcome",
		},
		[]string{"outcome"},
	)

	ResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolve_resolutions_total",
			Help: "Total number of completed resolutions, by terminal state",
		},
		[]string{"state"},
	)

	SyncRecordsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "resolve_sync_records_created_total",
			Help: "Total number of records inserted by reconciliation runs",
		},
	)

	SyncRecordsUpdatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "resolve_sync_records_updated_total",
			Help: "Total number of records updated by reconciliation runs",
		},
	)

	SyncErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "resolve_sync_errors_total",
			Help: "Total number of per-unit failures during reconciliation runs",
		},
	)
)

// Register registers all metrics with the default registry. Call once at
// process startup.
func Register() {
	prometheus.MustRegister(
		RemoteCallsTotal,
		CacheLookupsTotal,
		ResolutionsTotal,
		SyncRecordsCreatedTotal,
		SyncRecordsUpdatedTotal,
		SyncErrorsTotal,
	)
}
