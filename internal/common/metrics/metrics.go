// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecordsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workspace_records_classified_total",
			Help: "Total number of raw records classified, by resulting kind",
		},
		[]string{"kind"},
	)

	MutationsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workspace_mutations_total",
			Help: "Total number of optimistic mutations, by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "workspace_backend_request_duration_seconds",
			Help: "Duration of agency backend requests in seconds",
		},
		[]string{"operation"},
	)

	SnapshotCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workspace_snapshot_cache_ops_total",
			Help: "Snapshot cache operations, by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	OverdueFollowUps = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "workspace_overdue_followups",
			Help: "Number of overdue follow-ups at last refresh",
		},
	)

	UnsyncedRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "workspace_unsynced_records",
			Help: "Number of records whose optimistic state diverged from the backend",
		},
	)
)
