package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CleanupMetrics holds metrics emitted by the log-retention cleanup core.
type CleanupMetrics struct {
	// RunsTotal counts cleanup invocations, labeled by outcome ("completed",
	// "skipped_disabled", "skipped_no_checkpoint",
	// "skipped_nothing_eligible", "skipped_protection", "error").
	RunsTotal *prometheus.CounterVec

	// ArtifactsDeletedTotal counts deleted log directory entries, labeled
	// by kind ("commit", "checkpoint", "checksum").
	ArtifactsDeletedTotal *prometheus.CounterVec

	// SidecarsDeletedTotal counts sidecar part-files reclaimed by
	// SidecarGC.
	SidecarsDeletedTotal prometheus.Counter

	// SidecarsFailedTotal counts per-file sidecar delete failures.
	SidecarsFailedTotal prometheus.Counter

	// CompatCheckpointsWrittenTotal counts classic checkpoints synthesized
	// by CompatCheckpointer ahead of a v2 table's cleanup.
	CompatCheckpointsWrittenTotal prometheus.Counter

	// CompatCheckpointWriteSeconds observes how long compat checkpoint
	// synthesis took.
	CompatCheckpointWriteSeconds prometheus.Histogram
}

// NewCleanupMetrics creates and registers cleanup metrics with the default
// registry.
func NewCleanupMetrics() *CleanupMetrics {
	return &CleanupMetrics{
		RunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dray",
				Subsystem: "cleanup",
				Name:      "runs_total",
				Help:      "Number of cleanup runs, labeled by outcome.",
			},
			[]string{"outcome"},
		),
		ArtifactsDeletedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dray",
				Subsystem: "cleanup",
				Name:      "artifacts_deleted_total",
				Help:      "Number of log directory entries deleted, labeled by kind.",
			},
			[]string{"kind"},
		),
		SidecarsDeletedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "dray",
				Subsystem: "cleanup",
				Name:      "sidecars_deleted_total",
				Help:      "Number of orphaned v2 checkpoint sidecar files reclaimed.",
			},
		),
		SidecarsFailedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "dray",
				Subsystem: "cleanup",
				Name:      "sidecars_failed_total",
				Help:      "Number of sidecar delete attempts that failed.",
			},
		),
		CompatCheckpointsWrittenTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "dray",
				Subsystem: "cleanup",
				Name:      "compat_checkpoints_written_total",
				Help:      "Number of classic-format compatibility checkpoints synthesized ahead of cleanup.",
			},
		),
		CompatCheckpointWriteSeconds: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "dray",
				Subsystem: "cleanup",
				Name:      "compat_checkpoint_write_seconds",
				Help:      "Time to synthesize a compatibility checkpoint.",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}
}

// NewCleanupMetricsWithRegistry creates cleanup metrics registered with a
// custom registry, for use in tests that must avoid colliding with the
// default registry.
func NewCleanupMetricsWithRegistry(reg prometheus.Registerer) *CleanupMetrics {
	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dray",
			Subsystem: "cleanup",
			Name:      "runs_total",
			Help:      "Number of cleanup runs, labeled by outcome.",
		},
		[]string{"outcome"},
	)
	artifactsDeletedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dray",
			Subsystem: "cleanup",
			Name:      "artifacts_deleted_total",
			Help:      "Number of log directory entries deleted, labeled by kind.",
		},
		[]string{"kind"},
	)
	sidecarsDeletedTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dray",
			Subsystem: "cleanup",
			Name:      "sidecars_deleted_total",
			Help:      "Number of orphaned v2 checkpoint sidecar files reclaimed.",
		},
	)
	sidecarsFailedTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dray",
			Subsystem: "cleanup",
			Name:      "sidecars_failed_total",
			Help:      "Number of sidecar delete attempts that failed.",
		},
	)
	compatWrittenTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dray",
			Subsystem: "cleanup",
			Name:      "compat_checkpoints_written_total",
			Help:      "Number of classic-format compatibility checkpoints synthesized ahead of cleanup.",
		},
	)
	compatWriteSeconds := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "dray",
			Subsystem: "cleanup",
			Name:      "compat_checkpoint_write_seconds",
			Help:      "Time to synthesize a compatibility checkpoint.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	reg.MustRegister(runsTotal, artifactsDeletedTotal, sidecarsDeletedTotal, sidecarsFailedTotal, compatWrittenTotal, compatWriteSeconds)

	return &CleanupMetrics{
		RunsTotal:                     runsTotal,
		ArtifactsDeletedTotal:         artifactsDeletedTotal,
		SidecarsDeletedTotal:          sidecarsDeletedTotal,
		SidecarsFailedTotal:           sidecarsFailedTotal,
		CompatCheckpointsWrittenTotal: compatWrittenTotal,
		CompatCheckpointWriteSeconds:  compatWriteSeconds,
	}
}

// RecordRun increments the run counter for the given outcome label.
func (m *CleanupMetrics) RecordRun(outcome string) {
	m.RunsTotal.WithLabelValues(outcome).Inc()
}

// RecordArtifactsDeleted increments the artifact-deleted counter for kind
// by n.
func (m *CleanupMetrics) RecordArtifactsDeleted(kind string, n int) {
	if n <= 0 {
		return
	}
	m.ArtifactsDeletedTotal.WithLabelValues(kind).Add(float64(n))
}
