package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BacklogMetrics holds gauges tracking how much cleanup work is
// outstanding on a table between runs, independent of RunsTotal (which
// counts invocations by outcome).
type BacklogMetrics struct {
	// ExpiredArtifactCount tracks how many log directory entries are
	// currently past the retention cutoff and awaiting the next cleanup
	// pass.
	ExpiredArtifactCount prometheus.Gauge

	// OrphanedSidecarCount tracks how many sidecar part-files are
	// currently unreferenced by any surviving checkpoint and past the
	// retention cutoff, awaiting SidecarGC.
	OrphanedSidecarCount prometheus.Gauge
}

// NewBacklogMetrics creates and registers backlog metrics with the
// default registry.
func NewBacklogMetrics() *BacklogMetrics {
	return &BacklogMetrics{
		ExpiredArtifactCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "dray",
				Subsystem: "cleanup",
				Name:      "expired_artifact_backlog",
				Help:      "Number of log directory entries past the retention cutoff, awaiting cleanup.",
			},
		),
		OrphanedSidecarCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "dray",
				Subsystem: "cleanup",
				Name:      "orphaned_sidecar_backlog",
				Help:      "Number of sidecar part-files unreferenced by any surviving checkpoint, awaiting sidecar GC.",
			},
		),
	}
}

// NewBacklogMetricsWithRegistry creates backlog metrics registered with a
// custom registry, for use in tests that must avoid colliding with the
// default registry.
func NewBacklogMetricsWithRegistry(reg prometheus.Registerer) *BacklogMetrics {
	expired := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dray",
			Subsystem: "cleanup",
			Name:      "expired_artifact_backlog",
			Help:      "Number of log directory entries past the retention cutoff, awaiting cleanup.",
		},
	)
	orphaned := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dray",
			Subsystem: "cleanup",
			Name:      "orphaned_sidecar_backlog",
			Help:      "Number of sidecar part-files unreferenced by any surviving checkpoint, awaiting sidecar GC.",
		},
	)
	reg.MustRegister(expired, orphaned)
	return &BacklogMetrics{ExpiredArtifactCount: expired, OrphanedSidecarCount: orphaned}
}

// RecordExpiredArtifactCount updates the expired artifact backlog gauge.
func (m *BacklogMetrics) RecordExpiredArtifactCount(count int) {
	m.ExpiredArtifactCount.Set(float64(count))
}

// RecordOrphanedSidecarCount updates the orphaned sidecar backlog gauge.
func (m *BacklogMetrics) RecordOrphanedSidecarCount(count int) {
	m.OrphanedSidecarCount.Set(float64(count))
}

// BacklogStatsProvider supplies the counts BacklogScanner polls. A
// cleanup.Driver-backed implementation runs the non-destructive halves of
// its algorithm (Plan, and a sidecar orphan count) against a table.
type BacklogStatsProvider interface {
	ExpiredArtifactCount(ctx context.Context) (int, error)
	OrphanedSidecarCount(ctx context.Context) (int, error)
}

// BacklogScanner periodically polls a BacklogStatsProvider and updates
// BacklogMetrics, following the same Start/Stop/ticker shape as the
// teacher's other background workers.
type BacklogScanner struct {
	metrics  *BacklogMetrics
	provider BacklogStatsProvider
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewBacklogScanner creates a scanner that periodically updates backlog
// metrics every interval.
func NewBacklogScanner(metrics *BacklogMetrics, provider BacklogStatsProvider, interval time.Duration) *BacklogScanner {
	return &BacklogScanner{
		metrics:  metrics,
		provider: provider,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins periodic backlog scanning in a background goroutine.
func (s *BacklogScanner) Start() {
	s.wg.Add(1)
	go s.loop()
}

// Stop halts periodic backlog scanning and waits for the loop to exit.
func (s *BacklogScanner) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *BacklogScanner) loop() {
	defer s.wg.Done()

	s.ScanOnce()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.ScanOnce()
		}
	}
}

// ScanOnce runs a single scan and updates metrics. Exported for tests and
// on-demand scanning.
func (s *BacklogScanner) ScanOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if n, err := s.provider.ExpiredArtifactCount(ctx); err != nil {
		slog.Warn("backlog scan failed", "provider", "expired_artifact_count", "error", err)
	} else {
		s.metrics.RecordExpiredArtifactCount(n)
	}

	if n, err := s.provider.OrphanedSidecarCount(ctx); err != nil {
		slog.Warn("backlog scan failed", "provider", "orphaned_sidecar_count", "error", err)
	} else {
		s.metrics.RecordOrphanedSidecarCount(n)
	}
}
