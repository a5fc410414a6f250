// Package metrics provides Prometheus metrics for observability.
//
// This package exposes metrics for the cleanup core's operations,
// including:
//   - Cleanup run counters by outcome (completed, skipped_*, error)
//   - Artifacts deleted counters broken down by log entry kind
//   - Compatibility checkpoint write counters and latency histogram
//   - Sidecar GC deletion/failure counters
//   - Backlog gauges: expired artifacts and orphaned sidecars outstanding
//     between runs, polled on an interval independent of run counters
//   - Object store operation latency, request, and byte counters
//
// Metrics are exposed via a dedicated HTTP server on /metrics in
// Prometheus format.
//
// Usage:
//
//	// Create and register metrics
//	cleanupMetrics := metrics.NewCleanupMetrics()
//	backlogMetrics := metrics.NewBacklogMetrics()
//	objectStoreMetrics := metrics.NewObjectStoreMetrics()
//
//	// Wire into collaborators
//	driver := cleanup.NewDriver(store, reader, writer, clock, caps, cleanupMetrics)
//	scanner := metrics.NewBacklogScanner(backlogMetrics, backlogProvider, time.Hour)
//	scanner.Start()
//
//	// Start metrics server
//	metricsServer := metrics.NewServer(":9090")
//	metricsServer.Start()
package metrics
