// Command tablectl is an operator CLI over the log-retention cleanup
// core: it owns no business logic of its own, only flag parsing, config
// loading, and wiring collaborators before handing off to
// cleanup.Driver.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dray-io/dray/internal/checkpoint"
	"github.com/dray-io/dray/internal/cleanup"
	"github.com/dray-io/dray/internal/config"
	"github.com/dray-io/dray/internal/logging"
	"github.com/dray-io/dray/internal/logpath"
	"github.com/dray-io/dray/internal/metrics"
	"github.com/dray-io/dray/internal/objectstore/s3"
	"github.com/dray-io/dray/internal/protocol"
	"github.com/dray-io/dray/internal/snapshot"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "vacuum":
		runVacuum(os.Args[2:])
	case "serve":
		runServe(os.Args[2:])
	case "version":
		fmt.Printf("tablectl version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// clientCapabilities builds the protocol.ClientCapabilities this binary
// advertises to the protection gate from configuration, so rule 6
// (internal/cleanup/protection.go) evaluates against what the deployment
// actually supports instead of the zero value.
func clientCapabilities(cfg *config.Config) protocol.ClientCapabilities {
	return protocol.NewClientCapabilities(
		cfg.Protocol.MaxReaderVersion,
		cfg.Protocol.MaxWriterVersion,
		cfg.Protocol.ReaderFeatures,
		cfg.Protocol.WriterFeatures,
	)
}

func printUsage() {
	fmt.Println(`Usage: tablectl <command> [options]

Commands:
  vacuum    Run one log-retention cleanup pass against a table
  serve     Run cleanup on a schedule and expose Prometheus metrics
  version   Print version information

Run 'tablectl <command> --help' for more information on a command.`)
}

func runVacuum(args []string) {
	fs := flag.NewFlagSet("vacuum", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	logRoot := fs.String("log-root", "_delta_log", "Table log directory")
	dryRun := fs.Bool("dry-run", false, "Report what would be deleted without deleting it")

	fs.Usage = func() {
		fmt.Println(`Usage: tablectl vacuum [options]

Run one log-retention cleanup pass against a table.

Options:`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Observability.LogLevel),
		Format: logging.ParseFormat(cfg.Observability.LogFormat),
	})
	ctx := logging.WithLoggerCtx(context.Background(), logger)
	ctx = cleanup.WithRuntimeKnobs(ctx, cleanup.RuntimeKnobs{
		AllowMetadataCleanupCheckpointExistenceCheckDisabled: cfg.Cleanup.DisableCheckpointExistenceShortcut,
		AllowMetadataCleanupWhenAllProtocolsSupported:        cfg.Cleanup.AllowProtocolSupportShortcut,
	})

	store, err := s3.New(ctx, s3.Config{
		Bucket:          cfg.ObjectStore.Bucket,
		Region:          cfg.ObjectStore.Region,
		Endpoint:        cfg.ObjectStore.Endpoint,
		AccessKeyID:     cfg.ObjectStore.AccessKey,
		SecretAccessKey: cfg.ObjectStore.SecretKey,
	})
	if err != nil {
		logger.Errorf("failed to open object store", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	meta := snapshot.Metadata{
		EnableExpiredLogCleanup: true,
		LogRetentionMillis:      cfg.Cleanup.DefaultLogRetentionMillis,
		V2CheckpointsEnabled:    true,
	}
	snap, err := snapshot.Discover(ctx, store, *logRoot, *logRoot+"/"+logpath.StagedCommitsDir, *logRoot+"/"+logpath.SidecarsDir, meta)
	if err != nil {
		logger.Errorf("failed to discover table snapshot", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	m := metrics.NewCleanupMetrics()
	driver := cleanup.NewDriver(store, checkpoint.NewReader(store), checkpoint.NewParquetWriter(store), nil, clientCapabilities(cfg), m)

	if *dryRun {
		outcome, proposed, err := driver.Plan(ctx, snap)
		if err != nil {
			logger.Errorf("plan failed", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		if outcome.Skipped {
			fmt.Printf("skipped: %s\n", outcome.SkipReason)
			return
		}
		fmt.Printf("would delete %d entries\n", len(proposed))
		for _, e := range proposed {
			fmt.Printf("  %s\n", e.Path)
		}
		return
	}

	outcome, err := driver.Cleanup(ctx, snap)
	if err != nil {
		logger.Errorf("cleanup failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	if outcome.Skipped {
		fmt.Printf("skipped: %s\n", outcome.SkipReason)
		return
	}
	fmt.Printf("deleted %d artifacts (%d failed), %d staged commits, %d sidecars reclaimed\n",
		outcome.ArtifactsDeleted, outcome.ArtifactsFailed, outcome.StagedCommitsDeleted, outcome.SidecarsDeleted)
}

// runServe runs cleanup on a recurring interval and exposes both cleanup
// and backlog metrics over HTTP until interrupted, for operators who want
// a standing process instead of cron-driven one-shot vacuum runs.
func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	logRoot := fs.String("log-root", "_delta_log", "Table log directory")
	interval := fs.Duration("interval", time.Hour, "How often to run a cleanup pass")

	fs.Usage = func() {
		fmt.Println(`Usage: tablectl serve [options]

Run cleanup on a schedule and expose Prometheus metrics until interrupted.

Options:`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Observability.LogLevel),
		Format: logging.ParseFormat(cfg.Observability.LogFormat),
	})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithLoggerCtx(ctx, logger)
	ctx = cleanup.WithRuntimeKnobs(ctx, cleanup.RuntimeKnobs{
		AllowMetadataCleanupCheckpointExistenceCheckDisabled: cfg.Cleanup.DisableCheckpointExistenceShortcut,
		AllowMetadataCleanupWhenAllProtocolsSupported:        cfg.Cleanup.AllowProtocolSupportShortcut,
	})

	store, err := s3.New(ctx, s3.Config{
		Bucket:          cfg.ObjectStore.Bucket,
		Region:          cfg.ObjectStore.Region,
		Endpoint:        cfg.ObjectStore.Endpoint,
		AccessKeyID:     cfg.ObjectStore.AccessKey,
		SecretAccessKey: cfg.ObjectStore.SecretKey,
	})
	if err != nil {
		logger.Errorf("failed to open object store", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	meta := snapshot.Metadata{
		EnableExpiredLogCleanup: true,
		LogRetentionMillis:      cfg.Cleanup.DefaultLogRetentionMillis,
		V2CheckpointsEnabled:    true,
	}
	stagingRoot := *logRoot + "/" + logpath.StagedCommitsDir
	sidecarRoot := *logRoot + "/" + logpath.SidecarsDir
	discover := func(ctx context.Context) (snapshot.Snapshot, error) {
		return snapshot.Discover(ctx, store, *logRoot, stagingRoot, sidecarRoot, meta)
	}

	reader := checkpoint.NewReader(store)
	writer := checkpoint.NewParquetWriter(store)
	caps := clientCapabilities(cfg)
	cleanupMetrics := metrics.NewCleanupMetrics()
	backlogMetrics := metrics.NewBacklogMetrics()

	metricsServer := metrics.NewServer(cfg.Observability.MetricsAddr)
	if err := metricsServer.Start(); err != nil {
		logger.Errorf("failed to start metrics server", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer metricsServer.Close()

	backlogProvider := cleanup.NewBacklogProvider(store, reader, nil, caps, discover)
	scanner := metrics.NewBacklogScanner(backlogMetrics, backlogProvider, *interval)
	scanner.Start()
	defer scanner.Stop()

	logger.Infof("tablectl serve started", map[string]any{
		"metrics_addr": metricsServer.Addr(),
		"interval":     interval.String(),
	})

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Infof("tablectl serve shutting down", nil)
			return
		case <-ticker.C:
			snap, err := discover(ctx)
			if err != nil {
				logger.Errorf("failed to discover table snapshot", map[string]any{"error": err.Error()})
				continue
			}
			driver := cleanup.NewDriver(store, reader, writer, nil, caps, cleanupMetrics)
			outcome, err := driver.Cleanup(ctx, snap)
			if err != nil {
				logger.Errorf("cleanup failed", map[string]any{"error": err.Error()})
				continue
			}
			if outcome.Skipped {
				logger.Infof("cleanup skipped", map[string]any{"reason": outcome.SkipReason})
				continue
			}
			logger.Infof("cleanup completed", map[string]any{
				"artifacts_deleted": outcome.ArtifactsDeleted,
				"sidecars_deleted":  outcome.SidecarsDeleted,
			})
		}
	}
}
