package cleanup

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dray-io/dray/internal/checkpoint"
	"github.com/dray-io/dray/internal/logging"
	"github.com/dray-io/dray/internal/logpath"
	"github.com/dray-io/dray/internal/metrics"
	"github.com/dray-io/dray/internal/objectstore"
	"github.com/dray-io/dray/internal/protocol"
	"github.com/dray-io/dray/internal/snapshot"
)

// Outcome reports what a Driver run did and, if it deleted nothing, why
// not. A Skipped outcome is a normal, successful result, not an error.
type Outcome struct {
	Skipped    bool
	SkipReason string

	ArtifactsDeleted        int
	ArtifactsFailed         int
	CheckpointDeleted       bool
	MaxDeletedCommitVersion int64
	HasMaxDeletedCommit     bool

	StagedCommitsDeleted int

	CompatCheckpointWritten bool
	CompatVersion           int64

	SidecarsDeleted        int
	SidecarsFailed         int
	SidecarBytesReclaimed  int64
	SidecarGCRan           bool
}

// Driver orchestrates one cleanup pass over a table snapshot, per
// spec.md §4.8: compute the cutoff, stream expired entries through the
// protection gate, synthesize a compatibility checkpoint before any
// destructive work on a v2 table, delete what's left, then shadow-clean
// staged commits and reclaim orphaned sidecars.
type Driver struct {
	store   objectstore.Store
	reader  checkpoint.Reader
	writer  checkpoint.Writer
	clock   Clock
	caps    protocol.ClientCapabilities
	metrics *metrics.CleanupMetrics
}

// NewDriver builds a Driver over the given collaborators. metrics may be
// nil, in which case no metrics are recorded.
func NewDriver(store objectstore.Store, reader checkpoint.Reader, writer checkpoint.Writer, clock Clock, caps protocol.ClientCapabilities, m *metrics.CleanupMetrics) *Driver {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Driver{store: store, reader: reader, writer: writer, clock: clock, caps: caps, metrics: m}
}

// Plan runs every step of Cleanup except the destructive ones: it reports
// what would be deleted without deleting it and without writing a
// compatibility checkpoint. Useful for operators validating retention
// settings before enabling cleanup on a table.
func (d *Driver) Plan(ctx context.Context, snap snapshot.Snapshot) (Outcome, []LogEntry, error) {
	proposed, meta, _, _, skip, err := d.prepare(ctx, snap)
	if err != nil {
		return Outcome{}, nil, err
	}
	if skip != "" {
		return Outcome{Skipped: true, SkipReason: skip}, nil, nil
	}

	gate, err := d.evaluateGate(ctx, snap, meta, proposed)
	if err != nil {
		return Outcome{}, nil, err
	}
	if !gate.Allowed {
		return Outcome{Skipped: true, SkipReason: gate.Reason}, nil, nil
	}

	return Outcome{}, proposed, nil
}

// Cleanup runs the full algorithm against snap and returns what happened.
// A run whose context carries no correlation ID is tagged with a fresh one
// so its log lines can be traced as a unit even when many tables are
// cleaned up concurrently; an ID already on the context is kept.
func (d *Driver) Cleanup(ctx context.Context, snap snapshot.Snapshot) (Outcome, error) {
	if logging.CorrelationIDFromCtx(ctx) == "" {
		ctx = logging.WithCorrelationIDCtx(ctx, uuid.NewString())
	}
	log := logging.FromCtx(ctx)

	proposed, meta, provider, hasProvider, skip, err := d.prepare(ctx, snap)
	if err != nil {
		d.recordRun("error")
		return Outcome{}, err
	}
	if skip != "" {
		d.recordRun("skipped_" + skip)
		return Outcome{Skipped: true, SkipReason: skip}, nil
	}

	gate, err := d.evaluateGate(ctx, snap, meta, proposed)
	if err != nil {
		d.recordRun("error")
		return Outcome{}, err
	}
	if !gate.Allowed {
		log.Infof("cleanup: protection gate denied", map[string]any{"reason": gate.Reason})
		d.recordRun("skipped_protection")
		return Outcome{Skipped: true, SkipReason: gate.Reason}, nil
	}

	var out Outcome

	if meta.V2CheckpointsEnabled && hasProvider {
		cc := NewCompatCheckpointer(d.store, d.reader, d.writer, d.clock)
		res, err := cc.Ensure(ctx, snap.LogRoot(), provider)
		if err != nil {
			d.recordRun("error")
			return Outcome{}, fmt.Errorf("cleanup: ensuring compat checkpoint: %w", err)
		}
		if res.VersionWritten >= 0 {
			out.CompatCheckpointWritten = true
			out.CompatVersion = res.VersionWritten
			if d.metrics != nil {
				d.metrics.CompatCheckpointsWrittenTotal.Inc()
				d.metrics.CompatCheckpointWriteSeconds.Observe(float64(res.ElapsedMillis) / 1000)
			}
		}
	}

	for _, e := range proposed {
		if err := d.store.Delete(ctx, e.Path); err != nil {
			out.ArtifactsFailed++
			continue
		}
		out.ArtifactsDeleted++
		if e.Kind == logpath.KindCheckpoint {
			out.CheckpointDeleted = true
		}
		if e.Kind == logpath.KindCommit && e.Backfilled {
			if !out.HasMaxDeletedCommit || e.Version > out.MaxDeletedCommitVersion {
				out.MaxDeletedCommitVersion = e.Version
				out.HasMaxDeletedCommit = true
			}
		}
		d.recordArtifact(e.Kind)
	}

	if out.HasMaxDeletedCommit {
		n, err := d.cleanShadowedStagedCommits(ctx, snap.StagingRoot(), out.MaxDeletedCommitVersion)
		if err != nil {
			d.recordRun("error")
			return Outcome{}, err
		}
		out.StagedCommitsDeleted = n
	}

	if out.CheckpointDeleted && meta.V2CheckpointsEnabled {
		gc := NewSidecarGC(d.store, d.reader)
		sres, err := gc.Run(ctx, snap.LogRoot(), snap.SidecarRoot(), d.cutoffMillis(meta))
		if err != nil {
			d.recordRun("error")
			return Outcome{}, err
		}
		out.SidecarGCRan = true
		out.SidecarsDeleted = sres.Deleted
		out.SidecarsFailed = sres.Failed
		out.SidecarBytesReclaimed = sres.BytesReclaimed
		if d.metrics != nil {
			d.metrics.SidecarsDeletedTotal.Add(float64(sres.Deleted))
			d.metrics.SidecarsFailedTotal.Add(float64(sres.Failed))
		}
	}

	d.recordRun("completed")
	return out, nil
}

// prepare runs the non-destructive shared prefix of Plan and Cleanup:
// validating the master switch, computing the cutoff and safety
// threshold, and draining the ExpiryIterator. skip is non-empty when the
// caller should stop without deleting anything; err is non-nil only for
// genuine I/O failures.
func (d *Driver) prepare(ctx context.Context, snap snapshot.Snapshot) (proposed []LogEntry, meta snapshot.Metadata, provider checkpoint.Provider, hasProvider bool, skip string, err error) {
	meta = snap.Metadata()
	if !meta.EnableExpiredLogCleanup {
		return nil, meta, provider, false, "disabled", nil
	}

	provider, hasProvider = snap.CheckpointProvider()
	if !hasProvider {
		return nil, meta, provider, false, "no_checkpoint", nil
	}

	h := provider.Version - 1
	cutoff := d.cutoffMillis(meta)

	lister, err := NewLogLister(ctx, d.store, snap.LogRoot(), 0)
	if err != nil {
		return nil, meta, provider, hasProvider, "", err
	}

	it := NewExpiryIterator(lister, cutoff, h)
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		proposed = append(proposed, e)
	}

	if len(proposed) == 0 {
		return nil, meta, provider, hasProvider, "nothing_eligible", nil
	}

	return proposed, meta, provider, hasProvider, "", nil
}

func (d *Driver) cutoffMillis(meta snapshot.Metadata) int64 {
	return TruncateToUTC(d.clock.NowMillis()-meta.LogRetentionMillis, Day)
}

func (d *Driver) evaluateGate(ctx context.Context, snap snapshot.Snapshot, meta snapshot.Metadata, proposed []LogEntry) (GateResult, error) {
	knobs := RuntimeKnobsFromContext(ctx)
	checksums := ObjectChecksumReader{Store: d.store}
	return EvaluateProtectionGate(ctx, snap.LogRoot(), meta, proposed, d.checkpointExistsAt(snap.LogRoot()), checksums, d.caps, knobs)
}

// checkpointExistsAt returns a CheckpointExistsFunc closed over root that
// checks for a complete checkpoint (any format) at an exact version.
func (d *Driver) checkpointExistsAt(root string) CheckpointExistsFunc {
	return func(ctx context.Context, version int64) (bool, error) {
		objs, err := d.store.List(ctx, root)
		if err != nil {
			return false, fmt.Errorf("%w: listing %s: %v", ErrStorageUnavailable, root, err)
		}
		for _, o := range objs {
			e := logpath.Classify(o.Key)
			if e.Kind == logpath.KindCheckpoint && e.Version == version {
				return true, nil
			}
		}
		return false, nil
	}
}

// cleanShadowedStagedCommits deletes unbackfilled commits under
// stagingRoot whose version is <= maxDeletedCommitVersion: once the
// backfilled commit at that version is gone, its staged shadow copy is
// unreachable junk, per spec.md §9 note (a).
func (d *Driver) cleanShadowedStagedCommits(ctx context.Context, stagingRoot string, maxDeletedCommitVersion int64) (int, error) {
	objs, err := d.store.List(ctx, stagingRoot)
	if err != nil {
		return 0, fmt.Errorf("%w: listing %s: %v", ErrStorageUnavailable, stagingRoot, err)
	}

	var n int
	for _, o := range objs {
		e := logpath.Classify(o.Key)
		if e.Kind != logpath.KindCommit || e.Backfilled {
			continue
		}
		if e.Version > maxDeletedCommitVersion {
			continue
		}
		if err := d.store.Delete(ctx, o.Key); err != nil {
			continue
		}
		n++
	}
	return n, nil
}

func (d *Driver) recordRun(outcome string) {
	if d.metrics != nil {
		d.metrics.RecordRun(outcome)
	}
}

func (d *Driver) recordArtifact(kind logpath.Kind) {
	if d.metrics != nil {
		d.metrics.RecordArtifactsDeleted(kind.String(), 1)
	}
}
