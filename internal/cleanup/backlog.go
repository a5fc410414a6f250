package cleanup

import (
	"context"

	"github.com/dray-io/dray/internal/checkpoint"
	"github.com/dray-io/dray/internal/objectstore"
	"github.com/dray-io/dray/internal/protocol"
	"github.com/dray-io/dray/internal/snapshot"
)

// SnapshotFunc supplies a fresh snapshot on demand, so BacklogProvider
// always scores the table's current state rather than one captured at
// startup.
type SnapshotFunc func(ctx context.Context) (snapshot.Snapshot, error)

// BacklogProvider answers metrics.BacklogStatsProvider by running the
// non-destructive halves of the cleanup algorithm against a table: Plan
// for the expired-artifact count, and SidecarGC.CountOrphans for the
// orphaned-sidecar count. Neither call deletes anything.
type BacklogProvider struct {
	store    objectstore.Store
	reader   checkpoint.Reader
	clock    Clock
	caps     protocol.ClientCapabilities
	snapshot SnapshotFunc
}

// NewBacklogProvider builds a BacklogProvider over the given
// collaborators. clock may be nil, in which case SystemClock is used.
// caps must reflect what this deployment can actually read and write —
// Plan runs the protection gate the same way Cleanup does, so a
// zero-value caps makes rule 6 deny every protected range.
func NewBacklogProvider(store objectstore.Store, reader checkpoint.Reader, clock Clock, caps protocol.ClientCapabilities, snap SnapshotFunc) *BacklogProvider {
	if clock == nil {
		clock = SystemClock{}
	}
	return &BacklogProvider{store: store, reader: reader, clock: clock, caps: caps, snapshot: snap}
}

// ExpiredArtifactCount reports how many log entries Plan would propose
// for deletion on the table's current snapshot.
func (p *BacklogProvider) ExpiredArtifactCount(ctx context.Context) (int, error) {
	snap, err := p.snapshot(ctx)
	if err != nil {
		return 0, err
	}

	driver := NewDriver(p.store, p.reader, nil, p.clock, p.caps, nil)
	_, proposed, err := driver.Plan(ctx, snap)
	if err != nil {
		return 0, err
	}
	return len(proposed), nil
}

// OrphanedSidecarCount reports how many sidecar part-files are currently
// unreferenced by any surviving v2 checkpoint and past the retention
// cutoff.
func (p *BacklogProvider) OrphanedSidecarCount(ctx context.Context) (int, error) {
	snap, err := p.snapshot(ctx)
	if err != nil {
		return 0, err
	}

	meta := snap.Metadata()
	if !meta.V2CheckpointsEnabled {
		return 0, nil
	}

	cutoff := TruncateToUTC(p.clock.NowMillis()-meta.LogRetentionMillis, Day)
	gc := NewSidecarGC(p.store, p.reader)
	return gc.CountOrphans(ctx, snap.LogRoot(), snap.SidecarRoot(), cutoff)
}
