package cleanup

import (
	"context"
	"testing"

	"github.com/dray-io/dray/internal/checkpoint"
	"github.com/dray-io/dray/internal/logpath"
	"github.com/dray-io/dray/internal/objectstore"
	"github.com/dray-io/dray/internal/protocol"
	"github.com/dray-io/dray/internal/snapshot"
)

func TestBacklogProvider_ExpiredArtifactCount(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMockStore()
	root := "_delta_log"

	for v := int64(0); v <= 19; v++ {
		putCommit(t, store, root, v, 100)
	}
	putClassicCheckpoint(t, store, root, 20, 100)
	putCommit(t, store, root, 20, 100)

	snap := snapshot.Static{
		Meta:     snapshot.Metadata{EnableExpiredLogCleanup: true, LogRetentionMillis: dayMillis},
		Provider: checkpoint.Provider{Version: 20, Format: logpath.FormatClassicSingle},
		HasProv:  true,
		Log:      root,
		Staging:  root + "/" + logpath.StagedCommitsDir,
		Sidecar:  root + "/" + logpath.SidecarsDir,
	}

	clock := FixedClock(100 + 2*dayMillis)
	p := NewBacklogProvider(store, checkpoint.NewParquetReader(store), clock, protocol.ClientCapabilities{}, func(ctx context.Context) (snapshot.Snapshot, error) {
		return snap, nil
	})

	n, err := p.ExpiredArtifactCount(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n == 0 {
		t.Fatal("expected a non-zero expired artifact count")
	}
}

func TestBacklogProvider_OrphanedSidecarCount(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMockStore()
	root := "_delta_log"

	putSidecar(t, store, root, "live.parquet", []byte("live-data"), 100)
	putSidecar(t, store, root, "orphan.parquet", []byte("orphan-data"), 100)

	writer := checkpoint.NewJSONWriter(store)
	v2Path := "_delta_log/00000000000000000020.checkpoint.uuid.json"
	if err := writer.WriteV2TopLevel(ctx, checkpoint.ActionStream{
		{Sidecar: &checkpoint.SidecarRef{Path: "live.parquet", SizeBytes: 9}},
	}, v2Path); err != nil {
		t.Fatalf("fixture setup: %v", err)
	}

	snap := snapshot.Static{
		Meta:     snapshot.Metadata{EnableExpiredLogCleanup: true, LogRetentionMillis: dayMillis, V2CheckpointsEnabled: true},
		Provider: checkpoint.Provider{Version: 20, Format: logpath.FormatV2Top},
		HasProv:  true,
		Log:      root,
		Staging:  root + "/" + logpath.StagedCommitsDir,
		Sidecar:  root + "/" + logpath.SidecarsDir,
	}

	clock := FixedClock(100 + 2*dayMillis)
	p := NewBacklogProvider(store, checkpoint.NewReader(store), clock, protocol.ClientCapabilities{}, func(ctx context.Context) (snapshot.Snapshot, error) {
		return snap, nil
	})

	n, err := p.OrphanedSidecarCount(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 orphaned sidecar, got %d", n)
	}
}

func TestBacklogProvider_OrphanedSidecarCountSkippedWhenV2Disabled(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMockStore()
	root := "_delta_log"

	snap := snapshot.Static{
		Meta: snapshot.Metadata{EnableExpiredLogCleanup: true, LogRetentionMillis: dayMillis, V2CheckpointsEnabled: false},
		Log:  root,
	}

	p := NewBacklogProvider(store, checkpoint.NewParquetReader(store), FixedClock(100), protocol.ClientCapabilities{}, func(ctx context.Context) (snapshot.Snapshot, error) {
		return snap, nil
	})

	n, err := p.OrphanedSidecarCount(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 when v2 checkpoints disabled, got %d", n)
	}
}
