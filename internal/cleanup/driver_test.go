package cleanup

import (
	"context"
	"strings"
	"testing"

	"github.com/dray-io/dray/internal/checkpoint"
	"github.com/dray-io/dray/internal/logpath"
	"github.com/dray-io/dray/internal/objectstore"
	"github.com/dray-io/dray/internal/protocol"
	"github.com/dray-io/dray/internal/snapshot"
)

const dayMillis = 24 * 60 * 60 * 1000

func putCommit(t *testing.T, store *objectstore.MockStore, root string, v int64, modMillis int64) string {
	t.Helper()
	path := logpath.CommitPath(root, v)
	if err := store.Put(context.Background(), path, strings.NewReader("{}"), 2, "application/json"); err != nil {
		t.Fatalf("put commit %d: %v", v, err)
	}
	if err := store.SetModTime(path, modMillis); err != nil {
		t.Fatalf("set mod time: %v", err)
	}
	return path
}

func putClassicCheckpoint(t *testing.T, store *objectstore.MockStore, root string, v int64, modMillis int64) string {
	t.Helper()
	ctx := context.Background()
	w := checkpoint.NewParquetWriter(store)
	path := logpath.CompatClassicCheckpointPath(root, v)
	if err := w.WriteClassicSingleFile(ctx, checkpoint.ActionStream{{Add: &checkpoint.AddFile{Path: "p"}}}, path); err != nil {
		t.Fatalf("write checkpoint %d: %v", v, err)
	}
	if err := store.SetModTime(path, modMillis); err != nil {
		t.Fatalf("set mod time: %v", err)
	}
	return path
}

// Scenario 1 from spec.md §8: a simple table with commits 0..20 and a
// checkpoint at 20, all old enough. Expect commits up to the safety
// threshold to be deleted.
func TestDriver_SimpleExpiry(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMockStore()
	root := "_delta_log"

	for v := int64(0); v <= 19; v++ {
		putCommit(t, store, root, v, 100)
	}
	putClassicCheckpoint(t, store, root, 20, 100)
	putCommit(t, store, root, 20, 100)

	snap := snapshot.Static{
		Meta: snapshot.Metadata{EnableExpiredLogCleanup: true, LogRetentionMillis: dayMillis},
		Provider: checkpoint.Provider{Version: 20, Format: logpath.FormatClassicSingle},
		HasProv:  true,
		Log:      root,
		Staging:  root + "/" + logpath.StagedCommitsDir,
		Sidecar:  root + "/" + logpath.SidecarsDir,
	}

	d := NewDriver(store, checkpoint.NewParquetReader(store), checkpoint.NewParquetWriter(store), FixedClock(100+2*dayMillis), protocol.ClientCapabilities{}, nil)
	out, err := d.Cleanup(ctx, snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Skipped {
		t.Fatalf("expected cleanup to run, got skip: %s", out.SkipReason)
	}
	if out.ArtifactsDeleted == 0 {
		t.Fatal("expected at least one artifact deleted")
	}
	if !out.HasMaxDeletedCommit || out.MaxDeletedCommitVersion != 19 {
		t.Fatalf("expected max deleted commit version 19, got %+v", out)
	}

	if _, err := store.Head(ctx, logpath.CommitPath(root, 19)); err == nil {
		t.Fatal("commit 19 should have been deleted")
	}
	if _, err := store.Head(ctx, logpath.CommitPath(root, 20)); err != nil {
		t.Fatal("commit 20 must survive: it has no later witness")
	}
}

func TestDriver_SkipsWhenDisabled(t *testing.T) {
	store := objectstore.NewMockStore()
	snap := snapshot.Static{Meta: snapshot.Metadata{EnableExpiredLogCleanup: false}}

	d := NewDriver(store, checkpoint.NewParquetReader(store), checkpoint.NewParquetWriter(store), FixedClock(0), protocol.ClientCapabilities{}, nil)
	out, err := d.Cleanup(context.Background(), snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Skipped || out.SkipReason != "disabled" {
		t.Fatalf("expected skip reason 'disabled', got %+v", out)
	}
}

func TestDriver_SkipsWhenNoCheckpoint(t *testing.T) {
	store := objectstore.NewMockStore()
	snap := snapshot.Static{
		Meta:    snapshot.Metadata{EnableExpiredLogCleanup: true, LogRetentionMillis: dayMillis},
		HasProv: false,
	}

	d := NewDriver(store, checkpoint.NewParquetReader(store), checkpoint.NewParquetWriter(store), FixedClock(0), protocol.ClientCapabilities{}, nil)
	out, err := d.Cleanup(context.Background(), snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Skipped || out.SkipReason != "no_checkpoint" {
		t.Fatalf("expected skip reason 'no_checkpoint', got %+v", out)
	}
}

// Scenario 2/3: checkpoint protection interacting with the driver.
// Protection version 20 with no boundary checkpoint and no checksum
// records in range denies the whole run.
func TestDriver_ProtectionGateDenies(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMockStore()
	root := "_delta_log"

	// Commits 0..19 exist, but the table's current checkpoint sits at
	// version 11 (no physical checkpoint object is written for it — it
	// only needs to exist logically so the driver computes H = 10), so
	// only commits 0..10 are ever proposed for deletion. The protected
	// prefix (P=20) is far from exhausted by that proposal, so rule 4's
	// "cleaning the entire prefix" escape clause does not apply, and with
	// no checkpoint object anywhere in the log (rule 5 never anchors) and
	// no checksum records at all (rule 6's veto), the gate must deny.
	for v := int64(0); v <= 19; v++ {
		putCommit(t, store, root, v, 100)
	}

	snap := snapshot.Static{
		Meta:     snapshot.Metadata{EnableExpiredLogCleanup: true, LogRetentionMillis: dayMillis, CheckpointProtectionVersion: 20},
		Provider: checkpoint.Provider{Version: 11, Format: logpath.FormatClassicSingle},
		HasProv:  true,
		Log:      root,
		Staging:  root + "/" + logpath.StagedCommitsDir,
		Sidecar:  root + "/" + logpath.SidecarsDir,
	}

	caps := protocol.NewClientCapabilities(1, 1, nil, nil)
	d := NewDriver(store, checkpoint.NewParquetReader(store), checkpoint.NewParquetWriter(store), FixedClock(100+2*dayMillis), caps, nil)
	out, err := d.Cleanup(ctx, snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Skipped {
		t.Fatal("expected the protected range to deny cleanup")
	}
	if _, err := store.Head(ctx, logpath.CommitPath(root, 0)); err != nil {
		t.Fatal("nothing should have been deleted when the gate denies")
	}
}

// Scenario 4: a v2 table's current checkpoint must get a classic compat
// sibling synthesized before any commit is deleted.
func TestDriver_WritesCompatCheckpointForV2Table(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMockStore()
	root := "_delta_log"

	for v := int64(0); v <= 19; v++ {
		putCommit(t, store, root, v, 100)
	}
	putCommit(t, store, root, 20, 100)

	writer := checkpoint.NewParquetWriter(store)
	v2Path := "_delta_log/00000000000000000020.checkpoint.uuid.parquet"
	if err := writer.WriteV2TopLevel(ctx, checkpoint.ActionStream{
		{Add: &checkpoint.AddFile{Path: "part-1.parquet"}},
	}, v2Path); err != nil {
		t.Fatalf("fixture setup: %v", err)
	}
	if err := store.SetModTime(v2Path, 100); err != nil {
		t.Fatalf("set mod time: %v", err)
	}

	snap := snapshot.Static{
		Meta:     snapshot.Metadata{EnableExpiredLogCleanup: true, LogRetentionMillis: dayMillis, V2CheckpointsEnabled: true},
		Provider: checkpoint.Provider{Version: 20, Format: logpath.FormatV2Top, TopLevelPaths: []string{v2Path}},
		HasProv:  true,
		Log:      root,
		Staging:  root + "/" + logpath.StagedCommitsDir,
		Sidecar:  root + "/" + logpath.SidecarsDir,
	}

	d := NewDriver(store, checkpoint.NewReader(store), writer, FixedClock(100+2*dayMillis), protocol.ClientCapabilities{}, nil)
	out, err := d.Cleanup(ctx, snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.CompatCheckpointWritten || out.CompatVersion != 20 {
		t.Fatalf("expected a compat checkpoint written at version 20, got %+v", out)
	}
	if _, err := store.Head(ctx, logpath.CompatClassicCheckpointPath(root, 20)); err != nil {
		t.Fatalf("compat checkpoint missing: %v", err)
	}
}

// Scenario 6: deleting the backfilled commit at version v must also
// delete its unbackfilled staged shadow at the same version.
func TestDriver_CleansShadowedStagedCommits(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMockStore()
	root := "_delta_log"
	staging := root + "/" + logpath.StagedCommitsDir

	for v := int64(0); v <= 19; v++ {
		putCommit(t, store, root, v, 100)
	}
	putClassicCheckpoint(t, store, root, 20, 100)
	putCommit(t, store, root, 20, 100)

	staged := logpath.StagedCommitPath(root, 10, "abc")
	if err := store.Put(ctx, staged, strings.NewReader("{}"), 2, "application/json"); err != nil {
		t.Fatalf("put staged commit: %v", err)
	}
	aheadStaged := logpath.StagedCommitPath(root, 20, "def")
	if err := store.Put(ctx, aheadStaged, strings.NewReader("{}"), 2, "application/json"); err != nil {
		t.Fatalf("put staged commit: %v", err)
	}

	snap := snapshot.Static{
		Meta:     snapshot.Metadata{EnableExpiredLogCleanup: true, LogRetentionMillis: dayMillis},
		Provider: checkpoint.Provider{Version: 20, Format: logpath.FormatClassicSingle},
		HasProv:  true,
		Log:      root,
		Staging:  staging,
		Sidecar:  root + "/" + logpath.SidecarsDir,
	}

	d := NewDriver(store, checkpoint.NewParquetReader(store), checkpoint.NewParquetWriter(store), FixedClock(100+2*dayMillis), protocol.ClientCapabilities{}, nil)
	out, err := d.Cleanup(ctx, snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.StagedCommitsDeleted != 1 {
		t.Fatalf("expected exactly 1 staged commit cleaned, got %d", out.StagedCommitsDeleted)
	}
	if _, err := store.Head(ctx, staged); err == nil {
		t.Fatal("shadowed staged commit should have been deleted")
	}
	if _, err := store.Head(ctx, aheadStaged); err != nil {
		t.Fatal("staged commit ahead of the deleted range must survive")
	}
}
