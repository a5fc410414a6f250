package snapshot

import (
	"context"
	"strings"
	"testing"

	"github.com/dray-io/dray/internal/logpath"
	"github.com/dray-io/dray/internal/objectstore"
)

func TestDiscover_FindsLatestCheckpoint(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMockStore()
	root := "_delta_log"

	for _, v := range []int64{0, 1, 2} {
		path := logpath.CommitPath(root, v)
		if err := store.Put(ctx, path, strings.NewReader("{}"), 2, "application/json"); err != nil {
			t.Fatalf("put commit: %v", err)
		}
	}
	ckpt := "_delta_log/00000000000000000002.checkpoint.parquet"
	if err := store.Put(ctx, ckpt, strings.NewReader("x"), 1, "application/octet-stream"); err != nil {
		t.Fatalf("put checkpoint: %v", err)
	}

	snap, err := Discover(ctx, store, root, root+"/"+logpath.StagedCommitsDir, root+"/"+logpath.SidecarsDir, Metadata{EnableExpiredLogCleanup: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	provider, ok := snap.CheckpointProvider()
	if !ok {
		t.Fatal("expected a checkpoint provider")
	}
	if provider.Version != 2 {
		t.Fatalf("expected version 2, got %d", provider.Version)
	}
}

func TestDiscover_NoCheckpoint(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMockStore()
	root := "_delta_log"

	snap, err := Discover(ctx, store, root, root+"/"+logpath.StagedCommitsDir, root+"/"+logpath.SidecarsDir, Metadata{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := snap.CheckpointProvider(); ok {
		t.Fatal("expected no checkpoint provider")
	}
}
