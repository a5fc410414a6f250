package cleanup

import (
	"context"
	"errors"
	"fmt"

	"github.com/dray-io/dray/internal/checkpoint"
	"github.com/dray-io/dray/internal/logging"
	"github.com/dray-io/dray/internal/logpath"
	"github.com/dray-io/dray/internal/objectstore"
)

// SidecarResult reports what SidecarGC did, for metrics and logging.
type SidecarResult struct {
	Deleted        int
	Failed         int
	BytesReclaimed int64
}

// SidecarGC reclaims orphaned v2 checkpoint sidecar part-files: those no
// longer referenced by any surviving v2 checkpoint's top-level index, per
// spec.md §4.7.
type SidecarGC struct {
	store  objectstore.Store
	reader checkpoint.Reader
}

// NewSidecarGC builds a SidecarGC over the given collaborators.
func NewSidecarGC(store objectstore.Store, reader checkpoint.Reader) *SidecarGC {
	return &SidecarGC{store: store, reader: reader}
}

// Run computes the active sidecar set from every surviving v2 checkpoint
// under logRoot, then deletes any sidecar under sidecarRoot whose
// modification time is older than cutoff and whose bare name is not in
// that set. Run is a no-op (zero-value result) when sidecarRoot has no
// entries — a missing sidecar directory is not an error.
//
// Deletion is per-file and best-effort: a single file's delete failure is
// counted in the result, not returned as an error, so one bad object
// never blocks reclaiming the rest.
func (g *SidecarGC) Run(ctx context.Context, logRoot, sidecarRoot string, cutoff int64) (SidecarResult, error) {
	active, err := g.activeSidecarSet(ctx, logRoot)
	if err != nil {
		return SidecarResult{}, err
	}

	objs, err := g.store.List(ctx, sidecarRoot)
	if err != nil {
		return SidecarResult{}, fmt.Errorf("%w: listing %s: %v", ErrStorageUnavailable, sidecarRoot, err)
	}

	var res SidecarResult
	for _, o := range objs {
		e := logpath.Classify(o.Key)
		if e.Kind != logpath.KindSidecar {
			continue
		}
		if o.LastModified >= cutoff {
			continue
		}
		if _, ok := active[baseName(o.Key)]; ok {
			continue
		}

		if err := g.store.Delete(ctx, o.Key); err != nil {
			res.Failed++
			continue
		}
		res.Deleted++
		res.BytesReclaimed += o.Size
	}

	return res, nil
}

// CountOrphans reports how many sidecars under sidecarRoot are orphaned
// and past cutoff, without deleting anything. It shares activeSidecarSet
// with Run so the two never disagree about what counts as referenced.
func (g *SidecarGC) CountOrphans(ctx context.Context, logRoot, sidecarRoot string, cutoff int64) (int, error) {
	active, err := g.activeSidecarSet(ctx, logRoot)
	if err != nil {
		return 0, err
	}

	objs, err := g.store.List(ctx, sidecarRoot)
	if err != nil {
		return 0, fmt.Errorf("%w: listing %s: %v", ErrStorageUnavailable, sidecarRoot, err)
	}

	var count int
	for _, o := range objs {
		e := logpath.Classify(o.Key)
		if e.Kind != logpath.KindSidecar {
			continue
		}
		if o.LastModified >= cutoff {
			continue
		}
		if _, ok := active[baseName(o.Key)]; ok {
			continue
		}
		count++
	}
	return count, nil
}

// activeSidecarSet unions the bare sidecar file names referenced by every
// v2 top-level checkpoint found under logRoot. Classic-format checkpoints
// reference no sidecars and are skipped. Surviving v2 top-levels are split
// by serialization per spec.md §4.7 step 1: parquet and JSON are decoded
// normally, and anything else is warned about and skipped rather than
// aborting the whole run.
func (g *SidecarGC) activeSidecarSet(ctx context.Context, logRoot string) (map[string]struct{}, error) {
	log := logging.FromCtx(ctx)

	objs, err := g.store.List(ctx, logRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: listing %s: %v", ErrStorageUnavailable, logRoot, err)
	}

	active := make(map[string]struct{})
	for _, o := range objs {
		e := logpath.Classify(o.Key)
		if e.Kind != logpath.KindCheckpoint || e.Format != logpath.FormatV2Top {
			continue
		}

		refs, err := g.reader.SidecarRefs(ctx, o.Key)
		if err != nil {
			if errors.Is(err, checkpoint.ErrUnsupportedSerialization) {
				log.Warnf("cleanup: skipping v2 checkpoint with unrecognized serialization", map[string]any{"path": o.Key})
				continue
			}
			return nil, fmt.Errorf("cleanup: reading sidecar refs from %s: %w", o.Key, err)
		}
		for _, r := range refs {
			active[baseName(r)] = struct{}{}
		}
	}
	return active, nil
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
