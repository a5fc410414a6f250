package cleanup

import (
	"context"
	"fmt"

	"github.com/dray-io/dray/internal/checkpoint"
	"github.com/dray-io/dray/internal/logpath"
	"github.com/dray-io/dray/internal/objectstore"
)

// CompatCheckpointer ensures a legacy classic-format checkpoint exists
// before any destructive work runs against a v2-enabled table, so pre-v2
// readers fail with a clean "protocol unsupported" error instead of a
// confusing "file not found" once history is deleted out from under them.
type CompatCheckpointer struct {
	store  objectstore.Store
	reader checkpoint.Reader
	writer checkpoint.Writer
	clock  Clock
}

// NewCompatCheckpointer builds a CompatCheckpointer over the given
// collaborators.
func NewCompatCheckpointer(store objectstore.Store, reader checkpoint.Reader, writer checkpoint.Writer, clock Clock) *CompatCheckpointer {
	if clock == nil {
		clock = SystemClock{}
	}
	return &CompatCheckpointer{store: store, reader: reader, writer: writer, clock: clock}
}

// CompatResult reports what Ensure did, for metrics and idempotence
// checks by the caller.
type CompatResult struct {
	// VersionWritten is the version a new classic checkpoint was written
	// at, or -1 if no write was needed.
	VersionWritten int64
	ElapsedMillis  int64
}

// Ensure runs the CompatCheckpointer algorithm from spec.md §4.6 against
// the table rooted at root, whose current checkpoint is provider.
func (c *CompatCheckpointer) Ensure(ctx context.Context, root string, provider checkpoint.Provider) (CompatResult, error) {
	start := c.clock.NowMillis()

	if provider.IsClassic() {
		return CompatResult{VersionWritten: -1}, nil
	}

	found, err := c.classicCheckpointExistsAtOrBefore(ctx, root, provider.Version)
	if err != nil {
		return CompatResult{}, err
	}
	if found {
		return CompatResult{VersionWritten: -1}, nil
	}

	if len(provider.TopLevelPaths) == 0 {
		return CompatResult{}, fmt.Errorf("%w: v2 checkpoint provider at version %d has no top-level path", ErrInternal, provider.Version)
	}

	actions, err := c.reader.ReadActions(ctx, provider.TopLevelPaths[0])
	if err != nil {
		return CompatResult{}, fmt.Errorf("cleanup: reading v2 checkpoint at version %d: %w", provider.Version, err)
	}

	path := logpath.CompatClassicCheckpointPath(root, provider.Version)
	if err := c.writer.WriteClassicSingleFile(ctx, actions, path); err != nil {
		return CompatResult{}, fmt.Errorf("cleanup: writing compat checkpoint at version %d: %w", provider.Version, err)
	}

	return CompatResult{
		VersionWritten: provider.Version,
		ElapsedMillis:  c.clock.NowMillis() - start,
	}, nil
}

// classicCheckpointExistsAtOrBefore scans root for any non-v2 complete
// checkpoint at a version <= maxVersion. This is what makes Ensure
// idempotent under retry: a second run finds the checkpoint the first run
// wrote and returns without doing anything.
func (c *CompatCheckpointer) classicCheckpointExistsAtOrBefore(ctx context.Context, root string, maxVersion int64) (bool, error) {
	objs, err := c.store.List(ctx, root)
	if err != nil {
		return false, fmt.Errorf("%w: listing %s: %v", ErrStorageUnavailable, root, err)
	}
	for _, o := range objs {
		e := logpath.Classify(o.Key)
		if e.Kind != logpath.KindCheckpoint {
			continue
		}
		if e.Format == logpath.FormatV2Top {
			continue
		}
		if e.Version <= maxVersion {
			return true, nil
		}
	}
	return false, nil
}
