package snapshot

import (
	"context"
	"fmt"

	"github.com/dray-io/dray/internal/checkpoint"
	"github.com/dray-io/dray/internal/logpath"
	"github.com/dray-io/dray/internal/objectstore"
)

// Discover builds a Static snapshot by listing logRoot and finding the
// table's highest-version checkpoint, collecting every top-level path at
// that version; whether all parts of a multipart checkpoint are present is
// not checked. meta, staging,
// and sidecar are supplied by the caller, since they come from table
// configuration this package doesn't own.
func Discover(ctx context.Context, store objectstore.Store, logRoot, stagingRoot, sidecarRoot string, meta Metadata) (Static, error) {
	objs, err := store.List(ctx, logRoot)
	if err != nil {
		return Static{}, fmt.Errorf("snapshot: listing %s: %w", logRoot, err)
	}

	var (
		best     checkpoint.Provider
		hasBest  bool
	)
	for _, o := range objs {
		e := logpath.Classify(o.Key)
		if e.Kind != logpath.KindCheckpoint {
			continue
		}
		switch {
		case !hasBest || e.Version > best.Version:
			best = checkpoint.Provider{Version: e.Version, Format: e.Format, TopLevelPaths: []string{o.Key}}
			hasBest = true
		case e.Version == best.Version:
			best.TopLevelPaths = append(best.TopLevelPaths, o.Key)
		}
	}

	return Static{
		Meta:     meta,
		Provider: best,
		HasProv:  hasBest,
		Log:      logRoot,
		Staging:  stagingRoot,
		Sidecar:  sidecarRoot,
	}, nil
}
