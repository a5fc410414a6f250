package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dray-io/dray/internal/objectstore"
)

// ErrUnsupportedSerialization is returned by DispatchingReader for a v2
// top-level checkpoint whose path suffix is neither .parquet nor .json.
// spec.md §4.7 step 1 calls this bucket "other-warn": callers should log
// and skip rather than treat it as a fatal decode error.
var ErrUnsupportedSerialization = errors.New("checkpoint: unsupported checkpoint serialization")

// DispatchingReader selects the parquet or JSON decoder for a v2
// top-level checkpoint based on its path suffix, so callers holding a
// mix of surviving checkpoints never need to know a given path's
// serialization ahead of time.
type DispatchingReader struct {
	parquet *ParquetReader
	json    *JSONReader
}

// NewReader creates a Reader backed by store that dispatches by path
// suffix between parquet and JSON serializations.
func NewReader(store objectstore.Store) *DispatchingReader {
	return &DispatchingReader{parquet: NewParquetReader(store), json: NewJSONReader(store)}
}

func (r *DispatchingReader) ReadActions(ctx context.Context, topLevelPath string) (ActionStream, error) {
	switch {
	case strings.HasSuffix(topLevelPath, ".parquet"):
		return r.parquet.ReadActions(ctx, topLevelPath)
	case strings.HasSuffix(topLevelPath, ".json"):
		return r.json.ReadActions(ctx, topLevelPath)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSerialization, topLevelPath)
	}
}

func (r *DispatchingReader) SidecarRefs(ctx context.Context, topLevelPath string) ([]string, error) {
	switch {
	case strings.HasSuffix(topLevelPath, ".parquet"):
		return r.parquet.SidecarRefs(ctx, topLevelPath)
	case strings.HasSuffix(topLevelPath, ".json"):
		return r.json.SidecarRefs(ctx, topLevelPath)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSerialization, topLevelPath)
	}
}
