package checkpoint

import (
	"bytes"
	"context"
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/dray-io/dray/internal/objectstore"
)

// Reader reads a v2 top-level checkpoint's index: the sidecars it
// references, and (for the compatibility checkpoint writer) the full set
// of actions it carries.
type Reader interface {
	// SidecarRefs returns the sidecar paths, as recorded in the checkpoint
	// at topLevelPath, of every sidecar it references.
	SidecarRefs(ctx context.Context, topLevelPath string) ([]string, error)

	// ReadActions returns every action row in the checkpoint's top-level
	// index (not the sidecars' contents).
	ReadActions(ctx context.Context, topLevelPath string) (ActionStream, error)
}

// ParquetReader reads checkpoint top-level indexes stored as parquet
// against an object store.
type ParquetReader struct {
	store objectstore.Store
}

// NewParquetReader creates a Reader backed by store.
func NewParquetReader(store objectstore.Store) *ParquetReader {
	return &ParquetReader{store: store}
}

func (r *ParquetReader) ReadActions(ctx context.Context, topLevelPath string) (ActionStream, error) {
	key := objectstore.NormalizeKey(topLevelPath)
	rc, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: reading %s: %w", topLevelPath, err)
	}
	defer rc.Close()

	_, raw, err := readAll(rc)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: buffering %s: %w", topLevelPath, err)
	}

	decompressed, err := decompressFrame(raw)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: reading %s: %w", topLevelPath, err)
	}
	buf := bytes.NewReader(decompressed)

	file, err := parquet.OpenFile(buf, int64(len(decompressed)))
	if err != nil {
		return nil, fmt.Errorf("checkpoint: opening %s: %w", topLevelPath, err)
	}

	reader := parquet.NewGenericReader[ActionRow](file)
	defer reader.Close()

	var rows ActionStream
	batch := make([]ActionRow, 256)
	for {
		n, err := reader.Read(batch)
		rows = append(rows, batch[:n]...)
		if err != nil {
			break
		}
	}
	return rows, nil
}

func (r *ParquetReader) SidecarRefs(ctx context.Context, topLevelPath string) ([]string, error) {
	rows, err := r.ReadActions(ctx, topLevelPath)
	if err != nil {
		return nil, err
	}

	var refs []string
	for _, row := range rows {
		if row.Sidecar != nil {
			refs = append(refs, row.Sidecar.Path)
		}
	}
	return refs, nil
}
