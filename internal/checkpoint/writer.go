package checkpoint

import (
	"bytes"
	"context"
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/dray-io/dray/internal/objectstore"
)

// Writer materializes a set of actions into an on-disk checkpoint file.
type Writer interface {
	// WriteClassicSingleFile writes actions as a single-file classic
	// checkpoint at path. The target file name is unique per version, so
	// a direct write is safe without rename-based atomicity: no other
	// writer can be racing to produce the same path with different
	// content.
	WriteClassicSingleFile(ctx context.Context, actions ActionStream, path string) error

	// WriteV2TopLevel writes actions, sidecar-reference rows included, as
	// a v2 top-level checkpoint index at path.
	WriteV2TopLevel(ctx context.Context, actions ActionStream, path string) error
}

// ParquetWriter writes classic checkpoints as parquet against an object
// store.
type ParquetWriter struct {
	store objectstore.Store
}

// NewParquetWriter creates a Writer backed by store.
func NewParquetWriter(store objectstore.Store) *ParquetWriter {
	return &ParquetWriter{store: store}
}

func (w *ParquetWriter) WriteClassicSingleFile(ctx context.Context, actions ActionStream, path string) error {
	// A classic checkpoint inlines everything; it never carries sidecar
	// pointer rows, since it has no sidecars to point at.
	rows := make([]ActionRow, 0, len(actions))
	for _, a := range actions {
		if a.Sidecar != nil {
			continue
		}
		rows = append(rows, a)
	}

	return writeRows(ctx, w.store, rows, path)
}

func (w *ParquetWriter) WriteV2TopLevel(ctx context.Context, actions ActionStream, path string) error {
	return writeRows(ctx, w.store, actions, path)
}

// writeRows serializes rows as parquet and puts them at path. Split out
// from WriteClassicSingleFile so tests can build v2-shaped fixtures (which
// do carry sidecar rows) without going through the classic writer's
// filtering.
func writeRows(ctx context.Context, store objectstore.Store, rows []ActionRow, path string) error {
	var buf bytes.Buffer
	pw := parquet.NewGenericWriter[ActionRow](&buf)
	if len(rows) > 0 {
		if _, err := pw.Write(rows); err != nil {
			return fmt.Errorf("checkpoint: writing rows for %s: %w", path, err)
		}
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("checkpoint: closing writer for %s: %w", path, err)
	}

	compressed, err := compressFrame(buf.Bytes())
	if err != nil {
		return fmt.Errorf("checkpoint: compressing %s: %w", path, err)
	}

	key := objectstore.NormalizeKey(path)
	if err := store.Put(ctx, key, bytes.NewReader(compressed), int64(len(compressed)), "application/octet-stream"); err != nil {
		return fmt.Errorf("checkpoint: writing %s: %w", path, err)
	}
	return nil
}
