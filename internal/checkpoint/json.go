package checkpoint

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/dray-io/dray/internal/objectstore"
)

// jsonScanBufSize bounds a single NDJSON row; a v2 top-level index row
// never inlines file content, so this comfortably covers even a wide
// metaData row with a large schema string.
const jsonScanBufSize = 16 * 1024 * 1024

// JSONReader reads v2 top-level checkpoint indexes stored as newline-
// delimited JSON, the alternate serialization spec.md permits alongside
// parquet.
type JSONReader struct {
	store objectstore.Store
}

// NewJSONReader creates a Reader backed by store.
func NewJSONReader(store objectstore.Store) *JSONReader {
	return &JSONReader{store: store}
}

func (r *JSONReader) ReadActions(ctx context.Context, topLevelPath string) (ActionStream, error) {
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

	var rows ActionStream
	scanner := bufio.NewScanner(bytes.NewReader(decompressed))
	scanner.Buffer(make([]byte, 0, 64*1024), jsonScanBufSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var row ActionRow
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, fmt.Errorf("checkpoint: decoding json row in %s: %w", topLevelPath, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("checkpoint: scanning %s: %w", topLevelPath, err)
	}
	return rows, nil
}

func (r *JSONReader) SidecarRefs(ctx context.Context, topLevelPath string) ([]string, error) {
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

// JSONWriter writes checkpoints as newline-delimited JSON, one action per
// line, mirroring the row shape ParquetWriter emits.
type JSONWriter struct {
	store objectstore.Store
}

// NewJSONWriter creates a Writer backed by store.
func NewJSONWriter(store objectstore.Store) *JSONWriter {
	return &JSONWriter{store: store}
}

func (w *JSONWriter) WriteClassicSingleFile(ctx context.Context, actions ActionStream, path string) error {
	rows := make([]ActionRow, 0, len(actions))
	for _, a := range actions {
		if a.Sidecar != nil {
			continue
		}
		rows = append(rows, a)
	}
	return writeJSONRows(ctx, w.store, rows, path)
}

func (w *JSONWriter) WriteV2TopLevel(ctx context.Context, actions ActionStream, path string) error {
	return writeJSONRows(ctx, w.store, actions, path)
}

func writeJSONRows(ctx context.Context, store objectstore.Store, rows []ActionRow, path string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("checkpoint: encoding row for %s: %w", path, err)
		}
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
