package checkpoint

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// readAll buffers rc fully and returns a ReaderAt view plus the raw bytes
// (its length is the size parquet.OpenFile needs). Checkpoint top-level
// indexes are small relative to the data files they index, so buffering
// them whole avoids the complexity of a range-read ReaderAt for a size
// that never approaches memory pressure.
func readAll(rc io.Reader) (*bytes.Reader, []byte, error) {
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, nil, err
	}
	return bytes.NewReader(data), data, nil
}

// compressFrame wraps checkpoint bytes (parquet or NDJSON) in a zstd frame before they hit the
// object store, the same codec the teacher's compaction path decodes on
// the read side.
func compressFrame(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: building zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

// decompressFrame reverses compressFrame.
func decompressFrame(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: building zstd decoder: %w", err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: decompressing frame: %w", err)
	}
	return out, nil
}
