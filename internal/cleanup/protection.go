package cleanup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dray-io/dray/internal/logpath"
	"github.com/dray-io/dray/internal/objectstore"
	"github.com/dray-io/dray/internal/protocol"
	"github.com/dray-io/dray/internal/snapshot"
)

// GateResult is the outcome of ProtectionGate's evaluation, with a
// human-readable reason suitable for the informational log line a denial
// produces.
type GateResult struct {
	Allowed bool
	Reason  string
}

// ChecksumRecord is the on-disk shape of a checksum record: the protocol
// descriptor declared by the commit it accompanies. A record that decodes
// but carries no Protocol field is "protocol-less" and is treated
// identically to a missing checksum by the gate.
type ChecksumRecord struct {
	Protocol *protocol.Descriptor `json:"protocol,omitempty"`
}

// ChecksumReader resolves a checksum record's protocol descriptor.
// ok=false covers both "no checksum at this path" and "checksum present
// but carries no protocol descriptor" — both are vetoes to the gate, so
// callers never need to distinguish them.
type ChecksumReader interface {
	Read(ctx context.Context, path string) (desc protocol.Descriptor, ok bool, err error)
}

// ObjectChecksumReader reads checksum records as JSON objects from an
// object store.
type ObjectChecksumReader struct {
	Store objectstore.Store
}

func (r ObjectChecksumReader) Read(ctx context.Context, path string) (protocol.Descriptor, bool, error) {
	rc, err := r.Store.Get(ctx, objectstore.NormalizeKey(path))
	if err != nil {
		if errors.Is(err, objectstore.ErrNotFound) {
			return protocol.Descriptor{}, false, nil
		}
		return protocol.Descriptor{}, false, fmt.Errorf("cleanup: reading checksum %s: %w", path, err)
	}
	defer rc.Close()

	var rec ChecksumRecord
	// A malformed checksum record is an invariant violation detected
	// during scan, not a fatal I/O error: per spec.md §7 it is treated as
	// a veto, never surfaced as an exception.
	if err := json.NewDecoder(rc).Decode(&rec); err != nil {
		return protocol.Descriptor{}, false, nil
	}
	if rec.Protocol == nil {
		return protocol.Descriptor{}, false, nil
	}
	return *rec.Protocol, true, nil
}

// CheckpointExistsFunc reports whether a complete checkpoint (of any
// format) exists at version v.
type CheckpointExistsFunc func(ctx context.Context, version int64) (bool, error)

// EvaluateProtectionGate decides whether proposed (the drained
// ExpiryIterator output) may be deleted without violating the
// checkpoint-protection invariant in spec.md §3.
func EvaluateProtectionGate(
	ctx context.Context,
	root string,
	meta snapshot.Metadata,
	proposed []LogEntry,
	checkpointExistsAt CheckpointExistsFunc,
	checksums ChecksumReader,
	caps protocol.ClientCapabilities,
	knobs RuntimeKnobs,
) (GateResult, error) {
	p := meta.CheckpointProtectionVersion
	if p <= 0 {
		return GateResult{Allowed: true, Reason: "checkpoint protection disabled"}, nil
	}

	rLo, rHi, haveR := scanProtectedCommitRange(proposed, p)
	if !haveR {
		return GateResult{Allowed: true, Reason: "no commits inside the protected prefix are proposed for deletion"}, nil
	}

	if rHi >= p-1 {
		return GateResult{Allowed: true, Reason: "cleanup covers the entire protected prefix"}, nil
	}

	if !knobs.AllowMetadataCleanupCheckpointExistenceCheckDisabled {
		exists, err := checkpointExistsAt(ctx, rHi+1)
		if err != nil {
			return GateResult{}, err
		}
		if exists {
			return GateResult{Allowed: true, Reason: fmt.Sprintf("a complete checkpoint already anchors the boundary at version %d", rHi+1)}, nil
		}
	}

	if !knobs.AllowMetadataCleanupWhenAllProtocolsSupported {
		return GateResult{Allowed: false, Reason: "protocol-support shortcut disabled by runtime configuration"}, nil
	}

	for v := rLo; v <= rHi+1; v++ {
		desc, ok, err := checksums.Read(ctx, logpath.ChecksumPath(root, v))
		if err != nil {
			return GateResult{}, err
		}
		if !ok {
			return GateResult{Allowed: false, Reason: fmt.Sprintf("version %d has no checksum record with a protocol descriptor", v)}, nil
		}
		if !desc.SupportedForRead(caps) {
			return GateResult{Allowed: false, Reason: fmt.Sprintf("version %d declares a protocol the client cannot read", v)}, nil
		}
		if v == rHi+1 && !desc.SupportedForWrite(caps) {
			return GateResult{Allowed: false, Reason: fmt.Sprintf("boundary version %d declares a protocol the client cannot write", v)}, nil
		}
	}

	return GateResult{Allowed: true, Reason: "every commit in the protected range is protocol-supported"}, nil
}

// scanProtectedCommitRange returns the inclusive [lo, hi] version range of
// commit entries in proposed that fall in [0, p-1]. Scanning stops at the
// first commit with version >= p, since commits appear in monotone
// version order in the proposed stream.
func scanProtectedCommitRange(proposed []LogEntry, p int64) (lo, hi int64, ok bool) {
	for _, e := range proposed {
		if e.Kind != logpath.KindCommit {
			continue
		}
		if e.Version >= p {
			break
		}
		if !ok {
			lo = e.Version
			ok = true
		}
		hi = e.Version
	}
	return lo, hi, ok
}
