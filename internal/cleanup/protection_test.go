package cleanup

import (
	"context"
	"testing"

	"github.com/dray-io/dray/internal/logpath"
	"github.com/dray-io/dray/internal/protocol"
	"github.com/dray-io/dray/internal/snapshot"
)

type mapChecksumReader map[string]protocol.Descriptor

func (m mapChecksumReader) Read(ctx context.Context, path string) (protocol.Descriptor, bool, error) {
	d, ok := m[path]
	return d, ok, nil
}

func noCheckpointAt(ctx context.Context, v int64) (bool, error) { return false, nil }

func checkpointAt(version int64) CheckpointExistsFunc {
	return func(ctx context.Context, v int64) (bool, error) { return v == version, nil }
}

func commitRange(lo, hi int64) []LogEntry {
	var out []LogEntry
	for v := lo; v <= hi; v++ {
		out = append(out, LogEntry{Entry: logpath.Entry{Kind: logpath.KindCommit, Version: v, Backfilled: true}})
	}
	return out
}

func TestProtectionGate_DisabledWhenPZero(t *testing.T) {
	meta := snapshot.Metadata{CheckpointProtectionVersion: 0}
	res, err := EvaluateProtectionGate(context.Background(), "_delta_log", meta, commitRange(0, 20), noCheckpointAt, mapChecksumReader{}, protocol.ClientCapabilities{}, DefaultRuntimeKnobs())
	if err != nil || !res.Allowed {
		t.Fatalf("expected allowed, got %+v err=%v", res, err)
	}
}

// Scenario 2 from spec.md §8: P=15, the proposed deletion range stops
// short of the protected prefix (commits 0..10, so R.hi=10 < P-1=14) with
// no checkpoint anchoring the boundary at 11, and a commit inside the
// range carries an unsupported reader feature. Expected: denied.
func TestProtectionGate_DeniedWithoutShortcut(t *testing.T) {
	meta := snapshot.Metadata{CheckpointProtectionVersion: 15}
	caps := protocol.NewClientCapabilities(1, 1, nil, nil)

	checksums := mapChecksumReader{}
	for v := int64(0); v <= 11; v++ {
		desc := protocol.Descriptor{MinReaderVersion: 1, MinWriterVersion: 1}
		if v == 5 {
			desc.ReaderFeatures = []string{"unsupportedFeature"}
		}
		checksums[logpath.ChecksumPath("_delta_log", v)] = desc
	}

	res, err := EvaluateProtectionGate(context.Background(), "_delta_log", meta, commitRange(0, 10), noCheckpointAt, checksums, caps, DefaultRuntimeKnobs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Allowed {
		t.Fatalf("expected denial, got allowed: %+v", res)
	}
}

// Scenario 3: same as 2, but a complete checkpoint exists at the boundary
// version (R.hi+1 = 14) — the boundary is already anchored, so deletion
// proceeds. R.hi is kept below P-1 so rule 4's full-prefix escape clause
// doesn't preempt the boundary-checkpoint rule this test targets.
func TestProtectionGate_AllowedViaBoundaryCheckpoint(t *testing.T) {
	meta := snapshot.Metadata{CheckpointProtectionVersion: 15}

	res, err := EvaluateProtectionGate(context.Background(), "_delta_log", meta, commitRange(0, 13), checkpointAt(14), mapChecksumReader{}, protocol.ClientCapabilities{}, DefaultRuntimeKnobs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Allowed {
		t.Fatalf("expected allowed via boundary checkpoint, got %+v", res)
	}
}

func TestProtectionGate_AllowedWhenEntirePrefixCleaned(t *testing.T) {
	meta := snapshot.Metadata{CheckpointProtectionVersion: 15}
	res, err := EvaluateProtectionGate(context.Background(), "_delta_log", meta, commitRange(0, 14), noCheckpointAt, mapChecksumReader{}, protocol.ClientCapabilities{}, DefaultRuntimeKnobs())
	if err != nil || !res.Allowed {
		t.Fatalf("expected allowed (entire protected prefix cleaned), got %+v err=%v", res, err)
	}
}

func TestProtectionGate_MissingChecksumIsVeto(t *testing.T) {
	meta := snapshot.Metadata{CheckpointProtectionVersion: 15}
	res, err := EvaluateProtectionGate(context.Background(), "_delta_log", meta, commitRange(0, 10), noCheckpointAt, mapChecksumReader{}, protocol.ClientCapabilities{}, DefaultRuntimeKnobs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Allowed {
		t.Fatal("expected denial: no checksum records present")
	}
}

func TestProtectionGate_Rule5KnobForcesDeny(t *testing.T) {
	meta := snapshot.Metadata{CheckpointProtectionVersion: 15}
	knobs := DefaultRuntimeKnobs()
	knobs.AllowMetadataCleanupCheckpointExistenceCheckDisabled = true

	res, err := EvaluateProtectionGate(context.Background(), "_delta_log", meta, commitRange(0, 13), checkpointAt(14), mapChecksumReader{}, protocol.ClientCapabilities{}, knobs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Allowed {
		t.Fatal("expected denial: rule 5 shortcut disabled and no checksums present for rule 6")
	}
}

func TestProtectionGate_Rule6KnobForcesDeny(t *testing.T) {
	meta := snapshot.Metadata{CheckpointProtectionVersion: 15}
	caps := protocol.NewClientCapabilities(99, 99, nil, nil)
	checksums := mapChecksumReader{}
	for v := int64(0); v <= 14; v++ {
		checksums[logpath.ChecksumPath("_delta_log", v)] = protocol.Descriptor{}
	}
	knobs := DefaultRuntimeKnobs()
	knobs.AllowMetadataCleanupWhenAllProtocolsSupported = false

	res, err := EvaluateProtectionGate(context.Background(), "_delta_log", meta, commitRange(0, 13), noCheckpointAt, checksums, caps, knobs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Allowed {
		t.Fatal("expected denial: rule 6 shortcut disabled by knob")
	}
}
