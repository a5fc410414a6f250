// Package snapshot defines the read-only view of a table the cleanup core
// consumes. A Snapshot is produced and owned by the surrounding
// transaction engine; this core only borrows it for the duration of one
// cleanup invocation and never mutates it.
package snapshot

import "github.com/dray-io/dray/internal/checkpoint"

// Metadata is the subset of table properties the cleanup core reads.
// These map directly onto the configuration keys in spec.md §6.
type Metadata struct {
	// EnableExpiredLogCleanup is the master switch; when false the
	// driver returns immediately without inspecting anything else.
	EnableExpiredLogCleanup bool

	// LogRetentionMillis is the retention horizon.
	LogRetentionMillis int64

	// CheckpointProtectionVersion is the protected prefix boundary; 0 or
	// negative disables protection.
	CheckpointProtectionVersion int64

	// V2CheckpointsEnabled gates the CompatCheckpointer and SidecarGC
	// paths.
	V2CheckpointsEnabled bool
}

// Snapshot is a read-only handle on a table as of some point in time.
type Snapshot interface {
	// Metadata returns the table's configuration relevant to cleanup.
	Metadata() Metadata

	// CheckpointProvider returns the table's current (latest complete)
	// checkpoint, or ok=false if the table has no checkpoint yet.
	CheckpointProvider() (provider checkpoint.Provider, ok bool)

	// LogRoot is the directory holding backfilled commits, checkpoints,
	// and checksum records.
	LogRoot() string

	// StagingRoot is the directory holding unbackfilled commits.
	StagingRoot() string

	// SidecarRoot is the directory holding v2 checkpoint sidecar
	// part-files.
	SidecarRoot() string
}

// Static is a plain-data Snapshot implementation. Production callers
// typically wrap a live table handle instead, but Static is enough for
// callers (and tests) that already have the values in hand.
type Static struct {
	Meta       Metadata
	Provider   checkpoint.Provider
	HasProv    bool
	Log        string
	Staging    string
	Sidecar    string
}

func (s Static) Metadata() Metadata { return s.Meta }

func (s Static) CheckpointProvider() (checkpoint.Provider, bool) {
	return s.Provider, s.HasProv
}

func (s Static) LogRoot() string     { return s.Log }
func (s Static) StagingRoot() string { return s.Staging }
func (s Static) SidecarRoot() string { return s.Sidecar }
