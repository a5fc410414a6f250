package checkpoint

import "github.com/dray-io/dray/internal/logpath"

// Provider describes a table's current checkpoint: its version, on-disk
// format, and the top-level file(s) that make it up. For a classic
// checkpoint TopLevelPaths has one entry (single-file) or several
// (multipart); for a v2 checkpoint it has exactly one entry, the top-level
// index that in turn references sidecars.
type Provider struct {
	Version       int64
	Format        logpath.CheckpointFormat
	TopLevelPaths []string
}

// IsClassic reports whether the provider's checkpoint is already in a
// format every reader (including pre-v2 clients) can use.
func (p Provider) IsClassic() bool {
	return p.Format == logpath.FormatClassicSingle || p.Format == logpath.FormatClassicMultipart
}
