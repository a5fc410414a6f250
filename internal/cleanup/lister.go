package cleanup

import (
	"context"
	"fmt"

	"github.com/dray-io/dray/internal/logpath"
	"github.com/dray-io/dray/internal/objectstore"
)

// LogEntry is a single log directory entry as seen by LogLister: its
// classification plus the object-store metadata needed to make expiry
// decisions.
type LogEntry struct {
	logpath.Entry
	ModTimeMillis int64
	Size          int64
}

// LogLister produces a forward-only stream of LogEntry values under a
// prefix, in filename order (equivalent to version order, since names are
// zero-padded). A missing directory is an empty stream, not an error.
//
// The underlying Store.List call is not itself paginated in this module's
// Store interface (it returns the full sorted result set per call), so
// LogLister's laziness is a contract on its own API — buffering happens
// once per List call, not once per Store round trip — kept this way so a
// future paginating Store can be swapped in without changing callers.
type LogLister struct {
	entries []LogEntry
	pos     int
}

// NewLogLister lists prefix and returns a lister positioned at the first
// entry whose version is >= fromVersion. Entries with no defined version,
// i.e. sidecars and unrecognized names, are dropped here while the listing
// is classified — LogLister only yields classified, versioned entries.
func NewLogLister(ctx context.Context, store objectstore.Store, prefix string, fromVersion int64) (*LogLister, error) {
	objs, err := store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: listing %s: %v", ErrStorageUnavailable, prefix, err)
	}

	entries := make([]LogEntry, 0, len(objs))
	for _, o := range objs {
		e := logpath.Classify(o.Key)
		if e.Kind == logpath.KindUnknown || e.Kind == logpath.KindSidecar {
			continue
		}
		if e.Version < fromVersion {
			continue
		}
		entries = append(entries, LogEntry{Entry: e, ModTimeMillis: o.LastModified, Size: o.Size})
	}

	return &LogLister{entries: entries}, nil
}

// Next returns the next entry and true, or the zero value and false when
// the stream is exhausted.
func (l *LogLister) Next() (LogEntry, bool) {
	if l.pos >= len(l.entries) {
		return LogEntry{}, false
	}
	e := l.entries[l.pos]
	l.pos++
	return e, true
}
