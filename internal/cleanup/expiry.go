package cleanup

// EntrySource is anything ExpiryIterator can pull LogEntry values from, in
// forward (ascending version) order. *LogLister satisfies this.
type EntrySource interface {
	Next() (LogEntry, bool)
}

// ExpiryIterator streams the subset of a log's entries that are safe to
// delete under the retention rule: an entry at version V is safe once
// there is a later, still-reachable checkpoint (V <= H) and the entry
// immediately following V in the log is itself old enough (its mod time
// is <= cutoff) that a client currently reading near the cutoff will
// still see coherent history after V is gone.
//
// It buffers exactly one version's worth of entries at a time and decides
// on that buffer the instant it sees the first entry of the next version
// — it never materializes the whole log.
type ExpiryIterator struct {
	src    EntrySource
	cutoff int64
	h      int64 // safety threshold: latestCheckpointVersion - 1

	started    bool
	exhausted  bool
	bufVersion int64
	buffered   []LogEntry

	queue []LogEntry
	qpos  int
}

// NewExpiryIterator builds an ExpiryIterator over src. cutoff is the
// truncated retention cutoff; h is latestCheckpointVersion-1 (the highest
// version that may ever be deleted, since deleting it must still leave a
// checkpoint to reconstruct from).
func NewExpiryIterator(src EntrySource, cutoff, h int64) *ExpiryIterator {
	return &ExpiryIterator{src: src, cutoff: cutoff, h: h}
}

// Next returns the next safe-to-delete entry, or false when the stream is
// exhausted. The final buffered version is never emitted: it has no
// successor to witness its safety.
func (it *ExpiryIterator) Next() (LogEntry, bool) {
	for {
		if it.qpos < len(it.queue) {
			e := it.queue[it.qpos]
			it.qpos++
			return e, true
		}
		it.queue = nil
		it.qpos = 0

		if it.exhausted {
			return LogEntry{}, false
		}

		e, ok := it.src.Next()
		if !ok {
			it.exhausted = true
			it.buffered = nil
			continue
		}

		if !it.started {
			it.started = true
			it.bufVersion = e.Version
			it.buffered = []LogEntry{e}
			continue
		}

		if e.Version == it.bufVersion {
			it.buffered = append(it.buffered, e)
			continue
		}

		// Boundary: e is the first entry of a later version. Decide the
		// fate of the buffered (now-closed) version using e's mod time.
		emit := it.bufVersion <= it.h && e.ModTimeMillis <= it.cutoff
		closed := it.buffered

		it.bufVersion = e.Version
		it.buffered = []LogEntry{e}

		if emit {
			it.queue = closed
		}
	}
}
