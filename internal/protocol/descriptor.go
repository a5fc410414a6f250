// Package protocol describes the reader/writer protocol a table version
// requires, and the local client's capability to satisfy it. It is read
// from checksum records and consulted by the cleanup core's protection
// gate before deleting history below the protected prefix.
package protocol

// Descriptor is the protocol a single commit declares. A commit with no
// descriptor (e.g. an empty checksum record) is represented by the zero
// value's Present flag being false at the call site — Descriptor itself
// always describes a fully-formed value.
type Descriptor struct {
	MinReaderVersion int
	MinWriterVersion int
	ReaderFeatures   []string
	WriterFeatures   []string
}

// ClientCapabilities is the set of protocol versions and feature strings
// this build of the client understands. It is supplied by the caller
// (never looked up ambiently) so tests can vary it per run, per spec's
// design note on passing client-wide knobs explicitly.
type ClientCapabilities struct {
	MaxReaderVersion int
	MaxWriterVersion int
	ReaderFeatures   map[string]struct{}
	WriterFeatures   map[string]struct{}
}

// NewClientCapabilities builds a ClientCapabilities from explicit feature
// lists.
func NewClientCapabilities(maxReaderVersion, maxWriterVersion int, readerFeatures, writerFeatures []string) ClientCapabilities {
	return ClientCapabilities{
		MaxReaderVersion: maxReaderVersion,
		MaxWriterVersion: maxWriterVersion,
		ReaderFeatures:   toSet(readerFeatures),
		WriterFeatures:   toSet(writerFeatures),
	}
}

func toSet(vals []string) map[string]struct{} {
	m := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		m[v] = struct{}{}
	}
	return m
}

// SupportedForRead reports whether caps can read a commit declaring d.
func (d Descriptor) SupportedForRead(caps ClientCapabilities) bool {
	if d.MinReaderVersion > caps.MaxReaderVersion {
		return false
	}
	return allPresent(d.ReaderFeatures, caps.ReaderFeatures)
}

// SupportedForWrite reports whether caps can write a commit declaring d.
func (d Descriptor) SupportedForWrite(caps ClientCapabilities) bool {
	if d.MinWriterVersion > caps.MaxWriterVersion {
		return false
	}
	return allPresent(d.WriterFeatures, caps.WriterFeatures)
}

func allPresent(required []string, have map[string]struct{}) bool {
	for _, f := range required {
		if _, ok := have[f]; !ok {
			return false
		}
	}
	return true
}
