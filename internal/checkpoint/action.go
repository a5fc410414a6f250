package checkpoint

// ActionRow is a single row of a checkpoint's top-level index. Exactly one
// of the embedded pointers is non-nil per row, mirroring the wide,
// mostly-null-column layout real checkpoint parquet files use so that a
// single schema can carry every action kind.
type ActionRow struct {
	MetaData *MetaData   `parquet:"metaData,optional" json:"metaData,omitempty"`
	Protocol *Protocol   `parquet:"protocol,optional" json:"protocol,omitempty"`
	Add      *AddFile    `parquet:"add,optional" json:"add,omitempty"`
	Remove   *RemoveFile `parquet:"remove,optional" json:"remove,omitempty"`
	Sidecar  *SidecarRef `parquet:"sidecar,optional" json:"sidecar,omitempty"`
}

// MetaData carries the table's schema and configuration.
type MetaData struct {
	ID               string   `parquet:"id" json:"id"`
	Name             string   `parquet:"name,optional" json:"name,omitempty"`
	SchemaString     string   `parquet:"schemaString" json:"schemaString"`
	PartitionColumns []string `parquet:"partitionColumns,list,optional" json:"partitionColumns,omitempty"`
	ConfigurationRaw string   `parquet:"configurationRaw,optional" json:"configurationRaw,omitempty"`
}

// Protocol carries the protocol descriptor in effect as of this checkpoint.
type Protocol struct {
	MinReaderVersion int      `parquet:"minReaderVersion" json:"minReaderVersion"`
	MinWriterVersion int      `parquet:"minWriterVersion" json:"minWriterVersion"`
	ReaderFeatures   []string `parquet:"readerFeatures,list,optional" json:"readerFeatures,omitempty"`
	WriterFeatures   []string `parquet:"writerFeatures,list,optional" json:"writerFeatures,omitempty"`
}

// AddFile records a live data file.
type AddFile struct {
	Path             string `parquet:"path" json:"path"`
	SizeBytes        int64  `parquet:"sizeBytes" json:"sizeBytes"`
	ModificationTime int64  `parquet:"modificationTime" json:"modificationTime"`
	DataChange       bool   `parquet:"dataChange" json:"dataChange"`
}

// RemoveFile records a tombstoned data file.
type RemoveFile struct {
	Path              string `parquet:"path" json:"path"`
	DeletionTimestamp int64  `parquet:"deletionTimestamp" json:"deletionTimestamp"`
	DataChange        bool   `parquet:"dataChange" json:"dataChange"`
}

// SidecarRef records a sidecar part-file referenced by a v2 top-level
// checkpoint. Only present in rows read from a FormatV2Top checkpoint;
// a classic checkpoint never carries these (it has no sidecars to point
// at, all content is inlined instead).
type SidecarRef struct {
	Path             string `parquet:"path" json:"path"`
	SizeBytes        int64  `parquet:"sizeBytes" json:"sizeBytes"`
	ModificationTime int64  `parquet:"modificationTime" json:"modificationTime"`
}

// ActionStream is the set of rows a checkpoint's top-level index carries.
// A v2 top-level index is itself bounded in size (it indexes the sidecars,
// it does not inline their contents), so an in-memory slice is sufficient
// here; the large data stays unread inside the sidecars this core never
// opens.
type ActionStream []ActionRow
