// Package config provides configuration loading and validation for the
// cleanup core. Supports YAML files with environment variable overrides.
package config

// Config holds all configuration for the cleanup core.
type Config struct {
	ObjectStore   ObjectStoreConfig        `yaml:"objectStore"`
	Cleanup       CleanupConfig            `yaml:"cleanup"`
	Protocol      ClientCapabilitiesConfig `yaml:"protocol"`
	Observability ObservabilityConfig      `yaml:"observability"`
}

type ObjectStoreConfig struct {
	Endpoint  string `yaml:"endpoint" env:"DRAY_S3_ENDPOINT"`
	Bucket    string `yaml:"bucket" env:"DRAY_S3_BUCKET"`
	Region    string `yaml:"region" env:"DRAY_S3_REGION"`
	AccessKey string `yaml:"accessKey" env:"DRAY_S3_ACCESS_KEY"`
	SecretKey string `yaml:"secretKey" env:"DRAY_S3_SECRET_KEY"`
}

// CleanupConfig carries the client-global runtime knobs the retention
// algorithm reads (protection gate shortcuts, default retention) that an
// operator may need to override per deployment.
type CleanupConfig struct {
	// DefaultLogRetentionMillis is the retention window tablectl applies to
	// every table it cleans; no per-table retention property is read.
	DefaultLogRetentionMillis int64 `yaml:"defaultLogRetentionMillis" env:"DRAY_CLEANUP_DEFAULT_RETENTION_MS"`

	// DisableCheckpointExistenceShortcut, when true, disables the
	// protection gate's boundary-checkpoint shortcut (rule 5), forcing
	// every run through the stricter checksum/protocol check.
	DisableCheckpointExistenceShortcut bool `yaml:"disableCheckpointExistenceShortcut" env:"DRAY_CLEANUP_DISABLE_CHECKPOINT_EXISTENCE_SHORTCUT"`

	// AllowProtocolSupportShortcut, when false, disables the protection
	// gate's checksum/protocol-support shortcut (rule 6): a run that
	// reaches that rule is denied, whether or not every version in range
	// has a checksum record.
	AllowProtocolSupportShortcut bool `yaml:"allowProtocolSupportShortcut" env:"DRAY_CLEANUP_ALLOW_PROTOCOL_SHORTCUT"`
}

// ClientCapabilitiesConfig describes the reader/writer protocol versions
// and feature strings this deployment understands, mirroring
// protocol.ClientCapabilities. The protection gate's rule 6 (internal/
// cleanup/protection.go) compares every protected commit's declared
// protocol descriptor against this, so it must reflect what the running
// binary can actually read and write — not the zero value.
type ClientCapabilitiesConfig struct {
	MaxReaderVersion int      `yaml:"maxReaderVersion" env:"DRAY_PROTOCOL_MAX_READER_VERSION"`
	MaxWriterVersion int      `yaml:"maxWriterVersion" env:"DRAY_PROTOCOL_MAX_WRITER_VERSION"`
	ReaderFeatures   []string `yaml:"readerFeatures" env:"DRAY_PROTOCOL_READER_FEATURES"`
	WriterFeatures   []string `yaml:"writerFeatures" env:"DRAY_PROTOCOL_WRITER_FEATURES"`
}

type ObservabilityConfig struct {
	MetricsAddr string `yaml:"metricsAddr" env:"DRAY_METRICS_ADDR"`
	LogLevel    string `yaml:"logLevel" env:"DRAY_LOG_LEVEL"`
	LogFormat   string `yaml:"logFormat" env:"DRAY_LOG_FORMAT"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		ObjectStore: ObjectStoreConfig{
			Region: "us-east-1",
		},
		Cleanup: CleanupConfig{
			DefaultLogRetentionMillis:           30 * 24 * 60 * 60 * 1000, // 30 days
			DisableCheckpointExistenceShortcut:  false,
			AllowProtocolSupportShortcut:        true,
		},
		Protocol: ClientCapabilitiesConfig{
			MaxReaderVersion: 3,
			MaxWriterVersion: 7,
			ReaderFeatures:   []string{"columnMapping", "v2Checkpoint"},
			WriterFeatures:   []string{"deletionVectors", "v2Checkpoint"},
		},
		Observability: ObservabilityConfig{
			MetricsAddr: ":9090",
			LogLevel:    "info",
			LogFormat:   "json",
		},
	}
}
