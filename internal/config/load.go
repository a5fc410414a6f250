package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load starts from Default(), overlays the fields present in the YAML
// config file at path, then layers environment variable overrides on top.
// Environment variables always take precedence over file-based
// configuration.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.ObjectStore.Bucket == "" {
		return nil, fmt.Errorf("config: objectStore.bucket is required")
	}

	return cfg, nil
}

// applyEnvOverrides layers DRAY_* environment variables over cfg,
// following the same env tag naming the teacher uses.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DRAY_S3_ENDPOINT"); v != "" {
		cfg.ObjectStore.Endpoint = v
	}
	if v := os.Getenv("DRAY_S3_BUCKET"); v != "" {
		cfg.ObjectStore.Bucket = v
	}
	if v := os.Getenv("DRAY_S3_REGION"); v != "" {
		cfg.ObjectStore.Region = v
	}
	if v := os.Getenv("DRAY_S3_ACCESS_KEY"); v != "" {
		cfg.ObjectStore.AccessKey = v
	}
	if v := os.Getenv("DRAY_S3_SECRET_KEY"); v != "" {
		cfg.ObjectStore.SecretKey = v
	}

	if v := os.Getenv("DRAY_CLEANUP_DEFAULT_RETENTION_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Cleanup.DefaultLogRetentionMillis = n
		}
	}
	if v := os.Getenv("DRAY_CLEANUP_DISABLE_CHECKPOINT_EXISTENCE_SHORTCUT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Cleanup.DisableCheckpointExistenceShortcut = b
		}
	}
	if v := os.Getenv("DRAY_CLEANUP_ALLOW_PROTOCOL_SHORTCUT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Cleanup.AllowProtocolSupportShortcut = b
		}
	}

	if v := os.Getenv("DRAY_PROTOCOL_MAX_READER_VERSION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Protocol.MaxReaderVersion = n
		}
	}
	if v := os.Getenv("DRAY_PROTOCOL_MAX_WRITER_VERSION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Protocol.MaxWriterVersion = n
		}
	}
	if v := os.Getenv("DRAY_PROTOCOL_READER_FEATURES"); v != "" {
		cfg.Protocol.ReaderFeatures = strings.Split(v, ",")
	}
	if v := os.Getenv("DRAY_PROTOCOL_WRITER_FEATURES"); v != "" {
		cfg.Protocol.WriterFeatures = strings.Split(v, ",")
	}

	if v := os.Getenv("DRAY_METRICS_ADDR"); v != "" {
		cfg.Observability.MetricsAddr = v
	}
	if v := os.Getenv("DRAY_LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("DRAY_LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}
