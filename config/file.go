package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// fileOverrides is the shape of the optional supplementary YAML config file.
// It only carries operator knobs that don't belong in process env: archive
// location and indexer tuning.
type fileOverrides struct {
	ArchiveRoot       string `yaml:"archive_root,omitempty"`
	WatchDebounceMs   int    `yaml:"watch_debounce_ms,omitempty"`
	HeartbeatSeconds  int    `yaml:"heartbeat_seconds,omitempty"`
	IndexBatchSize    int    `yaml:"index_batch_size,omitempty"`
}

// configFilePath returns the supplementary config file path, honoring
// XDG_CONFIG_HOME like the rest of this ecosystem's CLI tools.
func configFilePath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cui", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "cui", "config.yaml")
}

// applyFileOverrides layers the supplementary YAML file on top of the
// env-derived defaults in c. A missing or unreadable file is not an error —
// it just means there are no overrides.
func applyFileOverrides(c *Config) {
	path := configFilePath()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	var overrides fileOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return
	}

	if overrides.ArchiveRoot != "" {
		c.ArchiveRoot = overrides.ArchiveRoot
	}
	if overrides.WatchDebounceMs > 0 {
		c.WatchDebounce = time.Duration(overrides.WatchDebounceMs) * time.Millisecond
	}
	if overrides.HeartbeatSeconds > 0 {
		c.HeartbeatInterval = time.Duration(overrides.HeartbeatSeconds) * time.Second
	}
	if overrides.IndexBatchSize > 0 {
		c.BatchSize = overrides.IndexBatchSize
	}
}
