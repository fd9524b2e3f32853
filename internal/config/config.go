// Package config loads the workspace configuration from
// .ariadne/config.yml with environment variable overrides.
package config

import (
	"fmt"

	"github.com/gobwas/glob"
)

// Config is the complete ariadne configuration.
type Config struct {
	Paths   PathsConfig   `yaml:"paths" mapstructure:"paths"`
	Indexer IndexerConfig `yaml:"indexer" mapstructure:"indexer"`
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
}

// PathsConfig defines which files to index and which to skip.
type PathsConfig struct {
	// Include globs select source files. Empty means every extension the
	// parser registry supports.
	Include []string `yaml:"include" mapstructure:"include"`
	Ignore  []string `yaml:"ignore" mapstructure:"ignore"`
}

// IndexerConfig tunes the indexing pipeline.
type IndexerConfig struct {
	Workers     int   `yaml:"workers" mapstructure:"workers"`             // 0 means GOMAXPROCS
	MaxFileSize int64 `yaml:"max_file_size" mapstructure:"max_file_size"` // bytes, 0 means default
	DebounceMs  int   `yaml:"debounce_ms" mapstructure:"debounce_ms"`     // watch-mode debounce window
}

// StorageConfig locates the snapshot database.
type StorageConfig struct {
	// Location is the snapshot path, relative to the workspace root.
	Location string `yaml:"location" mapstructure:"location"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Ignore: []string{
				"node_modules/**",
				"vendor/**",
				".git/**",
				"dist/**",
				"build/**",
				"target/**",
				"__pycache__/**",
			},
		},
		Indexer: IndexerConfig{
			Workers:     0,
			MaxFileSize: 0,
			DebounceMs:  500,
		},
		Storage: StorageConfig{
			Location: ".ariadne/index.db",
		},
	}
}

// Validate rejects configurations the pipeline cannot run with.
func Validate(cfg *Config) error {
	if cfg.Indexer.Workers < 0 {
		return fmt.Errorf("indexer.workers must not be negative, got %d", cfg.Indexer.Workers)
	}
	if cfg.Indexer.MaxFileSize < 0 {
		return fmt.Errorf("indexer.max_file_size must not be negative, got %d", cfg.Indexer.MaxFileSize)
	}
	if cfg.Indexer.DebounceMs < 0 {
		return fmt.Errorf("indexer.debounce_ms must not be negative, got %d", cfg.Indexer.DebounceMs)
	}
	if cfg.Storage.Location == "" {
		return fmt.Errorf("storage.location must not be empty")
	}

	for _, pattern := range cfg.Paths.Include {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return fmt.Errorf("paths.include pattern %q: %w", pattern, err)
		}
	}
	for _, pattern := range cfg.Paths.Ignore {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return fmt.Errorf("paths.ignore pattern %q: %w", pattern, err)
		}
	}
	return nil
}
