package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ConfigDirName is the workspace-local directory holding the config file
// and index state.
const ConfigDirName = ".ariadne"

// Load reads the configuration for a workspace root with the priority
// environment variables (ARIADNE_*) over the config file over defaults.
func Load(rootDir string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(rootDir, ConfigDirName))

	v.SetEnvPrefix("ARIADNE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, key := range []string{
		"indexer.workers",
		"indexer.max_file_size",
		"indexer.debounce_ms",
		"storage.location",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("config: binding %s: %w", key, err)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing file means defaults plus environment overrides.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("paths.include", defaults.Paths.Include)
	v.SetDefault("paths.ignore", defaults.Paths.Ignore)
	v.SetDefault("indexer.workers", defaults.Indexer.Workers)
	v.SetDefault("indexer.max_file_size", defaults.Indexer.MaxFileSize)
	v.SetDefault("indexer.debounce_ms", defaults.Indexer.DebounceMs)
	v.SetDefault("storage.location", defaults.Storage.Location)
}

// StoragePath resolves the snapshot path against the workspace root.
func (c *Config) StoragePath(rootDir string) string {
	if filepath.IsAbs(c.Storage.Location) {
		return c.Storage.Location
	}
	return filepath.Join(rootDir, c.Storage.Location)
}
