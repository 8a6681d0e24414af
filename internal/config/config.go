// Package config loads tool-wide defaults from a YAML file. Command line
// flags override anything set here.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xtxerr/rebin/internal/aggregate"
	"github.com/xtxerr/rebin/internal/errors"
)

// Config is the complete tool configuration.
type Config struct {
	// Defaults apply to stores created or resized without explicit flags.
	Defaults DefaultsConfig `yaml:"defaults"`

	// Export configures Parquet export.
	Export ExportConfig `yaml:"export"`

	// Logging configures log output.
	Logging LoggingConfig `yaml:"logging"`
}

// DefaultsConfig holds store policy defaults.
type DefaultsConfig struct {
	// XFilesFactor is the completeness threshold for aggregation, in
	// [0, 1]. Nil keeps the store's own value on resize.
	XFilesFactor *float64 `yaml:"x_files_factor"`

	// AggregationMethod names the default aggregation method. Empty
	// keeps the store's own method on resize.
	AggregationMethod string `yaml:"aggregation_method"`

	// KeepBackup keeps the .bak file after a successful resize.
	KeepBackup bool `yaml:"keep_backup"`
}

// ExportConfig configures Parquet export.
type ExportConfig struct {
	// Compression is the Parquet codec: none, snappy, zstd, lz4, gzip.
	Compression string `yaml:"compression"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`

	// JSON switches output from text to JSON.
	JSON bool `yaml:"json"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Defaults: DefaultsConfig{
			KeepBackup: true,
		},
		Export: ExportConfig{
			Compression: "zstd",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads and validates a YAML config file, layered over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config file")
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "parse config file")
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "validate config")
	}

	return config, nil
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if xff := c.Defaults.XFilesFactor; xff != nil && (*xff < 0 || *xff > 1) {
		return errors.Wrapf(errors.ErrInvalidConfig, "x_files_factor %g outside [0, 1]", *xff)
	}
	if m := c.Defaults.AggregationMethod; m != "" {
		if _, err := aggregate.ParseMethod(m); err != nil {
			return err
		}
	}
	switch c.Export.Compression {
	case "", "none", "snappy", "zstd", "lz4", "gzip":
	default:
		return errors.Wrapf(errors.ErrInvalidConfig, "unknown compression %q", c.Export.Compression)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.Wrapf(errors.ErrInvalidConfig, "unknown log level %q", c.Logging.Level)
	}
	return nil
}
