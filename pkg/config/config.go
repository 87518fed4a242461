// Package config provides configuration loading and management for niftislice.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Export parameters
	Export struct {
		// Quality is the JPEG quality, 1 to 100
		Quality int `yaml:"quality"`

		// Format is the image file extension, e.g. jpg or png
		Format string `yaml:"format"`

		// Mode selects the 8-bit normalization: minmax or zscore
		Mode string `yaml:"mode"`

		// ZScoreK is the number of standard deviations kept in zscore mode
		ZScoreK float64 `yaml:"zscoreK"`
	} `yaml:"export"`

	// Load parameters
	Load struct {
		// AsFloat converts the whole volume to float32 right after loading
		AsFloat bool `yaml:"asFloat"`
	} `yaml:"load"`

	// Output parameters
	Output struct {
		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`

		// Prefix is prepended to every exported file name
		Prefix string `yaml:"prefix"`
	} `yaml:"output"`
}

var formats = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "bmp": true, "gif": true, "tif": true, "tiff": true,
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Export.Quality = 100
	cfg.Export.Format = "jpg"
	cfg.Export.Mode = "minmax"
	cfg.Export.ZScoreK = 3.0

	cfg.Load.AsFloat = false

	cfg.Output.Verbose = false
	cfg.Output.Prefix = "slice"

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// Validate checks that every value is usable by the exporter
func (c *Config) Validate() error {
	if c.Export.Quality < 1 || c.Export.Quality > 100 {
		return fmt.Errorf("export.quality must be between 1 and 100, got %d", c.Export.Quality)
	}

	if !formats[strings.ToLower(strings.TrimPrefix(c.Export.Format, "."))] {
		return fmt.Errorf("export.format %q is not supported", c.Export.Format)
	}

	switch c.Export.Mode {
	case "minmax":
	case "zscore":
		if c.Export.ZScoreK <= 0 {
			return fmt.Errorf("export.zscoreK must be positive, got %g", c.Export.ZScoreK)
		}
	default:
		return fmt.Errorf("export.mode must be minmax or zscore, got %q", c.Export.Mode)
	}

	if c.Output.Prefix == "" || strings.ContainsAny(c.Output.Prefix, `/\`) {
		return fmt.Errorf("output.prefix %q is not a valid file name prefix", c.Output.Prefix)
	}

	return nil
}

// Extension returns the export format as a file extension with a leading dot
func (c *Config) Extension() string {
	return "." + strings.ToLower(strings.TrimPrefix(c.Export.Format, "."))
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
