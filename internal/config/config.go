// Package config provides configuration loading for purec.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/foundry-zero/purec/internal/compiler"
	"github.com/foundry-zero/purec/internal/extensions"
)

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// LogLevels lists the accepted logging.level values.
var LogLevels = []string{"debug", "info", "warn", "error", "silent"}

// Config represents the complete purec configuration
type Config struct {
	Compiler CompilerConfig `yaml:"compiler"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// CompilerConfig configures each build.
type CompilerConfig struct {
	// StrictFunctionMatching fails the build when a call's declared
	// function and the dispatched one differ.
	StrictFunctionMatching bool `yaml:"strictFunctionMatching"`
	// RejectGeneralizationCycles rejects cyclic supertype graphs.
	RejectGeneralizationCycles bool `yaml:"rejectGeneralizationCycles"`
	// ValidateMappingRoots requires exactly one root class mapping per
	// class mapped more than once.
	ValidateMappingRoots bool `yaml:"validateMappingRoots"`
	// Extensions names the compiler extensions to enable, in order.
	Extensions []string `yaml:"extensions"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures metrics output.
type MetricsConfig struct {
	// File receives the metrics in Prometheus text format after the run
	// (empty = no metrics file).
	File string `yaml:"file"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Compiler: CompilerConfig{
			RejectGeneralizationCycles: true,
			ValidateMappingRoots:       true,
			Extensions:                 []string{"relational"},
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: FormatText,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(LogLevels, c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of %v, got %q", LogLevels, c.Logging.Level))
	}
	if c.Logging.Format != FormatText && c.Logging.Format != FormatJSON {
		errs = append(errs, fmt.Errorf("logging.format must be %q or %q, got %q", FormatText, FormatJSON, c.Logging.Format))
	}
	for _, name := range c.Compiler.Extensions {
		if !extensions.Known(name) {
			errs = append(errs, fmt.Errorf("compiler.extensions: unknown extension %q (known: %v)", name, extensions.Names()))
		}
	}
	return errors.Join(errs...)
}

// CompilerOptions converts the compiler section into build options. The
// logger and session are left for the caller.
func (c *Config) CompilerOptions() (compiler.Options, error) {
	exts, err := extensions.Lookup(c.Compiler.Extensions)
	if err != nil {
		return compiler.Options{}, err
	}
	return compiler.Options{
		StrictFunctionMatching:     c.Compiler.StrictFunctionMatching,
		RejectGeneralizationCycles: c.Compiler.RejectGeneralizationCycles,
		ValidateMappingRoots:       c.Compiler.ValidateMappingRoots,
		Extensions:                 exts,
	}, nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := config.apply(path); err != nil {
		return nil, err
	}
	return config, nil
}

// apply decodes the YAML file at path over c. Keys the file does not set
// keep their current value; unknown keys are an error.
func (c *Config) apply(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
