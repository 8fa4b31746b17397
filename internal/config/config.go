// Package config loads tool configuration from a YAML file. All fields
// are optional; missing values fall back to documented defaults.
package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"

	apperrors "github.com/xats-org/xats-go/core/errors"
	"github.com/xats-org/xats-go/core/fidelity"
)

// Config is the top-level tool configuration.
type Config struct {
	// Fidelity configures round-trip testing.
	Fidelity FidelityConfig `yaml:"fidelity"`

	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging"`

	// PluginDir is scanned for plugin.json manifests at startup. Empty
	// disables directory discovery.
	PluginDir string `yaml:"plugin_dir"`
}

// FidelityConfig configures round-trip testing.
type FidelityConfig struct {
	// Threshold is the pass/fail fidelity threshold.
	Threshold float64 `yaml:"threshold"`

	// Weights are the per-dimension score weights.
	Weights WeightsConfig `yaml:"weights"`
}

// WeightsConfig holds per-dimension score weights.
type WeightsConfig struct {
	Content    float64 `yaml:"content"`
	Structure  float64 `yaml:"structure"`
	Formatting float64 `yaml:"formatting"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is json or text.
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Fidelity: FidelityConfig{
			Threshold: fidelity.DefaultThreshold,
			Weights: WeightsConfig{
				Content:    fidelity.DefaultWeights.Content,
				Structure:  fidelity.DefaultWeights.Structure,
				Formatting: fidelity.DefaultWeights.Formatting,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a YAML config file, layering it over the defaults. A missing
// file returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, apperrors.Wrapf(err, "read config %s", path)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, apperrors.NewParse("YAML", err.Error())
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Fidelity.Threshold < 0 || c.Fidelity.Threshold > 1 {
		return apperrors.Wrapf(apperrors.ErrInvalidInput,
			"config: fidelity.threshold %v out of range [0,1]", c.Fidelity.Threshold)
	}
	w := c.Fidelity.Weights
	if w.Content < 0 || w.Structure < 0 || w.Formatting < 0 {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "config: fidelity weights must be non-negative")
	}
	if w.Content+w.Structure+w.Formatting == 0 {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "config: fidelity weights sum to zero")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return apperrors.Wrapf(apperrors.ErrInvalidInput, "config: unknown log level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return apperrors.Wrapf(apperrors.ErrInvalidInput, "config: unknown log format %q", c.Logging.Format)
	}
	return nil
}

// TestOptions converts the fidelity section into round-trip test options.
func (c *Config) TestOptions() *fidelity.TestOptions {
	return &fidelity.TestOptions{
		Threshold: c.Fidelity.Threshold,
		Weights: &fidelity.Weights{
			Content:    c.Fidelity.Weights.Content,
			Structure:  c.Fidelity.Weights.Structure,
			Formatting: c.Fidelity.Weights.Formatting,
		},
	}
}
