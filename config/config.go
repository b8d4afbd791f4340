// Package config holds the run configuration. Every knob has an
// authored default matching the original training setup; a YAML file
// may override them.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"digitnet/augment"
	"digitnet/model"
)

// Config holds training configuration.
type Config struct {
	Variant        string         `yaml:"variant"`
	Epochs         int            `yaml:"epochs"`
	BatchSize      int            `yaml:"batch_size"`
	LearningRate   float64        `yaml:"learning_rate"`
	Seed           int64          `yaml:"seed"`
	SplitFraction  float64        `yaml:"split_fraction"`
	Augment        bool           `yaml:"augment"`
	AugmentWorkers int            `yaml:"augment_workers"`
	Augmentation   augment.Config `yaml:"augmentation"`
}

// Default returns the authored configuration: 10 epochs, batch 64,
// 80/20 split with seed 42, fixed-rate Adam.
func Default() Config {
	return Config{
		Variant:        model.VariantBaseline,
		Epochs:         10,
		BatchSize:      64,
		LearningRate:   0.001,
		Seed:           42,
		SplitFraction:  0.2,
		Augment:        false,
		AugmentWorkers: 1,
		Augmentation:   augment.DefaultConfig(),
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate validates the training configuration.
func (c Config) Validate() error {
	if c.Variant != model.VariantBaseline && c.Variant != model.VariantBatchNorm {
		return fmt.Errorf("config: unknown variant %q", c.Variant)
	}
	if c.Epochs <= 0 {
		return fmt.Errorf("config: epochs must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("config: batch size must be positive")
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("config: learning rate must be positive")
	}
	if c.SplitFraction <= 0 || c.SplitFraction >= 1 {
		return fmt.Errorf("config: split fraction must be in (0,1)")
	}
	if c.Augment && c.AugmentWorkers <= 0 {
		return fmt.Errorf("config: augment workers must be positive")
	}
	if c.Augmentation.HorizontalFlip {
		return fmt.Errorf("config: horizontal flip is not valid for digit glyphs")
	}
	return nil
}
