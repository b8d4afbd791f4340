package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digitnet/model"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, model.VariantBaseline, cfg.Variant)
	assert.Equal(t, 10, cfg.Epochs)
	assert.Equal(t, 64, cfg.BatchSize)
	assert.Equal(t, 0.001, cfg.LearningRate)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 0.2, cfg.SplitFraction)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digitnet.yaml")
	yaml := `
variant: batchnorm
epochs: 3
augment: true
augment_workers: 4
augmentation:
  rotation_deg: 15
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, model.VariantBatchNorm, cfg.Variant)
	assert.Equal(t, 3, cfg.Epochs)
	assert.True(t, cfg.Augment)
	assert.Equal(t, 4, cfg.AugmentWorkers)
	assert.Equal(t, 15.0, cfg.Augmentation.RotationDeg)
	// Untouched keys keep their defaults.
	assert.Equal(t, 64, cfg.BatchSize)
	assert.Equal(t, 0.1, cfg.Augmentation.Zoom)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("epochs: [nope"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown variant", func(c *Config) { c.Variant = "lenet" }},
		{"zero epochs", func(c *Config) { c.Epochs = 0 }},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }},
		{"negative learning rate", func(c *Config) { c.LearningRate = -1 }},
		{"split fraction too high", func(c *Config) { c.SplitFraction = 1 }},
		{"augment without workers", func(c *Config) { c.Augment = true; c.AugmentWorkers = 0 }},
		{"horizontal flip", func(c *Config) { c.Augmentation.HorizontalFlip = true }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
