package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestDefaultRadii(t *testing.T) {
	r := Default().Radii
	assert.Equal(t, 0.510, r.Carbon)
	assert.Equal(t, 0.465, r.Nitrogen)
	assert.Equal(t, 0.456, r.Oxygen)
	assert.Equal(t, 0.540, r.Phosphorus)
	assert.Equal(t, 0.250, r.MaxHBond)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "molprint.yaml")
	yml := `
radii:
  max_hbond: 0.3
assembly:
  multi_color: true
pins:
  sides: 24
script:
  timeout: 2s
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.3, cfg.Radii.MaxHBond)
	assert.True(t, cfg.Assembly.MultiColor)
	assert.Equal(t, 24, cfg.Pins.Sides)
	assert.Equal(t, 2*time.Second, cfg.Script.Timeout)
	// untouched keys keep defaults
	assert.Equal(t, 0.510, cfg.Radii.Carbon)
	assert.Equal(t, 30.0, cfg.Assembly.RepairScale)
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Pins, cfg.Pins)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MOLPRINT_MULTICOLOR", "true")
	t.Setenv("MOLPRINT_MAX_HBOND", "0.2")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Assembly.MultiColor)
	assert.Equal(t, 0.2, cfg.Radii.MaxHBond)
}

func TestEnvOverrideBadValue(t *testing.T) {
	t.Setenv("MOLPRINT_MULTICOLOR", "perhaps")
	_, err := Load("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"max hbond too large", func(c *Config) { c.Radii.MaxHBond = 0.9 }},
		{"negative radius", func(c *Config) { c.Radii.Carbon = -1 }},
		{"unknown backend", func(c *Config) { c.Kernel.Backend = "cgal" }},
		{"pin type out of range", func(c *Config) { c.Pins.Type = 3 }},
		{"too few sides", func(c *Config) { c.Pins.Sides = 2 }},
		{"fallback above exact", func(c *Config) { c.Kernel.FallbackCells = c.Kernel.Cells + 1 }},
		{"zero cutoff", func(c *Config) { c.Interact.Cutoff = 0 }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid), "error %v should wrap ErrInvalid", err)
		})
	}
}
