package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/keplersim/internal/config"
)

func parsed(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addConfigFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestResolveConfigDefaults(t *testing.T) {
	cfg, err := resolveConfig(parsed(t))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)
}

func TestResolveConfigPresetWithOverrides(t *testing.T) {
	cfg, err := resolveConfig(parsed(t, "--preset", "circular", "--dt", "0.02", "--projection", "energy"))
	require.NoError(t, err)
	assert.Equal(t, "circular", cfg.Name)
	assert.Equal(t, "erkn4", cfg.Integrator)
	assert.Equal(t, 0.02, cfg.Dt)
	assert.Equal(t, "energy", cfg.Projection)

	// The preset table is not modified.
	assert.Equal(t, 0.05, config.Presets["circular"].Config.Dt)
}

func TestResolveConfigCustomState(t *testing.T) {
	cfg, err := resolveConfig(parsed(t, "--q1", "1", "--p2", "1"))
	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.Name)
	assert.Equal(t, []float64{1, 0, 0, 1}, []float64(cfg.State()))
}

func TestResolveConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: file\nintegrator: rk4\ndt: 0.005\nduration: 2\ninit_state: {q1: 1, q2: 0, p1: 0, p2: 1}\n"), 0o644))

	cfg, err := resolveConfig(parsed(t, "--config", path, "--time", "3"))
	require.NoError(t, err)
	assert.Equal(t, "file", cfg.Name)
	assert.Equal(t, "rk4", cfg.Integrator)
	assert.Equal(t, 0.005, cfg.Dt)
	assert.Equal(t, 3.0, cfg.Duration)
}

func TestResolveConfigErrors(t *testing.T) {
	_, err := resolveConfig(parsed(t, "--preset", "nope"))
	assert.ErrorContains(t, err, "unknown preset")

	_, err = resolveConfig(parsed(t, "--dt=-1"))
	assert.ErrorIs(t, err, config.ErrInvalid)

	_, err = resolveConfig(parsed(t, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
