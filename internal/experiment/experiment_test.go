package experiment

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/keplersim/internal/config"
	"github.com/san-kum/keplersim/internal/dynamo"
	"github.com/san-kum/keplersim/internal/logging"
	"github.com/san-kum/keplersim/internal/projection"
)

func TestRegistryIntegrators(t *testing.T) {
	reg := NewRegistry()
	list := reg.ListIntegrators()
	require.Len(t, list, 13)

	for _, info := range list {
		integ, err := reg.GetIntegrator(info.Name)
		require.NoError(t, err)
		assert.NotNil(t, integ)
		assert.Positive(t, info.Order, info.Name)
	}

	info, err := reg.Info("dopri5")
	require.NoError(t, err)
	assert.Equal(t, "rk45", info.Name)
	assert.True(t, info.Adaptive())

	info, err = reg.Info("verlet")
	require.NoError(t, err)
	assert.False(t, info.Adaptive())

	_, err = reg.GetIntegrator("magic")
	assert.ErrorIs(t, err, ErrUnknownIntegrator)
}

func TestExperimentRun(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.DefaultConfig()
	cfg.Duration = 1

	e, err := New(cfg, NewRegistry(), logging.NewWriter(&buf, slog.LevelInfo))
	require.NoError(t, err)
	assert.Equal(t, "verlet", e.Label())
	assert.False(t, e.SimConfig().Adaptive)

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, res.Stats.Accepted)
	assert.Less(t, res.EnergyDrift, 1e-2)
	assert.InDelta(t, 0.4, res.Metrics["periapsis"], 1e-12)
	assert.Contains(t, res.Metrics, "energy_drift")
	assert.Contains(t, res.Metrics, "escape")

	logs := buf.String()
	assert.Contains(t, logs, "run started")
	assert.Contains(t, logs, "run finished")
	assert.Contains(t, logs, "integrator=verlet")

	meta := e.Metadata()
	assert.Equal(t, "none", meta.Projection)
	assert.Equal(t, 0.01, meta.Dt)
}

func TestExperimentAutoStepping(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Integrator = "rk45"
	cfg.Duration = 2

	e, err := New(cfg, NewRegistry(), nil)
	require.NoError(t, err)
	assert.True(t, e.SimConfig().Adaptive)

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 2.0, res.Times[len(res.Times)-1], 1e-12)
	assert.Less(t, res.EnergyDrift, 1e-5)
}

func TestExperimentProjection(t *testing.T) {
	cfg := config.GetPreset("projected")
	cfg.Duration = 1

	e, err := New(cfg, NewRegistry(), nil)
	require.NoError(t, err)
	assert.Equal(t, "euler+full", e.Label())

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	assert.Equal(t, res.Stats.Accepted, res.Stats.Corrected)
	assert.Less(t, res.EnergyDrift, 1e-9)
	assert.Less(t, res.AngularDrift, 1e-9)
}

func TestNewRejectsBadConfig(t *testing.T) {
	reg := NewRegistry()

	cfg := config.DefaultConfig()
	cfg.Integrator = "magic"
	_, err := New(cfg, reg, nil)
	assert.ErrorIs(t, err, ErrUnknownIntegrator)

	cfg = config.DefaultConfig()
	cfg.Projection = "sideways"
	_, err = New(cfg, reg, nil)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestCompare(t *testing.T) {
	base := config.DefaultConfig()
	base.Duration = 2 * 3.141592653589793
	cfgs := Variants(base, []string{"euler", "verlet", "yoshida4"}, []projection.Mode{projection.ModeNone})
	require.Len(t, cfgs, 3)

	out, err := Compare(context.Background(), cfgs, NewRegistry(), nil, 2)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"euler", "verlet", "yoshida4"}, []string{out[0].Label, out[1].Label, out[2].Label})

	// Higher order conserves energy better over one period.
	drift := func(i int) float64 { return out[i].Result.Metrics["energy_drift"] }
	assert.Greater(t, drift(0), drift(1))
	assert.Greater(t, drift(1), drift(2))
	for _, o := range out {
		assert.InDelta(t, base.Duration, o.Result.Times[len(o.Result.Times)-1], 1e-12, o.Label)
	}
}

func TestCompareCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfgs := Variants(config.DefaultConfig(), []string{"rk4"}, nil)
	_, err := Compare(ctx, cfgs, NewRegistry(), nil, 0)
	assert.ErrorIs(t, err, dynamo.ErrContextCanceled)
}

func TestVariants(t *testing.T) {
	base := config.DefaultConfig()
	cfgs := Variants(base, []string{"rk4", "verlet"}, []projection.Mode{projection.ModeNone, projection.ModeEnergy})
	require.Len(t, cfgs, 4)
	assert.Equal(t, "rk4", cfgs[0].Integrator)
	assert.Equal(t, "energy", cfgs[1].Projection)
	assert.Equal(t, "verlet", cfgs[3].Integrator)
	assert.Equal(t, "none", base.Projection)
}
