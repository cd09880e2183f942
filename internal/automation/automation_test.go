package automation

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/keplersim/internal/config"
	"github.com/san-kum/keplersim/internal/experiment"
	"github.com/san-kum/keplersim/internal/storage"
)

const scenarioYAML = `
name: tour
description: circular orbit then a projected euler run
steps:
  - preset: circular
    integrator: rk4
    duration: 1
    save_as: circle
  - integrator: euler
    projection: full
    stepping: fixed
    dt: 0.001
    duration: 0.1
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunScenario(t *testing.T) {
	sc, err := LoadScenario(writeFile(t, scenarioYAML))
	require.NoError(t, err)
	require.Len(t, sc.Steps, 2)

	st := storage.New(t.TempDir())
	require.NoError(t, st.Init())

	results, err := RunScenario(context.Background(), sc, experiment.NewRegistry(), st, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, strings.HasPrefix(results[0].RunID, "circle_"), results[0].RunID)
	assert.Equal(t, "rk4", results[0].Config.Integrator)
	assert.Equal(t, 1.0, results[0].Config.Duration)

	assert.Empty(t, results[1].RunID)
	assert.Equal(t, "eccentric", results[1].Config.Name)
	assert.Equal(t, results[1].Result.Stats.Accepted, results[1].Result.Stats.Corrected)

	runs, err := st.List()
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestScenarioStepConfig(t *testing.T) {
	cfg, err := ScenarioStep{InitState: &config.InitStateConfig{Q1: 1, P2: 1}}.Config()
	require.NoError(t, err)
	assert.Equal(t, config.InitStateConfig{Q1: 1, P2: 1}, cfg.InitState)

	_, err = ScenarioStep{Preset: "nope"}.Config()
	assert.ErrorContains(t, err, "unknown preset")

	_, err = ScenarioStep{Projection: "sideways"}.Config()
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestScenarioErrors(t *testing.T) {
	_, err := LoadScenario(writeFile(t, "name: empty\n"))
	assert.ErrorContains(t, err, "no steps")

	_, err = LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	sc := &Scenario{Name: "x", Steps: []ScenarioStep{{Duration: 0.1, SaveAs: "x"}}}
	_, err = RunScenario(context.Background(), sc, experiment.NewRegistry(), nil, nil)
	assert.ErrorContains(t, err, "without a store")
}

func monteCarloBase() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Duration = 1
	return cfg
}

func TestRunMonteCarlo(t *testing.T) {
	cfg := &MonteCarloConfig{Base: monteCarloBase(), Perturbation: 0.01, NumTrials: 5, Seed: 7}
	results, err := RunMonteCarlo(context.Background(), cfg, experiment.NewRegistry(), nil)
	require.NoError(t, err)
	require.Len(t, results, 5)

	for _, r := range results {
		assert.True(t, r.Bound, "trial %d", r.TrialID)
		assert.False(t, r.Escaped, "trial %d", r.TrialID)
		assert.NotEqual(t, cfg.Base.State(), r.InitState)
	}

	again, err := RunMonteCarlo(context.Background(), cfg, experiment.NewRegistry(), nil)
	require.NoError(t, err)
	assert.Equal(t, results[3].InitState, again[3].InitState, "same seed, same perturbations")

	summary := MonteCarloStats(results)
	assert.Equal(t, 5, summary.Trials)
	assert.Equal(t, 5, summary.Bound)
	assert.Zero(t, summary.Escaped)
	assert.GreaterOrEqual(t, summary.MaxDrift, summary.MeanDrift)
}

func TestRunMonteCarloWithoutNoise(t *testing.T) {
	cfg := &MonteCarloConfig{Base: monteCarloBase(), NumTrials: 2}
	results, err := RunMonteCarlo(context.Background(), cfg, experiment.NewRegistry(), nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, cfg.Base.State(), results[0].InitState)
	assert.Equal(t, results[0].FinalState, results[1].FinalState)

	_, err = RunMonteCarlo(context.Background(), &MonteCarloConfig{Base: monteCarloBase()}, experiment.NewRegistry(), nil)
	assert.Error(t, err)
}

func TestMonteCarloStats(t *testing.T) {
	s := MonteCarloStats([]MonteCarloResult{
		{Bound: true, EnergyDrift: 1},
		{Bound: true, Escaped: true, EnergyDrift: 3},
		{EnergyDrift: 2},
	})
	assert.Equal(t, MonteCarloSummary{Trials: 3, Bound: 2, Escaped: 1, MeanDrift: 2, StdDrift: 1, MaxDrift: 3}, s)
}
