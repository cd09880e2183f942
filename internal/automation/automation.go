package automation

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/keplersim/internal/config"
	"github.com/san-kum/keplersim/internal/dynamo"
	"github.com/san-kum/keplersim/internal/experiment"
	"github.com/san-kum/keplersim/internal/logging"
	"github.com/san-kum/keplersim/internal/storage"
)

// Scenario defines a scripted sequence of runs
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is a single run in a scenario. Zero fields keep the value
// of the preset, or of the default configuration when Preset is empty.
type ScenarioStep struct {
	Preset     string                  `yaml:"preset"`
	Integrator string                  `yaml:"integrator"`
	Projection string                  `yaml:"projection"`
	Stepping   string                  `yaml:"stepping"`
	Duration   float64                 `yaml:"duration"`
	Dt         float64                 `yaml:"dt"`
	InitState  *config.InitStateConfig `yaml:"init_state"`
	SaveAs     string                  `yaml:"save_as"`
}

// StepResult is the outcome of one scenario step. RunID is empty for steps
// that were not saved.
type StepResult struct {
	Config *config.Config
	Result *dynamo.Result
	RunID  string
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("%s: scenario has no steps", path)
	}
	return &scenario, nil
}

// Config resolves the step into a full run configuration.
func (s ScenarioStep) Config() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if s.Preset != "" {
		cfg = config.GetPreset(s.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", s.Preset)
		}
	}
	if s.Integrator != "" {
		cfg.Integrator = s.Integrator
	}
	if s.Projection != "" {
		cfg.Projection = s.Projection
	}
	if s.Stepping != "" {
		cfg.Stepping = s.Stepping
	}
	if s.Duration > 0 {
		cfg.Duration = s.Duration
	}
	if s.Dt > 0 {
		cfg.Dt = s.Dt
	}
	if s.InitState != nil {
		cfg.InitState = *s.InitState
	}
	if s.SaveAs != "" {
		cfg.Name = s.SaveAs
	}
	return cfg, cfg.Validate()
}

// RunScenario executes all steps in order. Steps with SaveAs are written to
// st, which may be nil when nothing is saved.
func RunScenario(
	ctx context.Context,
	scenario *Scenario,
	reg *experiment.Registry,
	st *storage.Store,
	logger *slog.Logger,
) ([]StepResult, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cfg, err := step.Config()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		logger.Info("scenario step", "scenario", scenario.Name, "step", i+1, "of", len(scenario.Steps), "integrator", cfg.Integrator)

		exp, err := experiment.New(cfg, reg, logger)
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}
		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		sr := StepResult{Config: cfg, Result: result}
		if step.SaveAs != "" {
			if st == nil {
				return results, fmt.Errorf("step %d: save_as %q without a store", i+1, step.SaveAs)
			}
			if sr.RunID, err = st.Save(exp.Metadata(), result); err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}
		results = append(results, sr)
	}

	return results, nil
}

// MonteCarloConfig perturbs the initial state of Base with independent
// Gaussian noise of standard deviation Perturbation on every component.
type MonteCarloConfig struct {
	Base         *config.Config
	Perturbation float64
	NumTrials    int
	Seed         uint64
}

// MonteCarloResult holds the outcome of one perturbed run
type MonteCarloResult struct {
	TrialID     int
	InitState   dynamo.State
	FinalState  dynamo.State
	EnergyDrift float64
	Bound       bool // negative energy at the start
	Escaped     bool // left the escape radius at some point
}

// RunMonteCarlo executes NumTrials runs with perturbed initial states.
// Trials whose perturbed state is invalid (at the origin) are skipped.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, reg *experiment.Registry, logger *slog.Logger) ([]MonteCarloResult, error) {
	if cfg.NumTrials <= 0 {
		return nil, fmt.Errorf("monte carlo needs a positive trial count, got %d", cfg.NumTrials)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	results := make([]MonteCarloResult, 0, cfg.NumTrials)

	noise := distuv.Normal{Mu: 0, Sigma: cfg.Perturbation, Src: rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)}
	base := cfg.Base.State()

	for trial := 0; trial < cfg.NumTrials; trial++ {
		run := cfg.Base.Clone()
		run.Name = fmt.Sprintf("%s-mc%d", cfg.Base.Name, trial)
		s := &run.InitState
		if cfg.Perturbation > 0 {
			s.Q1 = base[0] + noise.Rand()
			s.Q2 = base[1] + noise.Rand()
			s.P1 = base[2] + noise.Rand()
			s.P2 = base[3] + noise.Rand()
		}

		exp, err := experiment.New(run, reg, logger)
		if err != nil {
			logger.Warn("skipping trial", "trial", trial, "error", err)
			continue
		}
		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("trial %d: %w", trial, err)
		}

		x0 := exp.InitialState()
		results = append(results, MonteCarloResult{
			TrialID:     trial,
			InitState:   x0,
			FinalState:  result.Final(),
			EnergyDrift: result.EnergyDrift,
			Bound:       exp.System().Energy(x0) < 0,
			Escaped:     result.Metrics["escape"] > 0,
		})

		if (trial+1)%10 == 0 {
			logger.Info("monte carlo progress", "done", trial+1, "of", cfg.NumTrials)
		}
	}

	return results, nil
}

// MonteCarloSummary aggregates trial outcomes.
type MonteCarloSummary struct {
	Trials    int
	Bound     int
	Escaped   int
	MeanDrift float64
	StdDrift  float64
	MaxDrift  float64
}

// MonteCarloStats computes summary statistics from Monte Carlo results
func MonteCarloStats(results []MonteCarloResult) MonteCarloSummary {
	sum := MonteCarloSummary{Trials: len(results)}
	drifts := make([]float64, 0, len(results))
	for _, r := range results {
		if r.Bound {
			sum.Bound++
		}
		if r.Escaped {
			sum.Escaped++
		}
		drifts = append(drifts, r.EnergyDrift)
		sum.MaxDrift = max(sum.MaxDrift, r.EnergyDrift)
	}
	if len(drifts) > 0 {
		sum.MeanDrift, sum.StdDrift = stat.MeanStdDev(drifts, nil)
	}
	return sum
}
