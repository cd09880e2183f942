package experiment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/keplersim/internal/config"
	"github.com/san-kum/keplersim/internal/dynamo"
	"github.com/san-kum/keplersim/internal/logging"
	"github.com/san-kum/keplersim/internal/physics"
	"github.com/san-kum/keplersim/internal/projection"
	"github.com/san-kum/keplersim/internal/storage"
)

// Experiment is one configured Kepler run.
type Experiment struct {
	cfg       *config.Config
	info      IntegratorInfo
	mode      projection.Mode
	sys       *physics.Kepler
	simulator *dynamo.Simulator
	simCfg    dynamo.Config
	x0        dynamo.State
	logger    *slog.Logger
}

// New validates cfg and wires the system, integrator, metrics and
// projection callback. A nil logger discards output.
func New(cfg *config.Config, reg *Registry, logger *slog.Logger) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	info, err := reg.Info(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	mode, err := cfg.Mode()
	if err != nil {
		return nil, err
	}

	integ := info.New()
	_, adaptive := integ.(dynamo.AdaptiveIntegrator)

	e := &Experiment{
		cfg:    cfg.Clone(),
		info:   info,
		mode:   mode,
		sys:    physics.NewKepler(),
		simCfg: cfg.SimConfig(adaptive),
		x0:     cfg.State(),
		logger: logger.With("run", cfg.Name, "integrator", info.Name),
	}

	e.simulator = dynamo.New(e.sys, integ)
	e.simulator.SetLogger(e.logger)
	for _, m := range reg.DefaultMetrics(e.sys, cfg.EscapeRadius) {
		e.simulator.AddMetric(m)
	}
	if mode != projection.ModeNone {
		man, err := projection.NewManifold(mode, e.sys, e.x0)
		if err != nil {
			return nil, err
		}
		e.simulator.AddCallback(man)
	}
	return e, nil
}

func (e *Experiment) Config() *config.Config       { return e.cfg }
func (e *Experiment) Info() IntegratorInfo         { return e.info }
func (e *Experiment) System() *physics.Kepler      { return e.sys }
func (e *Experiment) Simulator() *dynamo.Simulator { return e.simulator }
func (e *Experiment) SimConfig() dynamo.Config     { return e.simCfg }
func (e *Experiment) InitialState() dynamo.State   { return e.x0.Clone() }
func (e *Experiment) Mode() projection.Mode        { return e.mode }

// Label names the run by integrator and projection mode.
func (e *Experiment) Label() string {
	if e.mode == projection.ModeNone {
		return e.info.Name
	}
	return e.info.Name + "+" + e.mode.String()
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	e.logger.Info("run started",
		"projection", e.mode,
		"dt", e.simCfg.Dt,
		"duration", e.simCfg.Duration,
		"adaptive", e.simCfg.Adaptive,
	)
	res, err := e.simulator.Run(ctx, e.x0, e.simCfg)
	if res != nil {
		e.report(res)
	}
	if err != nil {
		e.logger.Error("run failed", "error", err)
		return res, fmt.Errorf("%s: %w", e.Label(), err)
	}
	return res, nil
}

func (e *Experiment) report(res *dynamo.Result) {
	if n := len(res.Errors); n > 0 {
		e.logger.Warn("steps with failed corrections", "count", n, "error", res.Errors[0])
	}
	e.logger.Info("run finished",
		"accepted", res.Stats.Accepted,
		"rejected", res.Stats.Rejected,
		"corrected", res.Stats.Corrected,
		"energy_drift", res.EnergyDrift,
		"angular_drift", res.AngularDrift,
		"elapsed", res.Elapsed,
	)
}

// Metadata describes the run for the store.
func (e *Experiment) Metadata() storage.RunMetadata {
	return storage.RunMetadata{
		Name:       e.cfg.Name,
		Integrator: e.info.Name,
		Projection: e.mode.String(),
		Adaptive:   e.simCfg.Adaptive,
		Dt:         e.simCfg.Dt,
		Duration:   e.simCfg.Duration,
	}
}

// Outcome is one labelled result of Compare.
type Outcome struct {
	Label      string
	Experiment *Experiment
	Result     *dynamo.Result
}

// Compare runs every config concurrently, each with its own system and
// integrator, and returns the outcomes in input order.
func Compare(ctx context.Context, cfgs []*config.Config, reg *Registry, logger *slog.Logger, limit int) ([]Outcome, error) {
	exps := make([]*Experiment, len(cfgs))
	jobs := make([]dynamo.Job, len(cfgs))
	for i, cfg := range cfgs {
		e, err := New(cfg, reg, logger)
		if err != nil {
			return nil, err
		}
		exps[i] = e
		jobs[i] = dynamo.Job{Name: e.Label(), Simulator: e.simulator, X0: e.x0, Config: e.simCfg}
	}

	results, err := dynamo.RunBatch(ctx, jobs, limit)
	if err != nil {
		return nil, err
	}

	out := make([]Outcome, len(exps))
	for i, e := range exps {
		e.report(results[i])
		out[i] = Outcome{Label: e.Label(), Experiment: e, Result: results[i]}
	}
	return out, nil
}

// Variants derives one config per integrator and projection mode from base.
func Variants(base *config.Config, integrators []string, modes []projection.Mode) []*config.Config {
	if len(modes) == 0 {
		modes = []projection.Mode{projection.ModeNone}
	}
	out := make([]*config.Config, 0, len(integrators)*len(modes))
	for _, name := range integrators {
		for _, mode := range modes {
			cfg := base.Clone()
			cfg.Integrator = name
			cfg.Projection = mode.String()
			out = append(out, cfg)
		}
	}
	return out
}
