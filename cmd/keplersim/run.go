package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/keplersim/internal/analysis"
	"github.com/san-kum/keplersim/internal/config"
	"github.com/san-kum/keplersim/internal/dynamo"
	"github.com/san-kum/keplersim/internal/experiment"
	"github.com/san-kum/keplersim/internal/export"
	"github.com/san-kum/keplersim/internal/metrics"
	"github.com/san-kum/keplersim/internal/physics"
	"github.com/san-kum/keplersim/internal/plot"
	"github.com/san-kum/keplersim/internal/projection"
	"github.com/san-kum/keplersim/internal/storage"
	"github.com/san-kum/keplersim/internal/viz"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp, err := experiment.New(cfg, experiment.NewRegistry(), logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("running %s with %s...\n", cfg.Name, exp.Label())
	result, err := exp.Run(ctx)
	if err != nil {
		return err
	}

	runID, err := st.Save(exp.Metadata(), result)
	if err != nil {
		return err
	}

	drift := metrics.DriftSeries(exp.System(), result)
	fmt.Printf("completed in %v\n", result.Elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d accepted, %d rejected, %d projected\n",
		result.Stats.Accepted, result.Stats.Rejected, result.Stats.Corrected)
	fmt.Printf("max |ΔH|: %.3e\n", metrics.MaxAbs(drift.Energy))
	fmt.Printf("max |ΔL|: %.3e\n", metrics.MaxAbs(drift.Angular))
	if errs, err := analysis.GlobalError(result); err == nil && len(errs) > 0 {
		fmt.Printf("global error at end: %.3e\n", errs[len(errs)-1])
	}
	if len(result.Errors) > 0 {
		fmt.Printf("failed projections: %d (first: %v)\n", len(result.Errors), result.Errors[0])
	}
	printMetrics(result.Metrics)
	return nil
}

func printMetrics(m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6g\n", name, m[name])
	}
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	parsed := make([]projection.Mode, 0, len(modes))
	for _, s := range modes {
		m, err := projection.ParseMode(s)
		if err != nil {
			return err
		}
		parsed = append(parsed, m)
	}

	ctx, cancel := signalContext()
	defer cancel()

	cfgs := experiment.Variants(base, args, parsed)
	outcomes, err := experiment.Compare(ctx, cfgs, experiment.NewRegistry(), logger, parallel)
	if err != nil {
		return err
	}

	fmt.Printf("comparing integrators on %s (dt=%g, duration=%g)\n\n", base.Name, base.Dt, base.Duration)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTEPS\tREJECTED\tMAX |ΔH|\tMAX |ΔL|\tGLOBAL ERR\tFAILED\tTIME")

	runs := make([]plot.Run, len(outcomes))
	for i, o := range outcomes {
		res := o.Result
		drift := metrics.DriftSeries(o.Experiment.System(), res)
		global := math.NaN()
		if errs, err := analysis.GlobalError(res); err == nil && len(errs) > 0 {
			global = errs[len(errs)-1]
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%.3e\t%.3e\t%.3e\t%d\t%v\n",
			o.Label, res.Stats.Accepted, res.Stats.Rejected,
			metrics.MaxAbs(drift.Energy), metrics.MaxAbs(drift.Angular), global,
			len(res.Errors), res.Elapsed.Round(time.Microsecond))
		runs[i] = plot.Run{Label: o.Label, System: o.Experiment.System(), Result: res}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	series := make([]plot.Series, 0, len(runs))
	for _, r := range runs {
		s := plot.EnergySeries(r)
		for j := range s.Y {
			s.Y[j] = math.Abs(s.Y[j])
		}
		series = append(series, s)
	}
	if chart, err := plot.Terminal("|ΔH| vs step", series, 70, 10); err == nil {
		fmt.Println()
		fmt.Println(chart)
	}

	if outDir == "" {
		return nil
	}
	return writeComparison(outDir, base.Name, runs)
}

func writeComparison(dir, title string, runs []plot.Run) error {
	opts := plot.DefaultOptions()
	opts.LogY = logScale
	if err := plot.SaveOrbits(filepath.Join(dir, "orbits.png"), title, runs, opts); err != nil {
		return err
	}
	if err := plot.SaveEnergyDrift(filepath.Join(dir, "energy.png"), runs, opts); err != nil {
		return err
	}
	if err := plot.SaveAngularDrift(filepath.Join(dir, "angular.png"), runs, opts); err != nil {
		return err
	}
	if err := export.WriteFile(filepath.Join(dir, "orbits.svg"), export.OrbitsToSVG(orbitsOf(runs), 800, 800)); err != nil {
		return err
	}
	fmt.Printf("\nplots written to %s\n", dir)
	return nil
}

func orbitsOf(runs []plot.Run) []export.Orbit {
	out := make([]export.Orbit, len(runs))
	for i, r := range runs {
		s := plot.OrbitSeries(r)
		out[i] = export.Orbit{Label: r.Label, X: s.X, Y: s.Y}
	}
	return out
}

func benchIntegrators(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	reg := experiment.NewRegistry()
	if len(args) == 0 {
		for _, info := range reg.ListIntegrators() {
			args = append(args, info.Name)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("benchmarking %s over %g time units\n\n", base.Name, base.Duration)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tDT\tSTEPS\tTIME\tSTEPS/SEC\tMAX |ΔH|")

	dts := []float64{base.Dt * 4, base.Dt * 2, base.Dt}
	for _, name := range args {
		for _, step := range dts {
			cfg := base.Clone()
			cfg.Integrator = name
			cfg.Dt = step
			cfg.Stepping = config.SteppingFixed
			exp, err := experiment.New(cfg, reg, logger)
			if err != nil {
				return err
			}
			res, err := exp.Run(ctx)
			if err != nil {
				fmt.Fprintf(w, "%s\t%g\terror: %v\n", name, step, err)
				continue
			}
			drift := metrics.DriftSeries(exp.System(), res)
			rate := float64(res.Stats.Accepted) / res.Elapsed.Seconds()
			fmt.Fprintf(w, "%s\t%g\t%d\t%v\t%.0f\t%.3e\n",
				name, step, res.Stats.Accepted, res.Elapsed.Round(time.Microsecond), rate, metrics.MaxAbs(drift.Energy))
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if !sweep {
		return nil
	}

	fmt.Println("\nobserved order (global error against the exact orbit):")
	for _, name := range args {
		info, err := reg.Info(name)
		if err != nil {
			return err
		}
		points, err := analysis.StepSweep(ctx, physics.NewKepler(), info.New, base.State(), dts, base.Duration)
		if err != nil {
			fmt.Printf("  %-18s error: %v\n", name, err)
			continue
		}
		fmt.Printf("  %-18s %5.2f (nominal %d)\n", name, analysis.ObservedOrder(points), info.Order)
	}
	return nil
}

func liveModel(cfg *config.Config, reg *experiment.Registry, st *storage.Store) (viz.Model, error) {
	integ, err := reg.GetIntegrator(cfg.Integrator)
	if err != nil {
		return viz.Model{}, err
	}
	mode, err := cfg.Mode()
	if err != nil {
		return viz.Model{}, err
	}
	info, _ := reg.Info(cfg.Integrator)
	sys := physics.NewKepler()

	save := func(name string, times []float64, states []dynamo.State) (string, error) {
		res := &dynamo.Result{Times: times, States: states, Metrics: map[string]float64{}}
		meta := storage.RunMetadata{Name: name, Integrator: info.Name, Projection: mode.String(), Dt: cfg.Dt}
		if len(times) > 0 {
			meta.Duration = times[len(times)-1]
		}
		runID, err := st.Save(meta, res)
		if err != nil {
			return "", err
		}
		r := plot.Run{Label: info.Name, System: sys, Result: res}
		svg := export.OrbitsToSVG(orbitsOf([]plot.Run{r}), 600, 600)
		if err := export.WriteFile(filepath.Join(st.Dir(runID), "orbit.svg"), svg); err != nil {
			return "", err
		}
		return runID, nil
	}

	return viz.NewModel(sys, integ, cfg.State(), viz.Options{
		Name:          cfg.Name,
		Integrator:    info.Name,
		Dt:            cfg.Dt,
		StepsPerFrame: stepsPerFrame,
		Mode:          mode,
		Theme:         theme,
		Save:          save,
	})
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	m, err := liveModel(cfg, experiment.NewRegistry(), storage.New(dataDir))
	if err != nil {
		return err
	}
	return viz.Run(m)
}

func runPicker() error {
	reg := experiment.NewRegistry()
	st := storage.New(dataDir)

	integs := make([]viz.Choice, 0)
	for _, info := range reg.ListIntegrators() {
		integs = append(integs, viz.Choice{Name: info.Name, Description: fmt.Sprintf("%s, order %d", info.Description, info.Order)})
	}
	presets := make([]viz.Choice, 0)
	for _, name := range config.ListPresets() {
		presets = append(presets, viz.Choice{Name: name, Description: config.Presets[name].Description})
	}
	if stepsPerFrame <= 0 {
		stepsPerFrame = 5
	}

	build := func(integ, presetName string) (viz.Model, error) {
		cfg := config.GetPreset(presetName)
		if cfg == nil {
			return viz.Model{}, fmt.Errorf("unknown preset: %s", presetName)
		}
		cfg.Integrator = integ
		return liveModel(cfg, reg, st)
	}
	return viz.RunInteractive(viz.NewPicker(integs, presets, build))
}
