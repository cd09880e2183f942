package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/san-kum/keplersim/internal/config"
	"github.com/san-kum/keplersim/internal/logging"
)

var (
	dataDir  string
	logLevel string
	logger   = logging.NewNop()

	// Run settings, applied over presets and config files only when set.
	configFile   string
	preset       string
	integrator   string
	projMode     string
	stepping     string
	dt           float64
	duration     float64
	tolerance    float64
	absTolerance float64
	q1, q2       float64
	p1, p2       float64

	// Output
	outDir   string
	logScale bool
	svgPath  string

	// Phase plot axes
	xAxis   int
	yAxis   int
	section bool

	// compare / bench
	modes    []string
	parallel int
	sweep    bool

	// live
	stepsPerFrame int
	theme         string

	// montecarlo / tune
	trials      int
	perturb     float64
	seed        uint64
	dtGrid      []float64
	tolGrid     []float64
	driftBudget float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "keplersim",
		Short:        "Kepler orbit integrator lab",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logging.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logger = logging.New(level)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPicker()
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".keplersim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "integrate one orbit and store it",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)

	compareCmd := &cobra.Command{
		Use:   "compare [integrator...]",
		Short: "compare integrators and projection modes on the same orbit",
		Args:  cobra.MinimumNArgs(1),
		RunE:  compareIntegrators,
	}
	addConfigFlags(compareCmd)
	compareCmd.Flags().StringSliceVar(&modes, "modes", []string{"none"}, "projection modes to combine with every integrator")
	compareCmd.Flags().IntVar(&parallel, "parallel", 0, "maximum concurrent runs (0 = unlimited)")
	compareCmd.Flags().StringVar(&outDir, "out", "", "directory for PNG and SVG plots")
	compareCmd.Flags().BoolVar(&logScale, "log", true, "log scale for drift plots")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	integratorsCmd := &cobra.Command{
		Use:   "integrators",
		Short: "list integrators",
		Args:  cobra.NoArgs,
		RunE:  listIntegrators,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a run in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	renderCmd := &cobra.Command{
		Use:   "render [run_id...]",
		Short: "render orbit and drift plots of runs as PNG",
		Args:  cobra.MinimumNArgs(1),
		RunE:  renderRuns,
	}
	renderCmd.Flags().StringVar(&outDir, "out", "", "output directory (default: first run's directory)")
	renderCmd.Flags().BoolVar(&logScale, "log", true, "log scale for drift plots")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&svgPath, "svg", "", "also write the orbit as SVG to this path")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "period and error growth analysis",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase space plot",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().IntVar(&xAxis, "x-axis", 0, "state index for x-axis")
	phaseCmd.Flags().IntVar(&yAxis, "y-axis", 1, "state index for y-axis")
	phaseCmd.Flags().BoolVar(&section, "section", false, "show the section q2 = 0 (upward) in (q1, p1)")
	phaseCmd.Flags().StringVar(&svgPath, "svg", "", "also write the portrait as SVG to this path")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run simulation with live visualization",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addConfigFlags(liveCmd)
	liveCmd.Flags().IntVar(&stepsPerFrame, "speed", 5, "integration steps per frame")
	liveCmd.Flags().StringVar(&theme, "theme", "night", "color theme (night, phosphor, paper)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				p := config.Presets[name]
				fmt.Printf("  %-10s %-10s %s\n", name, p.Config.Integrator, p.Description)
			}
			return nil
		},
	}

	benchCmd := &cobra.Command{
		Use:   "bench [integrator...]",
		Short: "benchmark integrators",
		RunE:  benchIntegrators,
	}
	addConfigFlags(benchCmd)
	benchCmd.Flags().BoolVar(&sweep, "sweep", false, "also measure the observed order by halving dt")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted sequence of runs from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "run with randomly perturbed initial states",
		Args:  cobra.NoArgs,
		RunE:  runMonteCarlo,
	}
	addConfigFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&trials, "trials", 20, "number of trials")
	monteCarloCmd.Flags().Float64Var(&perturb, "perturb", 0.01, "standard deviation of the initial state noise")
	monteCarloCmd.Flags().Uint64Var(&seed, "seed", 1, "random seed")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "find the cheapest step size and tolerance within an energy drift budget",
		Args:  cobra.NoArgs,
		RunE:  tuneSettings,
	}
	addConfigFlags(tuneCmd)
	tuneCmd.Flags().Float64SliceVar(&dtGrid, "dts", []float64{0.05, 0.02, 0.01, 0.005, 0.002, 0.001}, "step sizes to try")
	tuneCmd.Flags().Float64SliceVar(&tolGrid, "tols", nil, "tolerances to try (adaptive integrators)")
	tuneCmd.Flags().Float64Var(&driftBudget, "budget", 1e-4, "maximum relative energy drift")

	rootCmd.AddCommand(runCmd, compareCmd, listCmd, integratorsCmd, plotCmd, renderCmd, exportCmd,
		exportCSVCmd, exportJSONCmd, analyzeCmd, phaseCmd, liveCmd, presetsCmd, benchCmd,
		scenarioCmd, monteCarloCmd, tuneCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", "error", err)
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.StringVar(&integrator, "integrator", "verlet", "integrator")
	f.StringVar(&projMode, "projection", "none", "projection mode (none, full, energy, angular)")
	f.StringVar(&stepping, "stepping", config.SteppingAuto, "stepping policy (auto, fixed, adaptive)")
	f.Float64Var(&dt, "dt", config.DefaultDt, "timestep (initial step when adaptive)")
	f.Float64Var(&duration, "time", config.DefaultDuration, "duration")
	f.Float64Var(&tolerance, "tol", config.DefaultTolerance, "relative tolerance for adaptive stepping")
	f.Float64Var(&absTolerance, "abs-tol", config.DefaultAbsTolerance, "absolute tolerance for adaptive stepping")
	f.Float64Var(&q1, "q1", 0.4, "initial position x")
	f.Float64Var(&q2, "q2", 0, "initial position y")
	f.Float64Var(&p1, "p1", 0, "initial momentum x")
	f.Float64Var(&p2, "p2", 2, "initial momentum y")
}

// resolveConfig layers defaults, preset, config file and explicitly set
// flags, in that order.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("projection") {
		cfg.Projection = projMode
	}
	if flags.Changed("stepping") {
		cfg.Stepping = stepping
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("tol") {
		cfg.Tolerance = tolerance
	}
	if flags.Changed("abs-tol") {
		cfg.AbsTolerance = absTolerance
	}
	if flags.Changed("q1") {
		cfg.InitState.Q1 = q1
	}
	if flags.Changed("q2") {
		cfg.InitState.Q2 = q2
	}
	if flags.Changed("p1") {
		cfg.InitState.P1 = p1
	}
	if flags.Changed("p2") {
		cfg.InitState.P2 = p2
	}
	if flags.Changed("q1") || flags.Changed("q2") || flags.Changed("p1") || flags.Changed("p2") {
		if preset == "" && configFile == "" {
			cfg.Name = "custom"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !flags.Changed("log-level") && cfg.LogLevel != "" {
		level, err := logging.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		logger = logging.New(level)
	}
	return cfg, nil
}
