package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/keplersim/internal/automation"
	"github.com/san-kum/keplersim/internal/experiment"
	"github.com/san-kum/keplersim/internal/optim"
	"github.com/san-kum/keplersim/internal/storage"
)

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("scenario %s: %s\n\n", sc.Name, sc.Description)
	results, err := automation.RunScenario(ctx, sc, experiment.NewRegistry(), st, logger)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tNAME\tINTEGRATOR\tPROJECTION\tSTEPS\tENERGY DRIFT\tRUN ID")
	for i, r := range results {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%.3e\t%s\n",
			i+1, r.Config.Name, r.Config.Integrator, r.Config.Projection,
			r.Result.Stats.Accepted, r.Result.EnergyDrift, r.RunID)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	return err
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	results, err := automation.RunMonteCarlo(ctx, &automation.MonteCarloConfig{
		Base:         base,
		Perturbation: perturb,
		NumTrials:    trials,
		Seed:         seed,
	}, experiment.NewRegistry(), logger)
	if err != nil {
		return err
	}

	s := automation.MonteCarloStats(results)
	fmt.Printf("%s with %s, %d trials, σ = %g\n\n", base.Name, base.Integrator, trials, perturb)
	fmt.Printf("  completed:    %d\n", s.Trials)
	fmt.Printf("  bound:        %d\n", s.Bound)
	fmt.Printf("  escaped:      %d\n", s.Escaped)
	fmt.Printf("  energy drift: mean %.3e, std %.3e, max %.3e\n", s.MeanDrift, s.StdDrift, s.MaxDrift)

	drifts := make([]float64, len(results))
	for i, r := range results {
		drifts[i] = r.EnergyDrift
	}
	sort.Float64s(drifts)
	if len(drifts) > 0 {
		fmt.Printf("  median drift: %.3e\n", drifts[len(drifts)/2])
	}
	return nil
}

func tuneSettings(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	params := []optim.Param{optim.ParamDt}
	ranges := [][]float64{dtGrid}
	if len(tolGrid) > 0 {
		params = append(params, optim.ParamTolerance)
		ranges = append(ranges, tolGrid)
	}
	g, err := optim.NewGridSearch(params, ranges, driftBudget)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	best, all, err := g.Search(ctx, base, experiment.NewRegistry())
	if err != nil && !errors.Is(err, optim.ErrNoFeasible) {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DT\tTOL\tSTEPS\tENERGY DRIFT\tOK")
	for _, t := range all {
		tol, ok := t.Params[optim.ParamTolerance]
		if !ok {
			tol = base.Tolerance
		}
		status := fmt.Sprint(t.Feasible)
		if t.Err != nil {
			status = t.Err.Error()
		}
		fmt.Fprintf(w, "%g\t%g\t%d\t%.3e\t%s\n", t.Params[optim.ParamDt], tol, t.Steps, t.Drift, status)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	if err != nil {
		return err
	}
	fmt.Printf("\nbest for %s within %g: dt=%g (%d steps, drift %.3e)\n",
		base.Integrator, driftBudget, best.Params[optim.ParamDt], best.Steps, best.Drift)
	return nil
}
