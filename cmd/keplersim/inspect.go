package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/keplersim/internal/analysis"
	"github.com/san-kum/keplersim/internal/dynamo"
	"github.com/san-kum/keplersim/internal/experiment"
	"github.com/san-kum/keplersim/internal/export"
	"github.com/san-kum/keplersim/internal/physics"
	"github.com/san-kum/keplersim/internal/plot"
	"github.com/san-kum/keplersim/internal/storage"
	"github.com/san-kum/keplersim/internal/viz"
)

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tINTEGRATOR\tPROJECTION\tDURATION\tSTEPS\tENERGY DRIFT\tTIMESTAMP")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%d\t%.3e\t%s\n",
			r.ID, r.Integrator, r.Projection, r.Duration, r.Stats.Accepted, r.EnergyDrift,
			r.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func listIntegrators(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tFAMILY\tORDER\tADAPTIVE\tDESCRIPTION")
	for _, info := range experiment.NewRegistry().ListIntegrators() {
		fmt.Fprintf(w, "%s\t%s\t%d\t%v\t%s\n", info.Name, info.Family, info.Order, info.Adaptive(), info.Description)
	}
	return w.Flush()
}

func loadRun(st *storage.Store, runID string) (*storage.RunMetadata, *dynamo.Result, error) {
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	res, err := st.LoadTrajectory(runID)
	if err != nil {
		return nil, nil, err
	}
	return meta, res, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, res, err := loadRun(storage.New(dataDir), args[0])
	if err != nil {
		return err
	}
	r := plot.Run{Label: meta.Integrator, System: physics.NewKepler(), Result: res}

	fmt.Printf("run: %s (%s, projection %s)\n\n", meta.ID, meta.Integrator, meta.Projection)

	q := []plot.Series{{Label: "q1"}, {Label: "q2"}}
	for _, x := range res.States {
		q[0].Y = append(q[0].Y, x[0])
		q[1].Y = append(q[1].Y, x[1])
	}
	chart, err := plot.Terminal("position vs step", q, 70, 12)
	if err != nil {
		return err
	}
	fmt.Println(chart)

	drift := []plot.Series{plot.EnergySeries(r), plot.AngularSeries(r)}
	drift[0].Label, drift[1].Label = "ΔH", "ΔL"
	if chart, err = plot.Terminal("invariant drift vs step", drift, 70, 12); err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(chart)
	return nil
}

func renderRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs := make([]plot.Run, 0, len(args))
	title := ""
	for _, id := range args {
		meta, res, err := loadRun(st, id)
		if err != nil {
			return err
		}
		label := meta.Integrator
		if meta.Projection != "" && meta.Projection != "none" {
			label += "+" + meta.Projection
		}
		if title == "" {
			title = meta.Name
		}
		runs = append(runs, plot.Run{Label: label, System: physics.NewKepler(), Result: res})
	}

	dir := outDir
	if dir == "" {
		dir = st.Dir(args[0])
	}
	return writeComparison(dir, title, runs)
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return err
	}

	if svgPath == "" {
		return nil
	}
	res, err := st.LoadTrajectory(args[0])
	if err != nil {
		return err
	}
	r := plot.Run{Label: meta.Integrator, System: physics.NewKepler(), Result: res}
	if err := export.WriteFile(svgPath, export.OrbitsToSVG(orbitsOf([]plot.Run{r}), 800, 800)); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "orbit written to %s\n", svgPath)
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	res, err := storage.New(dataDir).LoadTrajectory(args[0])
	if err != nil {
		return err
	}
	return storage.WriteCSV(os.Stdout, res.Times, res.States)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, res, err := loadRun(storage.New(dataDir), args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, storage.NewExportData(*meta, physics.NewKepler(), res))
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, res, err := loadRun(storage.New(dataDir), args[0])
	if err != nil {
		return err
	}
	if len(res.States) < 3 {
		return fmt.Errorf("run %s has only %d samples", meta.ID, len(res.States))
	}

	fmt.Printf("analysis of %s (%s)\n\n", meta.ID, meta.Integrator)

	if el, err := physics.ElementsOf(res.States[0]); err == nil {
		fmt.Println("orbital elements:")
		fmt.Printf("  energy:          %.10f\n", el.Energy)
		fmt.Printf("  angular momentum: %.10f\n", el.AngularMomentum)
		fmt.Printf("  semi-major axis: %.6f\n", el.SemiMajor)
		fmt.Printf("  eccentricity:    %.6f\n", el.Eccentricity)
		fmt.Printf("  period:          %.6f\n", el.Period)
		if period, err := analysis.DominantPeriod(res.Times, componentOf(res, 0)); err == nil {
			fmt.Printf("  measured period: %.6f (relative error %.2e)\n", period, math.Abs(period-el.Period)/el.Period)
		}
	} else {
		fmt.Printf("orbital elements: %v\n", err)
	}

	errs, err := analysis.GlobalError(res)
	if err != nil {
		return err
	}
	fmt.Println("\nglobal error against the exact orbit:")
	fmt.Printf("  final: %.3e\n", errs[len(errs)-1])
	if k, err := analysis.GrowthExponent(res.Times, errs); err == nil {
		fmt.Printf("  growth exponent: %.2f (1 = linear, 2 = quadratic)\n", k)
	}

	section := analysis.Section(res, 1, 0, 0, 2)
	if section != nil && len(section.Points) > 1 {
		first, last := section.Points[0], section.Points[len(section.Points)-1]
		fmt.Printf("\nperiapsis-side crossings: %d, q1 moved %.3e\n", len(section.Points), last.X-first.X)
	}
	return nil
}

func componentOf(res *dynamo.Result, idx int) []float64 {
	out := make([]float64, len(res.States))
	for i, x := range res.States {
		out[i] = x[idx]
	}
	return out
}

func phasePlot(cmd *cobra.Command, args []string) error {
	_, res, err := loadRun(storage.New(dataDir), args[0])
	if err != nil {
		return err
	}
	names := []string{"q1", "q2", "p1", "p2"}
	if xAxis < 0 || xAxis >= len(names) || yAxis < 0 || yAxis >= len(names) {
		return fmt.Errorf("axis index out of range [0, %d]", len(names)-1)
	}

	if section {
		s := analysis.Section(res, 1, 0, 0, 2)
		fmt.Println("section q2 = 0, upward crossings, (q1, p1):")
		fmt.Println(analysis.PoincareSectionToASCII(s, 60, 20))
		return nil
	}

	portrait := analysis.Portrait(res, xAxis, yAxis)
	fmt.Printf("phase portrait: %s vs %s\n", names[yAxis], names[xAxis])
	fmt.Println(analysis.PhasePortraitToASCII(portrait, 60, 30))

	if svgPath == "" {
		return nil
	}
	xs, ys := componentOf(res, xAxis), componentOf(res, yAxis)
	c := viz.NewCanvas(120, 60)
	c.Polyline(viz.FitViewport(c, minOf(xs), maxOf(xs), minOf(ys), maxOf(ys)), xs, ys)
	if err := export.WriteFile(svgPath, export.CanvasToSVG(c, 4, "")); err != nil {
		return err
	}
	fmt.Printf("portrait written to %s\n", filepath.Clean(svgPath))
	return nil
}

func minOf(v []float64) float64 {
	m := math.Inf(1)
	for _, x := range v {
		m = math.Min(m, x)
	}
	return m
}

func maxOf(v []float64) float64 {
	m := math.Inf(-1)
	for _, x := range v {
		m = math.Max(m, x)
	}
	return m
}
