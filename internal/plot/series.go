package plot

import (
	"github.com/san-kum/keplersim/internal/dynamo"
	"github.com/san-kum/keplersim/internal/metrics"
)

// Run is a labelled trajectory of a system.
type Run struct {
	Label  string
	System dynamo.System
	Result *dynamo.Result
}

// OrbitSeries extracts the (q1, q2) path of a run.
func OrbitSeries(r Run) Series {
	s := Series{Label: r.Label}
	s.X = make([]float64, len(r.Result.States))
	s.Y = make([]float64, len(r.Result.States))
	for i, x := range r.Result.States {
		s.X[i], s.Y[i] = x[0], x[1]
	}
	return s
}

// EnergySeries is H(t) − H(0) for a run. Y is nil when the system has no
// energy.
func EnergySeries(r Run) Series {
	d := metrics.DriftSeries(r.System, r.Result)
	return Series{Label: r.Label, X: d.Times, Y: d.Energy}
}

// AngularSeries is L(t) − L(0) for a run.
func AngularSeries(r Run) Series {
	d := metrics.DriftSeries(r.System, r.Result)
	return Series{Label: r.Label, X: d.Times, Y: d.Angular}
}

func collect(runs []Run, f func(Run) Series) []Series {
	out := make([]Series, 0, len(runs))
	for _, r := range runs {
		if s := f(r); s.Y != nil {
			out = append(out, s)
		}
	}
	return out
}

// SaveOrbits writes the trajectories of runs to a PNG.
func SaveOrbits(filename, title string, runs []Run, opts Options) error {
	p, err := Orbits(title, collect(runs, OrbitSeries))
	if err != nil {
		return err
	}
	return SavePNG(p, opts, filename)
}

// SaveEnergyDrift writes ΔH(t) of runs to a PNG. With opts.LogY the
// magnitude |ΔH| is drawn on a log axis.
func SaveEnergyDrift(filename string, runs []Run, opts Options) error {
	ylabel := "H(t) - H(0)"
	if opts.LogY {
		ylabel = "|H(t) - H(0)|"
	}
	p, err := Lines("Energy error", "t", ylabel, collect(runs, EnergySeries), opts.LogY)
	if err != nil {
		return err
	}
	return SavePNG(p, opts, filename)
}

// SaveAngularDrift writes ΔL(t) of runs to a PNG.
func SaveAngularDrift(filename string, runs []Run, opts Options) error {
	ylabel := "L(t) - L(0)"
	if opts.LogY {
		ylabel = "|L(t) - L(0)|"
	}
	p, err := Lines("Angular momentum error", "t", ylabel, collect(runs, AngularSeries), opts.LogY)
	if err != nil {
		return err
	}
	return SavePNG(p, opts, filename)
}
