package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/keplersim/internal/dynamo"
)

// Drift holds the deviations H(t)−H(0) and L(t)−L(0) along a trajectory.
// A series is nil when the system lacks the corresponding invariant.
type Drift struct {
	Times   []float64
	Energy  []float64
	Angular []float64
}

func DriftSeries(dyn dynamo.System, res *dynamo.Result) Drift {
	d := Drift{Times: res.Times}
	if len(res.States) == 0 {
		return d
	}
	if h, ok := dyn.(dynamo.Hamiltonian); ok {
		d.Energy = make([]float64, len(res.States))
		for i, x := range res.States {
			d.Energy[i] = h.Energy(x)
		}
		floats.AddConst(-d.Energy[0], d.Energy)
	}
	if l, ok := dyn.(dynamo.AngularMomentum); ok {
		d.Angular = make([]float64, len(res.States))
		for i, x := range res.States {
			d.Angular[i] = l.AngularMomentum(x)
		}
		floats.AddConst(-d.Angular[0], d.Angular)
	}
	return d
}

// MaxAbs returns the largest magnitude in s, or 0 for an empty series.
func MaxAbs(s []float64) float64 {
	if len(s) == 0 {
		return 0
	}
	return floats.Norm(s, math.Inf(1))
}
