package metrics

import (
	"math"

	"github.com/san-kum/keplersim/internal/dynamo"
)

// invariantDrift tracks the largest relative change of a conserved
// quantity against its first observed value.
type invariantDrift struct {
	initial  float64
	current  float64
	maxDrift float64
	samples  int
}

func (d *invariantDrift) observe(v float64) {
	if d.samples == 0 {
		d.initial = v
	}
	d.current = v
	d.samples++

	drift := math.Abs(v - d.initial)
	if d.initial != 0 {
		drift /= math.Abs(d.initial)
	}
	d.maxDrift = math.Max(d.maxDrift, drift)
}

func (d *invariantDrift) reset() { *d = invariantDrift{} }

type EnergyDrift struct {
	name string
	dyn  dynamo.System
	invariantDrift
}

func NewEnergyDrift(dyn dynamo.System) *EnergyDrift {
	return &EnergyDrift{
		name: "energy_drift",
		dyn:  dyn,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(x dynamo.State, t float64) {
	h, ok := e.dyn.(dynamo.Hamiltonian)
	if !ok {
		return
	}
	e.observe(h.Energy(x))
}

func (e *EnergyDrift) Value() float64 { return e.maxDrift }

func (e *EnergyDrift) Reset() { e.reset() }

type AngularMomentumDrift struct {
	name string
	dyn  dynamo.System
	invariantDrift
}

func NewAngularMomentumDrift(dyn dynamo.System) *AngularMomentumDrift {
	return &AngularMomentumDrift{
		name: "angular_drift",
		dyn:  dyn,
	}
}

func (a *AngularMomentumDrift) Name() string { return a.name }

func (a *AngularMomentumDrift) Observe(x dynamo.State, t float64) {
	l, ok := a.dyn.(dynamo.AngularMomentum)
	if !ok {
		return
	}
	a.observe(l.AngularMomentum(x))
}

func (a *AngularMomentumDrift) Value() float64 { return a.maxDrift }

func (a *AngularMomentumDrift) Reset() { a.reset() }
