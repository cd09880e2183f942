package integrators

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/keplersim/internal/dynamo"
)

// RK4 is the classical fourth-order Runge-Kutta method. It neither
// preserves H nor L, so orbits slowly spiral inwards.
type RK4 struct {
	k     [4]dynamo.State
	stage dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.stage) == n {
		return
	}
	for i := range r.k {
		r.k[i] = make(dynamo.State, n)
	}
	r.stage = make(dynamo.State, n)
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	r.ensureScratch(len(x))
	nodes := [4]float64{0, 0.5, 0.5, 1}

	copy(r.k[0], dyn.Derive(x, t))
	for s := 1; s < 4; s++ {
		floats.AddScaledTo(r.stage, x, nodes[s]*dt, r.k[s-1])
		copy(r.k[s], dyn.Derive(r.stage, t+nodes[s]*dt))
	}

	next := x.Clone()
	for s, w := range [4]float64{1, 2, 2, 1} {
		floats.AddScaled(next, w*dt/6, r.k[s])
	}
	return next
}
