package integrators

import "github.com/san-kum/keplersim/internal/dynamo"

type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, t float64, dt float64) dynamo.State {
	dx := dyn.Derive(x, t)
	result := make(dynamo.State, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result
}

// SymplecticEuler updates the momenta with the old positions, then the
// positions with the new momenta.
type SymplecticEuler struct{}

func NewSymplecticEuler() *SymplecticEuler {
	return &SymplecticEuler{}
}

func (e *SymplecticEuler) Step(dyn dynamo.System, x dynamo.State, t float64, dt float64) dynamo.State {
	ps := dynamo.Split(dyn)
	q, p := x.Halves()

	f := ps.Force(x, t)
	p1 := axpy(p, dt, f)
	v := ps.Velocity(join(q, p1), t)
	return join(axpy(q, dt, v), p1)
}
