package integrators

import "github.com/san-kum/keplersim/internal/dynamo"

// Verlet is the velocity (kick-drift-kick) Störmer-Verlet method. It is
// symmetric and symplectic for separable Hamiltonians.
type Verlet struct{}

func NewVerlet() *Verlet {
	return &Verlet{}
}

func (v *Verlet) Step(dyn dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	ps := dynamo.Split(dyn)
	q, p := x.Halves()
	halfDt := 0.5 * dt

	pHalf := axpy(p, halfDt, ps.Force(x, t))
	q1 := axpy(q, dt, ps.Velocity(join(q, pHalf), t+halfDt))
	p1 := axpy(pHalf, halfDt, ps.Force(join(q1, pHalf), t+dt))

	return join(q1, p1)
}

// Leapfrog is the position (drift-kick-drift) variant.
type Leapfrog struct{}

func NewLeapfrog() *Leapfrog {
	return &Leapfrog{}
}

func (l *Leapfrog) Step(dyn dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	ps := dynamo.Split(dyn)
	q, p := x.Halves()
	halfDt := 0.5 * dt

	qHalf := axpy(q, halfDt, ps.Velocity(x, t))
	p1 := axpy(p, dt, ps.Force(join(qHalf, p), t+halfDt))
	q1 := axpy(qHalf, halfDt, ps.Velocity(join(qHalf, p1), t+dt))

	return join(q1, p1)
}

func join(q, p []float64) dynamo.State {
	x := make(dynamo.State, len(q)+len(p))
	copy(x, q)
	copy(x[len(q):], p)
	return x
}

// axpy returns x + a*y without modifying x.
func axpy(x []float64, a float64, y []float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = x[i] + a*y[i]
	}
	return out
}
