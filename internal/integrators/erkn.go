package integrators

import (
	"math"

	"github.com/san-kum/keplersim/internal/dynamo"
)

// ERKN is Deuflhard's trigonometric method for d²q/dt² = f(q), written as the
// oscillator d²q/dt² = −ω²q + g(q) with g(q) = f(q) + ω²q. The frequency comes
// from dynamo.Oscillator and is frozen for the duration of a step. Systems
// without a frequency get ω = 0, which is Störmer-Verlet.
type ERKN struct{}

func NewERKN() *ERKN {
	return &ERKN{}
}

func (e *ERKN) Step(dyn dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	return e.advance(dynamo.Split(dyn), x, t, dt, frequency(dyn, x))
}

func frequency(dyn dynamo.System, x dynamo.State) float64 {
	if osc, ok := dyn.(dynamo.Oscillator); ok {
		return osc.Frequency(x)
	}
	return 0
}

// advance takes one step with a fixed ω. For fixed ω the map is symmetric.
func (e *ERKN) advance(ps dynamo.Partitioned, x dynamo.State, t, dt, omega float64) dynamo.State {
	q, p := x.Halves()
	w2 := omega * omega

	xi := dt * omega
	cos, sin := math.Cos(xi), math.Sin(xi)
	sinc, sinOverOmega := 1.0, dt
	if xi != 0 {
		sinc = sin / xi
		sinOverOmega = sin / omega
	}

	g0 := ps.Force(x, t)
	for i := range g0 {
		g0[i] += w2 * q[i]
	}

	q1 := make([]float64, len(q))
	for i := range q {
		q1[i] = cos*q[i] + sinOverOmega*p[i] + dt*dt/2*sinc*g0[i]
	}

	g1 := ps.Force(join(q1, p), t+dt)
	for i := range g1 {
		g1[i] += w2 * q1[i]
	}

	p1 := make([]float64, len(p))
	for i := range p {
		p1[i] = -omega*sin*q[i] + cos*p[i] + dt/2*(cos*g0[i]+g1[i])
	}
	return join(q1, p1)
}

// ERKN4 composes ERKN with the triple jump. ω is taken once at the start of
// the full step so every substep uses the same splitting.
type ERKN4 struct {
	base    *ERKN
	weights []float64
}

func NewERKN4() *ERKN4 {
	return &ERKN4{base: NewERKN(), weights: TripleJump(2)}
}

func (e *ERKN4) Step(dyn dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	ps := dynamo.Split(dyn)
	omega := frequency(dyn, x)
	for _, w := range e.weights {
		x = e.base.advance(ps, x, t, w*dt, omega)
		t += w * dt
	}
	return x
}
