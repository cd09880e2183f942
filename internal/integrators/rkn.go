package integrators

import (
	"math"

	"github.com/san-kum/keplersim/internal/dynamo"
)

// RKN4 is a three stage, fourth order Runge-Kutta-Nyström method for
// d²q/dt² = f(q), with q the first half of the state and dq/dt the second. It
// estimates its local error by step doubling and returns the extrapolated
// solution.
type RKN4 struct {
	safety   float64
	minScale float64
	maxScale float64
}

func NewRKN4() *RKN4 {
	return &RKN4{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 5.0,
	}
}

func (r *RKN4) Step(dyn dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	ps := dynamo.Split(dyn)
	q, v := x.Halves()
	h2 := dt * dt

	k1 := ps.Force(x, t)
	q2 := make([]float64, len(q))
	for i := range q {
		q2[i] = q[i] + dt/2*v[i] + h2/8*k1[i]
	}
	k2 := ps.Force(join(q2, v), t+dt/2)
	q3 := make([]float64, len(q))
	for i := range q {
		q3[i] = q[i] + dt*v[i] + h2/2*k2[i]
	}
	k3 := ps.Force(join(q3, v), t+dt)

	q1 := make([]float64, len(q))
	v1 := make([]float64, len(v))
	for i := range q {
		q1[i] = q[i] + dt*v[i] + h2/6*(k1[i]+2*k2[i])
		v1[i] = v[i] + dt/6*(k1[i]+4*k2[i]+k3[i])
	}
	return join(q1, v1)
}

func (r *RKN4) StepAdaptive(dyn dynamo.System, x dynamo.State, t, dt float64, tol dynamo.Tolerance) (dynamo.State, float64, error) {
	full := r.Step(dyn, x, t, dt)
	half := r.Step(dyn, x, t, dt/2)
	two := r.Step(dyn, half, t+dt/2, dt/2)

	errEst := two.Sub(full).Scale(1.0 / 15.0)
	xNew := two.Add(errEst)

	errRatio := dynamo.ErrorNorm(errEst, x, xNew, tol)
	if math.IsNaN(errRatio) {
		return nil, dt * r.minScale, dynamo.ErrStepRejected
	}
	if errRatio > 1 {
		return nil, dynamo.NextStep(dt, errRatio, 4, r.safety, r.minScale, 1), dynamo.ErrStepRejected
	}
	return xNew, dynamo.NextStep(dt, errRatio, 4, r.safety, r.minScale, r.maxScale), nil
}
