package integrators

import (
	"math"

	"github.com/san-kum/keplersim/internal/dynamo"
)

// Composition raises the order of a symmetric base method by chaining
// substeps of sizes Weights[i]·dt.
type Composition struct {
	Base    dynamo.Integrator
	Weights []float64
}

// TripleJump returns the weights that lift a symmetric method of even order
// p to order p+2.
func TripleJump(p int) []float64 {
	r := math.Pow(2, 1/float64(p+1))
	w1 := 1 / (2 - r)
	w0 := -r / (2 - r)
	return []float64{w1, w0, w1}
}

// NewYoshida4 composes Störmer-Verlet into a fourth order method.
func NewYoshida4() *Composition {
	return &Composition{Base: NewVerlet(), Weights: TripleJump(2)}
}

// NewYoshida6 is Yoshida's sixth order solution A.
func NewYoshida6() *Composition {
	w1 := -1.17767998417887
	w2 := 0.235573213359357
	w3 := 0.784513610477560
	w0 := 1 - 2*(w1+w2+w3)
	return &Composition{
		Base:    NewVerlet(),
		Weights: []float64{w3, w2, w1, w0, w1, w2, w3},
	}
}

func (c *Composition) Step(dyn dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	for _, w := range c.Weights {
		x = c.Base.Step(dyn, x, t, w*dt)
		t += w * dt
	}
	return x
}
