package physics

import (
	"math"

	"gonum.org/v1/gonum/num/dual"

	"github.com/san-kum/keplersim/internal/dynamo"
)

// Vec2 is a planar vector.
type Vec2 [2]float64

func (v Vec2) Norm() float64 { return math.Sqrt(v[0]*v[0] + v[1]*v[1]) }

func (v Vec2) Dot(w Vec2) float64 { return v[0]*w[0] + v[1]*w[1] }

// H is the Kepler Hamiltonian ‖p‖²/2 − 1/‖q‖. It is not finite at q = 0.
func H(q, p Vec2) float64 {
	return (p[0]*p[0]+p[1]*p[1])/2 - 1/math.Sqrt(q[0]*q[0]+q[1]*q[1])
}

// L is the planar angular momentum q1·p2 − p1·q2.
func L(q, p Vec2) float64 {
	return q[0]*p[1] - p[0]*q[1]
}

// Split reads a [q1, q2, p1, p2] state.
func Split(x dynamo.State) (q, p Vec2) {
	return Vec2{x[0], x[1]}, Vec2{x[2], x[3]}
}

func Join(q, p Vec2) dynamo.State {
	return dynamo.State{q[0], q[1], p[0], p[1]}
}

func keplerHamiltonian(q, p []dual.Number) dual.Number {
	kinetic := dual.Scale(0.5, dual.Add(dual.Mul(p[0], p[0]), dual.Mul(p[1], p[1])))
	r := dual.Sqrt(dual.Add(dual.Mul(q[0], q[0]), dual.Mul(q[1], q[1])))
	return dual.Sub(kinetic, dual.Inv(r))
}

// Kepler is the planar two-body problem in reduced units (μ = 1) with state
// [q1, q2, p1, p2].
type Kepler struct {
	*Hamiltonian
}

func NewKepler() *Kepler {
	return &Kepler{Hamiltonian: NewHamiltonian(2, keplerHamiltonian)}
}

// DefaultState is an orbit with e = 0.6 and a = 1 starting at periapsis.
func (k *Kepler) DefaultState() dynamo.State {
	return Join(Vec2{0.4, 0}, Vec2{0, 2})
}

func (k *Kepler) Energy(x dynamo.State) float64 {
	return H(Split(x))
}

func (k *Kepler) AngularMomentum(x dynamo.State) float64 {
	return L(Split(x))
}

// Frequency is the mean motion of a circular orbit through the current
// radius, ‖q‖^(-3/2).
func (k *Kepler) Frequency(x dynamo.State) float64 {
	q, _ := Split(x)
	return math.Pow(q.Norm(), -1.5)
}
