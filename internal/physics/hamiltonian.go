package physics

import (
	"gonum.org/v1/gonum/num/dual"

	"github.com/san-kum/keplersim/internal/dynamo"
)

// HamiltonianFunc evaluates H(q, p) on dual numbers so that a single
// evaluation with one seeded coordinate yields that partial derivative.
type HamiltonianFunc func(q, p []dual.Number) dual.Number

// Hamiltonian is the canonical system q' = ∂H/∂p, p' = −∂H/∂q with the
// gradients of H obtained by forward-mode automatic differentiation.
type Hamiltonian struct {
	DOF int
	H   HamiltonianFunc

	q, p []dual.Number
}

func NewHamiltonian(dof int, h HamiltonianFunc) *Hamiltonian {
	return &Hamiltonian{
		DOF: dof,
		H:   h,
		q:   make([]dual.Number, dof),
		p:   make([]dual.Number, dof),
	}
}

func (h *Hamiltonian) StateDim() int { return 2 * h.DOF }

func (h *Hamiltonian) load(x dynamo.State) {
	for i := 0; i < h.DOF; i++ {
		h.q[i] = dual.Number{Real: x[i]}
		h.p[i] = dual.Number{Real: x[h.DOF+i]}
	}
}

// partials seeds each coordinate of vars in turn and collects ∂H/∂vars[i].
func (h *Hamiltonian) partials(vars []dual.Number) []float64 {
	grad := make([]float64, len(vars))
	for i := range vars {
		vars[i].Emag = 1
		grad[i] = h.H(h.q, h.p).Emag
		vars[i].Emag = 0
	}
	return grad
}

// Gradient returns ∂H/∂q and ∂H/∂p at x.
func (h *Hamiltonian) Gradient(x dynamo.State) (dq, dp []float64) {
	h.load(x)
	return h.partials(h.q), h.partials(h.p)
}

func (h *Hamiltonian) Velocity(x dynamo.State, t float64) dynamo.State {
	h.load(x)
	return dynamo.State(h.partials(h.p))
}

func (h *Hamiltonian) Force(x dynamo.State, t float64) dynamo.State {
	h.load(x)
	dq := h.partials(h.q)
	f := make(dynamo.State, len(dq))
	for i, v := range dq {
		f[i] = -v
	}
	return f
}

func (h *Hamiltonian) Derive(x dynamo.State, t float64) dynamo.State {
	dq, dp := h.Gradient(x)
	dx := make(dynamo.State, 2*h.DOF)
	for i := 0; i < h.DOF; i++ {
		dx[i] = dp[i]
		dx[h.DOF+i] = -dq[i]
	}
	return dx
}

func (h *Hamiltonian) Energy(x dynamo.State) float64 {
	h.load(x)
	return h.H(h.q, h.p).Real
}
