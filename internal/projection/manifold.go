package projection

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/keplersim/internal/dynamo"
)

// Manifold is a dynamo.Callback that pulls each accepted state back onto
// the level set of its residual with Gauss-Newton iterations. Each
// correction is the minimum-norm solution of J·δ = r.
type Manifold struct {
	Residual Residual
	Tol      float64
	MaxIter  int

	n    int
	r    []float64
	jac  *mat.Dense
	svd  mat.SVD
	step *mat.VecDense
	fd   fd.JacobianSettings
}

// NewManifold builds the projection for mode around the invariants of x0.
func NewManifold(mode Mode, sys Invariants, x0 dynamo.State) (*Manifold, error) {
	res, err := NewResidual(mode, sys, x0)
	if err != nil {
		return nil, err
	}
	return NewManifoldFunc(res, len(x0)), nil
}

// NewManifoldFunc projects onto the zero set of an arbitrary residual of a
// state with n components.
func NewManifoldFunc(res Residual, n int) *Manifold {
	return &Manifold{
		Residual: res,
		Tol:      1e-12,
		MaxIter:  10,
		n:        n,
		r:        make([]float64, n),
		jac:      mat.NewDense(n, n, nil),
		step:     mat.NewVecDense(n, nil),
		fd:       fd.JacobianSettings{Formula: fd.Central},
	}
}

// Apply returns the projected state. When the iteration fails the best
// iterate is returned together with an error wrapping ErrNotConverged.
func (m *Manifold) Apply(x dynamo.State, t float64) (dynamo.State, error) {
	if len(x) != m.n {
		return nil, fmt.Errorf("%w: projection built for %d components, got %d", dynamo.ErrDimensionMismatch, m.n, len(x))
	}

	y := x.Clone()
	best, bestNorm := y.Clone(), math.Inf(1)

	for iter := 0; iter <= m.MaxIter; iter++ {
		m.Residual(m.r, y)
		norm := floats.Norm(m.r, math.Inf(1))
		if math.IsNaN(norm) {
			break
		}
		if norm < bestNorm {
			bestNorm = norm
			copy(best, y)
		}
		if norm <= m.Tol {
			return y, nil
		}
		if iter == m.MaxIter {
			break
		}

		fd.Jacobian(m.jac, m.Residual, y, &m.fd)
		if ok := m.svd.Factorize(m.jac, mat.SVDThin); !ok {
			return best, fmt.Errorf("%w at t=%g: jacobian factorization failed", ErrNotConverged, t)
		}
		rank := m.svd.Rank(1e-12)
		if rank == 0 {
			return best, fmt.Errorf("%w at t=%g: singular jacobian", ErrNotConverged, t)
		}
		m.svd.SolveVecTo(m.step, mat.NewVecDense(m.n, m.r), rank)
		floats.Sub(y, m.step.RawVector().Data)
	}

	return best, fmt.Errorf("%w at t=%g: residual %.3e after %d iterations", ErrNotConverged, t, bestNorm, m.MaxIter)
}
