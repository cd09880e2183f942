package integrators

import (
	"math"

	"github.com/san-kum/keplersim/internal/dynamo"
)

// Tableau is an explicit Runge-Kutta method with an embedded error
// estimate. E holds the differences between the weights of the two
// solutions, so the local error is dt·Σ E[i]·k[i].
type Tableau struct {
	Name  string
	Order int
	C     []float64
	A     [][]float64
	B     []float64
	E     []float64
}

// DormandPrince is the Dormand-Prince 5(4) pair.
func DormandPrince() *Tableau {
	return &Tableau{
		Name:  "dopri5",
		Order: 5,
		C:     []float64{0, 1.0 / 5.0, 3.0 / 10.0, 4.0 / 5.0, 8.0 / 9.0, 1, 1},
		A: [][]float64{
			{},
			{1.0 / 5.0},
			{3.0 / 40.0, 9.0 / 40.0},
			{44.0 / 45.0, -56.0 / 15.0, 32.0 / 9.0},
			{19372.0 / 6561.0, -25360.0 / 2187.0, 64448.0 / 6561.0, -212.0 / 729.0},
			{9017.0 / 3168.0, -355.0 / 33.0, 46732.0 / 5247.0, 49.0 / 176.0, -5103.0 / 18656.0},
			{35.0 / 384.0, 0, 500.0 / 1113.0, 125.0 / 192.0, -2187.0 / 6784.0, 11.0 / 84.0},
		},
		B: []float64{35.0 / 384.0, 0, 500.0 / 1113.0, 125.0 / 192.0, -2187.0 / 6784.0, 11.0 / 84.0, 0},
		E: []float64{
			35.0/384.0 - 5179.0/57600.0,
			0,
			500.0/1113.0 - 7571.0/16695.0,
			125.0/192.0 - 393.0/640.0,
			-2187.0/6784.0 + 92097.0/339200.0,
			11.0/84.0 - 187.0/2100.0,
			-1.0 / 40.0,
		},
	}
}

// Tsit5 is the Tsitouras 5(4) pair.
func Tsit5() *Tableau {
	return &Tableau{
		Name:  "tsit5",
		Order: 5,
		C:     []float64{0, 0.161, 0.327, 0.9, 0.9800255409045097, 1, 1},
		A: [][]float64{
			{},
			{0.161},
			{-0.008480655492356924, 0.335480655492357},
			{2.8971530571054935, -6.359448489975075, 4.362295432869581},
			{5.325864828439257, -11.748883564062828, 7.4955393428898365, -0.09249506636175525},
			{5.86145544294642, -12.92096931784711, 8.159367898576159, -0.071584973281401, -0.028269050394068383},
			{0.09646076681806523, 0.01, 0.4798896504144996, 1.379008574103742, -3.290069515436081, 2.324710524099774, 0},
		},
		B: []float64{0.09646076681806523, 0.01, 0.4798896504144996, 1.379008574103742, -3.290069515436081, 2.324710524099774, 0},
		E: []float64{
			0.001780011052226,
			0.000816434459657,
			-0.007880878010262,
			0.144711007173263,
			-0.582357165452555,
			0.458082105929187,
			-1.0 / 66.0,
		},
	}
}

// BogackiShampine is the Bogacki-Shampine 3(2) pair.
func BogackiShampine() *Tableau {
	return &Tableau{
		Name:  "bs3",
		Order: 3,
		C:     []float64{0, 0.5, 0.75, 1},
		A: [][]float64{
			{},
			{0.5},
			{0, 0.75},
			{2.0 / 9.0, 1.0 / 3.0, 4.0 / 9.0},
		},
		B: []float64{2.0 / 9.0, 1.0 / 3.0, 4.0 / 9.0, 0},
		E: []float64{
			2.0/9.0 - 7.0/24.0,
			1.0/3.0 - 1.0/4.0,
			4.0/9.0 - 1.0/3.0,
			-1.0 / 8.0,
		},
	}
}

// ERK integrates any System with an explicit embedded Runge-Kutta tableau.
type ERK struct {
	Tableau  *Tableau
	safety   float64
	minScale float64
	maxScale float64

	k       []dynamo.State
	scratch dynamo.State
}

func NewERK(tab *Tableau) *ERK {
	return &ERK{
		Tableau:  tab,
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

// NewRK45 is the Dormand-Prince integrator.
func NewRK45() *ERK { return NewERK(DormandPrince()) }

func NewTsit5() *ERK { return NewERK(Tsit5()) }

func (r *ERK) ensureScratch(n int) {
	stages := len(r.Tableau.B)
	if len(r.k) != stages || len(r.scratch) != n {
		r.k = make([]dynamo.State, stages)
		for i := range r.k {
			r.k[i] = make(dynamo.State, n)
		}
		r.scratch = make(dynamo.State, n)
	}
}

// stages evaluates every stage derivative and returns the higher order
// solution.
func (r *ERK) stages(dyn dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	n := len(x)
	r.ensureScratch(n)
	tab := r.Tableau

	for s := range tab.B {
		copy(r.scratch, x)
		for j, a := range tab.A[s] {
			if a == 0 {
				continue
			}
			for i := 0; i < n; i++ {
				r.scratch[i] += dt * a * r.k[j][i]
			}
		}
		copy(r.k[s], dyn.Derive(r.scratch, t+tab.C[s]*dt))
	}

	xNew := x.Clone()
	for s, b := range tab.B {
		if b == 0 {
			continue
		}
		for i := 0; i < n; i++ {
			xNew[i] += dt * b * r.k[s][i]
		}
	}
	return xNew
}

func (r *ERK) Step(dyn dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	return r.stages(dyn, x, t, dt)
}

func (r *ERK) StepAdaptive(dyn dynamo.System, x dynamo.State, t, dt float64, tol dynamo.Tolerance) (dynamo.State, float64, error) {
	xNew := r.stages(dyn, x, t, dt)

	errEst := make(dynamo.State, len(x))
	for s, e := range r.Tableau.E {
		if e == 0 {
			continue
		}
		for i := range errEst {
			errEst[i] += dt * e * r.k[s][i]
		}
	}

	errRatio := dynamo.ErrorNorm(errEst, x, xNew, tol)
	order := r.Tableau.Order - 1
	if math.IsNaN(errRatio) {
		return nil, dt * r.minScale, dynamo.ErrStepRejected
	}
	if errRatio > 1 {
		return nil, dynamo.NextStep(dt, errRatio, order, r.safety, r.minScale, 1), dynamo.ErrStepRejected
	}
	return xNew, dynamo.NextStep(dt, errRatio, order, r.safety, r.minScale, r.maxScale), nil
}
