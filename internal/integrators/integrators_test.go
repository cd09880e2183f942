package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/keplersim/internal/dynamo"
	"github.com/san-kum/keplersim/internal/physics"
)

type harmonicOscillator struct{}

func (h *harmonicOscillator) StateDim() int { return 2 }

func (h *harmonicOscillator) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func (h *harmonicOscillator) Energy(x dynamo.State) float64 {
	return 0.5 * (x[0]*x[0] + x[1]*x[1])
}

func integrate(integ dynamo.Integrator, dyn dynamo.System, x0 dynamo.State, dt float64, steps int) dynamo.State {
	x := x0.Clone()
	for i := 0; i < steps; i++ {
		x = integ.Step(dyn, x, float64(i)*dt, dt)
	}
	return x
}

// keplerError is the global error at t = 2 on a mildly eccentric orbit.
func keplerError(integ dynamo.Integrator, dt float64) float64 {
	k := physics.NewKepler()
	x0 := dynamo.State{1, 0, 0, 1.1}
	const T = 2.0
	x := integrate(integ, k, x0, dt, int(math.Round(T/dt)))
	exact, err := physics.Propagate(x0, T)
	if err != nil {
		panic(err)
	}
	return x.Sub(exact).Norm()
}

func TestRK4Accuracy(t *testing.T) {
	x := integrate(NewRK4(), &harmonicOscillator{}, dynamo.State{1, 0}, 0.01, 100)

	expectedX := math.Cos(1)
	expectedV := -math.Sin(1)

	if math.Abs(x[0]-expectedX) > 1e-4 {
		t.Errorf("position error too large: got %.6f, expected %.6f", x[0], expectedX)
	}
	if math.Abs(x[1]-expectedV) > 1e-4 {
		t.Errorf("velocity error too large: got %.6f, expected %.6f", x[1], expectedV)
	}
}

func TestConvergenceOrder(t *testing.T) {
	tests := []struct {
		name  string
		integ func() dynamo.Integrator
		order int
	}{
		{"euler", func() dynamo.Integrator { return NewEuler() }, 1},
		{"symplectic-euler", func() dynamo.Integrator { return NewSymplecticEuler() }, 1},
		{"verlet", func() dynamo.Integrator { return NewVerlet() }, 2},
		{"leapfrog", func() dynamo.Integrator { return NewLeapfrog() }, 2},
		{"yoshida4", func() dynamo.Integrator { return NewYoshida4() }, 4},
		{"yoshida6", func() dynamo.Integrator { return NewYoshida6() }, 6},
		{"rk4", func() dynamo.Integrator { return NewRK4() }, 4},
		{"bs3", func() dynamo.Integrator { return NewERK(BogackiShampine()) }, 3},
		{"dopri5", func() dynamo.Integrator { return NewRK45() }, 5},
		{"tsit5", func() dynamo.Integrator { return NewTsit5() }, 5},
		{"rkn4", func() dynamo.Integrator { return NewRKN4() }, 4},
		{"erkn", func() dynamo.Integrator { return NewERKN() }, 2},
		{"erkn4", func() dynamo.Integrator { return NewERKN4() }, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e1 := keplerError(tt.integ(), 0.1)
			e2 := keplerError(tt.integ(), 0.05)
			got := math.Log2(e1 / e2)
			if got < float64(tt.order)-0.5 {
				t.Errorf("observed order %.2f, want about %d (errors %.3e, %.3e)", got, tt.order, e1, e2)
			}
		})
	}
}

func TestSymplecticEnergyBounded(t *testing.T) {
	k := physics.NewKepler()
	x0 := k.DefaultState()
	h0 := k.Energy(x0)
	dt := 0.005
	perPeriod := int(math.Round(2 * math.Pi / dt))

	for _, integ := range []dynamo.Integrator{NewVerlet(), NewLeapfrog(), NewYoshida4()} {
		x := x0.Clone()
		var first, last float64
		for period := 0; period < 20; period++ {
			worst := 0.0
			for i := 0; i < perPeriod; i++ {
				x = integ.Step(k, x, 0, dt)
				worst = math.Max(worst, math.Abs(k.Energy(x)-h0))
			}
			if period == 0 {
				first = worst
			}
			last = worst
		}
		if last > 1.5*first {
			t.Errorf("%T: energy error grew from %.3e to %.3e", integ, first, last)
		}
		if math.Abs(k.AngularMomentum(x)-k.AngularMomentum(x0)) > 1e-10 {
			t.Errorf("%T: angular momentum drifted to %.12f", integ, k.AngularMomentum(x))
		}
	}
}

func TestERKNExactOnCircularOrbit(t *testing.T) {
	k := physics.NewKepler()
	dt := 0.5
	x := integrate(NewERKN(), k, dynamo.State{1, 0, 0, 1}, dt, 100)

	tf := 100 * dt
	want := dynamo.State{math.Cos(tf), math.Sin(tf), -math.Sin(tf), math.Cos(tf)}
	if d := x.Sub(want).Norm(); d > 1e-9 {
		t.Errorf("circular orbit error %.3e", d)
	}
}

func TestERKNWithoutFrequencyIsVerlet(t *testing.T) {
	dyn := &harmonicOscillator{}
	x0 := dynamo.State{0.3, 0.7}
	a := NewERKN().Step(dyn, x0, 0, 0.1)
	b := NewVerlet().Step(dyn, x0, 0, 0.1)
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-14 {
			t.Errorf("component %d: erkn %v, verlet %v", i, a[i], b[i])
		}
	}
}

func TestTripleJump(t *testing.T) {
	w := TripleJump(2)
	sum := w[0] + w[1] + w[2]
	if math.Abs(sum-1) > 1e-15 {
		t.Errorf("weights sum to %v", sum)
	}
	cube := 2*math.Pow(w[0], 3) + math.Pow(w[1], 3)
	if math.Abs(cube) > 1e-14 {
		t.Errorf("third order condition violated: %v", cube)
	}
}

func TestAdaptiveIntegrators(t *testing.T) {
	tol := dynamo.Tolerance{Abs: 1e-10, Rel: 1e-10}
	k := physics.NewKepler()
	x0 := k.DefaultState()

	for _, integ := range []dynamo.AdaptiveIntegrator{NewRK45(), NewTsit5(), NewRKN4()} {
		_, retry, err := integ.StepAdaptive(k, x0, 0, 1.0, tol)
		if !errors.Is(err, dynamo.ErrStepRejected) {
			t.Fatalf("%T: expected rejection of a large step, got %v", integ, err)
		}
		if retry >= 1.0 || retry <= 0 {
			t.Errorf("%T: retry step %v should shrink", integ, retry)
		}

		x, next, err := integ.StepAdaptive(k, x0, 0, 1e-4, tol)
		if err != nil {
			t.Fatalf("%T: small step rejected: %v", integ, err)
		}
		if next < 1e-4 {
			t.Errorf("%T: next step %v should not shrink", integ, next)
		}
		exact, _ := physics.Propagate(x0, 1e-4)
		if d := x.Sub(exact).Norm(); d > 1e-10 {
			t.Errorf("%T: step error %.3e", integ, d)
		}
	}
}

func TestRK45EnergyConservation(t *testing.T) {
	dyn := &harmonicOscillator{}
	x0 := dynamo.State{1.0, 0.0}

	x := integrate(NewRK45(), dyn, x0, 0.01, 10000)
	drift := math.Abs(dyn.Energy(x)-dyn.Energy(x0)) / dyn.Energy(x0)

	if drift > 1e-6 {
		t.Errorf("RK45 energy drift too high: %e", drift)
	}
}

func TestTableauErrorWeights(t *testing.T) {
	k := physics.NewKepler()
	x0 := k.DefaultState()
	tol := dynamo.Tolerance{Abs: 1e-8, Rel: 1e-8}

	for _, tab := range []*Tableau{DormandPrince(), Tsit5(), BogackiShampine()} {
		t.Run(tab.Name, func(t *testing.T) {
			sum := 0.0
			for _, e := range tab.E {
				sum += e
			}
			if math.Abs(sum) > 1e-14 {
				t.Errorf("error weights sum to %v", sum)
			}

			if _, _, err := NewERK(tab).StepAdaptive(k, x0, 0, 1e-4, tol); err != nil {
				t.Errorf("small step rejected: %v", err)
			}
		})
	}
}
