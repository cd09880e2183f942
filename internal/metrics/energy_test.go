package metrics

import (
	"context"
	"math"
	"testing"

	"github.com/san-kum/keplersim/internal/dynamo"
	"github.com/san-kum/keplersim/internal/integrators"
	"github.com/san-kum/keplersim/internal/physics"
)

func TestEnergyDrift(t *testing.T) {
	k := physics.NewKepler()
	m := NewEnergyDrift(k)

	m.Observe(dynamo.State{0.4, 0, 0, 2}, 0)
	if m.Value() != 0 {
		t.Errorf("expected zero drift after one sample, got %g", m.Value())
	}

	// H = -0.55
	m.Observe(dynamo.State{1, 0, 0, math.Sqrt(0.9)}, 1)
	if math.Abs(m.Value()-0.1) > 1e-12 {
		t.Errorf("expected drift 0.1, got %g", m.Value())
	}

	m.Observe(dynamo.State{0.4, 0, 0, 2}, 2)
	if math.Abs(m.Value()-0.1) > 1e-12 {
		t.Errorf("drift should keep its maximum, got %g", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero drift after reset")
	}
}

func TestAngularMomentumDrift(t *testing.T) {
	k := physics.NewKepler()
	m := NewAngularMomentumDrift(k)

	m.Observe(dynamo.State{1, 0, 0, 1}, 0)
	m.Observe(dynamo.State{1, 0, 0, 1.5}, 1)
	if math.Abs(m.Value()-0.5) > 1e-12 {
		t.Errorf("expected drift 0.5, got %g", m.Value())
	}
	if m.Name() != "angular_drift" {
		t.Errorf("unexpected name %q", m.Name())
	}
}

type plain struct{}

func (plain) StateDim() int                                 { return 4 }
func (plain) Derive(x dynamo.State, t float64) dynamo.State { return make(dynamo.State, 4) }

func TestDriftIgnoresSystemsWithoutInvariants(t *testing.T) {
	m := NewEnergyDrift(plain{})
	m.Observe(dynamo.State{1, 2, 3, 4}, 0)
	m.Observe(dynamo.State{5, 6, 7, 8}, 1)
	if m.Value() != 0 {
		t.Errorf("expected 0, got %g", m.Value())
	}

	d := DriftSeries(plain{}, &dynamo.Result{States: []dynamo.State{{1, 2, 3, 4}}, Times: []float64{0}})
	if d.Energy != nil || d.Angular != nil {
		t.Error("expected nil series")
	}
}

func TestEscape(t *testing.T) {
	e := NewEscape(10)
	e.Observe(dynamo.State{1, 0, 0, 1}, 0)
	e.Observe(dynamo.State{20, 0, 0, 1}, 1)
	e.Observe(dynamo.State{0, 11, 0, 1}, 2)
	e.Observe(dynamo.State{3, 4, 0, 1}, 3)

	if got := e.Value(); got != 0.5 {
		t.Errorf("expected escape fraction 0.5, got %g", got)
	}
	e.Reset()
	if e.Value() != 0 {
		t.Error("expected 0 after reset")
	}
}

func TestApsides(t *testing.T) {
	k := physics.NewKepler()
	sim := dynamo.New(k, integrators.NewYoshida4())
	peri, apo := NewPeriapsis(), NewApoapsis()
	sim.AddMetric(peri)
	sim.AddMetric(apo)

	cfg := dynamo.DefaultConfig()
	cfg.Dt = 0.001
	cfg.Duration = 2 * math.Pi
	res, err := sim.Run(context.Background(), k.DefaultState(), cfg)
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(res.Metrics["periapsis"]-0.4) > 1e-6 {
		t.Errorf("periapsis %g, want 0.4", res.Metrics["periapsis"])
	}
	if math.Abs(res.Metrics["apoapsis"]-1.6) > 1e-5 {
		t.Errorf("apoapsis %g, want 1.6", res.Metrics["apoapsis"])
	}
}

func TestDriftSeries(t *testing.T) {
	k := physics.NewKepler()
	sim := dynamo.New(k, integrators.NewEuler())
	cfg := dynamo.DefaultConfig()
	cfg.Duration = 1

	res, err := sim.Run(context.Background(), k.DefaultState(), cfg)
	if err != nil {
		t.Fatal(err)
	}

	d := DriftSeries(k, res)
	if len(d.Energy) != len(res.States) || len(d.Angular) != len(res.States) {
		t.Fatalf("series lengths %d, %d; want %d", len(d.Energy), len(d.Angular), len(res.States))
	}
	if d.Energy[0] != 0 || d.Angular[0] != 0 {
		t.Error("series should start at zero")
	}
	if MaxAbs(d.Energy) == 0 {
		t.Error("explicit Euler should drift in energy")
	}
	want := k.Energy(res.Final()) - k.Energy(res.States[0])
	if got := d.Energy[len(d.Energy)-1]; math.Abs(got-want) > 1e-15 {
		t.Errorf("final drift %g, want %g", got, want)
	}
}
