package experiment

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/keplersim/internal/dynamo"
	"github.com/san-kum/keplersim/internal/integrators"
	"github.com/san-kum/keplersim/internal/metrics"
	"github.com/san-kum/keplersim/internal/projection"
)

var ErrUnknownIntegrator = errors.New("unknown integrator")

// Integrator families.
const (
	FamilyBaseline   = "baseline"
	FamilySymplectic = "symplectic"
	FamilyNystrom    = "nystrom"
	FamilyPeriodic   = "periodic"
	FamilyRungeKutta = "runge-kutta"
)

type IntegratorInfo struct {
	Name        string
	Family      string
	Order       int
	Description string
	New         func() dynamo.Integrator
}

// Adaptive reports whether the integrator estimates its own local error.
func (i IntegratorInfo) Adaptive() bool {
	_, ok := i.New().(dynamo.AdaptiveIntegrator)
	return ok
}

type Registry struct {
	integrators map[string]IntegratorInfo
	aliases     map[string]string
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]IntegratorInfo),
		aliases:     make(map[string]string),
	}

	r.add(IntegratorInfo{"euler", FamilyBaseline, 1, "explicit Euler",
		func() dynamo.Integrator { return integrators.NewEuler() }})
	r.add(IntegratorInfo{"symplectic-euler", FamilySymplectic, 1, "kick then drift",
		func() dynamo.Integrator { return integrators.NewSymplecticEuler() }})
	r.add(IntegratorInfo{"verlet", FamilySymplectic, 2, "velocity Störmer-Verlet",
		func() dynamo.Integrator { return integrators.NewVerlet() }})
	r.add(IntegratorInfo{"leapfrog", FamilySymplectic, 2, "position Störmer-Verlet",
		func() dynamo.Integrator { return integrators.NewLeapfrog() }})
	r.add(IntegratorInfo{"yoshida4", FamilySymplectic, 4, "triple jump of Verlet",
		func() dynamo.Integrator { return integrators.NewYoshida4() }})
	r.add(IntegratorInfo{"yoshida6", FamilySymplectic, 6, "Yoshida composition of Verlet",
		func() dynamo.Integrator { return integrators.NewYoshida6() }})
	r.add(IntegratorInfo{"rkn4", FamilyNystrom, 4, "adaptive Runge-Kutta-Nyström",
		func() dynamo.Integrator { return integrators.NewRKN4() }})
	r.add(IntegratorInfo{"erkn", FamilyPeriodic, 2, "trigonometric method for oscillatory orbits",
		func() dynamo.Integrator { return integrators.NewERKN() }})
	r.add(IntegratorInfo{"erkn4", FamilyPeriodic, 4, "triple jump of the trigonometric method",
		func() dynamo.Integrator { return integrators.NewERKN4() }})
	r.add(IntegratorInfo{"rk4", FamilyRungeKutta, 4, "classical Runge-Kutta",
		func() dynamo.Integrator { return integrators.NewRK4() }})
	r.add(IntegratorInfo{"rk45", FamilyRungeKutta, 5, "adaptive Dormand-Prince",
		func() dynamo.Integrator { return integrators.NewRK45() }})
	r.add(IntegratorInfo{"tsit5", FamilyRungeKutta, 5, "adaptive Tsitouras",
		func() dynamo.Integrator { return integrators.NewTsit5() }})
	r.add(IntegratorInfo{"bs3", FamilyRungeKutta, 3, "adaptive Bogacki-Shampine",
		func() dynamo.Integrator { return integrators.NewERK(integrators.BogackiShampine()) }})

	r.aliases["dopri5"] = "rk45"
	r.aliases["stormer-verlet"] = "verlet"
	return r
}

func (r *Registry) add(info IntegratorInfo) {
	r.integrators[info.Name] = info
}

func (r *Registry) Info(name string) (IntegratorInfo, error) {
	if alias, ok := r.aliases[name]; ok {
		name = alias
	}
	info, ok := r.integrators[name]
	if !ok {
		return IntegratorInfo{}, fmt.Errorf("%w: %s", ErrUnknownIntegrator, name)
	}
	return info, nil
}

// GetIntegrator returns a fresh integrator. Integrators keep scratch space
// and must not be shared between concurrent runs.
func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	info, err := r.Info(name)
	if err != nil {
		return nil, err
	}
	return info.New(), nil
}

// ListIntegrators returns every integrator sorted by family, then order.
func (r *Registry) ListIntegrators() []IntegratorInfo {
	out := make([]IntegratorInfo, 0, len(r.integrators))
	for _, info := range r.integrators {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Family != out[j].Family {
			return out[i].Family < out[j].Family
		}
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (r *Registry) ListModes() []projection.Mode {
	return []projection.Mode{projection.ModeNone, projection.ModeFull, projection.ModeEnergy, projection.ModeAngular}
}

// DefaultMetrics are the per-run measurements of a Kepler experiment.
func (r *Registry) DefaultMetrics(sys dynamo.System, escapeRadius float64) []dynamo.Metric {
	return []dynamo.Metric{
		metrics.NewEnergyDrift(sys),
		metrics.NewAngularMomentumDrift(sys),
		metrics.NewEscape(escapeRadius),
		metrics.NewPeriapsis(),
		metrics.NewApoapsis(),
	}
}
