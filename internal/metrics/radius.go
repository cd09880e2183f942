package metrics

import (
	"math"

	"github.com/san-kum/keplersim/internal/dynamo"
)

func radius(x dynamo.State) float64 {
	q, _ := x.Halves()
	return math.Sqrt(q[0]*q[0] + q[1]*q[1])
}

// Escape is the fraction of samples farther than Radius from the origin.
type Escape struct {
	name    string
	Radius  float64
	escaped int
	samples int
}

func NewEscape(r float64) *Escape {
	return &Escape{
		name:   "escape",
		Radius: r,
	}
}

func (e *Escape) Name() string { return e.name }

func (e *Escape) Observe(x dynamo.State, t float64) {
	e.samples++
	if r := radius(x); r > e.Radius || math.IsNaN(r) {
		e.escaped++
	}
}

func (e *Escape) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return float64(e.escaped) / float64(e.samples)
}

func (e *Escape) Reset() {
	e.escaped = 0
	e.samples = 0
}

// Periapsis is the closest approach seen so far.
type Periapsis struct {
	name string
	min  float64
}

func NewPeriapsis() *Periapsis {
	return &Periapsis{name: "periapsis", min: math.Inf(1)}
}

func (p *Periapsis) Name() string { return p.name }

func (p *Periapsis) Observe(x dynamo.State, t float64) {
	p.min = math.Min(p.min, radius(x))
}

func (p *Periapsis) Value() float64 {
	if math.IsInf(p.min, 1) {
		return 0
	}
	return p.min
}

func (p *Periapsis) Reset() { p.min = math.Inf(1) }

// Apoapsis is the farthest distance seen so far.
type Apoapsis struct {
	name string
	max  float64
}

func NewApoapsis() *Apoapsis {
	return &Apoapsis{name: "apoapsis"}
}

func (a *Apoapsis) Name() string { return a.name }

func (a *Apoapsis) Observe(x dynamo.State, t float64) {
	a.max = math.Max(a.max, radius(x))
}

func (a *Apoapsis) Value() float64 { return a.max }

func (a *Apoapsis) Reset() { a.max = 0 }
