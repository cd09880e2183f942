package dynamo

import (
	"math"
	"time"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// Halves returns the position and momentum halves of s. Both alias s.
func (s State) Halves() (q, p State) {
	half := len(s) / 2
	return s[:half], s[half:]
}

// System is an autonomous or time-dependent ODE dx/dt = f(x, t).
type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

// Partitioned splits a system into dq/dt = Velocity(x, t) and
// dp/dt = Force(x, t), with q the first half of x and p the second.
type Partitioned interface {
	System
	Velocity(x State, t float64) State
	Force(x State, t float64) State
}

type Hamiltonian interface {
	Energy(x State) float64
}

type AngularMomentum interface {
	AngularMomentum(x State) float64
}

// Oscillator reports the dominant angular frequency of the motion near x.
type Oscillator interface {
	Frequency(x State) float64
}

type Integrator interface {
	Step(dyn System, x State, t float64, dt float64) State
}

// AdaptiveIntegrator attempts a step of size dt. On success it returns the new
// state and a suggested size for the next step. When the local error exceeds
// the tolerance it returns ErrStepRejected and the step size to retry with.
type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(dyn System, x State, t, dt float64, tol Tolerance) (State, float64, error)
}

// Callback corrects the state after every accepted step.
type Callback interface {
	Apply(x State, t float64) (State, error)
}

type CallbackFunc func(x State, t float64) (State, error)

func (f CallbackFunc) Apply(x State, t float64) (State, error) { return f(x, t) }

type Metric interface {
	Name() string
	Observe(x State, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, t float64)
}

type Tolerance struct {
	Abs float64
	Rel float64
}

type Config struct {
	Dt            float64
	Duration      float64
	Tolerance     float64
	AbsTolerance  float64
	MaxDt         float64
	MinDt         float64
	MaxSteps      int
	Adaptive      bool
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.01,
		Duration:      10.0,
		Tolerance:     1e-6,
		AbsTolerance:  1e-8,
		MaxDt:         0.1,
		MinDt:         1e-10,
		MaxSteps:      10_000_000,
		Adaptive:      false,
		ValidateState: true,
	}
}

func (c Config) Tol() Tolerance {
	return Tolerance{Abs: c.AbsTolerance, Rel: c.Tolerance}
}

// Stats counts what the stepping engine did during a run.
type Stats struct {
	Accepted  int `json:"accepted"`
	Rejected  int `json:"rejected"`
	Corrected int `json:"corrected"`
}

type Result struct {
	States       []State
	Times        []float64
	Metrics      map[string]float64
	EnergyDrift  float64
	AngularDrift float64
	StepsTaken   int
	Stats        Stats
	Errors       []error
	Elapsed      time.Duration
}

// Final returns the last recorded state, or nil for an empty result.
func (r *Result) Final() State {
	if len(r.States) == 0 {
		return nil
	}
	return r.States[len(r.States)-1]
}
