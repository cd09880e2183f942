package dynamo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"
)

type Simulator struct {
	dyn        System
	integrator Integrator
	callbacks  []Callback
	metrics    []Metric
	observers  []Observer
	logger     *slog.Logger
}

func New(dyn System, integrator Integrator) *Simulator {
	return &Simulator{
		dyn:        dyn,
		integrator: integrator,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (s *Simulator) AddMetric(m Metric)      { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer)  { s.observers = append(s.observers, o) }
func (s *Simulator) AddCallback(cb Callback) { s.callbacks = append(s.callbacks, cb) }
func (s *Simulator) System() System          { return s.dyn }
func (s *Simulator) Integrator() Integrator  { return s.integrator }
func (s *Simulator) SetLogger(l *slog.Logger) {
	if l != nil {
		s.logger = l
	}
}

func (s *Simulator) Run(ctx context.Context, x0 State, cfg Config) (*Result, error) {
	stepper, err := NewStepper(s.dyn, s.integrator, x0, cfg)
	if err != nil {
		return nil, err
	}
	stepper.SetLogger(s.logger)
	for _, cb := range s.callbacks {
		stepper.AddCallback(cb)
	}

	capacity := int(cfg.Duration/cfg.Dt) + 1
	if capacity > 1<<20 {
		capacity = 1 << 20
	}
	result := &Result{
		States:  make([]State, 0, capacity),
		Times:   make([]float64, 0, capacity),
		Metrics: make(map[string]float64),
		Errors:  make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	start := time.Now()
	x := x0.Clone()
	s.record(result, x, 0)

	for !stepper.Done() {
		select {
		case <-ctx.Done():
			s.finish(result, stepper, x0, start)
			return result, fmt.Errorf("%w: %w", ErrContextCanceled, ctx.Err())
		default:
		}

		next, stepErr := stepper.Advance()
		if stepErr != nil {
			if errors.Is(stepErr, ErrInvalidState) {
				s.logger.Warn("stopping on invalid state", "t", stepper.Time(), "error", stepErr)
				result.Errors = append(result.Errors, stepErr)
				break
			}
			s.finish(result, stepper, x0, start)
			return result, stepErr
		}

		x = next
		s.record(result, x.Clone(), stepper.Time())
	}

	s.finish(result, stepper, x0, start)
	return result, nil
}

func (s *Simulator) record(result *Result, x State, t float64) {
	for _, m := range s.metrics {
		m.Observe(x, t)
	}
	for _, obs := range s.observers {
		obs.OnStep(x, t)
	}
	result.States = append(result.States, x)
	result.Times = append(result.Times, t)
}

func (s *Simulator) finish(result *Result, stepper *Stepper, x0 State, start time.Time) {
	result.Elapsed = time.Since(start)
	result.Stats = stepper.Stats()
	result.StepsTaken = result.Stats.Accepted
	result.Errors = append(result.Errors, stepper.Errors()...)

	final := result.Final()
	if h, ok := s.dyn.(Hamiltonian); ok && final != nil {
		result.EnergyDrift = relativeChange(h.Energy(x0), h.Energy(final))
	}
	if l, ok := s.dyn.(AngularMomentum); ok && final != nil {
		result.AngularDrift = relativeChange(l.AngularMomentum(x0), l.AngularMomentum(final))
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

// relativeChange is |b-a|/|a|, or |b-a| when a is zero.
func relativeChange(a, b float64) float64 {
	if a == 0 {
		return math.Abs(b - a)
	}
	return math.Abs(b-a) / math.Abs(a)
}
