package dynamo

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
)

// Stepper advances a single trajectory one accepted step at a time. It owns
// the step-size policy: fixed steps of Config.Dt, or adaptive steps with
// rejection and retry when Config.Adaptive is set.
type Stepper struct {
	dyn        System
	integrator Integrator
	callbacks  []Callback
	cfg        Config
	logger     *slog.Logger

	x      State
	t, dt  float64
	nFixed int
	stats  Stats
	errs   []error
}

func NewStepper(dyn System, integrator Integrator, x0 State, cfg Config) (*Stepper, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if dim := dyn.StateDim(); dim > 0 && len(x0) != dim {
		return nil, fmt.Errorf("%w: state has %d components, system wants %d", ErrDimensionMismatch, len(x0), dim)
	}
	if cfg.MinDt <= 0 {
		cfg.MinDt = 1e-14
	}
	n := int(math.Ceil(cfg.Duration / cfg.Dt * (1 - 1e-12)))
	if n < 1 {
		n = 1
	}
	return &Stepper{
		dyn:        dyn,
		integrator: integrator,
		cfg:        cfg,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		x:          x0.Clone(),
		dt:         cfg.Dt,
		nFixed:     n,
	}, nil
}

func ValidateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	if cfg.Adaptive && cfg.Tolerance <= 0 && cfg.AbsTolerance <= 0 {
		return fmt.Errorf("tolerance must be positive for adaptive stepping")
	}
	if cfg.MaxDt > 0 && cfg.MinDt > cfg.MaxDt {
		return fmt.Errorf("min dt %g exceeds max dt %g", cfg.MinDt, cfg.MaxDt)
	}
	return nil
}

func (s *Stepper) SetLogger(l *slog.Logger) {
	if l != nil {
		s.logger = l
	}
}

func (s *Stepper) AddCallback(cb Callback) { s.callbacks = append(s.callbacks, cb) }

func (s *Stepper) State() State  { return s.x.Clone() }
func (s *Stepper) Time() float64 { return s.t }
func (s *Stepper) Stats() Stats  { return s.stats }

// Errors returns the non-fatal errors collected so far, such as callbacks
// that failed to converge.
func (s *Stepper) Errors() []error { return s.errs }

func (s *Stepper) Done() bool {
	if !s.cfg.Adaptive {
		return s.stats.Accepted >= s.nFixed
	}
	return s.t >= s.cfg.Duration-1e-12*math.Max(1, s.cfg.Duration)
}

// Advance performs one accepted step and returns the new state. Errors are
// fatal for the trajectory.
func (s *Stepper) Advance() (State, error) {
	if s.cfg.MaxSteps > 0 && s.stats.Accepted >= s.cfg.MaxSteps {
		return s.x, &SimulationError{Step: s.stats.Accepted, Time: s.t, State: s.x.Clone(), Wrapped: ErrMaxSteps}
	}

	var (
		xNew State
		dt   float64
		err  error
	)
	if s.cfg.Adaptive {
		xNew, dt, err = s.adaptiveStep()
		if err != nil {
			return s.x, err
		}
	} else {
		dt = s.fixedDt()
		xNew = s.integrator.Step(s.dyn, s.x, s.t, dt)
	}

	step := s.stats.Accepted
	if s.cfg.ValidateState && !xNew.IsValid() {
		return s.x, &SimulationError{Step: step, Time: s.t, State: s.x.Clone(), Wrapped: ErrInvalidState}
	}

	switch {
	case s.cfg.Adaptive:
		s.t += dt
	case step+1 == s.nFixed:
		s.t = s.cfg.Duration
	default:
		s.t = float64(step+1) * s.cfg.Dt
	}
	s.stats.Accepted++

	for _, cb := range s.callbacks {
		y, cbErr := cb.Apply(xNew, s.t)
		if y != nil {
			xNew = y
		}
		if cbErr != nil {
			s.errs = append(s.errs, &SimulationError{Step: step, Time: s.t, State: xNew.Clone(), Wrapped: cbErr})
			s.logger.Debug("callback failed", "t", s.t, "error", cbErr)
			continue
		}
		s.stats.Corrected++
	}

	s.x = xNew
	return s.x, nil
}

// fixedDt is Config.Dt, except for the last step, which is shortened so the
// run ends exactly at Duration.
func (s *Stepper) fixedDt() float64 {
	if s.stats.Accepted+1 == s.nFixed {
		return s.cfg.Duration - float64(s.stats.Accepted)*s.cfg.Dt
	}
	return s.cfg.Dt
}

func (s *Stepper) adaptiveStep() (State, float64, error) {
	tol := s.cfg.Tol()
	for {
		dt := s.dt
		remaining := s.cfg.Duration - s.t
		if dt > remaining {
			dt = remaining
		}

		var (
			xNew   State
			dtNext float64
			err    error
		)
		if adaptive, ok := s.integrator.(AdaptiveIntegrator); ok {
			xNew, dtNext, err = adaptive.StepAdaptive(s.dyn, s.x, s.t, dt, tol)
		} else {
			xNew, dtNext, err = s.doublingStep(dt, tol)
		}

		if errors.Is(err, ErrStepRejected) {
			s.stats.Rejected++
			s.logger.Debug("step rejected", "t", s.t, "dt", dt, "retry", dtNext)
			if dtNext < s.cfg.MinDt {
				return nil, 0, &SimulationError{Step: s.stats.Accepted, Time: s.t, State: s.x.Clone(), Wrapped: ErrStepTooSmall}
			}
			s.dt = dtNext
			continue
		}
		if err != nil {
			return nil, 0, &SimulationError{Step: s.stats.Accepted, Time: s.t, State: s.x.Clone(), Wrapped: err}
		}

		if s.cfg.MaxDt > 0 {
			dtNext = math.Min(dtNext, s.cfg.MaxDt)
		}
		// A step shortened to hit Duration says nothing about the next size.
		if dt == s.dt {
			s.dt = math.Max(dtNext, s.cfg.MinDt)
		}
		return xNew, dt, nil
	}
}

// doublingStep estimates the local error of a fixed-step integrator by
// comparing one full step against two half steps.
func (s *Stepper) doublingStep(dt float64, tol Tolerance) (State, float64, error) {
	x1 := s.integrator.Step(s.dyn, s.x, s.t, dt)
	xHalf := s.integrator.Step(s.dyn, s.x, s.t, dt/2)
	x2 := s.integrator.Step(s.dyn, xHalf, s.t+dt/2, dt/2)

	errRatio := ErrorNorm(x1.Sub(x2), s.x, x2, tol)
	if math.IsNaN(errRatio) || errRatio > 1 {
		return nil, dt / 2, ErrStepRejected
	}

	dtNext := dt
	if errRatio < 0.1 {
		dtNext = dt * 2
	}
	return x2, dtNext, nil
}
