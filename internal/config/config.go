package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/keplersim/internal/dynamo"
	"github.com/san-kum/keplersim/internal/projection"
)

const (
	DefaultDt           = 0.01
	DefaultDuration     = 20.0
	DefaultTolerance    = 1e-8
	DefaultAbsTolerance = 1e-10
	DefaultEscapeRadius = 10.0
)

// Stepping policies.
const (
	SteppingAuto     = "auto"
	SteppingFixed    = "fixed"
	SteppingAdaptive = "adaptive"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Name         string          `yaml:"name"`
	Integrator   string          `yaml:"integrator"`
	Projection   string          `yaml:"projection"`
	Stepping     string          `yaml:"stepping"`
	Dt           float64         `yaml:"dt"`
	Duration     float64         `yaml:"duration"`
	Tolerance    float64         `yaml:"tolerance"`
	AbsTolerance float64         `yaml:"abs_tolerance"`
	MaxSteps     int             `yaml:"max_steps"`
	EscapeRadius float64         `yaml:"escape_radius"`
	LogLevel     string          `yaml:"log_level"`
	InitState    InitStateConfig `yaml:"init_state"`
}

// InitStateConfig is the initial position q and momentum p.
type InitStateConfig struct {
	Q1 float64 `yaml:"q1"`
	Q2 float64 `yaml:"q2"`
	P1 float64 `yaml:"p1"`
	P2 float64 `yaml:"p2"`
}

// DefaultConfig is an orbit with eccentricity 0.6 integrated by Störmer-Verlet
// without projection.
func DefaultConfig() *Config {
	return &Config{
		Name:         "eccentric",
		Integrator:   "verlet",
		Projection:   "none",
		Stepping:     SteppingAuto,
		Dt:           DefaultDt,
		Duration:     DefaultDuration,
		Tolerance:    DefaultTolerance,
		AbsTolerance: DefaultAbsTolerance,
		EscapeRadius: DefaultEscapeRadius,
		LogLevel:     "warn",
		InitState:    InitStateConfig{Q1: 0.4, P2: 2},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

func (c *Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrInvalid, c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %g", ErrInvalid, c.Duration)
	}
	if _, err := c.Mode(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	switch c.stepping() {
	case SteppingAuto, SteppingFixed:
	case SteppingAdaptive:
		if c.Tolerance <= 0 && c.AbsTolerance <= 0 {
			return fmt.Errorf("%w: adaptive stepping needs a positive tolerance", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown stepping %q", ErrInvalid, c.Stepping)
	}
	if c.InitState.Q1 == 0 && c.InitState.Q2 == 0 {
		return fmt.Errorf("%w: initial position is at the central body", ErrInvalid)
	}
	return nil
}

func (c *Config) stepping() string {
	s := strings.ToLower(strings.TrimSpace(c.Stepping))
	if s == "" {
		return SteppingAuto
	}
	return s
}

// Mode parses the projection field.
func (c *Config) Mode() (projection.Mode, error) {
	return projection.ParseMode(c.Projection)
}

func (c *Config) State() dynamo.State {
	s := c.InitState
	return dynamo.State{s.Q1, s.Q2, s.P1, s.P2}
}

// SimConfig converts the file settings into engine settings. adaptive
// resolves the auto policy, which the caller decides from the integrator.
func (c *Config) SimConfig(adaptive bool) dynamo.Config {
	switch c.stepping() {
	case SteppingFixed:
		adaptive = false
	case SteppingAdaptive:
		adaptive = true
	}
	return dynamo.Config{
		Dt:            c.Dt,
		Duration:      c.Duration,
		Tolerance:     c.Tolerance,
		AbsTolerance:  c.AbsTolerance,
		MaxSteps:      c.MaxSteps,
		Adaptive:      adaptive,
		ValidateState: true,
	}
}
