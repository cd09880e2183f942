package config

import (
	"math"
	"sort"
)

// Preset is a named scenario.
type Preset struct {
	Description string
	Config      Config
}

var Presets = map[string]Preset{
	"eccentric": {
		Description: "e = 0.6, a = 1, starting at periapsis",
		Config: Config{
			Name: "eccentric", Integrator: "verlet", Projection: "none", Stepping: SteppingAuto,
			Dt: 0.01, Duration: 20.0, Tolerance: DefaultTolerance, AbsTolerance: DefaultAbsTolerance,
			EscapeRadius: DefaultEscapeRadius, LogLevel: "warn",
			InitState: InitStateConfig{Q1: 0.4, P2: 2},
		},
	},
	"circular": {
		Description: "e = 0, r = 1",
		Config: Config{
			Name: "circular", Integrator: "erkn4", Projection: "none", Stepping: SteppingAuto,
			Dt: 0.05, Duration: 20.0, Tolerance: DefaultTolerance, AbsTolerance: DefaultAbsTolerance,
			EscapeRadius: DefaultEscapeRadius, LogLevel: "warn",
			InitState: InitStateConfig{Q1: 1, P2: 1},
		},
	},
	"elongated": {
		Description: "e = 0.9, close periapsis passage",
		Config: Config{
			Name: "elongated", Integrator: "rk45", Projection: "none", Stepping: SteppingAuto,
			Dt: 0.001, Duration: 20.0, Tolerance: DefaultTolerance, AbsTolerance: DefaultAbsTolerance,
			EscapeRadius: DefaultEscapeRadius, LogLevel: "warn",
			InitState: InitStateConfig{Q1: 0.1, P2: math.Sqrt(19)},
		},
	},
	"long": {
		Description: "e = 0.6 over 100 periods",
		Config: Config{
			Name: "long", Integrator: "yoshida4", Projection: "none", Stepping: SteppingFixed,
			Dt: 0.01, Duration: 200 * math.Pi, Tolerance: DefaultTolerance, AbsTolerance: DefaultAbsTolerance,
			EscapeRadius: DefaultEscapeRadius, LogLevel: "warn",
			InitState: InitStateConfig{Q1: 0.4, P2: 2},
		},
	},
	"projected": {
		Description: "explicit Euler held on the invariant manifold",
		Config: Config{
			Name: "projected", Integrator: "euler", Projection: "full", Stepping: SteppingFixed,
			Dt: 0.001, Duration: 10.0, Tolerance: DefaultTolerance, AbsTolerance: DefaultAbsTolerance,
			EscapeRadius: DefaultEscapeRadius, LogLevel: "warn",
			InitState: InitStateConfig{Q1: 0.4, P2: 2},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := p.Config
	return &cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
