package projection

import (
	"fmt"
	"strings"

	"github.com/san-kum/keplersim/internal/dynamo"
)

// Mode selects which invariants a projection enforces.
type Mode int

const (
	ModeNone Mode = iota
	ModeFull
	ModeEnergy
	ModeAngular
)

var modeNames = map[Mode]string{
	ModeNone:    "none",
	ModeFull:    "full",
	ModeEnergy:  "energy",
	ModeAngular: "angular",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Next cycles through the modes in declaration order.
func (m Mode) Next() Mode {
	return (m + 1) % Mode(len(modeNames))
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "off":
		return ModeNone, nil
	case "full", "both":
		return ModeFull, nil
	case "energy", "h":
		return ModeEnergy, nil
	case "angular", "l", "angular-momentum":
		return ModeAngular, nil
	}
	return ModeNone, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Invariants is a system with both conserved quantities.
type Invariants interface {
	dynamo.Hamiltonian
	dynamo.AngularMomentum
}

// Residual writes the constraint violation at x into dst. Both slices have
// the length of the state.
type Residual func(dst, x []float64)

// broadcast fills the position half of dst with dh and the momentum half
// with dl.
func broadcast(dst []float64, dh, dl float64) {
	half := len(dst) / 2
	for i := range dst {
		if i < half {
			dst[i] = dh
		} else {
			dst[i] = dl
		}
	}
}

// FullResidual drives both H and L back to their values at x0.
func FullResidual(sys Invariants, x0 dynamo.State) Residual {
	h0, l0 := sys.Energy(x0), sys.AngularMomentum(x0)
	return func(dst, x []float64) {
		broadcast(dst, h0-sys.Energy(x), l0-sys.AngularMomentum(x))
	}
}

// EnergyResidual constrains H only.
func EnergyResidual(sys Invariants, x0 dynamo.State) Residual {
	h0 := sys.Energy(x0)
	return func(dst, x []float64) {
		broadcast(dst, h0-sys.Energy(x), 0)
	}
}

// AngularResidual constrains L only.
func AngularResidual(sys Invariants, x0 dynamo.State) Residual {
	l0 := sys.AngularMomentum(x0)
	return func(dst, x []float64) {
		broadcast(dst, 0, l0-sys.AngularMomentum(x))
	}
}

func NewResidual(mode Mode, sys Invariants, x0 dynamo.State) (Residual, error) {
	switch mode {
	case ModeFull:
		return FullResidual(sys, x0), nil
	case ModeEnergy:
		return EnergyResidual(sys, x0), nil
	case ModeAngular:
		return AngularResidual(sys, x0), nil
	case ModeNone:
		return nil, fmt.Errorf("%w: mode none has no residual", ErrUnknownMode)
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownMode, mode)
}
