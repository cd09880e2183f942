package physics

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/keplersim/internal/dynamo"
)

var (
	ErrUnbound    = errors.New("orbit is not bound")
	ErrDegenerate = errors.New("orbit is degenerate")
)

// Elements are the conic elements of a bound orbit.
type Elements struct {
	Energy             float64 `json:"energy"`
	AngularMomentum    float64 `json:"angular_momentum"`
	SemiMajor          float64 `json:"semi_major"`
	Eccentricity       float64 `json:"eccentricity"`
	EccentricityVector Vec2    `json:"ecc_vector"`
	Period             float64 `json:"period"`
}

// ElementsOf computes the orbital elements of x. The eccentricity vector
// points at periapsis.
func ElementsOf(x dynamo.State) (Elements, error) {
	q, p := Split(x)
	r := q.Norm()
	if r == 0 {
		return Elements{}, fmt.Errorf("%w: collision state", ErrDegenerate)
	}
	h, l := H(q, p), L(q, p)
	if h >= 0 {
		return Elements{}, fmt.Errorf("%w: H = %g", ErrUnbound, h)
	}

	a := -1 / (2 * h)
	e := math.Sqrt(math.Max(0, 1+2*h*l*l))
	return Elements{
		Energy:             h,
		AngularMomentum:    l,
		SemiMajor:          a,
		Eccentricity:       e,
		EccentricityVector: Vec2{p[1]*l - q[0]/r, -p[0]*l - q[1]/r},
		Period:             2 * math.Pi * math.Pow(a, 1.5),
	}, nil
}

// Propagate advances x along its exact Kepler orbit by t.
func Propagate(x dynamo.State, t float64) (dynamo.State, error) {
	el, err := ElementsOf(x)
	if err != nil {
		return nil, err
	}
	if el.AngularMomentum == 0 {
		return nil, fmt.Errorf("%w: radial orbit", ErrDegenerate)
	}

	q, p := Split(x)
	a, e := el.SemiMajor, el.Eccentricity
	n := math.Pow(a, -1.5)
	b := a * math.Sqrt(1-e*e)

	var ex Vec2
	var e0 float64
	if e < 1e-10 {
		// Circular: measure the anomaly from the current position.
		e = 0
		r := q.Norm()
		ex = Vec2{q[0] / r, q[1] / r}
	} else {
		ex = Vec2{el.EccentricityVector[0] / e, el.EccentricityVector[1] / e}
		cosE := (1 - q.Norm()/a) / e
		sinE := q.Dot(p) / (e * math.Sqrt(a))
		e0 = math.Atan2(sinE, cosE)
	}
	ey := Vec2{-ex[1], ex[0]}
	if el.AngularMomentum < 0 {
		ey = Vec2{ex[1], -ex[0]}
	}

	m := e0 - e*math.Sin(e0) + n*t
	ecc, err := SolveKepler(m, e)
	if err != nil {
		return nil, err
	}

	cosE, sinE := math.Cos(ecc), math.Sin(ecc)
	den := 1 - e*cosE
	xp, yp := a*(cosE-e), b*sinE
	vx, vy := -a*n*sinE/den, b*n*cosE/den

	return Join(
		Vec2{xp*ex[0] + yp*ey[0], xp*ex[1] + yp*ey[1]},
		Vec2{vx*ex[0] + vy*ey[0], vx*ex[1] + vy*ey[1]},
	), nil
}

// SolveKepler solves M = E − e sin E for the eccentric anomaly by Newton
// iteration.
func SolveKepler(m, e float64) (float64, error) {
	m = math.Remainder(m, 2*math.Pi)
	ecc := m
	if e > 0.8 {
		ecc = math.Pi
		if m < 0 {
			ecc = -math.Pi
		}
	}
	for i := 0; i < 50; i++ {
		f := ecc - e*math.Sin(ecc) - m
		d := f / (1 - e*math.Cos(ecc))
		ecc -= d
		if math.Abs(d) < 1e-14 {
			return ecc, nil
		}
	}
	return ecc, fmt.Errorf("kepler equation did not converge for M=%g e=%g", m, e)
}
