package dynamo

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

type splitSystem struct {
	System
}

// Split returns dyn as a Partitioned system. Systems that already implement
// Partitioned are returned unchanged; otherwise the halves of Derive are used.
func Split(dyn System) Partitioned {
	if p, ok := dyn.(Partitioned); ok {
		return p
	}
	return splitSystem{dyn}
}

func (s splitSystem) Velocity(x State, t float64) State {
	dx := s.Derive(x, t)
	return dx[:len(dx)/2]
}

func (s splitSystem) Force(x State, t float64) State {
	dx := s.Derive(x, t)
	return dx[len(dx)/2:]
}

// ErrorNorm is the RMS norm of errEst scaled componentwise by
// tol.Abs + tol.Rel*max(|x|, |xNew|). A value <= 1 means the step is acceptable.
func ErrorNorm(errEst, x, xNew State, tol Tolerance) float64 {
	if len(errEst) == 0 {
		return 0
	}
	scaled := make([]float64, len(errEst))
	for i := range errEst {
		sc := tol.Abs + tol.Rel*math.Max(math.Abs(x[i]), math.Abs(xNew[i]))
		if sc == 0 {
			sc = 1e-16
		}
		scaled[i] = errEst[i] / sc
	}
	return floats.Norm(scaled, 2) / math.Sqrt(float64(len(scaled)))
}

// NextStep applies the usual safety-factor controller for a method whose
// error estimate is of the given order.
func NextStep(dt, errRatio float64, order int, safety, minScale, maxScale float64) float64 {
	if errRatio == 0 {
		return dt * maxScale
	}
	scale := safety * math.Pow(errRatio, -1/float64(order+1))
	return dt * math.Min(maxScale, math.Max(minScale, scale))
}
