package analysis

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/keplersim/internal/dynamo"
	"github.com/san-kum/keplersim/internal/physics"
)

// SweepPoint is the outcome of one fixed-step run in a step size sweep.
type SweepPoint struct {
	Dt          float64 `json:"dt"`
	Steps       int     `json:"steps"`
	Error       float64 `json:"error"`
	EnergyDrift float64 `json:"energy_drift"`
}

// StepSweep integrates x0 over duration once per step size and compares the
// end point with the exact Kepler solution. newInteg is called per run so
// integrators with scratch buffers are never shared.
func StepSweep(
	ctx context.Context,
	dyn dynamo.System,
	newInteg func() dynamo.Integrator,
	x0 dynamo.State,
	dts []float64,
	duration float64,
) ([]SweepPoint, error) {
	exact, err := physics.Propagate(x0, duration)
	if err != nil {
		return nil, err
	}

	points := make([]SweepPoint, 0, len(dts))
	for _, dt := range dts {
		cfg := dynamo.DefaultConfig()
		cfg.Dt = dt
		cfg.Duration = duration
		cfg.ValidateState = false

		res, err := dynamo.New(dyn, newInteg()).Run(ctx, x0, cfg)
		if err != nil {
			return points, fmt.Errorf("dt=%g: %w", dt, err)
		}
		points = append(points, SweepPoint{
			Dt:          dt,
			Steps:       res.StepsTaken,
			Error:       res.Final().Sub(exact).Norm(),
			EnergyDrift: res.EnergyDrift,
		})
	}
	return points, nil
}

// ObservedOrder is the slope of log(error) against log(dt).
func ObservedOrder(points []SweepPoint) float64 {
	var x, y []float64
	for _, p := range points {
		if p.Error > 0 && !math.IsNaN(p.Error) && !math.IsInf(p.Error, 0) {
			x = append(x, math.Log(p.Dt))
			y = append(y, math.Log(p.Error))
		}
	}
	if len(x) < 2 {
		return math.NaN()
	}
	_, slope := stat.LinearRegression(x, y, nil, false)
	return slope
}
