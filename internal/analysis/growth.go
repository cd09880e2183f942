package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/keplersim/internal/dynamo"
	"github.com/san-kum/keplersim/internal/physics"
)

// GlobalError measures every recorded state of a Kepler run against the
// exact solution through its initial state.
func GlobalError(res *dynamo.Result) ([]float64, error) {
	if len(res.States) == 0 {
		return nil, ErrTooShort
	}
	x0 := res.States[0]
	errs := make([]float64, len(res.States))
	for i, x := range res.States {
		exact, err := physics.Propagate(x0, res.Times[i])
		if err != nil {
			return nil, fmt.Errorf("reference at t=%g: %w", res.Times[i], err)
		}
		errs[i] = x.Sub(exact).Norm()
	}
	return errs, nil
}

// GrowthExponent fits err ∝ t^k over the samples with positive time and
// error and returns k. Symplectic methods on an integrable problem show
// k ≈ 1; methods with secular energy drift show k ≈ 2.
func GrowthExponent(times, errs []float64) (float64, error) {
	var lt, le []float64
	for i, t := range times {
		if t > 0 && errs[i] > 0 && !math.IsInf(errs[i], 0) && !math.IsNaN(errs[i]) {
			lt = append(lt, math.Log(t))
			le = append(le, math.Log(errs[i]))
		}
	}
	if len(lt) < 2 {
		return 0, ErrTooShort
	}
	_, slope := stat.LinearRegression(lt, le, nil, false)
	return slope, nil
}
