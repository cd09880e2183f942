package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat"
)

var ErrTooShort = errors.New("series too short")

// PowerSpectrum returns the magnitudes of the non-negative frequency bins.
func PowerSpectrum(data []float64) []float64 {
	coeffs := fft.FFTReal(data)
	ps := make([]float64, len(coeffs)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(coeffs[i])
	}
	return ps
}

// Resample linearly interpolates an irregular series onto n samples spaced
// dt apart, starting at times[0] and stopping one spacing short of the end.
func Resample(times, values []float64, n int) (dt float64, out []float64, err error) {
	if len(times) < 2 || n < 2 {
		return 0, nil, ErrTooShort
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(times, values); err != nil {
		return 0, nil, fmt.Errorf("resample: %w", err)
	}

	t0 := times[0]
	dt = (times[len(times)-1] - t0) / float64(n)
	out = make([]float64, n)
	for i := range out {
		out[i] = pl.Predict(t0 + float64(i)*dt)
	}
	return dt, out, nil
}

// DominantPeriod estimates the period of the strongest oscillation in a
// series sampled at arbitrary times.
func DominantPeriod(times, values []float64) (float64, error) {
	n := 1
	for n < 2*len(times) {
		n <<= 1
	}
	dt, x, err := Resample(times, values, n)
	if err != nil {
		return 0, err
	}

	mean := stat.Mean(x, nil)
	for i := range x {
		x[i] -= mean
	}
	window.Apply(x, window.Hann)

	ps := PowerSpectrum(x)
	peak := 1
	for k := 2; k < len(ps); k++ {
		if ps[k] > ps[peak] {
			peak = k
		}
	}
	if ps[peak] == 0 {
		return math.Inf(1), nil
	}

	// Parabolic refinement of the peak bin.
	k := float64(peak)
	if peak+1 < len(ps) {
		a, b, c := ps[peak-1], ps[peak], ps[peak+1]
		if den := a - 2*b + c; den != 0 {
			k += 0.5 * (a - c) / den
		}
	}
	return float64(n) * dt / k, nil
}
