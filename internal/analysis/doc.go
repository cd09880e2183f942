// Package analysis post-processes Kepler trajectories.
//
//   - [DominantPeriod]: orbital period from the spectrum of a coordinate
//   - [GlobalError] and [GrowthExponent]: error against the exact orbit
//   - [StepSweep] and [ObservedOrder]: convergence order of an integrator
//   - [Portrait] and [Section]: orbit portraits and periapsis crossings
//
// # Error Growth
//
// On the Kepler problem symplectic integrators accumulate phase error
// linearly while non-symplectic ones drift quadratically:
//
//	errs, _ := analysis.GlobalError(res)
//	k, _ := analysis.GrowthExponent(res.Times, errs)
package analysis
