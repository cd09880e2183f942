// Package physics provides the Kepler two-body problem in reduced units.
//
// [Kepler] implements [dynamo.Partitioned], [dynamo.Hamiltonian],
// [dynamo.AngularMomentum] and [dynamo.Oscillator]. Its vector field comes
// from a generic [Hamiltonian] whose gradients are computed with dual numbers,
// so any H(q, p) written on [dual.Number] can be simulated the same way.
//
// # Invariants
//
// The energy H and angular momentum L are constants of the exact motion:
//
//	k := physics.NewKepler()
//	x := k.DefaultState()
//	h, l := k.Energy(x), k.AngularMomentum(x)
//
// [Propagate] gives the exact solution for bound orbits and serves as the
// reference when measuring integrator error.
package physics
