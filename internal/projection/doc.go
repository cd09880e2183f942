// Package projection keeps numerical trajectories on the manifold where the
// Kepler invariants keep their initial values.
//
// A [Residual] measures how far a state is from the constraint set; the
// [Manifold] callback removes that violation after every accepted step:
//
//	proj, err := projection.NewManifold(projection.ModeFull, kepler, x0)
//	sim.AddCallback(proj)
//
// Energy-only and angular-only residuals leave the other invariant free.
package projection
