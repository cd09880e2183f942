// Package dynamo provides core simulation primitives for Hamiltonian systems.
//
// The package defines the fundamental interfaces and types for numerical
// simulation of ordinary differential equations (ODEs):
//
//   - [State]: vector representing system state, positions then momenta
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [Partitioned]: the same system split into dq/dt and dp/dt
//   - [Integrator], [AdaptiveIntegrator]: numerical steppers
//   - [Callback]: post-step correction such as manifold projection
//   - [Stepper]: incremental stepping engine
//   - [Simulator]: orchestrates simulation runs
//
// # Example
//
//	dyn := physics.NewKepler()
//	integ := integrators.NewTsit5()
//	sim := dynamo.New(dyn, integ)
//	result, _ := sim.Run(ctx, x0, cfg)
//
// # Thread Safety
//
// Simulator and Stepper instances are NOT thread-safe, and most integrators
// keep scratch buffers. For parallel runs use [RunBatch] with one simulator
// per job.
package dynamo
