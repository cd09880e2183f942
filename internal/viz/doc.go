// Package viz provides terminal visualization of orbits.
//
// The package implements an interactive TUI using the Bubble Tea framework:
//
//   - [Model]: live animation of one orbit with invariant drift read-outs
//   - [Picker]: integrator and initial condition selection
//   - [Canvas]: Braille-based pixel canvas for high-fidelity rendering
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	R     - Reset to initial state
//	P     - Cycle projection mode (none, full, energy, angular)
//	T     - Cycle color themes
//	S     - Save the recorded trajectory
//	?     - Show help overlay
//	[]    - Time travel (rewind/forward)
//	+/-   - Integration steps per frame
//	Q     - Quit
package viz
