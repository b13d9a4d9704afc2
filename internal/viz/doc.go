// Package viz draws a running world in the terminal.
//
// Bodies are projected through an orbiting [Camera] onto a braille
// [Canvas] as wireframes. The live view is a Bubble Tea program that paces
// the world with a fixed-step runner and renders the frames it publishes:
//
//   - [Live]: the view of one scene
//   - [Picker]: preset menu that opens a live view
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Rebuild the scene
//	I     - Kick the next dynamic body upwards
//	H/L   - Orbit left/right (Left/Right arrows)
//	J/K   - Tilt (Down/Up arrows)
//	+/-   - Zoom
//	T     - Cycle color themes
//	?     - Toggle help
//	Q     - Quit
package viz
