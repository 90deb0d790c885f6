// Package rover is an operator console for a tracked rover that carries a
// small onboard neural network.
//
// The console shows the rover's camera next to the input weights of the
// network's hidden neurons, turns keyboard input into tread and peripheral
// commands, saves camera snapshots and exports the network weights to
// SQLite.
//
// # Installation
//
//	go install github.com/gwillem/rover/cmd/rover@latest
//
// # Usage
//
// Run setup once to pick a link and find the camera tilt servo:
//
//	rover setup
//
// Then drive:
//
//	rover drive --link ws --url ws://rover.local:8080/rover
//
// Without hardware, the built-in simulator stands in for the rover:
//
//	rover drive --link sim
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/rover: CLI with drive, setup and exports commands
//   - pkg/rover: Shared frame, telemetry and command state, configuration
//   - pkg/teleop: Key dispatch, drive state machine and console loop
//   - pkg/render: Canvas, weight maps and terminal display
//   - pkg/snapshot: Camera snapshot files
//   - pkg/brainstore: SQLite store for weight exports
//   - pkg/link: WebSocket link, simulator, serial bridge and tilt servo
package rover
