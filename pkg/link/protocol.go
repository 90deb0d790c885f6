// Package link connects the console to a rover: a WebSocket transport, a
// local simulator, a serial command bridge and a camera tilt servo.
package link

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gwillem/rover/pkg/rover"
)

// TelemetryMessage is the JSON text message a rover sends with the state of
// its onboard network.
type TelemetryMessage struct {
	Autonomous [2]float64   `json:"autonomous"`
	Weights    rover.Tensor `json:"weights"`
	Deltas     rover.Tensor `json:"deltas"`
}

// CommandMessage is sent to the rover every send interval.
type CommandMessage struct {
	Treads      [2]float64        `json:"treads"`
	Peripherals rover.Peripherals `json:"peripherals"`
}

// QuitMessage tells the rover the console is going away.
type QuitMessage struct {
	Quit bool `json:"quit"`
}

// DecodeTelemetry parses a telemetry message. Tensor shapes are checked so
// that a malformed message never reaches the renderer.
func DecodeTelemetry(data []byte, received time.Time) (rover.Telemetry, error) {
	var msg TelemetryMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return rover.Telemetry{}, fmt.Errorf("decode telemetry: %w", err)
	}
	if err := msg.Weights.Check(); err != nil {
		return rover.Telemetry{}, fmt.Errorf("weights: %w", err)
	}
	if err := msg.Deltas.Check(); err != nil {
		return rover.Telemetry{}, fmt.Errorf("deltas: %w", err)
	}
	return rover.Telemetry{
		Autonomous: rover.DriveCommand{Left: msg.Autonomous[0], Right: msg.Autonomous[1]},
		Weights:    msg.Weights,
		Deltas:     msg.Deltas,
		Updated:    received,
	}, nil
}

// NewCommandMessage builds the outbound message for c. Tread speeds are
// validated here, at the link boundary.
func NewCommandMessage(c rover.Command) (CommandMessage, error) {
	if err := c.Drive.Validate(); err != nil {
		return CommandMessage{}, err
	}
	return CommandMessage{
		Treads:      [2]float64{c.Drive.Left, c.Drive.Right},
		Peripherals: c.Peripherals,
	}, nil
}
