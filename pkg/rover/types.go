// Package rover holds the state shared between the operator console and a
// rover link: camera frames, drive and peripheral commands, and the
// diagnostic weight tensors of the onboard network.
package rover

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrShapeMismatch is returned when tensor data does not match its shape.
var ErrShapeMismatch = errors.New("tensor shape mismatch")

// DriveCommand is a differential drive command, one speed per tread.
// Speeds are conventionally in [-1, 1].
type DriveCommand struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

// Validate reports an error if either tread speed is outside [-1, 1] or not
// a finite number. Links call this before transmitting.
func (c DriveCommand) Validate() error {
	for _, v := range []float64{c.Left, c.Right} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < -1 || v > 1 {
			return fmt.Errorf("tread speed %v out of range [-1, 1]", v)
		}
	}
	return nil
}

func (c DriveCommand) String() string {
	return fmt.Sprintf("(%+.2f, %+.2f)", c.Left, c.Right)
}

// Peripherals is the state of the rover's auxiliary subsystems.
type Peripherals struct {
	CameraTilt int  `json:"camera"` // -1 down, 0 hold, 1 up
	Stealth    bool `json:"stealth"`
	Lights     bool `json:"lights"`
	Detect     bool `json:"detect"`
}

// Command is everything the console sends to the rover.
type Command struct {
	Drive       DriveCommand
	Peripherals Peripherals
}

// Tensor is a dense row-major 2-D array.
type Tensor struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

// NewTensor returns a zeroed rows x cols tensor.
func NewTensor(rows, cols int) Tensor {
	return Tensor{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// Check verifies that Data holds exactly Rows*Cols values.
func (t Tensor) Check() error {
	if t.Rows < 0 || t.Cols < 0 || len(t.Data) != t.Rows*t.Cols {
		return fmt.Errorf("%w: %dx%d with %d values", ErrShapeMismatch, t.Rows, t.Cols, len(t.Data))
	}
	return nil
}

// At returns the value at row r, column c.
func (t Tensor) At(r, c int) float64 {
	return t.Data[r*t.Cols+c]
}

// Column returns a copy of column k, or nil if k is out of range.
func (t Tensor) Column(k int) []float64 {
	if k < 0 || k >= t.Cols || t.Check() != nil {
		return nil
	}
	out := make([]float64, t.Rows)
	for r := range out {
		out[r] = t.At(r, k)
	}
	return out
}

// ColumnWithoutBias returns column k without its trailing bias row.
func (t Tensor) ColumnWithoutBias(k int) []float64 {
	col := t.Column(k)
	if len(col) == 0 {
		return nil
	}
	return col[:len(col)-1]
}

// Telemetry is the diagnostic state published by the rover link.
type Telemetry struct {
	// Autonomous is the command the onboard network would drive with.
	Autonomous DriveCommand
	// Weights holds per-neuron input weights, one column per neuron.
	Weights Tensor
	// Deltas holds the latest update applied to Weights.
	Deltas  Tensor
	Updated time.Time
}

// NeuronCount returns the number of hidden neurons described by Weights.
func (t Telemetry) NeuronCount() int {
	return t.Weights.Cols
}
