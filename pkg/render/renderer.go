// Package render draws the operator console picture: the camera feed, its
// downsampled preview, and receptive-field maps of the onboard network's
// weights and weight updates.
package render

import (
	"errors"
	"image"
	"image/color"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/gwillem/rover/pkg/rover"
)

// Console layout in canvas pixels.
const (
	CanvasWidth  = 740
	CanvasHeight = 280

	// MaxNeurons is how many neurons get a receptive-field map.
	MaxNeurons = 7

	weightsX     = 500
	weightsY     = 0
	deltasY      = 50
	neuronStride = 40
	cameraThumbX = 400
	cameraThumbY = 0
	cameraPaneW  = 320
	cameraPaneH  = 280
)

var (
	cameraPane = image.Rect(0, 0, cameraPaneW, cameraPaneH)
	background = color.RGBA{A: 0xff}
)

// WeightSlot returns the canvas position of neuron k's weight map.
func WeightSlot(k int) image.Point {
	return image.Pt(weightsX+neuronStride*k, weightsY)
}

// DeltaSlot returns the canvas position of neuron k's weight-update map.
func DeltaSlot(k int) image.Point {
	return image.Pt(weightsX+neuronStride*k, deltasY)
}

// CameraThumbSlot returns the canvas position of the camera preview.
func CameraThumbSlot() image.Point {
	return image.Pt(cameraThumbX, cameraThumbY)
}

// Display presents a canvas somewhere visible.
type Display interface {
	// Present shows the canvas; only the dirty regions changed.
	Present(c *Canvas, dirty []image.Rectangle) error
	Close() error
}

// Stats counts what the renderer did.
type Stats struct {
	Iterations   uint64
	Decoded      uint64
	DecodeErrors uint64
	ShapeErrors  uint64
	LastSeq      uint64
	Neurons      int
	LastFrameAt  time.Time
}

// Renderer draws frames and telemetry onto a Canvas.
// It is not safe for concurrent use; the console loop owns it.
type Renderer struct {
	canvas *Canvas
	logger hclog.Logger

	lastSeq      uint64
	lastUpdate   time.Time
	drawnSlots   int
	hasTelemetry bool
	stats        Stats
}

// NewRenderer returns a renderer drawing onto c.
func NewRenderer(c *Canvas, logger hclog.Logger) *Renderer {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Renderer{canvas: c, logger: logger}
}

// Canvas returns the canvas the renderer draws onto.
func (r *Renderer) Canvas() *Canvas {
	return r.canvas
}

// Draw renders one iteration. A frame that fails to decode leaves the
// previous camera picture in place; the decode error is returned for the
// caller to report but is not fatal.
func (r *Renderer) Draw(frame *rover.Frame, tel rover.Telemetry) error {
	r.stats.Iterations++

	var err error
	if frame != nil && frame.Seq != r.lastSeq {
		r.lastSeq = frame.Seq
		err = r.drawCamera(frame)
	}

	if !r.hasTelemetry || !tel.Updated.Equal(r.lastUpdate) {
		r.hasTelemetry = true
		r.lastUpdate = tel.Updated
		r.drawNetwork(tel)
	}
	return err
}

// Stats returns a copy of the renderer counters.
func (r *Renderer) Stats() Stats {
	return r.stats
}

func (r *Renderer) drawCamera(frame *rover.Frame) error {
	img, err := DecodeFrame(frame.Data)
	if err != nil {
		r.stats.DecodeErrors++
		r.logger.Debug("skipping camera frame", "seq", frame.Seq, "error", err)
		return err
	}
	r.stats.Decoded++
	r.stats.LastSeq = frame.Seq
	r.stats.LastFrameAt = frame.Received

	full := Fit(img, cameraPaneW, cameraPaneH)
	r.canvas.Fill(cameraPane, background)
	r.canvas.Blit(full, cameraPane.Min)
	r.canvas.Blit(Downsample(img, ThumbWidth, ThumbHeight), CameraThumbSlot())
	return nil
}

func (r *Renderer) drawNetwork(tel rover.Telemetry) {
	n := min(MaxNeurons, tel.NeuronCount())
	r.stats.Neurons = tel.NeuronCount()

	for k := 0; k < n; k++ {
		r.drawMap(tel.Weights, k, WeightSlot(k))
		r.drawMap(tel.Deltas, k, DeltaSlot(k))
	}
	// Neuron count dropped: clear the slots no longer in use.
	for k := n; k < r.drawnSlots; k++ {
		r.clearSlot(WeightSlot(k))
		r.clearSlot(DeltaSlot(k))
	}
	r.drawnSlots = n
}

func (r *Renderer) drawMap(t rover.Tensor, k int, at image.Point) {
	img, err := WeightMap(t.ColumnWithoutBias(k))
	if err != nil {
		r.stats.ShapeErrors++
		r.logger.Debug("cannot draw neuron map", "neuron", k, "rows", t.Rows, "cols", t.Cols, "error", err)
		r.clearSlot(at)
		return
	}
	r.canvas.Blit(img, at)
}

func (r *Renderer) clearSlot(at image.Point) {
	r.canvas.Fill(image.Rectangle{Min: at, Max: at.Add(image.Pt(ThumbWidth, ThumbHeight))}, background)
}

// IsDecodeError reports whether err came from a bad camera frame.
func IsDecodeError(err error) bool {
	return errors.Is(err, ErrDecode)
}
