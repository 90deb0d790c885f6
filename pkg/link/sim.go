package link

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"math/rand/v2"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/gwillem/rover/pkg/render"
	"github.com/gwillem/rover/pkg/rover"
)

// Simulator stands in for a rover: it publishes a moving gradient as
// camera frames and a slowly learning random network.
type Simulator struct {
	Neurons        int
	FrameEvery     time.Duration
	TelemetryEvery time.Duration
	Width, Height  int

	logger  hclog.Logger
	rng     *rand.Rand
	weights rover.Tensor
	step    int
}

// NewSimulator returns a simulator with n hidden neurons.
func NewSimulator(n int, logger hclog.Logger) *Simulator {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	s := &Simulator{
		Neurons:        n,
		FrameEvery:     33 * time.Millisecond,
		TelemetryEvery: 250 * time.Millisecond,
		Width:          320,
		Height:         240,
		logger:         logger,
		rng:            rand.New(rand.NewPCG(1, uint64(n))),
	}
	s.weights = s.randomTensor(1)
	return s
}

// Frame encodes the camera picture for frame number i.
func (s *Simulator) Frame(i int) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))
	shift := i * 4
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8((x + shift) * 255 / s.Width),
				G: uint8(y * 255 / s.Height),
				B: uint8(128 + 127*math.Sin(float64(i)/20)),
				A: 255,
			})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Telemetry advances the network one training step and returns its state.
func (s *Simulator) Telemetry(now time.Time) rover.Telemetry {
	s.step++
	deltas := s.randomTensor(0.05)
	weights := rover.NewTensor(s.weights.Rows, s.weights.Cols)
	for i := range weights.Data {
		weights.Data[i] = s.weights.Data[i] + deltas.Data[i]
	}
	s.weights = weights

	phase := float64(s.step) / 10
	return rover.Telemetry{
		Autonomous: rover.DriveCommand{Left: math.Sin(phase), Right: math.Cos(phase)},
		Weights:    weights,
		Deltas:     deltas,
		Updated:    now,
	}
}

func (s *Simulator) randomTensor(scale float64) rover.Tensor {
	t := rover.NewTensor(render.ThumbValues+1, s.Neurons)
	for i := range t.Data {
		t.Data[i] = (s.rng.Float64()*2 - 1) * scale
	}
	return t
}

// Run publishes frames and telemetry to h until ctx is done or h shuts
// down.
func (s *Simulator) Run(ctx context.Context, h *rover.Handle) error {
	frames := time.NewTicker(s.FrameEvery)
	defer frames.Stop()
	telemetry := time.NewTicker(s.TelemetryEvery)
	defer telemetry.Stop()

	h.PublishTelemetry(s.Telemetry(time.Now()))
	s.logger.Info("simulator started", "neurons", s.Neurons)

	for i := 0; ; {
		select {
		case <-ctx.Done():
			return nil
		case <-h.Done():
			return nil
		case <-frames.C:
			data, err := s.Frame(i)
			if err != nil {
				s.logger.Error("encode frame", "error", err)
				continue
			}
			h.Frames().Publish(data)
			i++
		case now := <-telemetry.C:
			h.PublishTelemetry(s.Telemetry(now))
		}
	}
}
