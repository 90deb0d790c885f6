package link

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/gwillem/rover/pkg/rover"
)

// TiltStep is how far the camera moves per step while a tilt key is held,
// in normalized units.
const TiltStep = 0.02

// servo is the part of *feetech.Servo the tilt loop needs.
type servo interface {
	Position(ctx context.Context) (int, error)
	SetPositionWithTime(ctx context.Context, pos int, ms int) error
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
}

// TiltServo drives a feetech STS servo that tilts the camera.
type TiltServo struct {
	bus    *feetech.Bus
	servo  servo
	cal    TiltCalibration
	logger hclog.Logger

	target float64
}

// NewTiltServo opens the servo bus on port and finds the servo with the
// given id.
func NewTiltServo(ctx context.Context, port string, id int, cal TiltCalibration, logger hclog.Logger) (*TiltServo, error) {
	if cal.RangeMax <= cal.RangeMin {
		return nil, fmt.Errorf("tilt range %d..%d is empty", cal.RangeMin, cal.RangeMax)
	}
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	found, err := bus.Scan(ctx, id, id)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("scan for servo %d: %w", id, err)
	}
	if len(found) == 0 {
		bus.Close()
		return nil, fmt.Errorf("no servo with id %d on %s", id, port)
	}

	t := newTiltServo(feetech.NewServo(bus, found[0].ID, found[0].Model), cal, logger)
	t.bus = bus
	return t, nil
}

func newTiltServo(s servo, cal TiltCalibration, logger hclog.Logger) *TiltServo {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &TiltServo{servo: s, cal: cal, logger: logger}
}

// Target returns the normalized position the servo is being driven to.
func (t *TiltServo) Target() float64 {
	return t.target
}

// Step moves the target one increment in the direction of tilt and writes
// it to the servo. A zero tilt holds the current target.
func (t *TiltServo) Step(ctx context.Context, tilt int) error {
	if tilt == 0 {
		return nil
	}
	next := max(-1, min(1, t.target+float64(tilt)*TiltStep))
	if next == t.target {
		return nil
	}
	t.target = next
	return t.servo.SetPositionWithTime(ctx, t.cal.Denormalize(next), 0)
}

// Run follows the camera tilt of h's command every interval until ctx is
// done or h shuts down. Torque is released on return.
func (t *TiltServo) Run(ctx context.Context, h *rover.Handle, interval time.Duration) error {
	pos, err := t.servo.Position(ctx)
	if err != nil {
		return fmt.Errorf("read tilt position: %w", err)
	}
	t.target = max(-1, min(1, t.cal.Normalize(pos)))

	if err := t.servo.Enable(ctx); err != nil {
		return fmt.Errorf("enable tilt servo: %w", err)
	}
	defer func() {
		// Use a fresh context; ctx may already be cancelled.
		dctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := t.servo.Disable(dctx); err != nil {
			t.logger.Warn("disable tilt servo", "error", err)
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-h.Done():
			return nil
		case <-ticker.C:
			tilt := h.Command().Peripherals.CameraTilt
			if err := t.Step(ctx, tilt); err != nil && !errors.Is(err, context.Canceled) {
				t.logger.Warn("tilt write failed", "error", err)
			}
		}
	}
}

// Close closes the servo bus.
func (t *TiltServo) Close() error {
	if t.bus == nil {
		return nil
	}
	return t.bus.Close()
}
