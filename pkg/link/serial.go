package link

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"go.bug.st/serial"

	"github.com/gwillem/rover/pkg/rover"
)

// DefaultKeepalive is the longest the serial sink stays silent while the
// command does not change.
const DefaultKeepalive = 500 * time.Millisecond

// EncodeCommandLine formats c as the CSV line understood by the rover's
// microcontroller bridge: L,R,TILT,STEALTH,LIGHTS,DETECT.
func EncodeCommandLine(c rover.Command) string {
	fields := []string{
		strconv.FormatFloat(c.Drive.Left, 'f', 3, 64),
		strconv.FormatFloat(c.Drive.Right, 'f', 3, 64),
		strconv.Itoa(c.Peripherals.CameraTilt),
		flag(c.Peripherals.Stealth),
		flag(c.Peripherals.Lights),
		flag(c.Peripherals.Detect),
	}
	return strings.Join(fields, ",") + "\n"
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// SerialSink writes rover commands to a serial port.
type SerialSink struct {
	port      io.WriteCloser
	keepalive time.Duration
	logger    hclog.Logger

	last     rover.Command
	lastSent time.Time
	sent     bool
}

// OpenSerialSink opens the serial port at the given baud rate.
func OpenSerialSink(port string, baud int, logger hclog.Logger) (*SerialSink, error) {
	p, err := serial.Open(port, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", port, err)
	}
	return NewSerialSink(p, logger), nil
}

// NewSerialSink writes commands to w.
func NewSerialSink(w io.WriteCloser, logger hclog.Logger) *SerialSink {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &SerialSink{port: w, keepalive: DefaultKeepalive, logger: logger}
}

// Send writes c if it differs from the last command written or the
// keepalive interval has passed. It reports whether a line was written.
func (s *SerialSink) Send(c rover.Command, now time.Time) (bool, error) {
	if s.sent && c == s.last && now.Sub(s.lastSent) < s.keepalive {
		return false, nil
	}
	if err := c.Drive.Validate(); err != nil {
		return false, err
	}
	if _, err := io.WriteString(s.port, EncodeCommandLine(c)); err != nil {
		return false, fmt.Errorf("write command: %w", err)
	}
	s.last, s.lastSent, s.sent = c, now, true
	return true, nil
}

// Run sends h's command every interval until ctx is done or h shuts down.
// A neutral command is written on the way out.
func (s *SerialSink) Run(ctx context.Context, h *rover.Handle, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return s.stop()
		case <-h.Done():
			return s.stop()
		case now := <-ticker.C:
			if _, err := s.Send(h.Command(), now); err != nil {
				s.logger.Warn("serial send failed", "error", err)
			}
		}
	}
}

func (s *SerialSink) stop() error {
	_, err := io.WriteString(s.port, EncodeCommandLine(rover.Command{}))
	return err
}

// Close closes the serial port.
func (s *SerialSink) Close() error {
	return s.port.Close()
}
