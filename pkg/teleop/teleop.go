// Package teleop provides the operator console loop: key events in, rover
// commands and rendered frames out.
package teleop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-hclog"

	"github.com/gwillem/rover/pkg/render"
	"github.com/gwillem/rover/pkg/rover"
	"github.com/gwillem/rover/pkg/snapshot"
)

// State represents the current state of the console.
type State struct {
	Command    rover.Command
	DriveState DriveState
	Render     render.Stats
	Dropped    uint64 // frames replaced before they were drawn
	FPS        float64
	Timestamp  time.Time
}

// WeightExporter persists the network tensors when the operator asks for it.
type WeightExporter interface {
	ExportWeights(ctx context.Context, tel rover.Telemetry) (string, error)
}

// Config holds configuration for the controller.
type Config struct {
	Handle     *rover.Handle
	Canvas     *render.Canvas
	Display    render.Display // optional
	Snapshots  *snapshot.Writer
	Exporter   WeightExporter // optional
	Bindings   Bindings
	FPS        int
	KeyRelease time.Duration // for terminals without key-up events
	Logger     hclog.Logger
}

// Controller manages the console loop. All methods except States and Logs
// must be called from the loop's goroutine.
type Controller struct {
	handle     *rover.Handle
	renderer   *render.Renderer
	canvas     *render.Canvas
	display    render.Display
	snapshots  *snapshot.Writer
	exporter   WeightExporter
	dispatcher *Dispatcher
	keys       *KeyTracker
	limiter    *render.Limiter
	logger     hclog.Logger

	quit          bool
	decodeFailing bool
	decoded       uint64
	stateCh       chan State
	logCh         chan string
	now           func() time.Time
}

// NewController creates a new console controller.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Handle == nil {
		return nil, errors.New("rover handle is required")
	}
	if cfg.Canvas == nil {
		cfg.Canvas = render.NewCanvas(render.CanvasWidth, render.CanvasHeight)
	}
	if cfg.Snapshots == nil {
		cfg.Snapshots = snapshot.NewWriter(".", "jpg")
	}
	if cfg.KeyRelease <= 0 {
		cfg.KeyRelease = rover.DefaultKeyRelease
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}

	c := &Controller{
		handle:    cfg.Handle,
		renderer:  render.NewRenderer(cfg.Canvas, cfg.Logger.Named("render")),
		canvas:    cfg.Canvas,
		display:   cfg.Display,
		snapshots: cfg.Snapshots,
		exporter:  cfg.Exporter,
		limiter:   render.NewLimiter(cfg.FPS),
		logger:    cfg.Logger,
		stateCh:   make(chan State, 1),
		logCh:     make(chan string, 10),
		now:       time.Now,
	}
	c.dispatcher = NewDispatcher(cfg.Bindings, c.autonomous, Hooks{
		Snapshot: c.takeSnapshot,
		Persist:  c.exportWeights,
		Shutdown: c.requestQuit,
	})
	bindings := c.dispatcher.Bindings()
	c.keys = NewKeyTracker(cfg.KeyRelease, func(key string) bool {
		_, a := bindings.Classify(key)
		return a.Held()
	})
	return c, nil
}

// Close stops the rover link and releases the display.
func (c *Controller) Close() error {
	c.handle.RequestShutdown()
	if c.display != nil {
		if err := c.display.Close(); err != nil {
			return fmt.Errorf("close display: %w", err)
		}
	}
	return nil
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Hz returns the target frame rate.
func (c *Controller) Hz() int {
	return int(time.Second / c.limiter.Interval())
}

// Limiter returns the frame-rate limiter driving the loop.
func (c *Controller) Limiter() *render.Limiter {
	return c.limiter
}

// Quitting reports whether the operator asked to shut down.
func (c *Controller) Quitting() bool {
	return c.quit || c.handle.ShutdownRequested()
}

// Command returns the command currently sent to the rover.
func (c *Controller) Command() rover.Command {
	return c.dispatcher.Command()
}

// DriveState returns the drive state machine's state.
func (c *Controller) DriveState() DriveState {
	return c.dispatcher.DriveState()
}

func (c *Controller) log(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	c.logger.Info(text)
	msg := fmt.Sprintf("[%s] %s", c.now().Format("15:04:05"), text)
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Press feeds a key press from a terminal, which reports no releases.
// Releases are synthesized from auto-repeat timing; see KeyTracker.
func (c *Controller) Press(key string) {
	for _, ev := range c.keys.Press(key, c.now()) {
		c.HandleEvent(ev)
	}
}

// HandleEvent dispatches one key event and publishes the resulting command.
func (c *Controller) HandleEvent(ev Event) Class {
	class := c.dispatcher.Dispatch(ev)
	if class != ClassIgnored {
		c.handle.SetCommand(c.dispatcher.Command())
		c.logger.Trace("key", "key", ev.Key, "down", ev.Down, "class", class.String())
	}
	return class
}

// Step runs one loop iteration after input has been handled: expire held
// keys, publish the command, render and present the frame.
func (c *Controller) Step() {
	for _, ev := range c.keys.Expire(c.now()) {
		c.HandleEvent(ev)
	}
	c.handle.SetCommand(c.dispatcher.Command())

	err := c.renderer.Draw(c.handle.Frames().Latest(), c.handle.Telemetry())
	stats := c.renderer.Stats()
	switch {
	case err != nil && !c.decodeFailing:
		c.decodeFailing = true
		c.log("Camera frame unreadable, keeping last picture: %v", err)
	case err == nil && c.decodeFailing && stats.Decoded > c.decoded:
		c.decodeFailing = false
		c.log("Camera frames readable again")
	}
	c.decoded = stats.Decoded

	if c.display != nil {
		if err := c.display.Present(c.canvas, c.canvas.Damage()); err != nil {
			c.log("Display error: %v", err)
		}
	}

	c.sendState(State{
		Command:    c.dispatcher.Command(),
		DriveState: c.dispatcher.DriveState(),
		Render:     stats,
		Dropped:    c.handle.Frames().Overwritten(),
		FPS:        c.limiter.FPS(),
		Timestamp:  c.now(),
	})
}

// Run drives the loop without a terminal UI: drain pending events, step,
// then sleep out the frame budget. It returns when the operator quits, the
// link shuts down, or ctx is done.
func (c *Controller) Run(ctx context.Context, events <-chan Event) error {
	c.log("Console started at %d Hz", c.Hz())
	c.limiter.Begin()

	for {
		c.drain(events)
		if c.Quitting() {
			c.log("Console stopped")
			return nil
		}
		c.Step()

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		c.limiter.Wait()
	}
}

func (c *Controller) drain(events <-chan Event) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.HandleEvent(ev)
		default:
			return
		}
	}
}

func (c *Controller) autonomous() rover.DriveCommand {
	return c.handle.Telemetry().Autonomous
}

func (c *Controller) requestQuit() {
	c.quit = true
	c.handle.RequestShutdown()
}

func (c *Controller) takeSnapshot() {
	path, err := c.snapshots.Capture(c.handle.Frames())
	if err != nil {
		c.logger.Error("snapshot failed", "error", err)
		c.log("Snapshot failed: %v", err)
		return
	}
	c.log("Snapshot saved to %s", path)
}

func (c *Controller) exportWeights() {
	if c.exporter == nil {
		c.log("Weight export not configured")
		return
	}
	tel := c.handle.Telemetry()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	id, err := c.exporter.ExportWeights(ctx, tel)
	if err != nil {
		c.logger.Error("weight export failed", "error", err)
		c.log("Weight export failed: %v", err)
		return
	}
	c.log("Exported %d neurons (%s) as %s", tel.NeuronCount(),
		humanize.Bytes(uint64(8*(len(tel.Weights.Data)+len(tel.Deltas.Data)))), id)
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}
