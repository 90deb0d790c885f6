package rover

import (
	"sync"
	"sync/atomic"
)

// Handle is the surface a rover link and the console share.
//
// Frames, telemetry and commands are all published as immutable snapshots
// swapped atomically, so either side may read at any time without locking
// and never sees a half-written value.
type Handle struct {
	frames    FrameBuffer
	telemetry atomic.Pointer[Telemetry]
	command   atomic.Pointer[Command]

	shutdown atomic.Bool
	once     sync.Once
	done     chan struct{}
}

// NewHandle returns a handle with a neutral command and empty telemetry.
func NewHandle() *Handle {
	h := &Handle{done: make(chan struct{})}
	h.telemetry.Store(&Telemetry{})
	h.command.Store(&Command{})
	return h
}

// Frames returns the camera frame buffer.
func (h *Handle) Frames() *FrameBuffer {
	return &h.frames
}

// PublishTelemetry replaces the current telemetry snapshot.
// The caller must not modify t's tensors afterwards.
func (h *Handle) PublishTelemetry(t Telemetry) {
	h.telemetry.Store(&t)
}

// Telemetry returns the current telemetry snapshot.
func (h *Handle) Telemetry() Telemetry {
	return *h.telemetry.Load()
}

// SetCommand publishes the command the rover should execute.
func (h *Handle) SetCommand(c Command) {
	h.command.Store(&c)
}

// Command returns the most recently published command.
func (h *Handle) Command() Command {
	return *h.command.Load()
}

// RequestShutdown tells the link to stop. It is safe to call more than once
// and the request is never withdrawn.
func (h *Handle) RequestShutdown() {
	h.once.Do(func() {
		h.shutdown.Store(true)
		close(h.done)
	})
}

// ShutdownRequested reports whether RequestShutdown was called.
func (h *Handle) ShutdownRequested() bool {
	return h.shutdown.Load()
}

// Done is closed once shutdown has been requested.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}
