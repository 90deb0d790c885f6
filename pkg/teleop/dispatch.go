package teleop

import "github.com/gwillem/rover/pkg/rover"

// Event is a key press or release.
type Event struct {
	Key  string
	Down bool
}

// KeyDown returns a press event for key.
func KeyDown(key string) Event { return Event{Key: key, Down: true} }

// KeyUp returns a release event for key.
func KeyUp(key string) Event { return Event{Key: key} }

// Hooks are side effects triggered by momentary keys. Nil hooks are skipped.
type Hooks struct {
	Snapshot func()
	Persist  func()
	Shutdown func()
}

// Dispatcher routes key events to the drive and peripheral state machines.
type Dispatcher struct {
	bindings    Bindings
	drive       DriveMachine
	peripherals PeripheralController
	autonomous  func() rover.DriveCommand
	hooks       Hooks
}

// NewDispatcher creates a dispatcher. autonomous supplies the command the
// onboard network currently proposes; it may be nil.
func NewDispatcher(b Bindings, autonomous func() rover.DriveCommand, hooks Hooks) *Dispatcher {
	if b == nil {
		b = DefaultBindings()
	}
	if autonomous == nil {
		autonomous = func() rover.DriveCommand { return rover.DriveCommand{} }
	}
	return &Dispatcher{bindings: b, autonomous: autonomous, hooks: hooks}
}

// Dispatch classifies and applies one event, returning its class.
func (d *Dispatcher) Dispatch(ev Event) Class {
	class, action := d.bindings.Classify(ev.Key)

	switch class {
	case ClassShutdown:
		if ev.Down {
			call(d.hooks.Shutdown)
		}
	case ClassDrive:
		switch {
		case !ev.Down:
			d.drive.KeyUp(action)
		case action == ActionPersist:
			call(d.hooks.Persist)
		default:
			d.drive.KeyDown(action, d.autonomous())
		}
	case ClassPeripheral:
		if !ev.Down {
			d.peripherals.KeyUp(action)
		} else if d.peripherals.KeyDown(action) {
			call(d.hooks.Snapshot)
		}
	}
	return class
}

// Command returns the combined drive and peripheral state.
func (d *Dispatcher) Command() rover.Command {
	return rover.Command{
		Drive:       d.drive.Command(),
		Peripherals: d.peripherals.State(),
	}
}

// DriveState returns the drive state machine's current state.
func (d *Dispatcher) DriveState() DriveState {
	return d.drive.State()
}

// Bindings returns the key table in use.
func (d *Dispatcher) Bindings() Bindings {
	return d.bindings
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}
