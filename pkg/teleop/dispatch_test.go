package teleop

import (
	"testing"
	"time"

	"github.com/gwillem/rover/pkg/rover"
)

func TestDriveMachine_KeyTable(t *testing.T) {
	tests := []struct {
		action Action
		state  DriveState
		want   rover.DriveCommand
	}{
		{ActionForward, Forward, rover.DriveCommand{Left: 1, Right: 1}},
		{ActionBackward, Backward, rover.DriveCommand{Left: -1, Right: -1}},
		{ActionPivotLeft, PivotLeft, rover.DriveCommand{Left: -1, Right: 1}},
		{ActionPivotRight, PivotRight, rover.DriveCommand{Left: 1, Right: -1}},
		{ActionArcLeftSoft, ArcLeftSoft, rover.DriveCommand{Left: 0.1, Right: 1}},
		{ActionArcRightSoft, ArcRightSoft, rover.DriveCommand{Left: 1, Right: 0.1}},
		{ActionArcLeftSharp, ArcLeftSharp, rover.DriveCommand{Left: -0.1, Right: -1}},
		{ActionArcRightSharp, ArcRightSharp, rover.DriveCommand{Left: -1, Right: -0.1}},
	}

	for _, tt := range tests {
		var m DriveMachine
		m.KeyDown(tt.action, rover.DriveCommand{Left: 0.5, Right: 0.5})
		if got := m.Command(); got != tt.want {
			t.Errorf("KeyDown(%s) command = %v, want %v", tt.action, got, tt.want)
		}
		if got := m.State(); got != tt.state {
			t.Errorf("KeyDown(%s) state = %s, want %s", tt.action, got, tt.state)
		}

		m.KeyUp(tt.action)
		if got := m.Command(); got != (rover.DriveCommand{}) {
			t.Errorf("KeyUp(%s) command = %v, want (0, 0)", tt.action, got)
		}
		if m.State() != Neutral {
			t.Errorf("KeyUp(%s) state = %s, want neutral", tt.action, m.State())
		}
	}
}

func TestDriveMachine_IgnoresOtherActions(t *testing.T) {
	var m DriveMachine
	m.KeyDown(ActionForward, rover.DriveCommand{})

	for _, a := range []Action{ActionNone, ActionPersist, ActionLights, ActionSnapshot, ActionQuit} {
		m.KeyDown(a, rover.DriveCommand{Left: 0.2, Right: 0.2})
		m.KeyUp(a)
	}
	if m.State() != Forward || m.Command() != (rover.DriveCommand{Left: 1, Right: 1}) {
		t.Errorf("state = %s %v, want forward (1, 1)", m.State(), m.Command())
	}
}

func TestPeripheralController_TogglesAreInvolutions(t *testing.T) {
	for _, a := range []Action{ActionStealth, ActionLights, ActionDetect} {
		var p PeripheralController
		orig := p.State()

		p.KeyDown(a)
		if p.State() == orig {
			t.Errorf("%s: first key-down did not change state", a)
		}
		p.KeyUp(a)
		p.KeyDown(a)
		if p.State() != orig {
			t.Errorf("%s: two key-downs gave %+v, want %+v", a, p.State(), orig)
		}
	}
}

func TestPeripheralController_FieldsAreOrthogonal(t *testing.T) {
	var p PeripheralController
	p.KeyDown(ActionLights)
	p.KeyDown(ActionTiltDown)

	want := rover.Peripherals{CameraTilt: -1, Lights: true}
	if p.State() != want {
		t.Errorf("state = %+v, want %+v", p.State(), want)
	}

	p.KeyUp(ActionTiltDown)
	want.CameraTilt = 0
	if p.State() != want {
		t.Errorf("after tilt release: state = %+v, want %+v", p.State(), want)
	}

	if !p.KeyDown(ActionSnapshot) {
		t.Error("snapshot key did not report a trigger")
	}
	if p.State() != want {
		t.Errorf("snapshot changed state to %+v", p.State())
	}
}

func TestBindings_ClassesAreDisjoint(t *testing.T) {
	b := DefaultBindings()
	counts := map[Class]int{}
	for key := range b {
		class, _ := b.Classify(key)
		counts[class]++
		if class == ClassIgnored {
			t.Errorf("bound key %q classified as ignored", key)
		}
	}
	// 8 drive keys + autonomous + persist
	if counts[ClassDrive] != 10 {
		t.Errorf("drive keys = %d, want 10", counts[ClassDrive])
	}
	if class, action := b.Classify("x"); class != ClassIgnored || action != ActionNone {
		t.Errorf("Classify(x) = %s, %s; want ignored", class, action)
	}
}

func newTestDispatcher(autonomous rover.DriveCommand, hooks Hooks) *Dispatcher {
	return NewDispatcher(nil, func() rover.DriveCommand { return autonomous }, hooks)
}

func TestDispatcher_ForwardThenRelease(t *testing.T) {
	d := newTestDispatcher(rover.DriveCommand{}, Hooks{})

	if class := d.Dispatch(KeyDown("w")); class != ClassDrive {
		t.Fatalf("class = %s, want drive", class)
	}
	if got := d.Command().Drive; got != (rover.DriveCommand{Left: 1, Right: 1}) {
		t.Errorf("after w down: %v, want (1, 1)", got)
	}
	d.Dispatch(KeyUp("w"))
	if got := d.Command().Drive; got != (rover.DriveCommand{}) {
		t.Errorf("after w up: %v, want (0, 0)", got)
	}
}

func TestDispatcher_LastKeyDownWins(t *testing.T) {
	d := newTestDispatcher(rover.DriveCommand{}, Hooks{})

	d.Dispatch(KeyDown("a"))
	d.Dispatch(KeyDown("d"))
	if got := d.Command().Drive; got != (rover.DriveCommand{Left: 1, Right: -1}) {
		t.Errorf("command = %v, want pivot-right (1, -1)", got)
	}
	if d.DriveState() != PivotRight {
		t.Errorf("state = %s, want pivot-right", d.DriveState())
	}
}

func TestDispatcher_AutonomousOverride(t *testing.T) {
	d := newTestDispatcher(rover.DriveCommand{Left: 0.3, Right: -0.7}, Hooks{})

	d.Dispatch(KeyDown("r"))
	if got := d.Command().Drive; got.Left != 0.3 || got.Right != -0.7 {
		t.Errorf("command = %v, want (0.3, -0.7)", got)
	}
	if d.DriveState() != AutonomousOverride {
		t.Errorf("state = %s, want autonomous", d.DriveState())
	}
}

func TestDispatcher_Hooks(t *testing.T) {
	var snaps, persists, quits int
	d := newTestDispatcher(rover.DriveCommand{}, Hooks{
		Snapshot: func() { snaps++ },
		Persist:  func() { persists++ },
		Shutdown: func() { quits++ },
	})

	d.Dispatch(KeyDown("w"))
	d.Dispatch(KeyDown("space"))
	d.Dispatch(KeyUp("space"))
	d.Dispatch(KeyDown("l"))
	d.Dispatch(KeyUp("l"))
	d.Dispatch(KeyDown("esc"))
	d.Dispatch(KeyUp("esc"))

	if snaps != 1 || persists != 1 || quits != 1 {
		t.Errorf("hooks called snapshot=%d persist=%d shutdown=%d, want 1 each", snaps, persists, quits)
	}
	// Neither snapshot nor the persistence hook touch the drive state.
	if got := d.Command().Drive; got != (rover.DriveCommand{Left: 1, Right: 1}) {
		t.Errorf("command = %v, want (1, 1)", got)
	}
}

func TestDispatcher_IgnoredKeys(t *testing.T) {
	d := newTestDispatcher(rover.DriveCommand{}, Hooks{})
	d.Dispatch(KeyDown("i"))
	before := d.Command()

	for _, key := range []string{"x", "F1", "", "W"} {
		if class := d.Dispatch(KeyDown(key)); class != ClassIgnored {
			t.Errorf("Dispatch(%q) = %s, want ignored", key, class)
		}
		d.Dispatch(KeyUp(key))
	}
	if d.Command() != before {
		t.Errorf("ignored keys changed command: %+v", d.Command())
	}
}

func TestDispatcher_TogglesIgnoreKeyUp(t *testing.T) {
	d := newTestDispatcher(rover.DriveCommand{}, Hooks{})
	d.Dispatch(KeyDown("u"))
	d.Dispatch(KeyUp("u"))
	if !d.Command().Peripherals.Stealth {
		t.Error("key-up reverted the stealth toggle")
	}
	d.Dispatch(KeyDown("j"))
	if d.Command().Peripherals.CameraTilt != 1 {
		t.Errorf("tilt = %d, want 1", d.Command().Peripherals.CameraTilt)
	}
	d.Dispatch(KeyUp("j"))
	if d.Command().Peripherals.CameraTilt != 0 {
		t.Errorf("tilt = %d after release, want 0", d.Command().Peripherals.CameraTilt)
	}
}

func TestKeyTracker_SynthesizesReleases(t *testing.T) {
	start := time.Unix(0, 0)
	kt := NewKeyTracker(500*time.Millisecond, nil)

	if evs := kt.Press("w", start); len(evs) != 1 || evs[0] != KeyDown("w") {
		t.Fatalf("first press = %v, want [w down]", evs)
	}
	// Auto-repeat keeps the key held without new events.
	for i := 1; i <= 10; i++ {
		if evs := kt.Press("w", start.Add(time.Duration(i)*30*time.Millisecond)); len(evs) != 0 {
			t.Fatalf("repeat %d produced %v", i, evs)
		}
	}
	if evs := kt.Expire(start.Add(400 * time.Millisecond)); len(evs) != 0 {
		t.Errorf("expired too early: %v", evs)
	}
	evs := kt.Expire(start.Add(900 * time.Millisecond))
	if len(evs) != 1 || evs[0] != KeyUp("w") {
		t.Errorf("expire = %v, want [w up]", evs)
	}
	if kt.Held("w") {
		t.Error("w still held after expiry")
	}
}

func TestKeyTracker_NewKeyReleasesPrevious(t *testing.T) {
	now := time.Unix(0, 0)
	kt := NewKeyTracker(time.Second, nil)
	kt.Press("a", now)

	evs := kt.Press("d", now.Add(10*time.Millisecond))
	want := []Event{KeyUp("a"), KeyDown("d")}
	if len(evs) != len(want) || evs[0] != want[0] || evs[1] != want[1] {
		t.Errorf("events = %v, want %v", evs, want)
	}
}

func TestKeyTracker_UntrackedKeysPressEveryTime(t *testing.T) {
	now := time.Unix(0, 0)
	kt := NewKeyTracker(time.Second, func(key string) bool { return key == "w" })
	kt.Press("w", now)

	evs := kt.Press("u", now.Add(10*time.Millisecond))
	want := []Event{KeyUp("w"), KeyDown("u")}
	if len(evs) != len(want) || evs[0] != want[0] || evs[1] != want[1] {
		t.Errorf("events = %v, want %v", evs, want)
	}
	evs = kt.Press("u", now.Add(20*time.Millisecond))
	if len(evs) != 1 || evs[0] != KeyDown("u") {
		t.Errorf("second tap = %v, want [u down]", evs)
	}
	if kt.Held("u") {
		t.Error("untracked key reported as held")
	}
}
