package teleop

import "github.com/gwillem/rover/pkg/rover"

// DriveState is the state of the drive state machine.
type DriveState int

const (
	Neutral DriveState = iota
	Forward
	Backward
	PivotLeft
	PivotRight
	ArcLeftSoft
	ArcRightSoft
	ArcLeftSharp
	ArcRightSharp
	AutonomousOverride
)

var driveStateNames = [...]string{
	"neutral", "forward", "backward", "pivot-left", "pivot-right",
	"arc-left-soft", "arc-right-soft", "arc-left-sharp", "arc-right-sharp",
	"autonomous",
}

func (s DriveState) String() string {
	if int(s) < len(driveStateNames) {
		return driveStateNames[s]
	}
	return "unknown"
}

type driveEntry struct {
	state DriveState
	cmd   rover.DriveCommand
}

// Tread speeds for each operator key
var driveTable = map[Action]driveEntry{
	ActionForward:       {Forward, rover.DriveCommand{Left: 1, Right: 1}},
	ActionBackward:      {Backward, rover.DriveCommand{Left: -1, Right: -1}},
	ActionPivotLeft:     {PivotLeft, rover.DriveCommand{Left: -1, Right: 1}},
	ActionPivotRight:    {PivotRight, rover.DriveCommand{Left: 1, Right: -1}},
	ActionArcLeftSoft:   {ArcLeftSoft, rover.DriveCommand{Left: 0.1, Right: 1}},
	ActionArcRightSoft:  {ArcRightSoft, rover.DriveCommand{Left: 1, Right: 0.1}},
	ActionArcLeftSharp:  {ArcLeftSharp, rover.DriveCommand{Left: -0.1, Right: -1}},
	ActionArcRightSharp: {ArcRightSharp, rover.DriveCommand{Left: -1, Right: -0.1}},
}

// DriveMachine turns drive key events into a tread command.
// The zero value is in the Neutral state.
type DriveMachine struct {
	state DriveState
	cmd   rover.DriveCommand
}

// KeyDown enters the state bound to a. For ActionAutonomous the command
// currently proposed by the onboard network is copied verbatim.
func (m *DriveMachine) KeyDown(a Action, autonomous rover.DriveCommand) {
	if e, ok := driveTable[a]; ok {
		m.state, m.cmd = e.state, e.cmd
		return
	}
	if a == ActionAutonomous {
		m.state, m.cmd = AutonomousOverride, autonomous
	}
}

// KeyUp returns to Neutral when a held drive key is released.
func (m *DriveMachine) KeyUp(a Action) {
	if a.Class() != ClassDrive || !a.Held() {
		return
	}
	m.state, m.cmd = Neutral, rover.DriveCommand{}
}

// State returns the current state.
func (m *DriveMachine) State() DriveState { return m.state }

// Command returns the current tread command.
func (m *DriveMachine) Command() rover.DriveCommand { return m.cmd }
