package teleop

// Action is what a bound key does.
type Action int

const (
	ActionNone Action = iota

	// Drive actions
	ActionForward
	ActionBackward
	ActionPivotLeft
	ActionPivotRight
	ActionArcLeftSoft
	ActionArcRightSoft
	ActionArcLeftSharp
	ActionArcRightSharp
	ActionAutonomous
	ActionPersist

	// Peripheral actions
	ActionTiltUp
	ActionTiltDown
	ActionStealth
	ActionLights
	ActionDetect
	ActionSnapshot

	ActionQuit
)

var actionNames = map[Action]string{
	ActionNone:          "none",
	ActionForward:       "forward",
	ActionBackward:      "backward",
	ActionPivotLeft:     "pivot-left",
	ActionPivotRight:    "pivot-right",
	ActionArcLeftSoft:   "arc-left-soft",
	ActionArcRightSoft:  "arc-right-soft",
	ActionArcLeftSharp:  "arc-left-sharp",
	ActionArcRightSharp: "arc-right-sharp",
	ActionAutonomous:    "autonomous",
	ActionPersist:       "persist",
	ActionTiltUp:        "tilt-up",
	ActionTiltDown:      "tilt-down",
	ActionStealth:       "stealth",
	ActionLights:        "lights",
	ActionDetect:        "detect",
	ActionSnapshot:      "snapshot",
	ActionQuit:          "quit",
}

func (a Action) String() string {
	if s, ok := actionNames[a]; ok {
		return s
	}
	return "unknown"
}

// Class is the category an input event falls into.
type Class int

const (
	ClassIgnored Class = iota
	ClassShutdown
	ClassDrive
	ClassPeripheral
)

func (c Class) String() string {
	switch c {
	case ClassShutdown:
		return "shutdown"
	case ClassDrive:
		return "drive"
	case ClassPeripheral:
		return "peripheral"
	default:
		return "ignored"
	}
}

var actionClasses = map[Action]Class{
	ActionForward:       ClassDrive,
	ActionBackward:      ClassDrive,
	ActionPivotLeft:     ClassDrive,
	ActionPivotRight:    ClassDrive,
	ActionArcLeftSoft:   ClassDrive,
	ActionArcRightSoft:  ClassDrive,
	ActionArcLeftSharp:  ClassDrive,
	ActionArcRightSharp: ClassDrive,
	ActionAutonomous:    ClassDrive,
	ActionPersist:       ClassDrive,
	ActionTiltUp:        ClassPeripheral,
	ActionTiltDown:      ClassPeripheral,
	ActionStealth:       ClassPeripheral,
	ActionLights:        ClassPeripheral,
	ActionDetect:        ClassPeripheral,
	ActionSnapshot:      ClassPeripheral,
	ActionQuit:          ClassShutdown,
}

// Class returns the class of the action.
func (a Action) Class() Class {
	return actionClasses[a]
}

// Held reports whether the action lasts only while its key is held, so that
// releasing the key reverts it.
func (a Action) Held() bool {
	switch a {
	case ActionPersist:
		return false
	case ActionTiltUp, ActionTiltDown:
		return true
	}
	return a.Class() == ClassDrive
}

// Bindings maps key names, as reported by the terminal, to actions.
type Bindings map[string]Action

// DefaultBindings returns the fixed key table of the console.
func DefaultBindings() Bindings {
	return Bindings{
		"w": ActionForward,
		"s": ActionBackward,
		"a": ActionPivotLeft,
		"d": ActionPivotRight,
		"q": ActionArcLeftSoft,
		"e": ActionArcRightSoft,
		"z": ActionArcLeftSharp,
		"c": ActionArcRightSharp,
		"r": ActionAutonomous,
		"l": ActionPersist,

		"j":     ActionTiltUp,
		"k":     ActionTiltDown,
		"u":     ActionStealth,
		"i":     ActionLights,
		"o":     ActionDetect,
		" ":     ActionSnapshot,
		"space": ActionSnapshot,

		"esc":    ActionQuit,
		"ctrl+c": ActionQuit,
	}
}

// Classify looks up a key. Unbound keys are ClassIgnored.
func (b Bindings) Classify(key string) (Class, Action) {
	a, ok := b[key]
	if !ok {
		return ClassIgnored, ActionNone
	}
	return a.Class(), a
}
