package teleop

import "github.com/gwillem/rover/pkg/rover"

// PeripheralController holds camera tilt and the stealth, lights and detect
// toggles. Every field is changed only by its own key.
type PeripheralController struct {
	state rover.Peripherals
}

// KeyDown applies a peripheral action. It reports true for the snapshot
// trigger, which the caller handles; no field changes in that case.
func (p *PeripheralController) KeyDown(a Action) (snapshot bool) {
	switch a {
	case ActionTiltUp:
		p.state.CameraTilt = 1
	case ActionTiltDown:
		p.state.CameraTilt = -1
	case ActionStealth:
		p.state.Stealth = !p.state.Stealth
	case ActionLights:
		p.state.Lights = !p.state.Lights
	case ActionDetect:
		p.state.Detect = !p.state.Detect
	case ActionSnapshot:
		return true
	}
	return false
}

// KeyUp stops the camera tilt. Toggles ignore key-up.
func (p *PeripheralController) KeyUp(a Action) {
	if a == ActionTiltUp || a == ActionTiltDown {
		p.state.CameraTilt = 0
	}
}

// State returns the current peripheral state.
func (p *PeripheralController) State() rover.Peripherals { return p.state }
