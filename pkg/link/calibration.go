package link

// TiltCalibration maps the raw position range of the tilt servo onto
// [-1, 1], -1 being fully down.
type TiltCalibration struct {
	RangeMin int
	RangeMax int
}

// Normalize converts a raw servo position to a value in [-1, 1].
func (c TiltCalibration) Normalize(raw int) float64 {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	if rangeSize == 0 {
		return 0
	}
	return (float64(raw-c.RangeMin)/rangeSize)*2 - 1
}

// Denormalize converts a value in [-1, 1] to a raw servo position. Values
// outside the range are clamped to the calibrated limits.
func (c TiltCalibration) Denormalize(norm float64) int {
	norm = max(-1, min(1, norm))
	rangeSize := float64(c.RangeMax - c.RangeMin)
	return int((norm+1)/2*rangeSize+0.5) + c.RangeMin
}

// Center returns the raw position of the level camera.
func (c TiltCalibration) Center() int {
	return c.Denormalize(0)
}
