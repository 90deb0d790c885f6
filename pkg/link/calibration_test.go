package link

import (
	"math"
	"testing"
)

func TestTiltCalibration_Normalize(t *testing.T) {
	cal := TiltCalibration{
		RangeMin: 1000,
		RangeMax: 3000,
	}

	tests := []struct {
		raw      int
		expected float64
	}{
		{1000, -1.0}, // min -> -1
		{3000, 1.0},  // max -> 1
		{2000, 0.0},  // mid -> 0
		{1500, -0.5},
		{2500, 0.5},
	}

	for _, tt := range tests {
		got := cal.Normalize(tt.raw)
		if math.Abs(got-tt.expected) > 0.001 {
			t.Errorf("Normalize(%d) = %f, want %f", tt.raw, got, tt.expected)
		}
	}

	if got := (TiltCalibration{RangeMin: 5, RangeMax: 5}).Normalize(5); got != 0 {
		t.Errorf("Normalize on empty range = %f, want 0", got)
	}
}

func TestTiltCalibration_Denormalize(t *testing.T) {
	cal := TiltCalibration{
		RangeMin: 1000,
		RangeMax: 3000,
	}

	tests := []struct {
		norm     float64
		expected int
	}{
		{-1.0, 1000},
		{1.0, 3000},
		{0.0, 2000},
		{-0.5, 1500},
		{0.5, 2500},
		{-3.0, 1000}, // clamped
		{2.0, 3000},  // clamped
	}

	for _, tt := range tests {
		got := cal.Denormalize(tt.norm)
		if got != tt.expected {
			t.Errorf("Denormalize(%f) = %d, want %d", tt.norm, got, tt.expected)
		}
	}
}

func TestTiltCalibration_RoundTrip(t *testing.T) {
	cal := TiltCalibration{
		RangeMin: 823,
		RangeMax: 3540,
	}

	for raw := cal.RangeMin; raw <= cal.RangeMax; raw += 100 {
		norm := cal.Normalize(raw)
		back := cal.Denormalize(norm)
		if math.Abs(float64(back-raw)) > 1 {
			t.Errorf("Round-trip failed: %d -> %f -> %d", raw, norm, back)
		}
	}
}
