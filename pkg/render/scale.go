package render

import "math"

// MaxPixel is the largest channel value of a display pixel.
const MaxPixel = 255.0

// ScaleForDisplay maps an arbitrary real-valued array onto [0, 255]:
// shift so the minimum is zero, divide by the Euclidean norm, then stretch
// so the maximum is 255. The norm cancels against the stretch, so values
// are divided by the shifted maximum directly; squaring large inputs would
// overflow. Degenerate inputs (constant, empty, NaN, Inf) yield zeros
// instead of non-finite values. x is not modified.
func ScaleForDisplay(x []float64) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}

	lo := math.Inf(1)
	for _, v := range x {
		if v < lo {
			lo = v
		}
	}

	hi := math.Inf(-1)
	for i, v := range x {
		out[i] = v - lo
		if out[i] > hi {
			hi = out[i]
		}
	}

	k := MaxPixel / hi
	for i := range out {
		out[i] = clampPixel(out[i] * k)
	}
	return out
}

func clampPixel(v float64) float64 {
	switch {
	case math.IsNaN(v), math.IsInf(v, 0), v < 0:
		return 0
	case v > MaxPixel:
		return MaxPixel
	}
	return v
}
