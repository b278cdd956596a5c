package sensor

import "math"

// Constrain clamps x into [lo, hi].
func Constrain(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// ConstrainFloat clamps x into [lo, hi]. NaN maps to lo.
func ConstrainFloat(x, lo, hi float64) float64 {
	if math.IsNaN(x) || x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Remap linearly maps x from [inMin, inMax] onto [outMin, outMax] using
// integer arithmetic truncated toward zero. Inputs outside the source range
// extrapolate; callers constrain first when they need a bounded result.
func Remap(x, inMin, inMax, outMin, outMax int) int {
	if inMax == inMin {
		return outMin
	}
	return (x-inMin)*(outMax-outMin)/(inMax-inMin) + outMin
}
