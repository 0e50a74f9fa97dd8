package core

import "math"

const defaultEpsilon = 1e-12

// SafetyCeiling is the hard output amplitude bound. Samples beyond this are
// clamped so a misbehaving stage can never produce a runaway signal.
const SafetyCeiling = 10.0

// Clamp limits value to the inclusive range [min, max].
func Clamp(value, min, max float64) float64 {
	if min > max {
		min, max = max, min
	}

	if value < min {
		return min
	}

	if value > max {
		return max
	}

	return value
}

// NearlyEqual reports whether a and b are equal within eps.
func NearlyEqual(a, b, eps float64) bool {
	if eps <= 0 {
		eps = defaultEpsilon
	}

	diff := math.Abs(a - b)
	if diff <= eps {
		return true
	}

	largest := math.Max(math.Abs(a), math.Abs(b))
	if largest == 0 {
		return diff <= eps
	}

	return diff/largest <= eps
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FlushDenormals converts tiny denormal-like values to exact zero.
// This can reduce denormal-related CPU slowdowns in hot DSP loops.
func FlushDenormals(x float64) float64 {
	const epsilon = 1e-30
	if x > -epsilon && x < epsilon {
		return 0
	}

	return x
}

// Sanitize maps a possibly corrupted sample to a safe one: NaN and Inf
// become zero, denormals are flushed, and the result is clamped to the
// hard ±SafetyCeiling bound.
func Sanitize(v float64) float64 {
	if !IsFinite(v) {
		return 0
	}

	v = FlushDenormals(v)

	if v > SafetyCeiling {
		return SafetyCeiling
	}

	if v < -SafetyCeiling {
		return -SafetyCeiling
	}

	return v
}

// SanitizeBlock applies Sanitize to every sample of buf in place.
func SanitizeBlock(buf []float64) {
	for i := range buf {
		buf[i] = Sanitize(buf[i])
	}
}

// DBToLinear converts dB to linear amplitude (20*log10 convention).
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// LinearToDB converts linear amplitude to dB (20*log10 convention).
// Returns -Inf for zero and NaN for negative values.
func LinearToDB(linear float64) float64 {
	if linear < 0 {
		return math.NaN()
	}

	if linear == 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(linear)
}
