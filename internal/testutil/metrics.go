package testutil

import "math"

// RMS returns the root-mean-square amplitude of data, or 0 for empty input.
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range data {
		sum += v * v
	}

	return math.Sqrt(sum / float64(len(data)))
}

// RMSdBFS returns the RMS level in dB relative to full scale (1.0).
// Returns -Inf for silence.
func RMSdBFS(data []float64) float64 {
	rms := RMS(data)
	if rms == 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(rms)
}
