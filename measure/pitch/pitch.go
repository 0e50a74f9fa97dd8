// Package pitch estimates fundamental frequencies from spectral peaks.
// It is a measurement tool, not a real-time tracker: each call windows
// the signal, runs one FFT, and refines the dominant peak with parabolic
// interpolation on log magnitudes.
package pitch

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/cwbudde/algo-harmonizer/dsp/window"
)

const (
	defaultMinFreqHz = 20.0
	defaultMaxFreqHz = 20000.0

	minFFTSize = 256
)

// EstimateFundamental returns the frequency of the strongest spectral
// peak in the audible range (20 Hz to 20 kHz, clamped to Nyquist).
func EstimateFundamental(signal []float64, sampleRate float64) (float64, error) {
	return EstimateInRange(signal, sampleRate, defaultMinFreqHz, defaultMaxFreqHz)
}

// EstimateInRange returns the frequency of the strongest spectral peak
// between minFreq and maxFreq. Non-positive bounds fall back to the
// defaults; maxFreq is clamped to Nyquist.
func EstimateInRange(signal []float64, sampleRate, minFreq, maxFreq float64) (float64, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return 0, fmt.Errorf("pitch estimate sample rate must be positive and finite: %f", sampleRate)
	}

	if len(signal) < 2 {
		return 0, fmt.Errorf("pitch estimate needs at least 2 samples: %d", len(signal))
	}

	if minFreq <= 0 {
		minFreq = defaultMinFreqHz
	}

	nyquist := sampleRate / 2
	if maxFreq <= 0 || maxFreq > nyquist {
		maxFreq = nyquist
	}

	if maxFreq < minFreq {
		return 0, fmt.Errorf("pitch estimate range is empty: [%f, %f] Hz", minFreq, maxFreq)
	}

	fftSize := nextPowerOf2(len(signal))
	if fftSize < minFFTSize {
		fftSize = minFFTSize
	}

	coeffs := window.Generate(window.TypeHann, len(signal))

	buf := make([]float64, fftSize)
	for i := range signal {
		buf[i] = signal[i] * coeffs[i]
	}

	fft := fourier.NewFFT(fftSize)
	spectrum := fft.Coefficients(nil, buf)

	magnitudes := make([]float64, len(spectrum))
	for i, c := range spectrum {
		magnitudes[i] = cmplx.Abs(c)
	}

	binHz := sampleRate / float64(fftSize)

	lowerBin := int(math.Ceil(minFreq / binHz))
	if lowerBin < 1 {
		lowerBin = 1
	}

	upperBin := int(math.Floor(maxFreq / binHz))
	if upperBin > len(magnitudes)-1 {
		upperBin = len(magnitudes) - 1
	}

	if lowerBin > upperBin {
		return 0, fmt.Errorf("pitch estimate range [%f, %f] Hz resolves to no bins at %d-point FFT", minFreq, maxFreq, fftSize)
	}

	peakBin := lowerBin
	for i := lowerBin + 1; i <= upperBin; i++ {
		if magnitudes[i] > magnitudes[peakBin] {
			peakBin = i
		}
	}

	if magnitudes[peakBin] == 0 {
		return 0, fmt.Errorf("no spectral peak in [%f, %f] Hz", minFreq, maxFreq)
	}

	return (float64(peakBin) + parabolicOffset(magnitudes, peakBin)) * binHz, nil
}

// PeakNear returns the refined frequency of the strongest peak within
// +/- toleranceCents around targetHz.
func PeakNear(signal []float64, sampleRate, targetHz, toleranceCents float64) (float64, error) {
	if targetHz <= 0 || math.IsNaN(targetHz) || math.IsInf(targetHz, 0) {
		return 0, fmt.Errorf("peak search target must be positive and finite: %f", targetHz)
	}

	if toleranceCents <= 0 {
		return 0, fmt.Errorf("peak search tolerance must be > 0 cents: %f", toleranceCents)
	}

	lower := targetHz * math.Pow(2, -toleranceCents/1200)
	upper := targetHz * math.Pow(2, toleranceCents/1200)

	return EstimateInRange(signal, sampleRate, lower, upper)
}

// CentsError returns the signed pitch error of measured against
// reference in cents of equal temperament: 1200*log2(measured/reference).
// Non-positive inputs yield NaN.
func CentsError(measured, reference float64) float64 {
	if measured <= 0 || reference <= 0 {
		return math.NaN()
	}

	return 1200 * math.Log2(measured/reference)
}

// parabolicOffset fits a parabola through the log magnitudes around the
// peak bin and returns the fractional bin offset in [-0.5, 0.5].
func parabolicOffset(magnitudes []float64, k int) float64 {
	if k <= 0 || k >= len(magnitudes)-1 {
		return 0
	}

	const magFloor = 1e-30

	a := math.Log(max(magnitudes[k-1], magFloor))
	b := math.Log(max(magnitudes[k], magFloor))
	c := math.Log(max(magnitudes[k+1], magFloor))

	denom := a - 2*b + c
	if denom == 0 || math.IsNaN(denom) || math.IsInf(denom, 0) {
		return 0
	}

	offset := 0.5 * (a - c) / denom
	if offset < -0.5 {
		offset = -0.5
	}

	if offset > 0.5 {
		offset = 0.5
	}

	return offset
}

func nextPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}

	p := 1
	for p < n {
		p <<= 1
	}

	return p
}
