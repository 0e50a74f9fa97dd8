package vocoder

import (
	"fmt"
	"math"
)

// nyquistFraction caps instantaneous frequency estimates. A tighter 0.5x
// clamp was tried and discards legitimate high-frequency content.
const nyquistFraction = 0.95

// Core holds the per-voice spectral state of one phase vocoder: previous
// analysis phases, accumulated synthesis phases, and bin-center
// frequencies. One Core belongs to exactly one voice; nothing here is
// shared across voices.
type Core struct {
	frameSize int
	hop       int
	bins      int

	omega     []float64
	prevPhase []float64
	sumPhase  []float64

	magnitudes  []float64
	instFreqs   []float64
	shiftedMag  []float64
	shiftedFreq []float64
	envelope    []float64
	shiftedEnv  []float64
}

// NewCore allocates vocoder state for the given frame geometry.
func NewCore(frameSize, hop int) (*Core, error) {
	if frameSize <= 0 || hop <= 0 || hop >= frameSize {
		return nil, fmt.Errorf("vocoder core needs 0 < hop < frameSize: hop=%d frameSize=%d", hop, frameSize)
	}

	bins := frameSize/2 + 1

	c := &Core{
		frameSize:   frameSize,
		hop:         hop,
		bins:        bins,
		omega:       make([]float64, bins),
		prevPhase:   make([]float64, bins),
		sumPhase:    make([]float64, bins),
		magnitudes:  make([]float64, bins),
		instFreqs:   make([]float64, bins),
		shiftedMag:  make([]float64, bins),
		shiftedFreq: make([]float64, bins),
		envelope:    make([]float64, bins),
		shiftedEnv:  make([]float64, bins),
	}

	for k := range c.omega {
		c.omega[k] = 2 * math.Pi * float64(k) / float64(frameSize)
	}

	return c, nil
}

// Bins returns the half-spectrum length this core operates on.
func (c *Core) Bins() int { return c.bins }

// Reset zeroes all phase tracking state. Idempotent.
func (c *Core) Reset() {
	for i := range c.prevPhase {
		c.prevPhase[i] = 0
		c.sumPhase[i] = 0
	}
}

// Remap shifts the half-spectrum frame by the given pitch ratio in place.
// Donor-less destination bins stay silent; non-finite magnitudes and
// frequencies are substituted, never propagated.
func (c *Core) Remap(spectrum []complex128, ratio float64) {
	c.RemapFormant(spectrum, ratio, 1)
}

// RemapFormant shifts pitch by ratio and additionally moves the spectral
// envelope by formantRatio (1 = leave formants where the pitch shift put
// them). Both loops are bounded by the bin count.
func (c *Core) RemapFormant(spectrum []complex128, ratio, formantRatio float64) {
	if len(spectrum) < c.bins {
		return
	}

	maxFreq := nyquistFraction * math.Pi
	hopF := float64(c.hop)

	// Analysis: unwrap phase and estimate per-bin instantaneous frequency.
	for k := 0; k < c.bins; k++ {
		re := real(spectrum[k])
		im := imag(spectrum[k])

		mag := math.Hypot(re, im)
		if math.IsNaN(mag) || math.IsInf(mag, 0) || mag < 0 {
			mag = 0
		}

		phase := math.Atan2(im, re)
		if math.IsNaN(phase) || math.IsInf(phase, 0) {
			phase = c.prevPhase[k]
		}

		delta := wrapPhase(phase - c.prevPhase[k] - c.omega[k]*hopF)
		c.prevPhase[k] = phase

		instFreq := c.omega[k] + delta/hopF
		if math.IsNaN(instFreq) || math.IsInf(instFreq, 0) {
			// Bin-center fallback: a corrupted estimate must not leak
			// into the synthesis phase accumulator.
			instFreq = c.omega[k]
		}

		if instFreq > maxFreq {
			instFreq = maxFreq
		}
		if instFreq < 0 {
			instFreq = 0
		}

		c.magnitudes[k] = mag
		c.instFreqs[k] = instFreq
	}

	// Remap each source bin to round(k*ratio), accumulating energy.
	for k := 0; k < c.bins; k++ {
		c.shiftedMag[k] = 0
		c.shiftedFreq[k] = 0
	}

	if isUsableRatio(ratio) {
		for k := 0; k < c.bins; k++ {
			if c.magnitudes[k] == 0 {
				continue
			}

			dst := int(math.Round(float64(k) * ratio))
			if dst < 0 || dst >= c.bins {
				continue
			}

			f := c.instFreqs[k] * ratio
			if f > maxFreq {
				f = maxFreq
			}

			c.shiftedMag[dst] += c.magnitudes[k]
			c.shiftedFreq[dst] = f
		}
	}

	if formantRatio != 1 && isUsableRatio(formantRatio) {
		c.applyFormantShift(formantRatio)
	}

	// Synthesis: advance accumulated phases and rebuild the spectrum.
	for k := 0; k < c.bins; k++ {
		freq := c.shiftedFreq[k]
		if c.shiftedMag[k] == 0 {
			// Keep silent bins phase-continuous at their center frequency.
			freq = c.omega[k]
		}

		c.sumPhase[k] = wrapPhase(c.sumPhase[k] + freq*hopF)

		mag := c.shiftedMag[k]
		if math.IsNaN(mag) || math.IsInf(mag, 0) || mag < 0 {
			mag = 0
		}

		spectrum[k] = complex(mag*math.Cos(c.sumPhase[k]), mag*math.Sin(c.sumPhase[k]))
	}
}

// applyFormantShift resamples a coarse magnitude envelope by formantRatio
// and rescales the shifted magnitudes to follow it.
func (c *Core) applyFormantShift(formantRatio float64) {
	const envFloor = 1e-12

	// Coarse envelope: moving average over ~1/32 of the spectrum.
	radius := c.bins / 32
	if radius < 1 {
		radius = 1
	}

	sum := 0.0
	count := 0

	for k := 0; k < c.bins; k++ {
		if k == 0 {
			for i := -radius; i <= radius; i++ {
				if i >= 0 && i < c.bins {
					sum += c.shiftedMag[i]
					count++
				}
			}
		} else {
			if k-radius-1 >= 0 {
				sum -= c.shiftedMag[k-radius-1]
				count--
			}
			if k+radius < c.bins {
				sum += c.shiftedMag[k+radius]
				count++
			}
		}

		c.envelope[k] = sum / float64(count)
	}

	for k := 0; k < c.bins; k++ {
		src := float64(k) / formantRatio

		lo := int(src)
		if lo < 0 || lo >= c.bins {
			c.shiftedEnv[k] = 0
			continue
		}

		hi := lo + 1
		if hi >= c.bins {
			hi = c.bins - 1
		}

		frac := src - float64(lo)
		c.shiftedEnv[k] = c.envelope[lo]*(1-frac) + c.envelope[hi]*frac
	}

	for k := 0; k < c.bins; k++ {
		if c.envelope[k] > envFloor {
			c.shiftedMag[k] *= c.shiftedEnv[k] / c.envelope[k]
		}
	}
}

func isUsableRatio(r float64) bool {
	return r > 0 && !math.IsNaN(r) && !math.IsInf(r, 0)
}

func wrapPhase(x float64) float64 {
	x = math.Mod(x+math.Pi, 2*math.Pi)
	if x < 0 {
		x += 2 * math.Pi
	}

	return x - math.Pi
}
