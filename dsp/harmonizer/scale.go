package harmonizer

import (
	"fmt"
	"math"
)

// Scale restricts harmony pitches to a set of semitone degrees per
// octave. ScaleChromatic quantizes to the nearest semitone only.
type Scale int

const (
	ScaleChromatic Scale = iota
	ScaleMajor
	ScaleNaturalMinor
	ScaleHarmonicMinor
	ScaleMajorPentatonic

	scaleCount
)

var scaleDegrees = [scaleCount][]int{
	ScaleChromatic:       {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
	ScaleMajor:           {0, 2, 4, 5, 7, 9, 11},
	ScaleNaturalMinor:    {0, 2, 3, 5, 7, 8, 10},
	ScaleHarmonicMinor:   {0, 2, 3, 5, 7, 8, 11},
	ScaleMajorPentatonic: {0, 2, 4, 7, 9},
}

var scaleNames = [scaleCount]string{
	ScaleChromatic:       "Chromatic",
	ScaleMajor:           "Major",
	ScaleNaturalMinor:    "NaturalMinor",
	ScaleHarmonicMinor:   "HarmonicMinor",
	ScaleMajorPentatonic: "MajorPentatonic",
}

// Valid reports whether s names a known scale.
func (s Scale) Valid() bool {
	return s >= 0 && s < scaleCount
}

func (s Scale) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Scale(%d)", int(s))
	}

	return scaleNames[s]
}

// ScaleByName resolves a scale name as used by String.
func ScaleByName(name string) (Scale, error) {
	for s, n := range scaleNames {
		if n == name {
			return Scale(s), nil
		}
	}

	return 0, fmt.Errorf("unknown scale: %q", name)
}

// Quantize snaps a semitone offset to the nearest degree of the scale.
// Ties between two degrees resolve downward. Non-finite inputs return 0.
func (s Scale) Quantize(semitones float64) float64 {
	if math.IsNaN(semitones) || math.IsInf(semitones, 0) {
		return 0
	}

	if !s.Valid() {
		s = ScaleChromatic
	}

	octave := math.Floor(semitones / 12)
	pitchClass := semitones - 12*octave

	best := 0.0
	bestDist := math.Inf(1)

	// Degrees of the adjacent octaves compete at the boundaries.
	for _, d := range scaleDegrees[s] {
		for _, candidate := range []float64{float64(d) - 12, float64(d), float64(d) + 12} {
			dist := math.Abs(pitchClass - candidate)
			if dist < bestDist {
				bestDist = dist
				best = candidate
			}
		}
	}

	return 12*octave + best
}
