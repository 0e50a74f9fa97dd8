package harmonizer

import (
	"fmt"
	"math"
)

// ParamID identifies one automatable parameter for hosts that address
// parameters by index with normalized [0, 1] values.
type ParamID int

const (
	ParamPitch ParamID = iota
	ParamChordType
	ParamVoices
	ParamMix
	ParamLevel
	ParamScale

	paramCount
)

var paramNames = [paramCount]string{
	ParamPitch:     "Pitch",
	ParamChordType: "Chord",
	ParamVoices:    "Voices",
	ParamMix:       "Mix",
	ParamLevel:     "Level",
	ParamScale:     "Scale",
}

// ParamCount returns the number of automatable parameters.
func ParamCount() int { return int(paramCount) }

func (id ParamID) String() string {
	if id < 0 || id >= paramCount {
		return fmt.Sprintf("ParamID(%d)", int(id))
	}

	return paramNames[id]
}

// SetParameter maps a normalized [0, 1] value onto the parameter's
// native range and publishes it. Values outside [0, 1] are clamped;
// non-finite values are rejected.
func (h *Harmonizer) SetParameter(id ParamID, normalized float64) error {
	if math.IsNaN(normalized) || math.IsInf(normalized, 0) {
		return fmt.Errorf("parameter %v must be finite: %f", id, normalized)
	}

	if normalized < 0 {
		normalized = 0
	}

	if normalized > 1 {
		normalized = 1
	}

	switch id {
	case ParamPitch:
		return h.SetPitchSemitones(normalized*48 - 24)
	case ParamChordType:
		return h.SetChordType(ChordType(math.Round(normalized * float64(chordTypeCount-1))))
	case ParamVoices:
		return h.SetVoiceCount(1 + int(math.Round(normalized*float64(MaxVoices-1))))
	case ParamMix:
		return h.SetMix(normalized)
	case ParamLevel:
		return h.SetLevel(normalized * maxLevel)
	case ParamScale:
		return h.SetScale(Scale(math.Round(normalized * float64(scaleCount-1))))
	default:
		return fmt.Errorf("unknown parameter id: %d", int(id))
	}
}

// Parameter returns the current normalized value of a parameter.
func (h *Harmonizer) Parameter(id ParamID) (float64, error) {
	switch id {
	case ParamPitch:
		return (h.basePitch.Load() + 24) / 48, nil
	case ParamChordType:
		return h.chordSel.Load() / float64(chordTypeCount-1), nil
	case ParamVoices:
		return (h.voiceSel.Load() - 1) / float64(MaxVoices-1), nil
	case ParamMix:
		return h.mixSel.Load(), nil
	case ParamLevel:
		return h.levelSel.Load() / maxLevel, nil
	case ParamScale:
		return h.scaleSel.Load() / float64(scaleCount-1), nil
	default:
		return 0, fmt.Errorf("unknown parameter id: %d", int(id))
	}
}
