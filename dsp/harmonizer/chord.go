package harmonizer

import "fmt"

// ChordType selects the interval set the harmony voices sing above the
// base pitch.
type ChordType int

const (
	ChordUnison ChordType = iota
	ChordOctave
	ChordFifth
	ChordMajor
	ChordMinor
	ChordDiminished
	ChordAugmented
	ChordMajor7
	ChordMinor7
	ChordSus2
	ChordSus4

	chordTypeCount
)

// chordIntervals holds per-voice offsets in semitones. Triads put the
// octave on the third voice so two-voice configurations keep the
// characteristic third and fifth.
var chordIntervals = [chordTypeCount][MaxVoices]int{
	ChordUnison:     {0, 0, 0},
	ChordOctave:     {12, -12, 24},
	ChordFifth:      {7, 12, 19},
	ChordMajor:      {4, 7, 12},
	ChordMinor:      {3, 7, 12},
	ChordDiminished: {3, 6, 12},
	ChordAugmented:  {4, 8, 12},
	ChordMajor7:     {4, 7, 11},
	ChordMinor7:     {3, 7, 10},
	ChordSus2:       {2, 7, 12},
	ChordSus4:       {5, 7, 12},
}

var chordNames = [chordTypeCount]string{
	ChordUnison:     "Unison",
	ChordOctave:     "Octave",
	ChordFifth:      "Fifth",
	ChordMajor:      "Major",
	ChordMinor:      "Minor",
	ChordDiminished: "Diminished",
	ChordAugmented:  "Augmented",
	ChordMajor7:     "Major7",
	ChordMinor7:     "Minor7",
	ChordSus2:       "Sus2",
	ChordSus4:       "Sus4",
}

// Valid reports whether t names a known chord type.
func (t ChordType) Valid() bool {
	return t >= 0 && t < chordTypeCount
}

// Intervals returns a copy of the per-voice semitone offsets.
func (t ChordType) Intervals() []int {
	if !t.Valid() {
		t = ChordUnison
	}

	out := make([]int, MaxVoices)
	copy(out, chordIntervals[t][:])

	return out
}

func (t ChordType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("ChordType(%d)", int(t))
	}

	return chordNames[t]
}

// ChordTypeByName resolves a chord name as used by String.
func ChordTypeByName(name string) (ChordType, error) {
	for t, n := range chordNames {
		if n == name {
			return ChordType(t), nil
		}
	}

	return 0, fmt.Errorf("unknown chord type: %q", name)
}
