package harmonizer

import (
	"strconv"
	"testing"

	"github.com/cwbudde/algo-harmonizer/internal/testutil"
)

func BenchmarkHarmonizerProcess(b *testing.B) {
	const block = 512

	for _, voices := range []int{1, 2, 3} {
		b.Run("voices_"+strconv.Itoa(voices), func(b *testing.B) {
			h := New()

			if err := h.SetChordType(ChordMajor); err != nil {
				b.Fatal(err)
			}

			if err := h.SetVoiceCount(voices); err != nil {
				b.Fatal(err)
			}

			if err := h.Prepare(48000, block); err != nil {
				b.Fatal(err)
			}

			input := testutil.DeterministicSine(440, 48000, 0.5, block)
			output := make([]float64, block)

			b.SetBytes(int64(block * 8))
			b.ReportAllocs()
			b.ResetTimer()

			for range b.N {
				h.Process(input, output)
			}
		})
	}
}
