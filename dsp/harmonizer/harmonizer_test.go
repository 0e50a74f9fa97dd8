package harmonizer

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-harmonizer/internal/testutil"
	"github.com/cwbudde/algo-harmonizer/measure/pitch"
)

func renderBlocks(h *Harmonizer, input []float64, block int) []float64 {
	out := make([]float64, len(input))

	for start := 0; start < len(input); start += block {
		end := min(start+block, len(input))
		h.Process(input[start:end], out[start:end])
	}

	return out
}

func TestHarmonizerPrepareValidation(t *testing.T) {
	tests := []struct {
		name       string
		opts       []Option
		sampleRate float64
		maxBlock   int
		wantErr    bool
	}{
		{"valid", nil, 48000, 512, false},
		{"zero_sample_rate", nil, 0, 512, true},
		{"nan_sample_rate", nil, math.NaN(), 512, true},
		{"zero_block", nil, 48000, 0, true},
		{"bad_window", []Option{WithWindowSize(999)}, 48000, 512, true},
		{"bad_overlap", []Option{WithOverlapFactor(1)}, 48000, 512, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(tt.opts...)

			err := h.Prepare(tt.sampleRate, tt.maxBlock)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Prepare error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHarmonizerUnpreparedPassthrough(t *testing.T) {
	h := New()

	input := testutil.DeterministicSine(440, 48000, 0.5, 1024)
	output := make([]float64, len(input))

	h.Process(input, output)
	testutil.RequireSliceNearlyEqual(t, output, input, 0)
}

func TestHarmonizerSetterValidation(t *testing.T) {
	h := New()

	if err := h.SetPitchSemitones(25); err == nil {
		t.Error("pitch beyond +24 should fail")
	}

	if err := h.SetPitchSemitones(math.NaN()); err == nil {
		t.Error("NaN pitch should fail")
	}

	if err := h.SetChordType(ChordType(99)); err == nil {
		t.Error("unknown chord should fail")
	}

	if err := h.SetVoiceCount(0); err == nil {
		t.Error("zero voices should fail")
	}

	if err := h.SetVoiceCount(MaxVoices + 1); err == nil {
		t.Error("too many voices should fail")
	}

	if err := h.SetMix(1.5); err == nil {
		t.Error("mix beyond 1 should fail")
	}

	if err := h.SetLevel(-0.1); err == nil {
		t.Error("negative level should fail")
	}

	if err := h.SetScale(Scale(99)); err == nil {
		t.Error("unknown scale should fail")
	}

	if err := h.SetChordType(ChordMinor7); err != nil {
		t.Errorf("SetChordType(ChordMinor7) = %v", err)
	}

	if got := h.ChordType(); got != ChordMinor7 {
		t.Errorf("ChordType() = %v, want ChordMinor7", got)
	}
}

func TestHarmonizerLatency(t *testing.T) {
	h := New(WithWindowSize(1024))

	if got := h.LatencySamples(); got != 1024 {
		t.Errorf("unprepared LatencySamples() = %d, want 1024", got)
	}

	if err := h.Prepare(48000, 512); err != nil {
		t.Fatal(err)
	}

	if got := h.LatencySamples(); got != 1024 {
		t.Errorf("LatencySamples() = %d, want 1024", got)
	}
}

func TestHarmonizerWarmupPassthrough(t *testing.T) {
	const block = 512

	h := New()
	if err := h.SetMix(1); err != nil {
		t.Fatal(err)
	}

	if err := h.Prepare(48000, block); err != nil {
		t.Fatal(err)
	}

	if h.Ready() {
		t.Fatal("fresh harmonizer should not be ready")
	}

	// Everything before the gate opens must be the dry input, bit for
	// bit, even at full wet mix.
	input := testutil.DeterministicSine(440, 48000, 0.5, h.LatencySamples())
	output := renderBlocks(h, input, block)

	testutil.RequireSliceNearlyEqual(t, output, input, 0)
}

func TestHarmonizerBecomesReady(t *testing.T) {
	const block = 512

	h := New()
	if err := h.Prepare(48000, block); err != nil {
		t.Fatal(err)
	}

	required := h.LatencySamples() + block
	input := testutil.DeterministicSine(440, 48000, 0.5, required)
	renderBlocks(h, input, block)

	if !h.Ready() {
		t.Fatalf("not ready after %d samples", required)
	}
}

func TestHarmonizerMajorChordFrequencies(t *testing.T) {
	const (
		sampleRate = 48000.0
		block      = 512
		total      = 72000
		tail       = 16384
	)

	h := New()

	if err := h.SetChordType(ChordMajor); err != nil {
		t.Fatal(err)
	}

	if err := h.SetVoiceCount(3); err != nil {
		t.Fatal(err)
	}

	if err := h.SetMix(1); err != nil {
		t.Fatal(err)
	}

	if err := h.Prepare(sampleRate, block); err != nil {
		t.Fatal(err)
	}

	input := testutil.DeterministicSine(440, sampleRate, 0.5, total)
	output := renderBlocks(h, input, block)

	// A major chord on A4: C#5, E5, A5.
	for _, want := range []float64{554.37, 659.26, 880.00} {
		got, err := pitch.PeakNear(output[total-tail:], sampleRate, want, 100)
		if err != nil {
			t.Fatalf("no peak near %v Hz: %v", want, err)
		}

		if cents := math.Abs(pitch.CentsError(got, want)); cents > 5 {
			t.Errorf("voice at %v Hz, want %v Hz (%.2f cents off)", got, want, cents)
		}
	}
}

func TestHarmonizerScaleQuantizesVoices(t *testing.T) {
	const (
		sampleRate = 48000.0
		block      = 512
		total      = 72000
		tail       = 16384
	)

	h := New()

	// A minor third above A4 is not an A-major degree; the tie between
	// the second and the major third resolves downward to +2 st.
	if err := h.SetChordType(ChordMinor); err != nil {
		t.Fatal(err)
	}

	if err := h.SetVoiceCount(1); err != nil {
		t.Fatal(err)
	}

	if err := h.SetScale(ScaleMajor); err != nil {
		t.Fatal(err)
	}

	if err := h.SetMix(1); err != nil {
		t.Fatal(err)
	}

	if err := h.Prepare(sampleRate, block); err != nil {
		t.Fatal(err)
	}

	input := testutil.DeterministicSine(440, sampleRate, 0.5, total)
	output := renderBlocks(h, input, block)

	// Quantized interval is +2 st: expect B4 at 493.88 Hz.
	got, err := pitch.EstimateInRange(output[total-tail:], sampleRate, 460, 530)
	if err != nil {
		t.Fatal(err)
	}

	if cents := math.Abs(pitch.CentsError(got, 493.88)); cents > 5 {
		t.Errorf("quantized voice at %v Hz, want 493.88 Hz (%.2f cents off)", got, cents)
	}
}

func TestHarmonizerSilenceStaysSilent(t *testing.T) {
	h := New()
	if err := h.Prepare(48000, 512); err != nil {
		t.Fatal(err)
	}

	output := renderBlocks(h, make([]float64, 8192), 512)

	if got := testutil.RMSdBFS(output); got > -90 {
		t.Errorf("silence output RMS = %v dBFS, want < -90", got)
	}
}

func TestHarmonizerHostileInputStaysBounded(t *testing.T) {
	h := New()

	if err := h.SetChordType(ChordMajor); err != nil {
		t.Fatal(err)
	}

	if err := h.SetVoiceCount(3); err != nil {
		t.Fatal(err)
	}

	if err := h.Prepare(48000, 512); err != nil {
		t.Fatal(err)
	}

	input := testutil.DeterministicNoise(3, 0.5, 8192)
	input[10] = math.NaN()
	input[20] = math.Inf(1)
	input[30] = math.Inf(-1)
	input[40] = 1e12

	output := renderBlocks(h, input, 512)

	testutil.RequireFinite(t, output)

	for i, v := range output {
		if math.Abs(v) > 10 {
			t.Fatalf("output[%d] = %v exceeds the hard ceiling", i, v)
		}
	}
}

func TestHarmonizerResetDeterminism(t *testing.T) {
	h := New()

	if err := h.SetChordType(ChordFifth); err != nil {
		t.Fatal(err)
	}

	if err := h.SetVoiceCount(2); err != nil {
		t.Fatal(err)
	}

	if err := h.Prepare(48000, 512); err != nil {
		t.Fatal(err)
	}

	input := testutil.DeterministicNoise(11, 0.5, 8192)

	first := renderBlocks(h, input, 512)

	h.Reset()

	if h.Ready() {
		t.Fatal("Reset should re-arm warmup")
	}

	second := renderBlocks(h, input, 512)

	testutil.RequireSliceNearlyEqual(t, second, first, 0)
}

func TestHarmonizerTruncatesOversizedBlocks(t *testing.T) {
	const maxBlock = 256

	h := New()
	if err := h.Prepare(48000, maxBlock); err != nil {
		t.Fatal(err)
	}

	input := testutil.DeterministicSine(440, 48000, 0.5, 512)

	output := make([]float64, 512)
	for i := range output {
		output[i] = 123
	}

	h.Process(input, output)

	for i := maxBlock; i < len(output); i++ {
		if output[i] != 123 {
			t.Fatalf("output[%d] written beyond the prepared maximum block", i)
		}
	}
}
