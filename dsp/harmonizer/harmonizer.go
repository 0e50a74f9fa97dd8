package harmonizer

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-harmonizer/dsp/core"
	"github.com/cwbudde/algo-harmonizer/dsp/delay"
	"github.com/cwbudde/algo-harmonizer/dsp/vocoder"
	"github.com/cwbudde/algo-harmonizer/dsp/window"
)

const (
	// MaxVoices bounds the number of simultaneous harmony voices.
	MaxVoices = 3

	// voiceGainRampSeconds smooths voices in and out when the count or
	// an interval changes.
	voiceGainRampSeconds = 0.010

	maxLevel = 2.0
)

// Harmonizer mixes up to MaxVoices pitch-shifted copies of the input
// with a latency-compensated dry path. All voices run permanently so
// enabling one later needs no re-warmup; disabled voices are muted.
//
// Setters are safe to call from a control thread; Process consumes
// their values once per block. Prepare and Reset must not race Process.
type Harmonizer struct {
	windowSize    int
	overlapFactor int
	winType       window.Type

	sampleRate float64
	maxBlock   int
	latency    int

	voices [MaxVoices]*vocoder.Shifter
	dry    *delay.Line

	basePitch core.ParamCell
	chordSel  core.ParamCell
	voiceSel  core.ParamCell
	mixSel    core.ParamCell
	levelSel  core.ParamCell
	scaleSel  core.ParamCell

	mix       *core.Smoother
	level     *core.Smoother
	warm      *core.Smoother
	voiceGain [MaxVoices]*core.Smoother

	gate *Warmup

	inBuf    []float64
	dryBuf   []float64
	wetBuf   []float64
	voiceBuf []float64

	prepared bool
}

// Option configures a Harmonizer before Prepare.
type Option func(*Harmonizer)

// WithWindowSize sets the per-voice analysis window size.
func WithWindowSize(size int) Option {
	return func(h *Harmonizer) {
		h.windowSize = size
	}
}

// WithOverlapFactor sets the per-voice window/hop ratio.
func WithOverlapFactor(factor int) Option {
	return func(h *Harmonizer) {
		h.overlapFactor = factor
	}
}

// WithWindowType selects the per-voice analysis window shape.
func WithWindowType(t window.Type) Option {
	return func(h *Harmonizer) {
		h.winType = t
	}
}

// New returns an unprepared harmonizer: unison chord, one voice, equal
// dry/wet mix, unity level, chromatic scale.
func New(opts ...Option) *Harmonizer {
	h := &Harmonizer{
		windowSize:    2048,
		overlapFactor: 8,
		winType:       window.TypeHann,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	h.basePitch.Store(0)
	h.chordSel.Store(float64(ChordUnison))
	h.voiceSel.Store(1)
	h.mixSel.Store(0.5)
	h.levelSel.Store(1)
	h.scaleSel.Store(float64(ScaleChromatic))

	return h
}

// Prepare allocates all voices and buffers. No allocation happens in
// Process after this call. Prepare again to reconfigure; all state is
// rebuilt.
func (h *Harmonizer) Prepare(sampleRate float64, maxBlockSize int) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("harmonizer sample rate must be positive and finite: %f", sampleRate)
	}

	if maxBlockSize <= 0 {
		return fmt.Errorf("harmonizer max block size must be > 0: %d", maxBlockSize)
	}

	for v := 0; v < MaxVoices; v++ {
		voice := vocoder.NewShifter(
			vocoder.WithWindowSize(h.windowSize),
			vocoder.WithOverlapFactor(h.overlapFactor),
			vocoder.WithWindowType(h.winType),
		)

		if err := voice.Prepare(sampleRate, maxBlockSize); err != nil {
			return fmt.Errorf("harmonizer voice %d: %w", v, err)
		}

		h.voices[v] = voice
	}

	h.latency = h.voices[0].LatencySamples()

	dry, err := delay.New(h.latency + 1)
	if err != nil {
		return fmt.Errorf("harmonizer dry path: %w", err)
	}

	h.dry = dry
	h.sampleRate = sampleRate
	h.maxBlock = maxBlockSize

	h.inBuf = make([]float64, maxBlockSize)
	h.dryBuf = make([]float64, maxBlockSize)
	h.wetBuf = make([]float64, maxBlockSize)
	h.voiceBuf = make([]float64, maxBlockSize)

	h.mix = core.NewSmoother(core.RampMix, sampleRate)
	h.mix.Snap(h.mixSel.Load())

	h.level = core.NewSmoother(core.RampGain, sampleRate)
	h.level.Snap(h.levelSel.Load())

	h.warm = core.NewSmoother(core.RampMix, sampleRate)
	h.warm.Snap(0)

	for v := range h.voiceGain {
		h.voiceGain[v] = core.NewSmoother(voiceGainRampSeconds, sampleRate)
		h.voiceGain[v].Snap(0)
	}

	// Every voice needs a full analysis window plus one block before the
	// wet path carries signal.
	h.gate = NewWarmup(h.latency + maxBlockSize)

	h.prepared = true

	return nil
}

// SetPitchSemitones sets the base pitch offset in [-24, +24] semitones.
func (h *Harmonizer) SetPitchSemitones(semitones float64) error {
	if math.IsNaN(semitones) || math.IsInf(semitones, 0) {
		return fmt.Errorf("harmonizer pitch must be finite: %f", semitones)
	}

	if semitones < -24 || semitones > 24 {
		return fmt.Errorf("harmonizer pitch must be in [-24, 24] semitones: %f", semitones)
	}

	h.basePitch.Store(semitones)

	return nil
}

// SetChordType selects the harmony interval set.
func (h *Harmonizer) SetChordType(t ChordType) error {
	if !t.Valid() {
		return fmt.Errorf("unknown chord type: %d", int(t))
	}

	h.chordSel.Store(float64(t))

	return nil
}

// SetVoiceCount sets the number of active voices in [1, MaxVoices].
func (h *Harmonizer) SetVoiceCount(n int) error {
	if n < 1 || n > MaxVoices {
		return fmt.Errorf("harmonizer voice count must be in [1, %d]: %d", MaxVoices, n)
	}

	h.voiceSel.Store(float64(n))

	return nil
}

// SetMix sets the dry/wet balance in [0, 1].
func (h *Harmonizer) SetMix(mix float64) error {
	if math.IsNaN(mix) || mix < 0 || mix > 1 {
		return fmt.Errorf("harmonizer mix must be in [0, 1]: %f", mix)
	}

	h.mixSel.Store(mix)

	return nil
}

// SetLevel sets the output gain in [0, 2] linear.
func (h *Harmonizer) SetLevel(level float64) error {
	if math.IsNaN(level) || level < 0 || level > maxLevel {
		return fmt.Errorf("harmonizer level must be in [0, %g]: %f", maxLevel, level)
	}

	h.levelSel.Store(level)

	return nil
}

// SetScale selects the quantization scale for voice pitches.
func (h *Harmonizer) SetScale(s Scale) error {
	if !s.Valid() {
		return fmt.Errorf("unknown scale: %d", int(s))
	}

	h.scaleSel.Store(float64(s))

	return nil
}

// ChordType returns the selected chord type.
func (h *Harmonizer) ChordType() ChordType { return ChordType(int(h.chordSel.Load())) }

// VoiceCount returns the selected number of active voices.
func (h *Harmonizer) VoiceCount() int { return int(h.voiceSel.Load()) }

// PitchSemitones returns the base pitch offset.
func (h *Harmonizer) PitchSemitones() float64 { return h.basePitch.Load() }

// Mix returns the selected dry/wet balance.
func (h *Harmonizer) Mix() float64 { return h.mixSel.Load() }

// Level returns the selected output gain.
func (h *Harmonizer) Level() float64 { return h.levelSel.Load() }

// Scale returns the selected quantization scale.
func (h *Harmonizer) Scale() Scale { return Scale(int(h.scaleSel.Load())) }

// LatencySamples returns the look-ahead of the wet path. The dry path is
// delayed by the same amount so both stay phase-aligned.
func (h *Harmonizer) LatencySamples() int {
	if h.prepared {
		return h.latency
	}

	return h.windowSize
}

// Ready reports whether the warmup gate has opened.
func (h *Harmonizer) Ready() bool {
	return h.prepared && h.gate.Ready()
}

// Reset clears all voice and delay state and re-arms warmup. Call only
// between blocks.
func (h *Harmonizer) Reset() {
	if !h.prepared {
		return
	}

	for v := 0; v < MaxVoices; v++ {
		h.voices[v].Reset()
		h.voiceGain[v].Snap(0)
	}

	h.dry.Reset()
	h.gate.Reset()
	h.warm.Snap(0)
	h.mix.Snap(h.mixSel.Load())
	h.level.Snap(h.levelSel.Load())
}

// Process renders len(input) samples into output (len(output) must be
// >= len(input); aliasing allowed). Unprepared harmonizers pass input
// through dry. Blocks beyond the prepared maximum are truncated.
func (h *Harmonizer) Process(input, output []float64) {
	n := len(input)
	if n > len(output) {
		n = len(output)
	}

	if !h.prepared {
		copy(output[:n], input[:n])
		return
	}

	if n > h.maxBlock {
		n = h.maxBlock
	}

	h.applyParams()

	for i := 0; i < n; i++ {
		h.inBuf[i] = core.Sanitize(input[i])
		h.dryBuf[i] = h.dry.WriteRead(h.inBuf[i], h.latency)
	}

	core.Zero(h.wetBuf[:n])

	// All voices run every block; muted ones stay warm at zero gain.
	for v := 0; v < MaxVoices; v++ {
		h.voices[v].Process(h.inBuf[:n], h.voiceBuf[:n])

		gain := h.voiceGain[v]
		if gain.Done() {
			core.AccumulateScaled(h.wetBuf[:n], h.voiceBuf[:n], gain.Current())
			continue
		}

		for i := 0; i < n; i++ {
			h.wetBuf[i] += h.voiceBuf[i] * gain.Next()
		}
	}

	for i := 0; i < n; i++ {
		m := h.mix.Next()
		lv := h.level.Next()
		w := h.warm.Next()

		processed := ((1-m)*h.dryBuf[i] + m*h.wetBuf[i]) * lv
		output[i] = (1-w)*h.inBuf[i] + w*processed
	}

	core.SanitizeBlock(output[:n])

	h.gate.Observe(n)
	if h.gate.Ready() {
		h.warm.SetTarget(1)
	}
}

// applyParams consumes the parameter cells once per block and retargets
// the per-voice pitch ratios and gains.
func (h *Harmonizer) applyParams() {
	base := h.basePitch.Load()

	chord := ChordType(int(h.chordSel.Load()))
	if !chord.Valid() {
		chord = ChordUnison
	}

	voiceCount := int(h.voiceSel.Load())
	if voiceCount < 1 {
		voiceCount = 1
	}

	if voiceCount > MaxVoices {
		voiceCount = MaxVoices
	}

	scale := Scale(int(h.scaleSel.Load()))
	if !scale.Valid() {
		scale = ScaleChromatic
	}

	h.mix.SetTarget(h.mixSel.Load())
	h.level.SetTarget(h.levelSel.Load())

	intervals := chordIntervals[chord]

	for v := 0; v < MaxVoices; v++ {
		gainTarget := 0.0

		if v < voiceCount {
			semitones := scale.Quantize(base + float64(intervals[v]))

			// A voice whose target falls outside the shifter range stays
			// muted for the block instead of clamping to a wrong pitch.
			if err := h.voices[v].SetPitchSemitones(semitones); err == nil {
				gainTarget = 1
			}
		}

		h.voiceGain[v].SetTarget(gainTarget)
	}
}
