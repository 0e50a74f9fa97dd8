package vocoder

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-harmonizer/dsp/core"
	"github.com/cwbudde/algo-harmonizer/dsp/stft"
	"github.com/cwbudde/algo-harmonizer/dsp/window"
)

const (
	// MinRatio and MaxRatio bound the pitch ratio to ±24 semitones.
	MinRatio = 0.25
	MaxRatio = 4.0

	defaultWindowSize = 2048
)

// State tracks the lifecycle of one voice.
type State int

const (
	StateUninitialized State = iota
	StateWarming
	StateSteady
)

// Shifter is a streaming single-voice pitch shifter: stft analysis, phase
// vocoder remap, stft resynthesis. All buffers are allocated in Prepare;
// Process is allocation-free and bounded.
//
// Parameter setters may be called from a control thread; they publish
// through an atomic cell that Process consumes once per block.
type Shifter struct {
	windowSize    int
	overlapFactor int
	winType       window.Type
	formantRatio  float64

	sampleRate float64
	maxBlock   int

	engine *stft.Engine
	voc    *Core

	targetRatio core.ParamCell
	ratio       *core.Smoother

	inBuf []float64

	state     State
	processed int
}

// Option configures a Shifter before Prepare.
type Option func(*Shifter)

// WithWindowSize sets the analysis window size (power of two in
// [stft.MinWindowSize, stft.MaxWindowSize]; validated at Prepare).
func WithWindowSize(size int) Option {
	return func(s *Shifter) {
		s.windowSize = size
	}
}

// WithOverlapFactor sets the window/hop ratio (validated at Prepare).
func WithOverlapFactor(factor int) Option {
	return func(s *Shifter) {
		s.overlapFactor = factor
	}
}

// WithWindowType selects the analysis window shape.
func WithWindowType(t window.Type) Option {
	return func(s *Shifter) {
		s.winType = t
	}
}

// WithFormantRatio sets a fixed spectral-envelope shift (1 = off).
func WithFormantRatio(ratio float64) Option {
	return func(s *Shifter) {
		if isUsableRatio(ratio) {
			s.formantRatio = ratio
		}
	}
}

// NewShifter returns an unprepared shifter. Configuration errors surface
// from Prepare, never silently.
func NewShifter(opts ...Option) *Shifter {
	s := &Shifter{
		windowSize:    defaultWindowSize,
		overlapFactor: stft.DefaultOverlapFactor,
		winType:       window.TypeHann,
		formantRatio:  1,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.targetRatio.Store(1)

	return s
}

// Prepare allocates all processing state for the given sample rate and
// maximum block size. No allocation happens after this call. Calling
// Prepare again is the only reconfiguration path and resets all state.
func (s *Shifter) Prepare(sampleRate float64, maxBlockSize int) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("pitch shifter sample rate must be positive and finite: %f", sampleRate)
	}

	if maxBlockSize <= 0 {
		return fmt.Errorf("pitch shifter max block size must be > 0: %d", maxBlockSize)
	}

	engine, err := stft.New(s.windowSize, s.overlapFactor, stft.WithWindowType(s.winType))
	if err != nil {
		return fmt.Errorf("pitch shifter: %w", err)
	}

	voc, err := NewCore(engine.WindowSize(), engine.HopSize())
	if err != nil {
		return fmt.Errorf("pitch shifter: %w", err)
	}

	s.engine = engine
	s.voc = voc
	s.sampleRate = sampleRate
	s.maxBlock = maxBlockSize
	s.inBuf = make([]float64, maxBlockSize)

	s.ratio = core.NewSmoother(core.RampPitch, sampleRate)
	s.ratio.Snap(s.targetRatio.Load())

	s.state = StateWarming
	s.processed = 0

	return nil
}

// SetPitchRatio publishes a new target ratio, applied through a 10 ms
// ramp at the next block boundary.
func (s *Shifter) SetPitchRatio(ratio float64) error {
	if !isUsableRatio(ratio) || ratio < MinRatio || ratio > MaxRatio {
		return fmt.Errorf("pitch ratio must be in [%f, %f]: %f", MinRatio, MaxRatio, ratio)
	}

	s.targetRatio.Store(ratio)

	return nil
}

// SetPitchSemitones publishes a pitch shift in equal-temperament
// semitones: ratio = 2^(semitones/12).
func (s *Shifter) SetPitchSemitones(semitones float64) error {
	if math.IsNaN(semitones) || math.IsInf(semitones, 0) {
		return fmt.Errorf("pitch semitones must be finite: %f", semitones)
	}

	if err := s.SetPitchRatio(math.Pow(2, semitones/12.0)); err != nil {
		return fmt.Errorf("pitch semitones out of range: %w", err)
	}

	return nil
}

// PitchRatio returns the published target ratio.
func (s *Shifter) PitchRatio() float64 { return s.targetRatio.Load() }

// State returns the current lifecycle state.
func (s *Shifter) State() State { return s.state }

// LatencySamples returns the analysis look-ahead the host must compensate.
func (s *Shifter) LatencySamples() int {
	if s.engine != nil {
		return s.engine.Latency()
	}

	return s.windowSize
}

// Reset zeroes all ring and phase state and re-arms warmup. Idempotent;
// a reset shifter behaves byte-identically to a freshly prepared one.
// Call only between blocks, never concurrently with Process.
func (s *Shifter) Reset() {
	if s.state == StateUninitialized {
		return
	}

	s.engine.Reset()
	s.voc.Reset()
	s.ratio.Snap(s.targetRatio.Load())
	s.state = StateWarming
	s.processed = 0
}

// Process pitch-shifts len(input) samples into output (aliasing allowed;
// len(output) must be >= len(input)). Unprepared shifters pass input
// through dry. Block lengths beyond the prepared maximum are truncated.
func (s *Shifter) Process(input, output []float64) {
	n := len(input)
	if n > len(output) {
		n = len(output)
	}

	if s.state == StateUninitialized {
		copy(output[:n], input[:n])
		return
	}

	if n > s.maxBlock {
		n = s.maxBlock
	}

	// Consume the published target once per block, then ramp per sample.
	s.ratio.SetTarget(s.targetRatio.Load())

	for i := 0; i < n; i++ {
		s.inBuf[i] = core.Sanitize(input[i])
		s.ratio.Next()
	}

	s.engine.Process(s.inBuf[:n], output[:n], s.transform)

	core.SanitizeBlock(output[:n])

	s.processed += n
	if s.state == StateWarming && s.processed >= s.engine.Latency() {
		s.state = StateSteady
	}
}

func (s *Shifter) transform(bins []complex128) {
	s.voc.RemapFormant(bins, s.ratio.Current(), s.formantRatio)
}
