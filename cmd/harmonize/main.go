// Command harmonize renders a harmonized test tone, reports the measured
// voice frequencies, and can play the result.
//
// Usage:
//
//	harmonize [flags]
//
// Examples:
//
//	harmonize -chord Major -voices 3
//	harmonize -chord Fifth -semitones -5 -scale NaturalMinor
//	harmonize -freq 220 -dur 3 -play
//	harmonize -list
package main

import (
	"bytes"
	"encoding/binary"
	"flag"
	"fmt"
	"math"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/cwbudde/algo-harmonizer/dsp/harmonizer"
	"github.com/cwbudde/algo-harmonizer/measure/pitch"
)

func main() {
	freq := flag.Float64("freq", 440, "test tone frequency in Hz")
	dur := flag.Float64("dur", 2, "render duration in seconds")
	rate := flag.Int("rate", 48000, "sample rate in Hz")
	block := flag.Int("block", 512, "processing block size in samples")
	semitones := flag.Float64("semitones", 0, "base pitch offset in semitones [-24, 24]")
	chordName := flag.String("chord", "Major", "chord type (see -list)")
	voices := flag.Int("voices", 3, "number of harmony voices [1, 3]")
	mix := flag.Float64("mix", 1, "dry/wet mix [0, 1]")
	level := flag.Float64("level", 1, "output level [0, 2]")
	scaleName := flag.String("scale", "Chromatic", "quantization scale (see -list)")
	windowSize := flag.Int("window", 2048, "analysis window size (power of two)")
	overlap := flag.Int("overlap", 8, "window overlap factor")
	play := flag.Bool("play", false, "play the rendered tone")
	list := flag.Bool("list", false, "list chord types and scales")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: harmonize [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Renders a harmonized test tone and reports the measured voice frequencies.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  harmonize -chord Major -voices 3\n")
		fmt.Fprintf(os.Stderr, "  harmonize -freq 220 -dur 3 -play\n")
		fmt.Fprintf(os.Stderr, "  harmonize -list\n")
	}
	flag.Parse()

	if *list {
		printList()
		return
	}

	if err := run(config{
		freq:       *freq,
		dur:        *dur,
		rate:       *rate,
		block:      *block,
		semitones:  *semitones,
		chordName:  *chordName,
		voices:     *voices,
		mix:        *mix,
		level:      *level,
		scaleName:  *scaleName,
		windowSize: *windowSize,
		overlap:    *overlap,
		play:       *play,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type config struct {
	freq       float64
	dur        float64
	rate       int
	block      int
	semitones  float64
	chordName  string
	voices     int
	mix        float64
	level      float64
	scaleName  string
	windowSize int
	overlap    int
	play       bool
}

func run(cfg config) error {
	if cfg.freq <= 0 {
		return fmt.Errorf("frequency must be > 0 Hz: %f", cfg.freq)
	}

	if cfg.dur <= 0 || cfg.dur > 60 {
		return fmt.Errorf("duration must be in (0, 60] seconds: %f", cfg.dur)
	}

	if cfg.rate < 8000 || cfg.rate > 192000 {
		return fmt.Errorf("sample rate must be in [8000, 192000] Hz: %d", cfg.rate)
	}

	chord, err := harmonizer.ChordTypeByName(cfg.chordName)
	if err != nil {
		return err
	}

	scale, err := harmonizer.ScaleByName(cfg.scaleName)
	if err != nil {
		return err
	}

	h := harmonizer.New(
		harmonizer.WithWindowSize(cfg.windowSize),
		harmonizer.WithOverlapFactor(cfg.overlap),
	)

	if err := h.SetPitchSemitones(cfg.semitones); err != nil {
		return err
	}

	if err := h.SetChordType(chord); err != nil {
		return err
	}

	if err := h.SetVoiceCount(cfg.voices); err != nil {
		return err
	}

	if err := h.SetMix(cfg.mix); err != nil {
		return err
	}

	if err := h.SetLevel(cfg.level); err != nil {
		return err
	}

	if err := h.SetScale(scale); err != nil {
		return err
	}

	if err := h.Prepare(float64(cfg.rate), cfg.block); err != nil {
		return err
	}

	total := int(cfg.dur * float64(cfg.rate))
	if total < 2*h.LatencySamples() {
		return fmt.Errorf("duration too short for a %d-sample warmup", h.LatencySamples())
	}

	input := make([]float64, total)
	for i := range input {
		input[i] = 0.5 * math.Sin(2*math.Pi*cfg.freq*float64(i)/float64(cfg.rate))
	}

	output := make([]float64, total)
	for start := 0; start < total; start += cfg.block {
		end := min(start+cfg.block, total)
		h.Process(input[start:end], output[start:end])
	}

	fmt.Printf("chord %v, scale %v, %d voice(s), base %.1f st, latency %d samples\n\n",
		chord, scale, cfg.voices, cfg.semitones, h.LatencySamples())

	if err := reportVoices(cfg, chord, scale, h, output); err != nil {
		return err
	}

	if cfg.play {
		fmt.Printf("\nplaying %.1f s at %d Hz...\n", cfg.dur, cfg.rate)

		if err := playTone(output, cfg.rate); err != nil {
			return fmt.Errorf("playback: %w", err)
		}
	}

	return nil
}

// reportVoices measures each voice in the steady-state tail and prints
// the pitch error against the chord target.
func reportVoices(cfg config, chord harmonizer.ChordType, scale harmonizer.Scale, h *harmonizer.Harmonizer, output []float64) error {
	tail := 16384
	if tail > len(output)-h.LatencySamples() {
		tail = len(output) - h.LatencySamples()
	}

	segment := output[len(output)-tail:]

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Voice\tInterval [st]\tTarget [Hz]\tMeasured [Hz]\tError [cents]\n")
	fmt.Fprintf(tw, "-----\t-------------\t-----------\t-------------\t-------------\n")

	intervals := chord.Intervals()
	for v := 0; v < cfg.voices; v++ {
		st := scale.Quantize(cfg.semitones + float64(intervals[v]))
		target := cfg.freq * math.Pow(2, st/12)

		measured, err := pitch.PeakNear(segment, float64(cfg.rate), target, 100)
		if err != nil {
			fmt.Fprintf(tw, "%d\t%+.1f\t%.2f\t-\t-\n", v+1, st, target)
			continue
		}

		fmt.Fprintf(tw, "%d\t%+.1f\t%.2f\t%.2f\t%+.2f\n",
			v+1, st, target, measured, pitch.CentsError(measured, target))
	}

	return tw.Flush()
}

// playTone plays mono float64 samples through the default audio device.
func playTone(samples []float64, sampleRate int) error {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return err
	}

	<-ready

	buf := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(s)))
	}

	player := ctx.NewPlayer(bytes.NewReader(buf))
	player.Play()

	for player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}

	return player.Close()
}

func printList() {
	fmt.Println("chord types:")

	for t := harmonizer.ChordType(0); t.Valid(); t++ {
		fmt.Printf("  %-12v %v\n", t, t.Intervals())
	}

	fmt.Println("scales:")

	for s := harmonizer.Scale(0); s.Valid(); s++ {
		fmt.Printf("  %v\n", s)
	}
}
