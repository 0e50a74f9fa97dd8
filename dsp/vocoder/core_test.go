package vocoder

import (
	"math"
	"math/cmplx"
	"testing"
)

func TestNewCoreValidation(t *testing.T) {
	tests := []struct {
		name      string
		frameSize int
		hop       int
		wantErr   bool
	}{
		{"valid", 2048, 256, false},
		{"zero_frame", 0, 256, true},
		{"zero_hop", 2048, 0, true},
		{"hop_equals_frame", 2048, 2048, true},
		{"hop_exceeds_frame", 256, 512, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCore(tt.frameSize, tt.hop)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewCore(%d, %d) error = %v, wantErr %v", tt.frameSize, tt.hop, err, tt.wantErr)
			}

			if err == nil && c.Bins() != tt.frameSize/2+1 {
				t.Errorf("Bins() = %d, want %d", c.Bins(), tt.frameSize/2+1)
			}
		})
	}
}

func TestRemapUnityPreservesMagnitudes(t *testing.T) {
	c, err := NewCore(512, 64)
	if err != nil {
		t.Fatal(err)
	}

	spectrum := make([]complex128, c.Bins())
	for k := range spectrum {
		mag := 1.0 / float64(k+1)
		phase := 0.1 * float64(k)
		spectrum[k] = cmplx.Rect(mag, phase)
	}

	want := make([]float64, c.Bins())
	for k := range spectrum {
		want[k] = cmplx.Abs(spectrum[k])
	}

	c.Remap(spectrum, 1.0)

	for k := range spectrum {
		if got := cmplx.Abs(spectrum[k]); math.Abs(got-want[k]) > 1e-12 {
			t.Fatalf("bin %d magnitude = %v, want %v", k, got, want[k])
		}
	}
}

func TestRemapMovesPeakBin(t *testing.T) {
	c, err := NewCore(512, 64)
	if err != nil {
		t.Fatal(err)
	}

	spectrum := make([]complex128, c.Bins())
	spectrum[10] = complex(1, 0)

	c.Remap(spectrum, 2.0)

	if got := cmplx.Abs(spectrum[20]); math.Abs(got-1) > 1e-12 {
		t.Errorf("bin 20 magnitude = %v, want 1", got)
	}

	if got := cmplx.Abs(spectrum[10]); got > 1e-12 {
		t.Errorf("bin 10 magnitude = %v, want 0", got)
	}
}

func TestRemapDownshiftAccumulatesEnergy(t *testing.T) {
	c, err := NewCore(512, 64)
	if err != nil {
		t.Fatal(err)
	}

	// Bins 19 and 20 both round to bin 10 at ratio 0.5.
	spectrum := make([]complex128, c.Bins())
	spectrum[19] = complex(0.4, 0)
	spectrum[20] = complex(0.6, 0)

	c.Remap(spectrum, 0.5)

	if got := cmplx.Abs(spectrum[10]); math.Abs(got-1.0) > 1e-12 {
		t.Errorf("bin 10 magnitude = %v, want 1.0 (accumulated)", got)
	}
}

func TestRemapUnusableRatioSilences(t *testing.T) {
	for _, ratio := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		c, err := NewCore(512, 64)
		if err != nil {
			t.Fatal(err)
		}

		spectrum := make([]complex128, c.Bins())
		for k := range spectrum {
			spectrum[k] = complex(1, 0.5)
		}

		c.Remap(spectrum, ratio)

		for k := range spectrum {
			if cmplx.Abs(spectrum[k]) > 1e-12 {
				t.Fatalf("ratio %v: bin %d magnitude = %v, want 0", ratio, k, cmplx.Abs(spectrum[k]))
			}
		}
	}
}

func TestRemapCorruptBinsDoNotPropagate(t *testing.T) {
	c, err := NewCore(512, 64)
	if err != nil {
		t.Fatal(err)
	}

	spectrum := make([]complex128, c.Bins())
	for k := range spectrum {
		spectrum[k] = complex(0.5, 0.25)
	}

	spectrum[5] = complex(math.NaN(), math.NaN())
	spectrum[17] = complex(math.Inf(1), 0)
	spectrum[42] = complex(0, math.Inf(-1))

	// Two frames: the second checks the phase accumulator stayed clean.
	for frame := 0; frame < 2; frame++ {
		c.Remap(spectrum, 1.5)

		for k := range spectrum {
			re, im := real(spectrum[k]), imag(spectrum[k])
			if math.IsNaN(re) || math.IsInf(re, 0) || math.IsNaN(im) || math.IsInf(im, 0) {
				t.Fatalf("frame %d bin %d is non-finite: %v", frame, k, spectrum[k])
			}
		}
	}
}

func TestCoreResetRestoresDeterminism(t *testing.T) {
	c, err := NewCore(512, 64)
	if err != nil {
		t.Fatal(err)
	}

	frame := func(seed int) []complex128 {
		s := make([]complex128, c.Bins())
		for k := range s {
			s[k] = cmplx.Rect(1/float64(k+1), float64(seed)*0.3+0.05*float64(k))
		}

		return s
	}

	run := func() [][]complex128 {
		var out [][]complex128

		for i := 0; i < 3; i++ {
			s := frame(i)
			c.Remap(s, 1.5)
			out = append(out, s)
		}

		return out
	}

	first := run()
	c.Reset()
	second := run()

	for i := range first {
		for k := range first[i] {
			if first[i][k] != second[i][k] {
				t.Fatalf("frame %d bin %d differs after reset: %v vs %v", i, k, first[i][k], second[i][k])
			}
		}
	}
}

func TestWrapPhase(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{math.Pi / 2, math.Pi / 2},
		{-math.Pi / 2, -math.Pi / 2},
		{2 * math.Pi, 0},
		{3 * math.Pi, -math.Pi},
		{-5 * math.Pi / 2, -math.Pi / 2},
	}

	for _, tt := range tests {
		if got := wrapPhase(tt.in); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("wrapPhase(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for x := -20.0; x <= 20.0; x += 0.37 {
		got := wrapPhase(x)
		if got < -math.Pi || got >= math.Pi {
			t.Fatalf("wrapPhase(%v) = %v out of [-pi, pi)", x, got)
		}
	}
}
