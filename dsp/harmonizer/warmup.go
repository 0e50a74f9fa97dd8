package harmonizer

// Warmup gates the transition from dry passthrough to processed output.
// It counts processed samples until every voice has filled its analysis
// window plus one block; the transition is one-way until Reset.
type Warmup struct {
	required int
	observed int
	ready    bool
}

// NewWarmup returns a gate that opens after required samples. A
// non-positive requirement opens immediately.
func NewWarmup(required int) *Warmup {
	w := &Warmup{required: required}
	if required <= 0 {
		w.ready = true
	}

	return w
}

// Observe counts n processed samples. Negative counts are ignored.
func (w *Warmup) Observe(n int) {
	if w.ready || n <= 0 {
		return
	}

	w.observed += n
	if w.observed >= w.required {
		w.ready = true
	}
}

// Ready reports whether the gate has opened.
func (w *Warmup) Ready() bool { return w.ready }

// Required returns the sample count the gate waits for.
func (w *Warmup) Required() int { return w.required }

// Remaining returns how many samples are still missing.
func (w *Warmup) Remaining() int {
	if w.ready {
		return 0
	}

	return w.required - w.observed
}

// Reset re-arms the gate.
func (w *Warmup) Reset() {
	w.observed = 0
	w.ready = w.required <= 0
}
