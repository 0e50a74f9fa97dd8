package core

import (
	"math"
	"sync/atomic"
)

// ParamCell is a single-producer/single-consumer cell for publishing one
// float64 parameter from a control thread to the audio thread. The audio
// thread loads it once per block and feeds the value into a Smoother; it
// must never be read per sample.
type ParamCell struct {
	bits atomic.Uint64
}

// Store publishes a new value. Safe to call from a non-audio thread.
func (c *ParamCell) Store(v float64) {
	c.bits.Store(math.Float64bits(v))
}

// Load returns the most recently published value.
func (c *ParamCell) Load() float64 {
	return math.Float64frombits(c.bits.Load())
}
