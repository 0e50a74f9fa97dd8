package delay

import "fmt"

// Line is a circular buffer with a write-first discipline: the current
// sample is always written before any lagged read is computed, so a slot
// can never be read at an offset that has not been written since the last
// Reset. Slots not yet written since Reset read as zero.
type Line struct {
	buffer   []float64
	writePos int
}

// New returns a delay line of fixed size.
func New(size int) (*Line, error) {
	if size <= 0 {
		return nil, fmt.Errorf("delay size must be > 0: %d", size)
	}
	return &Line{buffer: make([]float64, size)}, nil
}

// Len returns internal buffer size.
func (d *Line) Len() int {
	return len(d.buffer)
}

// WriteRead writes sample, then returns the value lag samples behind the
// write position. lag 0 returns the sample just written.
func (d *Line) WriteRead(sample float64, lag int) float64 {
	d.Write(sample)
	return d.ReadLag(lag)
}

// Write writes one sample and advances the write position.
func (d *Line) Write(sample float64) {
	d.buffer[d.writePos] = sample
	d.writePos++
	if d.writePos >= len(d.buffer) {
		d.writePos = 0
	}
}

// ReadLag returns the sample lag positions behind the most recent write.
// Call only after Write for the current sample; lag is clamped to
// [0, Len()-1].
func (d *Line) ReadLag(lag int) float64 {
	size := len(d.buffer)
	if lag < 0 {
		lag = 0
	}
	if lag >= size {
		lag = size - 1
	}
	// writePos points one past the latest write.
	readPos := (d.writePos - 1 - lag + 2*size) % size
	return d.buffer[readPos]
}

// Reset clears line state.
func (d *Line) Reset() {
	for i := range d.buffer {
		d.buffer[i] = 0
	}
	d.writePos = 0
}
