package core

import "math"

// Ramp times in seconds for the common parameter classes. Gain rides the
// shortest ramp so level changes feel immediate; mix and pitch ramps are
// longer to avoid zipper artifacts on chord or interval changes.
const (
	RampGain  = 0.005
	RampMix   = 0.015
	RampPitch = 0.010
)

// Smoother converges a parameter value toward a target with a fixed-time
// linear ramp, one step per sample. Targets may be updated from a control
// thread via a ParamCell and applied at block boundaries; the smoother
// itself is owned by the audio thread and never locked.
type Smoother struct {
	current   float64
	target    float64
	increment float64
	rampLen   float64
}

// NewSmoother returns a smoother with the given ramp time. A non-positive
// ramp time or sample rate yields an instant (snap) smoother.
func NewSmoother(rampSeconds, sampleRate float64) *Smoother {
	s := &Smoother{}
	if rampSeconds > 0 && sampleRate > 0 {
		s.rampLen = rampSeconds * sampleRate
	}

	return s
}

// SetTarget sets a new convergence target. Non-finite targets are ignored.
func (s *Smoother) SetTarget(target float64) {
	if !IsFinite(target) {
		return
	}

	s.target = target
	if s.rampLen <= 0 {
		s.current = target
		s.increment = 0

		return
	}

	s.increment = (target - s.current) / s.rampLen
}

// Snap forces current and target to v immediately.
func (s *Smoother) Snap(v float64) {
	if !IsFinite(v) {
		v = 0
	}

	s.current = v
	s.target = v
	s.increment = 0
}

// Next advances the ramp one sample and returns the new current value.
func (s *Smoother) Next() float64 {
	if s.increment == 0 {
		return s.current
	}

	s.current += s.increment
	if (s.increment > 0 && s.current >= s.target) ||
		(s.increment < 0 && s.current <= s.target) {
		s.current = s.target
		s.increment = 0
	}

	return s.current
}

// Current returns the present value without advancing the ramp.
func (s *Smoother) Current() float64 { return s.current }

// Target returns the convergence target.
func (s *Smoother) Target() float64 { return s.target }

// Done reports whether the ramp has converged.
func (s *Smoother) Done() bool {
	return s.increment == 0 || math.Abs(s.target-s.current) == 0
}
