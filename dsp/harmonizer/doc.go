// Package harmonizer layers up to three pitch-shifted voices over the
// dry input. Voice intervals come from chord tables, optionally
// quantized to a musical scale, and all control changes arrive through
// atomic parameter cells consumed at block boundaries.
package harmonizer
