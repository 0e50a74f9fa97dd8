// Package stft provides a streaming short-time Fourier transform engine
// with windowed analysis, an in-place spectral transform hook, and
// overlap-add resynthesis sized for real-time block processing.
package stft
