// Package vocoder implements phase-vocoder pitch shifting: per-bin phase
// unwrapping, instantaneous-frequency estimation, frequency-domain bin
// remapping, and a streaming single-voice pitch shifter built on the
// stft engine.
package vocoder
