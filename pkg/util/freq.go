package util

import "math"

// RadiansPerSample converts a frequency in Hz to a per-sample phase increment.
func RadiansPerSample(hz, sampleRate float64) float64 {
	return 2 * math.Pi * hz / sampleRate
}

// BelowNyquist reports whether |hz| is strictly inside half the sample rate.
func BelowNyquist(hz, sampleRate float64) bool {
	return math.Abs(hz) < 0.5*sampleRate
}
