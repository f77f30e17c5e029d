package fir

import (
	"fmt"
	"math"
)

// ComplexBandPass designs an ntaps complex bandpass covering lo..hi Hz. lo and
// hi may be negative. A complex tone anywhere in the passband comes out with
// unity gain.
func ComplexBandPass(lo, hi, sampleRate float64, ntaps int, winType WindowType) ([]complex64, error) {
	if hi <= lo {
		return nil, fmt.Errorf("bandpass edges out of order: %f >= %f", lo, hi)
	}
	lp, err := LowPass((hi-lo)/2, sampleRate, ntaps, winType)
	if err != nil {
		return nil, err
	}

	ret := make([]complex64, ntaps)
	freq := math.Pi * (hi + lo) / sampleRate
	mid := float64(ntaps-1) / 2
	for i, tap := range lp {
		s, c := math.Sincos(freq * (float64(i) - mid))
		ret[i] = complex(tap*float32(c), tap*float32(s))
	}
	return ret, nil
}

// Response evaluates the frequency response of taps at hz.
func Response(taps []complex64, hz, sampleRate float64) complex128 {
	w := 2 * math.Pi * hz / sampleRate
	var acc complex128
	for k, t := range taps {
		s, c := math.Sincos(-w * float64(k))
		acc += complex128(t) * complex(c, s)
	}
	return acc
}
