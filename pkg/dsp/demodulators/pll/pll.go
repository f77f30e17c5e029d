// Package pll is the second-order phase-locked loop shared by the FM and
// synchronous AM detectors.
package pll

import (
	"math"
)

const tau = 2 * math.Pi

type PLL struct {
	sampleRate float64
	freq       float64
	lo, hi     float64
	phase      float64
	alpha      float64
	beta       float64
	delay      complex128
}

// New builds a loop starting at freq Hz, held within [lo, hi] Hz, with
// bandwidth bw Hz.
func New(sampleRate, freq, lo, hi, bw float64) *PLL {
	fac := tau / sampleRate
	alpha := 0.3 * bw * fac
	return &PLL{
		sampleRate: sampleRate,
		freq:       freq * fac,
		lo:         lo * fac,
		hi:         hi * fac,
		alpha:      alpha,
		beta:       alpha * alpha * 0.25,
		delay:      complex(0, 1),
	}
}

// Step rotates sig by the loop phase, updates the loop and returns the
// rotated sample.
func (p *PLL) Step(sig complex64) complex128 {
	s, c := math.Sincos(p.phase)
	re, im := float64(real(sig)), float64(imag(sig))
	p.delay = complex(c*re+s*im, -s*re+c*im)

	diff := math.Atan2(imag(p.delay), real(p.delay))
	p.freq += p.beta * diff
	if p.freq < p.lo {
		p.freq = p.lo
	}
	if p.freq > p.hi {
		p.freq = p.hi
	}
	p.phase += p.freq + p.alpha*diff
	for p.phase >= tau {
		p.phase -= tau
	}
	for p.phase < 0 {
		p.phase += tau
	}
	// a tiny negative phase plus tau rounds up to tau
	if p.phase >= tau {
		p.phase = 0
	}
	return p.delay
}

// Freq is the loop frequency in radians per sample.
func (p *PLL) Freq() float64 { return p.freq }

// FreqHz is the loop frequency in Hz.
func (p *PLL) FreqHz() float64 { return p.freq * p.sampleRate / tau }

// Bounds returns the frequency limits in radians per sample.
func (p *PLL) Bounds() (float64, float64) { return p.lo, p.hi }

func (p *PLL) Phase() float64 { return p.phase }
