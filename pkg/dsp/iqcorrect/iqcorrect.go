// Package iqcorrect compensates I/Q phase and gain imbalance ahead of
// frequency conversion, with a single-tap LMS image canceller.
package iqcorrect

const defaultLeakage = 0.000001

type Corrector struct {
	phase    float64
	gain     float64
	mu       float64
	leakage  float64
	w        complex128
	adaptive bool
}

// New returns a corrector with no imbalance correction. The adaptive stage is
// enabled but mu starts at zero, so the transform is the identity until mu is set.
func New(adaptive bool) *Corrector {
	return &Corrector{
		gain:     1,
		leakage:  defaultLeakage,
		adaptive: adaptive,
	}
}

func (c *Corrector) SetPhase(phase float64) { c.phase = phase }
func (c *Corrector) SetGain(gain float64)   { c.gain = gain }
func (c *Corrector) SetMu(mu float64)       { c.mu = mu }
func (c *Corrector) SetAdaptive(on bool)    { c.adaptive = on }

func (c *Corrector) Phase() float64     { return c.phase }
func (c *Corrector) Gain() float64      { return c.gain }
func (c *Corrector) Mu() float64        { return c.mu }
func (c *Corrector) Weight() complex128 { return c.w }
func (c *Corrector) Adaptive() bool     { return c.adaptive }

// ResetWeight drops whatever image estimate the LMS has learned.
func (c *Corrector) ResetWeight() { c.w = 0 }

func (c *Corrector) Apply(x []complex64) {
	if c.phase != 0 || c.gain != 1 {
		p, g := float32(c.phase), float32(c.gain)
		for i, v := range x {
			re, im := real(v), imag(v)
			im += p * re
			re *= g
			x[i] = complex(re, im)
		}
	}

	if !c.adaptive || (c.mu == 0 && c.w == 0) {
		return
	}

	decay := complex(1-c.mu*c.leakage, 0)
	mu := complex(c.mu, 0)
	for i, v := range x {
		s := complex128(v)
		y := s + c.w*complex(real(s), -imag(s))
		c.w = c.w*decay - mu*y*y
		x[i] = complex64(y)
	}
}
