// Package am detects AM by envelope or, in SAM mode, synchronously against a
// carrier recovered by a PLL.
package am

import (
	"math"

	"github.com/norasector/sdrcore/pkg/dsp/demodulators/pll"
)

type Mode int

const (
	Envelope Mode = iota
	Synchronous
)

const (
	samBandwidth = 300
	samBound     = 2000
)

type Demod struct {
	mode   Mode
	dc     float64
	smooth float64
	loop   *pll.PLL
}

func New(sampleRate float64, mode Mode) *Demod {
	return &Demod{
		mode: mode,
		loop: pll.New(sampleRate, 0, -samBound, samBound, samBandwidth),
	}
}

func (d *Demod) SetMode(mode Mode) { d.mode = mode }
func (d *Demod) Mode() Mode        { return d.mode }

// CarrierHz is the recovered carrier offset in SAM mode.
func (d *Demod) CarrierHz() float64 { return d.loop.FreqHz() }

// Process demodulates in into out with the audio on both parts. in and out
// may be the same slice.
func (d *Demod) Process(in, out []complex64) {
	for i, v := range in {
		var det float64
		if d.mode == Synchronous {
			det = real(d.loop.Step(v))
		} else {
			det = math.Hypot(float64(real(v)), float64(imag(v)))
		}
		d.dc = 0.9999*d.dc + 0.0001*det
		d.smooth = 0.5*d.smooth + 0.5*(det-d.dc)
		y := float32(d.smooth)
		out[i] = complex(y, y)
	}
}
