package mixer

import (
	"math"
	"math/cmplx"

	"github.com/norasector/sdrcore/pkg/dsp/buffer"
	"github.com/norasector/sdrcore/pkg/dsp/cxops"
)

const (
	tau float64 = math.Pi * 2

	// HugePhase bounds the phase accumulator before it is folded back into [0, tau).
	HugePhase = 1256637061.43593
)

type Mode int

const (
	ModeComplex Mode = iota
	ModeReal
)

// Oscillator writes a sinusoid into a target buffer it does not own.
type Oscillator struct {
	mode       Mode
	sampleRate float64
	frequency  float64
	phase      float64
	phaseIncr  float64
	phasor     complex128
	rotation   complex128
	cplx       *buffer.Complex
	real       *buffer.Real
}

func NewComplexOscillator(target *buffer.Complex, frequency, phase, sampleRate float64) *Oscillator {
	o := &Oscillator{
		mode:       ModeComplex,
		sampleRate: sampleRate,
		phase:      phase,
		cplx:       target,
	}
	o.SetFrequency(frequency)
	o.phasor = cmplx.Rect(1, phase)
	return o
}

func NewRealOscillator(target *buffer.Real, frequency, phase, sampleRate float64) *Oscillator {
	o := &Oscillator{
		mode:       ModeReal,
		sampleRate: sampleRate,
		phase:      math.Mod(phase, tau),
		real:       target,
	}
	o.SetFrequency(frequency)
	return o
}

// SetFrequency changes the rate of rotation. Phase carries over.
func (o *Oscillator) SetFrequency(hz float64) {
	o.frequency = hz
	o.phaseIncr = tau * hz / o.sampleRate
	o.rotation = cmplx.Rect(1, o.phaseIncr)
}

func (o *Oscillator) Frequency() float64 { return o.frequency }

// PhaseIncrement is the angular step per sample in radians.
func (o *Oscillator) PhaseIncrement() float64 { return o.phaseIncr }

func (o *Oscillator) Phase() float64 { return o.phase }

// SetPhase moves the oscillator to phase without touching frequency.
func (o *Oscillator) SetPhase(phase float64) {
	o.phase = phase
	o.phasor = cmplx.Rect(1, phase)
}

func (o *Oscillator) Complex() *buffer.Complex { return o.cplx }

func (o *Oscillator) Real() *buffer.Real { return o.real }

// Advance fills the target with the next block of samples.
func (o *Oscillator) Advance() {
	if o.mode == ModeReal {
		out := o.real.Samples()
		for i := range out {
			out[i] = float32(math.Sin(o.phase))
			o.phase += o.phaseIncr
			if o.phase >= tau {
				o.phase -= tau
			} else if o.phase < 0 {
				o.phase += tau
			}
		}
		return
	}

	if math.Abs(o.phase) > HugePhase {
		o.phase = math.Mod(o.phase, tau)
		o.phasor = cmplx.Rect(1, o.phase)
	}

	out := o.cplx.Samples()
	z := o.phasor
	for i := range out {
		out[i] = complex64(z)
		z *= o.rotation
	}
	// keep the phasor on the unit circle
	o.phasor = z / complex(cmplx.Abs(z), 0)
	o.phase += o.phaseIncr * float64(len(out))
}

// MixInto multiplies x by the next block of the oscillator.
func (o *Oscillator) MixInto(x []complex64, ops cxops.Backend) {
	o.cplx.SetFilled(len(x))
	o.Advance()
	ops.Mul(x, x, o.cplx.Samples())
}
