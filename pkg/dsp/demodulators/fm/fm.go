// Package fm is the narrowband FM detector. The default detector is a
// second-order PLL; a quadrature discriminator is available as an
// alternative. Either can be followed by de-emphasis.
package fm

import (
	"fmt"
	"math"

	"github.com/norasector/sdrcore/pkg/dsp/demodulators/pll"
	"github.com/racerxdl/segdsp/dsp"
)

type Detector int

const (
	DetectorPLL Detector = iota
	DetectorQuadrature
)

type Config struct {
	Bandwidth float64
	Low, High float64
	Initial   float64
}

func DefaultConfig() Config {
	return Config{
		Bandwidth: 5000,
		Low:       -6000,
		High:      6000,
	}
}

type floatWorker interface {
	WorkBuffer([]float32, []float32) int
}

type Demod struct {
	sampleRate float64
	cfg        Config
	loop       *pll.PLL
	afc        float64
	cvt        float64
	detector   Detector

	history []complex64

	deemphTau float64
	deemph    floatWorker
	dIn, dOut []float32
}

func New(sampleRate float64, cfg Config) (*Demod, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("fm sample rate %f", sampleRate)
	}
	if cfg.Bandwidth <= 0 || cfg.Low >= cfg.High {
		return nil, fmt.Errorf("fm loop bandwidth %f bounds [%f, %f]", cfg.Bandwidth, cfg.Low, cfg.High)
	}
	return &Demod{
		sampleRate: sampleRate,
		cfg:        cfg,
		loop:       pll.New(sampleRate, cfg.Initial, cfg.Low, cfg.High, cfg.Bandwidth),
		cvt:        0.45 * sampleRate / (math.Pi * cfg.Bandwidth),
		history:    make([]complex64, 1),
	}, nil
}

func (d *Demod) SetDetector(det Detector) error {
	switch det {
	case DetectorPLL, DetectorQuadrature:
		d.detector = det
		return nil
	}
	return fmt.Errorf("unknown fm detector %d", det)
}

func (d *Demod) Detector() Detector { return d.detector }

// SetDeemphasis enables de-emphasis with time constant tau seconds. Zero
// disables it.
func (d *Demod) SetDeemphasis(tau float64) error {
	if tau < 0 {
		return fmt.Errorf("deemphasis time constant %f", tau)
	}
	d.deemphTau = tau
	if tau == 0 {
		d.deemph = nil
		return nil
	}
	d.deemph = dsp.MakeFMDeemph(float32(tau), float32(d.sampleRate))
	return nil
}

func (d *Demod) Deemphasis() float64 { return d.deemphTau }

// FreqHz is the loop's current frequency.
func (d *Demod) FreqHz() float64 { return d.loop.FreqHz() }

// Process demodulates in into out. Both real and imaginary parts of out carry
// the audio. in and out may be the same slice.
func (d *Demod) Process(in, out []complex64) {
	switch d.detector {
	case DetectorQuadrature:
		d.quadrature(in, out)
	default:
		for i, v := range in {
			d.loop.Step(v)
			d.afc = 0.9999*d.afc + 0.0001*d.loop.Freq()
			y := float32((d.loop.Freq() - d.afc) * d.cvt)
			out[i] = complex(y, y)
		}
	}
	if d.deemph != nil {
		d.deemphasize(out[:len(in)])
	}
}

func (d *Demod) quadrature(in, out []complex64) {
	samples := append(d.history, in...)
	prod := dsp.MultiplyConjugate(samples[1:], samples, len(in))
	for i := range in {
		y := float32(math.Atan2(float64(imag(prod[i])), float64(real(prod[i]))) * d.cvt)
		out[i] = complex(y, y)
	}
	d.history = append(d.history[:0], samples[len(samples)-1])
}

func (d *Demod) deemphasize(x []complex64) {
	if cap(d.dIn) < len(x) {
		d.dIn = make([]float32, len(x))
		d.dOut = make([]float32, len(x))
	}
	d.dIn, d.dOut = d.dIn[:len(x)], d.dOut[:len(x)]
	for i, v := range x {
		d.dIn[i] = real(v)
	}
	n := d.deemph.WorkBuffer(d.dIn, d.dOut)
	for i := 0; i < n && i < len(x); i++ {
		x[i] = complex(d.dOut[i], d.dOut[i])
	}
}
