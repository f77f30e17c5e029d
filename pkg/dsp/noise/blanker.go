// Package noise holds the impulse blankers and the adaptive line enhancers
// used for noise reduction (ANR) and notch filtering (ANF).
package noise

import "math"

const (
	DefaultBlankerThreshold = 3.3
	DefaultSDROMThreshold   = 2.5

	blankerHang = 7
	blankerMask = 7
)

// Blanker zeroes a short run of samples whenever the magnitude jumps above
// threshold times the running average. Output is delayed by six samples so
// the gate opens ahead of the impulse.
type Blanker struct {
	threshold  float64
	averageMag float64
	hang       int
	delay      [blankerMask + 1]complex64
	sigIndex   int
	delayIndex int
}

func NewBlanker(threshold float64) *Blanker {
	return &Blanker{
		threshold:  threshold,
		averageMag: 1,
		sigIndex:   2,
	}
}

func (b *Blanker) SetThreshold(th float64) { b.threshold = th }
func (b *Blanker) Threshold() float64      { return b.threshold }

func (b *Blanker) Process(x []complex64) {
	for i, v := range x {
		mag := cabs(v)
		b.delay[b.sigIndex] = v
		b.averageMag = 0.999*b.averageMag + 0.001*mag
		if b.hang == 0 && mag > b.threshold*b.averageMag {
			b.hang = blankerHang
		}
		if b.hang > 0 {
			x[i] = 0
			b.hang--
		} else {
			x[i] = b.delay[b.delayIndex]
		}
		b.sigIndex = (b.sigIndex + blankerMask) & blankerMask
		b.delayIndex = (b.delayIndex + blankerMask) & blankerMask
	}
}

// SDROM replaces outliers with a short running average of the signal.
type SDROM struct {
	threshold  float64
	averageMag float64
	averageSig complex64
}

func NewSDROM(threshold float64) *SDROM {
	return &SDROM{threshold: threshold, averageMag: 1}
}

func (s *SDROM) SetThreshold(th float64) { s.threshold = th }
func (s *SDROM) Threshold() float64      { return s.threshold }

func (s *SDROM) Process(x []complex64) {
	for i, v := range x {
		mag := cabs(v)
		s.averageSig = s.averageSig*0.75 + v*0.25
		s.averageMag = 0.999*s.averageMag + 0.001*mag
		if mag > s.threshold*s.averageMag {
			x[i] = s.averageSig
		}
	}
}

func cabs(v complex64) float64 {
	return math.Hypot(float64(real(v)), float64(imag(v)))
}
