package iqcorrect

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestIdentityWithoutImbalance(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		parts := rapid.SliceOfN(rapid.Float32Range(-10, 10), 2, 200).Draw(t, "x")
		x := make([]complex64, len(parts)/2)
		for i := range x {
			x[i] = complex(parts[2*i], parts[2*i+1])
		}
		want := append([]complex64(nil), x...)

		c := New(true)
		c.Apply(x)
		assert.Equal(t, want, x)

		c.SetAdaptive(false)
		c.SetMu(0.01)
		c.Apply(x)
		assert.Equal(t, want, x)
	})
}

func TestPhaseAndGainCorrection(t *testing.T) {
	c := New(false)
	c.SetPhase(0.01)
	c.SetGain(1.02)
	x := []complex64{complex(1, 0), complex(0, 1), complex(-2, 0.5)}
	c.Apply(x)
	assert.InDelta(t, 1.02, real(x[0]), 1e-6)
	assert.InDelta(t, 0.01, imag(x[0]), 1e-6)
	assert.InDelta(t, 0.0, real(x[1]), 1e-6)
	assert.InDelta(t, 1.0, imag(x[1]), 1e-6)
	assert.InDelta(t, -2.04, real(x[2]), 1e-6)
	assert.InDelta(t, 0.48, imag(x[2]), 1e-6)
}

func TestAdaptiveReducesImage(t *testing.T) {
	// a tone with a -20 dB image at the mirrored frequency
	n := 48000
	w := 2 * math.Pi * 3000 / 48000
	x := make([]complex64, n)
	for i := range x {
		x[i] = complex64(cmplx.Rect(1, w*float64(i)) + cmplx.Rect(0.1, -w*float64(i)+0.4))
	}

	c := New(true)
	c.SetMu(0.001)
	c.Apply(x)

	// project the tail onto the image frequency
	var image complex128
	tail := x[n-4800:]
	for i, v := range tail {
		image += complex128(v) * cmplx.Rect(1, w*float64(n-4800+i))
	}
	image /= complex(float64(len(tail)), 0)
	assert.Less(t, cmplx.Abs(image), 0.05)
}
