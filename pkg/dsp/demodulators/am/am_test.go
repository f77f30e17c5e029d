package am

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
)

func amSignal(n int, carrierHz, toneHz, depth, rate float64) []complex64 {
	ret := make([]complex64, n)
	for i := range ret {
		ts := float64(i) / rate
		env := 1 + depth*math.Sin(2*math.Pi*toneHz*ts)
		ret[i] = complex64(cmplx.Rect(env*0.5, 2*math.Pi*carrierHz*ts))
	}
	return ret
}

func swing(x []complex64) (float32, float32) {
	lo, hi := real(x[0]), real(x[0])
	for _, v := range x {
		lo = min(lo, real(v))
		hi = max(hi, real(v))
	}
	return lo, hi
}

func TestEnvelopeRecoversTone(t *testing.T) {
	const rate = 48000.0
	d := New(rate, Envelope)
	x := amSignal(96000, 0, 400, 0.5, rate)
	d.Process(x, x)

	tail := x[len(x)-4800:]
	lo, hi := swing(tail)
	assert.InDelta(t, 0.5, float64(hi-lo), 0.05)
	assert.Equal(t, real(tail[7]), imag(tail[7]))
}

func TestSynchronousLocksToOffsetCarrier(t *testing.T) {
	const rate = 48000.0
	d := New(rate, Synchronous)
	assert.Equal(t, Synchronous, d.Mode())
	x := amSignal(96000, 250, 400, 0.5, rate)
	d.Process(x, x)

	assert.InDelta(t, 250, d.CarrierHz(), 5)
	lo, hi := swing(x[len(x)-4800:])
	assert.InDelta(t, 0.5, float64(hi-lo), 0.05)
}

func TestEnvelopeRemovesCarrierLevel(t *testing.T) {
	const rate = 8000.0
	d := New(rate, Envelope)
	x := make([]complex64, 80000)
	for i := range x {
		x[i] = complex(0.3, 0.4)
	}
	d.Process(x, x)
	assert.InDelta(t, 0, real(x[len(x)-1]), 0.01)
}
