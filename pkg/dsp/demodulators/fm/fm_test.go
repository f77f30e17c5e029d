package fm

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func carrier(n int, hz, rate float64, phase *float64) []complex64 {
	ret := make([]complex64, n)
	for i := range ret {
		ret[i] = complex64(cmplx.Rect(1, *phase))
		*phase += 2 * math.Pi * hz / rate
	}
	return ret
}

func TestPLLConvergesToOffset(t *testing.T) {
	const rate = 48000.0
	d, err := New(rate, DefaultConfig())
	require.NoError(t, err)

	var phase float64
	for b := 0; b < 20; b++ {
		x := carrier(512, 1500, rate, &phase)
		d.Process(x, x)
	}
	assert.InDelta(t, 1500, d.FreqHz(), 10)
}

func TestOutputFollowsModulation(t *testing.T) {
	const rate = 48000.0
	d, err := New(rate, DefaultConfig())
	require.NoError(t, err)

	var phase float64
	step := func(hz float64) float32 {
		x := carrier(4800, hz, rate, &phase)
		d.Process(x, x)
		assert.Equal(t, real(x[len(x)-1]), imag(x[len(x)-1]))
		return real(x[len(x)-1])
	}
	step(0)
	up := step(2000)
	down := step(-2000)
	assert.Greater(t, up, float32(0))
	assert.Less(t, down, float32(0))
}

func TestQuadratureDetector(t *testing.T) {
	const rate = 48000.0
	d, err := New(rate, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, d.SetDetector(DetectorQuadrature))

	var phase float64
	x := carrier(256, 1000, rate, &phase)
	d.Process(x, x)
	want := float32(2 * math.Pi * 1000 / rate * 0.45 * rate / (math.Pi * 5000))
	for _, v := range x[1:] {
		assert.InDelta(t, want, real(v), 1e-3)
	}

	assert.Error(t, d.SetDetector(Detector(7)))
}

func TestDeemphasisSmooths(t *testing.T) {
	const rate = 48000.0
	d, err := New(rate, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, d.SetDetector(DetectorQuadrature))
	require.NoError(t, d.SetDeemphasis(75e-6))
	assert.Equal(t, 75e-6, d.Deemphasis())

	var phase float64
	x := carrier(2048, 1000, rate, &phase)
	d.Process(x, x)
	for _, v := range x {
		assert.False(t, math.IsNaN(float64(real(v))))
	}

	require.NoError(t, d.SetDeemphasis(0))
	assert.Error(t, d.SetDeemphasis(-1))
}

func TestRejectsBadConfig(t *testing.T) {
	_, err := New(0, DefaultConfig())
	assert.Error(t, err)
	cfg := DefaultConfig()
	cfg.Low, cfg.High = 10, -10
	_, err = New(48000, cfg)
	assert.Error(t, err)
}
