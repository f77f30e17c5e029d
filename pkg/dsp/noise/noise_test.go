package noise

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(n int, hz, rate, amp float64, start int) []complex64 {
	ret := make([]complex64, n)
	for i := range ret {
		ret[i] = complex(float32(amp*math.Sin(2*math.Pi*hz*float64(start+i)/rate)), 0)
	}
	return ret
}

func power(x []complex64) float64 {
	var p float64
	for _, v := range x {
		p += float64(real(v)) * float64(real(v))
	}
	return p / float64(len(x))
}

func TestBlankerGatesImpulse(t *testing.T) {
	b := NewBlanker(DefaultBlankerThreshold)
	x := make([]complex64, 3000)
	for i := range x {
		x[i] = 0.1
	}
	x[2000] = 10
	b.Process(x)

	assert.InDelta(t, 0.1, real(x[1990]), 1e-6)
	for i := 2000; i < 2007; i++ {
		assert.Equal(t, complex64(0), x[i], "sample %d", i)
	}
	assert.InDelta(t, 0.1, real(x[2020]), 1e-6)
	assert.Equal(t, DefaultBlankerThreshold, b.Threshold())
}

func TestBlankerDelaysSignal(t *testing.T) {
	b := NewBlanker(1e9)
	x := make([]complex64, 16)
	for i := range x {
		x[i] = complex(float32(i), 0)
	}
	b.Process(x)
	for i := 6; i < len(x); i++ {
		assert.Equal(t, float32(i-6), real(x[i]))
	}
}

func TestSDROMReplacesOutlier(t *testing.T) {
	s := NewSDROM(DefaultSDROMThreshold)
	x := make([]complex64, 3000)
	for i := range x {
		x[i] = 0.1
	}
	x[2500] = 5
	s.Process(x)
	assert.Less(t, real(x[2500]), float32(2))
	assert.InDelta(t, 0.1, real(x[2499]), 1e-6)

	s.SetThreshold(4)
	assert.Equal(t, 4.0, s.Threshold())
}

func TestLMSNotchesTone(t *testing.T) {
	l, err := NewLMS(DefaultLMSConfig(), Residual)
	require.NoError(t, err)

	var out []complex64
	for b := 0; b < 80; b++ {
		out = sine(512, 1000, 8000, 0.5, b*512)
		l.Process(out)
	}
	assert.Less(t, power(out), 0.1*0.125)
}

func TestLMSEnhancesTone(t *testing.T) {
	l, err := NewLMS(DefaultLMSConfig(), Predicted)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	var clean, out []complex64
	for b := 0; b < 80; b++ {
		clean = sine(512, 600, 8000, 0.5, b*512)
		out = make([]complex64, len(clean))
		for i, v := range clean {
			out[i] = v + complex(float32(0.2*rng.NormFloat64()), 0)
		}
		l.Process(out)
	}
	residual := make([]complex64, len(out))
	for i := range out {
		residual[i] = out[i] - clean[i]
	}
	assert.Less(t, power(residual), 0.04)
}

func TestLMSConfigValidation(t *testing.T) {
	_, err := NewLMS(LMSConfig{Taps: 300, Delay: 212, Rate: 0.01}, Residual)
	assert.Error(t, err)

	l, err := NewLMS(DefaultLMSConfig(), Residual)
	require.NoError(t, err)
	assert.Error(t, l.SetConfig(LMSConfig{Taps: 0, Delay: 10}))
	assert.Equal(t, DefaultLMSConfig(), l.Config())

	require.NoError(t, l.SetConfig(LMSConfig{Taps: 20, Delay: 10, Rate: 0.02, Leakage: 0}))
	assert.Len(t, l.Weights(), 20)
}

func TestBlockLMSNotchesTone(t *testing.T) {
	b, err := NewBlockLMS(512, DefaultBlockLMSConfig(), Residual)
	require.NoError(t, err)
	assert.Equal(t, 128, b.BlockSize())

	var out []complex64
	for k := 0; k < 100; k++ {
		out = sine(512, 1000, 8000, 0.5, k*512)
		b.Process(out)
	}
	assert.Less(t, power(out), 0.05*0.125)
}

func TestBlockLMSPredictsTone(t *testing.T) {
	b, err := NewBlockLMS(64, DefaultBlockLMSConfig(), Predicted)
	require.NoError(t, err)
	assert.Equal(t, 64, b.BlockSize())

	var in, out []complex64
	for k := 0; k < 400; k++ {
		in = sine(64, 440, 8000, 0.5, k*64)
		out = append([]complex64(nil), in...)
		b.Process(out)
	}
	for i := range out {
		out[i] -= in[i]
	}
	assert.Less(t, power(out), 0.05*0.125)

	_, err = NewBlockLMS(100, DefaultBlockLMSConfig(), Residual)
	assert.Error(t, err)
}
