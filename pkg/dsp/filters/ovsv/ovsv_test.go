package ovsv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func directConvolve(taps, x []complex64) []complex64 {
	out := make([]complex64, len(x))
	for n := range x {
		var acc complex128
		for k, h := range taps {
			if n-k < 0 {
				break
			}
			acc += complex128(h) * complex128(x[n-k])
		}
		out[n] = complex64(acc)
	}
	return out
}

func drawComplex(t *rapid.T, label string, n int) []complex64 {
	parts := rapid.SliceOfN(rapid.Float32Range(-1, 1), 2*n, 2*n).Draw(t, label)
	ret := make([]complex64, n)
	for i := range ret {
		ret[i] = complex(parts[2*i], parts[2*i+1])
	}
	return ret
}

func TestMatchesDirectConvolution(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		blockSize := 1 << rapid.IntRange(2, 6).Draw(t, "log2 block")
		ntaps := rapid.IntRange(1, blockSize+1).Draw(t, "taps")
		nblocks := rapid.IntRange(1, 6).Draw(t, "blocks")

		taps := drawComplex(t, "taps", ntaps)
		x := drawComplex(t, "signal", blockSize*nblocks)

		prof, err := BuildProfile(taps, 2*blockSize)
		require.NoError(t, err)
		f, err := New(blockSize, prof)
		require.NoError(t, err)

		got := make([]complex64, len(x))
		for b := 0; b < nblocks; b++ {
			blk := got[b*blockSize : (b+1)*blockSize]
			copy(blk, x[b*blockSize:])
			f.Apply(blk, blk)
		}

		want := directConvolve(taps, x)
		for n := ntaps - 1; n < len(x); n++ {
			assert.InDelta(t, real(want[n]), real(got[n]), 1e-3, "re at %d", n)
			assert.InDelta(t, imag(want[n]), imag(got[n]), 1e-3, "im at %d", n)
		}
	})
}

func TestResetClearsHistory(t *testing.T) {
	taps := []complex64{0.5, 0.5}
	prof, err := BuildProfile(taps, 8)
	require.NoError(t, err)
	f, err := New(4, prof)
	require.NoError(t, err)

	blk := []complex64{1, 1, 1, 1}
	f.Apply(blk, blk)
	f.Reset()

	blk = []complex64{0, 0, 0, 0}
	f.Apply(blk, blk)
	for _, v := range blk {
		assert.InDelta(t, 0.0, real(v), 1e-9)
	}
}

func TestSetProfileKeepsHistory(t *testing.T) {
	identity, err := BuildProfile([]complex64{1}, 8)
	require.NoError(t, err)
	delay, err := BuildProfile([]complex64{0, 1}, 8)
	require.NoError(t, err)

	f, err := New(4, identity)
	require.NoError(t, err)
	blk := []complex64{1, 2, 3, 4}
	f.Apply(blk, blk)

	require.NoError(t, f.SetProfile(delay))
	blk = []complex64{5, 6, 7, 8}
	f.Apply(blk, blk)
	assert.InDelta(t, 4.0, real(blk[0]), 1e-6)
	assert.InDelta(t, 7.0, real(blk[3]), 1e-6)
}

func TestRejectsBadShapes(t *testing.T) {
	_, err := BuildProfile(make([]complex64, 10), 8)
	assert.Error(t, err)

	_, err = New(6, make([]complex128, 12))
	assert.Error(t, err)

	f, err := New(4, make([]complex128, 8))
	require.NoError(t, err)
	assert.Error(t, f.SetProfile(make([]complex128, 4)))
}

func TestProfileCache(t *testing.T) {
	c, err := NewProfileCache(2)
	require.NoError(t, err)

	builds := 0
	design := func() ([]complex64, error) {
		builds++
		return []complex64{1, 0.5}, nil
	}
	key := ProfileKey{Low: 300, High: 3000, SampleRate: 48000, Taps: 2, FFTLen: 8}
	a, err := c.Get(key, design)
	require.NoError(t, err)
	b, err := c.Get(key, design)
	require.NoError(t, err)
	assert.Equal(t, 1, builds)
	assert.Equal(t, a, b)
	assert.Equal(t, 1, c.Len())
}
