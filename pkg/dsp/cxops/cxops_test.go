package cxops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func drawVector(t *rapid.T, label string) []complex64 {
	parts := rapid.SliceOfN(rapid.Float32Range(-4, 4), 0, 130).Draw(t, label)
	ret := make([]complex64, len(parts)/2)
	for i := range ret {
		ret[i] = complex(parts[2*i], parts[2*i+1])
	}
	return ret
}

func TestBackendsAgree(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		x := drawVector(t, "x")
		y := make([]complex64, len(x))
		for i := range y {
			y[i] = complex(imag(x[i]), -real(x[i])*0.5)
		}
		s := rapid.Float32Range(-2, 2).Draw(t, "scale")

		assert.InDelta(t, Scalar.SumSquares(x), Unrolled.SumSquares(x), 1e-6*(1+Scalar.SumSquares(x)))
		assert.InDelta(t, Scalar.SumAbsReal(x), Unrolled.SumAbsReal(x), 1e-6*(1+Scalar.SumAbsReal(x)))

		sr, si := Scalar.Peaks(x)
		ur, ui := Unrolled.Peaks(x)
		assert.Equal(t, sr, ur)
		assert.Equal(t, si, ui)

		a := append([]complex64(nil), x...)
		b := append([]complex64(nil), x...)
		Scalar.Mul(a, a, y)
		Unrolled.Mul(b, b, y)
		for i := range a {
			assert.InDelta(t, real(a[i]), real(b[i]), 1e-5)
			assert.InDelta(t, imag(a[i]), imag(b[i]), 1e-5)
		}

		Scalar.Scale(a, s)
		Unrolled.Scale(b, s)
		for i := range a {
			assert.InDelta(t, real(a[i]), real(b[i]), 1e-5)
			assert.InDelta(t, imag(a[i]), imag(b[i]), 1e-5)
		}
	})
}

func TestByName(t *testing.T) {
	b, err := ByName("unrolled")
	require.NoError(t, err)
	assert.Equal(t, "unrolled", b.Name())

	b, err = ByName("")
	require.NoError(t, err)
	assert.Equal(t, "scalar", b.Name())

	_, err = ByName("sse3")
	assert.Error(t, err)
}
