package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewComplex(t *testing.T) {
	b := NewComplex(64)
	assert.Equal(t, 64, b.Capacity())
	assert.Equal(t, 64, b.Requested())
	assert.Equal(t, 64, b.Filled())
	assert.True(t, b.Owns())
}

func TestSetFilledClamps(t *testing.T) {
	b := NewComplex(8)
	b.SetFilled(100)
	assert.Equal(t, 8, b.Filled())
	b.SetFilled(-1)
	assert.Equal(t, 0, b.Filled())
	assert.Len(t, b.Samples(), 0)
}

func TestViewAliasesOwner(t *testing.T) {
	owner := NewComplex(16)
	view := ViewComplex(owner, 4, 8)
	require.False(t, view.Owns())

	view.Set(0, complex(1, 2))
	assert.Equal(t, complex64(complex(1, 2)), owner.At(4))

	view.Release()
	assert.Equal(t, complex64(complex(1, 2)), owner.At(4))
	assert.Equal(t, 16, owner.Capacity())
}

func TestViewOutOfRangePanics(t *testing.T) {
	owner := NewComplex(4)
	assert.Panics(t, func() { ViewComplex(owner, 2, 4) })
}

func TestCopyFromSetsFilled(t *testing.T) {
	b := NewComplex(4)
	n := b.CopyFrom([]complex64{1, 2})
	assert.Equal(t, 2, n)
	assert.Equal(t, []complex64{1, 2}, b.Samples())
}

func TestReal(t *testing.T) {
	r := NewReal(3)
	r.Set(2, 1.5)
	assert.Equal(t, float32(1.5), r.At(2))
	w := WrapReal(r.Samples())
	assert.False(t, w.Owns())
	assert.Equal(t, float32(1.5), w.At(2))
}
