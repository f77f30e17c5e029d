// Package buffer holds the fixed-capacity sample blocks passed between stages.
//
// A buffer either owns its storage or is a view over storage owned by someone
// else. A view never outlives its owner and Release on a view only drops the
// reference.
package buffer

import "fmt"

type Complex struct {
	data      []complex64
	requested int
	filled    int
	owns      bool
}

// NewComplex allocates an owning buffer with filled = requested = size.
func NewComplex(size int) *Complex {
	return &Complex{
		data:      make([]complex64, size),
		requested: size,
		filled:    size,
		owns:      true,
	}
}

// WrapComplex builds a non-owning buffer over storage.
func WrapComplex(storage []complex64) *Complex {
	return &Complex{
		data:      storage,
		requested: len(storage),
		filled:    len(storage),
	}
}

// ViewComplex aliases n samples of other starting at offset.
func ViewComplex(other *Complex, offset, n int) *Complex {
	if offset < 0 || n < 0 || offset+n > len(other.data) {
		panic(fmt.Sprintf("buffer: view [%d:%d] outside capacity %d", offset, offset+n, len(other.data)))
	}
	return WrapComplex(other.data[offset : offset+n : offset+n])
}

func (b *Complex) Capacity() int  { return len(b.data) }
func (b *Complex) Requested() int { return b.requested }
func (b *Complex) Filled() int    { return b.filled }
func (b *Complex) Owns() bool     { return b.owns }

// SetFilled records how many of the leading samples are valid, clamped to capacity.
func (b *Complex) SetFilled(n int) {
	if n < 0 {
		n = 0
	}
	if n > len(b.data) {
		n = len(b.data)
	}
	b.filled = n
}

// Samples returns the valid samples. The slice aliases the buffer.
func (b *Complex) Samples() []complex64 {
	return b.data[:b.filled]
}

// Storage returns the whole backing array regardless of filled.
func (b *Complex) Storage() []complex64 {
	return b.data
}

func (b *Complex) At(i int) complex64 {
	if boundsChecked && (i < 0 || i >= b.filled) {
		panic(fmt.Sprintf("buffer: index %d outside filled %d", i, b.filled))
	}
	return b.data[i]
}

func (b *Complex) Set(i int, v complex64) {
	if boundsChecked && (i < 0 || i >= b.filled) {
		panic(fmt.Sprintf("buffer: index %d outside filled %d", i, b.filled))
	}
	b.data[i] = v
}

func (b *Complex) Zero() {
	clear(b.data[:b.filled])
}

// CopyFrom copies src into the buffer and sets filled to the copied count.
func (b *Complex) CopyFrom(src []complex64) int {
	n := copy(b.data, src)
	b.filled = n
	return n
}

// Release drops the storage. Views only forget the aliased memory.
func (b *Complex) Release() {
	b.data = nil
	b.filled = 0
	b.requested = 0
}

type Real struct {
	data      []float32
	requested int
	filled    int
	owns      bool
}

func NewReal(size int) *Real {
	return &Real{
		data:      make([]float32, size),
		requested: size,
		filled:    size,
		owns:      true,
	}
}

func WrapReal(storage []float32) *Real {
	return &Real{
		data:      storage,
		requested: len(storage),
		filled:    len(storage),
	}
}

func (b *Real) Capacity() int  { return len(b.data) }
func (b *Real) Requested() int { return b.requested }
func (b *Real) Filled() int    { return b.filled }
func (b *Real) Owns() bool     { return b.owns }

func (b *Real) SetFilled(n int) {
	if n < 0 {
		n = 0
	}
	if n > len(b.data) {
		n = len(b.data)
	}
	b.filled = n
}

func (b *Real) Samples() []float32 {
	return b.data[:b.filled]
}

func (b *Real) At(i int) float32 {
	if boundsChecked && (i < 0 || i >= b.filled) {
		panic(fmt.Sprintf("buffer: index %d outside filled %d", i, b.filled))
	}
	return b.data[i]
}

func (b *Real) Set(i int, v float32) {
	if boundsChecked && (i < 0 || i >= b.filled) {
		panic(fmt.Sprintf("buffer: index %d outside filled %d", i, b.filled))
	}
	b.data[i] = v
}

func (b *Real) Release() {
	b.data = nil
	b.filled = 0
	b.requested = 0
}
