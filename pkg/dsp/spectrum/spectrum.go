// Package spectrum keeps a circular history of a tapped signal and turns
// snapshots of it into spectra or scope traces.
package spectrum

import (
	"fmt"
	"math"

	"github.com/norasector/sdrcore/pkg/util"
	"github.com/racerxdl/segdsp/dsp"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Type is the point in the chain the block is fed from.
type Type int

const (
	SemiRaw Type = iota
	PreFilter
	PostFilter
	PostAGC
	PostDet

	// PreMod is the transmit tap ahead of the modulator.
	PreMod = PostDet
)

type Scale int

const (
	Mag Scale = iota
	Pwr
)

// Last records which snapshot was taken most recently.
type Last int

const (
	LastFreq Last = iota
	LastTime
)

const (
	historyBlocks = 16
	polyphaseTaps = 8
)

type Block struct {
	size int

	accum []complex64
	mask  int
	fill  int

	timebuf []complex128
	freqbuf []complex128
	bins    []complex64
	plan    *fourier.CmplxFFT

	window    []float64
	winType   WindowType
	polyphase bool

	Type  Type
	Scale Scale
	RXK   int

	label int
	stamp int
	last  Last

	output []float32
	scope  []float32
}

func New(size int) (*Block, error) {
	if !util.IsPowerOfTwo(size) || size < 2 {
		return nil, fmt.Errorf("spectrum size %d is not a power of two", size)
	}
	b := &Block{
		size:    size,
		accum:   make([]complex64, historyBlocks*size),
		mask:    historyBlocks*size - 1,
		timebuf: make([]complex128, size),
		freqbuf: make([]complex128, size),
		bins:    make([]complex64, size),
		plan:    fourier.NewCmplxFFT(size),
		winType: WindowBlackmanHarris,
		Type:    PostFilter,
		Scale:   Pwr,
		output:  make([]float32, size),
		scope:   make([]float32, size),
	}
	if err := b.rebuildWindow(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Block) Size() int { return b.size }

// Accumulate appends x to the history.
func (b *Block) Accumulate(x []complex64) {
	for _, v := range x {
		b.accum[b.fill] = v
		b.fill = (b.fill + 1) & b.mask
	}
}

// AccumulateReal appends the real part of x scaled by gain, with the
// imaginary part cleared.
func (b *Block) AccumulateReal(x []complex64, gain float32) {
	for _, v := range x {
		b.accum[b.fill] = complex(real(v)*gain, 0)
		b.fill = (b.fill + 1) & b.mask
	}
}

// Reset clears the history and the last output.
func (b *Block) Reset() {
	b.fill = 0
	clear(b.accum)
	clear(b.output)
}

func (b *Block) SetPolyphase(on bool) error {
	prev := b.polyphase
	b.polyphase = on
	if err := b.rebuildWindow(); err != nil {
		b.polyphase = prev
		return err
	}
	return nil
}

func (b *Block) Polyphase() bool { return b.polyphase }

func (b *Block) SetWindow(w WindowType) error {
	if _, err := makeWindow(w, b.size); err != nil {
		return err
	}
	b.winType = w
	return b.rebuildWindow()
}

func (b *Block) Window() WindowType { return b.winType }

func (b *Block) rebuildWindow() error {
	if b.polyphase {
		w, err := polyphaseWindow(b.size)
		if err != nil {
			return err
		}
		b.window = w
		return nil
	}
	w, err := makeWindow(b.winType, b.size)
	if err != nil {
		return err
	}
	b.window = w
	return nil
}

// Snapshot windows the most recent history into the analysis buffer.
func (b *Block) Snapshot(label, stamp int) {
	if !b.polyphase {
		j := (b.fill - b.size) & b.mask
		for i := 0; i < b.size; i++ {
			b.timebuf[i] = complex128(b.accum[j]) * complex(b.window[i], 0)
			j = (j + 1) & b.mask
		}
	} else {
		j := (b.fill - polyphaseTaps*b.size) & b.mask
		for i := 0; i < b.size; i++ {
			var acc complex128
			for k := 0; k < polyphaseTaps; k++ {
				idx := (j + k*b.size) & b.mask
				acc += complex128(b.accum[idx]) * complex(b.window[i+k*b.size], 0)
			}
			b.timebuf[i] = acc
			j = (j + 1) & b.mask
		}
	}
	b.label, b.stamp, b.last = label, stamp, LastFreq
}

// SnapshotScope copies the real part of the most recent history.
func (b *Block) SnapshotScope(label, stamp int) {
	j := (b.fill - b.size) & b.mask
	for i := 0; i < b.size; i++ {
		b.scope[i] = real(b.accum[j])
		j = (j + 1) & b.mask
	}
	b.label, b.stamp, b.last = label, stamp, LastTime
}

// Compute transforms the last snapshot. Output bin 0 is the most negative
// frequency.
func (b *Block) Compute() {
	b.plan.Coefficients(b.freqbuf, b.timebuf)
	half := b.size / 2

	if b.Scale == Mag {
		for i, j := 0, half; i < half; i, j = i+1, j+1 {
			b.output[i] = float32(cabs(b.freqbuf[j]))
			b.output[j] = float32(cabs(b.freqbuf[i]))
		}
		return
	}

	for i, v := range b.freqbuf {
		b.bins[i] = complex64(v)
	}
	pwr := dsp.MultiplyConjugate(b.bins, b.bins, b.size)
	for i, j := 0, half; i < half; i, j = i+1, j+1 {
		b.output[i] = float32(util.Log10P(float64(real(pwr[j]))))
		b.output[j] = float32(util.Log10P(float64(real(pwr[i]))))
	}
}

// Output is the last computed spectrum. Callers copy it out under the
// workspace guard.
func (b *Block) Output() []float32 { return b.output }

// Scope is the last scope snapshot.
func (b *Block) Scope() []float32 { return b.scope }

func (b *Block) Label() int { return b.label }
func (b *Block) Stamp() int { return b.stamp }
func (b *Block) Last() Last { return b.last }

func cabs(v complex128) float64 {
	return math.Hypot(real(v), imag(v))
}
