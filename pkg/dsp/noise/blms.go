package noise

import (
	"fmt"
	"math/cmplx"

	"github.com/norasector/sdrcore/pkg/util"
	"gonum.org/v1/gonum/dsp/fourier"
)

const maxBlock = 128

type BlockLMSConfig struct {
	Rate    float64
	Leakage float64
}

func DefaultBlockLMSConfig() BlockLMSConfig {
	return BlockLMSConfig{Rate: 0.005, Leakage: 0.00001}
}

// BlockLMS is a frequency-domain LMS predictor. Each block of B samples is
// predicted from the two blocks before it with B taps.
type BlockLMS struct {
	cfg    BlockLMSConfig
	output Output
	block  int
	plan   *fourier.CmplxFFT

	w      []float64
	window []complex128
	wf     []complex128
	uf     []complex128
	tmp    []complex128
	ef     []complex128
	grad   []complex128
}

func NewBlockLMS(size int, cfg BlockLMSConfig, output Output) (*BlockLMS, error) {
	if !util.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("block lms size %d is not a power of two", size)
	}
	b := min(maxBlock, size)
	n := 2 * b
	return &BlockLMS{
		cfg:    cfg,
		output: output,
		block:  b,
		plan:   fourier.NewCmplxFFT(n),
		w:      make([]float64, b),
		window: make([]complex128, n),
		wf:     make([]complex128, n),
		uf:     make([]complex128, n),
		tmp:    make([]complex128, n),
		ef:     make([]complex128, n),
		grad:   make([]complex128, n),
	}, nil
}

func (b *BlockLMS) SetConfig(cfg BlockLMSConfig) { b.cfg = cfg }
func (b *BlockLMS) Config() BlockLMSConfig       { return b.cfg }
func (b *BlockLMS) BlockSize() int               { return b.block }

func (b *BlockLMS) Process(x []complex64) {
	for off := 0; off+b.block <= len(x); off += b.block {
		b.processBlock(x[off : off+b.block])
	}
}

func (b *BlockLMS) processBlock(x []complex64) {
	n := 2 * b.block
	norm := complex(1/float64(n), 0)

	clear(b.tmp)
	for j, w := range b.w {
		b.tmp[j] = complex(w, 0)
	}
	b.plan.Coefficients(b.wf, b.tmp)
	b.plan.Coefficients(b.uf, b.window)
	for i := range b.tmp {
		b.tmp[i] = b.uf[i] * b.wf[i]
	}
	b.plan.Sequence(b.grad, b.tmp)

	var power float64
	for _, v := range b.window {
		power += real(v) * real(v)
	}

	// Slide the window before x is overwritten with the output.
	copy(b.window, b.window[b.block:])
	clear(b.tmp)
	for i, v := range x {
		in := float64(real(v))
		b.window[b.block+i] = complex(in, 0)
		y := real(b.grad[b.block+i] * norm)
		e := in - y
		b.tmp[b.block+i] = complex(e, 0)
		if b.output == Residual {
			x[i] = complex(float32(e), 0)
		} else {
			x[i] = complex(float32(y), 0)
		}
	}

	b.plan.Coefficients(b.ef, b.tmp)
	for i := range b.ef {
		b.ef[i] *= cmplx.Conj(b.uf[i])
	}
	b.plan.Sequence(b.grad, b.ef)

	scale := b.cfg.Rate / (power + 1e-10)
	leak := 1 - b.cfg.Rate*b.cfg.Leakage
	for j := range b.w {
		b.w[j] = b.w[j]*leak + scale*real(b.grad[j]*norm)
	}
}
