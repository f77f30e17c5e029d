// Package ovsv is an overlap-save FIR engine. Each call filters one block of
// blockSize samples against a frequency-domain profile of length 2*blockSize.
package ovsv

import (
	"fmt"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/fourier"
)

type Filter struct {
	blockSize int
	fftLen    int
	profile   []complex128
	save      []complex128
	freq      []complex128
	time      []complex128
	plan      *fourier.CmplxFFT
	firstCall bool
}

// BuildProfile zero-pads coefs to fftLen, transforms them and folds in the
// 1/fftLen the unnormalized inverse transform needs.
func BuildProfile(coefs []complex64, fftLen int) ([]complex128, error) {
	if len(coefs) > fftLen/2+1 {
		return nil, fmt.Errorf("%d taps do not fit an overlap-save of length %d", len(coefs), fftLen)
	}
	padded := make([]complex128, fftLen)
	for i, c := range coefs {
		padded[i] = complex128(c)
	}
	profile := fft.FFT(padded)
	scale := complex(1/float64(fftLen), 0)
	for i := range profile {
		profile[i] *= scale
	}
	return profile, nil
}

func New(blockSize int, profile []complex128) (*Filter, error) {
	if blockSize <= 0 || blockSize&(blockSize-1) != 0 {
		return nil, fmt.Errorf("block size %d is not a power of two", blockSize)
	}
	f := &Filter{
		blockSize: blockSize,
		fftLen:    2 * blockSize,
		save:      make([]complex128, 2*blockSize),
		freq:      make([]complex128, 2*blockSize),
		time:      make([]complex128, 2*blockSize),
		plan:      fourier.NewCmplxFFT(2 * blockSize),
		firstCall: true,
	}
	if err := f.SetProfile(profile); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Filter) BlockSize() int { return f.blockSize }
func (f *Filter) FFTLen() int    { return f.fftLen }

// Profile returns the live frequency response. Callers must not modify it.
func (f *Filter) Profile() []complex128 { return f.profile }

// SetProfile swaps the response without touching history.
func (f *Filter) SetProfile(profile []complex128) error {
	if len(profile) != f.fftLen {
		return fmt.Errorf("profile length %d, want %d", len(profile), f.fftLen)
	}
	f.profile = profile
	return nil
}

// Reset clears the saved history.
func (f *Filter) Reset() {
	clear(f.save)
	f.firstCall = false
}

// Apply filters one block. in and out may be the same slice. Short blocks are
// zero-padded.
func (f *Filter) Apply(in, out []complex64) {
	if f.firstCall {
		f.Reset()
	}
	n := f.blockSize
	tail := f.save[n:]
	m := copy32to128(tail, in)
	clear(tail[m:])

	f.plan.Coefficients(f.freq, f.save)
	for i, p := range f.profile {
		f.freq[i] *= p
	}
	f.plan.Sequence(f.time, f.freq)

	for i := 0; i < len(out) && i < n; i++ {
		out[i] = complex64(f.time[n+i])
	}

	copy(f.save[:n], tail)
}

func copy32to128(dst []complex128, src []complex64) int {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i] = complex128(src[i])
	}
	return n
}
