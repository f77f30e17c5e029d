// Package cxops holds the complex vector kernels used on the hot path. Scalar
// is the reference; Unrolled must agree with it within float tolerance.
package cxops

import "fmt"

type Backend interface {
	Name() string
	// Scale multiplies every sample by s.
	Scale(x []complex64, s float32)
	// Mul writes a[i]*b[i] into dst. dst may alias a or b.
	Mul(dst, a, b []complex64)
	// SumSquares returns the sum of |x|^2.
	SumSquares(x []complex64) float64
	// Peaks returns max |re| and max |im|.
	Peaks(x []complex64) (float64, float64)
	// SumAbsReal returns the sum of |re|.
	SumAbsReal(x []complex64) float64
}

var (
	Scalar   Backend = scalar{}
	Unrolled Backend = unrolled{}
)

func ByName(name string) (Backend, error) {
	switch name {
	case "", "scalar":
		return Scalar, nil
	case "unrolled":
		return Unrolled, nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", name)
	}
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

type scalar struct{}

func (scalar) Name() string { return "scalar" }

func (scalar) Scale(x []complex64, s float32) {
	for i := range x {
		x[i] = complex(real(x[i])*s, imag(x[i])*s)
	}
}

func (scalar) Mul(dst, a, b []complex64) {
	for i := range dst {
		dst[i] = a[i] * b[i]
	}
}

func (scalar) SumSquares(x []complex64) float64 {
	var sum float64
	for _, v := range x {
		re, im := float64(real(v)), float64(imag(v))
		sum += re*re + im*im
	}
	return sum
}

func (scalar) Peaks(x []complex64) (float64, float64) {
	var pr, pi float32
	for _, v := range x {
		pr = max(pr, abs32(real(v)))
		pi = max(pi, abs32(imag(v)))
	}
	return float64(pr), float64(pi)
}

func (scalar) SumAbsReal(x []complex64) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(abs32(real(v)))
	}
	return sum
}
