package fir

import (
	"fmt"
	"math"
)

type WindowFunc func(int) []float32

type WindowType int

const (
	Hamming        WindowType = 0
	Hann           WindowType = 1
	BlackmanHarris WindowType = 2
	Blackman       WindowType = 3
)

var windowFuncs = map[WindowType]WindowFunc{
	Hamming:  HammingWindow,
	Hann:     HannWindow,
	Blackman: BlackmanWindow,
	BlackmanHarris: func(n int) []float32 {
		return BlackmanHarrisWindow(n, 92)
	},
}

// Window returns the window of type winType with ntaps points.
func Window(winType WindowType, ntaps int) ([]float32, error) {
	f, ok := windowFuncs[winType]
	if !ok {
		return nil, fmt.Errorf("unknown window type %d", winType)
	}
	return f(ntaps), nil
}

func cosWindow(ntaps int, c ...float64) []float32 {
	ret := make([]float32, ntaps)
	if ntaps == 1 {
		ret[0] = 1
		return ret
	}
	M := float64(ntaps - 1)

	for i := 0; i < ntaps; i++ {
		fi := float64(i)
		sign := 1.0
		var v float64
		for k, ck := range c {
			v += sign * ck * math.Cos(2*math.Pi*float64(k)*fi/M)
			sign = -sign
		}
		ret[i] = float32(v)
	}
	return ret
}

func BlackmanHarrisWindow(ntaps, atten int) []float32 {
	switch atten {
	case 61:
		return cosWindow(ntaps, 0.42323, 0.49755, 0.07922)
	case 67:
		return cosWindow(ntaps, 0.44959, 0.49364, 0.05677)
	case 74:
		return cosWindow(ntaps, 0.40271, 0.49703, 0.09392, 0.00183)
	case 92:
		return cosWindow(ntaps, 0.35875, 0.48829, 0.14128, 0.01168)
	default:
		panic(fmt.Errorf("blackman harris window must have attenuation value 61, 67, 74, 92, got %d", atten))
	}
}

func BlackmanWindow(ntaps int) []float32 {
	return cosWindow(ntaps, 0.42, 0.5, 0.08)
}

func HammingWindow(ntaps int) []float32 {
	return cosWindow(ntaps, 0.54, 0.46)
}

func HannWindow(ntaps int) []float32 {
	return cosWindow(ntaps, 0.5, 0.5)
}
