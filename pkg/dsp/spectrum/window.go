package spectrum

import (
	"fmt"

	"github.com/mjibson/go-dsp/window"
	"github.com/norasector/sdrcore/pkg/dsp/filters/fir"
)

// WindowType numbers the analysis windows the way the command interface does.
type WindowType int

const (
	WindowRectangular    WindowType = 0
	WindowHann           WindowType = 1
	WindowBartlett       WindowType = 4
	WindowHamming        WindowType = 5
	WindowBlackman       WindowType = 6
	WindowBlackmanHarris WindowType = 11
	WindowFlatTop        WindowType = 12
)

func widen(w []float32) []float64 {
	ret := make([]float64, len(w))
	for i, v := range w {
		ret[i] = float64(v)
	}
	return ret
}

func makeWindow(w WindowType, n int) ([]float64, error) {
	switch w {
	case WindowRectangular:
		return window.Rectangular(n), nil
	case WindowBartlett:
		return window.Bartlett(n), nil
	case WindowFlatTop:
		return window.FlatTop(n), nil
	case WindowHann:
		return widen(fir.HannWindow(n)), nil
	case WindowHamming:
		return widen(fir.HammingWindow(n)), nil
	case WindowBlackman:
		return widen(fir.BlackmanWindow(n)), nil
	case WindowBlackmanHarris:
		return widen(fir.BlackmanHarrisWindow(n, 92)), nil
	}
	return nil, fmt.Errorf("unknown spectrum window %d", w)
}

// polyphaseWindow is a lowpass prototype spanning eight analysis frames,
// scaled to a peak of 1.
func polyphaseWindow(size int) ([]float64, error) {
	taps, err := fir.LowPass(0.5/float64(size), 1, polyphaseTaps*size, fir.BlackmanHarris)
	if err != nil {
		return nil, err
	}
	var peak float64
	for _, t := range taps {
		peak = max(peak, float64(t))
	}
	ret := make([]float64, len(taps))
	for i, t := range taps {
		ret[i] = float64(t) / peak
	}
	return ret, nil
}
