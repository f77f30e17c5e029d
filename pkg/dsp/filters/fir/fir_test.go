package fir

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowSymmetry(t *testing.T) {
	tests := []struct {
		name string
		win  WindowType
	}{
		{"hamming", Hamming},
		{"hann", Hann},
		{"blackman", Blackman},
		{"blackman harris", BlackmanHarris},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := Window(tt.win, 65)
			require.NoError(t, err)
			for i := 0; i < 32; i++ {
				assert.InDelta(t, w[i], w[64-i], 1e-6)
			}
			assert.InDelta(t, 1.0, w[32], 0.01)
			assert.Less(t, w[0], float32(0.1))
		})
	}
}

func TestUnknownWindow(t *testing.T) {
	_, err := Window(WindowType(42), 8)
	assert.Error(t, err)
}

func TestLowPassUnityDC(t *testing.T) {
	taps, err := LowPass(3000, 48000, 129, BlackmanHarris)
	require.NoError(t, err)
	var sum float64
	for _, v := range taps {
		sum += float64(v)
	}
	assert.InDelta(t, 1.0, sum, 1e-5)
}

func TestComplexBandPassResponse(t *testing.T) {
	taps, err := ComplexBandPass(300, 3000, 48000, 513, BlackmanHarris)
	require.NoError(t, err)

	tests := []struct {
		name   string
		hz     float64
		wantDB float64
		tolDB  float64
	}{
		{"passband 1k", 1000, 0, 0.1},
		{"passband 2k", 2000, 0, 0.1},
		{"image", -1000, -80, 20},
		{"far stop", 8000, -90, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := 20 * math.Log10(cmplx.Abs(Response(taps, tt.hz, 48000))+1e-12)
			if tt.wantDB == 0 {
				assert.InDelta(t, tt.wantDB, db, tt.tolDB)
			} else {
				assert.Less(t, db, tt.wantDB+tt.tolDB)
			}
		})
	}
}

func TestComplexBandPassRejectsInvertedEdges(t *testing.T) {
	_, err := ComplexBandPass(3000, 300, 48000, 65, Hann)
	assert.Error(t, err)
}
