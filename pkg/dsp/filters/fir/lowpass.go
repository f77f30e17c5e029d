package fir

import "math"

// LowPass designs an ntaps windowed-sinc lowpass with unity gain at DC.
// cutoff is in Hz.
func LowPass(cutoff, sampleRate float64, ntaps int, winType WindowType) ([]float32, error) {
	w, err := Window(winType, ntaps)
	if err != nil {
		return nil, err
	}

	taps := make([]float32, ntaps)
	fc := cutoff / sampleRate
	mid := float64(ntaps-1) / 2

	var sum float64
	for i := 0; i < ntaps; i++ {
		k := float64(i) - mid
		var v float64
		if k == 0 {
			v = 2 * fc
		} else {
			v = math.Sin(2*math.Pi*fc*k) / (math.Pi * k)
		}
		v *= float64(w[i])
		taps[i] = float32(v)
		sum += v
	}

	if sum != 0 {
		for i := range taps {
			taps[i] = float32(float64(taps[i]) / sum)
		}
	}
	return taps, nil
}
