package viz

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"github.com/norasector/sdrcore/pkg/dsp/filters/fir"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
)

const (
	mixAvg = 0.10
	balAvg = 0.05
)

// FFTPlotter mirrors a complex stage output and plots its averaged spectrum.
// Appends come from the audio path and are dropped rather than waiting on a
// render in progress.
type FFTPlotter struct {
	mu           sync.Mutex
	buf          []complex64
	work         []complex128
	window       []float32
	plan         *fourier.CmplxFFT
	sampleRate   int
	size         int
	averagePower []float64
	avgSumPower  float64
	name         string
	showBalance  bool
	plotOptions  []PlotOptions
	dropped      int
}

func NewFFTPlotter(name string, size, sampleRate int) *FFTPlotter {
	return &FFTPlotter{
		buf:          make([]complex64, size),
		work:         make([]complex128, size),
		window:       fir.BlackmanWindow(size),
		plan:         fourier.NewCmplxFFT(size),
		averagePower: make([]float64, size),
		size:         size,
		sampleRate:   sampleRate,
		name:         name,
	}
}

func (f *FFTPlotter) Name() string { return f.name }

func (f *FFTPlotter) ShowBalance(show bool) { f.showBalance = show }

func (f *FFTPlotter) AddPlotOption(opt PlotOptions) {
	f.plotOptions = append(f.plotOptions, opt)
}

// AppendComplex keeps the most recent size samples.
func (f *FFTPlotter) AppendComplex(s []complex64) {
	if !f.mu.TryLock() {
		f.dropped++
		return
	}
	defer f.mu.Unlock()
	if len(s) >= f.size {
		copy(f.buf, s[len(s)-f.size:])
		return
	}
	copy(f.buf, f.buf[len(s):])
	copy(f.buf[f.size-len(s):], s)
}

// Dropped counts appends skipped while a render held the buffer.
func (f *FFTPlotter) Dropped() int { return f.dropped }

func (f *FFTPlotter) GetImage() (*ImageContainer, error) {
	f.mu.Lock()
	norm := 0.42 * float64(f.size)
	for i, v := range f.buf {
		f.work[i] = complex128(v) * complex(float64(f.window[i])/norm, 0)
	}
	coeffs := f.plan.Coefficients(nil, f.work)

	pts := make(plotter.XYs, 0, f.size)
	var sumPower float64
	for i := 0; i < f.size; i++ {
		idx := f.plan.ShiftIdx(i)
		freq := f.plan.Freq(idx) * float64(f.sampleRate)
		f.averagePower[i] = (1-mixAvg)*f.averagePower[i] + mixAvg*cmplx.Abs(coeffs[idx])
		if f.averagePower[i] > 1e-5 {
			if freq < 0 {
				sumPower -= f.averagePower[i]
			} else if freq > 0 {
				sumPower += f.averagePower[i]
			}
		}
		pts = append(pts, plotter.XY{X: freq, Y: 20 * math.Log10(f.averagePower[i]+1e-16)})
	}
	f.avgSumPower = (1-balAvg)*f.avgSumPower + balAvg*sumPower
	balance := f.avgSumPower
	f.mu.Unlock()

	p := plotWithDefaults()
	p.Title.Text = f.name
	p.Y.Label.Text = "Power (dB)"
	p.X.Label.Text = "Frequency"
	p.Y.Max = 0
	p.Y.Min = -100
	for _, opt := range f.plotOptions {
		opt(p)
	}
	p.Add(plotter.NewGrid())
	if err := plotutil.AddLines(p, "frequency", pts); err != nil {
		return nil, err
	}
	if f.showBalance {
		p.Title.Text += fmt.Sprintf(" Balance: %3.0f", math.Abs(balance*1000))
	}
	return render(p, f.name)
}
