package viz

import (
	"sync"

	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
)

// SpectrumPlotter draws spectrum snapshots that were already computed, bin 0
// being the most negative frequency.
type SpectrumPlotter struct {
	mu          sync.Mutex
	name        string
	sampleRate  float64
	bins        []float32
	label       int
	plotOptions []PlotOptions
}

func NewSpectrumPlotter(name string, sampleRate float64) *SpectrumPlotter {
	return &SpectrumPlotter{name: name, sampleRate: sampleRate}
}

func (s *SpectrumPlotter) Name() string { return s.name }

func (s *SpectrumPlotter) AddPlotOption(opt PlotOptions) {
	s.plotOptions = append(s.plotOptions, opt)
}

// Update copies bins.
func (s *SpectrumPlotter) Update(label int, bins []float32) {
	s.mu.Lock()
	s.bins = append(s.bins[:0], bins...)
	s.label = label
	s.mu.Unlock()
}

func (s *SpectrumPlotter) GetImage() (*ImageContainer, error) {
	s.mu.Lock()
	n := len(s.bins)
	if n == 0 {
		s.mu.Unlock()
		return nil, nil
	}
	pts := make(plotter.XYs, n)
	step := s.sampleRate / float64(n)
	for i, v := range s.bins {
		pts[i] = plotter.XY{X: float64(i-n/2) * step, Y: float64(v)}
	}
	s.mu.Unlock()

	p := plotWithDefaults()
	p.Title.Text = s.name
	p.Y.Label.Text = "Power (dB)"
	p.X.Label.Text = "Frequency"
	p.Y.Min = -160
	p.Y.Max = 0
	for _, opt := range s.plotOptions {
		opt(p)
	}
	p.Add(plotter.NewGrid())
	if err := plotutil.AddLines(p, "spectrum", pts); err != nil {
		return nil, err
	}
	return render(p, s.name)
}
