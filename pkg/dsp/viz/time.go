package viz

import (
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
)

type PlotType int

const (
	PlotTypeDefault PlotType = iota
	PlotTypeScatter
	PlotTypeLines
)

// ScopePlotter draws the most recent scope trace.
type ScopePlotter struct {
	mu          sync.Mutex
	trace       []float32
	size        int
	name        string
	plotFunc    func(*plot.Plot, ...interface{}) error
	plotOptions []PlotOptions
}

func NewScopePlotter(name string, size int) *ScopePlotter {
	return &ScopePlotter{
		size:     size,
		name:     name,
		plotFunc: plotutil.AddLines,
	}
}

func (t *ScopePlotter) Name() string { return t.name }

func (t *ScopePlotter) SetPlotType(tp PlotType) {
	switch tp {
	case PlotTypeScatter:
		t.plotFunc = plotutil.AddScatters
	default:
		t.plotFunc = plotutil.AddLines
	}
}

func (t *ScopePlotter) AddPlotOption(opt PlotOptions) {
	t.plotOptions = append(t.plotOptions, opt)
}

// Update keeps the trailing size samples of trace.
func (t *ScopePlotter) Update(trace []float32) {
	t.mu.Lock()
	t.trace = append(t.trace, trace...)
	if len(t.trace) > t.size {
		t.trace = t.trace[len(t.trace)-t.size:]
	}
	t.mu.Unlock()
}

func (t *ScopePlotter) GetImage() (*ImageContainer, error) {
	t.mu.Lock()
	if len(t.trace) < t.size {
		t.mu.Unlock()
		return nil, nil
	}
	pts := make(plotter.XYs, t.size)
	for i := range pts {
		pts[i] = plotter.XY{X: float64(i), Y: float64(t.trace[i])}
	}
	t.mu.Unlock()

	p := plotWithDefaults()
	p.Title.Text = t.name
	p.Y.Label.Text = "Amplitude"
	p.Y.Min = -1.5
	p.Y.Max = 1.5
	p.X.Label.Text = "t"
	for _, opt := range t.plotOptions {
		opt(p)
	}
	p.Add(plotter.NewGrid())
	if err := t.plotFunc(p, "f(t)", pts); err != nil {
		return nil, err
	}
	return render(p, t.name)
}
