package processor

import "github.com/norasector/sdrcore/pkg/dsp/viz"

// Stage is one step of a chain. Work mutates the block in place.
type Stage struct {
	Name        string
	DisplayName string

	work    func(x []complex64)
	enabled func() bool
	buffer  func() []complex64

	metricKey   string
	fft         *viz.FFTPlotter
	vizSize     int
	showBalance bool
	plotOptions []viz.PlotOptions
	plot        bool
}

type StageOption func(s *Stage)

// When gates the stage. A disabled stage is skipped and not timed.
func When(enabled func() bool) StageOption {
	return func(s *Stage) { s.enabled = enabled }
}

// On points the stage at another block than the one passed to Process.
func On(buffer func() []complex64) StageOption {
	return func(s *Stage) { s.buffer = buffer }
}

// WithPlot mirrors the stage output into a spectrum view when the processor
// has a viz server.
func WithPlot() StageOption {
	return func(s *Stage) { s.plot = true }
}

func WithPlotOptions(opts []viz.PlotOptions) StageOption {
	return func(s *Stage) {
		s.plot = true
		s.plotOptions = append(s.plotOptions, opts...)
	}
}

func WithVizLength(length int) StageOption {
	return func(s *Stage) { s.vizSize = length }
}

func ShowFFTBalance() StageOption {
	return func(s *Stage) { s.showBalance = true }
}

func NewStage(name, displayName string, work func(x []complex64), opts ...StageOption) *Stage {
	s := &Stage{
		Name:        name,
		DisplayName: displayName,
		work:        work,
		metricKey:   name + "_duration",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Stage) target(x []complex64) []complex64 {
	if s.buffer != nil {
		return s.buffer()
	}
	return x
}

func (s *Stage) Enabled() bool {
	return s.enabled == nil || s.enabled()
}
