// Package processor runs a named sequence of in-place stages over a block,
// timing each one and optionally mirroring stage outputs to the viz server.
package processor

import (
	"fmt"

	"github.com/norasector/sdrcore/pkg/dsp/viz"
	"github.com/norasector/sdrcore/pkg/util"
)

type Processor struct {
	Name        string
	InputName   string
	sampleRate  int
	stages      []*Stage
	vizServer   *viz.Server
	initialized bool
	inputFFT    *viz.FFTPlotter
}

// NewProcessor builds an empty chain. vizServer may be nil.
func NewProcessor(name, inputName string, sampleRate int, vizServer *viz.Server) *Processor {
	return &Processor{
		Name:       name,
		InputName:  inputName,
		sampleRate: sampleRate,
		vizServer:  vizServer,
	}
}

func (p *Processor) AddStage(s *Stage) {
	p.stages = append(p.stages, s)
}

// Stages lists stage names in run order.
func (p *Processor) Stages() []string {
	ret := make([]string, len(p.stages))
	for i, s := range p.stages {
		ret[i] = s.Name
	}
	return ret
}

func (p *Processor) Initialize() error {
	if p.initialized {
		return nil
	}
	if len(p.stages) == 0 {
		return fmt.Errorf("processor %s has no stages", p.Name)
	}
	seen := make(map[string]bool, len(p.stages))
	for _, s := range p.stages {
		if seen[s.Name] {
			return fmt.Errorf("processor %s: duplicate stage %s", p.Name, s.Name)
		}
		seen[s.Name] = true
		if s.work == nil {
			return fmt.Errorf("processor %s: stage %s has no work", p.Name, s.Name)
		}
	}

	if p.vizServer != nil {
		vizIndex := 0
		nextIndexString := func(s string) string {
			vizIndex++
			return fmt.Sprintf("%02d. %s", vizIndex, s)
		}

		p.inputFFT = viz.NewFFTPlotter(nextIndexString(p.InputName), 1024, p.sampleRate)
		p.vizServer.Register(p.Name, p.inputFFT)

		for _, s := range p.stages {
			if !s.plot {
				continue
			}
			vizLength := 1024
			if s.vizSize > 0 {
				vizLength = s.vizSize
			}
			s.fft = viz.NewFFTPlotter(nextIndexString(s.DisplayName), vizLength, p.sampleRate)
			s.fft.ShowBalance(s.showBalance)
			for _, opt := range s.plotOptions {
				s.fft.AddPlotOption(opt)
			}
			p.vizServer.Register(p.Name, s.fft)
		}
	}

	p.initialized = true
	return nil
}

// Process runs every enabled stage over x in order. When metrics is not nil
// each stage's run time in microseconds is stored under <name>_duration.
func (p *Processor) Process(x []complex64, metrics map[string]interface{}) error {
	if !p.initialized {
		if err := p.Initialize(); err != nil {
			return err
		}
	}

	if p.inputFFT != nil {
		p.inputFFT.AppendComplex(x)
	}

	for _, s := range p.stages {
		if !s.Enabled() {
			continue
		}
		y := s.target(x)
		if metrics == nil {
			s.work(y)
		} else {
			metrics[s.metricKey] = util.TimeOperationMicroseconds(func() { s.work(y) })
		}
		if s.fft != nil {
			s.fft.AppendComplex(y)
		}
	}
	return nil
}
