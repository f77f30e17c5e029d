package processor

import (
	"testing"
	"time"

	"github.com/norasector/sdrcore/pkg/dsp/viz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStagesRunInOrder(t *testing.T) {
	var order []string
	mk := func(name string) *Stage {
		return NewStage(name, name, func(x []complex64) {
			order = append(order, name)
			for i := range x {
				x[i] += 1
			}
		})
	}

	skip := false
	p := NewProcessor("rx0", "input", 48000, nil)
	p.AddStage(mk("gain"))
	p.AddStage(NewStage("nb", "Noise blanker", func(x []complex64) {
		order = append(order, "nb")
	}, When(func() bool { return !skip })))
	p.AddStage(mk("filter"))

	x := make([]complex64, 4)
	metrics := map[string]interface{}{}
	require.NoError(t, p.Process(x, metrics))
	assert.Equal(t, []string{"gain", "nb", "filter"}, order)
	assert.Equal(t, complex64(2), x[0])
	assert.Contains(t, metrics, "gain_duration")
	assert.Contains(t, metrics, "nb_duration")
	assert.Contains(t, metrics, "filter_duration")

	order = nil
	skip = true
	metrics = map[string]interface{}{}
	require.NoError(t, p.Process(x, metrics))
	assert.Equal(t, []string{"gain", "filter"}, order)
	assert.NotContains(t, metrics, "nb_duration")
	assert.Equal(t, []string{"gain", "nb", "filter"}, p.Stages())

	require.NoError(t, p.Process(x, nil))
}

func TestInitializeRejectsBadChains(t *testing.T) {
	tests := []struct {
		name   string
		stages []*Stage
	}{
		{"empty", nil},
		{"duplicate", []*Stage{
			NewStage("a", "a", func([]complex64) {}),
			NewStage("a", "a", func([]complex64) {}),
		}},
		{"no work", []*Stage{NewStage("a", "a", nil)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProcessor("p", "in", 8000, nil)
			for _, s := range tt.stages {
				p.AddStage(s)
			}
			assert.Error(t, p.Initialize())
			assert.Error(t, p.Process(make([]complex64, 2), nil))
		})
	}
}

func TestPlottedStagesRegister(t *testing.T) {
	srv := viz.NewServer(0, time.Second)
	p := NewProcessor("rx0", "input", 48000, srv)
	p.AddStage(NewStage("filter", "Filter", func([]complex64) {}, WithPlot(), WithVizLength(256), ShowFFTBalance()))
	p.AddStage(NewStage("agc", "AGC", func([]complex64) {}))
	require.NoError(t, p.Initialize())

	assert.Nil(t, p.stages[1].fft)
	require.NotNil(t, p.stages[0].fft)
	assert.Equal(t, "02. Filter", p.stages[0].fft.Name())
	assert.Equal(t, "01. input", p.inputFFT.Name())
	require.NoError(t, p.Process(make([]complex64, 512), nil))
}

func TestPlotOptionsEnablePlot(t *testing.T) {
	srv := viz.NewServer(0, time.Second)
	p := NewProcessor("rx0", "input", 48000, srv)
	p.AddStage(NewStage("agc", "AGC", func([]complex64) {},
		WithPlotOptions([]viz.PlotOptions{viz.WithYRange(-80, 10)})))
	require.NoError(t, p.Initialize())

	require.NotNil(t, p.stages[0].fft)
	assert.Len(t, p.stages[0].plotOptions, 1)
	assert.Equal(t, "02. AGC", p.stages[0].fft.Name())
}

func TestStageOnOtherBuffer(t *testing.T) {
	in := make([]complex64, 2)
	out := make([]complex64, 2)
	p := NewProcessor("rx0", "input", 8000, nil)
	p.AddStage(NewStage("copy", "Copy", func(x []complex64) {
		for i := range x {
			x[i] = 1
		}
		copy(out, x)
	}))
	p.AddStage(NewStage("double", "Double", func(x []complex64) {
		for i := range x {
			x[i] *= 2
		}
	}, On(func() []complex64 { return out })))
	require.NoError(t, p.Process(in, nil))
	assert.Equal(t, []complex64{1, 1}, in)
	assert.Equal(t, []complex64{2, 2}, out)
}
