package sdrcore

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/norasector/sdrcore/pkg/sdrcore/device"
	"github.com/norasector/sdrcore/pkg/sdrcore/output"
	"github.com/norasector/sdrcore/pkg/util"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanOutput struct {
	ch chan *output.Block
}

func (c *chanOutput) Start(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (c *chanOutput) Receive() chan<- *output.Block { return c.ch }

func newTestEngine(t *testing.T, dev device.Device, opts ...EngineOption) *Engine {
	t.Helper()
	p := DefaultParams()
	p.BlockSize = 256
	p.SpectrumSize = 1024
	opts = append([]EngineOption{WithLogger(zerolog.Nop())}, opts...)
	e, err := NewEngine(dev, Options{Params: p, MetricsEvery: 1}, opts...)
	require.NoError(t, err)
	return e
}

func TestEngineRunsDeviceBlocks(t *testing.T) {
	mock := &util.MockWriteAPI{}
	e := newTestEngine(t, device.NewSilence(device.FreeRunning(), device.WithBlockLimit(5)), WithInfluxDB(mock))

	require.NoError(t, e.Start(context.Background()))
	assert.Equal(t, 5, e.Workspace().Tick())
	require.Eventually(t, func() bool { return len(mock.Points()) == 5 }, time.Second, time.Millisecond)
	for _, p := range mock.Points() {
		assert.Equal(t, "sdrcore.block", p.Name())
	}
	require.NoError(t, e.Stop())
}

func TestEngineSplitsLongBlocks(t *testing.T) {
	e := newTestEngine(t, device.NewSilence())
	left, right := make([]float32, 600), make([]float32, 600)
	require.NoError(t, e.process(left, right))
	assert.Equal(t, 2, e.Workspace().Tick())
	assert.Len(t, e.inL, 88)

	left, right = make([]float32, 168), make([]float32, 168)
	require.NoError(t, e.process(left, right))
	assert.Equal(t, 3, e.Workspace().Tick())
	assert.Empty(t, e.inL)
}

func TestEngineKeepsStreamAcrossGrowth(t *testing.T) {
	const (
		small = 256
		large = 512
		total = 8 * large
	)
	cmds := []string{"setMode 1", "setRXFilter 300 3000", "setRXAGC 0", "setfixedAGC 1 0"}

	e := newTestEngine(t, device.NewSilence())
	for _, c := range cmds {
		mustUpdate(t, e.Workspace(), "!"+c)
	}
	mustUpdate(t, e.Workspace(), "setNewBuflen 512")
	require.Equal(t, large, e.Workspace().Params().BlockSize)

	fresh := newTestWorkspace(t, large)
	mustUpdate(t, fresh, cmds...)

	toneL, toneR := complexTone(1000, 48000, 0, total)

	var got []float32
	for off := 0; off < total; off += small {
		l := append([]float32(nil), toneL[off:off+small]...)
		r := append([]float32(nil), toneR[off:off+small]...)
		require.NoError(t, e.process(l, r))
		got = append(got, l...)
	}
	assert.Equal(t, total/large, e.Workspace().Tick())

	var want []float32
	for off := 0; off < total; off += large {
		l := append([]float32(nil), toneL[off:off+large]...)
		r := append([]float32(nil), toneR[off:off+large]...)
		require.NoError(t, fresh.ProcessBlock(l, r, nil))
		want = append(want, l...)
	}

	// one small block of lag while the first large block fills
	assert.Equal(t, make([]float32, small), got[:small])
	assert.Equal(t, want[:total-small], got[small:])

	last := got[total-large:]
	db := 20 * math.Log10(rms(last)*math.Sqrt2)
	assert.InDelta(t, 0, db, 0.5, "level %f dB", db)
}

func TestEngineOutputsSkipWhenFull(t *testing.T) {
	out := &chanOutput{ch: make(chan *output.Block, 1)}
	mock := &util.MockWriteAPI{}
	e := newTestEngine(t, device.NewSilence(device.FreeRunning(), device.WithBlockLimit(3)),
		WithOutputs(out), WithInfluxDB(mock))

	require.NoError(t, e.Start(context.Background()))
	require.Len(t, out.ch, 1)
	blk := <-out.ch
	assert.Equal(t, 1, blk.Seq)
	assert.Equal(t, 48000, blk.SampleRate)
	assert.Len(t, blk.Left, 256)

	require.Eventually(t, func() bool {
		skipped := 0
		for _, p := range mock.Points() {
			if p.Name() != "sdrcore.output" {
				continue
			}
			for _, f := range p.FieldList() {
				if f.Key == "skipped_outputs" && fmt.Sprint(f.Value) == "1" {
					skipped++
				}
			}
		}
		return skipped == 2
	}, time.Second, time.Millisecond)
}

func TestEngineFinishedCommand(t *testing.T) {
	e := newTestEngine(t, device.NewSilence(device.FreeRunning()))
	done := make(chan error, 1)
	go func() { done <- e.Start(context.Background()) }()

	require.Eventually(t, func() bool { return e.Workspace().Tick() > 0 }, time.Second, time.Millisecond)
	require.Equal(t, 0, e.Workspace().Update("setFinished").Status)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("engine did not stop")
	}
}

func TestEngineRunsReporters(t *testing.T) {
	var seen *Workspace
	started := make(chan struct{}, 1)
	e := newTestEngine(t, device.NewSilence(device.FreeRunning(), device.WithBlockLimit(1)),
		WithReporters(func(ws *Workspace) []Runner {
			seen = ws
			return []Runner{runnerFunc(func(ctx context.Context) error {
				started <- struct{}{}
				<-ctx.Done()
				return ctx.Err()
			})}
		}))
	assert.Same(t, e.Workspace(), seen)
	require.NoError(t, e.Start(context.Background()))
	assert.Len(t, started, 1)
}

type runnerFunc func(ctx context.Context) error

func (f runnerFunc) Start(ctx context.Context) error { return f(ctx) }
