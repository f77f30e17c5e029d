package sdrcore

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/norasector/sdrcore/pkg/dsp/viz"
	"github.com/norasector/sdrcore/pkg/sdrcore/device"
	"github.com/norasector/sdrcore/pkg/sdrcore/output"
	"github.com/norasector/sdrcore/pkg/util"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	Params Params
	// MetricsEvery samples stage timings into one sdrcore.block point every
	// n blocks.
	MetricsEvery int
	// ParmPort is the UDP command port. 0 disables the listener.
	ParmPort     int
	CommandsFile string
}

// Runner is anything the engine runs alongside the audio loop.
type Runner interface {
	Start(ctx context.Context) error
}

// Engine drives a Workspace from a device and hands its output to the
// configured outputs.
type Engine struct {
	device    device.Device
	opts      Options
	ws        *Workspace
	writeAPI  api.WriteAPI
	vizServer *viz.Server
	outputs   []output.AudioOutput
	reporters []func(ws *Workspace) []Runner
	runners   []Runner
	sampler   *util.Sampler
	logger    zerolog.Logger
	seq       int

	// Device samples waiting for a full workspace block, and processed
	// samples waiting to go back to the device.
	inL, inR   []float32
	outL, outR []float32

	mu     sync.Mutex
	cancel context.CancelFunc
}

type EngineOption func(e *Engine) error

func WithInfluxDB(writeAPI api.WriteAPI) EngineOption {
	return func(e *Engine) error {
		e.writeAPI = writeAPI
		return nil
	}
}

func WithImageServer(vizServer *viz.Server) EngineOption {
	return func(e *Engine) error {
		e.vizServer = vizServer
		return nil
	}
}

func WithLogger(logger zerolog.Logger) EngineOption {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

func WithOutputs(outputs ...output.AudioOutput) EngineOption {
	return func(e *Engine) error {
		e.outputs = append(e.outputs, outputs...)
		return nil
	}
}

// WithReporters adds runners built against the engine's workspace once it
// exists.
func WithReporters(build func(ws *Workspace) []Runner) EngineOption {
	return func(e *Engine) error {
		e.reporters = append(e.reporters, build)
		return nil
	}
}

func NewEngine(dev device.Device, options Options, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		device:   dev,
		opts:     options,
		writeAPI: &util.MockWriteAPI{}, // overwritten with option
		logger:   log.Logger,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.sampler = util.NewSampler(options.MetricsEvery)

	wsOpts := []WorkspaceOption{
		WithWorkspaceLogger(e.logger),
		WithFinished(e.finish),
	}
	if e.vizServer != nil {
		wsOpts = append(wsOpts, WithVizServer(e.vizServer))
	}
	ws, err := NewWorkspace(options.Params, wsOpts...)
	if err != nil {
		return nil, err
	}
	e.ws = ws
	for _, build := range e.reporters {
		e.runners = append(e.runners, build(ws)...)
	}
	return e, nil
}

func (e *Engine) Workspace() *Workspace { return e.ws }

func (e *Engine) finish() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logger.Info().Msg("finished by command")
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.mu.Unlock()
	if e.vizServer != nil {
		e.vizServer.Stop(context.TODO())
	}
	err := e.device.Stop()
	if cerr := e.ws.Close(); err == nil {
		err = cerr
	}
	return err
}

// Start runs until ctx is done, the device runs out, setFinished is issued or
// something fails.
func (e *Engine) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()
	defer cancel()

	if e.opts.CommandsFile != "" {
		if err := LoadCommandsFile(e.ws, e.opts.CommandsFile, e.logger); err != nil {
			return err
		}
	}

	var conn net.PacketConn
	if e.opts.ParmPort > 0 {
		var err error
		if conn, err = net.ListenPacket("udp", fmt.Sprintf(":%d", e.opts.ParmPort)); err != nil {
			return fmt.Errorf("listening for commands: %w", err)
		}
	}

	eg, ctx := errgroup.WithContext(ctx)

	p := e.ws.Params()
	eg.Go(func() error {
		defer cancel()
		return e.device.Start(ctx, p.BlockSize, int(p.SampleRate), e.process)
	})

	if conn != nil {
		eg.Go(func() error {
			return ServeCommands(ctx, conn, e.ws, e.logger)
		})
	}

	if e.vizServer != nil {
		eg.Go(func() error {
			return e.vizServer.Run(ctx)
		})
	}

	for _, r := range e.runners {
		thisRunner := r
		eg.Go(func() error {
			return thisRunner.Start(ctx)
		})
	}

	for _, out := range e.outputs {
		thisOutput := out
		eg.Go(func() error {
			return thisOutput.Start(ctx)
		})
	}

	e.logger.Info().
		Float64("sample_rate", p.SampleRate).
		Int("block_size", p.BlockSize).
		Int("parm_port", e.opts.ParmPort).
		Int("outputs", len(e.outputs)).
		Msg("starting")

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// process queues one device block, runs every full workspace block through
// the chain, and writes the oldest processed samples back in place. Device
// and workspace block sizes differ after setNewBuflen; when the workspace
// block is longer the output lags by up to one workspace block.
func (e *Engine) process(left, right []float32) error {
	var metrics map[string]interface{}
	if e.sampler.Tick() {
		metrics = make(map[string]interface{})
	}

	p := e.ws.Params()
	start := time.Now()
	e.inL = append(e.inL, left...)
	e.inR = append(e.inR, right...)
	off := 0
	for {
		bs := e.ws.Params().BlockSize
		if len(e.inL)-off < bs {
			break
		}
		l, r := e.inL[off:off+bs], e.inR[off:off+bs]
		if err := e.ws.ProcessBlock(l, r, metrics); err != nil {
			if errors.Is(err, ErrBlockSize) {
				// resized between the size read and the call
				continue
			}
			return err
		}
		e.outL = append(e.outL, l...)
		e.outR = append(e.outR, r...)
		off += bs
	}
	e.inL = e.inL[:copy(e.inL, e.inL[off:])]
	e.inR = e.inR[:copy(e.inR, e.inR[off:])]

	n := copy(left, e.outL)
	copy(right, e.outR)
	clear(left[n:])
	clear(right[n:])
	e.outL = e.outL[:copy(e.outL, e.outL[n:])]
	e.outR = e.outR[:copy(e.outR, e.outR[n:])]

	if metrics != nil {
		metrics["block_duration"] = time.Since(start).Microseconds()
		metrics["samples"] = len(left)
		go e.writeAPI.WritePoint(influxdb2.NewPoint("sdrcore.block",
			map[string]string{},
			metrics, time.Now()))
	}

	if len(e.outputs) == 0 {
		return nil
	}
	e.seq++
	blk := &output.Block{
		Seq:        e.seq,
		SampleRate: int(p.SampleRate),
		Left:       append([]float32(nil), left...),
		Right:      append([]float32(nil), right...),
		Time:       time.Now(),
	}
	skippedOutputs := 0
	for _, out := range e.outputs {
		select {
		case out.Receive() <- blk:
		default:
			skippedOutputs++
		}
	}
	go e.writeAPI.WritePoint(influxdb2.NewPoint("sdrcore.output",
		map[string]string{},
		map[string]interface{}{
			"samples_written": len(left),
			"bytes_written":   len(left) * 8,
			"skipped_outputs": skippedOutputs,
		}, time.Now()))
	return nil
}
