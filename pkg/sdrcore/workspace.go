// Package sdrcore is the receive/transmit signal processing core. A Workspace
// owns the receivers, the transmitter and the telemetry blocks, runs one
// stereo block at a time, and is reconfigured through text commands.
package sdrcore

import (
	"fmt"
	"os"
	"sync"

	"github.com/norasector/sdrcore/pkg/dsp/cxops"
	"github.com/norasector/sdrcore/pkg/dsp/filters/ovsv"
	"github.com/norasector/sdrcore/pkg/dsp/meter"
	"github.com/norasector/sdrcore/pkg/dsp/spectrum"
	"github.com/norasector/sdrcore/pkg/dsp/viz"
	"github.com/norasector/sdrcore/pkg/util"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MaxRX is the number of receivers in a workspace.
const MaxRX = meter.MaxRX

const minBlockSize = 64

type Params struct {
	SampleRate      float64
	BlockSize       int
	SpectrumSize    int
	CompanderPoints int
	Mode            Mode
	Backend         cxops.Backend
	FilterCacheSize int
	ReplayPath      string

	AGCMagnitudeScale     float64
	AGCFastMagnitudeScale float64
}

func DefaultParams() Params {
	return Params{
		SampleRate:      48000,
		BlockSize:       2048,
		SpectrumSize:    4096,
		CompanderPoints: 128,
		Mode:            USB,
		Backend:         cxops.Scalar,
		FilterCacheSize: 32,
	}
}

func (p Params) Validate() error {
	if p.SampleRate <= 0 {
		return fmt.Errorf("%w: %f", ErrSampleRate, p.SampleRate)
	}
	if !util.IsPowerOfTwo(p.BlockSize) || p.BlockSize < minBlockSize {
		return fmt.Errorf("%w: %d", ErrBlockSize, p.BlockSize)
	}
	if !util.IsPowerOfTwo(p.SpectrumSize) {
		return fmt.Errorf("spectrum size %d is not a power of two", p.SpectrumSize)
	}
	if p.CompanderPoints < 2 {
		return fmt.Errorf("compander needs at least 2 points, got %d", p.CompanderPoints)
	}
	if !p.Mode.valid() {
		return fmt.Errorf("mode %d out of range", p.Mode)
	}
	return nil
}

// dspState is everything a buffer length change throws away.
type dspState struct {
	rx     [MaxRX]*Receiver
	active [MaxRX]bool
	listen int
	tx     *Transmitter
	trx    TRX

	state RunState
	swch  switchEnvelope
	test  testGenerator

	spec  *spectrum.Block
	meter *meter.Block

	tick int
}

// Response is the outcome of one command line. Status is 0 on success and a
// negative code otherwise.
type Response struct {
	Status int
	Text   string
}

type Workspace struct {
	mu sync.Mutex
	*dspState

	params   Params
	ops      cxops.Backend
	profiles *ovsv.ProfileCache
	commands map[string]command
	logger   zerolog.Logger
	viz      *viz.Server
	finished func()

	replay     []string
	replayFile *os.File

	// MeterSignal and SpectrumSignal are posted, without blocking, after a
	// meter or spectrum snapshot is taken.
	MeterSignal    chan struct{}
	SpectrumSignal chan struct{}
}

type WorkspaceOption func(w *Workspace)

func WithWorkspaceLogger(logger zerolog.Logger) WorkspaceOption {
	return func(w *Workspace) { w.logger = logger }
}

// WithVizServer registers per-stage spectrum views of every chain.
func WithVizServer(s *viz.Server) WorkspaceOption {
	return func(w *Workspace) { w.viz = s }
}

// WithFinished is called by the setFinished command.
func WithFinished(f func()) WorkspaceOption {
	return func(w *Workspace) { w.finished = f }
}

func NewWorkspace(params Params, opts ...WorkspaceOption) (*Workspace, error) {
	if params.Backend == nil {
		params.Backend = cxops.Scalar
	}
	if params.FilterCacheSize <= 0 {
		params.FilterCacheSize = 32
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	profiles, err := ovsv.NewProfileCache(params.FilterCacheSize)
	if err != nil {
		return nil, err
	}
	w := &Workspace{
		params:         params,
		ops:            params.Backend,
		profiles:       profiles,
		commands:       newCommandTable(),
		logger:         log.Logger,
		MeterSignal:    make(chan struct{}, 1),
		SpectrumSignal: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.dspState, err = w.build(params); err != nil {
		return nil, err
	}
	if params.ReplayPath != "" {
		if w.replayFile, err = os.OpenFile(params.ReplayPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err != nil {
			return nil, fmt.Errorf("opening replay log: %w", err)
		}
	}
	w.logger.Info().
		Float64("sample_rate", params.SampleRate).
		Int("block_size", params.BlockSize).
		Str("mode", params.Mode.String()).
		Str("backend", w.ops.Name()).
		Msg("workspace ready")
	return w, nil
}

func (w *Workspace) build(p Params) (*dspState, error) {
	spec, err := spectrum.New(p.SpectrumSize)
	if err != nil {
		return nil, err
	}
	st := &dspState{
		state: RunPlay,
		spec:  spec,
		meter: meter.New(),
		test:  newTestGenerator(p.BlockSize, p.SampleRate),
	}
	env := channelEnv{
		params:   p,
		ops:      w.ops,
		meter:    st.meter,
		spec:     st.spec,
		profiles: w.profiles,
		viz:      w.viz,
	}
	for k := range st.rx {
		if st.rx[k], err = newReceiver(k, env); err != nil {
			return nil, err
		}
	}
	if st.tx, err = newTransmitter(env); err != nil {
		return nil, err
	}
	st.active[0] = true
	return st, nil
}

// rebuild replaces all signal state for a new block size and replays the
// saved commands against it.
func (w *Workspace) rebuild(blockSize int) error {
	p := w.params
	p.BlockSize = blockSize
	if err := p.Validate(); err != nil {
		return err
	}
	st, err := w.build(p)
	if err != nil {
		return err
	}
	old := w.dspState
	w.params, w.dspState = p, st
	for _, r := range old.rx {
		r.release()
	}
	old.tx.release()

	for _, line := range w.replay {
		if resp := w.update(line, true); resp.Status != 0 {
			w.logger.Warn().Str("line", line).Int("status", resp.Status).Msg("replay failed")
		}
	}
	w.logger.Info().Int("block_size", blockSize).Int("replayed", len(w.replay)).Msg("workspace rebuilt")
	return nil
}

func (w *Workspace) Params() Params {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.params
}

// ProcessBlock runs one stereo block in place according to the run state.
// Blocks shorter than the block size are zero-padded through the chain.
func (w *Workspace) ProcessBlock(left, right []float32, metrics map[string]interface{}) error {
	if len(left) != len(right) {
		return fmt.Errorf("channel lengths differ: %d and %d", len(left), len(right))
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(left) > w.params.BlockSize {
		return fmt.Errorf("%w: block of %d exceeds %d", ErrBlockSize, len(left), w.params.BlockSize)
	}

	switch w.state {
	case RunMute:
		clear(left)
		clear(right)
		w.tick++
	case RunPass:
		w.tick++
	case RunPlay:
		return w.processSamples(left, right, metrics)
	case RunSwitch:
		return w.runSwitch(left, right, metrics)
	case RunTest:
		return w.runTest(left, right, metrics)
	}
	return nil
}

func (w *Workspace) processSamples(left, right []float32, metrics map[string]interface{}) error {
	n := len(left)
	defer func() { w.tick++ }()

	if w.trx == TX {
		w.tx.load(left, right)
		if err := runChain(metrics, "tx", w.tx.process); err != nil {
			return err
		}
		out := w.tx.out.Samples()
		for i := 0; i < n; i++ {
			left[i], right[i] = imag(out[i]), real(out[i])
		}
		return nil
	}

	for k, r := range w.rx {
		if w.active[k] {
			r.load(left, right)
		}
	}
	clear(left)
	clear(right)
	for k, r := range w.rx {
		if !w.active[k] {
			continue
		}
		if err := runChain(metrics, fmt.Sprintf("rx%d", k), r.process); err != nil {
			return err
		}
		out := r.out.Samples()
		for i := 0; i < n; i++ {
			left[i] += imag(out[i])
			right[i] += real(out[i])
		}
	}
	return nil
}

// runChain runs one chain and files its stage timings under prefix.
func runChain(metrics map[string]interface{}, prefix string, process func(map[string]interface{}) error) error {
	if metrics == nil {
		return process(nil)
	}
	m := make(map[string]interface{})
	err := process(m)
	for k, v := range m {
		metrics[prefix+"."+k] = v
	}
	return err
}

func (w *Workspace) postMeter()    { post(w.MeterSignal) }
func (w *Workspace) postSpectrum() { post(w.SpectrumSignal) }

func post(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// MeterReport copies out the last meter snapshot.
func (w *Workspace) MeterReport() meter.Report {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.meter.Report()
}

// SpectrumReport is a copied-out spectrum or scope snapshot.
type SpectrumReport struct {
	Label      int
	Stamp      int
	Last       spectrum.Last
	SampleRate float64
	Bins       []float32
	Scope      []float32
}

// SpectrumReport transforms the last spectrum snapshot, or copies the last
// scope trace, and returns a copy.
func (w *Workspace) SpectrumReport() SpectrumReport {
	w.mu.Lock()
	defer w.mu.Unlock()
	rep := SpectrumReport{
		Label:      w.spec.Label(),
		Stamp:      w.spec.Stamp(),
		Last:       w.spec.Last(),
		SampleRate: w.params.SampleRate,
	}
	if rep.Last == spectrum.LastTime {
		rep.Scope = append([]float32(nil), w.spec.Scope()...)
		return rep
	}
	w.spec.Compute()
	rep.Bins = append([]float32(nil), w.spec.Output()...)
	return rep
}

// Tick is the number of blocks processed so far.
func (w *Workspace) Tick() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tick
}

// Close flushes and closes the replay log.
func (w *Workspace) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.replayFile == nil {
		return nil
	}
	err := w.replayFile.Close()
	w.replayFile = nil
	return err
}
