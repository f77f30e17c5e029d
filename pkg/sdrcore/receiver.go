package sdrcore

import (
	"fmt"
	"math"

	"github.com/norasector/sdrcore/pkg/dsp/agc"
	"github.com/norasector/sdrcore/pkg/dsp/buffer"
	"github.com/norasector/sdrcore/pkg/dsp/cxops"
	"github.com/norasector/sdrcore/pkg/dsp/demodulators/am"
	"github.com/norasector/sdrcore/pkg/dsp/demodulators/fm"
	"github.com/norasector/sdrcore/pkg/dsp/dynamics"
	"github.com/norasector/sdrcore/pkg/dsp/filters/eq"
	"github.com/norasector/sdrcore/pkg/dsp/filters/fir"
	"github.com/norasector/sdrcore/pkg/dsp/filters/ovsv"
	"github.com/norasector/sdrcore/pkg/dsp/iqcorrect"
	"github.com/norasector/sdrcore/pkg/dsp/meter"
	"github.com/norasector/sdrcore/pkg/dsp/mixer"
	"github.com/norasector/sdrcore/pkg/dsp/noise"
	"github.com/norasector/sdrcore/pkg/dsp/processor"
	"github.com/norasector/sdrcore/pkg/dsp/spectrum"
	"github.com/norasector/sdrcore/pkg/dsp/viz"
	"github.com/norasector/sdrcore/pkg/util"
)

const (
	defaultRXLow      = -4800.0
	defaultRXHigh     = 4800.0
	defaultRXSquelch  = -150.0
	defaultSpotGainDB = -12.0
	defaultSpotHz     = 700.0
	defaultSpotRiseMs = 5.0
	defaultSpotFallMs = 5.0
	defaultPan        = 0.5
)

// channelEnv is what a receiver or the transmitter shares with the rest of
// the workspace.
type channelEnv struct {
	params   Params
	ops      cxops.Backend
	meter    *meter.Block
	spec     *spectrum.Block
	profiles *ovsv.ProfileCache
	viz      *viz.Server
}

// designFilter returns the bandpass profile for lo..hi at the channel's block
// size, designing it on a cache miss.
func (e channelEnv) designFilter(lo, hi float64) ([]complex128, error) {
	n := e.params.BlockSize
	key := ovsv.ProfileKey{Low: lo, High: hi, SampleRate: e.params.SampleRate, Taps: n + 1, FFTLen: 2 * n}
	return e.profiles.Get(key, func() ([]complex64, error) {
		return fir.ComplexBandPass(lo, hi, e.params.SampleRate, n+1, fir.BlackmanHarris)
	})
}

// checkPassband returns the status a filter command reports for lo..hi.
func checkPassband(lo, hi, sampleRate float64) int {
	switch {
	case !util.BelowNyquist(lo, sampleRate):
		return -1
	case !util.BelowNyquist(hi, sampleRate):
		return -2
	case lo+10 >= hi:
		return -3
	}
	return 0
}

type Receiver struct {
	k    int
	size int
	rate float64
	ops  cxops.Backend
	env  channelEnv

	// work holds the filter's input block followed by its output block. in
	// and out are views onto the two halves.
	work    *buffer.Complex
	in, out *buffer.Complex

	iq     *iqcorrect.Corrector
	osc    *mixer.Oscillator
	filt   *ovsv.Filter
	lo, hi float64

	agc  *agc.AGC
	eq   *eq.Graphic
	eqOn bool

	am *am.Demod
	fm *fm.Demod

	anr, anf                     *noise.LMS
	banr, banf                   *noise.BlockLMS
	anrOn, anfOn, banrOn, banfOn bool

	nb      *noise.Blanker
	nbOn    bool
	sdrom   *noise.SDROM
	sdromOn bool

	spot   *mixer.SpotTone
	spotOn bool

	squelch squelch
	cpd     *dynamics.Compander
	cpdOn   bool

	binaural        bool
	gainIn, gainOut float64
	pan             float64
	azim            complex64

	mode  Mode
	demod demodulator
	tick  int

	chain *processor.Processor
}

func newReceiver(k int, env channelEnv) (*Receiver, error) {
	p := env.params
	n := p.BlockSize
	r := &Receiver{
		k:       k,
		size:    n,
		rate:    p.SampleRate,
		ops:     env.ops,
		env:     env,
		work:    buffer.NewComplex(2 * n),
		iq:      iqcorrect.New(true),
		osc:     mixer.NewComplexOscillator(buffer.NewComplex(n), 0, 0, p.SampleRate),
		am:      am.New(p.SampleRate, am.Envelope),
		nb:      noise.NewBlanker(noise.DefaultBlankerThreshold),
		sdrom:   noise.NewSDROM(noise.DefaultSDROMThreshold),
		spot:    mixer.NewSpotTone(defaultSpotGainDB, defaultSpotHz, defaultSpotRiseMs, defaultSpotFallMs, n, p.SampleRate),
		squelch: newSquelch(defaultRXSquelch, n),
		gainIn:  1,
		gainOut: 1,
	}
	r.in = buffer.ViewComplex(r.work, 0, n)
	r.out = buffer.ViewComplex(r.work, n, n)
	r.setPan(defaultPan)
	r.setMode(p.Mode)

	var err error
	prof, err := env.designFilter(defaultRXLow, defaultRXHigh)
	if err != nil {
		return nil, err
	}
	if r.filt, err = ovsv.New(n, prof); err != nil {
		return nil, err
	}
	r.lo, r.hi = defaultRXLow, defaultRXHigh

	cfg := agc.ReceiveConfig()
	if p.AGCMagnitudeScale > 0 {
		cfg.MagnitudeScale = p.AGCMagnitudeScale
	}
	if p.AGCFastMagnitudeScale > 0 {
		cfg.FastMagnitudeScale = p.AGCFastMagnitudeScale
	}
	if r.agc, err = agc.New(cfg, n, p.SampleRate); err != nil {
		return nil, err
	}
	if r.eq, err = eq.NewGraphic(n, p.SampleRate); err != nil {
		return nil, err
	}
	if r.fm, err = fm.New(p.SampleRate, fm.DefaultConfig()); err != nil {
		return nil, err
	}
	if r.anr, err = noise.NewLMS(noise.DefaultLMSConfig(), noise.Predicted); err != nil {
		return nil, err
	}
	if r.anf, err = noise.NewLMS(noise.DefaultLMSConfig(), noise.Residual); err != nil {
		return nil, err
	}
	if r.banr, err = noise.NewBlockLMS(n, noise.DefaultBlockLMSConfig(), noise.Predicted); err != nil {
		return nil, err
	}
	if r.banf, err = noise.NewBlockLMS(n, noise.DefaultBlockLMSConfig(), noise.Residual); err != nil {
		return nil, err
	}
	if r.cpd, err = dynamics.NewCompander(p.CompanderPoints, 0); err != nil {
		return nil, err
	}

	r.chain = r.buildChain()
	if err := r.chain.Initialize(); err != nil {
		return nil, fmt.Errorf("receiver %d: %w", k, err)
	}
	return r, nil
}

func (r *Receiver) outSamples() []complex64 { return r.out.Samples() }

func (r *Receiver) buildChain() *processor.Processor {
	c := processor.NewProcessor(fmt.Sprintf("rx%d", r.k), "input", int(r.rate), r.env.viz)
	post := processor.On(r.outSamples)
	meters := r.env.meter

	c.AddStage(processor.NewStage("gain_in", "Input gain", func(x []complex64) {
		r.ops.Scale(x, float32(r.gainIn))
	}, processor.When(func() bool { return r.gainIn != 1 })))
	c.AddStage(processor.NewStage("tap_semi_raw", "Semi raw", func(x []complex64) {
		r.tap(x, spectrum.SemiRaw)
	}))
	c.AddStage(processor.NewStage("nb", "Noise blanker", r.nb.Process,
		processor.When(func() bool { return r.nbOn })))
	c.AddStage(processor.NewStage("sdrom", "SDROM blanker", r.sdrom.Process,
		processor.When(func() bool { return r.sdromOn })))
	c.AddStage(processor.NewStage("meter_pre_conv", "ADC meter", func(x []complex64) {
		meters.RXPreConv(r.k, x, r.ops)
	}))
	c.AddStage(processor.NewStage("iq", "IQ correction", r.iq.Apply,
		processor.WithPlot(), processor.ShowFFTBalance()))
	c.AddStage(processor.NewStage("mix", "Second IF", func(x []complex64) {
		r.osc.MixInto(x, r.ops)
	}, processor.When(func() bool { return r.osc.Frequency() != 0 })))
	c.AddStage(processor.NewStage("tap_pre_filter", "Pre filter", func(x []complex64) {
		r.tap(x, spectrum.PreFilter)
	}))
	c.AddStage(processor.NewStage("filter", "Filter", func(y []complex64) {
		if r.mode == SPEC {
			copy(y, r.in.Samples())
			return
		}
		if r.tick == 0 {
			r.filt.Reset()
		}
		r.filt.Apply(r.in.Samples(), y)
	}, post, processor.WithPlot(), processor.WithVizLength(r.size)))
	c.AddStage(processor.NewStage("tap_post_filter", "Post filter", func(x []complex64) {
		meters.RXPostFilter(r.k, x, r.ops)
		r.tap(x, spectrum.PostFilter)
	}, post))
	c.AddStage(processor.NewStage("compander", "Compander", r.cpd.Process, post,
		processor.When(func() bool { return r.cpdOn })))
	c.AddStage(processor.NewStage("squelch_detect", "Squelch detect", func(x []complex64) {
		r.squelch.set = r.squelch.on && util.Log10P(r.ops.SumSquares(x)) < r.squelch.thresh
	}, post))
	c.AddStage(processor.NewStage("agc", "AGC", r.agc.Process, post,
		processor.WithPlotOptions([]viz.PlotOptions{viz.WithYRange(-80, 10)})))
	c.AddStage(processor.NewStage("tap_post_agc", "Post AGC", func(x []complex64) {
		meters.RXPostAGC(r.k, r.agc.Now())
		r.tap(x, spectrum.PostAGC)
	}, post))
	c.AddStage(processor.NewStage("demod", "Demodulator", func([]complex64) {
		r.demod.demodulate(r)
	}, post, processor.WithPlot()))
	c.AddStage(processor.NewStage("squelch", "Squelch", r.squelchOrSpot, post))
	c.AddStage(processor.NewStage("eq", "Equalizer", r.eq.Apply, post,
		processor.When(func() bool { return r.eqOn })))
	c.AddStage(processor.NewStage("tap_post_det", "Post detector", func(x []complex64) {
		r.tap(x, spectrum.PostDet)
	}, post))
	c.AddStage(processor.NewStage("gain_out", "Output gain", func(x []complex64) {
		r.ops.Scale(x, float32(r.gainOut))
	}, post, processor.When(func() bool { return r.gainOut != 1 })))
	c.AddStage(processor.NewStage("pan", "Pan", func(x []complex64) {
		for i, v := range x {
			x[i] = r.azim * complex(math.Sqrt2*real(v), 0)
		}
	}, post, processor.When(func() bool { return !r.binaural })))

	return c
}

func (r *Receiver) squelchOrSpot(x []complex64) {
	if r.squelch.set {
		r.squelch.close(x)
		return
	}
	r.squelch.open(x)
	if r.spotOn {
		r.spotOn = r.spot.Generate(len(x))
		tone := r.spot.Output().Samples()
		for i := range x {
			x[i] += tone[i]
		}
	}
}

// notch runs the automatic notch if it is on, as block LMS when selected.
func (r *Receiver) notch(x []complex64) {
	if !r.anfOn {
		return
	}
	if r.banfOn {
		r.banf.Process(x)
	} else {
		r.anf.Process(x)
	}
}

func (r *Receiver) tap(x []complex64, typ spectrum.Type) {
	spec := r.env.spec
	if spec.RXK != r.k || spec.Type != typ {
		return
	}
	if typ == spectrum.PostDet && !r.binaural {
		spec.AccumulateReal(x, math.Sqrt2)
		return
	}
	spec.Accumulate(x)
}

// load copies one stereo block in, left to the imaginary part. Short blocks
// are zero-padded.
func (r *Receiver) load(left, right []float32) {
	x := r.in.Samples()
	for i := range x {
		if i < len(left) {
			x[i] = complex(right[i], left[i])
		} else {
			x[i] = 0
		}
	}
}

func (r *Receiver) process(metrics map[string]interface{}) error {
	err := r.chain.Process(r.in.Samples(), metrics)
	r.tick++
	return err
}

func (r *Receiver) setFilter(lo, hi float64) error {
	prof, err := r.env.designFilter(lo, hi)
	if err != nil {
		return err
	}
	if err := r.filt.SetProfile(prof); err != nil {
		return err
	}
	r.lo, r.hi = lo, hi
	return nil
}

func (r *Receiver) setMode(m Mode) {
	r.mode = m
	r.demod = demodulatorFor(m)
	switch m {
	case AM:
		r.am.SetMode(am.Envelope)
	case SAM:
		r.am.SetMode(am.Synchronous)
	}
}

func (r *Receiver) setPan(pos float64) {
	theta := (1 - pos) * math.Pi / 2
	r.pan = pos
	r.azim = complex(float32(math.Cos(theta)), float32(math.Sin(theta)))
}

func (r *Receiver) release() {
	r.in.Release()
	r.out.Release()
	r.work.Release()
}
