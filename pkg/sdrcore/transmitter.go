package sdrcore

import (
	"github.com/norasector/sdrcore/pkg/dsp/agc"
	"github.com/norasector/sdrcore/pkg/dsp/buffer"
	"github.com/norasector/sdrcore/pkg/dsp/cxops"
	"github.com/norasector/sdrcore/pkg/dsp/dynamics"
	"github.com/norasector/sdrcore/pkg/dsp/filters/eq"
	"github.com/norasector/sdrcore/pkg/dsp/filters/ovsv"
	"github.com/norasector/sdrcore/pkg/dsp/iqcorrect"
	"github.com/norasector/sdrcore/pkg/dsp/meter"
	"github.com/norasector/sdrcore/pkg/dsp/mixer"
	"github.com/norasector/sdrcore/pkg/dsp/processor"
	"github.com/norasector/sdrcore/pkg/dsp/spectrum"
	"github.com/norasector/sdrcore/pkg/util"
)

const (
	defaultTXLow         = 300.0
	defaultTXHigh        = 3000.0
	defaultTXSquelch     = -40.0
	defaultCarrierLevel  = 0.5
	defaultSpeechCompDB  = 3.0
	defaultTXCompandFac  = -3.0
	txSquelchPowerOffset = -30.0
)

type Transmitter struct {
	size int
	rate float64
	ops  cxops.Backend
	env  channelEnv

	work    *buffer.Complex
	in, out *buffer.Complex

	iq     *iqcorrect.Corrector
	osc    *mixer.Oscillator
	filt   *ovsv.Filter
	lo, hi float64

	wvs   *dynamics.Waveshaper
	wvsOn bool
	dcb   *dynamics.DCBlocker
	dcbOn bool

	leveler   *agc.AGC
	levelerOn bool
	eq        *eq.Graphic
	eqOn      bool
	spr       *dynamics.SpeechProcessor
	sprOn     bool
	cpd       *dynamics.Compander
	cpdOn     bool

	squelch squelch
	carrier float64
	fmCvt   float64
	fmPhase float64

	gainIn, gainOut float64

	mode Mode
	mod  modulator
	tick int

	chain *processor.Processor
}

func newTransmitter(env channelEnv) (*Transmitter, error) {
	p := env.params
	n := p.BlockSize
	t := &Transmitter{
		size:      n,
		rate:      p.SampleRate,
		ops:       env.ops,
		env:       env,
		work:      buffer.NewComplex(2 * n),
		iq:        iqcorrect.New(false),
		osc:       mixer.NewComplexOscillator(buffer.NewComplex(n), 0, 0, p.SampleRate),
		wvs:       dynamics.NewWaveshaper(),
		dcb:       dynamics.NewDCBlocker(),
		levelerOn: true,
		spr:       dynamics.NewSpeechProcessor(defaultSpeechCompDB),
		squelch:   newSquelch(defaultTXSquelch, n),
		carrier:   defaultCarrierLevel,
		fmCvt:     fmModulationScale(p.SampleRate),
		gainIn:    1,
		gainOut:   1,
	}
	t.in = buffer.ViewComplex(t.work, 0, n)
	t.out = buffer.ViewComplex(t.work, n, n)
	t.setMode(p.Mode)

	var err error
	prof, err := env.designFilter(defaultTXLow, defaultTXHigh)
	if err != nil {
		return nil, err
	}
	if t.filt, err = ovsv.New(n, prof); err != nil {
		return nil, err
	}
	t.lo, t.hi = defaultTXLow, defaultTXHigh

	if t.leveler, err = agc.New(agc.LevelerConfig(), n, p.SampleRate); err != nil {
		return nil, err
	}
	if t.eq, err = eq.NewGraphic(n, p.SampleRate); err != nil {
		return nil, err
	}
	if t.cpd, err = dynamics.NewCompander(p.CompanderPoints, defaultTXCompandFac); err != nil {
		return nil, err
	}

	t.chain = t.buildChain()
	if err := t.chain.Initialize(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Transmitter) outSamples() []complex64 { return t.out.Samples() }

func (t *Transmitter) buildChain() *processor.Processor {
	c := processor.NewProcessor("tx", "mic", int(t.rate), t.env.viz)
	post := processor.On(t.outSamples)
	meters := t.env.meter
	open := func() bool { return !t.squelch.set }
	voice := func() bool { return !t.squelch.set && !t.mode.digital() }

	c.AddStage(processor.NewStage("gain_in", "Input gain", func(x []complex64) {
		t.ops.Scale(x, float32(t.gainIn))
	}, processor.When(func() bool { return t.gainIn != 1 })))
	c.AddStage(processor.NewStage("mic", "Microphone", func(x []complex64) {
		for i, v := range x {
			x[i] = complex(imag(v), 0)
		}
	}))
	c.AddStage(processor.NewStage("waveshape", "Waveshaper", t.wvs.Process,
		processor.When(func() bool { return t.wvsOn })))
	c.AddStage(processor.NewStage("meter_wavs", "Waveshaper meter", func(x []complex64) {
		meters.TXLevel(meter.Waveshaper, x)
	}))
	c.AddStage(processor.NewStage("dc_block", "DC block", t.dcb.Process,
		processor.When(func() bool { return t.dcbOn })))
	c.AddStage(processor.NewStage("meter_mic", "Mic meter", func(x []complex64) {
		meters.TXLevel(meter.Mic, x)
	}))
	c.AddStage(processor.NewStage("squelch", "Squelch", func(x []complex64) {
		t.squelch.set = t.squelch.on &&
			txSquelchPowerOffset+util.Log10P(t.ops.SumAbsReal(x)) < t.squelch.thresh
		if t.squelch.set {
			t.squelch.close(x)
		} else {
			t.squelch.open(x)
		}
	}))
	c.AddStage(processor.NewStage("eq", "Equalizer", t.eq.Apply,
		processor.When(func() bool { return voice() && t.eqOn })))
	c.AddStage(processor.NewStage("meter_eqtap", "EQ meter", func(x []complex64) {
		meters.TXLevel(meter.EQTap, x)
	}, processor.When(open)))
	c.AddStage(processor.NewStage("leveler", "Leveler", t.leveler.Process,
		processor.When(func() bool { return voice() && t.levelerOn }), processor.WithPlot()))
	c.AddStage(processor.NewStage("meter_leveler", "Leveler meter", func(x []complex64) {
		meters.TXLevel(meter.Leveler, x)
		meters.TXLevelerGain(t.leveler.Now())
	}, processor.When(open)))
	c.AddStage(processor.NewStage("speech", "Speech processor", t.spr.Process,
		processor.When(func() bool { return voice() && t.sprOn })))
	c.AddStage(processor.NewStage("meter_comp", "Compression meter", func(x []complex64) {
		meters.TXLevel(meter.Comp, x)
		if t.mode.digital() {
			meters.TXLevel(meter.Compander, x)
		}
	}, processor.When(open)))
	c.AddStage(processor.NewStage("modulate", "Modulator", func([]complex64) {
		t.mod.modulate(t)
	}))
	c.AddStage(processor.NewStage("filter", "Filter", func(y []complex64) {
		if t.tick == 0 {
			t.filt.Reset()
		}
		t.filt.Apply(t.in.Samples(), y)
	}, post, processor.WithPlot()))
	c.AddStage(processor.NewStage("compander", "Compander", t.cpd.Process, post,
		processor.When(func() bool { return t.cpdOn })))
	c.AddStage(processor.NewStage("tap_post_filter", "Post filter", func(y []complex64) {
		meters.TXLevel(meter.Compander, y)
		t.tap(y)
	}, post))
	c.AddStage(processor.NewStage("mix", "Upconvert", func(y []complex64) {
		t.osc.MixInto(y, t.ops)
	}, post, processor.When(func() bool { return t.osc.Frequency() != 0 })))
	c.AddStage(processor.NewStage("iq", "IQ correction", t.iq.Apply, post))
	c.AddStage(processor.NewStage("gain_out", "Output gain", func(y []complex64) {
		t.ops.Scale(y, float32(t.gainOut))
	}, post, processor.When(func() bool { return t.gainOut != 1 })))
	c.AddStage(processor.NewStage("meter_pwr", "Power meter", func(y []complex64) {
		meters.TXPower(y, t.ops)
	}, post))
	return c
}

func (t *Transmitter) tap(y []complex64) {
	spec := t.env.spec
	if spec.Type == spectrum.PreMod {
		spec.AccumulateReal(t.in.Samples(), 1)
		return
	}
	spec.Accumulate(y)
}

// load copies one stereo block in, left to the imaginary part where the mic
// stage picks it up.
func (t *Transmitter) load(left, right []float32) {
	x := t.in.Samples()
	for i := range x {
		if i < len(left) {
			x[i] = complex(right[i], left[i])
		} else {
			x[i] = 0
		}
	}
}

func (t *Transmitter) process(metrics map[string]interface{}) error {
	err := t.chain.Process(t.in.Samples(), metrics)
	t.tick++
	return err
}

func (t *Transmitter) setFilter(lo, hi float64) error {
	prof, err := t.env.designFilter(lo, hi)
	if err != nil {
		return err
	}
	if err := t.filt.SetProfile(prof); err != nil {
		return err
	}
	t.lo, t.hi = lo, hi
	return nil
}

func (t *Transmitter) setMode(m Mode) {
	t.mode = m
	t.mod = modulatorFor(m)
}

func (t *Transmitter) release() {
	t.in.Release()
	t.out.Release()
	t.work.Release()
}
