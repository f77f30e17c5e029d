package sdrcore

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/norasector/sdrcore/pkg/dsp/buffer"
	"github.com/norasector/sdrcore/pkg/dsp/mixer"
	"github.com/norasector/sdrcore/pkg/util"
)

// RunState picks what the workspace does with each block.
type RunState int

const (
	RunMute RunState = iota
	RunPass
	RunPlay
	RunSwitch
	RunTest

	numRunStates
)

var runStateNames = [numRunStates]string{"MUTE", "PASS", "PLAY", "SWCH", "TEST"}

func (s RunState) String() string {
	if s < 0 || s >= numRunStates {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return runStateNames[s]
}

// Default transmit/receive switch envelope in ms.
const (
	defaultSwitchFallMs   = 5.0
	defaultSwitchSteadyMs = 0.0
	defaultSwitchRiseMs   = 5.0
)

type switchPhase int

const (
	switchFall switchPhase = iota
	switchSteady
	switchRise
)

type envelopeSegment struct {
	size int
	incr float64
}

func newSegment(ms, sampleRate float64, sign float64) envelopeSegment {
	size := int(sampleRate*ms/1e3 + 0.5)
	if sign == 0 {
		return envelopeSegment{size: size}
	}
	incr := sign
	if size > 1 {
		incr = sign / float64(size-1)
	}
	return envelopeSegment{size: size, incr: incr}
}

// switchEnvelope fades the output down, holds it muted, flips direction and
// fades back up.
type switchEnvelope struct {
	fall, steady, rise envelopeSegment

	phase switchPhase
	count int
	val   float64

	next TRX
	last RunState
}

// startSwitch arms the envelope and moves the workspace into RunSwitch. A
// switch started while another is running returns to the original state.
func (w *Workspace) startSwitch(next TRX, fallMs, steadyMs, riseMs float64) {
	last := w.state
	if w.state == RunSwitch {
		last = w.swch.last
	}
	rate := w.params.SampleRate
	w.swch = switchEnvelope{
		fall:   newSegment(fallMs, rate, -1),
		steady: newSegment(steadyMs, rate, 0),
		rise:   newSegment(riseMs, rate, 1),
		phase:  switchFall,
		val:    1,
		next:   next,
		last:   last,
	}
	w.state = RunSwitch
}

func (w *Workspace) runSwitch(left, right []float32, metrics map[string]interface{}) error {
	err := w.processSamples(left, right, metrics)
	s := &w.swch
	for i := range left {
		switch s.phase {
		case switchFall:
			s.val += s.fall.incr
			g := float32(math.Sin(s.val * math.Pi / 2))
			left[i] *= g
			right[i] *= g
			if s.count++; s.count >= s.fall.size {
				s.phase, s.count, s.val = switchSteady, 0, 0
			}
		case switchSteady:
			left[i], right[i] = 0, 0
			if s.count++; s.count >= s.steady.size {
				s.phase, s.count, s.val = switchRise, 0, 0
			}
		case switchRise:
			s.val += s.rise.incr
			g := float32(math.Sin(s.val * math.Pi / 2))
			left[i] *= g
			right[i] *= g
			if s.count++; s.count >= s.rise.size {
				w.trx = s.next
				w.state = s.last
				return err
			}
		}
	}
	return err
}

// TestMode is the signal the test generator feeds the chain.
type TestMode int

const (
	TestTone TestMode = iota
	TestTwoTone
	TestChirp
	TestNoise
)

const (
	defaultTestToneHz = 1000.0
	defaultTwoToneAHz = 700.0
	defaultTwoToneBHz = 1900.0
	defaultTestAmp    = 0.5
)

// testTone feeds the receivers a complex tone and the transmitter's mic
// channel a real one at the same frequency.
type testTone struct {
	osc *mixer.Oscillator
	mic *mixer.Oscillator
	amp float64
}

func newTestTone(hz float64, size int, sampleRate float64) testTone {
	return testTone{
		osc: mixer.NewComplexOscillator(buffer.NewComplex(size), hz, 0, sampleRate),
		mic: mixer.NewRealOscillator(buffer.NewReal(size), hz, 0, sampleRate),
		amp: defaultTestAmp,
	}
}

func (t testTone) next(n int) []complex64 {
	t.osc.Complex().SetFilled(n)
	t.osc.Advance()
	return t.osc.Complex().Samples()
}

func (t testTone) nextReal(n int) []float32 {
	t.mic.Real().SetFilled(n)
	t.mic.Advance()
	return t.mic.Real().Samples()
}

type testGenerator struct {
	mode     TestMode
	thru     bool
	tone     testTone
	a, b     testTone
	noiseAmp float64
	rng      *rand.Rand
}

func newTestGenerator(size int, sampleRate float64) testGenerator {
	return testGenerator{
		tone:     newTestTone(defaultTestToneHz, size, sampleRate),
		a:        newTestTone(defaultTwoToneAHz, size, sampleRate),
		b:        newTestTone(defaultTwoToneBHz, size, sampleRate),
		noiseAmp: defaultTestAmp,
		rng:      rand.New(rand.NewSource(1)),
	}
}

// generate overwrites left and right with the test signal. Chirp is not
// generated and produces silence. On transmit the single tone goes to the
// mic channel only.
func (g *testGenerator) generate(left, right []float32, trx TRX) {
	n := len(left)
	switch g.mode {
	case TestTone:
		if trx == TX {
			x := g.tone.nextReal(n)
			amp := float32(g.tone.amp)
			for i, v := range x {
				left[i] = v * amp
			}
			clear(right)
			return
		}
		x := g.tone.next(n)
		amp := float32(g.tone.amp)
		for i, v := range x {
			left[i], right[i] = real(v)*amp, imag(v)*amp
		}
	case TestTwoTone:
		xa, xb := g.a.next(n), g.b.next(n)
		ampA, ampB := float32(g.a.amp), float32(g.b.amp)
		for i := range left {
			left[i] = real(xa[i])*ampA + real(xb[i])*ampB
			right[i] = imag(xa[i])*ampA + imag(xb[i])*ampB
		}
	case TestNoise:
		for i := range left {
			left[i] = float32((g.rng.Float64()*0.5 - 1) * g.noiseAmp)
			right[i] = float32((g.rng.Float64()*0.5 - 1) * g.noiseAmp)
		}
	default:
		clear(left)
		clear(right)
	}
}

func (w *Workspace) runTest(left, right []float32, metrics map[string]interface{}) error {
	w.test.generate(left, right, w.trx)
	if w.test.thru {
		return nil
	}
	return w.processSamples(left, right, metrics)
}

func setToneLevel(t *testTone, hz, db float64) {
	t.osc.SetFrequency(hz)
	t.mic.SetFrequency(hz)
	t.amp = util.DBToLinear(db)
}
