package mixer

import (
	"math"

	"github.com/norasector/sdrcore/pkg/dsp/buffer"
)

type toneStage int

const (
	toneRise toneStage = iota
	toneSteady
	toneFall
	toneHold
)

// SpotTone is a sine with a raised-sine attack and release envelope.
type SpotTone struct {
	gainDB     float64
	frequency  float64
	riseMs     float64
	fallMs     float64
	sampleRate float64

	scale float64
	mul   float64
	curr  float64
	incr  float64
	have  int
	want  int
	stage toneStage

	osc *Oscillator
	out *buffer.Complex
}

func NewSpotTone(gainDB, frequency, riseMs, fallMs float64, size int, sampleRate float64) *SpotTone {
	s := &SpotTone{
		sampleRate: sampleRate,
		stage:      toneHold,
		out:        buffer.NewComplex(size),
	}
	s.osc = NewComplexOscillator(buffer.NewComplex(size), frequency, 0, sampleRate)
	s.SetValues(gainDB, frequency, riseMs, fallMs)
	return s
}

func (s *SpotTone) SetValues(gainDB, frequency, riseMs, fallMs float64) {
	s.gainDB = gainDB
	s.frequency = frequency
	s.riseMs = riseMs
	s.fallMs = fallMs
	s.scale = math.Pow(10, gainDB/20)
	s.osc.SetFrequency(frequency)
}

func (s *SpotTone) rampLength(ms float64) int {
	return int(0.5 + s.sampleRate*ms/1e3)
}

func (s *SpotTone) setRamp(ms float64) {
	s.want = s.rampLength(ms)
	s.have = 0
	if s.want <= 1 {
		s.incr = 1
	} else {
		s.incr = 1 / float64(s.want-1)
	}
}

// On restarts the tone from silence.
func (s *SpotTone) On() {
	s.setRamp(s.riseMs)
	s.curr = 0
	s.mul = 0
	s.osc.SetPhase(0)
	s.stage = toneRise
}

// Off starts the release from wherever the envelope is.
func (s *SpotTone) Off() {
	s.setRamp(s.fallMs)
	s.curr = min(s.curr, 1)
	s.stage = toneFall
}

// Generate fills the tone buffer with n samples and reports whether the tone
// is still audible.
func (s *SpotTone) Generate(n int) bool {
	s.osc.Complex().SetFilled(n)
	s.osc.Advance()
	src := s.osc.Complex().Samples()

	s.out.SetFilled(n)
	dst := s.out.Samples()
	for i := range dst {
		switch s.stage {
		case toneRise:
			if s.have < s.want {
				s.have++
				s.curr = min(s.curr+s.incr, 1)
				s.mul = s.scale * math.Sin(s.curr*math.Pi/2)
			} else {
				s.stage = toneSteady
				s.curr = 1
				s.mul = s.scale
			}
		case toneSteady:
			s.mul = s.scale
		case toneFall:
			if s.have < s.want {
				s.have++
				s.curr = max(s.curr-s.incr, 0)
				s.mul = s.scale * math.Sin(s.curr*math.Pi/2)
			} else {
				s.stage = toneHold
				s.curr = 0
				s.mul = 0
			}
		case toneHold:
			s.mul = 0
		}
		dst[i] = src[i] * complex(float32(s.mul), 0)
	}
	return s.stage != toneHold
}

// Output is the buffer last written by Generate.
func (s *SpotTone) Output() *buffer.Complex { return s.out }

func (s *SpotTone) Values() (gainDB, frequency, riseMs, fallMs float64) {
	return s.gainDB, s.frequency, s.riseMs, s.fallMs
}
