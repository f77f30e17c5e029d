package dynamics

import (
	"math"

	"github.com/norasector/sdrcore/pkg/dsp/agc/rmsagc"
	"github.com/norasector/sdrcore/pkg/util"
)

const (
	speechK     = 0.4
	speechAlpha = 0.002
)

// SpeechProcessor lifts quiet passages toward full scale. Gain is driven by
// the RMS envelope and never exceeds the configured maximum. Output magnitude
// is held to 1.
type SpeechProcessor struct {
	maxGain float64
	env     *rmsagc.RMSAGC
}

func NewSpeechProcessor(compressionDB float64) *SpeechProcessor {
	s := &SpeechProcessor{
		env: rmsagc.NewRMSAGC(speechAlpha, 1),
	}
	s.SetCompression(compressionDB)
	return s
}

// SetCompression sets the maximum gain in dB. Negative values are treated as 0.
func (s *SpeechProcessor) SetCompression(db float64) {
	s.maxGain = util.DBToLinear(math.Max(db, 0))
}

func (s *SpeechProcessor) MaxGain() float64 { return s.maxGain }

// Gain is the gain applied at envelope level env.
func (s *SpeechProcessor) Gain(env float64) float64 {
	return math.Min(s.maxGain, (1+speechK)/(1+speechK*env))
}

func (s *SpeechProcessor) Process(x []complex64) {
	for i, v := range x {
		m := math.Hypot(float64(real(v)), float64(imag(v)))
		g := s.Gain(s.env.Envelope(m))
		if m*g > 1 {
			g = 1 / m
		}
		x[i] = v * complex(float32(g), 0)
	}
}
