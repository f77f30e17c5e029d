package mixer

import (
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpotToneEnvelope(t *testing.T) {
	s := NewSpotTone(-6, 700, 5, 5, 512, 48000)

	assert.False(t, s.Generate(512), "tone starts silent")

	s.On()
	assert.True(t, s.Generate(512))
	out := s.Output().Samples()
	assert.Less(t, cmplx.Abs(complex128(out[0])), 0.01)
	peak := 0.0
	for _, v := range out[300:] {
		peak = max(peak, cmplx.Abs(complex128(v)))
	}
	assert.InDelta(t, 0.501, peak, 0.01)

	s.Off()
	still := s.Generate(128)
	assert.True(t, still)
	for i := 0; i < 4; i++ {
		still = s.Generate(128)
	}
	assert.False(t, still)
	for _, v := range s.Output().Samples() {
		assert.Equal(t, complex64(0), v)
	}
}
