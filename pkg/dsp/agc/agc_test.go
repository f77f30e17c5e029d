package agc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func constant(n int, v complex64) []complex64 {
	ret := make([]complex64, n)
	for i := range ret {
		ret[i] = v
	}
	return ret
}

func TestGainStaysClamped(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := ReceiveConfig()
		cfg.Bottom = rapid.Float64Range(1e-5, 1).Draw(t, "bottom")
		cfg.Top = cfg.Bottom * rapid.Float64Range(1, 1e5).Draw(t, "span")
		cfg.AttackMs = rapid.Float64Range(0.1, 20).Draw(t, "attack")
		cfg.DecayMs = rapid.Float64Range(1, 2000).Draw(t, "decay")
		cfg.HangMs = rapid.Float64Range(0, 100).Draw(t, "hang")

		a, err := New(cfg, 64, 8000)
		require.NoError(t, err)

		amps := rapid.SliceOfN(rapid.Float32Range(0, 10), 1, 512).Draw(t, "amps")
		x := make([]complex64, len(amps))
		for i, amp := range amps {
			x[i] = complex(amp, -amp/2)
		}
		a.Process(x)

		g := a.Gains()
		if g.Now < cfg.Bottom || g.Now > cfg.Top {
			t.Fatalf("now %g outside [%g, %g]", g.Now, cfg.Bottom, cfg.Top)
		}
		if g.FastNow < cfg.Bottom || g.FastNow > cfg.Top {
			t.Fatalf("fastnow %g outside [%g, %g]", g.FastNow, cfg.Bottom, cfg.Top)
		}
		for i, v := range x {
			limit := float64(cmplxAbs(v))
			if limit > cfg.Top*11.2+1e-3 {
				t.Fatalf("sample %d magnitude %g exceeds top gain", i, limit)
			}
		}
	})
}

func cmplxAbs(v complex64) float64 {
	return math.Hypot(float64(real(v)), float64(imag(v)))
}

func TestPerSampleStepBounded(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a, err := New(ReceiveConfig(), 256, 48000)
		require.NoError(t, err)
		s := a.Settings()
		amps := rapid.SliceOfN(rapid.Float32Range(1e-4, 2), 1, 400).Draw(t, "amps")

		for i, amp := range amps {
			before := a.Gains()
			a.Process([]complex64{complex(amp, 0)})
			after := a.Gains()
			if after.Now < before.Now*(1-s.Attack)-1e-9 {
				t.Fatalf("sample %d: fell from %g to %g faster than attack %g", i, before.Now, after.Now, s.Attack)
			}
			if after.Now > before.Now+s.Decay*(before.Top-before.Now)+1e-9 {
				t.Fatalf("sample %d: rose from %g to %g faster than decay %g", i, before.Now, after.Now, s.Decay)
			}
		}
	})
}

func TestHangHoldsGain(t *testing.T) {
	const rate = 8000
	a, err := New(ReceiveConfig(), 256, rate)
	require.NoError(t, err)

	a.Process(constant(200, 1))
	held := a.Now()
	assert.InDelta(t, 1/1.1, held, 1e-3)

	hangSamples := int(rate * 0.5)
	for i := 0; i <= hangSamples; i++ {
		a.Process([]complex64{0.001})
		require.Equal(t, held, a.Now(), "gain moved during hang at sample %d", i)
	}

	a.Process(constant(100, 0.001))
	assert.Greater(t, a.Now(), held)
}

func TestStepAttack(t *testing.T) {
	const rate = 48000
	cfg := ReceiveConfig()
	cfg.Current = 900
	a, err := New(cfg, 512, rate)
	require.NoError(t, err)
	s := a.Settings()
	target := cfg.Limit / cfg.MagnitudeScale

	a.Process([]complex64{1})
	assert.Greater(t, a.Now(), 800.0, "gain collapsed on the first loud sample")

	a.Process(constant(95, 1))
	want := target + (900-target)*math.Pow(1-s.Attack, 96)
	assert.InDelta(t, want, a.Now(), 1)
	assert.InDelta(t, 900*math.Exp(-1), a.Now(), 5)

	a.Process(constant(48000/20, 1))
	assert.InDelta(t, target, a.Now(), target*0.01)
}

func TestSteadyOutputFollowsFastTrack(t *testing.T) {
	cfg := ReceiveConfig()
	cfg.Current = 10
	a, err := New(cfg, 512, 48000)
	require.NoError(t, err)

	x := constant(48000, 0.5)
	a.Process(x)
	for _, v := range x[len(x)-100:] {
		assert.InDelta(t, 1/1.2, real(v), 1e-3)
	}
}

func TestMagnitudeScaleConfigurable(t *testing.T) {
	cfg := ReceiveConfig()
	cfg.MagnitudeScale = 2
	cfg.FastMagnitudeScale = 2
	a, err := New(cfg, 512, 48000)
	require.NoError(t, err)

	x := constant(48000, 0.5)
	a.Process(x)
	assert.InDelta(t, 0.5, real(x[len(x)-1]), 1e-3)
}

func TestOffUsesFixedGain(t *testing.T) {
	a, err := New(ReceiveConfig(), 64, 48000)
	require.NoError(t, err)
	require.NoError(t, a.Preset(Off))
	a.SetFix(3)

	x := []complex64{1, complex(0, 2)}
	a.Process(x)
	assert.Equal(t, []complex64{3, complex(0, 6)}, x)
}

func TestPresets(t *testing.T) {
	tests := []struct {
		mode Mode
		hang float64
	}{
		{Long, 0.75},
		{Slow, 0.5},
		{Med, 0.25},
		{Fast, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			a, err := New(ReceiveConfig(), 256, 48000)
			require.NoError(t, err)
			require.NoError(t, a.Preset(tt.mode))
			s := a.Settings()
			assert.Equal(t, tt.mode, a.Mode())
			assert.Equal(t, tt.hang, s.HangTime)
			assert.InDelta(t, 1-math.Exp(-1000/(2*48000.0)), s.Attack, 1e-12)
		})
	}

	a, err := New(ReceiveConfig(), 256, 48000)
	require.NoError(t, err)
	assert.Error(t, a.Preset(Mode(9)))
}

func TestSettersValidate(t *testing.T) {
	a, err := New(ReceiveConfig(), 256, 48000)
	require.NoError(t, err)
	before := a.Settings()

	assert.Error(t, a.SetAttack(0))
	assert.Error(t, a.SetDecay(-1))
	assert.Error(t, a.SetHang(-1))
	assert.Error(t, a.SetTop(a.Gains().Bottom/2))
	assert.Equal(t, before, a.Settings())

	require.NoError(t, a.SetCompression(20))
	assert.InDelta(t, 10, a.Gains().Top, 1e-9)
}

func TestNewRejectsBadShape(t *testing.T) {
	_, err := New(ReceiveConfig(), 100, 48000)
	assert.Error(t, err)
	_, err = New(ReceiveConfig(), 128, 0)
	assert.Error(t, err)
}
