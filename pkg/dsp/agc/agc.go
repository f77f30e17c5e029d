// Package agc is the dual time-constant gain controller used for receive AGC
// and the transmit leveler. A slow track follows the signal with attack, decay
// and hang, and a fast track running a few milliseconds ahead of the output
// catches transients before they reach it.
package agc

import (
	"fmt"
	"math"

	"github.com/norasector/sdrcore/pkg/util"
)

type Mode int

const (
	Off Mode = iota
	Long
	Slow
	Med
	Fast
)

func (m Mode) String() string {
	switch m {
	case Off:
		return "off"
	case Long:
		return "long"
	case Slow:
		return "slow"
	case Med:
		return "med"
	case Fast:
		return "fast"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

const (
	// FastLead is how many samples the fast track reads behind the write index.
	FastLead = 72

	fastAttackMs = 0.2
	fastDecayMs  = 3.0
	fastHangSecs = 0.048
)

type Config struct {
	Limit    float64 `yaml:"limit"`
	AttackMs float64 `yaml:"attack_ms"`
	DecayMs  float64 `yaml:"decay_ms"`
	Slope    float64 `yaml:"slope"`
	HangMs   float64 `yaml:"hang_ms"`
	Top      float64 `yaml:"top"`
	Bottom   float64 `yaml:"bottom"`
	Current  float64 `yaml:"current"`

	MagnitudeScale     float64 `yaml:"magnitude_scale"`
	FastMagnitudeScale float64 `yaml:"fast_magnitude_scale"`
}

// ReceiveConfig is the receive AGC at power up.
func ReceiveConfig() Config {
	return Config{
		Limit:              1.0,
		AttackMs:           2,
		DecayMs:            500,
		Slope:              1,
		HangMs:             500,
		Top:                31622.8,
		Bottom:             0.00001,
		Current:            1,
		MagnitudeScale:     1.1,
		FastMagnitudeScale: 1.2,
	}
}

// LevelerConfig is the transmit leveler at power up.
func LevelerConfig() Config {
	c := ReceiveConfig()
	c.Limit = 1.1
	c.Top = 5.62
	c.Bottom = 1
	return c
}

// Gains is the gain state of an AGC.
type Gains struct {
	Now, FastNow, Raw, Old  float64
	Fix, Top, Bottom, Limit float64
}

type AGC struct {
	mode       Mode
	sampleRate float64
	gain       Gains

	attack, oneMinusAttack         float64
	decay, oneMinusDecay           float64
	fastAttack, oneMinusFastAttack float64
	fastDecay, oneMinusFastDecay   float64

	slope        float64
	hangTime     float64
	fastHangTime float64
	hangThresh   float64
	hangIndex    int
	fastHang     int

	magScale     float64
	fastMagScale float64

	circ     []complex64
	mask     int
	indx     int
	sndx     int
	fastIndx int
}

// timeConstant returns the one-pole coefficient and its complement for a
// time constant of ms milliseconds.
func timeConstant(ms, sampleRate float64) (float64, float64) {
	e := math.Exp(-1000.0 / (ms * sampleRate))
	return 1 - e, e
}

// New builds an AGC whose history holds two blocks of blockSize.
func New(cfg Config, blockSize int, sampleRate float64) (*AGC, error) {
	if !util.IsPowerOfTwo(blockSize) {
		return nil, fmt.Errorf("agc block size %d is not a power of two", blockSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("agc sample rate %f", sampleRate)
	}
	if cfg.AttackMs <= 0 || cfg.DecayMs <= 0 {
		return nil, fmt.Errorf("agc time constants must be positive: attack %f decay %f", cfg.AttackMs, cfg.DecayMs)
	}
	if cfg.Bottom > cfg.Top {
		return nil, fmt.Errorf("agc bottom %f above top %f", cfg.Bottom, cfg.Top)
	}
	if cfg.MagnitudeScale <= 0 {
		cfg.MagnitudeScale = 1.1
	}
	if cfg.FastMagnitudeScale <= 0 {
		cfg.FastMagnitudeScale = 1.2
	}

	a := &AGC{
		mode:         Long,
		sampleRate:   sampleRate,
		slope:        cfg.Slope,
		hangTime:     cfg.HangMs * 0.001,
		fastHangTime: fastHangSecs,
		magScale:     cfg.MagnitudeScale,
		fastMagScale: cfg.FastMagnitudeScale,
		circ:         make([]complex64, 2*blockSize),
		mask:         2*blockSize - 1,
	}
	a.gain = Gains{
		Now:     cfg.Current,
		FastNow: cfg.Current,
		Old:     cfg.Current,
		Fix:     10,
		Top:     cfg.Top,
		Bottom:  cfg.Bottom,
		Limit:   cfg.Limit,
	}
	a.hangThresh = cfg.Bottom
	a.attack, a.oneMinusAttack = timeConstant(cfg.AttackMs, sampleRate)
	a.decay, a.oneMinusDecay = timeConstant(cfg.DecayMs, sampleRate)
	a.fastAttack, a.oneMinusFastAttack = timeConstant(fastAttackMs, sampleRate)
	a.fastDecay, a.oneMinusFastDecay = timeConstant(fastDecayMs, sampleRate)
	a.sndx = int(sampleRate*cfg.AttackMs*0.003) & a.mask
	a.fastIndx = FastLead & a.mask
	return a, nil
}

// Process applies the gain to x in place.
func (a *AGC) Process(x []complex64) {
	if a.mode == Off {
		fix := complex(float32(a.gain.Fix), 0)
		for i := range x {
			x[i] *= fix
		}
		return
	}

	hangTime := int(a.sampleRate * a.hangTime)
	fastHangTime := int(a.sampleRate * a.fastHangTime)
	var hangThresh float64
	if a.hangThresh > 0 {
		hangThresh = a.gain.Top*a.hangThresh + a.gain.Bottom*(1-a.hangThresh)
	}

	g := &a.gain
	for i, v := range x {
		a.circ[a.indx] = v

		tmp := a.magScale * mag(v)
		if tmp != 0 {
			tmp = g.Limit / tmp
		} else {
			tmp = g.Now
		}
		if tmp < hangThresh {
			a.hangIndex = hangTime
		}
		if tmp >= g.Now {
			g.Raw = a.oneMinusDecay*g.Now + a.decay*tmp
			if a.hangIndex > hangTime {
				g.Now = a.oneMinusDecay*g.Now + a.decay*math.Min(g.Top, tmp)
			}
			a.hangIndex++
		} else {
			a.hangIndex = 0
			g.Raw = a.oneMinusAttack*g.Now + a.attack*tmp
			g.Now = a.oneMinusAttack*g.Now + a.attack*math.Max(tmp, g.Bottom)
		}

		tmp = a.fastMagScale * mag(a.circ[a.fastIndx])
		if tmp != 0 {
			tmp = g.Limit / tmp
		} else {
			tmp = g.FastNow
		}
		if tmp > g.FastNow {
			if a.fastHang > fastHangTime {
				g.FastNow = math.Min(a.oneMinusFastDecay*g.FastNow+a.fastDecay*math.Min(g.Top, tmp), g.Top)
			}
			a.fastHang++
		} else {
			a.fastHang = 0
			g.FastNow = math.Max(a.oneMinusFastAttack*g.FastNow+a.fastAttack*math.Max(tmp, g.Bottom), g.Bottom)
		}

		g.FastNow = clamp(g.FastNow, g.Bottom, g.Top)
		g.Now = clamp(g.Now, g.Bottom, g.Top)

		scale := math.Min(g.FastNow, math.Min(a.slope*g.Now, g.Top))
		x[i] = a.circ[a.sndx] * complex(float32(scale), 0)

		a.indx = (a.indx + a.mask) & a.mask
		a.sndx = (a.sndx + a.mask) & a.mask
		a.fastIndx = (a.fastIndx + a.mask) & a.mask
	}
}

func mag(v complex64) float64 {
	return math.Hypot(float64(real(v)), float64(imag(v)))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(math.Min(v, hi), lo)
}
