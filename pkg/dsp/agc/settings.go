package agc

import (
	"fmt"
	"math"
)

// Preset switches to one of the canned receive modes. Each preset restarts the
// history indices, sets a 2 ms attack, and picks hang and decay by speed.
func (a *AGC) Preset(mode Mode) error {
	var hang, decay, oneMinusDecay float64
	switch mode {
	case Off:
		a.mode = Off
		return nil
	case Long:
		hang = 0.75
		decay = 1 - math.Exp(-0.5/a.sampleRate)
	case Slow:
		hang = 0.5
		decay = 1 - math.Exp(-1000/(500*a.sampleRate))
	case Med:
		hang = 0.25
		decay = 1 - math.Exp(-1000/(250*a.sampleRate))
	case Fast:
		hang = 0.1
		decay = 1 - math.Exp(-1000/(100*a.sampleRate))
	default:
		return fmt.Errorf("unknown agc mode %d", mode)
	}
	oneMinusDecay = 1 - decay

	a.mode = mode
	a.attack = 1 - math.Exp(-1000/(2*a.sampleRate))
	a.oneMinusAttack = 1 - a.attack
	a.restartIndices(a.sampleRate * 0.006)
	a.hangTime = hang
	a.fastHangTime = 0.1
	a.decay, a.oneMinusDecay = decay, oneMinusDecay
	return nil
}

func (a *AGC) restartIndices(delay float64) {
	a.hangIndex = 0
	a.indx = 0
	a.sndx = int(delay) & a.mask
	a.fastIndx = FastLead & a.mask
}

// SetAttack sets the main attack in ms and re-seats the output delay to
// three attack constants.
func (a *AGC) SetAttack(ms float64) error {
	if ms <= 0 {
		return fmt.Errorf("attack %f ms", ms)
	}
	if a.mode == Off {
		a.mode = Long
	}
	a.attack, a.oneMinusAttack = timeConstant(ms, a.sampleRate)
	a.restartIndices(a.sampleRate * ms * 0.003)
	a.fastHangTime = 0.1
	return nil
}

// SetLevelerAttack sets the attack in ms without disturbing the write index.
// The output delay follows the new attack and the fast track leads it by
// FastLead samples.
func (a *AGC) SetLevelerAttack(ms float64) error {
	if ms <= 0 {
		return fmt.Errorf("attack %f ms", ms)
	}
	a.attack, a.oneMinusAttack = timeConstant(ms, a.sampleRate)
	a.sndx = (a.indx + int(0.003*a.sampleRate*ms)) & a.mask
	a.fastIndx = (a.sndx + FastLead*a.mask) & a.mask
	a.fastHangTime = 0.1
	return nil
}

func (a *AGC) SetDecay(ms float64) error {
	if ms <= 0 {
		return fmt.Errorf("decay %f ms", ms)
	}
	a.decay, a.oneMinusDecay = timeConstant(ms, a.sampleRate)
	return nil
}

func (a *AGC) SetHang(ms float64) error {
	if ms < 0 {
		return fmt.Errorf("hang %f ms", ms)
	}
	a.hangTime = ms * 0.001
	return nil
}

// SetSlope sets the linear multiplier applied to the main track.
func (a *AGC) SetSlope(slope float64) { a.slope = slope }

// SetHangThreshold takes a fraction of the way from bottom to top.
func (a *AGC) SetHangThreshold(frac float64) { a.hangThresh = frac }

func (a *AGC) SetTop(top float64) error {
	if top < a.gain.Bottom {
		return fmt.Errorf("top %f below bottom %f", top, a.gain.Bottom)
	}
	a.gain.Top = top
	return nil
}

func (a *AGC) SetBottom(bottom float64) error {
	if bottom > a.gain.Top {
		return fmt.Errorf("bottom %f above top %f", bottom, a.gain.Top)
	}
	a.gain.Bottom = bottom
	return nil
}

// SetCompression sets top from a gain in dB.
func (a *AGC) SetCompression(db float64) error {
	return a.SetTop(math.Pow(10, db*0.05))
}

// SetFix sets the gain used in mode Off.
func (a *AGC) SetFix(fix float64) { a.gain.Fix = fix }

// SetCurrent forces the running gain.
func (a *AGC) SetCurrent(g float64) { a.gain.Now = g }

func (a *AGC) Mode() Mode     { return a.mode }
func (a *AGC) Gains() Gains   { return a.gain }
func (a *AGC) Now() float64   { return a.gain.Now }
func (a *AGC) Slope() float64 { return a.slope }

// Settings reports the time constants as stored: fractions for the one-pole
// coefficients and seconds for the hang times.
type Settings struct {
	Attack, Decay, FastAttack, FastDecay float64
	FastHangTime, HangThresh, HangTime   float64
	Slope                                float64
}

func (a *AGC) Settings() Settings {
	return Settings{
		Attack:       a.attack,
		Decay:        a.decay,
		FastAttack:   a.fastAttack,
		FastDecay:    a.fastDecay,
		FastHangTime: a.fastHangTime,
		HangThresh:   a.hangThresh,
		HangTime:     a.hangTime,
		Slope:        a.slope,
	}
}
