package sdrcore

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/norasector/sdrcore/pkg/util"
)

// Mode is the operating mode of a receiver or the transmitter. The numbering
// is the one the command interface uses.
type Mode int

const (
	LSB Mode = iota
	USB
	DSB
	CWL
	CWU
	FMN
	AM
	DIGU
	SPEC
	DIGL
	SAM
	DRM

	numModes
)

var modeNames = [numModes]string{"LSB", "USB", "DSB", "CWL", "CWU", "FMN", "AM", "DIGU", "SPEC", "DIGL", "SAM", "DRM"}

func (m Mode) String() string {
	if m < 0 || m >= numModes {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeNames[m]
}

func (m Mode) valid() bool   { return m >= 0 && m < numModes }
func (m Mode) digital() bool { return m == DIGU || m == DIGL }

// ParseMode accepts a mode name in any case or its number.
func ParseMode(s string) (Mode, error) {
	if n, err := strconv.Atoi(s); err == nil {
		m := Mode(n)
		if !m.valid() {
			return 0, fmt.Errorf("mode %d out of range", n)
		}
		return m, nil
	}
	for i, name := range modeNames {
		if strings.EqualFold(name, s) {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

// TRX selects the receive or transmit side.
type TRX int

const (
	RX TRX = iota
	TX
)

func (t TRX) String() string {
	if t == TX {
		return "tx"
	}
	return "rx"
}

type demodulator interface {
	demodulate(r *Receiver)
}

type modulator interface {
	modulate(t *Transmitter)
}

func demodulatorFor(m Mode) demodulator {
	switch m {
	case LSB, USB, DSB, CWL, CWU, DIGU, DIGL:
		return sidebandDemod{}
	case AM, SAM:
		return amDemod{}
	case FMN:
		return fmDemod{}
	}
	return nullDemod{}
}

func modulatorFor(m Mode) modulator {
	switch m {
	case LSB, USB, DSB, CWL, CWU, DIGU, DIGL:
		return sidebandMod{}
	case AM, SAM:
		return amMod{}
	case FMN:
		return fmMod{}
	}
	return nullMod{}
}

type sidebandDemod struct{}

func (sidebandDemod) demodulate(r *Receiver) {
	x := r.out.Samples()
	if r.binaural {
		if r.banrOn && r.anrOn {
			r.banr.Process(x)
		}
		if r.banfOn && r.anfOn {
			r.banf.Process(x)
		}
		return
	}
	if r.anrOn {
		if r.banrOn {
			r.banr.Process(x)
		} else {
			r.anr.Process(x)
		}
	}
	r.notch(x)
	for i, v := range x {
		x[i] = complex(real(v), real(v))
	}
}

type amDemod struct{}

func (amDemod) demodulate(r *Receiver) {
	x := r.out.Samples()
	r.am.Process(x, x)
	r.notch(x)
}

type fmDemod struct{}

func (fmDemod) demodulate(r *Receiver) {
	x := r.out.Samples()
	r.fm.Process(x, x)
}

// nullDemod leaves the filtered signal as is. SPEC and DRM hand the complex
// baseband on untouched.
type nullDemod struct{}

func (nullDemod) demodulate(*Receiver) {}

type sidebandMod struct{}

func (sidebandMod) modulate(t *Transmitter) {
	if t.mode != DSB {
		t.ops.Scale(t.in.Samples(), 2)
	}
}

type amMod struct{}

func (amMod) modulate(t *Transmitter) {
	x := t.in.Samples()
	c := float32(t.carrier)
	for i, v := range x {
		x[i] = complex(c+(1-c)*real(v), 0)
	}
}

type fmMod struct{}

func (fmMod) modulate(t *Transmitter) {
	x := t.in.Samples()
	for i, v := range x {
		t.fmPhase += float64(real(v)) * t.fmCvt
		s, c := math.Sincos(t.fmPhase)
		x[i] = complex(float32(c), float32(s))
	}
	if math.Abs(t.fmPhase) > 1e6 {
		t.fmPhase = math.Mod(t.fmPhase, 2*math.Pi)
	}
}

type nullMod struct{}

func (nullMod) modulate(t *Transmitter) {
	clear(t.in.Samples())
}

// fmDeviation is the transmit FM deviation in Hz per unit of audio.
const fmDeviation = 2500.0

func fmModulationScale(sampleRate float64) float64 {
	return util.RadiansPerSample(fmDeviation, sampleRate)
}
