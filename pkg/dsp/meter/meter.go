// Package meter holds the live receive and transmit level readings and the
// snapshot handed to reporters.
package meter

import (
	"fmt"
	"math"

	"github.com/norasector/sdrcore/pkg/dsp/cxops"
	"github.com/norasector/sdrcore/pkg/util"
)

const MaxRX = 4

type RXPoint int

const (
	SignalStrength RXPoint = iota
	AvgSignalStrength
	ADCReal
	ADCImag
	AGCGain
	RXPoints
)

var rxNames = [RXPoints]string{"signal_strength", "avg_signal_strength", "adc_real", "adc_imag", "agc_gain"}

func (p RXPoint) String() string {
	if p >= 0 && p < RXPoints {
		return rxNames[p]
	}
	return fmt.Sprintf("rx_point(%d)", int(p))
}

type TXPoint int

const (
	Mic TXPoint = iota
	Power
	ALC
	EQTap
	Leveler
	Comp
	Compander
	ALCGain
	LevelerGain
	Waveshaper
	TXPoints
)

var txNames = [TXPoints]string{"mic", "pwr", "alc", "eqtap", "leveler", "comp", "cpdr", "alc_g", "lvl_g", "wavs"}

func (p TXPoint) String() string {
	if p >= 0 && p < TXPoints {
		return txNames[p]
	}
	return fmt.Sprintf("tx_point(%d)", int(p))
}

// Side says which half of the block a snapshot holds.
type Side int

const (
	SideRX Side = iota
	SideTX
)

func (s Side) String() string {
	if s == SideTX {
		return "tx"
	}
	return "rx"
}

// Report is a copied-out snapshot.
type Report struct {
	Label int
	Side  Side
	RX    [MaxRX][RXPoints]float64
	TX    [TXPoints]float64
}

type Block struct {
	rx     [MaxRX][RXPoints]float64
	tx     [TXPoints]float64
	txMode TXPoint

	sav [TXPoints]float64

	snap Report
}

func New() *Block {
	b := &Block{txMode: Mic}
	for k := range b.rx {
		for p := range b.rx[k] {
			b.rx[k][p] = -util.Kinda
		}
	}
	for p := range b.tx {
		b.tx[p] = -util.Kinda
	}
	return b
}

// SetTXMode picks which transmit level point is metered.
func (b *Block) SetTXMode(p TXPoint) error {
	if p < 0 || p >= TXPoints {
		return fmt.Errorf("unknown tx meter point %d", p)
	}
	b.txMode = p
	return nil
}

func (b *Block) TXMode() TXPoint { return b.txMode }

// RXPreConv records the ADC peaks of receiver k ahead of any correction.
func (b *Block) RXPreConv(k int, x []complex64, ops cxops.Backend) {
	re, im := ops.Peaks(x)
	b.rx[k][ADCReal] = util.DBP(re)
	b.rx[k][ADCImag] = util.DBP(im)
}

// RXPostFilter records the in-band power of receiver k and returns the mean
// power per sample.
func (b *Block) RXPostFilter(k int, x []complex64, ops cxops.Backend) float64 {
	if len(x) == 0 {
		return 0
	}
	sum := ops.SumSquares(x)
	b.rx[k][SignalStrength] = util.Log10P(sum)
	b.rx[k][AvgSignalStrength] = util.DamPlus(b.rx[k][AvgSignalStrength], b.rx[k][SignalStrength])
	return sum / float64(len(x))
}

// RXPostAGC records the AGC gain of receiver k.
func (b *Block) RXPostAGC(k int, gain float64) {
	b.rx[k][AGCGain] = util.DBP(gain)
}

// TXLevel meters the real part of x at point p when p is the selected mode.
func (b *Block) TXLevel(p TXPoint, x []complex64) {
	if p != b.txMode {
		return
	}
	sav := b.sav[p]
	for _, v := range x {
		sav = util.DamPlus(sav, math.Abs(float64(real(v))))
	}
	b.sav[p] = sav
	b.tx[p] = util.Log10Q(sav)
}

// TXLevelerGain records the leveler gain alongside the leveler level.
func (b *Block) TXLevelerGain(gain float64) {
	if b.txMode != Leveler {
		return
	}
	b.tx[LevelerGain] = util.DBP(gain)
}

// TXPower records mean output power. It is metered in every mode.
func (b *Block) TXPower(x []complex64, ops cxops.Backend) {
	if len(x) == 0 {
		return
	}
	b.tx[Power] = ops.SumSquares(x) / float64(len(x))
}

func (b *Block) RX(k int, p RXPoint) float64 { return b.rx[k][p] }
func (b *Block) TX(p TXPoint) float64        { return b.tx[p] }

// Snapshot copies the live readings for side into the report and tags it.
func (b *Block) Snapshot(label int, side Side) {
	if side == SideTX {
		b.snap.TX = b.tx
	} else {
		b.snap.RX = b.rx
	}
	b.snap.Label = label
	b.snap.Side = side
}

// Report returns a copy of the last snapshot.
func (b *Block) Report() Report { return b.snap }
