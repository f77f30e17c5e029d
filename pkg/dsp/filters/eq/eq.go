// Package eq is a graphic equalizer built from summed complex bandpass
// sections and run through an overlap-save filter in fixed chunks.
package eq

import (
	"fmt"
	"math"

	"github.com/norasector/sdrcore/pkg/dsp/filters/fir"
	"github.com/norasector/sdrcore/pkg/dsp/filters/ovsv"
	"github.com/norasector/sdrcore/pkg/util"
)

const maxChunk = 256

// Band is one equalizer section. A band whose Low is negative spans DC and is
// used once; any other band is mirrored onto negative frequencies.
type Band struct {
	Low, High float64
}

// ThreeBand is the low/mid/high split.
var ThreeBand = []Band{
	{Low: -400, High: 400},
	{Low: 400, High: 1500},
	{Low: 1500, High: 6000},
}

// TenBandCenters are the ISO octave centers.
var TenBandCenters = [10]float64{31.5, 63, 125, 250, 500, 1000, 2000, 4000, 8000, 16000}

// TenBand builds octave bands whose edges are the geometric means of
// neighbouring centers.
func TenBand() []Band {
	ret := make([]Band, len(TenBandCenters))
	edge := func(i int) float64 {
		return math.Sqrt(TenBandCenters[i] * TenBandCenters[i+1])
	}
	for i := range TenBandCenters {
		switch i {
		case 0:
			ret[i] = Band{Low: -edge(0), High: edge(0)}
		case len(TenBandCenters) - 1:
			ret[i] = Band{Low: edge(i - 1), High: TenBandCenters[i] * math.Sqrt2}
		default:
			ret[i] = Band{Low: edge(i - 1), High: edge(i)}
		}
	}
	return ret
}

type Graphic struct {
	sampleRate float64
	chunk      int
	taps       int
	filter     *ovsv.Filter
	preampDB   float64
	gainsDB    []float64
}

// NewGraphic returns a flat three-band equalizer for blocks of blockSize.
func NewGraphic(blockSize int, sampleRate float64) (*Graphic, error) {
	if !util.IsPowerOfTwo(blockSize) {
		return nil, fmt.Errorf("eq block size %d is not a power of two", blockSize)
	}
	chunk := min(maxChunk, blockSize)
	g := &Graphic{
		sampleRate: sampleRate,
		chunk:      chunk,
		taps:       chunk + 1,
	}
	prof, err := g.design(ThreeBand, 0, []float64{0, 0, 0})
	if err != nil {
		return nil, err
	}
	if g.filter, err = ovsv.New(chunk, prof); err != nil {
		return nil, err
	}
	g.gainsDB = []float64{0, 0, 0}
	return g, nil
}

// SetThreeBand sets the preamp and the low, mid and high gains in dB.
func (g *Graphic) SetThreeBand(preDB, lowDB, midDB, highDB float64) error {
	return g.set(ThreeBand, preDB, []float64{lowDB, midDB, highDB})
}

// SetTenBand sets the preamp and the ten octave gains in dB.
func (g *Graphic) SetTenBand(preDB float64, gainsDB [10]float64) error {
	return g.set(TenBand(), preDB, gainsDB[:])
}

func (g *Graphic) set(bands []Band, preDB float64, gainsDB []float64) error {
	prof, err := g.design(bands, preDB, gainsDB)
	if err != nil {
		return err
	}
	if err := g.filter.SetProfile(prof); err != nil {
		return err
	}
	g.preampDB = preDB
	g.gainsDB = append(g.gainsDB[:0], gainsDB...)
	return nil
}

// Gains returns the preamp and band gains last applied.
func (g *Graphic) Gains() (float64, []float64) {
	return g.preampDB, append([]float64(nil), g.gainsDB...)
}

func (g *Graphic) design(bands []Band, preDB float64, gainsDB []float64) ([]complex128, error) {
	if len(bands) != len(gainsDB) {
		return nil, fmt.Errorf("%d gains for %d bands", len(gainsDB), len(bands))
	}
	limit := 0.49 * g.sampleRate
	acc := make([]complex64, g.taps)
	add := func(lo, hi, gain float64) error {
		lo, hi = math.Max(lo, -limit), math.Min(hi, limit)
		if hi <= lo {
			return nil
		}
		bp, err := fir.ComplexBandPass(lo, hi, g.sampleRate, g.taps, fir.BlackmanHarris)
		if err != nil {
			return err
		}
		for i, t := range bp {
			acc[i] += t * complex(float32(gain), 0)
		}
		return nil
	}

	for i, b := range bands {
		gain := util.DBToLinear(gainsDB[i])
		if b.Low < 0 {
			if err := add(b.Low, b.High, gain); err != nil {
				return nil, err
			}
			continue
		}
		if err := add(b.Low, b.High, gain); err != nil {
			return nil, err
		}
		if err := add(-b.High, -b.Low, gain); err != nil {
			return nil, err
		}
	}

	pre := util.DBToLinear(preDB)
	for i := range acc {
		acc[i] *= complex(float32(pre), 0)
	}
	return ovsv.BuildProfile(acc, 2*g.chunk)
}

// Apply equalizes x in place, one chunk at a time.
func (g *Graphic) Apply(x []complex64) {
	for off := 0; off < len(x); off += g.chunk {
		end := min(off+g.chunk, len(x))
		g.filter.Apply(x[off:end], x[off:end])
	}
}

func (g *Graphic) Reset() { g.filter.Reset() }
