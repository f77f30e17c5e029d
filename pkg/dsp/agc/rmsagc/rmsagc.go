// Package rmsagc follows the root-mean-squared level of a stream.
package rmsagc

import (
	"math"
)

// RMSAGC is a one-pole mean-square tracker. Gain scales the level it reports.
type RMSAGC struct {
	alpha   float64
	beta    float64
	gain    float64
	average float64
}

func NewRMSAGC(alpha float64, k float64) *RMSAGC {
	return &RMSAGC{
		alpha:   alpha,
		beta:    1 - alpha,
		average: 1.0,
		gain:    k,
	}
}

// Envelope feeds one sample and returns the scaled RMS level.
func (r *RMSAGC) Envelope(x float64) float64 {
	r.average = r.beta*r.average + r.alpha*x*x
	return r.gain * math.Sqrt(r.average)
}

// Level returns the scaled RMS level without feeding a sample.
func (r *RMSAGC) Level() float64 {
	return r.gain * math.Sqrt(r.average)
}

// Reset restarts the tracker at level.
func (r *RMSAGC) Reset(level float64) {
	r.average = level * level
}
