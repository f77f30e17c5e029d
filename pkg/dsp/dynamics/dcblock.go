// Package dynamics holds the transmit level shapers: DC blocker, waveshaper,
// speech processor and compander.
package dynamics

// DCBlocker is a one-pole highpass on the real part. The imaginary part is
// cleared.
type DCBlocker struct {
	xm1, ym1 float64
}

func NewDCBlocker() *DCBlocker { return &DCBlocker{} }

func (d *DCBlocker) Reset() { d.xm1, d.ym1 = 0, 0 }

func (d *DCBlocker) Process(x []complex64) {
	for i, v := range x {
		in := float64(real(v))
		y := in - d.xm1 + 0.995*d.ym1
		d.xm1, d.ym1 = in, y
		x[i] = complex(float32(y), 0)
	}
}
