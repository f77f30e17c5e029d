package dynamics

import "fmt"

// Waveshaper maps the real part through a transfer table spanning [-1, 1].
// With no table it is the identity.
type Waveshaper struct {
	tbl  []float64
	npts int
}

func NewWaveshaper() *Waveshaper { return &Waveshaper{} }

// SetTable installs a transfer curve. An empty table removes the curve. The
// stored table repeats its last point so interpolation never reads past it.
func (w *Waveshaper) SetTable(tbl []float64) error {
	if len(tbl) == 0 {
		w.tbl, w.npts = nil, 0
		return nil
	}
	if len(tbl) < 2 {
		return fmt.Errorf("waveshaper table needs at least 2 points, got %d", len(tbl))
	}
	t := make([]float64, len(tbl)+1)
	copy(t, tbl)
	t[len(tbl)] = tbl[len(tbl)-1]
	w.tbl, w.npts = t, len(tbl)
	return nil
}

func (w *Waveshaper) Points() int { return w.npts }

func (w *Waveshaper) Process(x []complex64) {
	if w.tbl == nil {
		return
	}
	half := float64(w.npts / 2)
	for i, v := range x {
		in := float64(real(v))
		if in < -1 {
			in = -1
		} else if in > 1 {
			in = 1
		}
		xn := half * (in + 1)
		j := int(xn)
		var y float64
		if j >= w.npts {
			y = w.tbl[w.npts]
		} else {
			d := xn - float64(j)
			y = w.tbl[j] + d*(w.tbl[j+1]-w.tbl[j])
		}
		x[i] = complex(float32(y), imag(v))
	}
}
