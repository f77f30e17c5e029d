package dynamics

import (
	"fmt"
	"math"
)

// Compander scales each sample by a magnitude transfer curve. fac < 0
// compresses, fac > 0 expands, zero is linear.
type Compander struct {
	npts int
	tbl  []float64
	fac  float64
}

func NewCompander(npts int, fac float64) (*Compander, error) {
	if npts < 2 {
		return nil, fmt.Errorf("compander needs at least 2 points, got %d", npts)
	}
	c := &Compander{
		npts: npts,
		tbl:  make([]float64, npts+1),
	}
	c.SetFactor(fac)
	return c, nil
}

// SetFactor rebuilds the curve. The table runs from 0 at zero magnitude to 1
// at full scale.
func (c *Compander) SetFactor(fac float64) {
	n := float64(c.npts)
	if fac == 0 {
		for i := range c.tbl {
			c.tbl[i] = float64(i) / n
		}
	} else {
		del := fac / n
		scl := 1 - math.Exp(fac)
		for i := range c.tbl {
			c.tbl[i] = (1 - math.Exp(float64(i)*del)) / scl
		}
	}
	c.fac = fac
}

func (c *Compander) Factor() float64 { return c.fac }

// lookup returns the gain for magnitude x.
func (c *Compander) lookup(x float64) float64 {
	if x <= 0 {
		return 0
	}
	xn := x * float64(c.npts)
	i := int(xn)
	var y float64
	if i < c.npts {
		d := xn - float64(i)
		y = c.tbl[i] + d*(c.tbl[i+1]-c.tbl[i])
	} else {
		y = c.tbl[c.npts]
	}
	return y / x
}

func (c *Compander) Process(x []complex64) {
	for i, v := range x {
		m := math.Hypot(float64(real(v)), float64(imag(v)))
		x[i] = v * complex(float32(c.lookup(m)), 0)
	}
}
