package noise

import "fmt"

// Output selects what an adaptive filter emits: the prediction (noise
// reduction) or the prediction error (notch).
type Output int

const (
	Predicted Output = iota
	Residual
)

const (
	lineSize = 512
	lineMask = lineSize - 1
)

type LMSConfig struct {
	Taps    int
	Delay   int
	Rate    float64
	Leakage float64
}

func DefaultLMSConfig() LMSConfig {
	return LMSConfig{Taps: 45, Delay: 64, Rate: 0.01, Leakage: 0.00001}
}

func (c LMSConfig) validate() error {
	if c.Taps <= 0 || c.Delay < 0 {
		return fmt.Errorf("lms taps %d delay %d", c.Taps, c.Delay)
	}
	if c.Taps+c.Delay >= lineSize {
		return fmt.Errorf("lms taps %d + delay %d exceed the %d sample delay line", c.Taps, c.Delay, lineSize)
	}
	return nil
}

// LMS is a normalized leaky LMS predictor working on the real part of the
// signal. The reference is the input delayed by Delay samples.
type LMS struct {
	cfg    LMSConfig
	output Output
	line   [lineSize]float64
	ptr    int
	w      []float64
}

func NewLMS(cfg LMSConfig, output Output) (*LMS, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &LMS{
		cfg:    cfg,
		output: output,
		w:      make([]float64, cfg.Taps),
	}, nil
}

// SetConfig replaces the parameters. A change of tap count clears the weights.
func (l *LMS) SetConfig(cfg LMSConfig) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	if cfg.Taps != len(l.w) {
		l.w = make([]float64, cfg.Taps)
	}
	l.cfg = cfg
	return nil
}

func (l *LMS) Config() LMSConfig { return l.cfg }

func (l *LMS) Weights() []float64 { return l.w }

func (l *LMS) Process(x []complex64) {
	scl1 := 1 - l.cfg.Rate*l.cfg.Leakage
	for i, v := range x {
		in := float64(real(v))
		l.line[l.ptr] = in

		var accum, sumSq float64
		for j := range l.w {
			d := l.line[(j+l.cfg.Delay+l.ptr)&lineMask]
			sumSq += d * d
			accum += l.w[j] * d
		}

		e := in - accum
		if l.output == Residual {
			x[i] = complex(float32(e), 0)
		} else {
			x[i] = complex(float32(accum), 0)
		}

		e *= l.cfg.Rate / (sumSq + 1e-10)
		for j := range l.w {
			d := l.line[(j+l.cfg.Delay+l.ptr)&lineMask]
			l.w[j] = l.w[j]*scl1 + e*d
		}
		l.ptr = (l.ptr + lineMask) & lineMask
	}
}
