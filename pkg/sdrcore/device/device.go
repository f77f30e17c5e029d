// Package device supplies stereo I/Q blocks to the engine.
package device

import (
	"context"
	"time"
)

// BlockFunc receives one block. left carries Q and right carries I. The
// slices are reused for the next block.
type BlockFunc func(left, right []float32) error

type Device interface {
	Start(ctx context.Context, blockSize int, sampleRate int, fn BlockFunc) error
	Stop() error
	SampleRate() int
}

// BlockPeriod is how long one block lasts at sampleRate.
func BlockPeriod(blockSize, sampleRate int) time.Duration {
	return time.Duration(blockSize) * time.Second / time.Duration(sampleRate)
}

// Silence produces zero blocks, paced in real time unless told otherwise.
type Silence struct {
	realtime bool
	limit    int
	stop     chan struct{}
}

type SilenceOption func(s *Silence)

// FreeRunning produces blocks as fast as the consumer takes them.
func FreeRunning() SilenceOption {
	return func(s *Silence) { s.realtime = false }
}

// WithBlockLimit stops after n blocks.
func WithBlockLimit(n int) SilenceOption {
	return func(s *Silence) { s.limit = n }
}

func NewSilence(opts ...SilenceOption) *Silence {
	s := &Silence{realtime: true, stop: make(chan struct{})}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Silence) Start(ctx context.Context, blockSize int, sampleRate int, fn BlockFunc) error {
	left, right := make([]float32, blockSize), make([]float32, blockSize)
	var tick <-chan time.Time
	if s.realtime {
		t := time.NewTicker(BlockPeriod(blockSize, sampleRate))
		defer t.Stop()
		tick = t.C
	}
	for n := 0; s.limit == 0 || n < s.limit; n++ {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.stop:
				return nil
			case <-tick:
			}
		} else {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.stop:
				return nil
			default:
			}
		}
		clear(left)
		clear(right)
		if err := fn(left, right); err != nil {
			return err
		}
	}
	return nil
}

func (s *Silence) Stop() error {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	return nil
}

// SampleRate is zero: silence runs at whatever rate it is asked for.
func (s *Silence) SampleRate() int { return 0 }
