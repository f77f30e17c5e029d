package util

import (
	"sync/atomic"
	"time"
)

func TimeOperationMicroseconds(op func()) int64 {
	start := time.Now()
	op()
	return time.Since(start).Microseconds()
}

// Sampler lets one call in every n through. n <= 1 lets every call through.
type Sampler struct {
	n     uint64
	count atomic.Uint64
}

func NewSampler(n int) *Sampler {
	if n < 1 {
		n = 1
	}
	return &Sampler{n: uint64(n)}
}

func (s *Sampler) Tick() bool {
	return s.count.Add(1)%s.n == 0
}
