package sdrcore

// squelchFadeGuard is how many samples at the end of a block the squelch
// fade leaves out.
const squelchFadeGuard = 48

type squelch struct {
	on      bool
	thresh  float64
	set     bool
	running bool
	num     int
}

func newSquelch(thresh float64, blockSize int) squelch {
	return squelch{thresh: thresh, num: max(blockSize-squelchFadeGuard, 1)}
}

// close fades the block out over num samples the first time and mutes it
// after that.
func (s *squelch) close(x []complex64) {
	if s.running {
		clear(x)
		return
	}
	m := min(s.num, len(x))
	for i := 0; i < m; i++ {
		x[i] *= complex(float32(1-float64(i)/float64(m)), 0)
	}
	clear(x[m:])
	s.running = true
}

// open fades the first num samples back in after a squelched block.
func (s *squelch) open(x []complex64) {
	if !s.running {
		return
	}
	m := min(s.num, len(x))
	for i := 0; i < m; i++ {
		x[i] *= complex(float32(float64(i)/float64(m)), 0)
	}
	s.running = false
}
