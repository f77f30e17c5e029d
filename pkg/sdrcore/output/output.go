// Package output delivers processed stereo audio to sinks.
package output

import (
	"context"
	"time"
)

// Block is one processed stereo block. Outputs must not modify it.
type Block struct {
	Seq        int
	SampleRate int
	Left       []float32
	Right      []float32
	Time       time.Time
}

// AudioOutput handles processed blocks.
type AudioOutput interface {
	// Start runs until ctx is done or the output fails.
	Start(ctx context.Context) error
	// Receive is where the engine offers blocks. The engine never waits on it.
	Receive() chan<- *Block
}

const receiveBlocks = 8
