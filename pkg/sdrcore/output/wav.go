package output

import (
	"context"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const wavBitDepth = 16

// WAVOutput records blocks to a 16-bit stereo WAV file.
type WAVOutput struct {
	path       string
	sampleRate int
	recvChan   chan *Block
	logger     zerolog.Logger
}

func NewWAVOutput(path string, sampleRate int) *WAVOutput {
	return &WAVOutput{
		path:       path,
		sampleRate: sampleRate,
		recvChan:   make(chan *Block, receiveBlocks),
		logger:     log.Logger,
	}
}

func (w *WAVOutput) Receive() chan<- *Block { return w.recvChan }

func (w *WAVOutput) Start(ctx context.Context) error {
	f, err := os.Create(w.path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, w.sampleRate, wavBitDepth, 2, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: w.sampleRate},
		SourceBitDepth: wavBitDepth,
	}
	w.logger.Info().Str("path", w.path).Int("sample_rate", w.sampleRate).Msg("wav output starting")

	for {
		select {
		case <-ctx.Done():
			if err := enc.Close(); err != nil {
				return err
			}
			return ctx.Err()
		case b := <-w.recvChan:
			buf.Data = interleavePCM(buf.Data[:0], b.Left, b.Right)
			if err := enc.Write(buf); err != nil {
				return err
			}
		}
	}
}

func interleavePCM(dst []int, left, right []float32) []int {
	const full = 1<<(wavBitDepth-1) - 1
	for i := range left {
		dst = append(dst, pcm(left[i], full), pcm(right[i], full))
	}
	return dst
}

func pcm(v float32, full int) int {
	v = max(-1, min(1, v))
	return int(v * float32(full))
}
