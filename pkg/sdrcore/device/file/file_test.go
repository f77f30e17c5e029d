package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeIQ(t *testing.T, frames, rate, chans int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "iq.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	data := make([]int, frames*chans)
	for k := 0; k < frames; k++ {
		data[chans*k] = 16384
		if chans == 2 {
			data[2*k+1] = -8192
		}
	}
	enc := wav.NewEncoder(f, rate, 16, chans, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: chans, SampleRate: rate},
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	return path
}

func TestPlaysFileInBlocks(t *testing.T) {
	path := writeIQ(t, 1000, 48000, 2)
	d, err := NewDevice(path, WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	defer d.Stop()
	assert.Equal(t, 48000, d.SampleRate())

	var blocks int
	var last []float32
	err = d.Start(context.Background(), 256, 48000, func(left, right []float32) error {
		blocks++
		assert.InDelta(t, 0.5, right[0], 1e-6)
		assert.InDelta(t, -0.25, left[0], 1e-6)
		last = append(last[:0], right...)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, blocks)
	assert.InDelta(t, 0.5, last[1000-3*256-1], 1e-6)
	assert.Equal(t, float32(0), last[1000-3*256])
}

func TestLoopsUntilCancelled(t *testing.T) {
	path := writeIQ(t, 300, 48000, 2)
	d, err := NewDevice(path, WithLoop(true), WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	defer d.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	blocks := 0
	err = d.Start(ctx, 128, 48000, func(left, right []float32) error {
		if blocks++; blocks == 10 {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 10, blocks)
}

func TestRejectsMono(t *testing.T) {
	path := writeIQ(t, 100, 48000, 1)
	_, err := NewDevice(path)
	assert.Error(t, err)
}
