// Package file plays a stereo WAV recording of I/Q as a device.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/norasector/sdrcore/pkg/sdrcore/device"
	"github.com/racerxdl/segdsp/dsp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	readFrames    = 4096
	resamplerTaps = 127
)

// Device reads a WAV with I in the left channel and Q in the right.
type Device struct {
	path     string
	file     *os.File
	dec      *wav.Decoder
	rate     int
	scale    float32
	loop     bool
	rewound  bool
	realtime bool
	logger   zerolog.Logger

	buf          *audio.IntBuffer
	resI, resQ   *dsp.FloatResampler
	pendI, pendQ []float32
}

type Option func(d *Device)

func WithLoop(loop bool) Option { return func(d *Device) { d.loop = loop } }

// WithRealtime paces blocks at the playback rate.
func WithRealtime(realtime bool) Option { return func(d *Device) { d.realtime = realtime } }

func WithLogger(logger zerolog.Logger) Option { return func(d *Device) { d.logger = logger } }

func NewDevice(path string, opts ...Option) (*Device, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	d := &Device{path: path, file: f, logger: log.Logger}
	for _, opt := range opts {
		opt(d)
	}
	if err := d.rewind(); err != nil {
		f.Close()
		return nil, err
	}
	if d.dec.NumChans != 2 {
		f.Close()
		return nil, fmt.Errorf("%s: want 2 channels of I/Q, got %d", path, d.dec.NumChans)
	}
	d.rate = int(d.dec.SampleRate)
	d.scale = 1 / float32(int64(1)<<(d.dec.BitDepth-1))
	d.buf = &audio.IntBuffer{
		Data:   make([]int, 2*readFrames),
		Format: &audio.Format{NumChannels: 2, SampleRate: d.rate},
	}
	return d, nil
}

func (d *Device) rewind() error {
	if _, err := d.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	d.dec = wav.NewDecoder(d.file)
	if !d.dec.IsValidFile() {
		return fmt.Errorf("%s: not a valid wav file", d.path)
	}
	return d.dec.FwdToPCM()
}

func (d *Device) SampleRate() int { return d.rate }

func (d *Device) Start(ctx context.Context, blockSize int, sampleRate int, fn device.BlockFunc) error {
	if sampleRate != d.rate {
		ratio := float32(sampleRate) / float32(d.rate)
		d.resI = dsp.MakeFloatResampler(resamplerTaps, ratio)
		d.resQ = dsp.MakeFloatResampler(resamplerTaps, ratio)
		d.logger.Info().Int("file_rate", d.rate).Int("rate", sampleRate).Msg("resampling input")
	}

	var tick <-chan time.Time
	if d.realtime {
		t := time.NewTicker(device.BlockPeriod(blockSize, sampleRate))
		defer t.Stop()
		tick = t.C
	}

	left, right := make([]float32, blockSize), make([]float32, blockSize)
	for {
		for len(d.pendI) < blockSize {
			more, err := d.read()
			if err != nil {
				return err
			}
			if !more {
				if len(d.pendI) == 0 {
					return nil
				}
				break
			}
		}

		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		n := copy(right, d.pendI)
		copy(left, d.pendQ)
		clear(right[n:])
		clear(left[n:])
		d.pendI, d.pendQ = d.pendI[n:], d.pendQ[n:]
		if err := fn(left, right); err != nil {
			return err
		}
	}
}

// read appends the next chunk to the pending samples. It reports false at
// the end of a non-looping file.
func (d *Device) read() (bool, error) {
	n, err := d.dec.PCMBuffer(d.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	if n == 0 {
		if !d.loop || d.rewound {
			return false, nil
		}
		d.rewound = true
		d.logger.Debug().Str("file", d.path).Msg("looping")
		if err := d.rewind(); err != nil {
			return false, err
		}
		return true, nil
	}

	d.rewound = false
	frames := n / 2
	i, q := make([]float32, frames), make([]float32, frames)
	for k := 0; k < frames; k++ {
		i[k] = float32(d.buf.Data[2*k]) * d.scale
		q[k] = float32(d.buf.Data[2*k+1]) * d.scale
	}
	if d.resI != nil {
		i, q = d.resI.Work(i), d.resQ.Work(q)
	}
	d.pendI = append(d.pendI, i...)
	d.pendQ = append(d.pendQ, q...)
	return true, nil
}

func (d *Device) Stop() error {
	return d.file.Close()
}
