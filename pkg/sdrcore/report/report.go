// Package report ships meter and spectrum snapshots to sinks when the
// workspace posts them.
package report

import (
	"context"
	"time"

	"github.com/norasector/sdrcore/pkg/dsp/meter"
	"github.com/norasector/sdrcore/pkg/sdrcore"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Source is the part of the workspace a reporter reads.
type Source interface {
	Update(line string) sdrcore.Response
	MeterReport() meter.Report
	SpectrumReport() sdrcore.SpectrumReport
}

type MeterSink interface {
	WriteMeter(rep meter.Report) error
}

type SpectrumSink interface {
	WriteSpectrum(rep sdrcore.SpectrumReport) error
}

type options struct {
	interval time.Duration
	logger   zerolog.Logger
}

type Option func(o *options)

// WithInterval makes the reporter request a snapshot itself every d.
func WithInterval(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func buildOptions(opts []Option) options {
	o := options{logger: log.Logger}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// run waits on signal, and on the optional ticker, which issues request
// quietly. Every signal calls deliver.
func run(ctx context.Context, o options, src Source, signal <-chan struct{}, request string, deliver func()) error {
	var tick <-chan time.Time
	if o.interval > 0 {
		t := time.NewTicker(o.interval)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
			if resp := src.Update("-" + request); resp.Status != 0 {
				o.logger.Warn().Str("request", request).Str("text", resp.Text).Msg("periodic request failed")
			}
		case <-signal:
			deliver()
		}
	}
}

// MeterReporter copies each posted meter snapshot out to its sinks.
type MeterReporter struct {
	src    Source
	signal <-chan struct{}
	sinks  []MeterSink
	opts   options
}

func NewMeterReporter(src Source, signal <-chan struct{}, sinks []MeterSink, opts ...Option) *MeterReporter {
	return &MeterReporter{src: src, signal: signal, sinks: sinks, opts: buildOptions(opts)}
}

func (m *MeterReporter) Start(ctx context.Context) error {
	return run(ctx, m.opts, m.src, m.signal, "reqMeter", func() {
		rep := m.src.MeterReport()
		for _, sink := range m.sinks {
			if err := sink.WriteMeter(rep); err != nil {
				m.opts.logger.Warn().Err(err).Int("label", rep.Label).Msg("meter sink failed")
			}
		}
	})
}

// SpectrumReporter computes each posted spectrum snapshot and hands it to
// its sinks.
type SpectrumReporter struct {
	src    Source
	signal <-chan struct{}
	sinks  []SpectrumSink
	opts   options
}

func NewSpectrumReporter(src Source, signal <-chan struct{}, sinks []SpectrumSink, opts ...Option) *SpectrumReporter {
	return &SpectrumReporter{src: src, signal: signal, sinks: sinks, opts: buildOptions(opts)}
}

func (s *SpectrumReporter) Start(ctx context.Context) error {
	return run(ctx, s.opts, s.src, s.signal, "reqSpectrum", func() {
		rep := s.src.SpectrumReport()
		for _, sink := range s.sinks {
			if err := sink.WriteSpectrum(rep); err != nil {
				s.opts.logger.Warn().Err(err).Int("label", rep.Label).Msg("spectrum sink failed")
			}
		}
	})
}
