package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
	"gopkg.in/natefinch/lumberjack.v2"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/norasector/sdrcore/pkg/dsp/viz"
	"github.com/norasector/sdrcore/pkg/sdrcore"
	"github.com/norasector/sdrcore/pkg/sdrcore/config"
	"github.com/norasector/sdrcore/pkg/sdrcore/device"
	"github.com/norasector/sdrcore/pkg/sdrcore/device/file"
	"github.com/norasector/sdrcore/pkg/sdrcore/output"
	"github.com/norasector/sdrcore/pkg/sdrcore/report"
	"github.com/norasector/sdrcore/pkg/util"
	"golang.org/x/sync/errgroup"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel)
	configFile := flag.StringP("config", "c", "", "YAML config file")
	flag.Parse()

	opts := config.Default()
	if *configFile != "" {
		var err error
		if opts, err = config.Load(*configFile); err != nil {
			log.Fatal().Err(err).Msg("error reading config file")
		}
	}
	if err := opts.ApplyEnv(os.LookupEnv); err != nil {
		log.Fatal().Err(err).Msg("error applying environment")
	}
	if err := opts.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	setupLogging(opts)

	params, err := opts.Params()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	var dev device.Device
	switch opts.Device.Type {
	case "file":
		log.Info().Str("device", "file").Str("path", opts.Device.File).Msg("initializing device...")
		dev, err = file.NewDevice(opts.Device.File,
			file.WithLoop(opts.Device.Loop),
			file.WithRealtime(opts.Device.Realtime),
			file.WithLogger(log.Logger))
		if err != nil {
			log.Fatal().Str("device", "file").Err(err).Msg("failed to open file device")
		}
	default:
		log.Info().Str("device", "silence").Msg("initializing device...")
		var silenceOpts []device.SilenceOption
		if !opts.Device.Realtime {
			silenceOpts = append(silenceOpts, device.FreeRunning())
		}
		dev = device.NewSilence(silenceOpts...)
	}

	var writeAPI api.WriteAPI = &util.MockWriteAPI{}
	if opts.InfluxDB.Host != "" {
		client := influxdb2.NewClient(opts.InfluxDB.Host, opts.InfluxDB.Token)
		defer client.Close()
		writeAPI = client.WriteAPI(opts.InfluxDB.Organization, opts.InfluxDB.Bucket)
	}

	var engine *sdrcore.Engine

	var vizServer *viz.Server
	if opts.VizServer.Port > 0 {
		vizServer = viz.NewServer(opts.VizServer.Port, opts.VizServer.UpdateInterval,
			viz.WithServerLogger(log.Logger),
			viz.WithCommands(func(line string) (int, string) {
				resp := engine.Workspace().Update(line)
				return resp.Status, resp.Text
			}),
			viz.WithMeter(func() interface{} {
				return engine.Workspace().MeterReport()
			}))
	}

	var outputs []output.AudioOutput
	for _, o := range opts.Outputs {
		switch o.Type {
		case "wav":
			outputs = append(outputs, output.NewWAVOutput(o.Path, int(params.SampleRate)))
		case "opus":
			out, err := output.NewOpusUDPOutput(o.Host, o.Port, int(params.SampleRate),
				output.WithOpusMetrics(writeAPI),
				output.WithOpusLogger(log.Logger))
			if err != nil {
				log.Fatal().Err(err).Str("host", o.Host).Int("port", o.Port).Msg("failed to create opus output")
			}
			outputs = append(outputs, out)
		}
	}

	engineOpts := []sdrcore.EngineOption{
		sdrcore.WithInfluxDB(writeAPI),
		sdrcore.WithLogger(log.Logger),
		sdrcore.WithOutputs(outputs...),
		sdrcore.WithReporters(func(ws *sdrcore.Workspace) []sdrcore.Runner {
			return reporters(opts, ws, writeAPI, vizServer)
		}),
	}
	if vizServer != nil {
		engineOpts = append(engineOpts, sdrcore.WithImageServer(vizServer))
	}

	engine, err = sdrcore.NewEngine(dev,
		sdrcore.Options{
			Params:       params,
			MetricsEvery: opts.MetricsEvery,
			ParmPort:     opts.Ports.Parm,
			CommandsFile: opts.CommandsFile,
		}, engineOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create engine")
	}

	eg, ctx := errgroup.WithContext(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	eg.Go(func() error {
		select {
		case <-sigChan:
		case <-ctx.Done():
		}
		return engine.Stop()
	})

	eg.Go(func() error {
		err := engine.Start(ctx)
		if err == nil {
			// finished: unblock the signal goroutine
			err = context.Canceled
		}
		return err
	})

	if err := eg.Wait(); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("exited program")
	}
}

func setupLogging(opts config.Config) {
	level, err := zerolog.ParseLevel(opts.Log.Level)
	if err != nil {
		log.Fatal().Err(err).Str("level", opts.Log.Level).Msg("bad log level")
	}
	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	if opts.Log.File != "" {
		w = zerolog.MultiLevelWriter(w, &lumberjack.Logger{
			Filename:   opts.Log.File,
			MaxSize:    opts.Log.MaxSizeMB,
			MaxBackups: opts.Log.MaxBackups,
			MaxAge:     opts.Log.MaxAgeDays,
			Compress:   opts.Log.Compress,
		})
	}
	log.Logger = zerolog.New(w).With().Timestamp().Str("name", opts.Name).Logger().Level(level)
}

func reporters(opts config.Config, ws *sdrcore.Workspace, writeAPI api.WriteAPI, vizServer *viz.Server) []sdrcore.Runner {
	meterSinks := []report.MeterSink{report.NewInfluxSink(opts.Name, writeAPI)}
	specSinks := []report.SpectrumSink{report.NewInfluxSink(opts.Name, writeAPI)}

	if opts.Ports.Meter > 0 {
		sink, err := report.NewUDPSink(opts.Name, fmt.Sprintf("%s:%d", opts.Reports.Host, opts.Ports.Meter))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open meter port")
		}
		meterSinks = append(meterSinks, sink)
	}
	if opts.Ports.Spec > 0 {
		sink, err := report.NewUDPSink(opts.Name, fmt.Sprintf("%s:%d", opts.Reports.Host, opts.Ports.Spec))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open spectrum port")
		}
		specSinks = append(specSinks, sink)
	}
	if vizServer != nil {
		specSinks = append(specSinks, report.NewVizSink(vizServer, opts.SampleRate, opts.SpectrumSize))
	}

	return []sdrcore.Runner{
		report.NewMeterReporter(ws, ws.MeterSignal, meterSinks,
			report.WithInterval(opts.Reports.MeterInterval),
			report.WithLogger(log.Logger)),
		report.NewSpectrumReporter(ws, ws.SpectrumSignal, specSinks,
			report.WithInterval(opts.Reports.SpectrumInterval),
			report.WithLogger(log.Logger)),
	}
}
