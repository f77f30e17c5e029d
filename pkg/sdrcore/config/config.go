// Package config loads the sdrcore YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/norasector/sdrcore/pkg/dsp/cxops"
	"github.com/norasector/sdrcore/pkg/sdrcore"
	"gopkg.in/yaml.v2"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Name            string  `yaml:"name"`
	SampleRate      float64 `yaml:"sample_rate"`
	BlockSize       int     `yaml:"block_size"`
	SpectrumSize    int     `yaml:"spectrum_size"`
	CompanderPoints int     `yaml:"compander_points"`
	Mode            string  `yaml:"mode"`
	Backend         string  `yaml:"backend"`
	FilterCache     int     `yaml:"filter_cache"`
	ReplayPath      string  `yaml:"replay_path"`
	CommandsFile    string  `yaml:"commands_file"`
	MetricsEvery    int     `yaml:"metrics_every"`

	AGC struct {
		MagnitudeScale     float64 `yaml:"magnitude_scale"`
		FastMagnitudeScale float64 `yaml:"fast_magnitude_scale"`
	} `yaml:"agc"`

	Ports struct {
		Parm  int `yaml:"parm"`
		Spec  int `yaml:"spec"`
		Meter int `yaml:"meter"`
	} `yaml:"ports"`

	Device struct {
		Type     string `yaml:"type"`
		File     string `yaml:"file"`
		Loop     bool   `yaml:"loop"`
		Realtime bool   `yaml:"realtime"`
	} `yaml:"device"`

	Outputs []Output `yaml:"outputs"`

	Reports struct {
		Host             string        `yaml:"host"`
		MeterInterval    time.Duration `yaml:"meter_interval"`
		SpectrumInterval time.Duration `yaml:"spectrum_interval"`
	} `yaml:"reports"`

	VizServer struct {
		Port           int           `yaml:"port"`
		UpdateInterval time.Duration `yaml:"update_interval_ms"`
	} `yaml:"viz_server"`

	InfluxDB struct {
		Host         string `yaml:"host"`
		Token        string `yaml:"token"`
		Organization string `yaml:"organization"`
		Bucket       string `yaml:"bucket"`
	} `yaml:"influxdb"`

	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"log"`
}

// Output is one audio sink. Type is "wav" or "opus".
type Output struct {
	Type string `yaml:"type"`
	Path string `yaml:"path"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

func Default() Config {
	var c Config
	p := sdrcore.DefaultParams()
	c.Name = "sdrcore"
	c.SampleRate = p.SampleRate
	c.BlockSize = p.BlockSize
	c.SpectrumSize = p.SpectrumSize
	c.CompanderPoints = p.CompanderPoints
	c.Mode = p.Mode.String()
	c.Backend = p.Backend.Name()
	c.FilterCache = p.FilterCacheSize
	c.MetricsEvery = 100
	c.Ports.Parm = 19001
	c.Ports.Spec = 19002
	c.Ports.Meter = 19003
	c.Device.Type = "silence"
	c.Device.Realtime = true
	c.Reports.Host = "127.0.0.1"
	c.VizServer.UpdateInterval = 500 * time.Millisecond
	c.Log.Level = "info"
	c.Log.MaxSizeMB = 32
	c.Log.MaxBackups = 1
	return c
}

// Load reads path over the defaults.
func Load(path string) (Config, error) {
	c := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("parsing %s: %w", path, err)
	}
	return c, nil
}

// ApplyEnv overrides fields from SDR_* variables. lookup is os.LookupEnv
// outside tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalid, key, v)
		}
		*dst = n
		return nil
	}

	if v, ok := lookup("SDR_DEFRATE"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: SDR_DEFRATE=%q", ErrInvalid, v)
		}
		c.SampleRate = f
	}
	str("SDR_DEFMODE", &c.Mode)
	str("SDR_REPLAYPATH", &c.ReplayPath)
	str("SDR_NAME", &c.Name)
	for key, dst := range map[string]*int{
		"SDR_DEFSIZE":   &c.BlockSize,
		"SDR_PARMPORT":  &c.Ports.Parm,
		"SDR_SPECPORT":  &c.Ports.Spec,
		"SDR_METERPORT": &c.Ports.Meter,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	return nil
}

func (c Config) Validate() error {
	if _, err := c.Params(); err != nil {
		return err
	}
	for _, port := range []int{c.Ports.Parm, c.Ports.Spec, c.Ports.Meter} {
		if port < 0 || port > 65535 {
			return fmt.Errorf("%w: port %d", ErrInvalid, port)
		}
	}
	switch c.Device.Type {
	case "silence":
	case "file":
		if c.Device.File == "" {
			return fmt.Errorf("%w: file device needs device.file", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown device %q", ErrInvalid, c.Device.Type)
	}
	for i, o := range c.Outputs {
		switch o.Type {
		case "wav":
			if o.Path == "" {
				return fmt.Errorf("%w: output %d needs a path", ErrInvalid, i)
			}
		case "opus":
			if o.Host == "" || o.Port <= 0 {
				return fmt.Errorf("%w: output %d needs host and port", ErrInvalid, i)
			}
		default:
			return fmt.Errorf("%w: output %d has unknown type %q", ErrInvalid, i, o.Type)
		}
	}
	return nil
}

// Params converts the DSP section into workspace parameters.
func (c Config) Params() (sdrcore.Params, error) {
	mode, err := sdrcore.ParseMode(c.Mode)
	if err != nil {
		return sdrcore.Params{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	backend, err := cxops.ByName(c.Backend)
	if err != nil {
		return sdrcore.Params{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	p := sdrcore.Params{
		SampleRate:            c.SampleRate,
		BlockSize:             c.BlockSize,
		SpectrumSize:          c.SpectrumSize,
		CompanderPoints:       c.CompanderPoints,
		Mode:                  mode,
		Backend:               backend,
		FilterCacheSize:       c.FilterCache,
		ReplayPath:            c.ReplayPath,
		AGCMagnitudeScale:     c.AGC.MagnitudeScale,
		AGCFastMagnitudeScale: c.AGC.FastMagnitudeScale,
	}
	if err := p.Validate(); err != nil {
		return sdrcore.Params{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return p, nil
}
