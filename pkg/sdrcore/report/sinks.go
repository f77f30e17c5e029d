package report

import (
	"net"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/norasector/sdrcore/pkg/dsp/meter"
	"github.com/norasector/sdrcore/pkg/dsp/spectrum"
	"github.com/norasector/sdrcore/pkg/dsp/viz"
	"github.com/norasector/sdrcore/pkg/sdrcore"
	"github.com/vmihailenco/msgpack/v5"
)

// MeterFrame is the msgpack meter datagram.
type MeterFrame struct {
	Name   string    `msgpack:"name"`
	Label  int       `msgpack:"label"`
	Side   string    `msgpack:"side"`
	Values []float64 `msgpack:"values"`
}

// SpectrumFrame is the msgpack spectrum or scope datagram.
type SpectrumFrame struct {
	Name       string    `msgpack:"name"`
	Label      int       `msgpack:"label"`
	Stamp      int       `msgpack:"stamp"`
	Kind       string    `msgpack:"kind"`
	SampleRate float64   `msgpack:"rate"`
	Data       []float32 `msgpack:"data"`
}

func newMeterFrame(name string, rep meter.Report) MeterFrame {
	f := MeterFrame{Name: name, Label: rep.Label, Side: rep.Side.String()}
	if rep.Side == meter.SideTX {
		f.Values = append(f.Values, rep.TX[:]...)
		return f
	}
	for k := range rep.RX {
		f.Values = append(f.Values, rep.RX[k][:]...)
	}
	return f
}

func newSpectrumFrame(name string, rep sdrcore.SpectrumReport) SpectrumFrame {
	f := SpectrumFrame{Name: name, Label: rep.Label, Stamp: rep.Stamp, SampleRate: rep.SampleRate}
	if rep.Last == spectrum.LastTime {
		f.Kind, f.Data = "time", rep.Scope
	} else {
		f.Kind, f.Data = "freq", rep.Bins
	}
	return f
}

// UDPSink sends each snapshot as one msgpack datagram.
type UDPSink struct {
	name string
	conn net.Conn
}

func NewUDPSink(name, addr string) (*UDPSink, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, err
	}
	return &UDPSink{name: name, conn: conn}, nil
}

func (u *UDPSink) WriteMeter(rep meter.Report) error {
	return u.send(newMeterFrame(u.name, rep))
}

func (u *UDPSink) WriteSpectrum(rep sdrcore.SpectrumReport) error {
	return u.send(newSpectrumFrame(u.name, rep))
}

func (u *UDPSink) send(v interface{}) error {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}
	_, err = u.conn.Write(b)
	return err
}

func (u *UDPSink) Close() error { return u.conn.Close() }

// InfluxSink writes meter snapshots as sdrcore.meter points and spectrum
// peaks as sdrcore.spectrum points.
type InfluxSink struct {
	name     string
	writeAPI api.WriteAPI
}

func NewInfluxSink(name string, writeAPI api.WriteAPI) *InfluxSink {
	return &InfluxSink{name: name, writeAPI: writeAPI}
}

func (s *InfluxSink) WriteMeter(rep meter.Report) error {
	now := time.Now()
	if rep.Side == meter.SideTX {
		fields := make(map[string]interface{}, meter.TXPoints)
		for p := meter.TXPoint(0); p < meter.TXPoints; p++ {
			fields[p.String()] = rep.TX[p]
		}
		go s.writeAPI.WritePoint(influxdb2.NewPoint("sdrcore.meter",
			map[string]string{"name": s.name, "side": "tx"}, fields, now))
		return nil
	}
	for k := range rep.RX {
		fields := make(map[string]interface{}, meter.RXPoints)
		for p := meter.RXPoint(0); p < meter.RXPoints; p++ {
			fields[p.String()] = rep.RX[k][p]
		}
		go s.writeAPI.WritePoint(influxdb2.NewPoint("sdrcore.meter",
			map[string]string{"name": s.name, "side": "rx", "rx": strconv.Itoa(k)}, fields, now))
	}
	return nil
}

func (s *InfluxSink) WriteSpectrum(rep sdrcore.SpectrumReport) error {
	if len(rep.Bins) == 0 {
		return nil
	}
	peak := 0
	for i, v := range rep.Bins {
		if v > rep.Bins[peak] {
			peak = i
		}
	}
	n := len(rep.Bins)
	hz := (float64(peak) - float64(n/2)) * rep.SampleRate / float64(n)
	go s.writeAPI.WritePoint(influxdb2.NewPoint("sdrcore.spectrum",
		map[string]string{"name": s.name},
		map[string]interface{}{
			"label":     rep.Label,
			"stamp":     rep.Stamp,
			"peak_hz":   hz,
			"peak_bin":  float64(rep.Bins[peak]),
			"bin_count": n,
		}, time.Now()))
	return nil
}

// VizSink draws snapshots for the viz server under the "spectrum" bucket.
type VizSink struct {
	spec  *viz.SpectrumPlotter
	scope *viz.ScopePlotter
}

func NewVizSink(server *viz.Server, sampleRate float64, size int) *VizSink {
	v := &VizSink{
		spec:  viz.NewSpectrumPlotter("spectrum", sampleRate),
		scope: viz.NewScopePlotter("scope", size),
	}
	server.Register("spectrum", v.spec)
	server.Register("spectrum", v.scope)
	return v
}

func (v *VizSink) WriteSpectrum(rep sdrcore.SpectrumReport) error {
	if rep.Last == spectrum.LastTime {
		v.scope.Update(rep.Scope)
		return nil
	}
	v.spec.Update(rep.Label, rep.Bins)
	return nil
}
