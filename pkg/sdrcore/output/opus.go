package output

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/hraban/opus"
	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/norasector/sdrcore/pkg/util"
	"github.com/racerxdl/segdsp/dsp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"
)

const (
	opusRate     = 48000
	opusChannels = 2
	frameSamples = opusRate / 50
	resampleTaps = 127
	maxPacket    = 4000
)

// FrameHeader precedes every opus packet on the wire.
type FrameHeader struct {
	Seq       uint32 `msgpack:"seq"`
	Timestamp int64  `msgpack:"ts"`
	Rate      int    `msgpack:"rate"`
	Channels  int    `msgpack:"channels"`
}

// OpusUDPOutput encodes 20 ms stereo opus frames and sends each as one
// datagram: a little-endian uint16 header length, the msgpack header, then
// the opus packet.
type OpusUDPOutput struct {
	host       string
	port       int
	sampleRate int
	recvChan   chan *Block
	frames     chan []byte
	metrics    api.WriteAPI
	logger     zerolog.Logger

	encoder      *opus.Encoder
	resL, resR   *dsp.FloatResampler
	pendL, pendR []float32
	seq          uint32
}

type OpusOption func(o *OpusUDPOutput)

func WithOpusMetrics(w api.WriteAPI) OpusOption {
	return func(o *OpusUDPOutput) { o.metrics = w }
}

func WithOpusLogger(logger zerolog.Logger) OpusOption {
	return func(o *OpusUDPOutput) { o.logger = logger }
}

func NewOpusUDPOutput(host string, port, sampleRate int, opts ...OpusOption) (*OpusUDPOutput, error) {
	enc, err := opus.NewEncoder(opusRate, opusChannels, opus.AppAudio)
	if err != nil {
		return nil, err
	}
	if err := enc.SetPacketLossPerc(20); err != nil {
		return nil, err
	}
	enc.SetBitrateToAuto()

	o := &OpusUDPOutput{
		host:       host,
		port:       port,
		sampleRate: sampleRate,
		recvChan:   make(chan *Block, receiveBlocks),
		frames:     make(chan []byte, receiveBlocks),
		metrics:    &util.MockWriteAPI{},
		logger:     log.Logger,
		encoder:    enc,
	}
	if sampleRate != opusRate {
		ratio := float32(opusRate) / float32(sampleRate)
		o.resL = dsp.MakeFloatResampler(resampleTaps, ratio)
		o.resR = dsp.MakeFloatResampler(resampleTaps, ratio)
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

func (o *OpusUDPOutput) Receive() chan<- *Block { return o.recvChan }

func (o *OpusUDPOutput) Start(ctx context.Context) error {
	ips, err := net.LookupIP(o.host)
	if err != nil {
		return err
	}
	if len(ips) == 0 {
		return fmt.Errorf("no IPs returned for %s", o.host)
	}
	dest := &net.UDPAddr{IP: ips[0], Port: o.port}
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	o.logger.Info().IPAddr("dest_ip", dest.IP).Int("port", o.port).Msg("opus output starting")

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case b := <-o.recvChan:
				if err := o.encode(ctx, b); err != nil {
					return err
				}
			}
		}
	})
	eg.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case pkt := <-o.frames:
				n, err := conn.WriteToUDP(pkt, dest)
				if err != nil {
					o.logger.Error().Err(err).Msg("error writing")
				}
				go o.metrics.WritePoint(influxdb2.NewPoint("opus.sent_frame",
					map[string]string{"dest": dest.String()},
					map[string]interface{}{
						"bytes_written": n,
						"sent":          btoi(err == nil),
						"dropped":       btoi(err != nil),
					}, time.Now()))
			}
		}
	})
	return eg.Wait()
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}

// encode buffers a block and emits every complete frame it finishes.
func (o *OpusUDPOutput) encode(ctx context.Context, b *Block) error {
	left, right := b.Left, b.Right
	if o.resL != nil {
		left, right = o.resL.Work(left), o.resR.Work(right)
	}
	o.pendL = append(o.pendL, left...)
	o.pendR = append(o.pendR, right...)

	pcm := make([]float32, frameSamples*opusChannels)
	data := make([]byte, maxPacket)
	for len(o.pendL) >= frameSamples && len(o.pendR) >= frameSamples {
		for i := 0; i < frameSamples; i++ {
			pcm[2*i], pcm[2*i+1] = o.pendL[i], o.pendR[i]
		}
		o.pendL, o.pendR = o.pendL[frameSamples:], o.pendR[frameSamples:]

		n, err := o.encoder.EncodeFloat32(pcm, data)
		if err != nil {
			return err
		}
		pkt, err := o.packet(data[:n], b.Time)
		if err != nil {
			o.logger.Warn().Err(err).Msg("error encoding frame header")
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case o.frames <- pkt:
		}
	}
	o.pendL = append(o.pendL[:0:0], o.pendL...)
	o.pendR = append(o.pendR[:0:0], o.pendR...)
	return nil
}

func (o *OpusUDPOutput) packet(frame []byte, stamp time.Time) ([]byte, error) {
	hdr, err := msgpack.Marshal(&FrameHeader{
		Seq:       o.seq,
		Timestamp: stamp.UnixMicro(),
		Rate:      opusRate,
		Channels:  opusChannels,
	})
	if err != nil {
		return nil, err
	}
	o.seq++

	var msgBuf bytes.Buffer
	if err := binary.Write(&msgBuf, binary.LittleEndian, uint16(len(hdr))); err != nil {
		return nil, err
	}
	msgBuf.Write(hdr)
	msgBuf.Write(frame)
	return msgBuf.Bytes(), nil
}

// DecodePacket splits a datagram into its header and opus packet.
func DecodePacket(pkt []byte) (FrameHeader, []byte, error) {
	var hdr FrameHeader
	if len(pkt) < 2 {
		return hdr, nil, fmt.Errorf("short packet: %d bytes", len(pkt))
	}
	n := int(binary.LittleEndian.Uint16(pkt))
	if len(pkt) < 2+n {
		return hdr, nil, fmt.Errorf("header length %d exceeds packet of %d", n, len(pkt))
	}
	if err := msgpack.Unmarshal(pkt[2:2+n], &hdr); err != nil {
		return hdr, nil, err
	}
	return hdr, pkt[2+n:], nil
}
