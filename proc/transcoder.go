package proc

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/asticode/go-astiav"
)

const (
	opusSampleRate = 48000
	opusFrameSize  = 960 // 20ms at 48kHz
	opusBitRate    = 192000
)

var opusTimeBase = astiav.NewRational(1, opusSampleRate)

// Transcoder decodes a remote media URL and re-encodes it to 20ms Opus
// packets for the voice gateway.
type Transcoder struct {
	input       *astiav.FormatContext
	decoder     *astiav.CodecContext
	encoder     *astiav.CodecContext
	streamIndex int

	packet    *astiav.Packet
	frame     *astiav.Frame
	resampled *astiav.Frame
	resampler *astiav.SoftwareResampleContext
	fifo      *astiav.AudioFifo

	emit func([]byte)
	pts  int64
}

func NewTranscoder() *Transcoder {
	return &Transcoder{
		packet:      astiav.AllocPacket(),
		frame:       astiav.AllocFrame(),
		resampled:   astiav.AllocFrame(),
		streamIndex: -1,
	}
}

func (t *Transcoder) Open(mediaURL string) error {
	t.input = astiav.AllocFormatContext()
	if t.input == nil {
		return errors.New("failed to allocate format context")
	}

	var opts *astiav.Dictionary
	if strings.HasPrefix(mediaURL, "http") {
		opts = astiav.NewDictionary()
		defer opts.Free()
		for k, v := range map[string]string{
			"reconnect":           "1",
			"reconnect_at_eof":    "1",
			"reconnect_streamed":  "1",
			"reconnect_delay_max": "30",
			"timeout":             "30000000",
		} {
			opts.Set(k, v, 0)
		}
	}
	if err := t.input.OpenInput(mediaURL, nil, opts); err != nil {
		return err
	}
	if err := t.input.FindStreamInfo(nil); err != nil {
		return err
	}
	for _, s := range t.input.Streams() {
		if s.CodecParameters().MediaType() == astiav.MediaTypeAudio {
			t.streamIndex = s.Index()
			break
		}
	}
	if t.streamIndex < 0 {
		return errors.New("no audio stream")
	}
	if err := t.setupDecoder(); err != nil {
		return err
	}
	return t.setupEncoder()
}

func (t *Transcoder) setupDecoder() error {
	params := t.input.Streams()[t.streamIndex].CodecParameters()
	dec := astiav.FindDecoder(params.CodecID())
	if dec == nil {
		return errors.New("no decoder for input")
	}
	t.decoder = astiav.AllocCodecContext(dec)
	if err := params.ToCodecContext(t.decoder); err != nil {
		return err
	}
	return t.decoder.Open(dec, nil)
}

func (t *Transcoder) setupEncoder() error {
	enc := astiav.FindEncoderByName("libopus")
	if enc == nil {
		enc = astiav.FindEncoder(astiav.CodecIDOpus)
	}
	if enc == nil {
		return errors.New("no opus encoder")
	}
	t.encoder = astiav.AllocCodecContext(enc)
	t.encoder.SetBitRate(opusBitRate)
	t.encoder.SetSampleRate(opusSampleRate)
	t.encoder.SetChannelLayout(astiav.ChannelLayoutStereo)
	t.encoder.SetSampleFormat(astiav.SampleFormatS16)
	t.encoder.SetTimeBase(opusTimeBase)

	opts := astiav.NewDictionary()
	defer opts.Free()
	opts.Set("vbr", "on", 0)
	opts.Set("compression_level", "10", 0)
	opts.Set("frame_size", "20", 0)
	if err := t.encoder.Open(enc, opts); err != nil {
		return err
	}

	// Configured lazily by ConvertFrame from the first decoded frame.
	t.resampler = astiav.AllocSoftwareResampleContext()
	if t.resampler == nil {
		return errors.New("failed to allocate resampler")
	}
	return nil
}

// seek positions the input at offset. Codecs are already fresh at this point
// so no buffered audio needs discarding.
func (t *Transcoder) seek(offset time.Duration) error {
	ts := int64(offset.Seconds() * opusSampleRate)
	streamTs := astiav.RescaleQ(ts, opusTimeBase, t.input.Streams()[t.streamIndex].TimeBase())
	if err := t.input.SeekFrame(t.streamIndex, streamTs, astiav.SeekFlags(astiav.SeekFlagBackward)); err != nil {
		return err
	}
	t.pts = ts
	return nil
}

// Run streams Opus packets to emit until the input ends or ctx is cancelled.
// A nil packet is always emitted last.
func (t *Transcoder) Run(ctx context.Context, offset time.Duration, emit func([]byte)) error {
	t.emit = emit
	defer emit(nil)

	if offset > 0 {
		if err := t.seek(offset); err != nil {
			return err
		}
	}

	t.fifo = astiav.AllocAudioFifo(t.encoder.SampleFormat(), t.encoder.ChannelLayout().Channels(), opusFrameSize*2)
	defer func() {
		t.fifo.Free()
		t.fifo = nil
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.input.ReadFrame(t.packet); err != nil {
			if errors.Is(err, astiav.ErrEof) {
				break
			}
			return err
		}
		if t.packet.StreamIndex() != t.streamIndex {
			t.packet.Unref()
			continue
		}
		err := t.decoder.SendPacket(t.packet)
		t.packet.Unref()
		if err != nil {
			return err
		}
		t.drainDecoder()
		t.drainFifo(false)
	}

	// Flush decoder, remaining samples, then encoder.
	_ = t.decoder.SendPacket(nil)
	t.drainDecoder()
	t.drainFifo(true)
	_ = t.encoder.SendFrame(nil)
	t.drainEncoder()
	return nil
}

func (t *Transcoder) drainDecoder() {
	for t.decoder.ReceiveFrame(t.frame) == nil {
		nb := int(astiav.RescaleQ(int64(t.frame.NbSamples()),
			astiav.NewRational(1, t.frame.SampleRate()), opusTimeBase))
		if nb > 0 {
			t.prepareResampled(nb)
			if t.resampler.ConvertFrame(t.frame, t.resampled) == nil {
				_, _ = t.fifo.Write(t.resampled)
			}
		}
		t.frame.Unref()
	}
}

// drainFifo encodes whole frames from the fifo. With partial set the final
// short frame is encoded too.
func (t *Transcoder) drainFifo(partial bool) {
	for {
		n := t.fifo.Size()
		if n == 0 || (n < opusFrameSize && !partial) {
			return
		}
		n = min(n, opusFrameSize)
		t.prepareResampled(n)
		_, _ = t.fifo.Read(t.resampled)
		t.resampled.SetPts(t.pts)
		t.pts += int64(n)
		if t.encoder.SendFrame(t.resampled) == nil {
			t.drainEncoder()
		}
	}
}

func (t *Transcoder) prepareResampled(nbSamples int) {
	t.resampled.Unref()
	t.resampled.SetChannelLayout(t.encoder.ChannelLayout())
	t.resampled.SetSampleFormat(t.encoder.SampleFormat())
	t.resampled.SetSampleRate(t.encoder.SampleRate())
	t.resampled.SetNbSamples(nbSamples)
	_ = t.resampled.AllocBuffer(0)
}

func (t *Transcoder) drainEncoder() {
	for {
		p := astiav.AllocPacket()
		if t.encoder.ReceivePacket(p) != nil {
			p.Free()
			return
		}
		data := make([]byte, len(p.Data()))
		copy(data, p.Data())
		p.Free()
		t.emit(data)
	}
}

func (t *Transcoder) Close() {
	if t.resampler != nil {
		t.resampler.Free()
	}
	if t.resampled != nil {
		t.resampled.Free()
	}
	if t.packet != nil {
		t.packet.Free()
	}
	if t.frame != nil {
		t.frame.Free()
	}
	if t.decoder != nil {
		t.decoder.Free()
	}
	if t.encoder != nil {
		t.encoder.Free()
	}
	if t.input != nil {
		t.input.CloseInput()
		t.input.Free()
	}
}
