package proc

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/disgo/voice"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/sys"
)

// VoiceSink streams audio into a guild voice channel over the disgo voice
// connection.
type VoiceSink struct {
	GuildID snowflake.ID
	client  *bot.Client

	connectMu sync.Mutex // serializes Connect/Disconnect

	mu        sync.Mutex
	conn      voice.Conn
	channelID snowflake.ID
	connected bool
	stream    *audioStream
}

func NewVoiceSink(client *bot.Client, guildID snowflake.ID) *VoiceSink {
	return &VoiceSink{GuildID: guildID, client: client}
}

func (s *VoiceSink) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *VoiceSink) ChannelID() snowflake.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channelID
}

// Connect joins channelID. Joining the channel it is already in is a no-op;
// a different channel replaces the connection.
func (s *VoiceSink) Connect(ctx context.Context, channelID snowflake.ID) error {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	s.mu.Lock()
	if s.connected && s.channelID == channelID {
		s.mu.Unlock()
		return nil
	}
	old := s.conn
	s.conn, s.connected = nil, false
	s.mu.Unlock()

	if old != nil {
		s.Stop()
		old.Close(ctx)
	}

	conn := s.client.VoiceManager.CreateConn(s.GuildID)
	if err := conn.Open(ctx, channelID, false, false); err != nil {
		conn.Close(ctx)
		return err
	}

	s.mu.Lock()
	s.conn, s.channelID, s.connected = conn, channelID, true
	s.mu.Unlock()
	return nil
}

// Moved records that the bot was dragged into another channel. The gateway
// connection follows on its own; only the status target changes.
func (s *VoiceSink) Moved(channelID snowflake.ID) {
	s.mu.Lock()
	old := s.channelID
	if !s.connected || old == channelID {
		s.mu.Unlock()
		return
	}
	s.channelID = channelID
	s.mu.Unlock()

	sys.LogVoice(sys.MsgVoiceMoved, old, channelID, s.GuildID)
	go s.setChannelStatus(old, "")
}

func (s *VoiceSink) Disconnect(ctx context.Context) {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	s.Stop()

	s.mu.Lock()
	conn, channelID := s.conn, s.channelID
	s.conn, s.connected = nil, false
	s.mu.Unlock()

	if conn != nil {
		sys.LogVoice(sys.MsgVoiceLeaving, s.GuildID)
		s.setChannelStatus(channelID, "")
		conn.Close(ctx)
	}
}

// Play starts streaming mediaURL from offset, replacing any active stream.
// onComplete fires once when the stream ends, fails or is stopped.
func (s *VoiceSink) Play(mediaURL string, offset time.Duration, onComplete func(error)) error {
	s.mu.Lock()
	if !s.connected || s.conn == nil {
		s.mu.Unlock()
		return ErrNotConnected
	}
	prev := s.stream
	ctx, cancel := context.WithCancel(context.Background())
	st := &audioStream{
		provider:   newStreamProvider(ctx),
		cancel:     cancel,
		onComplete: onComplete,
	}
	s.stream = st
	conn := s.conn
	s.mu.Unlock()

	if prev != nil {
		prev.cancel()
	}

	setOpusFrameProviderSafe(conn, st.provider)
	conn.SetSpeaking(ctx, voice.SpeakingFlagMicrophone)

	go s.transcode(ctx, st, mediaURL, offset)
	return nil
}

func (s *VoiceSink) transcode(ctx context.Context, st *audioStream, mediaURL string, offset time.Duration) {
	t := NewTranscoder()
	defer t.Close()

	err := t.Open(mediaURL)
	if err == nil {
		err = t.Run(ctx, offset, st.provider.PushFrame)
		// Let the connection play out what is still buffered.
		select {
		case <-st.provider.drained:
			sys.LogVoice(sys.MsgVoicePlaybackFinished, s.GuildID)
		case <-ctx.Done():
			sys.LogVoice(sys.MsgVoicePlaybackStopped, s.GuildID)
		}
	}
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		sys.LogVoice(sys.MsgVoiceTranscodeFail, s.GuildID, err)
	}
	s.finish(st, err)
}

func (s *VoiceSink) finish(st *audioStream, err error) {
	s.mu.Lock()
	if s.stream == st {
		s.stream = nil
		if s.conn != nil {
			setOpusFrameProviderSafe(s.conn, nil)
			s.conn.SetSpeaking(context.TODO(), 0)
		}
	}
	s.mu.Unlock()

	st.cancel()
	st.once.Do(func() {
		if st.onComplete != nil {
			st.onComplete(err)
		}
	})
}

func (s *VoiceSink) Stop() {
	s.mu.Lock()
	st := s.stream
	s.mu.Unlock()
	if st != nil {
		st.cancel()
	}
}

func (s *VoiceSink) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream != nil {
		s.stream.provider.paused.Store(true)
	}
}

func (s *VoiceSink) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream != nil {
		s.stream.provider.paused.Store(false)
	}
}

func (s *VoiceSink) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream != nil && !s.stream.provider.paused.Load()
}

func (s *VoiceSink) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream != nil && s.stream.provider.paused.Load()
}

// Listening shows the track as the voice channel status.
func (s *VoiceSink) Listening(title string) {
	s.mu.Lock()
	channelID, ok := s.channelID, s.connected
	s.mu.Unlock()
	if ok {
		go s.setChannelStatus(channelID, sys.Truncate(title, 500))
	}
}

func (s *VoiceSink) Idle() {
	s.mu.Lock()
	channelID, ok := s.channelID, s.connected
	s.mu.Unlock()
	if ok {
		go s.setChannelStatus(channelID, "")
	}
}

func (s *VoiceSink) setChannelStatus(channelID snowflake.ID, status string) {
	if s.client == nil || channelID == 0 {
		return
	}
	route := rest.NewEndpoint(http.MethodPut, "/channels/"+channelID.String()+"/voice-status")
	if err := s.client.Rest.Do(route.Compile(nil), map[string]string{"status": status}, nil); err != nil {
		sys.LogDebug(sys.MsgVoiceStatusFail, s.GuildID, err)
	}
}

// setOpusFrameProviderSafe guards against the connection panicking while it
// is being torn down.
func setOpusFrameProviderSafe(conn voice.Conn, provider voice.OpusFrameProvider) {
	defer func() {
		if r := recover(); r != nil {
			sys.LogVoice(sys.MsgVoiceProviderPanic, r)
		}
	}()
	conn.SetOpusFrameProvider(provider)
}

type audioStream struct {
	provider   *StreamProvider
	cancel     context.CancelFunc
	onComplete func(error)
	once       sync.Once
}

// StreamProvider hands buffered Opus frames to the voice connection. While
// paused it returns silence and the transcoder blocks on a full buffer.
type StreamProvider struct {
	ctx     context.Context
	frames  chan []byte
	paused  atomic.Bool
	drained chan struct{}
	once    sync.Once
}

func newStreamProvider(ctx context.Context) *StreamProvider {
	return &StreamProvider{
		ctx:     ctx,
		frames:  make(chan []byte, 100),
		drained: make(chan struct{}),
	}
}

// PushFrame queues one frame. A nil frame marks the end of the stream.
func (p *StreamProvider) PushFrame(f []byte) {
	select {
	case p.frames <- f:
	case <-p.ctx.Done():
	}
}

func (p *StreamProvider) ProvideOpusFrame() ([]byte, error) {
	if p.paused.Load() {
		select {
		case <-p.ctx.Done():
			p.markDrained()
			return nil, io.EOF
		case <-time.After(20 * time.Millisecond):
			return nil, nil
		}
	}

	select {
	case f := <-p.frames:
		if f == nil {
			p.markDrained()
			return nil, io.EOF
		}
		return f, nil
	case <-p.ctx.Done():
		p.markDrained()
		return nil, io.EOF
	case <-time.After(100 * time.Millisecond):
		return nil, nil
	}
}

func (p *StreamProvider) Close() {
	p.markDrained()
}

func (p *StreamProvider) markDrained() {
	p.once.Do(func() { close(p.drained) })
}
