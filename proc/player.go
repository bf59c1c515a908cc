package proc

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
	"github.com/leeineian/jukebox/sys"
)

// --- Collaborators ---

type Resolver interface {
	// Resolve turns a URL or search query into one track, or into up to the
	// configured number of entries when playlist is set.
	Resolve(ctx context.Context, query string, playlist bool) ([]*Track, error)
	// RefreshMediaURL re-derives a direct media URL from a canonical page URL.
	RefreshMediaURL(ctx context.Context, pageURL string) (string, error)
}

// Sink is the per-guild voice output. Play must not block; onComplete is
// called exactly once when the stream ends, fails or is stopped.
type Sink interface {
	Connected() bool
	Connect(ctx context.Context, channelID snowflake.ID) error
	Disconnect(ctx context.Context)
	Play(mediaURL string, offset time.Duration, onComplete func(error)) error
	Stop()
	Pause()
	Resume()
	Playing() bool
	Paused() bool
}

type Presence interface {
	Listening(title string)
	Idle()
}

type HistoryLogger interface {
	LogTrack(guildID snowflake.ID, t *Track)
}

type Notifier interface {
	Notify(guildID snowflake.ID, content string)
}

type nopPresence struct{}

func (nopPresence) Listening(string) {}
func (nopPresence) Idle()            {}

type nopHistory struct{}

func (nopHistory) LogTrack(snowflake.ID, *Track) {}

type nopNotifier struct{}

func (nopNotifier) Notify(snowflake.ID, string) {}

// --- Player ---

type PlayerConfig struct {
	MaxConsecutiveFailures int
	ResolveTimeout         time.Duration
	Now                    func() time.Time
}

type PlayerDeps struct {
	Resolver Resolver
	Sink     Sink
	Presence Presence
	History  HistoryLogger
	Notifier Notifier
}

type AddOptions struct {
	Playlist bool
	// Index is a 0-based insert position in the normal queue. Nil appends.
	Index    *int
	Priority bool
}

type AddResult struct {
	Tracks  []*Track
	Skipped []*Track
}

// Snapshot is a copy of the player state for rendering.
type Snapshot struct {
	Queue        []*Track
	NowQueue     []*Track
	Current      *Track
	StartTime    time.Time
	PausedOffset *time.Duration
	Elapsed      time.Duration
	Playing      bool
	Paused       bool
	Connected    bool
}

// GuildPlayer owns the queues and playback state of one guild. All state is
// touched only by the run goroutine; public methods post closures to it.
type GuildPlayer struct {
	GuildID snowflake.ID

	cfg      PlayerConfig
	resolver Resolver
	sink     Sink
	presence Presence
	history  HistoryLogger
	notifier Notifier

	events    chan func()
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	queue        []*Track
	nowQueue     []*Track
	current      *Track
	playable     *Playable
	startTime    time.Time
	pausedOffset *time.Duration
	generation   uint64
	failures     int
}

func NewGuildPlayer(guildID snowflake.ID, deps PlayerDeps, cfg PlayerConfig) *GuildPlayer {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ResolveTimeout <= 0 {
		cfg.ResolveTimeout = sys.DefaultResolveTimeout
	}
	if deps.Presence == nil {
		deps.Presence = nopPresence{}
	}
	if deps.History == nil {
		deps.History = nopHistory{}
	}
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &GuildPlayer{
		GuildID:  guildID,
		cfg:      cfg,
		resolver: deps.Resolver,
		sink:     deps.Sink,
		presence: deps.Presence,
		history:  deps.History,
		notifier: deps.Notifier,
		events:   make(chan func(), 16),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *GuildPlayer) run() {
	defer close(p.done)
	for {
		select {
		case fn := <-p.events:
			fn()
		case <-p.ctx.Done():
			return
		}
	}
}

// do runs fn on the player goroutine and waits for it to finish.
func (p *GuildPlayer) do(ctx context.Context, fn func()) error {
	reply := make(chan struct{})
	select {
	case p.events <- func() { fn(); close(reply) }:
	case <-p.ctx.Done():
		return ErrPlayerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-reply:
		return nil
	case <-p.done:
		return ErrPlayerClosed
	}
}

// post queues fn without waiting. Used by callbacks from other goroutines.
func (p *GuildPlayer) post(fn func()) {
	go func() {
		select {
		case p.events <- fn:
		case <-p.ctx.Done():
		}
	}()
}

func (p *GuildPlayer) now() time.Time {
	return p.cfg.Now()
}

// --- Queue operations ---

// AddTrack resolves query and enqueues every non-duplicate result.
func (p *GuildPlayer) AddTrack(ctx context.Context, query string, requester snowflake.ID, opts AddOptions) (*AddResult, error) {
	rctx, cancel := context.WithTimeout(ctx, p.cfg.ResolveTimeout)
	tracks, err := p.resolver.Resolve(rctx, query, opts.Playlist)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResolution, err)
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: no results for %q", ErrResolution, query)
	}

	var res *AddResult
	if err := p.do(ctx, func() { res = p.enqueue(tracks, requester, opts) }); err != nil {
		return nil, err
	}

	for _, t := range res.Tracks {
		sys.LogMusic(sys.MsgPlayerQueued, p.GuildID, t.Title, t.URL)
		p.history.LogTrack(p.GuildID, t)
	}
	return res, nil
}

func (p *GuildPlayer) enqueue(tracks []*Track, requester snowflake.ID, opts AddOptions) *AddResult {
	res := &AddResult{}
	idx := -1
	if opts.Index != nil && !opts.Priority {
		idx = max(0, min(*opts.Index, len(p.queue)))
	}

	for _, t := range tracks {
		if t == nil {
			continue
		}
		if IsDuplicate(t, p.nowQueue, p.queue) {
			res.Skipped = append(res.Skipped, t)
			continue
		}

		entry := t.clone()
		entry.Requester = requester
		entry.EntryID = uuid.New()

		switch {
		case opts.Priority:
			p.nowQueue = append(p.nowQueue, entry)
		case idx >= 0:
			p.queue = slices.Insert(p.queue, idx, entry)
			idx++
		default:
			p.queue = append(p.queue, entry)
		}
		res.Tracks = append(res.Tracks, entry)
	}
	return res
}

// Remove drops the index-th (1-based) entry of the normal queue.
func (p *GuildPlayer) Remove(ctx context.Context, index int) (*Track, error) {
	var removed *Track
	var err error
	if e := p.do(ctx, func() {
		if index < 1 || index > len(p.queue) {
			err = ErrIndexOutOfRange
			return
		}
		removed = p.queue[index-1]
		p.queue = slices.Delete(p.queue, index-1, index)
	}); e != nil {
		return nil, e
	}
	return removed, err
}

// Clear empties both queues. The current track keeps playing.
func (p *GuildPlayer) Clear(ctx context.Context) error {
	return p.do(ctx, func() {
		p.queue = nil
		p.nowQueue = nil
	})
}

// Shuffle randomizes the normal queue only.
func (p *GuildPlayer) Shuffle(ctx context.Context) error {
	return p.do(ctx, func() {
		rand.Shuffle(len(p.queue), func(i, j int) {
			p.queue[i], p.queue[j] = p.queue[j], p.queue[i]
		})
	})
}

// --- Playback transitions ---

// PlayNext advances to the next queued track, connecting to channelID first
// when there is no voice connection yet.
func (p *GuildPlayer) PlayNext(ctx context.Context, channelID *snowflake.ID) error {
	_, err := p.playNext(ctx, channelID, false)
	return err
}

// EnsurePlaying starts playback only when nothing is current and the sink is
// not paused. It reports whether a new track was started.
func (p *GuildPlayer) EnsurePlaying(ctx context.Context, channelID *snowflake.ID) (bool, error) {
	return p.playNext(ctx, channelID, true)
}

func (p *GuildPlayer) playNext(ctx context.Context, channelID *snowflake.ID, onlyIfIdle bool) (bool, error) {
	var started, needConnect bool
	var err error

	step := func() {
		needConnect = false
		if onlyIfIdle && (p.current != nil || p.sink.Paused()) {
			return
		}
		if len(p.queue)+len(p.nowQueue) == 0 {
			p.goIdle()
			return
		}
		if !p.sink.Connected() {
			if channelID == nil {
				err = ErrNoVoiceChannel
				return
			}
			needConnect = true
			return
		}
		started = p.advance()
	}

	if e := p.do(ctx, step); e != nil {
		return false, e
	}
	if !needConnect || err != nil {
		return started, err
	}

	sys.LogVoice(sys.MsgVoiceJoining, *channelID, p.GuildID)
	if cerr := p.sink.Connect(ctx, *channelID); cerr != nil {
		sys.LogWarn(sys.MsgVoiceJoinFail, p.GuildID, cerr)
		return false, fmt.Errorf("connect to voice: %w", cerr)
	}

	if e := p.do(ctx, step); e != nil {
		return false, e
	}
	if needConnect {
		return false, ErrNotConnected
	}
	return started, err
}

// advance pops the next track (priority first) and starts preparing it.
// Must run on the player goroutine.
func (p *GuildPlayer) advance() bool {
	var next *Track
	switch {
	case len(p.nowQueue) > 0:
		next, p.nowQueue = p.nowQueue[0], p.nowQueue[1:]
	case len(p.queue) > 0:
		next, p.queue = p.queue[0], p.queue[1:]
	default:
		p.goIdle()
		return false
	}

	if p.current != nil {
		p.sink.Stop()
	}
	p.current = next
	p.playable = nil
	p.startTime = p.now()
	p.pausedOffset = nil
	p.generation++

	gen := p.generation
	go p.prepare(gen, next)
	return true
}

// advanceFromLoop is the transition used after a stream ends on its own.
func (p *GuildPlayer) advanceFromLoop() {
	if !p.sink.Connected() {
		p.goIdle()
		return
	}
	p.advance()
}

func (p *GuildPlayer) goIdle() {
	if p.current != nil {
		p.sink.Stop()
		sys.LogMusic(sys.MsgPlayerIdle, p.GuildID)
	}
	p.current = nil
	p.playable = nil
	p.startTime = time.Time{}
	p.pausedOffset = nil
	p.generation++
	p.failures = 0
	p.presence.Idle()
}

func (p *GuildPlayer) prepare(gen uint64, t *Track) {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.ResolveTimeout)
	defer cancel()

	mediaURL, err := p.refresh(ctx, t)
	p.post(func() { p.onPrepared(gen, t, mediaURL, err) })
}

func (p *GuildPlayer) refresh(ctx context.Context, t *Track) (string, error) {
	if t.URL == "" {
		if t.MediaURL != "" {
			return t.MediaURL, nil
		}
		return "", fmt.Errorf("%w: track has no URL", ErrResolution)
	}
	u, err := p.resolver.RefreshMediaURL(ctx, t.URL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrResolution, err)
	}
	return u, nil
}

func (p *GuildPlayer) onPrepared(gen uint64, t *Track, mediaURL string, err error) {
	if gen != p.generation {
		return
	}

	if err == nil {
		err = p.sink.Play(mediaURL, 0, p.completion(gen))
	}
	if err != nil {
		p.failures++
		sys.LogWarn(sys.MsgPlayerPrepareFailed, t.Title, err)
		p.notifier.Notify(p.GuildID, fmt.Sprintf(sys.MsgMusicPrepareFailed, t.Title, err))

		if limit := p.cfg.MaxConsecutiveFailures; limit > 0 && p.failures >= limit {
			sys.LogWarn(sys.MsgPlayerGivingUp, p.failures, p.GuildID)
			n := p.failures
			p.goIdle()
			p.notifier.Notify(p.GuildID, fmt.Sprintf(sys.MsgMusicTooManyFailures, n))
			return
		}
		p.advanceFromLoop()
		return
	}

	p.failures = 0
	p.playable = &Playable{Track: t, MediaURL: mediaURL, FetchedAt: p.now()}
	p.presence.Listening(t.Title)
	sys.LogMusic(sys.MsgPlayerPlaying, p.GuildID, t.Title, sys.FormatDuration(t.Duration))
}

func (p *GuildPlayer) completion(gen uint64) func(error) {
	return func(err error) {
		p.post(func() { p.onComplete(gen, err) })
	}
}

func (p *GuildPlayer) onComplete(gen uint64, err error) {
	if gen != p.generation {
		return
	}
	if err != nil {
		sys.LogWarn(sys.MsgPlayerPlaybackError, p.GuildID, err)
	}
	p.advanceFromLoop()
}

// Skip stops the current track and advances to the next one.
func (p *GuildPlayer) Skip(ctx context.Context) (*Track, error) {
	var skipped *Track
	var err error
	if e := p.do(ctx, func() {
		if p.current == nil {
			err = ErrNothingPlaying
			return
		}
		skipped = p.current
		p.advanceFromLoop()
	}); e != nil {
		return nil, e
	}
	return skipped, err
}

// Stop clears both queues and ends playback. The voice connection stays.
func (p *GuildPlayer) Stop(ctx context.Context) error {
	return p.do(ctx, func() {
		p.queue = nil
		p.nowQueue = nil
		p.sink.Stop()
		p.goIdle()
	})
}

// TogglePause pauses a playing track or resumes a paused one, keeping the
// elapsed-time bookkeeping in step. It reports the new paused state.
func (p *GuildPlayer) TogglePause(ctx context.Context) (bool, *Track, error) {
	var paused bool
	var track *Track
	var err error
	if e := p.do(ctx, func() {
		if p.current == nil {
			err = ErrNothingPlaying
			return
		}
		track = p.current
		now := p.now()
		switch {
		case p.sink.Paused():
			if p.pausedOffset != nil {
				p.startTime = now.Add(-*p.pausedOffset)
			}
			p.pausedOffset = nil
			p.sink.Resume()
			paused = false
		case p.sink.Playing():
			if !p.startTime.IsZero() {
				off := now.Sub(p.startTime)
				p.pausedOffset = &off
			}
			p.sink.Pause()
			paused = true
		default:
			err = ErrNothingPlaying
		}
	}); e != nil {
		return false, nil, e
	}
	return paused, track, err
}

// Seek restarts the current track from pos using a freshly resolved URL.
func (p *GuildPlayer) Seek(ctx context.Context, pos time.Duration) (*Track, error) {
	var track *Track
	var gen uint64
	var err error
	if e := p.do(ctx, func() {
		if p.current == nil {
			err = ErrNothingPlaying
			return
		}
		if pos < 0 || (p.current.Duration > 0 && pos >= p.current.Duration) {
			err = ErrSeekOutOfRange
			return
		}
		track, gen = p.current, p.generation
	}); e != nil {
		return nil, e
	}
	if err != nil {
		return nil, err
	}

	rctx, cancel := context.WithTimeout(ctx, p.cfg.ResolveTimeout)
	mediaURL, err := p.refresh(rctx, track)
	cancel()
	if err != nil {
		return nil, err
	}

	if e := p.do(ctx, func() {
		if p.generation != gen || p.current != track {
			err = ErrNothingPlaying
			return
		}
		p.sink.Stop()
		p.generation++
		if perr := p.sink.Play(mediaURL, pos, p.completion(p.generation)); perr != nil {
			err = perr
			p.advanceFromLoop()
			return
		}
		now := p.now()
		p.startTime = now.Add(-pos)
		p.pausedOffset = nil
		p.playable = &Playable{Track: track, MediaURL: mediaURL, Offset: pos, FetchedAt: now}
	}); e != nil {
		return nil, e
	}
	return track, err
}

// --- Voice ---

func (p *GuildPlayer) Connect(ctx context.Context, channelID snowflake.ID) error {
	sys.LogVoice(sys.MsgVoiceJoining, channelID, p.GuildID)
	return p.sink.Connect(ctx, channelID)
}

func (p *GuildPlayer) Connected() bool {
	return p.sink.Connected()
}

func (p *GuildPlayer) Sink() Sink {
	return p.sink
}

// --- Read access ---

func (p *GuildPlayer) Snapshot(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	err := p.do(ctx, func() {
		s = Snapshot{
			Queue:     cloneTracks(p.queue),
			NowQueue:  cloneTracks(p.nowQueue),
			StartTime: p.startTime,
			Elapsed:   p.elapsed(),
			Playing:   p.sink.Playing(),
			Paused:    p.sink.Paused(),
			Connected: p.sink.Connected(),
		}
		if p.current != nil {
			s.Current = p.current.clone()
		}
		if p.pausedOffset != nil {
			off := *p.pausedOffset
			s.PausedOffset = &off
		}
	})
	return s, err
}

func (p *GuildPlayer) elapsed() time.Duration {
	if p.pausedOffset != nil {
		return *p.pausedOffset
	}
	if p.startTime.IsZero() {
		return 0
	}
	return p.now().Sub(p.startTime)
}

func cloneTracks(in []*Track) []*Track {
	out := make([]*Track, len(in))
	for i, t := range in {
		out[i] = t.clone()
	}
	return out
}

// Close stops playback, disconnects and ends the player goroutine.
func (p *GuildPlayer) Close(ctx context.Context) {
	p.closeOnce.Do(func() {
		_ = p.do(ctx, func() {
			p.queue = nil
			p.nowQueue = nil
			p.sink.Stop()
			p.goIdle()
		})
		p.cancel()
		select {
		case <-p.done:
		case <-ctx.Done():
		}
		p.sink.Disconnect(ctx)
	})
}
