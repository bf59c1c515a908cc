package proc

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
)

// --- Fakes ---

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type playCall struct {
	url    string
	offset time.Duration
}

type fakeSink struct {
	mu           sync.Mutex
	connected    bool
	connectedTo  snowflake.ID
	connectErr   error
	playing      bool
	paused       bool
	plays        []playCall
	onComplete   func(error)
	stops        int
	disconnected bool
}

func (s *fakeSink) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *fakeSink) Connect(_ context.Context, channelID snowflake.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connectErr != nil {
		return s.connectErr
	}
	s.connected = true
	s.connectedTo = channelID
	return nil
}

func (s *fakeSink) Disconnect(context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	s.disconnected = true
}

func (s *fakeSink) Play(url string, offset time.Duration, onComplete func(error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return ErrNotConnected
	}
	s.plays = append(s.plays, playCall{url, offset})
	s.playing = true
	s.paused = false
	s.onComplete = onComplete
	return nil
}

// Stop mirrors the real sink: a stopped stream still reports completion.
func (s *fakeSink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	cb := s.onComplete
	s.onComplete = nil
	s.playing = false
	s.paused = false
	if cb != nil {
		go cb(nil)
	}
}

func (s *fakeSink) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playing {
		s.playing = false
		s.paused = true
	}
}

func (s *fakeSink) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		s.paused = false
		s.playing = true
	}
}

func (s *fakeSink) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *fakeSink) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// finish simulates the stream reaching its natural end.
func (s *fakeSink) finish() {
	s.mu.Lock()
	cb := s.onComplete
	s.onComplete = nil
	s.playing = false
	s.mu.Unlock()
	if cb != nil {
		cb(nil)
	}
}

func (s *fakeSink) playCalls() []playCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.plays)
}

type fakeResolver struct {
	mu         sync.Mutex
	results    map[string][]*Track
	resolveErr error
	refreshErr map[string]error
	refreshed  []string
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{results: map[string][]*Track{}, refreshErr: map[string]error{}}
}

func (r *fakeResolver) add(query string, tracks ...*Track) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[query] = tracks
}

func (r *fakeResolver) Resolve(_ context.Context, query string, _ bool) ([]*Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolveErr != nil {
		return nil, r.resolveErr
	}
	return r.results[query], nil
}

func (r *fakeResolver) RefreshMediaURL(_ context.Context, pageURL string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshed = append(r.refreshed, pageURL)
	if err := r.refreshErr[pageURL]; err != nil {
		return "", err
	}
	return pageURL + "#media", nil
}

func (r *fakeResolver) refreshCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.refreshed)
}

type fakePresence struct {
	mu        sync.Mutex
	listening []string
	idle      int
}

func (p *fakePresence) Listening(title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listening = append(p.listening, title)
}

func (p *fakePresence) Idle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idle++
}

func (p *fakePresence) idleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idle
}

type fakeHistory struct {
	mu     sync.Mutex
	logged []*Track
}

func (h *fakeHistory) LogTrack(_ snowflake.ID, t *Track) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.logged = append(h.logged, t)
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Notify(_ snowflake.ID, content string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, content)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

type harness struct {
	player   *GuildPlayer
	sink     *fakeSink
	resolver *fakeResolver
	presence *fakePresence
	history  *fakeHistory
	notifier *fakeNotifier
	clock    *fakeClock
}

const testGuild = snowflake.ID(1000)

var testChannel = snowflake.ID(2000)

func newHarness(t *testing.T, maxFailures int) *harness {
	t.Helper()
	h := &harness{
		sink:     &fakeSink{},
		resolver: newFakeResolver(),
		presence: &fakePresence{},
		history:  &fakeHistory{},
		notifier: &fakeNotifier{},
		clock:    newFakeClock(),
	}
	h.player = NewGuildPlayer(testGuild, PlayerDeps{
		Resolver: h.resolver,
		Sink:     h.sink,
		Presence: h.presence,
		History:  h.history,
		Notifier: h.notifier,
	}, PlayerConfig{
		MaxConsecutiveFailures: maxFailures,
		ResolveTimeout:         time.Second,
		Now:                    h.clock.Now,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		h.player.Close(ctx)
	})
	return h
}

func track(name string) *Track {
	return &Track{Title: name, URL: "https://example.com/" + name, Duration: 3 * time.Minute}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func (h *harness) snapshot(t *testing.T) Snapshot {
	t.Helper()
	s, err := h.player.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	return s
}

func (h *harness) add(t *testing.T, query string, opts AddOptions) *AddResult {
	t.Helper()
	res, err := h.player.AddTrack(context.Background(), query, snowflake.ID(42), opts)
	if err != nil {
		t.Fatalf("AddTrack(%q): %v", query, err)
	}
	return res
}

func titles(ts []*Track) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Title
	}
	return out
}

// --- AddTrack ---

func TestAddTrackEnqueuesAndDeduplicates(t *testing.T) {
	h := newHarness(t, 5)
	h.resolver.add("a", track("A"))
	h.resolver.add("list", track("B"), track("A"), track("C"), track("B"))

	res := h.add(t, "a", AddOptions{})
	if len(res.Tracks) != 1 || len(res.Skipped) != 0 {
		t.Fatalf("first add = %d added, %d skipped", len(res.Tracks), len(res.Skipped))
	}

	res = h.add(t, "list", AddOptions{Playlist: true})
	if got := titles(res.Tracks); !slices.Equal(got, []string{"B", "C"}) {
		t.Errorf("added = %v, want [B C]", got)
	}
	if got := titles(res.Skipped); !slices.Equal(got, []string{"A", "B"}) {
		t.Errorf("skipped = %v, want [A B]", got)
	}

	s := h.snapshot(t)
	if got := titles(s.Queue); !slices.Equal(got, []string{"A", "B", "C"}) {
		t.Errorf("queue = %v, want [A B C]", got)
	}

	h.history.mu.Lock()
	logged := len(h.history.logged)
	first := h.history.logged[0]
	h.history.mu.Unlock()
	if logged != 3 {
		t.Errorf("history logged %d tracks, want 3", logged)
	}
	if first.Requester != snowflake.ID(42) || first.EntryID == uuid.Nil {
		t.Errorf("logged track missing requester or entry id: %+v", first)
	}
}

func TestAddTrackPriorityAndIndex(t *testing.T) {
	h := newHarness(t, 5)
	h.resolver.add("ab", track("A"), track("B"))
	h.resolver.add("xy", track("X"), track("Y"))
	h.resolver.add("z", track("Z"))
	h.resolver.add("p", track("P"))

	h.add(t, "ab", AddOptions{Playlist: true})
	one := 1
	h.add(t, "xy", AddOptions{Playlist: true, Index: &one})
	far := 99
	h.add(t, "z", AddOptions{Index: &far})
	h.add(t, "p", AddOptions{Priority: true})

	s := h.snapshot(t)
	if got := titles(s.Queue); !slices.Equal(got, []string{"A", "X", "Y", "B", "Z"}) {
		t.Errorf("queue = %v, want [A X Y B Z]", got)
	}
	if got := titles(s.NowQueue); !slices.Equal(got, []string{"P"}) {
		t.Errorf("now queue = %v, want [P]", got)
	}

	// A track in the priority queue also blocks the normal queue.
	res := h.add(t, "p", AddOptions{})
	if len(res.Tracks) != 0 || len(res.Skipped) != 1 {
		t.Errorf("duplicate across queues was not skipped: %+v", res)
	}
}

func TestAddTrackResolutionErrors(t *testing.T) {
	h := newHarness(t, 5)
	h.resolver.resolveErr = errors.New("yt-dlp exploded")

	_, err := h.player.AddTrack(context.Background(), "anything", 1, AddOptions{})
	if !errors.Is(err, ErrResolution) {
		t.Fatalf("err = %v, want ErrResolution", err)
	}

	h.resolver.resolveErr = nil
	_, err = h.player.AddTrack(context.Background(), "nothing", 1, AddOptions{})
	if !errors.Is(err, ErrResolution) {
		t.Fatalf("empty result err = %v, want ErrResolution", err)
	}

	if s := h.snapshot(t); len(s.Queue) != 0 {
		t.Errorf("queue changed after failed resolution: %v", titles(s.Queue))
	}
}

// --- PlayNext ---

func TestPlayNextEmptyGoesIdle(t *testing.T) {
	h := newHarness(t, 5)
	if err := h.player.PlayNext(context.Background(), nil); err != nil {
		t.Fatalf("PlayNext: %v", err)
	}
	if err := h.player.PlayNext(context.Background(), nil); err != nil {
		t.Fatalf("second PlayNext: %v", err)
	}
	s := h.snapshot(t)
	if s.Current != nil || !s.StartTime.IsZero() || s.PausedOffset != nil {
		t.Errorf("player not idle: %+v", s)
	}
	if h.presence.idleCount() < 1 {
		t.Error("presence was not set idle")
	}
}

func TestPlayNextWithoutVoiceChannel(t *testing.T) {
	h := newHarness(t, 5)
	h.resolver.add("a", track("A"))
	h.add(t, "a", AddOptions{})

	err := h.player.PlayNext(context.Background(), nil)
	if !errors.Is(err, ErrNoVoiceChannel) {
		t.Fatalf("err = %v, want ErrNoVoiceChannel", err)
	}
	s := h.snapshot(t)
	if s.Current != nil || len(s.Queue) != 1 {
		t.Errorf("track consumed without a connection: current=%v queue=%v", s.Current, titles(s.Queue))
	}
}

func TestPlayNextConnectsAndPrefersPriority(t *testing.T) {
	h := newHarness(t, 5)
	h.resolver.add("a", track("A"))
	h.resolver.add("p", track("P"))
	h.add(t, "a", AddOptions{})
	h.add(t, "p", AddOptions{Priority: true})

	if err := h.player.PlayNext(context.Background(), &testChannel); err != nil {
		t.Fatalf("PlayNext: %v", err)
	}
	if !h.sink.Connected() || h.sink.connectedTo != testChannel {
		t.Fatal("sink was not connected to the requested channel")
	}

	waitFor(t, "first play", func() bool { return len(h.sink.playCalls()) == 1 })
	if got := h.sink.playCalls()[0]; got.url != "https://example.com/P#media" || got.offset != 0 {
		t.Errorf("play = %+v, want refreshed P from 0", got)
	}

	s := h.snapshot(t)
	if s.Current == nil || s.Current.Title != "P" {
		t.Fatalf("current = %v, want P", s.Current)
	}
	if !s.StartTime.Equal(h.clock.Now()) {
		t.Errorf("start time = %v, want %v", s.StartTime, h.clock.Now())
	}
}

func TestConnectFailureKeepsQueue(t *testing.T) {
	h := newHarness(t, 5)
	h.sink.connectErr = errors.New("voice handshake failed")
	h.resolver.add("a", track("A"))
	h.add(t, "a", AddOptions{})

	if err := h.player.PlayNext(context.Background(), &testChannel); err == nil {
		t.Fatal("expected connect error")
	}
	if s := h.snapshot(t); s.Current != nil || len(s.Queue) != 1 {
		t.Errorf("state changed after failed connect: %+v", s)
	}
}

func TestCompletionAdvancesQueue(t *testing.T) {
	h := newHarness(t, 5)
	h.resolver.add("ab", track("A"), track("B"))
	h.add(t, "ab", AddOptions{Playlist: true})
	if err := h.player.PlayNext(context.Background(), &testChannel); err != nil {
		t.Fatalf("PlayNext: %v", err)
	}
	waitFor(t, "A playing", func() bool { return len(h.sink.playCalls()) == 1 })

	h.sink.finish()
	waitFor(t, "B playing", func() bool { return len(h.sink.playCalls()) == 2 })
	if got := h.sink.playCalls()[1].url; got != "https://example.com/B#media" {
		t.Errorf("second play = %q", got)
	}

	h.sink.finish()
	waitFor(t, "idle", func() bool {
		s := h.snapshot(t)
		return s.Current == nil
	})
}

func TestSkipDiscardsStaleCompletion(t *testing.T) {
	h := newHarness(t, 5)
	h.resolver.add("abc", track("A"), track("B"), track("C"))
	h.add(t, "abc", AddOptions{Playlist: true})
	if err := h.player.PlayNext(context.Background(), &testChannel); err != nil {
		t.Fatalf("PlayNext: %v", err)
	}
	waitFor(t, "A playing", func() bool { return len(h.sink.playCalls()) == 1 })

	skipped, err := h.player.Skip(context.Background())
	if err != nil || skipped.Title != "A" {
		t.Fatalf("Skip = %v, %v", skipped, err)
	}
	waitFor(t, "B playing", func() bool { return len(h.sink.playCalls()) == 2 })

	// The stopped stream of A reports completion late; it must not pop C.
	time.Sleep(100 * time.Millisecond)
	s := h.snapshot(t)
	if s.Current == nil || s.Current.Title != "B" {
		t.Fatalf("current = %v, want B", s.Current)
	}
	if got := titles(s.Queue); !slices.Equal(got, []string{"C"}) {
		t.Errorf("queue = %v, want [C]", got)
	}
}

func TestSkipNothingPlaying(t *testing.T) {
	h := newHarness(t, 5)
	if _, err := h.player.Skip(context.Background()); !errors.Is(err, ErrNothingPlaying) {
		t.Errorf("err = %v, want ErrNothingPlaying", err)
	}
}

func TestPrepareFailureSkipsTrack(t *testing.T) {
	h := newHarness(t, 5)
	h.resolver.add("ab", track("A"), track("B"))
	h.resolver.refreshErr["https://example.com/A"] = errors.New("video unavailable")
	h.add(t, "ab", AddOptions{Playlist: true})

	if err := h.player.PlayNext(context.Background(), &testChannel); err != nil {
		t.Fatalf("PlayNext: %v", err)
	}
	waitFor(t, "B playing", func() bool { return len(h.sink.playCalls()) == 1 })
	if got := h.sink.playCalls()[0].url; got != "https://example.com/B#media" {
		t.Errorf("play = %q, want B", got)
	}
	if h.notifier.count() != 1 {
		t.Errorf("notifications = %d, want 1", h.notifier.count())
	}
}

func TestConsecutiveFailuresAreCapped(t *testing.T) {
	h := newHarness(t, 2)
	h.resolver.add("abc", track("A"), track("B"), track("C"))
	h.resolver.refreshErr["https://example.com/A"] = errors.New("gone")
	h.resolver.refreshErr["https://example.com/B"] = errors.New("gone")
	h.add(t, "abc", AddOptions{Playlist: true})

	if err := h.player.PlayNext(context.Background(), &testChannel); err != nil {
		t.Fatalf("PlayNext: %v", err)
	}
	waitFor(t, "terminal notice", func() bool { return h.notifier.count() == 3 })

	s := h.snapshot(t)
	if s.Current != nil {
		t.Errorf("current = %v, want idle", s.Current.Title)
	}
	if got := titles(s.Queue); !slices.Equal(got, []string{"C"}) {
		t.Errorf("queue = %v, want [C] left intact", got)
	}
	if len(h.sink.playCalls()) != 0 {
		t.Error("sink should not have played anything")
	}
}

func TestEnsurePlayingRespectsPauseAndCurrent(t *testing.T) {
	h := newHarness(t, 5)
	h.resolver.add("a", track("A"))
	h.resolver.add("b", track("B"))
	h.add(t, "a", AddOptions{})

	started, err := h.player.EnsurePlaying(context.Background(), &testChannel)
	if err != nil || !started {
		t.Fatalf("EnsurePlaying = %v, %v", started, err)
	}
	waitFor(t, "A playing", func() bool { return len(h.sink.playCalls()) == 1 })

	h.add(t, "b", AddOptions{})
	if started, _ := h.player.EnsurePlaying(context.Background(), &testChannel); started {
		t.Error("EnsurePlaying started a track while one is current")
	}

	if paused, _, err := h.player.TogglePause(context.Background()); err != nil || !paused {
		t.Fatalf("TogglePause = %v, %v", paused, err)
	}
	if started, _ := h.player.EnsurePlaying(context.Background(), &testChannel); started {
		t.Error("EnsurePlaying started a track while paused")
	}
	if n := len(h.sink.playCalls()); n != 1 {
		t.Errorf("plays = %d, want 1", n)
	}
}

// --- Pause / seek ---

func TestTogglePauseBookkeeping(t *testing.T) {
	h := newHarness(t, 5)
	h.resolver.add("a", track("A"))
	h.add(t, "a", AddOptions{})
	if err := h.player.PlayNext(context.Background(), &testChannel); err != nil {
		t.Fatalf("PlayNext: %v", err)
	}
	waitFor(t, "A playing", func() bool { return h.sink.Playing() })

	h.clock.Advance(30 * time.Second)
	paused, tr, err := h.player.TogglePause(context.Background())
	if err != nil || !paused || tr.Title != "A" {
		t.Fatalf("pause = %v, %v, %v", paused, tr, err)
	}
	s := h.snapshot(t)
	if s.PausedOffset == nil || *s.PausedOffset != 30*time.Second {
		t.Fatalf("paused offset = %v, want 30s", s.PausedOffset)
	}

	h.clock.Advance(10 * time.Minute)
	if s := h.snapshot(t); s.Elapsed != 30*time.Second {
		t.Errorf("elapsed while paused = %v, want 30s", s.Elapsed)
	}

	paused, _, err = h.player.TogglePause(context.Background())
	if err != nil || paused {
		t.Fatalf("resume = %v, %v", paused, err)
	}
	s = h.snapshot(t)
	if s.PausedOffset != nil {
		t.Error("paused offset not cleared on resume")
	}
	if want := h.clock.Now().Add(-30 * time.Second); !s.StartTime.Equal(want) {
		t.Errorf("start time = %v, want %v", s.StartTime, want)
	}

	h.clock.Advance(5 * time.Second)
	if s := h.snapshot(t); s.Elapsed != 35*time.Second {
		t.Errorf("elapsed after resume = %v, want 35s", s.Elapsed)
	}
}

func TestTogglePauseNothingPlaying(t *testing.T) {
	h := newHarness(t, 5)
	if _, _, err := h.player.TogglePause(context.Background()); !errors.Is(err, ErrNothingPlaying) {
		t.Errorf("err = %v, want ErrNothingPlaying", err)
	}
}

func TestSeek(t *testing.T) {
	h := newHarness(t, 5)
	h.resolver.add("a", track("A"))
	h.add(t, "a", AddOptions{})

	if _, err := h.player.Seek(context.Background(), time.Minute); !errors.Is(err, ErrNothingPlaying) {
		t.Fatalf("seek idle err = %v", err)
	}

	if err := h.player.PlayNext(context.Background(), &testChannel); err != nil {
		t.Fatalf("PlayNext: %v", err)
	}
	waitFor(t, "A playing", func() bool { return len(h.sink.playCalls()) == 1 })

	if _, err := h.player.Seek(context.Background(), 3*time.Minute); !errors.Is(err, ErrSeekOutOfRange) {
		t.Fatalf("seek past end err = %v, want ErrSeekOutOfRange", err)
	}

	h.clock.Advance(20 * time.Second)
	tr, err := h.player.Seek(context.Background(), time.Minute)
	if err != nil || tr.Title != "A" {
		t.Fatalf("Seek = %v, %v", tr, err)
	}

	calls := h.sink.playCalls()
	if len(calls) != 2 || calls[1].offset != time.Minute {
		t.Fatalf("plays = %+v, want second play at 1m", calls)
	}
	if h.resolver.refreshCount() != 2 {
		t.Errorf("refreshes = %d, want a fresh URL for the seek", h.resolver.refreshCount())
	}

	time.Sleep(100 * time.Millisecond)
	s := h.snapshot(t)
	if s.Current == nil || s.Current.Title != "A" {
		t.Fatalf("stale completion advanced the queue: current = %v", s.Current)
	}
	if s.Elapsed != time.Minute {
		t.Errorf("elapsed = %v, want 1m", s.Elapsed)
	}
}

// --- Queue editing ---

func TestRemoveClearShuffle(t *testing.T) {
	h := newHarness(t, 5)
	var all []*Track
	for i := range 6 {
		all = append(all, track(fmt.Sprintf("T%d", i)))
	}
	h.resolver.add("all", all...)
	h.add(t, "all", AddOptions{Playlist: true})

	removed, err := h.player.Remove(context.Background(), 2)
	if err != nil || removed.Title != "T1" {
		t.Fatalf("Remove(2) = %v, %v", removed, err)
	}
	if _, err := h.player.Remove(context.Background(), 6); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Remove(6) err = %v, want ErrIndexOutOfRange", err)
	}
	if _, err := h.player.Remove(context.Background(), 0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Remove(0) err = %v, want ErrIndexOutOfRange", err)
	}

	if err := h.player.Shuffle(context.Background()); err != nil {
		t.Fatalf("Shuffle: %v", err)
	}
	got := titles(h.snapshot(t).Queue)
	slices.Sort(got)
	if !slices.Equal(got, []string{"T0", "T2", "T3", "T4", "T5"}) {
		t.Errorf("shuffle changed queue contents: %v", got)
	}

	if err := h.player.Clear(context.Background()); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if s := h.snapshot(t); len(s.Queue)+len(s.NowQueue) != 0 {
		t.Errorf("queues not empty after Clear")
	}
}

func TestClearKeepsCurrentTrack(t *testing.T) {
	h := newHarness(t, 5)
	h.resolver.add("ab", track("A"), track("B"))
	h.resolver.add("p", track("P"))
	h.add(t, "ab", AddOptions{Playlist: true})
	if err := h.player.PlayNext(context.Background(), &testChannel); err != nil {
		t.Fatalf("PlayNext: %v", err)
	}
	waitFor(t, "A playing", func() bool { return h.sink.Playing() })
	h.add(t, "p", AddOptions{Priority: true})

	h.clock.Advance(30 * time.Second)
	before := h.snapshot(t)
	if before.Current == nil || before.Current.Title != "A" {
		t.Fatalf("current = %v, want A", before.Current)
	}

	if err := h.player.Clear(context.Background()); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	s := h.snapshot(t)
	if len(s.Queue) != 0 || len(s.NowQueue) != 0 {
		t.Errorf("queues = %v / %v, want empty", titles(s.Queue), titles(s.NowQueue))
	}
	if s.Current == nil || s.Current.Title != "A" {
		t.Errorf("current = %v, want A", s.Current)
	}
	if !s.StartTime.Equal(before.StartTime) {
		t.Errorf("start time = %v, want %v", s.StartTime, before.StartTime)
	}
	if s.Elapsed != 30*time.Second {
		t.Errorf("elapsed = %v, want 30s", s.Elapsed)
	}
	if !s.Playing {
		t.Error("Clear stopped playback")
	}
	h.sink.mu.Lock()
	stops := h.sink.stops
	h.sink.mu.Unlock()
	if stops != 0 {
		t.Errorf("sink stopped %d times, want 0", stops)
	}
}

func TestStopClearsEverything(t *testing.T) {
	h := newHarness(t, 5)
	h.resolver.add("ab", track("A"), track("B"))
	h.add(t, "ab", AddOptions{Playlist: true})
	if err := h.player.PlayNext(context.Background(), &testChannel); err != nil {
		t.Fatalf("PlayNext: %v", err)
	}
	waitFor(t, "A playing", func() bool { return h.sink.Playing() })

	if err := h.player.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	s := h.snapshot(t)
	if s.Current != nil || len(s.Queue) != 0 || s.Playing {
		t.Errorf("state after stop: %+v", s)
	}
	if !s.Connected {
		t.Error("stop should keep the voice connection")
	}
}

func TestClosedPlayerRejectsCalls(t *testing.T) {
	h := newHarness(t, 5)
	h.player.Close(context.Background())
	if err := h.player.Clear(context.Background()); !errors.Is(err, ErrPlayerClosed) {
		t.Errorf("err = %v, want ErrPlayerClosed", err)
	}
	if !h.sink.disconnected {
		t.Error("close did not disconnect the sink")
	}
}
