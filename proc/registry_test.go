package proc

import (
	"context"
	"sync"
	"testing"

	"github.com/disgoorg/snowflake/v2"
)

func newTestRegistry() (*Registry, map[snowflake.ID]*fakeSink, *sync.Mutex) {
	sinks := map[snowflake.ID]*fakeSink{}
	var mu sync.Mutex
	r := NewRegistry(func(guildID snowflake.ID) *GuildPlayer {
		s := &fakeSink{connected: true}
		mu.Lock()
		sinks[guildID] = s
		mu.Unlock()
		return NewGuildPlayer(guildID, PlayerDeps{Resolver: newFakeResolver(), Sink: s}, PlayerConfig{})
	})
	return r, sinks, &mu
}

func TestRegistryGetIsLazyAndStable(t *testing.T) {
	r, sinks, _ := newTestRegistry()
	defer r.Shutdown(context.Background())

	if _, ok := r.Lookup(1); ok {
		t.Fatal("Lookup created a player")
	}

	a := r.Get(1)
	if a2 := r.Get(1); a2 != a {
		t.Error("Get returned a different player for the same guild")
	}
	if b := r.Get(2); b == a {
		t.Error("different guilds share a player")
	}
	if r.Len() != 2 || len(sinks) != 2 {
		t.Errorf("Len = %d, sinks = %d, want 2", r.Len(), len(sinks))
	}
	if got := len(r.Players()); got != 2 {
		t.Errorf("Players = %d, want 2", got)
	}
}

func TestRegistryRemove(t *testing.T) {
	r, sinks, mu := newTestRegistry()
	defer r.Shutdown(context.Background())

	p := r.Get(7)
	if !r.Remove(context.Background(), 7) {
		t.Fatal("Remove reported no player")
	}
	if r.Remove(context.Background(), 7) {
		t.Error("second Remove reported a player")
	}
	if _, ok := r.Lookup(7); ok {
		t.Error("player still registered after Remove")
	}
	if err := p.Clear(context.Background()); err != ErrPlayerClosed {
		t.Errorf("removed player err = %v, want ErrPlayerClosed", err)
	}

	mu.Lock()
	s := sinks[7]
	mu.Unlock()
	if s.Connected() {
		t.Error("removed player left voice connected")
	}

	if fresh := r.Get(7); fresh == p {
		t.Error("Get after Remove returned the closed player")
	}
}

func TestRegistryShutdown(t *testing.T) {
	r, sinks, mu := newTestRegistry()
	for i := 1; i <= 5; i++ {
		r.Get(snowflake.ID(i))
	}
	r.Shutdown(context.Background())

	if r.Len() != 0 {
		t.Errorf("Len after Shutdown = %d", r.Len())
	}
	mu.Lock()
	defer mu.Unlock()
	for id, s := range sinks {
		if s.Connected() {
			t.Errorf("guild %s still connected after Shutdown", id)
		}
	}
}
