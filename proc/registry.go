package proc

import (
	"context"
	"sync"

	"github.com/disgoorg/snowflake/v2"
)

// PlayerFactory builds the player for a guild the first time it is needed.
type PlayerFactory func(guildID snowflake.ID) *GuildPlayer

// Registry maps guilds to their players. It is owned by the application and
// handed to the command layer.
type Registry struct {
	mu      sync.Mutex
	players map[snowflake.ID]*GuildPlayer
	factory PlayerFactory
}

func NewRegistry(factory PlayerFactory) *Registry {
	return &Registry{
		players: make(map[snowflake.ID]*GuildPlayer),
		factory: factory,
	}
}

// Get returns the guild's player, creating it on first use.
func (r *Registry) Get(guildID snowflake.ID) *GuildPlayer {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.players[guildID]; ok {
		return p
	}
	p := r.factory(guildID)
	r.players[guildID] = p
	return p
}

// Lookup returns the guild's player without creating one.
func (r *Registry) Lookup(guildID snowflake.ID) (*GuildPlayer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[guildID]
	return p, ok
}

// Remove closes and forgets the guild's player. It reports whether one existed.
func (r *Registry) Remove(ctx context.Context, guildID snowflake.ID) bool {
	r.mu.Lock()
	p, ok := r.players[guildID]
	delete(r.players, guildID)
	r.mu.Unlock()

	if ok {
		p.Close(ctx)
	}
	return ok
}

// Players returns the live players in no particular order.
func (r *Registry) Players() []*GuildPlayer {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*GuildPlayer, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// Shutdown closes every player concurrently.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	players := make([]*GuildPlayer, 0, len(r.players))
	for id, p := range r.players {
		players = append(players, p)
		delete(r.players, id)
	}
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, p := range players {
		wg.Add(1)
		go func(p *GuildPlayer) {
			defer wg.Done()
			p.Close(ctx)
		}(p)
	}
	wg.Wait()
}
