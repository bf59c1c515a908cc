package proc

import (
	"context"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/gateway"
	"github.com/leeineian/jukebox/sys"
	"golang.org/x/time/rate"
)

// BotPresence mirrors playback into the bot's gateway presence. Updates are
// coalesced so only the newest one is sent, and they are rate limited to stay
// under the gateway's presence quota.
type BotPresence struct {
	client  *bot.Client
	updates chan string
	limiter *rate.Limiter
}

// idleTitle marks an idle update on the updates channel.
const idleTitle = ""

func NewBotPresence(client *bot.Client) *BotPresence {
	return &BotPresence{
		client:  client,
		updates: make(chan string, 1),
		limiter: rate.NewLimiter(rate.Limit(0.5), 3),
	}
}

func (b *BotPresence) Listening(title string) {
	b.offer(title)
}

func (b *BotPresence) Idle() {
	b.offer(idleTitle)
}

// offer replaces any pending update with title.
func (b *BotPresence) offer(title string) {
	for {
		select {
		case b.updates <- title:
			return
		default:
		}
		select {
		case <-b.updates:
		default:
		}
	}
}

// Run sends presence updates until ctx is done. Registered as a daemon.
func (b *BotPresence) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case title := <-b.updates:
			if err := b.limiter.Wait(ctx); err != nil {
				return
			}
			// A newer update may have arrived while waiting.
			select {
			case title = <-b.updates:
			default:
			}
			b.apply(ctx, title)
		}
	}
}

func (b *BotPresence) apply(ctx context.Context, title string) {
	if b.client == nil {
		return
	}
	var err error
	if title == idleTitle {
		err = b.client.SetPresence(ctx,
			gateway.WithOnlineStatus(discord.OnlineStatusIdle),
			gateway.WithPlayingActivity(""),
		)
	} else {
		err = b.client.SetPresence(ctx,
			gateway.WithOnlineStatus(discord.OnlineStatusOnline),
			gateway.WithListeningActivity(sys.Truncate(title, 128)),
		)
	}
	if err != nil {
		sys.LogWarn(sys.MsgPresenceUpdateFail, err)
	}
}

// Presences fans every update out to each member.
type Presences []Presence

func (ps Presences) Listening(title string) {
	for _, p := range ps {
		p.Listening(title)
	}
}

func (ps Presences) Idle() {
	for _, p := range ps {
		p.Idle()
	}
}
