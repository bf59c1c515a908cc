package home

import (
	"context"
	"sync"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

// Music carries what the command handlers need at runtime.
type Music struct {
	Registry *proc.Registry
	History  *proc.HistoryLog
	Notifier *ChannelNotifier
}

var (
	musicMu sync.RWMutex
	music   *Music
)

// Setup installs the runtime dependencies. It must run before the gateway
// opens.
func Setup(m *Music) {
	musicMu.Lock()
	defer musicMu.Unlock()
	music = m
}

func getMusic() *Music {
	musicMu.RLock()
	defer musicMu.RUnlock()
	return music
}

func playerFor(guildID snowflake.ID) (*proc.GuildPlayer, bool) {
	m := getMusic()
	if m == nil || m.Registry == nil {
		return nil, false
	}
	return m.Registry.Get(guildID), true
}

func lookupPlayer(guildID snowflake.ID) (*proc.GuildPlayer, bool) {
	m := getMusic()
	if m == nil || m.Registry == nil {
		return nil, false
	}
	return m.Registry.Lookup(guildID)
}

// userVoiceChannel returns the voice channel the user currently sits in.
func userVoiceChannel(client *bot.Client, guildID, userID snowflake.ID) *snowflake.ID {
	vs, ok := client.Caches.VoiceState(guildID, userID)
	if !ok || vs.ChannelID == nil {
		return nil
	}
	id := *vs.ChannelID
	return &id
}

// --- Responses ---

func textContainer(content string) discord.ContainerComponent {
	return discord.NewContainer(discord.NewTextDisplay(content))
}

func respond(event *events.ApplicationCommandInteractionCreate, content string, ephemeral bool) {
	b := discord.NewMessageCreateBuilder().
		SetIsComponentsV2(true).
		AddComponents(textContainer(content))
	if ephemeral {
		b = b.SetEphemeral(true)
	}
	_ = event.CreateMessage(b.Build())
}

func respondComponents(event *events.ApplicationCommandInteractionCreate, components ...discord.LayoutComponent) {
	_ = event.CreateMessage(discord.NewMessageCreateBuilder().
		SetIsComponentsV2(true).
		AddComponents(components...).
		Build())
}

// editDeferred replaces the deferred "thinking" response.
func editDeferred(event *events.ApplicationCommandInteractionCreate, components ...discord.LayoutComponent) {
	_, _ = event.Client().Rest.UpdateInteractionResponse(event.ApplicationID(), event.Token(),
		discord.NewMessageUpdateBuilder().
			SetIsComponentsV2(true).
			AddComponents(components...).
			Build())
}

func editDeferredText(event *events.ApplicationCommandInteractionCreate, content string) {
	editDeferred(event, textContainer(content))
}

// --- Notifications ---

// ChannelNotifier posts player notices to the configured music channel, or
// to the channel where the guild last used a music command.
type ChannelNotifier struct {
	client  *bot.Client
	fixed   snowflake.ID
	mu      sync.Mutex
	lastUse map[snowflake.ID]snowflake.ID
}

func NewChannelNotifier(client *bot.Client, musicChannelID snowflake.ID) *ChannelNotifier {
	return &ChannelNotifier{
		client:  client,
		fixed:   musicChannelID,
		lastUse: make(map[snowflake.ID]snowflake.ID),
	}
}

// Remember records channelID as the guild's fallback notice channel.
func (n *ChannelNotifier) Remember(guildID, channelID snowflake.ID) {
	if n == nil {
		return
	}
	n.mu.Lock()
	n.lastUse[guildID] = channelID
	n.mu.Unlock()
}

func (n *ChannelNotifier) Target(guildID snowflake.ID) snowflake.ID {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fixed != 0 {
		if ch, ok := n.client.Caches.Channel(n.fixed); ok {
			if gc, ok := ch.(discord.GuildChannel); ok && gc.GuildID() == guildID {
				return n.fixed
			}
		}
	}
	return n.lastUse[guildID]
}

// Notify posts in the background; it is called from the player goroutine.
func (n *ChannelNotifier) Notify(guildID snowflake.ID, content string) {
	channelID := n.Target(guildID)
	if channelID == 0 {
		return
	}
	go n.send(guildID, channelID, content)
}

func (n *ChannelNotifier) send(guildID, channelID snowflake.ID, content string) {
	ctx, cancel := context.WithTimeout(sys.AppContext, 10*time.Second)
	defer cancel()
	_, err := n.client.Rest.CreateMessage(channelID, discord.NewMessageCreateBuilder().
		SetContent(content).
		Build(), rest.WithCtx(ctx))
	if err != nil {
		sys.LogWarn(sys.MsgNotifyFail, guildID, err)
	}
}

func rememberChannel(guildID, channelID snowflake.ID) {
	if m := getMusic(); m != nil {
		m.Notifier.Remember(guildID, channelID)
	}
}
