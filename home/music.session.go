package home

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/sys"
)

func handleMusicJoin(event *events.ApplicationCommandInteractionCreate, _ discord.SlashCommandInteractionData) {
	guildID := *event.GuildID()
	channelID := userVoiceChannel(event.Client(), guildID, event.User().ID)
	if channelID == nil {
		respond(event, fmt.Sprintf(sys.MsgMusicNotInVoice, mention(event.User().ID)), true)
		return
	}
	p, ok := playerFor(guildID)
	if !ok {
		respond(event, sys.MsgMusicNotConnected, true)
		return
	}
	rememberChannel(guildID, event.Channel().ID())

	_ = event.DeferCreateMessage(false)
	if err := p.Connect(sys.AppContext, *channelID); err != nil {
		sys.LogWarn(sys.MsgVoiceJoinFail, guildID, err)
		editDeferredText(event, fmt.Sprintf(sys.MsgMusicGenericError, err))
		return
	}
	editDeferredText(event, fmt.Sprintf(sys.MsgMusicJoined, "<#"+channelID.String()+">"))
}

func handleMusicLeave(event *events.ApplicationCommandInteractionCreate, _ discord.SlashCommandInteractionData) {
	guildID := *event.GuildID()
	p, ok := lookupPlayer(guildID)
	if !ok || !p.Connected() {
		respond(event, sys.MsgMusicNotConnected, true)
		return
	}
	_ = event.DeferCreateMessage(false)
	leaveGuild(guildID)
	editDeferredText(event, sys.MsgMusicLeft)
}

// leaveGuild drops the guild's player, which clears its queues and
// disconnects from voice.
func leaveGuild(guildID snowflake.ID) {
	m := getMusic()
	if m == nil {
		return
	}
	ctx, cancel := context.WithTimeout(sys.AppContext, 15*time.Second)
	defer cancel()
	m.Registry.Remove(ctx, guildID)
}

type channelMover interface {
	Moved(channelID snowflake.ID)
}

// handleVoiceStateUpdate follows the bot being moved or disconnected by
// someone else.
func handleVoiceStateUpdate(event *events.GuildVoiceStateUpdate) {
	if event.VoiceState.UserID != event.Client().ID() {
		return
	}
	guildID := event.VoiceState.GuildID
	p, ok := lookupPlayer(guildID)
	if !ok {
		return
	}

	if event.VoiceState.ChannelID == nil {
		if p.Connected() {
			sys.LogVoice(sys.MsgVoiceDisconnected, guildID)
			leaveGuild(guildID)
		}
		return
	}
	if mv, ok := p.Sink().(channelMover); ok {
		mv.Moved(*event.VoiceState.ChannelID)
	}
}
