package home

import (
	"errors"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

const controlPrefix = "music:"

func handleMusicStop(event *events.ApplicationCommandInteractionCreate, _ discord.SlashCommandInteractionData) {
	text := stopPlayer(*event.GuildID())
	respond(event, text, text != sys.MsgMusicStopped)
}

func stopPlayer(guildID snowflake.ID) string {
	p, ok := lookupPlayer(guildID)
	if !ok || !p.Connected() {
		return sys.MsgMusicNotConnected
	}
	if err := p.Stop(sys.AppContext); err != nil {
		return fmt.Sprintf(sys.MsgMusicGenericError, err)
	}
	return sys.MsgMusicStopped
}

func handleMusicPause(event *events.ApplicationCommandInteractionCreate, _ discord.SlashCommandInteractionData) {
	text, ok := togglePause(*event.GuildID())
	respond(event, text, !ok)
}

func togglePause(guildID snowflake.ID) (string, bool) {
	p, ok := lookupPlayer(guildID)
	if !ok || !p.Connected() {
		return sys.MsgMusicNotConnected, false
	}
	paused, track, err := p.TogglePause(sys.AppContext)
	switch {
	case errors.Is(err, proc.ErrNothingPlaying):
		return sys.MsgMusicNothingPlaying, false
	case err != nil:
		return fmt.Sprintf(sys.MsgMusicGenericError, err), false
	case paused:
		return fmt.Sprintf(sys.MsgMusicPaused, track.Title), true
	default:
		return fmt.Sprintf(sys.MsgMusicResumed, track.Title), true
	}
}

func handleMusicSeek(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	pos, err := sys.ParseTime(data.String("position"))
	if err != nil {
		respond(event, sys.MsgMusicSeekFormat, true)
		return
	}
	p, ok := lookupPlayer(*event.GuildID())
	if !ok {
		respond(event, sys.MsgMusicNothingPlaying, true)
		return
	}

	_ = event.DeferCreateMessage(false)
	track, err := p.Seek(sys.AppContext, pos)
	switch {
	case errors.Is(err, proc.ErrNothingPlaying):
		editDeferredText(event, sys.MsgMusicNothingPlaying)
	case errors.Is(err, proc.ErrSeekOutOfRange):
		editDeferredText(event, sys.MsgMusicSeekBeyond)
	case err != nil:
		editDeferredText(event, fmt.Sprintf(sys.MsgMusicSeekFailed, err))
	default:
		editDeferredText(event, fmt.Sprintf(sys.MsgMusicSeeked, sys.FormatDuration(pos), track.Title))
	}
}

// --- Buttons on the queue card ---

func controlRow(paused bool) discord.ActionRowComponent {
	pauseLabel := "Pause"
	if paused {
		pauseLabel = "Resume"
	}
	return discord.NewActionRow(
		discord.NewButton(discord.ButtonStyleSecondary, pauseLabel, controlPrefix+"pause", "", 0),
		discord.NewButton(discord.ButtonStylePrimary, "Skip", controlPrefix+"skip", "", 0),
		discord.NewButton(discord.ButtonStyleSecondary, "Shuffle", controlPrefix+"shuffle", "", 0),
		discord.NewButton(discord.ButtonStyleDanger, "Stop", controlPrefix+"stop", "", 0),
	)
}

func handleMusicControl(event *events.ComponentInteractionCreate) {
	guildID := event.GuildID()
	if guildID == nil {
		return
	}
	action := strings.TrimPrefix(event.Data.CustomID(), controlPrefix)

	var text string
	switch action {
	case "pause":
		text, _ = togglePause(*guildID)
	case "skip":
		text = sys.MsgMusicNothingPlaying
		if p, ok := lookupPlayer(*guildID); ok {
			text, _ = skipCurrent(p)
		}
	case "shuffle":
		text = sys.MsgMusicShuffled
		if p, ok := lookupPlayer(*guildID); ok {
			if err := p.Shuffle(sys.AppContext); err != nil {
				text = fmt.Sprintf(sys.MsgMusicGenericError, err)
			}
		}
	case "stop":
		text = stopPlayer(*guildID)
	default:
		return
	}

	_ = event.CreateMessage(discord.NewMessageCreateBuilder().
		SetIsComponentsV2(true).
		AddComponents(textContainer(text)).
		SetEphemeral(true).
		Build())
}

func skipCurrent(p *proc.GuildPlayer) (string, bool) {
	skipped, err := p.Skip(sys.AppContext)
	switch {
	case errors.Is(err, proc.ErrNothingPlaying):
		return sys.MsgMusicNothingPlaying, false
	case err != nil:
		return fmt.Sprintf(sys.MsgMusicGenericError, err), false
	default:
		return fmt.Sprintf(sys.MsgMusicSkipped, skipped.Title), true
	}
}
