package home

import (
	"errors"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

func handleMusicQueue(event *events.ApplicationCommandInteractionCreate, _ discord.SlashCommandInteractionData) {
	p, ok := lookupPlayer(*event.GuildID())
	if !ok {
		respond(event, sys.MsgMusicQueueEmpty, true)
		return
	}
	s, err := p.Snapshot(sys.AppContext)
	if err != nil {
		respond(event, fmt.Sprintf(sys.MsgMusicGenericError, err), true)
		return
	}
	if s.Current == nil && len(s.Queue) == 0 && len(s.NowQueue) == 0 {
		respond(event, sys.MsgMusicQueueEmpty, true)
		return
	}
	respondComponents(event, queueCard(s))
}

// handleMusicSkip skips the current track, or removes the index-th normal
// queue entry when index is positive.
func handleMusicSkip(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	p, ok := lookupPlayer(*event.GuildID())
	if !ok {
		respond(event, sys.MsgMusicNothingPlaying, true)
		return
	}
	index, _ := data.OptInt("index")

	if index > 0 {
		removed, err := p.Remove(sys.AppContext, index)
		switch {
		case errors.Is(err, proc.ErrIndexOutOfRange):
			respond(event, sys.MsgMusicIndexTooBig, true)
		case err != nil:
			respond(event, fmt.Sprintf(sys.MsgMusicGenericError, err), true)
		default:
			respond(event, fmt.Sprintf(sys.MsgMusicRemoved, removed.Title), false)
		}
		return
	}

	text, ok := skipCurrent(p)
	respond(event, text, !ok)
}

func handleMusicClear(event *events.ApplicationCommandInteractionCreate, _ discord.SlashCommandInteractionData) {
	if p, ok := lookupPlayer(*event.GuildID()); ok {
		if err := p.Clear(sys.AppContext); err != nil {
			respond(event, fmt.Sprintf(sys.MsgMusicGenericError, err), true)
			return
		}
	}
	respond(event, sys.MsgMusicCleared, false)
}

func handleMusicShuffle(event *events.ApplicationCommandInteractionCreate, _ discord.SlashCommandInteractionData) {
	if p, ok := lookupPlayer(*event.GuildID()); ok {
		if err := p.Shuffle(sys.AppContext); err != nil {
			respond(event, fmt.Sprintf(sys.MsgMusicGenericError, err), true)
			return
		}
	}
	respond(event, sys.MsgMusicShuffled, false)
}
