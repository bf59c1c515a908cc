package home

import (
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/jukebox/sys"
)

const defaultHistoryLimit = 10

func handleMusicHistory(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	m := getMusic()
	if m == nil || m.History == nil {
		respond(event, sys.MsgMusicHistoryEmpty, true)
		return
	}

	var since time.Time
	if s, ok := data.OptString("since"); ok && strings.TrimSpace(s) != "" {
		t, err := sys.ParseSince(s, time.Now())
		if err != nil {
			respond(event, fmt.Sprintf(sys.MsgMusicHistoryBadSince, s), true)
			return
		}
		since = t
	}
	limit := defaultHistoryLimit
	if l, ok := data.OptInt("limit"); ok && l > 0 {
		limit = l
	}

	entries, err := m.History.Recent(sys.AppContext, *event.GuildID(), since, limit)
	if err != nil {
		respond(event, fmt.Sprintf(sys.MsgMusicGenericError, err), true)
		return
	}
	if len(entries) == 0 {
		respond(event, sys.MsgMusicHistoryEmpty, true)
		return
	}
	respondComponents(event, textContainer(renderHistory(entries)))
}
