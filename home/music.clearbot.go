package home

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/rest"
	"github.com/leeineian/jukebox/sys"
	"golang.org/x/time/rate"
)

const defaultClearbotLimit = 10

// handleClearbot deletes the bot's own messages among the last few in the
// channel.
func handleClearbot(event *events.ApplicationCommandInteractionCreate) {
	if !sys.GlobalConfig.IsOwner(event.User().ID) {
		respond(event, sys.MsgMusicClearbotOwner, true)
		return
	}
	data := event.SlashCommandInteractionData()
	limit := defaultClearbotLimit
	if l, ok := data.OptInt("limit"); ok && l > 0 {
		limit = l
	}

	_ = event.DeferCreateMessage(true)

	client := event.Client()
	channelID := event.Channel().ID()
	ctx, cancel := context.WithTimeout(sys.AppContext, 2*time.Minute)
	defer cancel()

	messages, err := client.Rest.GetMessages(channelID, 0, 0, 0, limit, rest.WithCtx(ctx))
	if err != nil {
		editDeferredText(event, fmt.Sprintf(sys.MsgMusicGenericError, err))
		return
	}

	limiter := rate.NewLimiter(rate.Limit(4), 5)
	deleted := 0
	for _, msg := range messages {
		if msg.Author.ID != client.ID() {
			continue
		}
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		if err := client.Rest.DeleteMessage(channelID, msg.ID, rest.WithCtx(ctx)); err != nil {
			sys.LogWarn(sys.MsgNotifyFail, *event.GuildID(), err)
			continue
		}
		deleted++
	}
	editDeferredText(event, fmt.Sprintf(sys.MsgMusicClearbotDone, deleted))
}

// handleRestart answers first, then cancels the app context. Players are shut
// down by the normal exit path.
func handleRestart(event *events.ApplicationCommandInteractionCreate) {
	if !sys.GlobalConfig.IsOwner(event.User().ID) {
		respond(event, sys.MsgMusicClearbotOwner, true)
		return
	}
	sys.LogInfo(sys.MsgRestartRequested, event.User().Username)
	respond(event, sys.MsgRestarting, false)
	sys.RequestShutdown()
}
