package home

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

// playRequest is one queueing request from a slash command or a plain
// message in the music channel.
type playRequest struct {
	client    *bot.Client
	guildID   snowflake.ID
	channelID snowflake.ID
	userID    snowflake.ID
	query     string
	opts      proc.AddOptions
}

type playOutcome struct {
	added   []*proc.Track
	skipped []*proc.Track
	paused  bool
}

// enqueueAndStart makes sure the bot is in voice, queues the request and
// starts playback unless the player is paused.
func enqueueAndStart(ctx context.Context, req playRequest) (*playOutcome, error) {
	p, ok := playerFor(req.guildID)
	if !ok {
		return nil, proc.ErrPlayerClosed
	}
	rememberChannel(req.guildID, req.channelID)

	voiceChannel := userVoiceChannel(req.client, req.guildID, req.userID)
	if !p.Connected() {
		if voiceChannel == nil {
			return nil, proc.ErrNoVoiceChannel
		}
		if err := p.Connect(ctx, *voiceChannel); err != nil {
			sys.LogWarn(sys.MsgVoiceJoinFail, req.guildID, err)
			return nil, err
		}
	}

	res, err := p.AddTrack(ctx, req.query, req.userID, req.opts)
	if err != nil {
		return nil, err
	}

	out := &playOutcome{added: res.Tracks, skipped: res.Skipped}
	if p.Sink().Paused() {
		out.paused = true
		return out, nil
	}
	if _, err := p.EnsurePlaying(ctx, voiceChannel); err != nil {
		sys.LogWarn(sys.MsgPlayerAdvanceFail, req.guildID, err)
	}
	return out, nil
}

// playErrorText turns an enqueue failure into the reply shown to the user.
func playErrorText(err error, userID snowflake.ID) string {
	switch {
	case errors.Is(err, proc.ErrNoVoiceChannel):
		return fmt.Sprintf(sys.MsgMusicNotInVoice, mention(userID))
	case errors.Is(err, proc.ErrResolution):
		return fmt.Sprintf(sys.MsgMusicAddFailed, err)
	default:
		return fmt.Sprintf(sys.MsgMusicGenericError, err)
	}
}

func duplicateLines(skipped []*proc.Track) string {
	lines := make([]string, 0, len(skipped))
	for _, t := range skipped {
		lines = append(lines, fmt.Sprintf(sys.MsgMusicDuplicate, t.Title))
	}
	return strings.Join(lines, "\n")
}

// singleTrackReply builds the reply for play and now.
func singleTrackReply(heading string, out *playOutcome, userID snowflake.ID) []discord.LayoutComponent {
	var comps []discord.LayoutComponent
	if len(out.added) > 0 {
		note := ""
		if out.paused {
			note = sys.MsgMusicPausedNote
		}
		t := out.added[0]
		comps = append(comps, trackCard(renderTrackAdded(heading, t, userID, note), t.Thumbnail))
	}
	if len(out.skipped) > 0 {
		comps = append(comps, textContainer(duplicateLines(out.skipped)))
	}
	return comps
}

func newPlayRequest(event *events.ApplicationCommandInteractionCreate, query string, opts proc.AddOptions) playRequest {
	return playRequest{
		client:    event.Client(),
		guildID:   *event.GuildID(),
		channelID: event.Channel().ID(),
		userID:    event.User().ID,
		query:     strings.TrimSpace(query),
		opts:      opts,
	}
}

func handleMusicPlay(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	query := data.String("query")
	opts := proc.AddOptions{}
	if pos, ok := data.OptInt("position"); ok && pos > 0 {
		idx := pos - 1
		opts.Index = &idx
	}

	_ = event.DeferCreateMessage(false)
	req := newPlayRequest(event, query, opts)
	out, err := enqueueAndStart(sys.AppContext, req)
	if err != nil {
		editDeferredText(event, playErrorText(err, req.userID))
		return
	}
	editDeferred(event, singleTrackReply("Added to Queue", out, req.userID)...)
}

func handleMusicNow(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	query := data.String("query")

	_ = event.DeferCreateMessage(false)
	req := newPlayRequest(event, query, proc.AddOptions{Priority: true})
	out, err := enqueueAndStart(sys.AppContext, req)
	if err != nil {
		editDeferredText(event, playErrorText(err, req.userID))
		return
	}
	editDeferred(event, singleTrackReply("Added to Priority Queue", out, req.userID)...)
}

func handleMusicPlaylist(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	query := data.String("query")

	respond(event, sys.MsgMusicProcessing, false)
	req := newPlayRequest(event, query, proc.AddOptions{Playlist: true})
	out, err := enqueueAndStart(sys.AppContext, req)

	var text string
	switch {
	case err != nil:
		text = playErrorText(err, req.userID)
	case out.paused:
		text = fmt.Sprintf(sys.MsgMusicPlaylistPaused, len(out.added))
	default:
		text = fmt.Sprintf(sys.MsgMusicPlaylistAdded, len(out.added))
	}
	if err == nil && len(out.skipped) > 0 {
		text += "\n" + duplicateLines(out.skipped)
	}
	editDeferredText(event, text)
}

// handleMusicChannelMessage treats plain messages in the music channel as
// play requests.
func handleMusicChannelMessage(event *events.MessageCreate) {
	cfg := sys.GlobalConfig
	if cfg == nil || cfg.MusicChannelID == 0 || event.ChannelID != cfg.MusicChannelID || event.GuildID == nil {
		return
	}
	query := strings.TrimSpace(event.Message.Content)
	if query == "" || strings.HasPrefix(query, "/") {
		return
	}

	client := event.Client()
	_ = client.Rest.DeleteMessage(event.ChannelID, event.MessageID)

	req := playRequest{
		client:    client,
		guildID:   *event.GuildID,
		channelID: event.ChannelID,
		userID:    event.Message.Author.ID,
		query:     query,
	}
	out, err := enqueueAndStart(sys.AppContext, req)

	b := discord.NewMessageCreateBuilder().SetIsComponentsV2(true)
	if err != nil {
		b = b.AddComponents(textContainer(playErrorText(err, req.userID)))
	} else {
		b = b.AddComponents(singleTrackReply("Added to Queue", out, req.userID)...)
	}
	if _, err := client.Rest.CreateMessage(event.ChannelID, b.Build()); err != nil {
		sys.LogWarn(sys.MsgNotifyFail, req.guildID, err)
	}
}

func handleMusicAutocomplete(event *events.AutocompleteInteractionCreate) {
	f := event.Data.Focused()
	if f.Name != "query" {
		_ = event.AutocompleteResult(nil)
		return
	}
	q := strings.TrimSpace(f.String())
	if q == "" || strings.Contains(q, "http") {
		_ = event.AutocompleteResult(nil)
		return
	}

	var cs []discord.AutocompleteChoice
	for _, r := range proc.Search(sys.AppContext, q) {
		v := r.URL
		if len(v) > 100 {
			v = sys.Truncate(r.Title, 100)
		}
		cs = append(cs, discord.AutocompleteChoiceString{Name: sys.Truncate(r.Title, 100), Value: v})
	}
	_ = event.AutocompleteResult(cs)
}
