package home

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/omit"
	"github.com/leeineian/jukebox/sys"
)

func init() {
	manageMessages := discord.PermissionManageMessages

	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:        "music",
		Description: "Music player",
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "play",
				Description: "Add a track to the queue",
				Options: []discord.ApplicationCommandOption{
					queryOption("The URL or song name to play"),
					discord.ApplicationCommandOptionInt{
						Name:        "position",
						Description: "Queue position to insert at (1 = next)",
						Required:    false,
						MinValue:    intPtr(1),
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "playlist",
				Description: "Add every track of a playlist to the queue",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionString{
						Name:        "query",
						Description: "Playlist URL or search",
						Required:    true,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "now",
				Description: "Add a track to the priority queue",
				Options: []discord.ApplicationCommandOption{
					queryOption("The URL or song name to play first"),
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "queue",
				Description: "Show the current queue",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "skip",
				Description: "Skip the current track or remove a queued one",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionInt{
						Name:        "index",
						Description: "Queue entry to remove (0 or empty skips the current track)",
						Required:    false,
						MinValue:    intPtr(0),
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "stop",
				Description: "Stop playback and clear the queue",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "pause",
				Description: "Toggle pause for the current track",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "clear",
				Description: "Clear the queue",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "shuffle",
				Description: "Shuffle the queue",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "seek",
				Description: "Seek to a position in the current track",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionString{
						Name:        "position",
						Description: "ss, mm:ss or hh:mm:ss",
						Required:    true,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "join",
				Description: "Join your voice channel",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "leave",
				Description: "Leave the voice channel and clear the queue",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "history",
				Description: "Show recently queued tracks",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionString{
						Name:        "since",
						Description: "e.g. 2h, yesterday, last week",
						Required:    false,
					},
					discord.ApplicationCommandOptionInt{
						Name:        "limit",
						Description: "Number of entries (default 10)",
						Required:    false,
						MinValue:    intPtr(1),
						MaxValue:    intPtr(25),
					},
				},
			},
		},
	}, handleMusic)

	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:                     "clearbot",
		Description:              "Delete this bot's messages in the current channel (Owner Only)",
		DefaultMemberPermissions: omit.New(&manageMessages),
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionInt{
				Name:        "limit",
				Description: "How many recent messages to scan (default 10)",
				Required:    false,
				MinValue:    intPtr(1),
				MaxValue:    intPtr(100),
			},
		},
	}, handleClearbot)

	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:                     "restart",
		Description:              "Shut the bot down so its supervisor restarts it (Owner Only)",
		DefaultMemberPermissions: omit.New(&manageMessages),
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
	}, handleRestart)

	sys.RegisterAutocompleteHandler("music", handleMusicAutocomplete)
	sys.RegisterComponentHandler(controlPrefix, handleMusicControl)
	sys.RegisterMessageCreateHandler(handleMusicChannelMessage)
	sys.RegisterVoiceStateUpdateHandler(handleVoiceStateUpdate)
}

func queryOption(desc string) discord.ApplicationCommandOptionString {
	return discord.ApplicationCommandOptionString{
		Name:         "query",
		Description:  desc,
		Required:     true,
		Autocomplete: true,
	}
}

// handleMusic routes /music subcommands to their handlers
func handleMusic(event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()
	if data.SubCommandName == nil {
		return
	}
	if event.GuildID() == nil {
		respond(event, sys.MsgMusicNotInGuild, true)
		return
	}

	switch *data.SubCommandName {
	case "play":
		handleMusicPlay(event, data)
	case "playlist":
		handleMusicPlaylist(event, data)
	case "now":
		handleMusicNow(event, data)
	case "queue":
		handleMusicQueue(event, data)
	case "skip":
		handleMusicSkip(event, data)
	case "stop":
		handleMusicStop(event, data)
	case "pause":
		handleMusicPause(event, data)
	case "clear":
		handleMusicClear(event, data)
	case "shuffle":
		handleMusicShuffle(event, data)
	case "seek":
		handleMusicSeek(event, data)
	case "join":
		handleMusicJoin(event, data)
	case "leave":
		handleMusicLeave(event, data)
	case "history":
		handleMusicHistory(event, data)
	}
}

func intPtr(v int) *int {
	return &v
}
