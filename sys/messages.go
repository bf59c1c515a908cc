package sys

// --- Message Constants ---

const (
	// --- Infrastructure & Lifecycle ---
	MsgConfigFailedToLoad    = "Failed to load config: %v"
	MsgConfigMissingToken    = "DISCORD_TOKEN is not set in .env file"
	MsgConfigInvalidGuild    = "invalid GUILD_ID: must be a valid Snowflake"
	MsgConfigInvalidChannel  = "invalid MUSIC_CHANNEL_ID: %v"
	MsgConfigInvalidNumber   = "invalid %s: %v"
	MsgDatabaseInitSuccess   = "Database initialized successfully"
	MsgDatabaseTableError    = "Failed to create table: %w"
	MsgDatabasePragmaError   = "Failed to set pragma %s: %w"
	MsgWorkerStarting        = "Starting %s worker..."
	MsgBotStarting           = "Starting %s..."
	MsgBotReady              = "%s is ready! (ID: %s) (PID: %d) (Took: %dms)"
	MsgBotShutdown           = "Shutting down %s..."
	MsgBotKillingOld         = "Killing running instance... (PID: %d)"
	MsgBotOldTerminated      = "Old instance terminated."
	MsgBotRegisterFail       = "Command registration failed: %v"
	MsgGenericError          = "%v"
	MsgLoaderPanicRecovered  = "Recovered from panic in handler: %v\n%s"
	MsgLoaderSyncCommands    = "Syncing %s commands..."
	MsgLoaderUpToDate        = "Commands are up to date. (Hash: %s)"
	MsgLoaderRegistered      = "Registered command: %s"
	MsgLoaderRegisterFail    = "failed to register commands: %w"
	MsgLoaderGlobalClear     = "Clearing stale global commands..."
	MsgLoaderGuildClear      = "Clearing stale commands from guild %s"
	MsgYtdlpInstallFail      = "yt-dlp install check failed (falling back to PATH): %v"
	MsgHistoryDropped        = "History buffer full, dropping entry for %s"
	MsgHistoryWriteFail      = "Failed to write history entry for %s: %v"
	MsgHistoryFlushed        = "Flushed %d pending history entries"
	MsgPresenceUpdateFail    = "Failed to update presence: %v"
	MsgVoiceJoining          = "Joining channel %s in guild %s"
	MsgVoiceJoinFail         = "Failed to connect to voice in guild %s: %v"
	MsgVoiceLeaving          = "Leaving voice in guild %s"
	MsgVoiceDisconnected     = "Bot disconnected by external event in guild %s"
	MsgVoicePlaybackFinished = "Playback finished in guild %s"
	MsgVoicePlaybackStopped  = "Playback stopped in guild %s"
	MsgVoiceTranscodeFail    = "Transcoder failed in guild %s: %v"
	MsgVoiceStatusFail       = "Failed to set voice channel status in guild %s: %v"
	MsgVoiceMoved            = "Bot moved from %s to %s in guild %s"
	MsgVoiceProviderPanic    = "Recovered from panic in SetOpusFrameProvider: %v"
	MsgPlayerQueued          = "Queued in guild %s: %s (%s)"
	MsgPlayerPlaying         = "Playing in guild %s: %s (%s)"
	MsgPlayerPrepareFailed   = "Error preparing audio for %s: %v"
	MsgPlayerPlaybackError   = "Playback error in guild %s: %v"
	MsgPlayerIdle            = "Queue drained in guild %s"
	MsgPlayerAdvanceFail     = "Failed to advance queue in guild %s: %v"
	MsgPlayerGivingUp        = "Giving up after %d consecutive failures in guild %s"
	MsgNotifyFail            = "Failed to post notice in guild %s: %v"

	// --- User-facing music messages ---
	MsgMusicNotInVoice       = "%s, you need to join a voice channel first."
	MsgMusicNotConnected     = "I'm not connected to a voice channel."
	MsgMusicNotInGuild       = "This command only works in a server."
	MsgMusicNothingPlaying   = "Nothing is playing right now."
	MsgMusicQueueEmpty       = "Queue is empty."
	MsgMusicDuplicate        = "**%s** is already in the queue!"
	MsgMusicAddFailed        = "Failed to add track: %v"
	MsgMusicProcessing       = "Processing playlist... This may take a moment."
	MsgMusicPlaylistAdded    = "Added playlist with %d tracks."
	MsgMusicPlaylistPaused   = "Added playlist with %d tracks (playback is paused)."
	MsgMusicPausedNote       = "Playback is currently paused."
	MsgMusicSkipped          = "Skipped **%s** track."
	MsgMusicRemoved          = "Skipped **%s** from the queue."
	MsgMusicIndexTooBig      = "Index bigger than queue length."
	MsgMusicStopped          = "Stopped and cleared the queue."
	MsgMusicPaused           = "Paused **%s**."
	MsgMusicResumed          = "Resumed **%s**."
	MsgMusicCleared          = "Cleared the queue."
	MsgMusicShuffled         = "Queue shuffled."
	MsgMusicSeekFormat       = "Invalid time format. Use ss, mm:ss or hh:mm:ss."
	MsgMusicSeekBeyond       = "Seek position is beyond track length."
	MsgMusicSeeked           = "Seeked to %s in **%s**"
	MsgMusicSeekFailed       = "Seek failed: %v"
	MsgMusicJoined           = "Joined %s."
	MsgMusicLeft             = "Left the voice channel and cleared the queue."
	MsgMusicPrepareFailed    = "Could not play **%s**: %v"
	MsgMusicTooManyFailures  = "Stopped after %d tracks in a row failed to load. Use play to try again."
	MsgMusicHistoryEmpty     = "No tracks have been played yet."
	MsgMusicHistoryBadSince  = "Could not understand the time %q."
	MsgMusicClearbotOwner    = "You are not the bot owner."
	MsgMusicClearbotDone     = "Deleted %d bot messages from this channel."
	MsgRestarting            = "Restarting..."
	MsgRestartRequested      = "Restart requested by %s"
	MsgMusicGenericError     = "An error occurred: ```%v```"
)
