package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/home"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
	"github.com/lrstanley/go-ytdlp"
	"github.com/spf13/cobra"
)

var (
	silent      bool
	skipReg     bool
	clearAll    bool
	installDeps bool
)

var rootCmd = &cobra.Command{
	Use:          "jukebox",
	Short:        "Per-guild Discord music bot",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := sys.LoadConfig()
		if err != nil {
			return fmt.Errorf(sys.MsgConfigFailedToLoad, err)
		}
		if cmd.Flags().Changed("silent") {
			cfg.Silent = silent
		}
		sys.InitLogger(cfg.Silent, cfg.LogFile)
		defer sys.CloseLogger()

		unlock, err := acquirePIDLock(".bot.pid")
		if err != nil {
			return err
		}
		defer unlock()

		return run(cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&silent, "silent", false, "Disable all log output")
	rootCmd.Flags().BoolVar(&skipReg, "skip-reg", false, "Skip command registration")
	rootCmd.Flags().BoolVar(&clearAll, "clear-all", false, "Force clear guild commands (scan all guilds)")
	rootCmd.Flags().BoolVar(&installDeps, "install-ytdlp", true, "Download a pinned yt-dlp build if none is cached")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *sys.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	sys.SetAppContext(ctx, stop)
	sys.LogInfo(sys.MsgBotStarting, sys.GetProjectName())

	if err := sys.InitDatabase(ctx, cfg.DatabasePath); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer sys.CloseDatabase()

	if installDeps {
		if _, err := ytdlp.Install(ctx, &ytdlp.InstallOptions{}); err != nil {
			sys.LogWarn(sys.MsgYtdlpInstallFail, err)
		}
	}
	astiav.SetLogLevel(astiav.LogLevelFatal)

	client, err := sys.CreateClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create Discord client: %w", err)
	}
	defer client.Close(context.Background())

	history := proc.NewHistoryLog(sys.DB)
	presence := proc.NewBotPresence(client)
	notifier := home.NewChannelNotifier(client, cfg.MusicChannelID)
	registry := proc.NewRegistry(newPlayerFactory(client, cfg, presence, history, notifier))

	home.Setup(&home.Music{
		Registry: registry,
		History:  history,
		Notifier: notifier,
	})

	sys.RegisterWorker(sys.Worker{
		Name: "presence",
		Log:  sys.LogMusic,
		Run:  presence.Run,
		Stop: func() {
			sys.LogVoice("Shutting down %d guild players...", registry.Len())
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			registry.Shutdown(shutdownCtx)
		},
	})
	sys.RegisterWorker(sys.Worker{
		Name: "history",
		Log:  sys.LogHistory,
		Run:  history.Run,
	})

	if !skipReg {
		if err := sys.RegisterCommands(client, cfg.GuildID, clearAll); err != nil {
			sys.LogError(sys.MsgBotRegisterFail, err)
		}
	} else {
		sys.LogInfo("Skipping command registration as requested.")
	}

	if err := client.OpenGateway(ctx); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}

	<-ctx.Done()
	if !cfg.Silent {
		fmt.Println()
	}

	sys.LogInfo("Stopping background workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	sys.StopWorkers(shutdownCtx)

	if botUser, ok := client.Caches.SelfUser(); ok {
		sys.LogInfo(sys.MsgBotShutdown, botUser.Username)
	} else {
		sys.LogInfo(sys.MsgBotShutdown, sys.GetProjectName())
	}
	return nil
}

// newPlayerFactory wires a guild player to its voice connection and the
// shared presence, history and notice channels.
func newPlayerFactory(client *bot.Client, cfg *sys.Config, presence *proc.BotPresence, history *proc.HistoryLog, notifier proc.Notifier) proc.PlayerFactory {
	resolver := proc.NewYTDLPResolver(cfg.PlaylistLimit)
	return func(guildID snowflake.ID) *proc.GuildPlayer {
		sink := proc.NewVoiceSink(client, guildID)
		return proc.NewGuildPlayer(guildID, proc.PlayerDeps{
			Resolver: resolver,
			Sink:     sink,
			Presence: proc.Presences{presence, sink},
			History:  history,
			Notifier: notifier,
		}, proc.PlayerConfig{
			MaxConsecutiveFailures: cfg.MaxConsecutiveFailures,
			ResolveTimeout:         cfg.ResolveTimeout,
		})
	}
}
