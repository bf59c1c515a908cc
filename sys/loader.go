package sys

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/disgo/voice"
	"github.com/disgoorg/godave/golibdave"
	"github.com/disgoorg/snowflake/v2"
)

var (
	AppContext  = context.Background()
	StartupTime = time.Now()
	appCancel   context.CancelFunc
)

// SetAppContext installs the process context. cancel ends it and starts the
// normal shutdown path.
func SetAppContext(ctx context.Context, cancel context.CancelFunc) {
	AppContext, appCancel = ctx, cancel
}

// RequestShutdown stops the bot the same way a SIGTERM would. The process
// exits cleanly, so a supervisor brings it back up.
func RequestShutdown() {
	if appCancel != nil {
		appCancel()
	}
}

type (
	commandHandler      func(event *events.ApplicationCommandInteractionCreate)
	autocompleteHandler func(event *events.AutocompleteInteractionCreate)
	componentHandler    func(event *events.ComponentInteractionCreate)
)

// router maps incoming interactions and gateway events to the handlers the
// home package registers from init.
type router struct {
	mu           sync.RWMutex
	commands     []discord.ApplicationCommandCreate
	slash        map[string]commandHandler
	autocomplete map[string]autocompleteHandler
	components   map[string]componentHandler
	voiceStates  []func(event *events.GuildVoiceStateUpdate)
	messages     []func(event *events.MessageCreate)
}

func newRouter() *router {
	return &router{
		slash:        map[string]commandHandler{},
		autocomplete: map[string]autocompleteHandler{},
		components:   map[string]componentHandler{},
	}
}

var handlers = newRouter()

// guarded runs f on its own goroutine and logs instead of crashing when a
// handler panics.
func guarded(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				LogError(MsgLoaderPanicRecovered, r, debug.Stack())
			}
		}()
		f()
	}()
}

// --- Bot Initialization ---

// CreateClient creates and configures a disgo client with DAVE-enabled voice.
func CreateClient(ctx context.Context, cfg *Config) (*bot.Client, error) {
	client, err := disgo.New(cfg.Token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMessages,
				gateway.IntentMessageContent,
				gateway.IntentGuildVoiceStates,
			),
			gateway.WithPresenceOpts(
				gateway.WithOnlineStatus(discord.OnlineStatusIdle),
			),
		),
		bot.WithCacheConfigOpts(
			cache.WithCaches(cache.FlagGuilds, cache.FlagChannels, cache.FlagVoiceStates),
		),
		bot.WithVoiceManagerConfigOpts(
			voice.WithDaveSessionCreateFunc(golibdave.NewSession),
		),
		bot.WithEventListenerFunc(onApplicationCommandInteraction),
		bot.WithEventListenerFunc(onAutocompleteInteraction),
		bot.WithEventListenerFunc(onComponentInteraction),
		bot.WithEventListenerFunc(onVoiceStateUpdate),
		bot.WithEventListenerFunc(onMessageCreate),
		bot.WithEventListenerFunc(onReady),
		bot.WithLogger(slog.Default()),
		bot.WithRestClientConfigOpts(
			rest.WithHTTPClient(&http.Client{
				Timeout: 60 * time.Second,
				Transport: &http.Transport{
					MaxIdleConns:        100,
					MaxIdleConnsPerHost: 50,
					IdleConnTimeout:     90 * time.Second,
				},
			}),
		),
	)
	if err != nil {
		return nil, err
	}

	return client, nil
}

// --- Registration ---

func RegisterCommand(cmd discord.SlashCommandCreate, handler func(event *events.ApplicationCommandInteractionCreate)) {
	handlers.mu.Lock()
	defer handlers.mu.Unlock()
	handlers.commands = append(handlers.commands, cmd)
	handlers.slash[cmd.Name] = handler
}

func RegisterAutocompleteHandler(cmdName string, handler func(event *events.AutocompleteInteractionCreate)) {
	handlers.mu.Lock()
	defer handlers.mu.Unlock()
	handlers.autocomplete[cmdName] = handler
}

// RegisterComponentHandler routes a custom ID to handler. An ID ending in
// ':' matches every custom ID that starts with it.
func RegisterComponentHandler(customID string, handler func(event *events.ComponentInteractionCreate)) {
	handlers.mu.Lock()
	defer handlers.mu.Unlock()
	handlers.components[customID] = handler
}

func RegisterVoiceStateUpdateHandler(handler func(event *events.GuildVoiceStateUpdate)) {
	handlers.mu.Lock()
	defer handlers.mu.Unlock()
	handlers.voiceStates = append(handlers.voiceStates, handler)
}

func RegisterMessageCreateHandler(handler func(event *events.MessageCreate)) {
	handlers.mu.Lock()
	defer handlers.mu.Unlock()
	handlers.messages = append(handlers.messages, handler)
}

// component finds the handler for customID: an exact entry first, then the
// longest registered prefix.
func (r *router) component(customID string) (componentHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h, ok := r.components[customID]; ok {
		return h, true
	}
	var (
		best    componentHandler
		bestLen int
	)
	for prefix, h := range r.components {
		if strings.HasSuffix(prefix, ":") && strings.HasPrefix(customID, prefix) && len(prefix) > bestLen {
			best, bestLen = h, len(prefix)
		}
	}
	return best, best != nil
}

func (r *router) snapshotCommands() []discord.ApplicationCommandCreate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]discord.ApplicationCommandCreate(nil), r.commands...)
}

// --- Command sync ---

// commandHash fingerprints the command set so an unchanged set is not
// pushed to Discord on every start.
func commandHash(cmds []discord.ApplicationCommandCreate) string {
	data, err := json.Marshal(cmds)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// syncRecord is what the last successful registration stored in bot_config.
type syncRecord struct {
	Hash    string
	Scope   string // "global" or "guild"
	GuildID string
}

func scopeOf(guildID string) string {
	if guildID == "" {
		return "global"
	}
	return "guild"
}

func (r syncRecord) upToDate(prev syncRecord) bool {
	return r.Hash != "" && r == prev
}

func loadSyncRecord(ctx context.Context) syncRecord {
	var rec syncRecord
	rec.Hash, _ = GetBotConfig(ctx, "last_cmd_hash")
	rec.Scope, _ = GetBotConfig(ctx, "last_reg_mode")
	rec.GuildID, _ = GetBotConfig(ctx, "last_guild_id")
	return rec
}

func storeSyncRecord(ctx context.Context, rec syncRecord) {
	_ = SetBotConfig(ctx, "last_reg_mode", rec.Scope)
	_ = SetBotConfig(ctx, "last_guild_id", rec.GuildID)
	if rec.Hash != "" {
		_ = SetBotConfig(ctx, "last_cmd_hash", rec.Hash)
	}
}

// RegisterCommands publishes the slash commands to one guild when guildID is
// set and globally otherwise. Nothing is sent when the stored record already
// matches, unless force is set. Moving between scopes wipes the commands
// left behind in the old one.
func RegisterCommands(client *bot.Client, guildID string, force bool) error {
	ctx := context.Background()
	cmds := handlers.snapshotCommands()
	cur := syncRecord{Hash: commandHash(cmds), Scope: scopeOf(guildID), GuildID: guildID}
	prev := loadSyncRecord(ctx)

	LogLoader(MsgLoaderSyncCommands, strings.ToUpper(cur.Scope))
	if !force && cur.upToDate(prev) {
		LogLoader(MsgLoaderUpToDate, cur.Hash[:8])
		return nil
	}

	var (
		created []discord.ApplicationCommand
		err     error
	)
	if guildID == "" {
		created, err = client.Rest.SetGlobalCommands(client.ApplicationID, cmds)
	} else {
		id, perr := snowflake.Parse(guildID)
		if perr != nil {
			return fmt.Errorf("invalid GUILD_ID: %w", perr)
		}
		created, err = client.Rest.SetGuildCommands(client.ApplicationID, id, cmds)
	}
	if err != nil {
		return fmt.Errorf(MsgLoaderRegisterFail, err)
	}
	for _, c := range created {
		LogLoader(MsgLoaderRegistered, c.Name())
	}

	if guildID != "" && (force || prev.Scope != cur.Scope) {
		if existing, err := client.Rest.GetGlobalCommands(client.ApplicationID, false); err == nil && len(existing) > 0 {
			LogLoader(MsgLoaderGlobalClear)
			_, _ = client.Rest.SetGlobalCommands(client.ApplicationID, []discord.ApplicationCommandCreate{})
		}
	}
	if prev.GuildID != "" && prev.GuildID != guildID {
		if old, err := snowflake.Parse(prev.GuildID); err == nil {
			LogLoader(MsgLoaderGuildClear, prev.GuildID)
			_, _ = client.Rest.SetGuildCommands(client.ApplicationID, old, []discord.ApplicationCommandCreate{})
		}
	}

	storeSyncRecord(ctx, cur)
	return nil
}

// --- Event dispatch ---

func onReady(event *events.Ready) {
	LogInfo(MsgBotReady, event.User.Username, event.User.ID.String(), os.Getpid(), time.Since(StartupTime).Milliseconds())
	startWorkers(AppContext)
}

func onApplicationCommandInteraction(event *events.ApplicationCommandInteractionCreate) {
	handlers.mu.RLock()
	h, ok := handlers.slash[event.Data.CommandName()]
	handlers.mu.RUnlock()
	if ok {
		guarded(func() { h(event) })
	}
}

func onAutocompleteInteraction(event *events.AutocompleteInteractionCreate) {
	handlers.mu.RLock()
	h, ok := handlers.autocomplete[event.Data.CommandName]
	handlers.mu.RUnlock()
	if ok {
		guarded(func() { h(event) })
	}
}

func onComponentInteraction(event *events.ComponentInteractionCreate) {
	if h, ok := handlers.component(event.Data.CustomID()); ok {
		guarded(func() { h(event) })
	}
}

func onVoiceStateUpdate(event *events.GuildVoiceStateUpdate) {
	handlers.mu.RLock()
	hs := append([]func(*events.GuildVoiceStateUpdate){}, handlers.voiceStates...)
	handlers.mu.RUnlock()
	for _, h := range hs {
		guarded(func() { h(event) })
	}
}

func onMessageCreate(event *events.MessageCreate) {
	if event.Message.Author.Bot {
		return
	}
	handlers.mu.RLock()
	hs := append([]func(*events.MessageCreate){}, handlers.messages...)
	handlers.mu.RUnlock()
	for _, h := range hs {
		guarded(func() { h(event) })
	}
}

// --- Background workers ---

// Worker is a long-running loop started once the gateway is ready. Stop, when
// set, runs during shutdown.
type Worker struct {
	Name string
	Log  func(format string, v ...any)
	Run  func(ctx context.Context)
	Stop func()
}

var (
	workersMu      sync.Mutex
	workers        []Worker
	workersStarted bool
)

func RegisterWorker(w Worker) {
	workersMu.Lock()
	defer workersMu.Unlock()
	workers = append(workers, w)
}

// startWorkers is idempotent: a gateway reconnect fires Ready again.
func startWorkers(ctx context.Context) {
	workersMu.Lock()
	defer workersMu.Unlock()
	if workersStarted {
		return
	}
	workersStarted = true
	for _, w := range workers {
		if w.Log != nil {
			w.Log(MsgWorkerStarting, w.Name)
		}
		run := w.Run
		guarded(func() { run(ctx) })
	}
}

// StopWorkers runs every Stop hook concurrently and returns when they are all
// done or ctx expires.
func StopWorkers(ctx context.Context) {
	workersMu.Lock()
	ws := append([]Worker(nil), workers...)
	workersMu.Unlock()

	var wg sync.WaitGroup
	for _, w := range ws {
		if w.Stop == nil {
			continue
		}
		wg.Add(1)
		go func(stop func()) {
			defer wg.Done()
			stop()
		}(w.Stop)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
