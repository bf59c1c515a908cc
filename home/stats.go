package home

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/omit"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/sys"
)

const (
	StatsAnsiReset    = "\u001b[0m"
	StatsAnsiPink     = "\u001b[35m"
	StatsAnsiPinkBold = "\u001b[35;1m"
	StatsCacheTTL     = 5000 * time.Millisecond

	statsRefreshID = "stats:refresh"
)

var (
	statsCacheMu sync.RWMutex
	statsSystem  statsCachedData
)

type statsCachedData struct {
	Data      string
	Timestamp time.Time
}

type statsHealth struct {
	Ping        int64
	GatewayPing int64
	DBLatency   string
}

// playerCounts summarises every guild player for /stats.
type playerCounts struct {
	Players   int
	Connected int
	Playing   int
	Paused    int
	Queued    int
}

func statsTitle(text string) string {
	return fmt.Sprintf("%s%s%s", StatsAnsiPink, text, StatsAnsiReset)
}

func statsLine(key, val string) string {
	return fmt.Sprintf("%s> %s:%s %s%s%s", StatsAnsiPink, key, StatsAnsiReset, StatsAnsiPinkBold, val, StatsAnsiReset)
}

func init() {
	adminPerm := discord.PermissionAdministrator

	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:                     "stats",
		Description:              "Show latency, player and system statistics (Admin Only)",
		DefaultMemberPermissions: omit.New(&adminPerm),
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionBool{
				Name:        "ephemeral",
				Description: "Whether the message should be ephemeral (default: true)",
				Required:    false,
			},
		},
	}, handleStats)

	sys.RegisterComponentHandler(statsRefreshID, handleStatsRefresh)
}

func statsContainer(content string) discord.ContainerComponent {
	return discord.NewContainer(
		discord.NewTextDisplay(content),
		discord.NewActionRow(
			discord.NewSuccessButton("🔄 Refresh", statsRefreshID),
		),
	)
}

func handleStats(event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()
	ephemeral := true
	if eph, ok := data.OptBool("ephemeral"); ok {
		ephemeral = eph
	}

	err := event.CreateMessage(discord.NewMessageCreateBuilder().
		SetIsComponentsV2(true).
		SetEphemeral(ephemeral).
		AddComponents(textContainer("⏳ Loading stats...")).
		Build())
	if err != nil {
		sys.LogDebug("Failed to send initial stats: %v", err)
		return
	}

	health := measureHealth(event.ID(), event.Client().Gateway.Latency())
	_, _ = event.Client().Rest.UpdateInteractionResponse(event.ApplicationID(), event.Token(),
		discord.NewMessageUpdateBuilder().
			SetIsComponentsV2(true).
			AddComponents(statsContainer(renderStats(health, countPlayers()))).
			Build())
}

func handleStatsRefresh(event *events.ComponentInteractionCreate) {
	health := measureHealth(event.ID(), event.Client().Gateway.Latency())
	_ = event.UpdateMessage(discord.NewMessageUpdateBuilder().
		SetIsComponentsV2(true).
		AddComponents(statsContainer(renderStats(health, countPlayers()))).
		Build())
}

func measureHealth(interactionID snowflake.ID, gateway time.Duration) statsHealth {
	h := statsHealth{
		Ping:        time.Since(interactionID.Time()).Milliseconds(),
		GatewayPing: gateway.Milliseconds(),
	}
	start := time.Now()
	_, _ = sys.GetBotConfig(sys.AppContext, "ping_test")
	h.DBLatency = fmt.Sprintf("%.2f", float64(time.Since(start).Microseconds())/1000.0)
	return h
}

func countPlayers() playerCounts {
	var c playerCounts
	m := getMusic()
	if m == nil || m.Registry == nil {
		return c
	}
	for _, p := range m.Registry.Players() {
		c.Players++
		s, err := p.Snapshot(sys.AppContext)
		if err != nil {
			continue
		}
		if s.Connected {
			c.Connected++
		}
		if s.Paused {
			c.Paused++
		} else if s.Playing {
			c.Playing++
		}
		c.Queued += len(s.Queue) + len(s.NowQueue)
	}
	return c
}

func renderStats(h statsHealth, c playerCounts) string {
	output := systemStats() + "\n\n" + appStats(h) + "\n\n" + musicStats(c)
	return fmt.Sprintf("```ansi\n%s\n```", output)
}

func systemStats() string {
	statsCacheMu.RLock()
	if time.Since(statsSystem.Timestamp) < StatsCacheTTL && statsSystem.Data != "" {
		defer statsCacheMu.RUnlock()
		return statsSystem.Data
	}
	statsCacheMu.RUnlock()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	data := strings.Join([]string{
		statsTitle("System"),
		statsLine("Platform", runtime.GOOS+" "+runtime.GOARCH),
		statsLine("Go Version", runtime.Version()),
		statsLine("Memory", fmt.Sprintf("%.2f MB / %.2f MB (Sys)", float64(m.HeapAlloc)/1024/1024, float64(m.Sys)/1024/1024)),
		statsLine("Goroutines", fmt.Sprintf("%d", runtime.NumGoroutine())),
	}, "\n")

	statsCacheMu.Lock()
	statsSystem = statsCachedData{Data: data, Timestamp: time.Now()}
	statsCacheMu.Unlock()
	return data
}

func appStats(h statsHealth) string {
	uptime := time.Since(sys.StartupTime)
	lines := []string{
		statsTitle("App"),
		statsLine("Uptime", fmt.Sprintf("%dd %dh %dm", int(uptime.Hours())/24, int(uptime.Hours())%24, int(uptime.Minutes())%60)),
	}
	if h.GatewayPing > 0 {
		lines = append(lines, statsLine("Gateway", fmt.Sprintf("%dms", h.GatewayPing)))
	}
	if h.Ping > 0 {
		lines = append(lines, statsLine("API Latency", fmt.Sprintf("%dms", h.Ping)))
	}
	if h.DBLatency != "" {
		lines = append(lines, statsLine("Database", h.DBLatency+"ms"))
	}
	return strings.Join(lines, "\n")
}

func musicStats(c playerCounts) string {
	return strings.Join([]string{
		statsTitle("Music"),
		statsLine("Players", fmt.Sprintf("%d (%d in voice)", c.Players, c.Connected)),
		statsLine("Playing", fmt.Sprintf("%d (%d paused)", c.Playing, c.Paused)),
		statsLine("Queued Tracks", fmt.Sprintf("%d", c.Queued)),
	}, "\n")
}
