package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/fatih/color"
	"github.com/leeineian/jukebox/sys"
	"github.com/spf13/cobra"
)

var (
	historyGuild string
	historySince string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print recently played tracks from the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := sys.LoadConfig()
		sys.InitLogger(true, "")

		var guildID snowflake.ID
		if historyGuild != "" {
			id, err := snowflake.Parse(historyGuild)
			if err != nil {
				return fmt.Errorf("invalid guild ID %q: %w", historyGuild, err)
			}
			guildID = id
		}
		var since time.Time
		if historySince != "" {
			t, err := sys.ParseSince(historySince, time.Now())
			if err != nil {
				return err
			}
			since = t
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		if err := sys.InitDatabase(ctx, cfg.DatabasePath); err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer sys.CloseDatabase()

		entries, err := sys.GetPlayHistory(ctx, sys.DB, guildID, since, historyLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println(sys.MsgMusicHistoryEmpty)
			return nil
		}

		header := color.New(color.FgCyan, color.Bold)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = header.Fprintln(w, "PLAYED\tGUILD\tDURATION\tTITLE\tURL")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				e.PlayedAt.Local().Format("2006-01-02 15:04"), e.GuildID,
				sys.FormatDuration(e.Duration), sys.Truncate(e.Title, 60), e.URL)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if guildID != 0 {
			total, err := sys.GetPlayHistoryCount(ctx, sys.DB, guildID)
			if err == nil {
				color.New(color.Faint).Printf("%d of %d entries for guild %s\n", len(entries), total, guildID)
			}
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyGuild, "guild", "", "Only show this guild")
	historyCmd.Flags().StringVar(&historySince, "since", "", "Only show entries after this time (e.g. 2h, yesterday)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of entries")
	rootCmd.AddCommand(historyCmd)
}
