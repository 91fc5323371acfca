package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/nao1215/jurisdata/internal/database"
	"github.com/nao1215/jurisdata/internal/report"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit is the number of runs listed per URL.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "List recorded discoveries",
		Long: `History lists the discoveries stored in the history database.

Without a URL it summarizes every discovered URL. With a URL it lists that
URL's runs, newest first.

Examples:
  # Summarize all URLs
  jurisdata history

  # Show the last five runs of one URL
  jurisdata history -n 5 https://courts.example/decisions

  # Delete runs older than 30 days
  jurisdata history --prune 720h`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit, "Maximum number of runs to list (0 for all)")
	cmd.Flags().Duration("prune", 0, "Delete runs older than this duration before listing")

	return cmd
}

// openHistory opens the history database selected by the flags.
func openHistory(cmd *cobra.Command) (*database.HistoryDB, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	setupLogger(cmd, cfg.Verbose)

	db, err := database.Open(cfg.ResolvedHistoryDir(), database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return db, nil
}

func runHistoryCmd(cmd *cobra.Command, args []string) (err error) {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	if limit < 0 {
		return errors.New("limit must not be negative")
	}
	prune, err := cmd.Flags().GetDuration("prune")
	if err != nil {
		return err
	}

	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if prune > 0 {
		n, err := db.Prune(ctx, time.Now().Add(-prune))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted %d runs older than %s\n", n, prune)
	}

	if len(args) == 0 {
		urls, err := db.ListURLs(ctx)
		if err != nil {
			return err
		}
		if len(urls) == 0 {
			fmt.Fprintln(out, "No discoveries recorded.")
			return nil
		}
		t := report.NewTable()
		t.AppendHeader(table.Row{"URL", "Runs", "Successful", "Last seen"})
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 2, Align: text.AlignRight},
			{Number: 3, Align: text.AlignRight},
		})
		for _, u := range urls {
			t.AppendRow(table.Row{u.URL, u.Runs, u.Successful, u.LastSeen.Local().Format(time.DateTime)})
		}
		fmt.Fprintln(out, t.Render())
		return nil
	}

	records, err := db.History(ctx, args[0], limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintf(out, "No discoveries recorded for %s.\n", args[0])
		return nil
	}

	t := report.NewTable()
	t.SetTitle(args[0])
	t.AppendHeader(table.Row{"ID", "Time", "Outcome", "Classes", "Other", "Links", "Bytes", "Duration", "Config"})
	for _, r := range records {
		t.AppendRow(table.Row{
			r.ID,
			r.Timestamp.Local().Format(time.DateTime),
			r.Outcome.String(),
			r.ClassCount,
			r.OtherCount,
			r.LinkCount,
			r.BytesReceived,
			r.Duration.Round(time.Millisecond).String(),
			dash(r.ConfigName),
		})
	}
	fmt.Fprintln(out, t.Render())
	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
