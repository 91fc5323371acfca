package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/nao1215/jurisdata/internal/database"
	"github.com/nao1215/jurisdata/internal/model"
	"github.com/nao1215/jurisdata/internal/report"
	"github.com/spf13/cobra"
)

// errNotEnoughRuns is returned when a URL has fewer than two successful
// discoveries.
var errNotEnoughRuns = errors.New("at least two successful discoveries are required")

// NewCompareCmd creates the compare command.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <url>",
		Short: "Compare the latest discoveries of a URL",
		Long: `Compare shows how the page's elements changed between two successful
discoveries: classes that appeared, classes that disappeared and classes
whose element count changed.

By default the two most recent successful runs are compared. Use --with-id
to compare the latest run against a specific earlier run.

Examples:
  # Compare the latest two runs
  jurisdata compare https://courts.example/decisions

  # Compare against a specific run, as Markdown
  jurisdata compare -m --with-id 0b7c... https://courts.example/decisions`,
		Args: cobra.ExactArgs(1),
		RunE: runCompareCmd,
	}

	cmd.Flags().StringP("with-id", "i", "", "Compare the latest run with this run ID")
	cmd.Flags().BoolP("json", "j", false, "Output comparison in JSON format")
	cmd.Flags().BoolP("markdown", "m", false, "Output comparison in Markdown format")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")

	return cmd
}

func runCompareCmd(cmd *cobra.Command, args []string) (err error) {
	url := args[0]
	withID, err := cmd.Flags().GetString("with-id")
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	asMarkdown, err := cmd.Flags().GetBool("markdown")
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

	older, newer, err := selectRuns(cmd, db, url, withID)
	if err != nil {
		return err
	}

	c := &report.Comparison{
		URL:   url,
		Older: report.RunRef{ID: older.ID, StartedAt: older.Timestamp},
		Newer: report.RunRef{ID: newer.ID, StartedAt: newer.Timestamp},
		Diff:  model.CompareResults(older.Result, newer.Result),
	}
	_, err = comparisonWriter(cmd.OutOrStdout(), asJSON, asMarkdown).WriteComparison(c)
	return err
}

// selectRuns returns the older and newer run to compare.
func selectRuns(cmd *cobra.Command, db *database.HistoryDB, url, withID string) (database.Record, database.Record, error) {
	ctx := cmd.Context()

	if withID == "" {
		records, err := db.SuccessfulHistory(ctx, url, 2)
		if err != nil {
			return database.Record{}, database.Record{}, err
		}
		if len(records) < 2 {
			return database.Record{}, database.Record{}, fmt.Errorf("%w for %s (found %d)", errNotEnoughRuns, url, len(records))
		}
		return records[1], records[0], nil
	}

	latest, err := db.SuccessfulHistory(ctx, url, 1)
	if err != nil {
		return database.Record{}, database.Record{}, err
	}
	if len(latest) == 0 {
		return database.Record{}, database.Record{}, fmt.Errorf("%w for %s (found 0)", errNotEnoughRuns, url)
	}
	other, err := db.GetDiscovery(ctx, withID)
	if err != nil {
		return database.Record{}, database.Record{}, err
	}
	if other.URL != url {
		return database.Record{}, database.Record{}, fmt.Errorf("run %s belongs to %s, not %s", withID, other.URL, url)
	}
	if !other.Succeeded() {
		return database.Record{}, database.Record{}, fmt.Errorf("run %s did not complete (%s)", withID, other.Outcome)
	}
	return other, latest[0], nil
}

func comparisonWriter(out io.Writer, asJSON, asMarkdown bool) report.Writer {
	switch {
	case asJSON:
		return report.NewJSONWriter(out, report.WithPrettyPrint())
	case asMarkdown:
		return report.NewMarkdownWriter(out)
	default:
		return report.NewSimpleWriter(out)
	}
}
