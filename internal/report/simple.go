package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/nao1215/jurisdata/internal/model"
)

// SimpleWriter renders sessions as plain-text tables for the terminal.
type SimpleWriter struct {
	baseWriter

	// showEmpty prints sections that have no rows.
	showEmpty bool

	// verbose adds example content and XPath columns.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose adds example content and suggested XPath columns.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// NewTable returns a table writer in the style used by every text report.
func NewTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	return t
}

// Write renders the session summary, its elements and the resolved link
// configuration.
func (w *SimpleWriter) Write(session *model.Session) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, session)
	w.writeElements(&sb, "Classes", session.Result.Classes)
	w.writeElements(&sb, "Other data", session.Result.OtherData)
	w.writeConfig(&sb, session)

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, s *model.Session) {
	t := NewTable()
	t.SetTitle("Discovery")
	t.AppendRows([]table.Row{
		{"URL", s.URL},
		{"Run", orDash(s.ID)},
		{"Started", s.StartedAt.Format("2006-01-02 15:04:05 MST")},
		{"Duration", s.Duration.Round(time.Millisecond).String()},
		{"Outcome", s.Outcome.String()},
		{"Bytes received", strconv.Itoa(s.BytesReceived)},
		{"Elements", fmt.Sprintf("%d classes, %d other", len(s.Result.Classes), len(s.Result.OtherData))},
		{"Link config", configSource(s)},
	})
	if s.Error != "" {
		t.AppendRow(table.Row{"Error", s.Error})
	}
	if s.SimilarConfig != "" {
		t.AppendRow(table.Row{"Similar config", s.SimilarConfig})
	}
	sb.WriteString(t.Render())
	sb.WriteString("\n")

	for _, warning := range s.Warnings {
		sb.WriteString("warning: " + warning + "\n")
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeElements(sb *strings.Builder, title string, elements []model.DiscoveredElement) {
	if len(elements) == 0 && !w.showEmpty {
		return
	}

	t := NewTable()
	t.SetTitle(title)
	header := table.Row{"Class", "Tag", "Count", "Link"}
	if w.verbose {
		header = append(header, "Example", "XPath")
	}
	t.AppendHeader(header)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 5, WidthMax: 60},
	})

	for _, e := range elements {
		row := table.Row{orDash(e.CSSClass), e.TagName, e.ElementCount, yesNo(e.IsLink)}
		if w.verbose {
			row = append(row, TruncateExample(e.ExampleContent), orDash(e.SuggestedXPath))
		}
		t.AppendRow(row)
	}
	if len(elements) == 0 {
		t.AppendRow(table.Row{"(none)"})
	}

	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeConfig(sb *strings.Builder, s *model.Session) {
	cfg := s.Config
	if len(cfg.SelectedTags) > 0 || w.showEmpty {
		sb.WriteString(RenderTags(cfg))
		sb.WriteString("\n\n")
	}
	if len(cfg.Groups) > 0 || w.showEmpty {
		sb.WriteString(RenderGroups(cfg))
		sb.WriteString("\n\n")
	}
}

// RenderTags renders the selected tags of cfg as a table.
func RenderTags(cfg model.LinkConfig) string {
	t := NewTable()
	t.SetTitle("Selected tags")
	t.AppendHeader(table.Row{"Pattern", "Kind", "Follow link", "Use config"})
	for _, p := range sortedKeys(cfg.SelectedTags) {
		settings := cfg.SelectedTags[p]
		kind := "literal"
		if model.TagPattern(p).IsRegex() {
			kind = "regex"
		}
		t.AppendRow(table.Row{p, kind, yesNo(settings.Follow()), orDash(settings.UseConfig)})
	}
	return t.Render()
}

// RenderGroups renders the groups of cfg as a table.
func RenderGroups(cfg model.LinkConfig) string {
	t := NewTable()
	t.SetTitle("Groups")
	t.AppendHeader(table.Row{"Group", "Type", "Members"})
	for _, name := range sortedKeys(cfg.Groups) {
		g := cfg.Groups[name]
		t.AppendRow(table.Row{name, groupTitle(g.Type), strings.Join(g.Members, "\n")})
	}
	return t.Render()
}

// WriteComparison renders the differences between two runs.
func (w *SimpleWriter) WriteComparison(c *Comparison) (int, error) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Comparing %s\n", c.URL))
	sb.WriteString(fmt.Sprintf("  older: %s (%s)\n", c.Older.ID, c.Older.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("  newer: %s (%s)\n\n", c.Newer.ID, c.Newer.StartedAt.Format("2006-01-02 15:04:05 MST")))

	if c.Diff.IsEmpty() {
		sb.WriteString("No changes.\n")
		return io.WriteString(w.output, sb.String())
	}

	t := NewTable()
	t.AppendHeader(table.Row{"Change", "Class", "Tag", "Before", "After"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	for _, e := range c.Diff.Added {
		t.AppendRow(table.Row{"added", orDash(e.CSSClass), e.TagName, "-", e.ElementCount})
	}
	for _, e := range c.Diff.Removed {
		t.AppendRow(table.Row{"removed", orDash(e.CSSClass), e.TagName, e.ElementCount, "-"})
	}
	for _, ch := range c.Diff.Changed {
		t.AppendRow(table.Row{"changed", orDash(ch.CSSClass), ch.TagName, ch.Before, ch.After})
	}
	sb.WriteString(t.Render())
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}
