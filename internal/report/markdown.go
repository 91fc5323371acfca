package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/jurisdata/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// maxChartSlices bounds the element-count pie chart.
const maxChartSlices = 8

// MarkdownWriter outputs sessions in Markdown for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the session in Markdown.
func (w *MarkdownWriter) Write(session *model.Session) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, session)
	w.writeElements(md, "Classes", session.Result.Classes)
	w.writeElements(md, "Other data", session.Result.OtherData)
	w.writeConfig(md, session.Config)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *model.Session) {
	md.H1("Discovery Report")
	md.PlainText("")

	rows := [][]string{
		{"URL", "`" + s.URL + "`"},
		{"Run", orDash(s.ID)},
		{"Started", s.StartedAt.Format("2006-01-02 15:04:05 MST")},
		{"Outcome", statusText(s)},
		{"Bytes received", strconv.Itoa(s.BytesReceived)},
		{"Link config", configSource(s)},
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	switch {
	case s.Outcome == model.OutcomeFailed:
		md.Warningf("Discovery failed: %s", orDash(s.Error))
	case s.Outcome == model.OutcomeCompleted && s.Result.IsEmpty():
		md.Note("The page returned no extractable elements.")
	case s.SimilarConfig != "":
		md.Tip(fmt.Sprintf("No link configuration for this URL; `%s` looks similar.", s.SimilarConfig))
	}
	md.PlainText("")

	if len(s.Warnings) > 0 {
		md.H2("Warnings")
		md.PlainText("")
		md.BulletList(s.Warnings...)
		md.PlainText("")
	}
}

func statusText(s *model.Session) string {
	switch s.Outcome {
	case model.OutcomeCompleted:
		return "✅ Completed"
	case model.OutcomeCancelled:
		return "⚠️ Cancelled"
	case model.OutcomeFailed:
		return "❌ Failed"
	default:
		return s.Outcome.String()
	}
}

func (w *MarkdownWriter) writeElements(md *markdown.Markdown, title string, elements []model.DiscoveredElement) {
	if len(elements) == 0 {
		return
	}

	md.H2(title)
	md.PlainText("")

	rows := make([][]string, len(elements))
	for i, e := range elements {
		rows[i] = []string{
			cell(orDash(e.CSSClass)),
			cell(e.TagName),
			strconv.Itoa(e.ElementCount),
			yesNo(e.IsLink),
			cell(orDash(e.SuggestedXPath)),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Class", "Tag", "Count", "Link", "XPath"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(elements) > 1 {
		w.writePieChart(md, title, elements)
	}

	for _, e := range elements {
		if e.ExampleContent != "" {
			md.Details(orDash(e.CSSClass)+" <"+e.TagName+">", TruncateExample(e.ExampleContent))
		}
	}
	md.PlainText("")
}

// writePieChart charts element counts of the first maxChartSlices entries.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, title string, elements []model.DiscoveredElement) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle(title+" by element count"),
		piechart.WithShowData(true),
	)
	for i, e := range elements {
		if i == maxChartSlices {
			break
		}
		if e.ElementCount > 0 {
			chart.LabelAndIntValue(orDash(e.CSSClass), uint64(e.ElementCount))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeConfig(md *markdown.Markdown, cfg model.LinkConfig) {
	if cfg.IsEmpty() {
		return
	}

	md.H2("Link configuration")
	md.PlainText("")

	if len(cfg.SelectedTags) > 0 {
		rows := make([][]string, 0, len(cfg.SelectedTags))
		for _, p := range sortedKeys(cfg.SelectedTags) {
			settings := cfg.SelectedTags[p]
			rows = append(rows, []string{"`" + p + "`", yesNo(settings.Follow()), cell(orDash(settings.UseConfig))})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Tag", "Follow link", "Use config"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	for _, name := range sortedKeys(cfg.Groups) {
		g := cfg.Groups[name]
		md.H3(fmt.Sprintf("%s (%s)", name, groupTitle(g.Type)))
		md.PlainText("")
		if len(g.Members) == 0 {
			md.PlainText("No members.")
		} else {
			md.BulletList(g.Members...)
		}
		md.PlainText("")
	}
}

// WriteComparison outputs the differences between two runs in Markdown.
func (w *MarkdownWriter) WriteComparison(c *Comparison) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Discovery Comparison")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Run", "ID", "Started"},
		Rows: [][]string{
			{"Older", c.Older.ID, c.Older.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Newer", c.Newer.ID, c.Newer.StartedAt.Format("2006-01-02 15:04:05 MST")},
		},
	})
	md.PlainText("")

	if c.Diff.IsEmpty() {
		md.Tip("No changes between the two runs.")
		w.writeFooter(md)
		return len(md.String()), md.Build()
	}

	var rows [][]string
	for _, e := range c.Diff.Added {
		rows = append(rows, []string{"added", cell(orDash(e.CSSClass)), cell(e.TagName), "-", strconv.Itoa(e.ElementCount)})
	}
	for _, e := range c.Diff.Removed {
		rows = append(rows, []string{"removed", cell(orDash(e.CSSClass)), cell(e.TagName), strconv.Itoa(e.ElementCount), "-"})
	}
	for _, ch := range c.Diff.Changed {
		rows = append(rows, []string{"changed", cell(orDash(ch.CSSClass)), cell(ch.TagName), strconv.Itoa(ch.Before), strconv.Itoa(ch.After)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Change", "Class", "Tag", "Before", "After"},
		Rows:   rows,
	})
	md.PlainText("")
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [jurisdata](https://github.com/nao1215/jurisdata)*")
}

// cell makes s safe inside a Markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
