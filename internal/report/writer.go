package report

import (
	"io"
	"maps"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/nao1215/jurisdata/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MaxExampleLen is the display limit for example content.
const MaxExampleLen = 200

// Writer renders discovery sessions and comparisons.
type Writer interface {
	// Write renders one discovery session.
	// Returns the number of bytes written and any error encountered.
	Write(session *model.Session) (int, error)

	// WriteComparison renders the difference between two runs.
	WriteComparison(c *Comparison) (int, error)
}

// RunRef identifies one stored discovery.
type RunRef struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
}

// Comparison is the difference between two discoveries of one URL.
type Comparison struct {
	URL   string           `json:"url"`
	Older RunRef           `json:"older"`
	Newer RunRef           `json:"newer"`
	Diff  model.ResultDiff `json:"diff"`
}

// MultiWriter writes to multiple Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write renders the session with every writer. Stops on the first error.
func (m *MultiWriter) Write(session *model.Session) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(session)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteComparison renders the comparison with every writer.
func (m *MultiWriter) WriteComparison(c *Comparison) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteComparison(c)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// TruncateExample shortens s to MaxExampleLen runes and appends "...".
func TruncateExample(s string) string {
	return truncateString(s, MaxExampleLen)
}

// truncateString truncates s to maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + "..."
}

var titleCaser = cases.Title(language.English)

// groupTitle renders a group type for headings, e.g. "Multiple(3)".
func groupTitle(t model.GroupType) string {
	return titleCaser.String(t.String())
}

// yesNo renders a boolean for tables.
func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// orDash replaces an empty cell with "-".
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

// configSource describes where the session's configuration came from.
func configSource(s *model.Session) string {
	switch {
	case s.ConfigName == "":
		return "none"
	case s.ConfigName == s.URL:
		return "own entry"
	default:
		return "alias of " + s.ConfigName
	}
}
