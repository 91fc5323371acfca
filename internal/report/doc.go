// Package report renders discovery sessions and run comparisons.
//
// Writers:
//   - SimpleWriter: terminal tables
//   - JSONWriter: structured JSON for tool integration
//   - MarkdownWriter: Markdown for sharing
//
// Writers implement the Writer interface and can be combined with
// MultiWriter.
package report
