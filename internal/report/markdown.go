package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/httpreqs/internal/analysis"
	"github.com/nao1215/httpreqs/internal/model"
)

// MarkdownWriter outputs a report summary in GitHub Flavored Markdown.
// Records are buffered and rendered on Flush, because the summary needs
// every entry.
type MarkdownWriter struct {
	baseWriter

	header  *model.Header
	entries []*model.Entry
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteHeader buffers the header record.
func (w *MarkdownWriter) WriteHeader(h *model.Header) error {
	w.header = h
	return nil
}

// WriteEntry buffers one entry record.
func (w *MarkdownWriter) WriteEntry(e *model.Entry) error {
	w.entries = append(w.entries, e)
	return nil
}

// Flush renders the buffered report.
func (w *MarkdownWriter) Flush() error {
	report := &model.Report{Header: w.header, Entries: w.entries}
	summary := analysis.Summarize(report)

	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report.Header)
	w.writeSummary(md, summary)
	w.writeEntries(md, report.Entries)
	w.writeFooter(md)

	return md.Build()
}

// writeHeader writes the report header table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, h *model.Header) {
	md.H1("HTTP Requests Report")
	md.PlainText("")

	if h == nil {
		md.Warningf("The report has no header.")
		md.PlainText("")
		return
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Report ID", code(h.ReportID)},
			{"Test", cell(h.TestName) + " " + cell(h.TestVersion)},
			{"Software", cell(h.SoftwareName) + " " + cell(h.SoftwareVersion)},
			{"Probe", cell(h.ProbeASN) + " / " + cell(h.ProbeCC)},
			{"Start Time", timeCell(h.StartTime)},
			{"Backend", cell(h.BackendVersion)},
		},
	})
	md.PlainText("")
}

// writeSummary writes the aggregate table, the failure chart and an alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, s *analysis.Summary) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Measure", "Count"},
		Rows: [][]string{
			{"Entries", strconv.Itoa(s.Entries)},
			{"Unique URLs", strconv.Itoa(s.UniqueURLs)},
			{"Requests", strconv.Itoa(s.Requests)},
			{"Failed entries", strconv.Itoa(s.Failed)},
			{"Body length match", tallyCell(s.BodyLength)},
			{"Headers match", tallyCell(s.Headers)},
		},
	})
	md.PlainText("")

	if failures := analysis.Ranked(s.ExperimentFailures); len(failures) > 0 {
		w.writePieChart(md, "Experiment Failures", failures)
	}
	if failures := analysis.Ranked(s.ControlFailures); len(failures) > 0 {
		w.writePieChart(md, "Control Failures", failures)
	}

	w.writeAlert(md, s)
}

// writePieChart writes a mermaid pie chart of failure reasons.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, title string, counts []analysis.Count) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle(title),
		piechart.WithShowData(true),
	)
	for _, c := range counts {
		chart.LabelAndIntValue(c.Reason, uint64(c.N)) //nolint:gosec // counts are never negative
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert describing how many entries failed.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s *analysis.Summary) {
	switch {
	case s.Entries == 0:
		md.Note("The report contains no entries.")
	case s.Failed == s.Entries:
		md.Cautionf("Every entry failed (%d of %d).", s.Failed, s.Entries)
	case s.Failed > 0:
		md.Warningf("%d of %d entries failed.", s.Failed, s.Entries)
	case s.Headers.Mismatch > 0 || s.BodyLength.Mismatch > 0:
		md.Importantf(
			"No failures, but %d header and %d body length mismatches.",
			s.Headers.Mismatch, s.BodyLength.Mismatch,
		)
	default:
		md.Tip("All entries succeeded with matching responses.")
	}
	md.PlainText("")
}

// writeEntries writes one table row per entry and the headers that differed.
func (w *MarkdownWriter) writeEntries(md *markdown.Markdown, entries []*model.Entry) {
	md.H2("Entries")
	md.PlainText("")

	if len(entries) == 0 {
		md.PlainText("No entries.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			escapeCell(truncateString(e.URL(), 60)),
			escapeCell(statusCodes(e)),
			failureCell(e.ExperimentFailure),
			failureCell(e.ControlFailure),
			matchCell(e.BodyLengthMatch),
			matchCell(e.HeadersMatch),
			escapeCell(truncateString(titles(e), 50)),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"#", "URL", "Codes", "Experiment", "Control", "Body", "Headers", "Title"},
		Rows:   rows,
	})
	md.PlainText("")

	for i, e := range entries {
		if len(e.HeadersDiff) == 0 {
			continue
		}
		md.Details(
			"Header differences in entry "+strconv.Itoa(i+1),
			strings.Join(e.HeadersDiff, ", "),
		)
	}
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [httpreqs](https://github.com/nao1215/httpreqs)*")
}

// cellReplacer keeps report text inside one table cell.
var cellReplacer = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ", "\r", " ")

// escapeCell escapes pipes and flattens line breaks for a table cell.
func escapeCell(s string) string {
	return cellReplacer.Replace(s)
}

func cell(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return escapeCell(*s)
}

func code(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return "`" + escapeCell(*s) + "`"
}

func timeCell(t *model.Timestamp) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05 MST")
}

func tallyCell(t analysis.Tally) string {
	return strconv.Itoa(t.Match) + " match / " +
		strconv.Itoa(t.Mismatch) + " mismatch / " +
		strconv.Itoa(t.Unknown) + " unknown"
}

func failureCell(s *string) string {
	if s == nil {
		return "✅"
	}
	return "❌ " + escapeCell(*s)
}

func matchCell(b *bool) string {
	switch {
	case b == nil:
		return "-"
	case *b:
		return "✅"
	default:
		return "⚠️"
	}
}

// statusCodes lists the response codes of an entry in request order.
func statusCodes(e *model.Entry) string {
	var codes []string
	for _, rr := range e.Requests {
		if rr.Response != nil && rr.Response.Code != nil {
			codes = append(codes, *rr.Response.Code)
		}
	}
	if len(codes) == 0 {
		return "-"
	}
	return strings.Join(codes, ", ")
}

// titles returns the distinct non-empty response titles of an entry.
func titles(e *model.Entry) string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range analysis.ResponseTitles(e) {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) == 0 {
		return "-"
	}
	return strings.Join(out, "; ")
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
