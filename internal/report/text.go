package report

import (
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/nao1215/httpreqs/internal/model"
)

// nilText is printed for absent values.
const nilText = "<nil>"

// TextWriter prints each record on its own line as Name{Field: value, ...}.
// Fields appear in declaration order, absent values print as <nil>, text
// is quoted, timestamps print as RFC 3339 and headers in first-seen order.
type TextWriter struct {
	baseWriter
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer) *TextWriter {
	return &TextWriter{baseWriter: newBaseWriter(output)}
}

// WriteHeader prints the header record.
func (w *TextWriter) WriteHeader(h *model.Header) error {
	return w.writeLine(formatHeader(h))
}

// WriteEntry prints one entry record.
func (w *TextWriter) WriteEntry(e *model.Entry) error {
	return w.writeLine(formatEntry(e))
}

// Flush is a no-op; every record is written immediately.
func (w *TextWriter) Flush() error {
	return nil
}

func (w *TextWriter) writeLine(s string) error {
	_, err := io.WriteString(w.output, s+"\n")
	return err
}

// record builds the Name{Field: value, ...} form.
type record struct {
	sb strings.Builder
	n  int
}

func newRecord(name string) *record {
	r := &record{}
	r.sb.WriteString(name)
	r.sb.WriteByte('{')
	return r
}

func (r *record) field(name, value string) *record {
	if r.n > 0 {
		r.sb.WriteString(", ")
	}
	r.sb.WriteString(name)
	r.sb.WriteString(": ")
	r.sb.WriteString(value)
	r.n++
	return r
}

func (r *record) String() string {
	return r.sb.String() + "}"
}

func formatHeader(h *model.Header) string {
	if h == nil {
		return "Header" + nilText
	}
	return newRecord("Header").
		field("BackendVersion", text(h.BackendVersion)).
		field("InputHashes", list(h.InputHashes)).
		field("Options", list(h.Options)).
		field("ProbeASN", text(h.ProbeASN)).
		field("ProbeCC", text(h.ProbeCC)).
		field("ProbeCity", text(h.ProbeCity)).
		field("ProbeIP", text(h.ProbeIP)).
		field("ReportID", text(h.ReportID)).
		field("SoftwareName", text(h.SoftwareName)).
		field("SoftwareVersion", text(h.SoftwareVersion)).
		field("StartTime", timestamp(h.StartTime)).
		field("TestHelpers", textMap(h.TestHelpers)).
		field("TestName", text(h.TestName)).
		field("TestVersion", text(h.TestVersion)).
		String()
}

func formatEntry(e *model.Entry) string {
	if e == nil {
		return "Entry" + nilText
	}
	requests := nilText
	if e.Requests != nil {
		parts := make([]string, len(e.Requests))
		for i, rr := range e.Requests {
			parts[i] = formatRequestResponse(rr)
		}
		requests = "[" + strings.Join(parts, " ") + "]"
	}
	return newRecord("Entry").
		field("Agent", text(e.Agent)).
		field("BodyLengthMatch", boolean(e.BodyLengthMatch)).
		field("BodyProportion", float(e.BodyProportion)).
		field("ControlFailure", text(e.ControlFailure)).
		field("ExperimentFailure", text(e.ExperimentFailure)).
		field("Factor", float(e.Factor)).
		field("HeadersDiff", list(e.HeadersDiff)).
		field("HeadersMatch", boolean(e.HeadersMatch)).
		field("InputURL", text(e.InputURL)).
		field("Requests", requests).
		field("SocksProxy", text(e.SocksProxy)).
		field("TestRuntime", float(e.TestRuntime)).
		field("TestStartTime", timestamp(e.TestStartTime)).
		String()
}

func formatRequestResponse(rr model.RequestResponse) string {
	request := nilText
	if q := rr.Request; q != nil {
		request = newRecord("Request").
			field("Body", text(q.Body)).
			field("Headers", headers(q.Headers)).
			field("Method", text(q.Method)).
			field("Tor", textMap(q.Tor)).
			field("URL", text(q.URL)).
			String()
	}
	response := nilText
	if p := rr.Response; p != nil {
		response = newRecord("Response").
			field("Body", text(p.Body)).
			field("Code", text(p.Code)).
			field("Headers", headers(p.Headers)).
			String()
	}
	return newRecord("RequestResponse").
		field("Failure", text(rr.Failure)).
		field("Request", request).
		field("Response", response).
		String()
}

func text(s *string) string {
	if s == nil {
		return nilText
	}
	return strconv.Quote(*s)
}

func boolean(b *bool) string {
	if b == nil {
		return nilText
	}
	return strconv.FormatBool(*b)
}

func float(f *float64) string {
	if f == nil {
		return nilText
	}
	return strconv.FormatFloat(*f, 'g', -1, 64)
}

func timestamp(t *model.Timestamp) string {
	if t == nil {
		return nilText
	}
	return t.String()
}

func list(items []string) string {
	if items == nil {
		return nilText
	}
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = strconv.Quote(s)
	}
	return "[" + strings.Join(quoted, " ") + "]"
}

// textMap prints keys in sorted order, as fmt does for maps.
func textMap(m map[string]string) string {
	if m == nil {
		return nilText
	}
	var sb strings.Builder
	sb.WriteString("map[")
	for i, k := range slices.Sorted(maps.Keys(m)) {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(k)
		sb.WriteByte(':')
		sb.WriteString(strconv.Quote(m[k]))
	}
	sb.WriteByte(']')
	return sb.String()
}

func headers(h *model.Headers) string {
	if h == nil {
		return nilText
	}
	return h.String()
}
