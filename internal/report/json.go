package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/httpreqs/internal/model"
)

// JSONWriter outputs records as JSON, one document per record.
// Compact output is JSON Lines; indented output separates documents with
// a newline. Timestamps are emitted as epoch numbers and headers as
// objects whose keys keep first-seen order.
type JSONWriter struct {
	baseWriter

	enc *json.Encoder
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent indents each record; prefix starts every line after the first
// and indent is repeated once per nesting level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.enc.SetIndent(prefix, indent)
	}
}

// WithPrettyPrint indents records by two spaces.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	w.enc = json.NewEncoder(w.output)
	w.enc.SetEscapeHTML(false)

	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteHeader outputs the header record.
func (w *JSONWriter) WriteHeader(h *model.Header) error {
	return w.enc.Encode(h)
}

// WriteEntry outputs one entry record.
func (w *JSONWriter) WriteEntry(e *model.Entry) error {
	return w.enc.Encode(e)
}

// Flush is a no-op; every record is written immediately.
func (w *JSONWriter) Flush() error {
	return nil
}
