package report

import (
	"io"

	"github.com/nao1215/httpreqs/internal/model"
)

// Writer defines the interface for record output.
// WriteHeader is called once before any WriteEntry; Flush is called once
// after the last entry.
type Writer interface {
	// WriteHeader outputs the header record.
	WriteHeader(h *model.Header) error

	// WriteEntry outputs one entry record.
	WriteEntry(e *model.Entry) error

	// Flush completes the output.
	Flush() error
}

// WriteReport writes a complete report through w.
func WriteReport(w Writer, report *model.Report) error {
	if err := w.WriteHeader(report.Header); err != nil {
		return err
	}
	for _, e := range report.Entries {
		if err := w.WriteEntry(e); err != nil {
			return err
		}
	}
	return w.Flush()
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
