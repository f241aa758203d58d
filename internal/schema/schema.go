// Package schema builds model records from raw YAML documents.
//
// Each record type has a builder that reads fields by name from a Document,
// runs the matching converter from package convert and returns the record.
// Fields missing from the document stay nil. Builders never validate; a
// builder only fails when a value cannot be converted to its field's type.
//
// Entry documents store the tested URL under "input". EntryRenames maps that
// key to the internal field name "input_url" and BuildEntry applies it
// before reading any field.
package schema

import (
	"errors"
	"maps"
	"slices"
)

// Document is one decoded YAML document.
type Document = map[string]any

// EntryRenames maps document keys to internal field names for entries.
var EntryRenames = map[string]string{
	"input": "input_url",
}

// Field names per record type, using internal names.
var (
	HeaderFields = []string{
		"backend_version", "input_hashes", "options", "probe_asn", "probe_cc",
		"probe_city", "probe_ip", "report_id", "software_name",
		"software_version", "start_time", "test_helpers", "test_name",
		"test_version",
	}

	EntryFields = []string{
		"agent", "body_length_match", "body_proportion", "control_failure",
		"experiment_failure", "factor", "headers_diff", "headers_match",
		"input_url", "requests", "socksproxy", "test_runtime",
		"test_start_time",
	}

	RequestResponseFields = []string{"failure", "request", "response"}

	RequestFields = []string{"body", "headers", "method", "tor", "url"}

	ResponseFields = []string{"body", "code", "headers"}
)

// FieldError reports a value that could not be converted to its field type.
type FieldError struct {
	// Path is the dotted path of the field, e.g. "requests[0].request.headers".
	Path string

	// Err is the conversion error.
	Err error
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

// Unwrap returns the conversion error.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// Rename returns a copy of doc with keys renamed per renames.
// A renamed key replaces any key already carrying the internal name.
func Rename(doc Document, renames map[string]string) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		if _, renamed := renames[k]; renamed {
			continue
		}
		out[k] = v
	}
	for external, internal := range renames {
		if v, ok := doc[external]; ok {
			out[internal] = v
		}
	}
	return out
}

// UnknownKeys returns the keys of doc that are not in fields, sorted.
func UnknownKeys(doc Document, fields []string) []string {
	var unknown []string
	for _, k := range slices.Sorted(maps.Keys(doc)) {
		if !slices.Contains(fields, k) {
			unknown = append(unknown, k)
		}
	}
	return unknown
}

// joinPath appends key to a dotted path.
func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// fieldError wraps err with path, composing with an inner FieldError.
func fieldError(path string, err error) error {
	var inner *FieldError
	if errors.As(err, &inner) {
		return &FieldError{Path: joinPath(path, inner.Path), Err: inner.Err}
	}
	return &FieldError{Path: path, Err: err}
}
