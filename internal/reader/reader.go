// Package reader iterates the documents of an http_requests report.
//
// A report is a multi-document YAML stream. Stream decodes one document at a
// time with a yaml.v3 Decoder, so memory stays proportional to the largest
// document rather than the whole file.
package reader

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/nao1215/httpreqs/internal/model"
	"github.com/nao1215/httpreqs/internal/schema"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNoHeader is returned when the stream holds no documents at all.
	ErrNoHeader = errors.New("report has no header document")

	// ErrHeaderNotRead is returned when Next is called before Header.
	ErrHeaderNotRead = errors.New("header must be read before entries")
)

// DocumentError reports a document that could not be decoded or built.
type DocumentError struct {
	// Index is the 1-based position of the document in the stream.
	Index int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *DocumentError) Error() string {
	return fmt.Sprintf("document %d: %v", e.Index, e.Err)
}

// Unwrap returns the underlying error.
func (e *DocumentError) Unwrap() error {
	return e.Err
}

// Stream reads a report one document at a time.
// Header must be called once before any call to Next.
type Stream struct {
	dec    *yaml.Decoder
	closer io.Closer
	logger *slog.Logger

	index      int
	headerRead bool
}

// Option configures a Stream.
type Option func(*Stream)

// WithLogger sets the logger used to report undeclared keys.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Stream) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Stream over r. The caller keeps ownership of r.
func New(r io.Reader, opts ...Option) *Stream {
	s := &Stream{
		dec:    yaml.NewDecoder(r),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open opens the report at path. Close releases the file.
func Open(path string, opts ...Option) (*Stream, error) {
	f, err := os.Open(path) //nolint:gosec // reading a user-selected report is the point
	if err != nil {
		return nil, fmt.Errorf("failed to open report: %w", err)
	}
	s := New(f, opts...)
	s.closer = f
	return s, nil
}

// Close releases the underlying file if the Stream opened it.
func (s *Stream) Close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}

// Index returns the 1-based index of the last document read.
func (s *Stream) Index() int {
	return s.index
}

// Header reads the first document and builds the report header.
func (s *Stream) Header() (*model.Header, error) {
	if s.headerRead {
		return nil, errors.New("header already read")
	}
	doc, err := s.next()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, err
	}
	s.headerRead = true

	s.logUnknown(doc, schema.HeaderFields)

	h, err := schema.BuildHeader(doc)
	if err != nil {
		return nil, &DocumentError{Index: s.index, Err: err}
	}
	return h, nil
}

// Next reads the next entry. It returns io.EOF when the stream is done.
func (s *Stream) Next() (*model.Entry, error) {
	if !s.headerRead {
		return nil, ErrHeaderNotRead
	}
	doc, err := s.next()
	if err != nil {
		return nil, err
	}

	s.logUnknown(schema.Rename(doc, schema.EntryRenames), schema.EntryFields)

	e, err := schema.BuildEntry(doc)
	if err != nil {
		return nil, &DocumentError{Index: s.index, Err: err}
	}
	return e, nil
}

// next decodes the next non-empty document.
func (s *Stream) next() (schema.Document, error) {
	for {
		var doc schema.Document
		err := s.dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		s.index++
		if err != nil {
			return nil, &DocumentError{Index: s.index, Err: err}
		}
		if doc == nil {
			s.logger.Debug("skipping empty document", "document", s.index)
			continue
		}
		return doc, nil
	}
}

func (s *Stream) logUnknown(doc schema.Document, fields []string) {
	if unknown := schema.UnknownKeys(doc, fields); len(unknown) > 0 {
		s.logger.Debug("ignoring undeclared keys", "document", s.index, "keys", unknown)
	}
}

// ReadAll reads a whole report from r.
func ReadAll(r io.Reader, opts ...Option) (*model.Report, error) {
	return collect(New(r, opts...))
}

// ReadFile reads a whole report from the file at path.
func ReadFile(path string, opts ...Option) (*model.Report, error) {
	s, err := Open(path, opts...)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return collect(s)
}

func collect(s *Stream) (*model.Report, error) {
	h, err := s.Header()
	if err != nil {
		return nil, err
	}
	report := &model.Report{Header: h}
	for {
		e, err := s.Next()
		if errors.Is(err, io.EOF) {
			return report, nil
		}
		if err != nil {
			return nil, err
		}
		report.Entries = append(report.Entries, e)
	}
}
