// Package report writes parsed records for people and tools.
//
// This package contains writers for different output formats:
//   - TextWriter: one line per record in a Go-like struct notation
//   - JSONWriter: one JSON document per record
//   - MarkdownWriter: a summary document with tables and a pie chart
//
// Writers implement the Writer interface and receive records as they are
// read, so a report never has to be held in memory just to be printed.
// MarkdownWriter is the exception: it needs the whole report to summarize
// it and renders on Flush.
package report
