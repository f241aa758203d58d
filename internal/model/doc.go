// Package model defines the record types produced from an OONI
// "http_requests" report.
//
// A report is a multi-document YAML stream. The first document becomes a
// Header, every following document becomes an Entry. Entries nest
// RequestResponse pairs, each holding a Request and a Response.
//
// All scalar fields are pointers. A field that is absent from the source
// document, or explicitly null, stays nil. Nothing in this package enforces
// required fields; see package validate for that.
//
// Two field types carry non-trivial encodings:
//   - Timestamp keeps the Unix epoch number it was built from, so that it
//     serializes back to exactly the same number.
//   - Headers is an ordered multi-value mapping that remembers the order in
//     which header names were first seen.
package model
