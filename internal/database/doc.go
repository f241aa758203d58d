// Package database provides SQLite-based storage for parsed reports.
//
// ReportStore keeps every imported report so that reports can be listed,
// shown again without the source file, and compared with each other. It
// stores:
//   - one row per report with the header fields used for listing
//   - one row per entry, in document order
//   - the header and every entry as JSON, so records round-trip exactly
//
// SQLite is used through modernc.org/sqlite, a CGO-free driver, so the
// database is a single file under the XDG data directory. Writes are
// retried with exponential backoff while another process holds the lock.
package database
