package database

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/httpreqs/internal/model"
)

// FileName is the SQLite database file created inside the database directory.
const FileName = "reports.db"

// ErrNoHeader is returned when saving a report without a header.
var ErrNoHeader = errors.New("report has no header")

// ErrNoReportID is returned when saving a report whose header has no
// report_id. Stored reports are addressed by it.
var ErrNoReportID = errors.New("report has no report_id")

// ReportStore provides SQLite-based storage for parsed reports.
type ReportStore struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string

	newBackOff func() backoff.BackOff
	logger     *slog.Logger
}

// Options configures ReportStore behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so readers are not blocked
	// while an import is running.
	EnableWAL bool

	// NewBackOff returns the retry policy used while the database is busy.
	// If nil, an exponential backoff capped at ten seconds is used.
	NewBackOff func() backoff.BackOff

	// Logger receives retry notices. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 10 * time.Second
	return b
}

// NewBatchID returns a new import batch identifier.
func NewBatchID() string {
	return uuid.NewString()
}

// Open opens or creates a ReportStore in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*ReportStore, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	store := &ReportStore{
		db:         db,
		dbPath:     dbPath,
		newBackOff: opts.NewBackOff,
		logger:     opts.Logger,
	}
	if store.newBackOff == nil {
		store.newBackOff = defaultBackOff
	}
	if store.logger == nil {
		store.logger = slog.Default()
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := store.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

// Path returns the database file path.
func (s *ReportStore) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *ReportStore) Close() error {
	return s.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (s *ReportStore) createTables() error {
	schema := `
	-- One row per imported report
	CREATE TABLE IF NOT EXISTS reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		report_id TEXT UNIQUE,
		test_name TEXT,
		probe_asn TEXT,
		probe_cc TEXT,
		start_time REAL,
		header_json TEXT NOT NULL,
		source_path TEXT NOT NULL,
		content_hash TEXT NOT NULL UNIQUE,
		batch_id TEXT NOT NULL,
		imported_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_reports_batch ON reports(batch_id);
	CREATE INDEX IF NOT EXISTS idx_reports_imported ON reports(imported_at);

	-- Entries in document order
	CREATE TABLE IF NOT EXISTS entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		report_ref INTEGER NOT NULL REFERENCES reports(id),
		position INTEGER NOT NULL,
		input_url TEXT,
		control_failure TEXT,
		experiment_failure TEXT,
		entry_json TEXT NOT NULL,
		UNIQUE(report_ref, position)
	);

	CREATE INDEX IF NOT EXISTS idx_entries_url ON entries(input_url);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// SaveResult describes the outcome of SaveReport.
type SaveResult struct {
	// ID is the database row id of the stored report.
	ID int64

	// Inserted is false when an identical report was already stored.
	Inserted bool
}

// SaveReport stores report with its entries in one transaction.
// The header must carry a non-blank report_id.
// Saving identical content twice is a no-op that returns the existing row.
// A report whose report_id is already stored with different content
// replaces the stored version.
func (s *ReportStore) SaveReport(ctx context.Context, report *model.Report, source, batchID string) (*SaveResult, error) {
	if report == nil || report.Header == nil {
		return nil, ErrNoHeader
	}
	if report.Header.ReportID == nil || strings.TrimSpace(*report.Header.ReportID) == "" {
		return nil, ErrNoReportID
	}

	content, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize report: %w", err)
	}
	sum := sha3.Sum256(content)
	hash := hex.EncodeToString(sum[:])

	headerJSON, err := json.Marshal(report.Header)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize header: %w", err)
	}
	entriesJSON := make([]string, len(report.Entries))
	for i, e := range report.Entries {
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize entry %d: %w", i, err)
		}
		entriesJSON[i] = string(data)
	}

	var result *SaveResult
	err = s.retry(ctx, func() error {
		r, err := s.saveTx(ctx, report, string(headerJSON), entriesJSON, source, hash, batchID)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ReportStore) saveTx(ctx context.Context, report *model.Report, headerJSON string, entriesJSON []string, source, hash, batchID string) (*SaveResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM reports WHERE content_hash = ?`, hash).Scan(&existing)
	if err == nil {
		return &SaveResult{ID: existing}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up report: %w", err)
	}

	if id := report.ID(); id != "" {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM entries WHERE report_ref IN (SELECT id FROM reports WHERE report_id = ?)`, id); err != nil {
			return nil, fmt.Errorf("failed to replace entries: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM reports WHERE report_id = ?`, id); err != nil {
			return nil, fmt.Errorf("failed to replace report: %w", err)
		}
	}

	h := report.Header
	res, err := tx.ExecContext(ctx, `
	INSERT INTO reports (report_id, test_name, probe_asn, probe_cc, start_time, header_json, source_path, content_hash, batch_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		nullString(h.ReportID),
		nullString(h.TestName),
		nullString(h.ProbeASN),
		nullString(h.ProbeCC),
		nullEpoch(h.StartTime),
		headerJSON,
		source,
		hash,
		batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert report: %w", err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get report row id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO entries (report_ref, position, input_url, control_failure, experiment_failure, entry_json)
	VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare entry insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range report.Entries {
		if _, err := stmt.ExecContext(ctx,
			rowID,
			i,
			nullString(e.InputURL),
			nullString(e.ControlFailure),
			nullString(e.ExperimentFailure),
			entriesJSON[i],
		); err != nil {
			return nil, fmt.Errorf("failed to insert entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit report: %w", err)
	}
	return &SaveResult{ID: rowID, Inserted: true}, nil
}

// retry runs op until it succeeds, fails with an error other than a busy
// database, or the backoff policy gives up.
func (s *ReportStore) retry(ctx context.Context, op func() error) error {
	b := backoff.WithContext(s.newBackOff(), ctx)
	return backoff.RetryNotify(func() error {
		err := op()
		if err != nil && !isBusy(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, wait time.Duration) {
		s.logger.Debug("database busy, retrying", "error", err, "wait", wait)
	})
}

// isBusy reports whether err means another connection holds the lock.
func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED") ||
		strings.Contains(msg, "database is locked")
}

// GetReport retrieves a stored report by its report_id.
// It returns nil, nil when no such report is stored.
func (s *ReportStore) GetReport(ctx context.Context, reportID string) (*model.Report, error) {
	var rowID int64
	var headerJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, header_json FROM reports WHERE report_id = ?`, reportID).Scan(&rowID, &headerJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var header model.Header
	if err := json.Unmarshal([]byte(headerJSON), &header); err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	entries, err := s.entries(ctx, rowID)
	if err != nil {
		return nil, err
	}
	return &model.Report{Header: &header, Entries: entries}, nil
}

// GetEntries retrieves the entries of a stored report in document order.
// It returns nil, nil when no such report is stored.
func (s *ReportStore) GetEntries(ctx context.Context, reportID string) ([]*model.Entry, error) {
	var rowID int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM reports WHERE report_id = ?`, reportID).Scan(&rowID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return s.entries(ctx, rowID)
}

func (s *ReportStore) entries(ctx context.Context, rowID int64) ([]*model.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entry_json FROM entries WHERE report_ref = ? ORDER BY position`, rowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*model.Entry, 0)
	for rows.Next() {
		var entryJSON string
		if err := rows.Scan(&entryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		var e model.Entry
		if err := json.Unmarshal([]byte(entryJSON), &e); err != nil {
			return nil, fmt.Errorf("failed to parse entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// ReportMetadata contains summary information about a stored report.
// This is used for listing reports without loading their entries.
type ReportMetadata struct {
	// ID is the database row id.
	ID int64 `json:"id"`

	ReportID string `json:"report_id"`
	TestName string `json:"test_name"`
	ProbeASN string `json:"probe_asn"`
	ProbeCC  string `json:"probe_cc"`

	// StartTime is the header start time; zero when the header has none.
	StartTime time.Time `json:"start_time"`

	// SourcePath is the file the report was imported from.
	SourcePath string `json:"source_path"`

	// ContentHash is the hex SHA3-256 of the report's JSON form.
	ContentHash string `json:"content_hash"`

	// BatchID identifies the import run that stored the report.
	BatchID string `json:"batch_id"`

	// ImportedAt is when the report was stored.
	ImportedAt time.Time `json:"imported_at"`

	// EntryCount is the number of stored entries.
	EntryCount int `json:"entry_count"`
}

// ListReports returns metadata for every stored report, newest import first.
func (s *ReportStore) ListReports(ctx context.Context) ([]ReportMetadata, error) {
	query := `
	SELECT r.id, COALESCE(r.report_id, ''), COALESCE(r.test_name, ''),
		COALESCE(r.probe_asn, ''), COALESCE(r.probe_cc, ''), r.start_time,
		r.source_path, r.content_hash, r.batch_id, r.imported_at,
		(SELECT COUNT(*) FROM entries e WHERE e.report_ref = r.id)
	FROM reports r
	ORDER BY r.imported_at DESC, r.id DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var results []ReportMetadata
	for rows.Next() {
		var meta ReportMetadata
		var startTime sql.NullFloat64
		var importedAt string

		if err := rows.Scan(
			&meta.ID,
			&meta.ReportID,
			&meta.TestName,
			&meta.ProbeASN,
			&meta.ProbeCC,
			&startTime,
			&meta.SourcePath,
			&meta.ContentHash,
			&meta.BatchID,
			&importedAt,
			&meta.EntryCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		if startTime.Valid {
			meta.StartTime = model.NewTimestamp(startTime.Float64).Time
		}
		meta.ImportedAt = parseTimestamp(importedAt)

		results = append(results, meta)
	}

	return results, rows.Err()
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullEpoch(t *model.Timestamp) any {
	if t == nil {
		return nil
	}
	return t.Epoch()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
