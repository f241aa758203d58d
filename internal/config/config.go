package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultBatchSize is the number of report files parsed concurrently
	// by the import command. Parsing is CPU and disk bound, so a small
	// number is enough to keep both busy.
	DefaultBatchSize = 10

	// AppName is the application name used for XDG directory paths.
	AppName = "httpreqs"
)

// Output formats accepted by the configuration file.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Log formats accepted by --log-format.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config holds all configuration options for httpreqs.
// It is populated from CLI flags, optionally overlaid by the configuration
// file, and passed down explicitly rather than kept in global state.
type Config struct {
	// Inputs are the report files to read.
	Inputs []string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// LogFormat selects text or JSON log lines on stderr.
	LogFormat string

	// JSONOutput prints records as JSON lines instead of the text form.
	// Mutually exclusive with MarkdownOutput.
	JSONOutput bool

	// PrettyJSON indents JSON output.
	PrettyJSON bool

	// MarkdownOutput prints a Markdown summary of the report.
	// Mutually exclusive with JSONOutput.
	MarkdownOutput bool

	// OutputFile is the file the output is written to.
	// When empty, output goes to stdout.
	OutputFile string

	// ValidateRecords runs validation after construction and prints violations.
	// Construction itself never validates.
	ValidateRecords bool

	// BatchSize is the number of files parsed concurrently by import.
	BatchSize int

	// DBDir is the directory holding the SQLite database.
	// Defaults to the XDG data directory (~/.local/share/httpreqs on Linux).
	DBDir string

	// ConfigFilePath is the path to the configuration file.
	// If empty, .httpreqs is searched in the current directory and then
	// in the user's home directory.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		BatchSize: DefaultBatchSize,
		LogFormat: LogFormatText,
		DBDir:     XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for httpreqs.
// On Linux: ~/.local/share/httpreqs
// On macOS: ~/Library/Application Support/httpreqs
// On Windows: %LOCALAPPDATA%\httpreqs
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for httpreqs.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
func (c *Config) Validate() error {
	if len(c.Inputs) == 0 {
		return ErrNoInput
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.JSONOutput && c.MarkdownOutput {
		return ErrConflictingOutputFormats
	}

	return nil
}
