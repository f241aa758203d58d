package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() so callers can match them
// with errors.Is() while users still see a readable message.
var (
	// ErrNoInput is returned when no report file is given.
	ErrNoInput = errors.New("no input specified: provide at least one report file")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingOutputFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingOutputFormats = errors.New("conflicting output formats: --json and --markdown cannot be used together")

	// ErrUnknownFormat is returned when the configuration file names an
	// output format other than text, json or markdown.
	ErrUnknownFormat = errors.New("unknown output format: must be text, json or markdown")

	// ErrUnknownLogFormat is returned when --log-format is neither text nor json.
	ErrUnknownLogFormat = errors.New("unknown log format: must be text or json")
)
