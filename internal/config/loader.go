package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".httpreqs"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .httpreqs configuration file.
// Every field is optional; a zero value leaves the flag value untouched.
type File struct {
	// Format is the default output format: text, json or markdown.
	Format string `yaml:"format,omitempty"`

	// Pretty indents JSON output.
	Pretty bool `yaml:"pretty,omitempty"`

	// Validate runs validation after parsing by default.
	Validate bool `yaml:"validate,omitempty"`

	// BatchSize overrides the number of files imported concurrently.
	BatchSize int `yaml:"batchSize,omitempty"`

	// DBDir overrides the database directory.
	DBDir string `yaml:"dbDir,omitempty"`
}

// LoadConfigFile loads a configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	switch cf.Format {
	case "", FormatText, FormatJSON, FormatMarkdown:
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}

	return &cf, nil
}

// Apply overlays the file's settings onto c. Flags set explicitly on the
// command line win; changed reports whether a flag was given by the user.
func (cf *File) Apply(c *Config, changed func(flag string) bool) {
	if changed == nil {
		changed = func(string) bool { return false }
	}

	if !changed("json") && !changed("markdown") {
		switch cf.Format {
		case FormatJSON:
			c.JSONOutput = true
		case FormatMarkdown:
			c.MarkdownOutput = true
		}
	}
	if cf.Pretty && !changed("pretty") {
		c.PrettyJSON = true
	}
	if cf.Validate && !changed("validate") {
		c.ValidateRecords = true
	}
	if cf.BatchSize != 0 && !changed("batch") {
		c.BatchSize = cf.BatchSize
	}
	if cf.DBDir != "" && !changed("db-dir") {
		c.DBDir = cf.DBDir
	}
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .httpreqs in the current directory
// 3. Look for .httpreqs in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}
