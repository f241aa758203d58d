package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nao1215/httpreqs/internal/config"
	"github.com/nao1215/httpreqs/internal/database"
	"github.com/nao1215/httpreqs/internal/log"
	"github.com/nao1215/httpreqs/internal/report"
	"github.com/spf13/cobra"
)

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// boolFlag returns the value of a bool flag, or false when the command
// does not define it.
func boolFlag(cmd *cobra.Command, name string) (bool, error) {
	if cmd.Flags().Lookup(name) == nil {
		return false, nil
	}
	return cmd.Flags().GetBool(name)
}

// stringFlag returns the value of a string flag, or "" when the command
// does not define it.
func stringFlag(cmd *cobra.Command, name string) (string, error) {
	if cmd.Flags().Lookup(name) == nil {
		return "", nil
	}
	return cmd.Flags().GetString(name)
}

// buildConfig creates a Config from cobra command flags and the
// configuration file. Flags a command does not define keep their defaults.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Inputs = args
	cfg.Verbose = getVerboseFlag(cmd)

	var err error
	if cfg.JSONOutput, err = boolFlag(cmd, "json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownOutput, err = boolFlag(cmd, "markdown"); err != nil {
		return nil, err
	}
	if cfg.PrettyJSON, err = boolFlag(cmd, "pretty"); err != nil {
		return nil, err
	}
	if cfg.ValidateRecords, err = boolFlag(cmd, "validate"); err != nil {
		return nil, err
	}
	if cfg.OutputFile, err = stringFlag(cmd, "output"); err != nil {
		return nil, err
	}
	if cmd.Flags().Lookup("batch") != nil {
		if cfg.BatchSize, err = cmd.Flags().GetInt("batch"); err != nil {
			return nil, err
		}
	}
	logFormat, err := stringFlag(cmd, "log-format")
	if err != nil {
		return nil, err
	}
	switch logFormat {
	case "":
	case config.LogFormatText, config.LogFormatJSON:
		cfg.LogFormat = logFormat
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownLogFormat, logFormat)
	}

	dbDir, err := stringFlag(cmd, "db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	cfg.ConfigFilePath, err = stringFlag(cmd, "config")
	if err != nil {
		return nil, err
	}

	// If the user explicitly named a config file, it must exist.
	// Otherwise a missing file just leaves the flag values alone.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cf, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cf.Apply(cfg, cmd.Flags().Changed)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	return cfg, nil
}

// setupLogger creates the redacting logger for the command and installs it
// as the slog default.
func setupLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	var logger *slog.Logger
	if cfg.LogFormat == config.LogFormatJSON {
		logger = log.NewJSONLogger(cmd.ErrOrStderr(), cfg.Verbose)
	} else {
		logger = log.NewLogger(cmd.ErrOrStderr(), cfg.Verbose)
	}
	slog.SetDefault(logger)
	return logger
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// openOutput returns the destination for command output: the named file,
// or the command's stdout when path is empty. The returned close function
// is always safe to call.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports may carry probe IPs and cookies, so only the owner may read them.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// newWriter returns the record writer selected by cfg.
func newWriter(cfg *config.Config, w io.Writer) report.Writer {
	switch {
	case cfg.JSONOutput:
		var opts []report.JSONWriterOption
		if cfg.PrettyJSON {
			opts = append(opts, report.WithPrettyPrint())
		}
		return report.NewJSONWriter(w, opts...)
	case cfg.MarkdownOutput:
		return report.NewMarkdownWriter(w)
	default:
		return report.NewTextWriter(w)
	}
}

// openStore opens the report database in cfg.DBDir.
func openStore(cfg *config.Config, logger *slog.Logger) (*database.ReportStore, error) {
	opts := database.DefaultOptions()
	opts.Logger = logger
	store, err := database.Open(cfg.DBDir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}
