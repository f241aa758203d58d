package main

import (
	"errors"
	"fmt"

	"github.com/nao1215/httpreqs/internal/report"
	"github.com/nao1215/httpreqs/internal/validate"
	"github.com/spf13/cobra"
)

// errReportNotFound is returned when no stored report has the requested id.
var errReportNotFound = errors.New("report not found")

// NewShowCmd creates the show command.
func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [report-id]",
		Short: "Print a report stored in the local database",
		Long: `Show prints a stored report in the same forms as 'parse': the text
records, JSON lines or a Markdown summary.

Examples:
  # Print a stored report
  httpreqs show 20150902T112321Z-US-AS7922

  # Write a Markdown summary of a stored report
  httpreqs show --markdown -o summary.md 20150902T112321Z-US-AS7922`,
		Args: cobra.ExactArgs(1),
		RunE: runShowCmd,
	}

	cmd.Flags().BoolP("json", "j", false,
		"Output records as JSON lines (mutually exclusive with --markdown)")
	cmd.Flags().Bool("pretty", false,
		"Indent JSON output")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output a Markdown summary (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write output to specified file path (creates directories if needed)")
	cmd.Flags().Bool("validate", false,
		"Validate the stored report and print violations")
	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")

	return cmd
}

// runShowCmd executes the show command.
func runShowCmd(cmd *cobra.Command, args []string) (err error) {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg)

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	reportID := args[0]
	stored, err := store.GetReport(cmd.Context(), reportID)
	if err != nil {
		return fmt.Errorf("failed to get report %s: %w", reportID, err)
	}
	if stored == nil {
		return fmt.Errorf("%w: %s", errReportNotFound, reportID)
	}

	out, closeOut, err := openOutput(cmd, cfg.OutputFile)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeOut(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output: %w", cerr)
		}
	}()

	if err := report.WriteReport(newWriter(cfg, out), stored); err != nil {
		return err
	}

	if cfg.ValidateRecords {
		printViolations(cmd.ErrOrStderr(), reportID, validate.Report(stored))
	}
	return nil
}
