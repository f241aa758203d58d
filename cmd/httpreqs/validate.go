package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nao1215/httpreqs/internal/validate"
	"github.com/spf13/cobra"
)

// errValidationFailed is returned when at least one report has violations.
var errValidationFailed = errors.New("validation failed")

// validationReport is the JSON form of one file's validation result.
type validationReport struct {
	Path       string               `json:"path"`
	Valid      bool                 `json:"valid"`
	Violations []validate.Violation `json:"violations"`
}

// NewValidateCmd creates the validate command.
func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [report-file...]",
		Short: "Validate http_requests reports",
		Long: `Validate builds every record of each report and then checks it:
required fields, URL and IP address syntax, country codes, AS numbers,
request methods, status codes and header names.

The command exits with a non-zero status when any report has violations
or cannot be read.

Examples:
  # Validate one report
  httpreqs validate report.yamloo

  # Validate several reports and print JSON results
  httpreqs validate --json reports/*.yamloo`,
		Args: cobra.MinimumNArgs(1),
		RunE: runValidateCmd,
	}

	cmd.Flags().BoolP("json", "j", false,
		"Output one JSON result per report")

	return cmd
}

// runValidateCmd executes the validate command.
func runValidateCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg)

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	enc := json.NewEncoder(cmd.OutOrStdout())
	failed := 0
	for _, path := range cfg.Inputs {
		result, err := streamReport(ctx, path, nil, true, logger)
		if err != nil {
			return err
		}
		if !result.OK() {
			failed++
		}

		if cfg.JSONOutput {
			violations := result.Violations
			if violations == nil {
				violations = []validate.Violation{}
			}
			if err := enc.Encode(validationReport{
				Path:       path,
				Valid:      result.OK(),
				Violations: violations,
			}); err != nil {
				return err
			}
			continue
		}
		printViolations(cmd.OutOrStdout(), path, result)
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d report(s) have violations", errValidationFailed, failed, len(cfg.Inputs))
	}
	return nil
}
