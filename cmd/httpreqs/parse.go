package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/nao1215/httpreqs/internal/reader"
	"github.com/nao1215/httpreqs/internal/report"
	"github.com/nao1215/httpreqs/internal/validate"
	"github.com/spf13/cobra"
)

// NewParseCmd creates the parse command.
func NewParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [report-file]",
		Short: "Print the records of an http_requests report",
		Long: `Parse reads a report document by document and prints one record per
document: the header first, then every entry in file order.

Records are built without validation. Use --validate to check each record
after it is built; violations are printed to stderr and do not stop the
output.

Examples:
  # Print records in the default text form
  httpreqs parse report.yamloo

  # Print records as JSON lines
  httpreqs parse --json report.yamloo

  # Write a Markdown summary to a file
  httpreqs parse --markdown -o summary.md report.yamloo

  # Print records and the validation result
  httpreqs parse --validate report.yamloo`,
		Args: cobra.ExactArgs(1),
		RunE: runParseCmd,
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
		"Validate each record after it is built and print violations")

	return cmd
}

// runParseCmd executes the parse command.
func runParseCmd(cmd *cobra.Command, args []string) (err error) {
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

	out, closeOut, err := openOutput(cmd, cfg.OutputFile)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeOut(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output: %w", cerr)
		}
	}()

	result, err := streamReport(ctx, cfg.Inputs[0], newWriter(cfg, out), cfg.ValidateRecords, logger)
	if err != nil {
		return err
	}

	if result != nil {
		printViolations(cmd.ErrOrStderr(), cfg.Inputs[0], result)
	}
	return nil
}

// streamReport reads the report at path one document at a time and hands
// each record to w as soon as it is built. A nil w only reads.
//
// When check is set, every record is validated after it is built and the
// collected violations are returned; records are written either way.
// Cancellation is checked between documents.
func streamReport(ctx context.Context, path string, w report.Writer, check bool, logger *slog.Logger) (*validate.Result, error) {
	stream, err := reader.Open(path, reader.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	header, err := stream.Header()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var result *validate.Result
	if check {
		result = &validate.Result{}
		result.Merge("header.", validate.Header(header))
	}
	if w != nil {
		if err := w.WriteHeader(header); err != nil {
			return nil, err
		}
	}

	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		if check {
			result.Merge(fmt.Sprintf("entries[%d].", i), validate.Entry(entry))
		}
		if w != nil {
			if err := w.WriteEntry(entry); err != nil {
				return nil, err
			}
		}
	}

	if w != nil {
		if err := w.Flush(); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// printViolations writes one line per violation, or a single ok line.
func printViolations(w io.Writer, path string, result *validate.Result) {
	if result.OK() {
		fmt.Fprintf(w, "%s: ok\n", path)
		return
	}
	for _, v := range result.Violations {
		fmt.Fprintf(w, "%s: %s\n", path, v)
	}
	fmt.Fprintf(w, "%s: %d violation(s)\n", path, len(result.Violations))
}
