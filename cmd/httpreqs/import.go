package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/nao1215/httpreqs/internal/config"
	"github.com/nao1215/httpreqs/internal/database"
	"github.com/nao1215/httpreqs/internal/pipeline"
	"github.com/spf13/cobra"
)

// errImportFailed is returned when at least one file could not be imported.
var errImportFailed = errors.New("import failed")

// NewImportCmd creates the import command.
func NewImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [report-file...]",
		Short: "Parse reports and store them in the local database",
		Long: `Import parses each report file and stores the header and entries in the
local SQLite database, so they can be listed with 'history', printed with
'show' and diffed with 'compare'.

Files are parsed concurrently; --batch limits how many at once. Importing
the same content twice is a no-op. A file with a failed entry document is
not stored at all, and the other files are imported regardless.

Examples:
  # Import every report in a directory
  httpreqs import reports/*.yamloo

  # Validate while importing, and refuse reports with violations
  httpreqs import --validate --strict reports/*.yamloo

  # Use a separate database directory
  httpreqs import --db-dir ./db report.yamloo`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportCmd,
	}

	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of files parsed concurrently")
	cmd.Flags().Bool("validate", false,
		"Validate reports before storing them")
	cmd.Flags().Bool("strict", false,
		"Do not store reports with violations (implies --validate)")
	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")

	return cmd
}

// runImportCmd executes the import command.
func runImportCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	strict, err := cmd.Flags().GetBool("strict")
	if err != nil {
		return err
	}

	logger := setupLogger(cmd, cfg)

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	batchID := database.NewBatchID()
	logger.Info("starting import", "batch_id", batchID, "files", len(cfg.Inputs))

	processor := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			steps := pipeline.ImportSteps(store, batchID, cfg.ValidateRecords || strict, strict, logger)
			return pipeline.New(steps, pipeline.WithLogger(logger))
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	jobs, err := processor.ProcessBatch(ctx, cfg.Inputs)
	printImportResults(cmd.OutOrStdout(), jobs, logger)
	if err != nil {
		return fmt.Errorf("import interrupted: %w", err)
	}

	if failed := pipeline.Failed(jobs); len(failed) > 0 {
		return fmt.Errorf("%w: %d of %d file(s)", errImportFailed, len(failed), len(jobs))
	}
	return nil
}

// printImportResults writes one line per job in input order.
func printImportResults(w io.Writer, jobs []*pipeline.Job, logger *slog.Logger) {
	stored := 0
	for _, job := range jobs {
		switch {
		case job.Err != nil:
			fmt.Fprintf(w, "FAILED    %s: %v\n", job.Path, job.Err)
		case job.Saved != nil && !job.Saved.Inserted:
			fmt.Fprintf(w, "UNCHANGED %s (%s)\n", job.Path, job.Report.ID())
		default:
			stored++
			suffix := ""
			if job.Validation != nil && !job.Validation.OK() {
				suffix = fmt.Sprintf(", %d violation(s)", len(job.Validation.Violations))
			}
			fmt.Fprintf(w, "STORED    %s (%s, %d entries%s)\n",
				job.Path, job.Report.ID(), len(job.Report.Entries), suffix)
		}
	}
	logger.Debug("import summary", "stored", stored, "total", len(jobs))
}
