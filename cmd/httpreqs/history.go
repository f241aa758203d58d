package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/httpreqs/internal/database"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List reports stored in the local database",
		Long: `History lists every imported report, newest import first, with its
probe, start time, entry count and the import batch that stored it.

Examples:
  # List stored reports
  httpreqs history

  # List stored reports as JSON
  httpreqs history --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("json", "j", false,
		"Output the list in JSON format")
	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	logger := setupLogger(cmd, cfg)

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	reports, err := store.ListReports(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list reports: %w", err)
	}

	if cfg.JSONOutput {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		if reports == nil {
			reports = []database.ReportMetadata{}
		}
		return encoder.Encode(reports)
	}

	printHistory(cmd.OutOrStdout(), reports)
	return nil
}

// printHistory writes the stored reports as a table.
func printHistory(w io.Writer, reports []database.ReportMetadata) {
	if len(reports) == 0 {
		fmt.Fprintln(w, "No reports found in the database.")
		fmt.Fprintln(w, "\nUse 'httpreqs import <file>' to store a report.")
		return
	}

	fmt.Fprintf(w, "Stored reports (%d):\n\n", len(reports))
	fmt.Fprintf(w, "  %-36s  %-14s  %-20s  %-7s  %s\n", "Report ID", "Probe", "Start Time", "Entries", "Imported")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 100))

	for _, meta := range reports {
		fmt.Fprintf(w, "  %-36s  %-14s  %-20s  %-7d  %s\n",
			meta.ReportID,
			probe(meta),
			formatTime(meta.StartTime),
			meta.EntryCount,
			formatTime(meta.ImportedAt),
		)
	}

	fmt.Fprintln(w, "\nUse 'httpreqs show <report-id>' to print a stored report.")
	fmt.Fprintln(w, "Use 'httpreqs compare <report-id> <report-id>' to compare two reports.")
}

func probe(meta database.ReportMetadata) string {
	switch {
	case meta.ProbeASN == "" && meta.ProbeCC == "":
		return "-"
	case meta.ProbeCC == "":
		return meta.ProbeASN
	case meta.ProbeASN == "":
		return meta.ProbeCC
	default:
		return meta.ProbeASN + "/" + meta.ProbeCC
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}
