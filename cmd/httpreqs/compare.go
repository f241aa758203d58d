package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/nao1215/httpreqs/internal/analysis"
	"github.com/nao1215/httpreqs/internal/compare"
	"github.com/nao1215/httpreqs/internal/database"
	"github.com/nao1215/httpreqs/internal/model"
	"github.com/spf13/cobra"
)

// syntaxDiff highlights jd output, which marks removals with - and additions with +.
const syntaxDiff markdown.SyntaxHighlight = "diff"

// errNotEnoughReports is returned when compare needs more stored reports.
var errNotEnoughReports = errors.New("at least 2 stored reports are required for comparison")

// NewCompareCmd creates the compare command.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [base-report-id] [target-report-id]",
		Short: "Compare two stored reports",
		Long: `Compare matches the entries of two stored reports by input URL and shows:
- URLs measured only in the target report (added)
- URLs measured only in the base report (removed)
- Matched entries whose measurement changed, with a structural diff
- Failure and mismatch counts of both reports

Timing fields (test_start_time, test_runtime) are ignored.

With no arguments the two most recent imports are compared. With one
argument that report is compared against the most recent other import.

Examples:
  # Compare the two most recent imports
  httpreqs compare

  # Compare two specific reports
  httpreqs compare 20150902T112321Z-US-AS7922 20151001T090000Z-US-AS7922

  # Output the comparison as JSON
  httpreqs compare --json`,
		Args: cobra.MaximumNArgs(2),
		RunE: runCompareCmd,
	}

	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")
	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if cfg.JSONOutput && cfg.MarkdownOutput {
		return errors.New("--json and --markdown cannot be used together")
	}

	logger := setupLogger(cmd, cfg)

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	baseID, targetID, err := resolveReportIDs(ctx, store, args)
	if err != nil {
		return err
	}

	result, err := runComparison(ctx, store, baseID, targetID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case cfg.JSONOutput:
		return outputComparisonJSON(out, result)
	case cfg.MarkdownOutput:
		return outputComparisonMarkdown(out, result)
	default:
		outputComparisonText(out, result)
		return nil
	}
}

// resolveReportIDs picks the base and target report ids from args, filling
// missing ones from the most recent imports.
func resolveReportIDs(ctx context.Context, store *database.ReportStore, args []string) (string, string, error) {
	if len(args) == 2 {
		return args[0], args[1], nil
	}

	reports, err := store.ListReports(ctx)
	if err != nil {
		return "", "", fmt.Errorf("failed to list reports: %w", err)
	}

	if len(args) == 1 {
		for _, meta := range reports {
			if meta.ReportID != args[0] {
				return args[0], meta.ReportID, nil
			}
		}
		return "", "", fmt.Errorf("%w: no other report to compare %s with", errNotEnoughReports, args[0])
	}

	if len(reports) < 2 {
		return "", "", fmt.Errorf("%w (found %d)", errNotEnoughReports, len(reports))
	}
	// Newest import first: the older one is the base.
	return reports[1].ReportID, reports[0].ReportID, nil
}

// ComparisonResult holds the result of comparing two stored reports.
type ComparisonResult struct {
	// Base summarizes the base report.
	Base *analysis.Summary `json:"base"`

	// Target summarizes the target report.
	Target *analysis.Summary `json:"target"`

	// Entries is the entry-level difference.
	Entries *compare.Result `json:"entries"`
}

// runComparison loads both reports and compares them.
func runComparison(ctx context.Context, store *database.ReportStore, baseID, targetID string) (*ComparisonResult, error) {
	base, err := loadReport(ctx, store, baseID)
	if err != nil {
		return nil, err
	}
	target, err := loadReport(ctx, store, targetID)
	if err != nil {
		return nil, err
	}
	return compareReports(base, target)
}

func loadReport(ctx context.Context, store *database.ReportStore, reportID string) (*model.Report, error) {
	r, err := store.GetReport(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to get report %s: %w", reportID, err)
	}
	if r == nil {
		return nil, fmt.Errorf("%w: %s", errReportNotFound, reportID)
	}
	return r, nil
}

// compareReports compares two reports and summarizes both.
func compareReports(base, target *model.Report) (*ComparisonResult, error) {
	entries, err := compare.Reports(base, target)
	if err != nil {
		return nil, fmt.Errorf("failed to compare reports: %w", err)
	}
	return &ComparisonResult{
		Base:    analysis.Summarize(base),
		Target:  analysis.Summarize(target),
		Entries: entries,
	}, nil
}

// summaryRow is one line of the count table shared by text and Markdown output.
type summaryRow struct {
	label        string
	base, target int
}

func summaryRows(result *ComparisonResult) []summaryRow {
	b, t := result.Base, result.Target
	return []summaryRow{
		{"Entries", b.Entries, t.Entries},
		{"Unique URLs", b.UniqueURLs, t.UniqueURLs},
		{"Failed", b.Failed, t.Failed},
		{"Header mismatch", b.Headers.Mismatch, t.Headers.Mismatch},
		{"Body mismatch", b.BodyLength.Mismatch, t.BodyLength.Mismatch},
	}
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(w io.Writer, result *ComparisonResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(w io.Writer, result *ComparisonResult) {
	fmt.Fprintf(w, "Report Comparison: %s -> %s\n", result.Base.ReportID, result.Target.ReportID)
	fmt.Fprintln(w, strings.Repeat("=", 60))

	fmt.Fprintf(w, "\nStatus: %s\n", formatStatus(result.Entries))

	fmt.Fprintln(w, "\nSummary:")
	fmt.Fprintf(w, "  %-16s  %-8s  %-8s  %-8s\n", "Measure", "Base", "Target", "Change")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 46))
	for _, row := range summaryRows(result) {
		fmt.Fprintf(w, "  %-16s  %-8d  %-8d  %-8s\n",
			row.label, row.base, row.target, formatDelta(row.target-row.base))
	}

	if len(result.Entries.Added) > 0 {
		fmt.Fprintf(w, "\nAdded URLs (%d):\n", len(result.Entries.Added))
		for _, u := range result.Entries.Added {
			fmt.Fprintf(w, "  [+] %s\n", u)
		}
	}

	if len(result.Entries.Removed) > 0 {
		fmt.Fprintf(w, "\nRemoved URLs (%d):\n", len(result.Entries.Removed))
		for _, u := range result.Entries.Removed {
			fmt.Fprintf(w, "  [-] %s\n", u)
		}
	}

	if len(result.Entries.Changed) > 0 {
		fmt.Fprintf(w, "\nChanged entries (%d):\n", len(result.Entries.Changed))
		for _, c := range result.Entries.Changed {
			fmt.Fprintf(w, "  [~] %s%s\n", c.URL, occurrence(c))
			for _, line := range strings.Split(strings.TrimRight(c.Diff, "\n"), "\n") {
				fmt.Fprintf(w, "      %s\n", line)
			}
		}
	}

	if result.Entries.Unchanged > 0 {
		fmt.Fprintf(w, "\nUnchanged: %d entries\n", result.Entries.Unchanged)
	}
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(w io.Writer, result *ComparisonResult) error {
	md := markdown.NewMarkdown(w)

	md.H1("Report Comparison: " + singleLine(result.Target.ReportID))
	md.PlainText("")
	md.PlainTextf("Base report: `%s`", singleLine(result.Base.ReportID))
	md.PlainText("")
	md.H2("Summary")
	md.PlainText("")
	md.PlainTextf("**Status:** %s", formatStatus(result.Entries))
	md.PlainText("")

	rows := make([][]string, 0, 5)
	for _, row := range summaryRows(result) {
		rows = append(rows, []string{
			row.label,
			strconv.Itoa(row.base),
			strconv.Itoa(row.target),
			formatDelta(row.target - row.base),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Measure", "Base", "Target", "Change"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(result.Entries.Added) > 0 {
		md.H2(fmt.Sprintf("Added URLs (%d)", len(result.Entries.Added)))
		md.PlainText("")
		added := make([]string, len(result.Entries.Added))
		for i, u := range result.Entries.Added {
			added[i] = singleLine(u)
		}
		md.BulletList(added...)
		md.PlainText("")
	}

	if len(result.Entries.Removed) > 0 {
		md.H2(fmt.Sprintf("Removed URLs (%d)", len(result.Entries.Removed)))
		md.PlainText("")
		removed := make([]string, len(result.Entries.Removed))
		for i, u := range result.Entries.Removed {
			removed[i] = "~~" + singleLine(u) + "~~"
		}
		md.BulletList(removed...)
		md.PlainText("")
	}

	if len(result.Entries.Changed) > 0 {
		md.H2(fmt.Sprintf("Changed Entries (%d)", len(result.Entries.Changed)))
		md.PlainText("")
		for _, c := range result.Entries.Changed {
			md.H3(singleLine(c.URL) + occurrence(c))
			md.PlainText("")
			md.CodeBlocks(syntaxDiff, strings.TrimRight(c.Diff, "\n"))
			md.PlainText("")
		}
	}

	if result.Entries.Unchanged > 0 {
		md.HorizontalRule()
		md.PlainText("")
		md.PlainTextf("*%d entries unchanged*", result.Entries.Unchanged)
	}

	return md.Build()
}

// lineBreaks flattens report text placed in headings and list items.
var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// singleLine keeps s on one Markdown line.
func singleLine(s string) string {
	return lineBreaks.Replace(s)
}

// formatStatus describes whether the reports differ.
func formatStatus(r *compare.Result) string {
	if !r.HasChanges() {
		return "UNCHANGED"
	}
	return fmt.Sprintf("CHANGED (%d added, %d removed, %d changed)",
		len(r.Added), len(r.Removed), len(r.Changed))
}

// occurrence labels repeated URLs with their occurrence number.
func occurrence(c compare.Change) string {
	if c.Occurrence <= 1 {
		return ""
	}
	return " (#" + strconv.Itoa(c.Occurrence) + ")"
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
