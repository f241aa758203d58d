package main

import (
	"fmt"
	"os"

	"github.com/nao1215/httpreqs/internal/config"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for httpreqs.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "httpreqs",
		Short: "Read, validate and compare OONI http_requests reports",
		Long: `httpreqs reads OONI http_requests reports.

A report is a YAML stream whose first document is the header and whose
remaining documents are measurement entries. httpreqs prints the records,
validates them on request, and stores imported reports in a local database
for later listing and comparison.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-format", config.LogFormatText, "Log format: text or json")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .httpreqs in current or home directory)")

	cmd.AddCommand(NewParseCmd())
	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewImportCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewShowCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
