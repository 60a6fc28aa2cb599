package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kjstillabower/model-catalog/internal/observability"
	"github.com/kjstillabower/model-catalog/internal/visibility"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the filtercheck command writing its report to out.
func newRootCmd(out io.Writer) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "filtercheck",
		Short: "Check the model visibility filter against the reference fixture",
		Long: `Runs the listing filter over six reference model records and reports
how many survive, their names, and whether they match the expected set:
Regular Model 1, Regular Model 2 and Normal Model.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("unknown format %q (want text or json)", format)
			}
			// LOG_LEVEL and LOG_FORMAT only shape the stderr log line; the check itself reads no environment.
			logger, err := observability.NewLogger()
			if err != nil {
				logger = zap.NewNop()
			}
			defer func() { _ = logger.Sync() }()
			return runCheck(out, format, logger)
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	return cmd
}

// runCheck runs the fixture check, logs the counts at INFO and writes the report in format.
func runCheck(out io.Writer, format string, logger *zap.Logger) error {
	report := visibility.RunCheck(visibility.Fixture(), visibility.ExpectedVisibleNames())
	logger.Info("filter check complete",
		zap.Int("original", report.Original),
		zap.Int("filtered", report.Filtered),
		zap.Bool("passed", report.Passed))

	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return report.Write(out)
}
