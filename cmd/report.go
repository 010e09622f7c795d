package cmd

import (
	"context"
	"fmt"

	"github.com/btc-embedded/smart-testing-genai/internal/config"
	"github.com/btc-embedded/smart-testing-genai/internal/ep"
	"github.com/btc-embedded/smart-testing-genai/internal/workflow"
	"github.com/spf13/cobra"
)

var (
	reportTemplate string
	reportScope    string
	reportOutput   string
)

var reportCmd = &cobra.Command{
	Use:   "report <project.epx>",
	Short: "Export a test report of a project",
	Long: `Load a test project in BTC EmbeddedPlatform and export a report
of its toplevel scope, or of the scope given with --scope.

Common templates:
  rbt-sl       - requirements-based tests on the model
  rbt-b2b-ec   - requirements-based and back-to-back tests on the code

Examples:
  epci report test/controller.epx
  epci report test/controller.epx --template rbt-b2b-ec --scope filter`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportTemplate, "template", "", "Report template (default is the MIL report template)")
	reportCmd.Flags().StringVar(&reportScope, "scope", "", "Scope name (default is the configured subsystem or toplevel)")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Output directory (default is the report directory)")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	client := ep.NewClient(config.GetEPURL(), logger,
		ep.WithTimeout(config.GetEPTimeout()),
		ep.WithPollInterval(config.GetPollInterval()),
	)
	if !client.IsAvailable(ctx) {
		return fmt.Errorf("BTC EmbeddedPlatform is not available at %s", client.BaseURL())
	}

	opts := workflow.OptionsFromConfig()
	if reportScope != "" {
		opts.Subsystem = reportScope
	}
	template := reportTemplate
	if template == "" {
		template = opts.MILReportTemplate
	}
	dir := reportOutput
	if dir == "" {
		dir = opts.ReportDir
	}

	runner := workflow.NewRunner(client, opts, logger)
	if err := runner.Report(ctx, args[0], template, dir); err != nil {
		return fmt.Errorf("failed to export report: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %s report to %s\n", template, dir)
	return nil
}
