package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/btc-embedded/smart-testing-genai/internal/config"
	"github.com/btc-embedded/smart-testing-genai/internal/ep"
	"github.com/btc-embedded/smart-testing-genai/internal/workflow"
	"github.com/spf13/cobra"
)

var (
	runWorkDir   string
	runReportDir string
	runSkipHook  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the MIL and SIL test workflow",
	Long: `Run the test workflow against a running BTC EmbeddedPlatform.

Steps:
  1. Find the test projects (*.epx) in the work directory
  2. Register this tool as the EmbeddedPlatform hook
  3. Run the requirements-based tests of every project on the model (MIL)
  4. Stop if any project failed; its results are in <report-dir>/<project>
  5. Upgrade the first project to MIL+SIL and run SIL and back-to-back tests
  6. Export the report and test_results.xml to the report directory

The command fails if the SIL tests or the back-to-back comparison fail.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runWorkDir, "work-dir", "", "Directory with test projects (default from config)")
	runCmd.Flags().StringVar(&runReportDir, "report-dir", "", "Output directory for reports (default from config)")
	runCmd.Flags().BoolVar(&runSkipHook, "skip-hook", false, "Do not register the traceability hook")
}

func runRun(cmd *cobra.Command, args []string) error {
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
	if runWorkDir != "" {
		opts.WorkDir = runWorkDir
	}
	if runReportDir != "" {
		opts.ReportDir = runReportDir
	}
	opts.SkipHook = runSkipHook

	runner := workflow.NewRunner(client, opts, logger)
	runner.Out = cmd.OutOrStdout()

	outcome, err := runner.Run(ctx)
	if err != nil {
		if errors.Is(err, workflow.ErrMILFailed) {
			return fmt.Errorf("%w, results are in %s", err, opts.ReportDir)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Finished with workflow and created a test report here: %s\n", opts.ReportDir)

	if !outcome.Passed() {
		return &exitError{code: 1}
	}
	return nil
}
