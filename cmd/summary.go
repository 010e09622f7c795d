package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/alpkeskin/gotoon"
	"github.com/btc-embedded/smart-testing-genai/internal/models"
	"github.com/btc-embedded/smart-testing-genai/internal/report"
	"github.com/spf13/cobra"
)

var (
	summaryJSON bool
	summaryToon bool
)

var summaryCmd = &cobra.Command{
	Use:   "summary <rbt_result.json>",
	Short: "Summarize a saved requirements-based test result",
	Long: `Display the per execution config totals of a saved
scopes/test-execution-rbt response.

Examples:
  epci summary rbt_result.json
  epci summary rbt_result.json --json
  epci summary rbt_result.json --toon`,
	Args: cobra.ExactArgs(1),
	RunE: runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)

	summaryCmd.Flags().BoolVar(&summaryJSON, "json", false, "Output as JSON")
	summaryCmd.Flags().BoolVar(&summaryToon, "toon", false, "Output in LLM-friendly toon format")
}

type configSummary struct {
	Config  string `json:"config"`
	Total   int    `json:"total"`
	Passed  int    `json:"passed"`
	Failed  int    `json:"failed"`
	Error   int    `json:"error"`
	Verdict string `json:"verdict"`
}

type rbtSummary struct {
	Passed  bool            `json:"passed"`
	Configs []configSummary `json:"configs"`
}

func summarize(result *models.RBTResult) *rbtSummary {
	s := &rbtSummary{Passed: len(result.TestResults) > 0}

	for config, res := range result.TestResults {
		verdict := models.VerdictPassed
		if !res.Passed() {
			verdict = models.VerdictFailed
			s.Passed = false
		}
		s.Configs = append(s.Configs, configSummary{
			Config:  config,
			Total:   res.TotalTests,
			Passed:  res.PassedTests,
			Failed:  res.FailedTests,
			Error:   res.ErrorTests,
			Verdict: verdict,
		})
	}
	sort.Slice(s.Configs, func(i, j int) bool {
		return s.Configs[i].Config < s.Configs[j].Config
	})
	return s
}

func runSummary(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read result file: %w", err)
	}

	var result models.RBTResult
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("failed to parse result file: %w", err)
	}

	out := cmd.OutOrStdout()
	summary := summarize(&result)

	if summaryJSON {
		output, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(out, string(output))
		return nil
	}

	if summaryToon {
		output, err := gotoon.Encode(summary)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Fprintln(out, output)
		return nil
	}

	report.RBT(out, "Requirements-based tests", &result)
	return nil
}
