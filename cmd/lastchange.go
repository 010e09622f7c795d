package cmd

import (
	"fmt"

	"github.com/btc-embedded/smart-testing-genai/internal/git"
	"github.com/spf13/cobra"
)

var lastChangeCmd = &cobra.Command{
	Use:   "last-change <file>",
	Short: "Show the last commit that touched a file",
	Long: `Display the most recent commit affecting a file, in the form used for
traceability metadata:

  [<commit time>] <author>: <message> (hash: <short hash>)

Example:
  epci last-change model/controller.slx`,
	Args: cobra.ExactArgs(1),
	RunE: runLastChange,
}

func init() {
	rootCmd.AddCommand(lastChangeCmd)
}

func runLastChange(cmd *cobra.Command, args []string) error {
	path := args[0]

	change, err := git.LastChange(path)
	if err != nil {
		return fmt.Errorf("failed to look up last change: %w", err)
	}

	if change == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "No commits found for %s\n", path)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), change)
	return nil
}
