package cmd

import (
	"errors"
	"fmt"

	"github.com/btc-embedded/smart-testing-genai/internal/git"
	"github.com/btc-embedded/smart-testing-genai/internal/hooks"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var hookCmd = &cobra.Command{
	Use:   "hook <input_file> <output_file>",
	Short: "Answer a BTC EmbeddedPlatform hook call",
	Long: `Handle a hook call from BTC EmbeddedPlatform.

EmbeddedPlatform runs the configured GENERAL_HOOKS_COMMAND with an input and
an output JSON file. For architecture and test project events the output
carries the last git change of the model, its data dictionary and the test
project. Other events get an empty answer.

Example:
  epci hook input.json output.json`,
	RunE: runHook,
}

func init() {
	rootCmd.AddCommand(hookCmd)
}

func runHook(cmd *cobra.Command, args []string) error {
	if len(args) != 2 {
		fmt.Fprintln(cmd.ErrOrStderr(), hooks.Usage)
		return &exitError{code: 1}
	}

	dispatcher := hooks.NewDispatcher(git.LastChange, afero.NewOsFs(), logger)
	if err := dispatcher.Run(args[0], args[1]); err != nil {
		if errors.Is(err, hooks.ErrInputNotFound) {
			fmt.Fprintf(cmd.ErrOrStderr(), "File not found: %s\n", args[0])
			return &exitError{code: 1}
		}
		return fmt.Errorf("failed to handle hook call: %w", err)
	}
	return nil
}
