package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/alpkeskin/gotoon"
	"github.com/btc-embedded/smart-testing-genai/internal/config"
	"github.com/btc-embedded/smart-testing-genai/internal/git"
	"github.com/btc-embedded/smart-testing-genai/internal/workflow"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	listWorkDir string
	listJSON    bool
	listToon    bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the test projects of the work directory",
	Long: `List the BTC EmbeddedPlatform test projects (*.epx) a run would pick
up, with the last git change of each.

Examples:
  epci list
  epci list --work-dir test --json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVar(&listWorkDir, "work-dir", "", "Directory with test projects (default from config)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")
	listCmd.Flags().BoolVar(&listToon, "toon", false, "Output in LLM-friendly toon format")
}

type projectInfo struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	LastChange string `json:"last_change,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
	opts := workflow.Options{WorkDir: config.GetWorkDir()}
	if listWorkDir != "" {
		opts.WorkDir = listWorkDir
	}
	runner := &workflow.Runner{FS: afero.NewOsFs(), Logger: logger, Options: opts}

	out := cmd.OutOrStdout()

	paths, err := runner.Bootstrap()
	if errors.Is(err, workflow.ErrNoProject) {
		fmt.Fprintf(out, "No test projects found in %s\n", opts.WorkDir)
		return nil
	}
	if err != nil {
		return err
	}

	var projects []projectInfo
	for _, path := range paths {
		info := projectInfo{
			Name: strings.TrimSuffix(filepath.Base(path), workflow.ProjectExt),
			Path: path,
		}
		change, err := git.LastChange(path)
		if err != nil && !errors.Is(err, git.ErrRepositoryNotFound) {
			return fmt.Errorf("failed to look up last change of %s: %w", path, err)
		}
		if err != nil {
			logger.Debug().Str("path", path).Msg("Project is not under version control")
		}
		info.LastChange = change
		projects = append(projects, info)
	}

	if listJSON {
		output, err := json.MarshalIndent(projects, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(out, string(output))
		return nil
	}

	if listToon {
		output, err := gotoon.Encode(projects)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Fprintln(out, output)
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Project", "Path", "Last change"})
	for _, p := range projects {
		t.AppendRow(table.Row{p.Name, p.Path, p.LastChange})
	}
	t.Render()
	return nil
}
