package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/btc-embedded/smart-testing-genai/internal/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the default configuration file",
	Long: `Write a configuration file with every setting at its default value.

The file is written to $HOME/.config/epci/config.toml, or to the path given
with --config. An existing file is kept unless --force is set.

Credentials for the requirements system are never stored in the file; set
POLARION_USERNAME and POLARION_PWD in the environment or an --env-file.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := cfgFile
	if configPath == "" {
		configDir, err := config.Dir()
		if err != nil {
			return err
		}
		configPath = filepath.Join(configDir, "config.toml")
	}

	out := cmd.OutOrStdout()

	if _, err := os.Stat(configPath); err == nil && !initForce {
		fmt.Fprintf(out, "Config already exists: %s\n", configPath)
		fmt.Fprintln(out, "Use --force to overwrite it.")
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(defaultConfig()); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(out, "✓ Created default config: %s\n", configPath)
	return nil
}

// defaultConfig nests the dotted default keys into TOML tables
func defaultConfig() map[string]map[string]any {
	tables := make(map[string]map[string]any)
	for key, value := range config.Defaults {
		table, name, _ := strings.Cut(key, ".")
		if tables[table] == nil {
			tables[table] = make(map[string]any)
		}
		tables[table][name] = value
	}
	return tables
}
