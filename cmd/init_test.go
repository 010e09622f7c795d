package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

func newTestCommand() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	return cmd, &stdout, &stderr
}

func TestInitCommand(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfgFile, initForce = "", false

	cmd, stdout, _ := newTestCommand()
	if err := runInit(cmd, nil); err != nil {
		t.Fatalf("init command failed: %v", err)
	}

	configPath := filepath.Join(home, ".config", "epci", "config.toml")
	if !strings.Contains(stdout.String(), configPath) {
		t.Errorf("expected output to name %s, got %q", configPath, stdout.String())
	}

	var cfg map[string]map[string]any
	if _, err := toml.DecodeFile(configPath, &cfg); err != nil {
		t.Fatalf("config is not valid TOML: %v", err)
	}

	tests := []struct {
		table, key string
		want       any
	}{
		{"ep", "url", "http://localhost:29267"},
		{"workflow", "work_dir", "test"},
		{"workflow", "mil_config", "SL MIL"},
		{"workflow", "sil_report_template", "rbt-b2b-ec"},
		{"log", "level", "info"},
	}
	for _, tt := range tests {
		if got := cfg[tt.table][tt.key]; got != tt.want {
			t.Errorf("%s.%s = %v, want %v", tt.table, tt.key, got, tt.want)
		}
	}

	if _, ok := cfg["polarion"]["password"]; ok {
		t.Error("credentials must not be written to the config file")
	}
}

func TestInitKeepsExistingConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "custom.toml")
	if err := os.WriteFile(configPath, []byte("[ep]\nurl = \"http://ep:1\"\n"), 0644); err != nil {
		t.Fatalf("failed to create config: %v", err)
	}

	cfgFile, initForce = configPath, false
	t.Cleanup(func() { cfgFile = "" })

	cmd, stdout, _ := newTestCommand()
	if err := runInit(cmd, nil); err != nil {
		t.Fatalf("init command failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "Config already exists") {
		t.Errorf("unexpected output: %q", stdout.String())
	}

	content, _ := os.ReadFile(configPath)
	if string(content) != "[ep]\nurl = \"http://ep:1\"\n" {
		t.Error("existing config was overwritten")
	}

	initForce = true
	t.Cleanup(func() { initForce = false })
	if err := runInit(cmd, nil); err != nil {
		t.Fatalf("init --force failed: %v", err)
	}
	content, _ = os.ReadFile(configPath)
	if !strings.Contains(string(content), "localhost:29267") {
		t.Error("--force did not rewrite the config")
	}
}
