package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/btc-embedded/smart-testing-genai/internal/testutil"
)

func TestListCommand(t *testing.T) {
	repo := testutil.NewTempGitRepo(t)
	defer repo.Cleanup()

	repo.CreateFile("test/b.epx", "profile b")
	repo.CreateFile("test/a.epx", "profile a")
	repo.CommitAs("J. Doe", "Add test projects")

	listWorkDir, listJSON = repo.File("test"), true
	t.Cleanup(func() { listWorkDir, listJSON = "", false })

	cmd, stdout, _ := newTestCommand()
	if err := runList(cmd, nil); err != nil {
		t.Fatalf("list command failed: %v", err)
	}

	var projects []projectInfo
	if err := json.Unmarshal(stdout.Bytes(), &projects); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if len(projects) != 2 || projects[0].Name != "a" || projects[1].Name != "b" {
		t.Fatalf("unexpected projects: %+v", projects)
	}
	if !strings.Contains(projects[0].LastChange, "J. Doe: Add test projects") {
		t.Errorf("unexpected last change %q", projects[0].LastChange)
	}
}

func TestListCommandTable(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "demo.epx"), []byte("profile"), 0644); err != nil {
		t.Fatal(err)
	}

	listWorkDir = dir
	t.Cleanup(func() { listWorkDir = "" })

	cmd, stdout, _ := newTestCommand()
	if err := runList(cmd, nil); err != nil {
		t.Fatalf("list command failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "demo") {
		t.Errorf("project missing from output %q", stdout.String())
	}
}

func TestListCommandEmpty(t *testing.T) {
	dir := t.TempDir()
	listWorkDir = dir
	t.Cleanup(func() { listWorkDir = "" })

	cmd, stdout, _ := newTestCommand()
	if err := runList(cmd, nil); err != nil {
		t.Fatalf("list command failed: %v", err)
	}
	if got := stdout.String(); got != "No test projects found in "+dir+"\n" {
		t.Errorf("unexpected output %q", got)
	}
}
