package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReportCommand(t *testing.T) {
	server := newFakeEP(t, false)
	workDir, _ := setupRun(t, server.URL)
	out := filepath.Join(t.TempDir(), "out")

	reportTemplate, reportOutput = "rbt-b2b-ec", out
	t.Cleanup(func() { reportTemplate, reportOutput = "", "" })

	cmd, stdout, _ := newTestCommand()
	if err := runReport(cmd, []string{filepath.Join(workDir, "demo.epx")}); err != nil {
		t.Fatalf("report command failed: %v", err)
	}

	if !strings.Contains(stdout.String(), "Exported rbt-b2b-ec report to "+out) {
		t.Errorf("unexpected output %q", stdout.String())
	}
	if info, err := os.Stat(out); err != nil || !info.IsDir() {
		t.Errorf("output directory not created: %v", err)
	}
}
