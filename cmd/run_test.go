package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/btc-embedded/smart-testing-genai/internal/config"
	"github.com/btc-embedded/smart-testing-genai/internal/junit"
	"github.com/btc-embedded/smart-testing-genai/internal/workflow"
	"github.com/spf13/viper"
)

// newFakeEP serves a minimal EP whose tests all pass unless failing is set
func newFakeEP(t *testing.T, failing bool) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/ep/")
		switch {
		case path == "scopes":
			w.Write([]byte(`[{"uid": "top", "name": "controller", "topLevel": true}]`))
		case path == "scopes/test-execution-rbt":
			passed := 3
			if failing {
				passed = 2
			}
			fmt.Fprintf(w, `{"testResults": {"SL MIL": {"totalTests": 3, "passedTests": %d}, "SIL": {"totalTests": 3, "passedTests": %d}}}`, passed, passed)
		case path == "test-cases-rbt":
			w.Write([]byte(`[]`))
		case strings.HasSuffix(path, "/b2b"):
			w.Write([]byte(`{"verdictStatus": "PASSED"}`))
		case strings.HasSuffix(path, "/project-report"):
			w.Write([]byte(`{"uid": "rep"}`))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func setupRun(t *testing.T, epURL string) (workDir, reportDir string) {
	t.Helper()
	viper.Reset()
	config.SetDefaults(viper.GetViper())
	viper.Set("ep.url", epURL)
	viper.Set("hook.command", "epci hook")
	t.Cleanup(viper.Reset)

	root := t.TempDir()
	workDir = filepath.Join(root, "test")
	reportDir = filepath.Join(root, "reports")
	if err := os.MkdirAll(workDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(workDir, "demo.epx"), []byte("profile"), 0644); err != nil {
		t.Fatal(err)
	}

	runWorkDir, runReportDir, runSkipHook = workDir, reportDir, false
	t.Cleanup(func() { runWorkDir, runReportDir, runSkipHook = "", "", false })
	return workDir, reportDir
}

func TestRunCommand(t *testing.T) {
	server := newFakeEP(t, false)
	_, reportDir := setupRun(t, server.URL)

	cmd, stdout, _ := newTestCommand()
	if err := runRun(cmd, nil); err != nil {
		t.Fatalf("run command failed: %v", err)
	}

	if !strings.Contains(stdout.String(), "Finished with workflow and created a test report here: "+reportDir) {
		t.Errorf("missing finish line in %q", stdout.String())
	}
	if _, err := os.Stat(filepath.Join(reportDir, junit.FileName)); err != nil {
		t.Errorf("test results not written: %v", err)
	}
}

func TestRunCommandMILFailure(t *testing.T) {
	server := newFakeEP(t, true)
	_, reportDir := setupRun(t, server.URL)

	cmd, stdout, _ := newTestCommand()
	err := runRun(cmd, nil)
	if !errors.Is(err, workflow.ErrMILFailed) {
		t.Fatalf("expected ErrMILFailed, got %v", err)
	}
	if strings.Contains(stdout.String(), "Finished with workflow") {
		t.Error("a failed MIL phase must not report completion")
	}
	if _, err := os.Stat(filepath.Join(reportDir, "demo", junit.FileName)); err != nil {
		t.Errorf("MIL results not written: %v", err)
	}
}

func TestRunCommandEPUnavailable(t *testing.T) {
	server := newFakeEP(t, false)
	server.Close()
	setupRun(t, server.URL)

	cmd, _, _ := newTestCommand()
	err := runRun(cmd, nil)
	if err == nil || !strings.Contains(err.Error(), "not available") {
		t.Errorf("expected unavailable error, got %v", err)
	}
}
