// Package workflow drives a test run against EmbeddedPlatform.
//
// Every project found in the work directory is first tested on the model
// (MIL). Only when all of them pass is the first project upgraded to a
// MIL+SIL project and tested on the generated code, followed by a
// back-to-back comparison of both.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/btc-embedded/smart-testing-genai/internal/config"
	"github.com/btc-embedded/smart-testing-genai/internal/ep"
	"github.com/btc-embedded/smart-testing-genai/internal/junit"
	"github.com/btc-embedded/smart-testing-genai/internal/models"
	"github.com/btc-embedded/smart-testing-genai/internal/report"
	"github.com/btc-embedded/smart-testing-genai/internal/testcases"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// ProjectExt is the file extension of EmbeddedPlatform test projects
const ProjectExt = ".epx"

// ReportName is the base name of exported reports
const ReportName = "report"

// RequirementSourceKind identifies the requirements system in EP payloads
const RequirementSourceKind = "POLARION"

var (
	// ErrNoProject is returned when the work directory holds no test project
	ErrNoProject = errors.New("no BTC EmbeddedPlatform Project found")
	// ErrMILFailed is returned when a project failed its model tests; SIL is not run
	ErrMILFailed = errors.New("MIL tests failed")
	// ErrNoScopes is returned when a loaded project has no scopes
	ErrNoScopes = errors.New("project has no scopes")
)

// Options configures a workflow run
type Options struct {
	WorkDir           string
	ReportDir         string
	InitScript        string
	MILConfig         string
	SILConfig         string
	MILReportTemplate string
	SILReportTemplate string
	TestCaseDir       string
	Subsystem         string
	HookCommand       string
	SkipHook          bool
	Polarion          config.Polarion
	// Credentials is called right before each requirements system request
	Credentials func() (user, password string)
}

// OptionsFromConfig builds Options from the loaded configuration
func OptionsFromConfig() Options {
	return Options{
		WorkDir:           config.GetWorkDir(),
		ReportDir:         config.GetReportDir(),
		InitScript:        config.GetInitScript(),
		MILConfig:         config.GetMILConfig(),
		SILConfig:         config.GetSILConfig(),
		MILReportTemplate: config.GetMILReportTemplate(),
		SILReportTemplate: config.GetSILReportTemplate(),
		TestCaseDir:       config.GetTestCaseDir(),
		Subsystem:         config.GetSubsystem(),
		HookCommand:       config.GetHookCommand(),
		Polarion:          config.GetPolarion(),
		Credentials:       config.PolarionCredentials,
	}
}

// Runner executes the workflow
type Runner struct {
	Client  *ep.Client
	FS      afero.Fs
	Logger  zerolog.Logger
	Options Options
	Out     io.Writer
	Now     func() time.Time
	RunID   string
}

// NewRunner creates a runner on the OS filesystem writing results to stdout
func NewRunner(client *ep.Client, opts Options, logger zerolog.Logger) *Runner {
	runID := uuid.NewString()
	return &Runner{
		Client:  client,
		FS:      afero.NewOsFs(),
		Logger:  logger.With().Str("run_id", runID).Logger(),
		Options: opts,
		Out:     os.Stdout,
		Now:     time.Now,
		RunID:   runID,
	}
}

// SILOutcome is the result of the SIL phase
type SILOutcome struct {
	Project   string
	SILConfig string
	RBT       *models.RBTResult
	B2B       *models.B2BResult
	Coverage  *models.Coverage
}

// Passed reports whether the SIL tests passed and the back-to-back test found
// no unaccepted deviation
func (o *SILOutcome) Passed() bool {
	if o == nil || !o.RBT.Passed(o.SILConfig) {
		return false
	}
	if o.B2B == nil {
		return true
	}
	return o.B2B.VerdictStatus != models.VerdictFailed && o.B2B.VerdictStatus != models.VerdictError
}

// Bootstrap lists the test projects in the work directory, sorted
func (r *Runner) Bootstrap() ([]string, error) {
	dir := r.Options.WorkDir
	projects, err := afero.Glob(r.FS, filepath.Join(dir, "*"+ProjectExt))
	if err != nil {
		return nil, fmt.Errorf("failed to search work directory: %w", err)
	}
	if len(projects) == 0 {
		return nil, fmt.Errorf("%w in workdir '%s'", ErrNoProject, dir)
	}
	sort.Strings(projects)
	r.Logger.Debug().Strs("projects", projects).Msg("Found test projects")
	return projects, nil
}

// RegisterHook configures EP to call back into this tool for traceability data
func (r *Runner) RegisterHook(ctx context.Context) error {
	pref := ep.Preference{Name: ep.HooksPreference, Value: r.Options.HookCommand}
	if err := r.Client.SetPreferences(ctx, pref); err != nil {
		return fmt.Errorf("failed to register hook: %w", err)
	}
	return nil
}

// Run executes the whole workflow. System errors abort immediately. A failed
// MIL phase returns ErrMILFailed without touching SIL.
func (r *Runner) Run(ctx context.Context) (*SILOutcome, error) {
	projects, err := r.Bootstrap()
	if err != nil {
		return nil, err
	}

	if !r.Options.SkipHook {
		if err := r.RegisterHook(ctx); err != nil {
			return nil, err
		}
	}

	var failed []string
	for _, project := range projects {
		passed, err := r.RunMIL(ctx, project)
		if err != nil {
			return nil, err
		}
		if !passed {
			failed = append(failed, projectName(project))
		}
	}
	if len(failed) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMILFailed, strings.Join(failed, ", "))
	}

	return r.RunSIL(ctx, projects[0])
}

// RunMIL executes the requirements-based tests of a project on the model.
// It reports whether all of them passed.
func (r *Runner) RunMIL(ctx context.Context, project string) (bool, error) {
	name := projectName(project)
	logger := r.Logger.With().Str("project", name).Str("phase", "MIL").Logger()

	scopes, err := r.load(ctx, project)
	if err != nil {
		return false, err
	}

	start := r.now()
	result, err := r.Client.ExecuteRBT(ctx, scopeUIDs(scopes), []string{r.Options.MILConfig})
	if err != nil {
		return false, err
	}
	report.RBT(r.Out, "MIL: "+name, result)
	passed := result.Passed(r.Options.MILConfig)

	dir := filepath.Join(r.Options.ReportDir, name)
	top, _ := models.TopLevelScope(scopes)
	if err := r.exportReport(ctx, top.UID, r.Options.MILReportTemplate, dir); err != nil {
		return false, err
	}

	if !passed {
		logger.Warn().Msg("MIL tests failed")
		testCases, err := r.Client.TestCases(ctx)
		if err != nil {
			return false, err
		}
		in := junit.Input{
			ProjectName: name,
			RunID:       r.RunID,
			StartTime:   start,
			Scopes:      scopes,
			TestCases:   testCases,
			ExecConfigs: []string{r.Options.MILConfig},
			RBT:         result,
		}
		if err := junit.Write(r.FS, filepath.Join(dir, junit.FileName), in); err != nil {
			return false, err
		}
		return false, nil
	}

	logger.Info().Msg("MIL tests passed")
	return true, nil
}

// RunSIL upgrades a project to MIL+SIL, tests the generated code and compares
// it back-to-back against the model. Failing tests are not an error; they are
// reported through the returned outcome.
func (r *Runner) RunSIL(ctx context.Context, project string) (*SILOutcome, error) {
	name := projectName(project)
	logger := r.Logger.With().Str("project", name).Str("phase", "SIL").Logger()
	opts := r.Options

	if err := r.Client.LoadProfile(ctx, absPath(project), true); err != nil {
		return nil, fmt.Errorf("failed to load project %s: %w", name, err)
	}
	if err := r.Client.ConvertArchitecture(ctx, absPath(opts.InitScript)); err != nil {
		return nil, fmt.Errorf("failed to convert architecture: %w", err)
	}

	scopes, err := r.Client.Scopes(ctx)
	if err != nil {
		return nil, err
	}
	if len(scopes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoScopes, name)
	}
	target := r.targetScope(scopes)
	logger.Info().Str("scope", target.DisplayName()).Msg("Testing scope")

	if opts.Polarion.Enabled() {
		if err := r.Client.ImportRequirements(ctx, r.requirementSource()); err != nil {
			return nil, fmt.Errorf("failed to import requirements: %w", err)
		}
	}

	if opts.TestCaseDir != "" {
		if err := r.importTestCases(ctx, target); err != nil {
			return nil, err
		}
	}

	start := r.now()
	rbt, err := r.Client.ExecuteRBT(ctx, scopeUIDs(scopes), []string{opts.SILConfig})
	if err != nil {
		return nil, err
	}
	report.RBT(r.Out, "SIL: "+name, rbt)

	testCases, err := r.Client.TestCases(ctx)
	if err != nil {
		return nil, err
	}

	if err := r.Client.GenerateCoverage(ctx, target.UID); err != nil {
		return nil, fmt.Errorf("failed to generate vectors: %w", err)
	}
	coverage, err := r.Client.CoverageResultsB2B(ctx, target.UID)
	if err != nil {
		return nil, err
	}

	b2b, err := r.Client.ExecuteB2B(ctx, target.UID, opts.MILConfig, opts.SILConfig)
	if err != nil {
		return nil, err
	}
	report.B2B(r.Out, b2b)
	report.Coverage(r.Out, coverage)

	if opts.Polarion.Enabled() {
		if err := r.Client.SyncTestResults(ctx, r.requirementSource()); err != nil {
			return nil, fmt.Errorf("failed to publish test results: %w", err)
		}
	}

	if err := r.exportReport(ctx, target.UID, opts.SILReportTemplate, opts.ReportDir); err != nil {
		return nil, err
	}

	in := junit.Input{
		ProjectName: name,
		RunID:       r.RunID,
		StartTime:   start,
		Scopes:      scopes,
		TestCases:   testCases,
		ExecConfigs: []string{opts.SILConfig},
		RBT:         rbt,
		B2B:         b2b,
	}
	if err := junit.Write(r.FS, filepath.Join(opts.ReportDir, junit.FileName), in); err != nil {
		return nil, err
	}

	if err := r.Client.SaveProfile(ctx, absPath(project)); err != nil {
		return nil, fmt.Errorf("failed to save project %s: %w", name, err)
	}

	outcome := &SILOutcome{
		Project:   name,
		SILConfig: opts.SILConfig,
		RBT:       rbt,
		B2B:       b2b,
		Coverage:  coverage,
	}
	logger.Info().Bool("passed", outcome.Passed()).Msg("SIL phase finished")
	return outcome, nil
}

// Report loads a project and exports a report of the target scope into dir
func (r *Runner) Report(ctx context.Context, project, template, dir string) error {
	scopes, err := r.load(ctx, project)
	if err != nil {
		return err
	}
	target := r.targetScope(scopes)
	r.Logger.Debug().Str("scope", target.DisplayName()).Str("template", template).Msg("Exporting report")
	return r.exportReport(ctx, target.UID, template, dir)
}

// load opens a project, discarding the current one, and returns its scopes
func (r *Runner) load(ctx context.Context, project string) ([]models.Scope, error) {
	name := projectName(project)
	if err := r.Client.LoadProfile(ctx, absPath(project), true); err != nil {
		return nil, fmt.Errorf("failed to load project %s: %w", name, err)
	}
	scopes, err := r.Client.Scopes(ctx)
	if err != nil {
		return nil, err
	}
	if len(scopes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoScopes, name)
	}
	return scopes, nil
}

// targetScope resolves the configured subsystem, falling back to the toplevel scope
func (r *Runner) targetScope(scopes []models.Scope) models.Scope {
	top, _ := models.TopLevelScope(scopes)
	if r.Options.Subsystem == "" {
		return top
	}
	if s, ok := models.FindScope(scopes, r.Options.Subsystem); ok {
		return s
	}
	r.Logger.Warn().Str("subsystem", r.Options.Subsystem).Str("fallback", top.DisplayName()).
		Msg("Subsystem not found, testing toplevel scope")
	return top
}

func (r *Runner) importTestCases(ctx context.Context, scope models.Scope) error {
	signals, err := r.Client.ScopeInterfaces(ctx, scope.UID)
	if err != nil {
		return err
	}
	meta := testcases.Meta{Architecture: r.Options.SILConfig, ScopePath: scope.DisplayName()}
	adapter := testcases.NewAdapter(r.FS, r.Logger)
	err = adapter.Import(r.Options.TestCaseDir, meta, signals, func(paths []string) error {
		return r.Client.ImportTestCases(ctx, scope.UID, paths)
	})
	if err != nil {
		return fmt.Errorf("failed to import test cases: %w", err)
	}
	return nil
}

func (r *Runner) exportReport(ctx context.Context, scopeUID, template, dir string) error {
	if err := r.FS.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	uid, err := r.Client.CreateReport(ctx, scopeUID, template)
	if err != nil {
		return err
	}
	return r.Client.ExportReport(ctx, uid, absPath(dir), ReportName)
}

func (r *Runner) requirementSource() ep.RequirementSource {
	src := ep.RequirementSource{
		Kind:      RequirementSourceKind,
		URL:       r.Options.Polarion.URL,
		ProjectID: r.Options.Polarion.Project,
		Query:     r.Options.Polarion.Query,
	}
	if r.Options.Credentials != nil {
		src.Username, src.Password = r.Options.Credentials()
	}
	return src
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func scopeUIDs(scopes []models.Scope) []string {
	uids := make([]string, len(scopes))
	for i, s := range scopes {
		uids[i] = s.UID
	}
	return uids
}

func projectName(project string) string {
	return strings.TrimSuffix(filepath.Base(project), filepath.Ext(project))
}

// absPath resolves paths handed to EP, which runs in its own working directory
func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
