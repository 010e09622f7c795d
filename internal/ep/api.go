package ep

import (
	"context"
	"fmt"
	"net/url"

	"github.com/btc-embedded/smart-testing-genai/internal/models"
	"github.com/go-viper/mapstructure/v2"
)

// HooksPreference is the EP preference holding the hook command line
const HooksPreference = "GENERAL_HOOKS_COMMAND"

// Preference is a single EP preference value
type Preference struct {
	Name  string `json:"preferenceName"`
	Value string `json:"preferenceValue"`
}

// RequirementSource describes the external requirements system.
// Username and Password are only held for the duration of a call.
type RequirementSource struct {
	Kind      string `json:"kind"`
	URL       string `json:"url"`
	ProjectID string `json:"projectId"`
	Query     string `json:"query,omitempty"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

// SetPreferences updates EP preferences
func (c *Client) SetPreferences(ctx context.Context, prefs ...Preference) error {
	return c.Put(ctx, "preferences", prefs, nil, "")
}

// LoadProfile opens a test project, optionally discarding the one currently open
func (c *Client) LoadProfile(ctx context.Context, path string, discardCurrent bool) error {
	p := fmt.Sprintf("profiles/%s?discardCurrentProfile=%t", escapePath(path), discardCurrent)
	return c.Get(ctx, p, nil, "Loading test project "+path)
}

// ConvertArchitecture upgrades the open project to a MIL+SIL project
func (c *Client) ConvertArchitecture(ctx context.Context, initScript string) error {
	payload := map[string]string{"initScript": initScript}
	return c.Put(ctx, "architecturesConvert", payload, nil, "Upgrading to MIL+SIL profile")
}

// SaveProfile stores the open project at path
func (c *Client) SaveProfile(ctx context.Context, path string) error {
	return c.Put(ctx, "profiles", map[string]string{"path": path}, nil, "Saving profile")
}

// Scopes lists the scopes of the open project
func (c *Client) Scopes(ctx context.Context) ([]models.Scope, error) {
	var scopes []models.Scope
	if err := c.Get(ctx, "scopes", &scopes, ""); err != nil {
		return nil, fmt.Errorf("failed to get scopes: %w", err)
	}
	return scopes, nil
}

// ScopeInterfaces lists the interface signals of a scope
func (c *Client) ScopeInterfaces(ctx context.Context, scopeUID string) ([]models.Signal, error) {
	var signals []models.Signal
	if err := c.Get(ctx, "scopes/"+url.PathEscape(scopeUID)+"/interfaces", &signals, ""); err != nil {
		return nil, fmt.Errorf("failed to get interfaces of scope %s: %w", scopeUID, err)
	}
	return signals, nil
}

// ExecuteRBT runs the requirements-based tests of the given scopes on the given configs
func (c *Client) ExecuteRBT(ctx context.Context, scopeUIDs, execConfigs []string) (*models.RBTResult, error) {
	payload := map[string]any{
		"UIDs": scopeUIDs,
		"data": map[string]any{"execConfigNames": execConfigs},
	}
	var result models.RBTResult
	if err := c.Post(ctx, "scopes/test-execution-rbt", payload, &result, "Running requirements-based tests"); err != nil {
		return nil, fmt.Errorf("failed to execute requirements-based tests: %w", err)
	}
	return &result, nil
}

// TestCases lists the requirements-based test cases of the open project
func (c *Client) TestCases(ctx context.Context) ([]models.TestCase, error) {
	var testCases []models.TestCase
	if err := c.Get(ctx, "test-cases-rbt", &testCases, ""); err != nil {
		return nil, fmt.Errorf("failed to get test cases: %w", err)
	}
	return testCases, nil
}

// ImportTestCases imports test case files into a scope, overwriting existing ones
func (c *Client) ImportTestCases(ctx context.Context, scopeUID string, paths []string) error {
	payload := map[string]any{
		"scopeUid":        scopeUID,
		"paths":           paths,
		"overwritePolicy": "OVERWRITE",
	}
	return c.Post(ctx, "test-cases-rbt/import", payload, nil, fmt.Sprintf("Importing %d test case(s)", len(paths)))
}

// ImportRequirements imports requirements from the external requirements system
func (c *Client) ImportRequirements(ctx context.Context, src RequirementSource) error {
	return c.Post(ctx, "requirements-import", src, nil, "Importing requirements from "+src.Kind)
}

// SyncTestResults publishes test results back to the external requirements system
func (c *Client) SyncTestResults(ctx context.Context, src RequirementSource) error {
	return c.Post(ctx, "test-case-source-sync", src, nil, "Publishing test results to "+src.Kind)
}

// GenerateCoverage generates test vectors for structural coverage of a scope
func (c *Client) GenerateCoverage(ctx context.Context, scopeUID string) error {
	payload := map[string]string{"scopeUid": scopeUID}
	return c.Post(ctx, "coverage-generation", payload, nil, "Generating vectors")
}

type coverageMetric struct {
	HandledPercentage float64 `mapstructure:"handledPercentage"`
}

type coverageResponse struct {
	Statement coverageMetric `mapstructure:"StatementCoverage"`
	Decision  coverageMetric `mapstructure:"DecisionCoverage"`
	MCDC      coverageMetric `mapstructure:"MCDCPropertyCoverage"`
}

// CoverageResultsB2B returns the coverage reached by the back-to-back vectors
func (c *Client) CoverageResultsB2B(ctx context.Context, scopeUID string) (*models.Coverage, error) {
	var raw map[string]any
	if err := c.Get(ctx, "scopes/"+url.PathEscape(scopeUID)+"/coverage-results-b2b", &raw, ""); err != nil {
		return nil, fmt.Errorf("failed to get coverage results: %w", err)
	}

	var resp coverageResponse
	if err := decodeLoose(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode coverage results: %w", err)
	}
	return &models.Coverage{
		Statement: resp.Statement.HandledPercentage,
		Decision:  resp.Decision.HandledPercentage,
		MCDC:      resp.MCDC.HandledPercentage,
	}, nil
}

// ExecuteB2B compares the reference against the comparison execution config
func (c *Client) ExecuteB2B(ctx context.Context, scopeUID, refMode, compMode string) (*models.B2BResult, error) {
	payload := map[string]string{"refMode": refMode, "compMode": compMode}

	var raw map[string]any
	if err := c.Post(ctx, "scopes/"+url.PathEscape(scopeUID)+"/b2b", payload, &raw, "Running B2B test"); err != nil {
		return nil, fmt.Errorf("failed to execute back-to-back test: %w", err)
	}

	var result models.B2BResult
	if err := decodeLoose(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode back-to-back result: %w", err)
	}
	return &result, nil
}

// CreateReport creates a project report for a scope and returns its uid
func (c *Client) CreateReport(ctx context.Context, scopeUID, template string) (string, error) {
	p := fmt.Sprintf("scopes/%s/project-report?template-name=%s", url.PathEscape(scopeUID), url.QueryEscape(template))

	var report struct {
		UID string `json:"uid"`
	}
	if err := c.Post(ctx, p, nil, &report, "Creating test report"); err != nil {
		return "", fmt.Errorf("failed to create report: %w", err)
	}
	return report.UID, nil
}

// ExportReport writes a report to dir using name as base file name
func (c *Client) ExportReport(ctx context.Context, reportUID, dir, name string) error {
	payload := map[string]string{"exportPath": dir, "newName": name}
	if err := c.Post(ctx, "reports/"+url.PathEscape(reportUID), payload, nil, ""); err != nil {
		return fmt.Errorf("failed to export report: %w", err)
	}
	return nil
}

// decodeLoose maps an untyped JSON document onto a struct, ignoring unknown fields
func decodeLoose(input, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
