package junit

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/btc-embedded/smart-testing-genai/internal/models"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInput() Input {
	return Input{
		ProjectName: "demo",
		RunID:       "run-1",
		StartTime:   time.Date(2024, 5, 17, 8, 30, 0, 0, time.UTC),
		Scopes: []models.Scope{
			{UID: "top", Name: "controller", Path: "controller", TopLevel: true},
			{UID: "sub", Name: "filter", Path: "controller/filter"},
			{UID: "empty", Name: "unused"},
		},
		TestCases: []models.TestCase{
			{UID: "3", Name: "TC_b", ScopeUID: "top", Results: []models.ExecutionResult{
				{ExecConfigName: "SIL", VerdictStatus: models.VerdictFailed, Message: "torque mismatch", DurationSeconds: 1.5},
			}},
			{UID: "1", Name: "TC_a", ScopeUID: "top", Results: []models.ExecutionResult{
				{ExecConfigName: "SIL", VerdictStatus: models.VerdictPassed, DurationSeconds: 0.25},
			}},
			{UID: "2", Name: "TC_c", ScopeUID: "sub", Results: []models.ExecutionResult{
				{ExecConfigName: "SIL", VerdictStatus: models.VerdictError},
			}},
			{UID: "4", Name: "TC_orphan", ScopeUID: "gone"},
		},
		ExecConfigs: []string{"SIL"},
		RBT: &models.RBTResult{TestResults: map[string]models.ConfigResult{
			"SIL": {TotalTests: 3, PassedTests: 1, FailedTests: 1, ErrorTests: 1},
		}},
		B2B: &models.B2BResult{VerdictStatus: models.VerdictFailed, Comparisons: []models.Comparison{
			{Name: "SL MIL vs SIL", VerdictStatus: models.VerdictFailedAccepted},
			{Name: "SIL vs PIL", VerdictStatus: models.VerdictFailed, Message: "deviation"},
		}},
	}
}

func TestBuild(t *testing.T) {
	doc := Build(sampleInput())

	assert.Equal(t, "demo", doc.Name)
	assert.Equal(t, "2024-05-17T08:30:00", doc.Timestamp)
	assert.Equal(t, 6, doc.Tests)
	assert.Equal(t, 2, doc.Failures)
	assert.Equal(t, 1, doc.Errors)
	assert.Equal(t, 1, doc.Skipped)
	assert.Equal(t, "1.750", doc.Time)

	var names []string
	for _, s := range doc.Suites {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"controller", "controller/filter", "Unscoped", "Back-to-Back"}, names)

	top := doc.Suites[0]
	require.Len(t, top.Cases, 2)
	assert.Equal(t, "TC_a [SIL]", top.Cases[0].Name)
	assert.Equal(t, "demo.controller", top.Cases[0].Classname)
	assert.Nil(t, top.Cases[0].Failure)
	assert.Equal(t, "TC_b [SIL]", top.Cases[1].Name)
	require.NotNil(t, top.Cases[1].Failure)
	assert.Equal(t, "torque mismatch", top.Cases[1].Failure.Message)
	assert.Equal(t, "1.750", top.Time)
	assert.Equal(t, 1, top.Failures)

	require.NotNil(t, doc.Suites[1].Cases[0].Error)
	require.NotNil(t, doc.Suites[2].Cases[0].Skipped)
	assert.Equal(t, "not executed on SIL", doc.Suites[2].Cases[0].Skipped.Message)

	b2b := doc.Suites[3]
	require.Len(t, b2b.Cases, 2)
	assert.Nil(t, b2b.Cases[0].Failure, "accepted deviations pass")
	require.NotNil(t, b2b.Cases[1].Failure)
	assert.Equal(t, "deviation", b2b.Cases[1].Failure.Message)

	require.NotNil(t, top.Properties)
	assert.Contains(t, top.Properties.Items, Property{Name: "runId", Value: "run-1"})
	assert.Contains(t, top.Properties.Items, Property{Name: "rbt.SIL", Value: "1/3 passed"})
}

func TestBuildB2BWithoutComparisons(t *testing.T) {
	in := Input{B2B: &models.B2BResult{VerdictStatus: models.VerdictPassed}}
	doc := Build(in)

	require.Len(t, doc.Suites, 1)
	require.Len(t, doc.Suites[0].Cases, 1)
	assert.Equal(t, "B2B", doc.Suites[0].Cases[0].Name)
	assert.Equal(t, 0, doc.Failures)
}

func TestMarshalIsDeterministic(t *testing.T) {
	first, err := Marshal(Build(sampleInput()))
	require.NoError(t, err)
	second, err := Marshal(Build(sampleInput()))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.True(t, strings.HasPrefix(string(first), xml.Header))

	var parsed TestSuites
	require.NoError(t, xml.Unmarshal(first, &parsed))
	assert.Equal(t, 6, parsed.Tests)
	assert.Len(t, parsed.Suites, 4)
}

func TestWrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/work/reports/" + FileName

	require.NoError(t, Write(fs, path, sampleInput()))

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `<testsuites name="demo" tests="6" failures="2" errors="1" skipped="1"`)
	assert.Contains(t, string(data), `<failure message="torque mismatch" type="FAILED"></failure>`)
}
