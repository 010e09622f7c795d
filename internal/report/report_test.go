package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/btc-embedded/smart-testing-genai/internal/models"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func init() {
	color.NoColor = true
}

func TestRBT(t *testing.T) {
	var buf bytes.Buffer
	RBT(&buf, "Results", &models.RBTResult{TestResults: map[string]models.ConfigResult{
		"SIL":    {TotalTests: 4, PassedTests: 3, FailedTests: 1},
		"SL MIL": {TotalTests: 4, PassedTests: 4},
	}})

	out := buf.String()
	assert.Contains(t, out, "Results")
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "PASSED")
	assert.Less(t, strings.Index(out, "│ SIL "), strings.Index(out, "│ SL MIL"), "configs are sorted")
}

func TestRBTWithoutResult(t *testing.T) {
	var buf bytes.Buffer
	RBT(&buf, "empty", nil)
	assert.Contains(t, buf.String(), "CONFIG")
}

func TestB2B(t *testing.T) {
	var buf bytes.Buffer
	B2B(&buf, &models.B2BResult{
		VerdictStatus: models.VerdictFailedAccepted,
		Comparisons: []models.Comparison{
			{Name: "SL MIL vs SIL", VerdictStatus: models.VerdictFailedAccepted, Message: "within tolerance"},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "Back-to-Back: FAILED_ACCEPTED")
	assert.Contains(t, out, "within tolerance")

	buf.Reset()
	B2B(&buf, nil)
	assert.Empty(t, buf.String())
}

func TestCoverage(t *testing.T) {
	var buf bytes.Buffer
	Coverage(&buf, &models.Coverage{Statement: 100, Decision: 87.5, MCDC: 75.26})

	out := buf.String()
	assert.Contains(t, out, "100.0%")
	assert.Contains(t, out, "87.5%")
	assert.Contains(t, out, "75.3%")
}

func TestVerdict(t *testing.T) {
	for _, v := range []string{models.VerdictPassed, models.VerdictFailed, models.VerdictError, models.VerdictNotExecuted} {
		assert.Equal(t, v, Verdict(v))
	}
}
