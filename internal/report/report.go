// Package report renders test results for the console.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/btc-embedded/smart-testing-genai/internal/models"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Verdict colours a verdict for terminal output
func Verdict(verdict string) string {
	switch verdict {
	case models.VerdictPassed:
		return color.GreenString(verdict)
	case models.VerdictFailedAccepted:
		return color.YellowString(verdict)
	case models.VerdictFailed, models.VerdictError:
		return color.RedString(verdict)
	default:
		return color.HiBlackString(verdict)
	}
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(title)
	return t
}

// RBT renders the per-config results of a requirements-based test run.
// Configs are listed in sorted order.
func RBT(w io.Writer, title string, result *models.RBTResult) {
	t := newTable(w, title)
	t.AppendHeader(table.Row{"Config", "Total", "Passed", "Failed", "Error", "Verdict"})

	if result != nil {
		configs := make([]string, 0, len(result.TestResults))
		for config := range result.TestResults {
			configs = append(configs, config)
		}
		sort.Strings(configs)

		for _, config := range configs {
			res := result.TestResults[config]
			verdict := models.VerdictFailed
			if res.Passed() {
				verdict = models.VerdictPassed
			}
			t.AppendRow(table.Row{config, res.TotalTests, res.PassedTests, res.FailedTests, res.ErrorTests, Verdict(verdict)})
		}
	}
	t.Render()
}

// B2B renders a back-to-back result with one row per comparison
func B2B(w io.Writer, result *models.B2BResult) {
	if result == nil {
		return
	}
	t := newTable(w, "Back-to-Back: "+Verdict(result.VerdictStatus))
	t.AppendHeader(table.Row{"Comparison", "Verdict", "Message"})
	for _, c := range result.Comparisons {
		t.AppendRow(table.Row{c.Name, Verdict(c.VerdictStatus), c.Message})
	}
	t.Render()
}

// Coverage renders structural coverage percentages
func Coverage(w io.Writer, cov *models.Coverage) {
	if cov == nil {
		return
	}
	t := newTable(w, "Coverage")
	t.AppendHeader(table.Row{"Metric", "Handled"})
	t.AppendRows([]table.Row{
		{"Statement", percent(cov.Statement)},
		{"Decision", percent(cov.Decision)},
		{"MC/DC", percent(cov.MCDC)},
	})
	t.Render()
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}
