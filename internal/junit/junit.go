// Package junit serializes test results in the JUnit XML format understood
// by common CI dashboards.
//
// The output depends only on its input: no clock is read, maps are visited
// in sorted order, so two builds of the same results are byte-identical.
package junit

import (
	"encoding/xml"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/btc-embedded/smart-testing-genai/internal/models"
	"github.com/spf13/afero"
)

// FileName is the name of the result file inside the report directory
const FileName = "test_results.xml"

// TimestampLayout is the ISO 8601 layout JUnit expects for timestamps
const TimestampLayout = "2006-01-02T15:04:05"

const (
	b2bSuiteName    = "Back-to-Back"
	unscopedSuite   = "Unscoped"
	runIDProperty   = "runId"
	projectProperty = "project"
	rbtPropertyTmpl = "rbt.%s"
	b2bCaseFallback = "B2B"
	notExecutedTmpl = "not executed on %s"
)

// TestSuites is the document root
type TestSuites struct {
	XMLName   xml.Name    `xml:"testsuites"`
	Name      string      `xml:"name,attr"`
	Tests     int         `xml:"tests,attr"`
	Failures  int         `xml:"failures,attr"`
	Errors    int         `xml:"errors,attr"`
	Skipped   int         `xml:"skipped,attr"`
	Time      string      `xml:"time,attr"`
	Timestamp string      `xml:"timestamp,attr"`
	Suites    []TestSuite `xml:"testsuite"`
}

// TestSuite groups the test cases of one scope
type TestSuite struct {
	ID         int         `xml:"id,attr"`
	Name       string      `xml:"name,attr"`
	Tests      int         `xml:"tests,attr"`
	Failures   int         `xml:"failures,attr"`
	Errors     int         `xml:"errors,attr"`
	Skipped    int         `xml:"skipped,attr"`
	Time       string      `xml:"time,attr"`
	Timestamp  string      `xml:"timestamp,attr"`
	Properties *Properties `xml:"properties,omitempty"`
	Cases      []TestCase  `xml:"testcase"`
}

// Properties holds suite level key/value pairs
type Properties struct {
	Items []Property `xml:"property"`
}

// Property is a single key/value pair
type Property struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// TestCase is a single test verdict
type TestCase struct {
	Name      string   `xml:"name,attr"`
	Classname string   `xml:"classname,attr"`
	Time      string   `xml:"time,attr"`
	Failure   *Outcome `xml:"failure,omitempty"`
	Error     *Outcome `xml:"error,omitempty"`
	Skipped   *Outcome `xml:"skipped,omitempty"`

	seconds float64
}

// Outcome describes a non-passing verdict
type Outcome struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
}

// Input is everything needed to build a report
type Input struct {
	ProjectName string
	RunID       string
	StartTime   time.Time
	Scopes      []models.Scope
	TestCases   []models.TestCase
	ExecConfigs []string
	RBT         *models.RBTResult
	B2B         *models.B2BResult
}

// Build converts execution results into a JUnit document
func Build(in Input) *TestSuites {
	timestamp := in.StartTime.Format(TimestampLayout)
	props := properties(in)

	testCases := make([]models.TestCase, len(in.TestCases))
	copy(testCases, in.TestCases)
	sort.SliceStable(testCases, func(i, j int) bool {
		return testCases[i].Name < testCases[j].Name
	})

	known := make(map[string]bool, len(in.Scopes))
	for _, s := range in.Scopes {
		known[s.UID] = true
	}

	doc := &TestSuites{
		Name:      in.ProjectName,
		Timestamp: timestamp,
	}

	addSuite := func(name string, cases []TestCase) {
		if len(cases) == 0 {
			return
		}
		suite := TestSuite{
			ID:         len(doc.Suites),
			Name:       name,
			Timestamp:  timestamp,
			Properties: props,
			Cases:      cases,
		}
		var seconds float64
		for _, c := range cases {
			suite.Tests++
			seconds += c.seconds
			switch {
			case c.Failure != nil:
				suite.Failures++
			case c.Error != nil:
				suite.Errors++
			case c.Skipped != nil:
				suite.Skipped++
			}
		}
		suite.Time = formatSeconds(seconds)
		doc.Suites = append(doc.Suites, suite)
	}

	for _, scope := range in.Scopes {
		var cases []TestCase
		for _, tc := range testCases {
			if tc.ScopeUID == scope.UID {
				cases = append(cases, rbtCases(in, scope.Name, tc)...)
			}
		}
		addSuite(scope.DisplayName(), cases)
	}

	var unscoped []TestCase
	for _, tc := range testCases {
		if !known[tc.ScopeUID] {
			unscoped = append(unscoped, rbtCases(in, unscopedSuite, tc)...)
		}
	}
	addSuite(unscopedSuite, unscoped)

	if in.B2B != nil {
		addSuite(b2bSuiteName, b2bCases(in))
	}

	var seconds float64
	for _, s := range doc.Suites {
		doc.Tests += s.Tests
		doc.Failures += s.Failures
		doc.Errors += s.Errors
		doc.Skipped += s.Skipped
		for _, c := range s.Cases {
			seconds += c.seconds
		}
	}
	doc.Time = formatSeconds(seconds)

	return doc
}

// Marshal renders the document with XML header and two-space indentation
func Marshal(doc *TestSuites) ([]byte, error) {
	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal junit report: %w", err)
	}
	out := append([]byte(xml.Header), data...)
	return append(out, '\n'), nil
}

// Write builds the report and writes it to path, creating parent directories
func Write(fs afero.Fs, path string, in Input) error {
	data, err := Marshal(Build(in))
	if err != nil {
		return err
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write junit report: %w", err)
	}
	return nil
}

func rbtCases(in Input, scopeName string, tc models.TestCase) []TestCase {
	classname := scopeName
	if in.ProjectName != "" {
		classname = in.ProjectName + "." + scopeName
	}

	cases := make([]TestCase, 0, len(in.ExecConfigs))
	for _, config := range in.ExecConfigs {
		c := TestCase{
			Name:      fmt.Sprintf("%s [%s]", tc.Name, config),
			Classname: classname,
		}
		res, ok := tc.Result(config)
		if !ok {
			res = models.ExecutionResult{
				ExecConfigName: config,
				VerdictStatus:  models.VerdictNotExecuted,
				Message:        fmt.Sprintf(notExecutedTmpl, config),
			}
		}
		c.seconds = res.DurationSeconds
		c.Time = formatSeconds(res.DurationSeconds)
		applyVerdict(&c, res.VerdictStatus, res.Message)
		cases = append(cases, c)
	}
	return cases
}

func b2bCases(in Input) []TestCase {
	classname := b2bSuiteName
	if in.ProjectName != "" {
		classname = in.ProjectName + "." + b2bSuiteName
	}

	if len(in.B2B.Comparisons) == 0 {
		c := TestCase{Name: b2bCaseFallback, Classname: classname, Time: formatSeconds(0)}
		applyVerdict(&c, b2bVerdict(in.B2B.VerdictStatus), "")
		return []TestCase{c}
	}

	cases := make([]TestCase, 0, len(in.B2B.Comparisons))
	for _, cmp := range in.B2B.Comparisons {
		c := TestCase{Name: cmp.Name, Classname: classname, Time: formatSeconds(0)}
		applyVerdict(&c, b2bVerdict(cmp.VerdictStatus), cmp.Message)
		cases = append(cases, c)
	}
	return cases
}

// b2bVerdict treats accepted deviations as passed
func b2bVerdict(verdict string) string {
	if verdict == models.VerdictFailedAccepted {
		return models.VerdictPassed
	}
	return verdict
}

func applyVerdict(c *TestCase, verdict, message string) {
	switch verdict {
	case models.VerdictPassed:
	case models.VerdictFailed:
		if message == "" {
			message = "test failed"
		}
		c.Failure = &Outcome{Message: message, Type: verdict}
	case models.VerdictError:
		if message == "" {
			message = "test execution error"
		}
		c.Error = &Outcome{Message: message, Type: verdict}
	default:
		if message == "" {
			message = verdict
		}
		c.Skipped = &Outcome{Message: message}
	}
}

func properties(in Input) *Properties {
	var items []Property
	if in.ProjectName != "" {
		items = append(items, Property{Name: projectProperty, Value: in.ProjectName})
	}
	if in.RunID != "" {
		items = append(items, Property{Name: runIDProperty, Value: in.RunID})
	}
	if in.RBT != nil {
		configs := make([]string, 0, len(in.RBT.TestResults))
		for config := range in.RBT.TestResults {
			configs = append(configs, config)
		}
		sort.Strings(configs)
		for _, config := range configs {
			res := in.RBT.TestResults[config]
			items = append(items, Property{
				Name:  fmt.Sprintf(rbtPropertyTmpl, config),
				Value: fmt.Sprintf("%d/%d passed", res.PassedTests, res.TotalTests),
			})
		}
	}
	if len(items) == 0 {
		return nil
	}
	return &Properties{Items: items}
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
