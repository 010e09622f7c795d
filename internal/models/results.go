package models

// Verdict values reported by EmbeddedPlatform
const (
	VerdictPassed         = "PASSED"
	VerdictFailed         = "FAILED"
	VerdictFailedAccepted = "FAILED_ACCEPTED"
	VerdictError          = "ERROR"
	VerdictNotExecuted    = "NOT_EXECUTED"
)

// ConfigResult holds the requirements-based test counts for one execution config
type ConfigResult struct {
	TotalTests    int    `json:"totalTests" mapstructure:"totalTests"`
	PassedTests   int    `json:"passedTests" mapstructure:"passedTests"`
	FailedTests   int    `json:"failedTests" mapstructure:"failedTests"`
	ErrorTests    int    `json:"errorTests" mapstructure:"errorTests"`
	VerdictStatus string `json:"verdictStatus,omitempty" mapstructure:"verdictStatus"`
}

// Passed reports whether every test of the config passed.
// Counts are opaque: only equality of total and passed is considered.
func (r ConfigResult) Passed() bool {
	return r.TotalTests == r.PassedTests
}

// RBTResult is the response of a requirements-based test execution
type RBTResult struct {
	TestResults map[string]ConfigResult `json:"testResults" mapstructure:"testResults"`
}

// Passed reports whether the given execution config passed.
// An unknown config never passes.
func (r *RBTResult) Passed(config string) bool {
	if r == nil {
		return false
	}
	res, ok := r.TestResults[config]
	if !ok {
		return false
	}
	return res.Passed()
}

// Comparison is a single back-to-back comparison between two execution configs
type Comparison struct {
	Name          string `json:"name" mapstructure:"name"`
	VerdictStatus string `json:"verdictStatus" mapstructure:"verdictStatus"`
	Message       string `json:"message,omitempty" mapstructure:"message"`
}

// B2BResult is the response of a back-to-back test
type B2BResult struct {
	VerdictStatus string       `json:"verdictStatus" mapstructure:"verdictStatus"`
	Comparisons   []Comparison `json:"comparisons,omitempty" mapstructure:"comparisons"`
}

// Passed is true for PASSED and FAILED_ACCEPTED verdicts
func (r *B2BResult) Passed() bool {
	if r == nil {
		return false
	}
	return r.VerdictStatus == VerdictPassed || r.VerdictStatus == VerdictFailedAccepted
}

// Coverage holds handled percentages of the structural coverage goals
type Coverage struct {
	Statement float64 `json:"statement"`
	Decision  float64 `json:"decision"`
	MCDC      float64 `json:"mcdc"`
}
