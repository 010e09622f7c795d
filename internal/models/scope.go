package models

// Scope is a unit of the system under test as known by EmbeddedPlatform
type Scope struct {
	UID      string `json:"uid"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	TopLevel bool   `json:"topLevel"`
}

// DisplayName returns the scope path, falling back to its name
func (s Scope) DisplayName() string {
	if s.Path != "" {
		return s.Path
	}
	return s.Name
}

// Signal kinds declared by a scope interface
const (
	KindInput       = "IN"
	KindOutput      = "OUT"
	KindParameter   = "PARAM"
	KindCalibration = "CAL"
	KindLocal       = "LOCAL"
	KindDisplay     = "DISP"
)

// Signal is an interface object of a scope
type Signal struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// ExecutionResult is the verdict of one test case on one execution config
type ExecutionResult struct {
	ExecConfigName  string  `json:"execConfigName"`
	VerdictStatus   string  `json:"verdictStatus"`
	Message         string  `json:"message,omitempty"`
	DurationSeconds float64 `json:"duration,omitempty"`
}

// TestCase is a requirements-based test case
type TestCase struct {
	UID      string            `json:"uid"`
	Name     string            `json:"name"`
	ScopeUID string            `json:"scopeUid"`
	Results  []ExecutionResult `json:"executionResults,omitempty"`
}

// Result returns the execution result for the given config, if any
func (tc TestCase) Result(config string) (ExecutionResult, bool) {
	for _, r := range tc.Results {
		if r.ExecConfigName == config {
			return r, true
		}
	}
	return ExecutionResult{}, false
}

// TopLevelScope returns the scope flagged as toplevel, or the first one
func TopLevelScope(scopes []Scope) (Scope, bool) {
	if len(scopes) == 0 {
		return Scope{}, false
	}
	for _, s := range scopes {
		if s.TopLevel {
			return s, true
		}
	}
	return scopes[0], true
}

// FindScope looks up a scope by name
func FindScope(scopes []Scope, name string) (Scope, bool) {
	for _, s := range scopes {
		if s.Name == name {
			return s, true
		}
	}
	return Scope{}, false
}
