// Package testcases prepares test case files for import into a compiled
// (SIL) architecture.
//
// Test cases written against the model declare their interface in model
// terms. Before import every referenced signal is reclassified by the kind
// the target scope declares for it. Source files are never touched: the
// adapted copies live in a temporary directory that is removed once the
// import returns.
package testcases

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/btc-embedded/smart-testing-genai/internal/models"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cast"
)

// UISettingsSuffix marks UI-settings sidecar files that are never imported
const UISettingsSuffix = ".uisettings.json"

// Keys of the test case document
const (
	InterfaceKey    = "interface"
	ArchitectureKey = "architecture"
	ScopeKey        = "scope"
)

// Interface buckets
const (
	Inputs     = "inputs"
	Parameters = "parameters"
	Locals     = "locals"
	Outputs    = "outputs"
)

// Buckets lists the interface buckets in document order
var Buckets = []string{Inputs, Parameters, Locals, Outputs}

var kindBuckets = map[string]string{
	models.KindInput:       Inputs,
	models.KindParameter:   Parameters,
	models.KindCalibration: Parameters,
	models.KindLocal:       Locals,
	models.KindDisplay:     Locals,
	models.KindOutput:      Outputs,
}

// Meta is merged into every adapted test case
type Meta struct {
	Architecture string
	ScopePath    string
}

// ImportFunc imports the adapted files found at paths
type ImportFunc func(paths []string) error

// Adapter rewrites test cases on temporary copies and hands them to an importer
type Adapter struct {
	fs     afero.Fs
	logger zerolog.Logger
}

// NewAdapter creates an adapter working on fs
func NewAdapter(fs afero.Fs, logger zerolog.Logger) *Adapter {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Adapter{fs: fs, logger: logger}
}

// Classify maps signal names to their interface bucket.
// Signals of unknown kind are left out.
func Classify(signals []models.Signal) map[string]string {
	buckets := make(map[string]string, len(signals))
	for _, s := range signals {
		if bucket, ok := kindBuckets[strings.ToUpper(s.Kind)]; ok {
			buckets[s.Name] = bucket
		}
	}
	return buckets
}

// Files lists the importable test case files directly in dir, sorted
func Files(fs afero.Fs, dir string) ([]string, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read test case directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(name), ".json") {
			continue
		}
		if strings.HasSuffix(strings.ToLower(name), UISettingsSuffix) {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}

// Import adapts every test case in srcDir and passes the adapted copies to importFn.
// The temporary copies are removed before Import returns, whatever importFn did.
func (a *Adapter) Import(srcDir string, meta Meta, signals []models.Signal, importFn ImportFunc) error {
	files, err := Files(a.fs, srcDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		a.logger.Warn().Str("dir", srcDir).Msg("No test case files found")
		return nil
	}

	tmpDir, err := afero.TempDir(a.fs, "", "epci-testcases-")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() {
		if err := a.fs.RemoveAll(tmpDir); err != nil {
			a.logger.Warn().Err(err).Str("dir", tmpDir).Msg("Failed to remove temp directory")
		}
	}()

	classes := Classify(signals)
	paths := make([]string, 0, len(files))
	for _, file := range files {
		data, err := afero.ReadFile(a.fs, file)
		if err != nil {
			return fmt.Errorf("failed to read test case %s: %w", file, err)
		}

		adapted, dropped, err := Adapt(data, meta, classes)
		if err != nil {
			return fmt.Errorf("failed to adapt test case %s: %w", file, err)
		}
		if len(dropped) > 0 {
			a.logger.Debug().Str("file", file).Strs("signals", dropped).Msg("Dropped signals unknown to scope")
		}

		target := filepath.Join(tmpDir, filepath.Base(file))
		if err := afero.WriteFile(a.fs, target, adapted, 0644); err != nil {
			return fmt.Errorf("failed to write adapted test case: %w", err)
		}
		paths = append(paths, target)
	}

	a.logger.Debug().Int("count", len(paths)).Str("dir", tmpDir).Msg("Adapted test cases")
	return importFn(paths)
}

// Adapt replaces the interface section of a test case document with the
// classification of its signals and merges meta into it. It returns the
// adapted document and the names of referenced signals unknown to classes.
func Adapt(data []byte, meta Meta, classes map[string]string) ([]byte, []string, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse test case: %w", err)
	}
	if doc == nil {
		return nil, nil, fmt.Errorf("test case is not a JSON object")
	}

	iface := make(map[string][]string, len(Buckets))
	for _, b := range Buckets {
		iface[b] = []string{}
	}

	var dropped []string
	for _, name := range referencedSignals(doc[InterfaceKey]) {
		bucket, ok := classes[name]
		if !ok {
			dropped = append(dropped, name)
			continue
		}
		iface[bucket] = append(iface[bucket], name)
	}

	doc[InterfaceKey] = iface
	if meta.Architecture != "" {
		doc[ArchitectureKey] = meta.Architecture
	}
	if meta.ScopePath != "" {
		doc[ScopeKey] = meta.ScopePath
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal test case: %w", err)
	}
	return out, dropped, nil
}

// referencedSignals returns the signal names listed anywhere in an interface
// section, in bucket order, without duplicates
func referencedSignals(section any) []string {
	raw := cast.ToStringMap(section)
	seen := make(map[string]bool)
	var names []string

	add := func(entries any) {
		for _, entry := range cast.ToSlice(entries) {
			name := signalName(entry)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}

	for _, b := range Buckets {
		add(raw[b])
	}

	// Buckets outside the known four still reference signals
	var other []string
	for key := range raw {
		if !isBucket(key) {
			other = append(other, key)
		}
	}
	sort.Strings(other)
	for _, key := range other {
		add(raw[key])
	}
	return names
}

func signalName(entry any) string {
	if m, ok := entry.(map[string]any); ok {
		return cast.ToString(m["name"])
	}
	return cast.ToString(entry)
}

func isBucket(key string) bool {
	for _, b := range Buckets {
		if b == key {
			return true
		}
	}
	return false
}
