// Package hooks answers the EmbeddedPlatform hook calls that ask for
// traceability metadata.
//
// EmbeddedPlatform runs the configured GENERAL_HOOKS_COMMAND with an input
// and an output JSON file. The input names a use case and carries the
// metadata EP already knows; the output adds version control provenance.
package hooks

import (
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cast"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// UseCase identifies the event EmbeddedPlatform raised the hook for
type UseCase string

const (
	// ArchitectureUpdateNeeded is sent before an architecture update
	ArchitectureUpdateNeeded UseCase = "ARCH_UPDATE_NEEDED"
	// ArchitectureMetaInfo is sent during architecture import or update
	ArchitectureMetaInfo UseCase = "ARCH_ADD_META_INFO"
	// RequirementMetaInfo is sent during requirement import or update
	RequirementMetaInfo UseCase = "REQ_ADD_META_INFO"
	// TestingMetaInfo is sent during load/save of the test project
	TestingMetaInfo UseCase = "EP_ADD_META_INFO"
)

// Keys of the metadata EmbeddedPlatform sends and expects back
const (
	PlatformKey    = "BTC EmbeddedPlatform"
	SimulinkKey    = "Simulink"
	ModelFileKey   = "Model File"
	ProfilePathKey = "Profile Path"

	LastChangeModelKey   = "Last change (Model)"
	LastChangeDDKey      = "Last change (DD)"
	LastChangeProjectKey = "Last change (Test Project)"
)

// DataDictionaryExt is the extension of the data dictionary next to a model
const DataDictionaryExt = ".dd"

// Input is the content of the hook input file
type Input struct {
	UseCase  UseCase        `json:"useCase"`
	MetaData map[string]any `json:"metaData,omitempty"`
}

// Metadata is an insertion-ordered set of traceability fields
type Metadata = orderedmap.OrderedMap[string, string]

// Output is the content of the hook output file.
// MetaData is nil for use cases without a handler so the key is left out.
type Output struct {
	MetaData *Metadata
}

// LastChangeFunc returns the provenance string of a file, or "" if it has no history
type LastChangeFunc func(path string) (string, error)

// Dispatcher routes hook calls to the handler of their use case
type Dispatcher struct {
	lastChange LastChangeFunc
	fs         afero.Fs
	logger     zerolog.Logger
}

// NewDispatcher creates a dispatcher that resolves provenance with lastChange
// and checks for sibling files on fs
func NewDispatcher(lastChange LastChangeFunc, fs afero.Fs, logger zerolog.Logger) *Dispatcher {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Dispatcher{
		lastChange: lastChange,
		fs:         fs,
		logger:     logger,
	}
}

// Handle answers one hook call. Unknown use cases produce an empty output.
func (d *Dispatcher) Handle(in Input) (*Output, error) {
	switch in.UseCase {
	case ArchitectureMetaInfo:
		md, err := d.architectureMetadata(in.MetaData)
		if err != nil {
			return nil, err
		}
		return &Output{MetaData: md}, nil

	case TestingMetaInfo:
		md, err := d.testingMetadata(in.MetaData)
		if err != nil {
			return nil, err
		}
		return &Output{MetaData: md}, nil

	default:
		d.logger.Debug().Str("use_case", string(in.UseCase)).Msg("No handler for use case")
		return &Output{}, nil
	}
}

func (d *Dispatcher) architectureMetadata(metaData map[string]any) (*Metadata, error) {
	md := orderedmap.New[string, string]()

	platform, ok := platformBlock(metaData)
	if !ok {
		return md, nil
	}
	modelPath := cast.ToString(cast.ToStringMap(platform[SimulinkKey])[ModelFileKey])
	if modelPath == "" {
		d.logger.Debug().Msg("No model file in architecture metadata")
		return md, nil
	}

	if err := d.addLastChange(md, LastChangeModelKey, modelPath); err != nil {
		return nil, err
	}

	ddPath := strings.TrimSuffix(modelPath, filepath.Ext(modelPath)) + DataDictionaryExt
	if isFile(d.fs, ddPath) {
		if err := d.addLastChange(md, LastChangeDDKey, ddPath); err != nil {
			return nil, err
		}
	}

	return md, nil
}

func (d *Dispatcher) testingMetadata(metaData map[string]any) (*Metadata, error) {
	md := orderedmap.New[string, string]()

	platform, ok := platformBlock(metaData)
	if !ok {
		return md, nil
	}
	profilePath := cast.ToString(platform[ProfilePathKey])
	if profilePath == "" {
		d.logger.Debug().Msg("No profile path in testing metadata")
		return md, nil
	}

	if err := d.addLastChange(md, LastChangeProjectKey, profilePath); err != nil {
		return nil, err
	}
	return md, nil
}

// addLastChange sets key only when the file has a commit
func (d *Dispatcher) addLastChange(md *Metadata, key, path string) error {
	change, err := d.lastChange(path)
	if err != nil {
		return err
	}
	if change == "" {
		d.logger.Debug().Str("path", path).Msg("No commits found")
		return nil
	}
	md.Set(key, change)
	return nil
}

func platformBlock(metaData map[string]any) (map[string]any, bool) {
	if len(metaData) == 0 {
		return nil, false
	}
	raw, ok := metaData[PlatformKey]
	if !ok {
		return nil, false
	}
	block := cast.ToStringMap(raw)
	return block, len(block) > 0
}

func isFile(fs afero.Fs, path string) bool {
	info, err := fs.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
