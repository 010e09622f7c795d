package hooks

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
)

// Usage is printed when the hook is called with the wrong arguments
const Usage = "Usage: epci hook <input_file> <output_file> (.json)"

// ErrInputNotFound is returned when the input file does not exist
var ErrInputNotFound = errors.New("file not found")

// outputIndent matches the indentation EmbeddedPlatform writes its own files with
const outputIndent = "    "

// ReadInput reads and parses a hook input file
func ReadInput(fs afero.Fs, path string) (Input, error) {
	var in Input

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return in, fmt.Errorf("%w: %s", ErrInputNotFound, path)
		}
		return in, fmt.Errorf("failed to read input file: %w", err)
	}

	if err := json.Unmarshal(data, &in); err != nil {
		return in, fmt.Errorf("failed to parse input file %s: %w", path, err)
	}
	return in, nil
}

// WriteOutput writes the hook output as pretty-printed JSON.
// Commit messages are written verbatim, without HTML escaping.
func WriteOutput(fs afero.Fs, path string, out *Output) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", outputIndent)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	data := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// MarshalJSON writes metaData in insertion order without HTML escaping
func (o Output) MarshalJSON() ([]byte, error) {
	if o.MetaData == nil {
		return []byte("{}"), nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteString(`{"metaData":{`)
	for pair := o.MetaData.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Prev() != nil {
			buf.WriteByte(',')
		}
		if err := enc.Encode(pair.Key); err != nil {
			return nil, err
		}
		buf.Truncate(buf.Len() - 1)
		buf.WriteByte(':')
		if err := enc.Encode(pair.Value); err != nil {
			return nil, err
		}
		buf.Truncate(buf.Len() - 1)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

// Run reads inputPath, dispatches the call and writes the answer to outputPath
func (d *Dispatcher) Run(inputPath, outputPath string) error {
	if !isFile(d.fs, inputPath) {
		return fmt.Errorf("%w: %s", ErrInputNotFound, inputPath)
	}

	in, err := ReadInput(d.fs, inputPath)
	if err != nil {
		return err
	}

	d.logger.Debug().Str("use_case", string(in.UseCase)).Msg("Handling hook call")

	out, err := d.Handle(in)
	if err != nil {
		return err
	}
	return WriteOutput(d.fs, outputPath, out)
}
