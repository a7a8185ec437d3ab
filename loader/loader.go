// Package loader reads the per-level JSON config documents of a test tree.
package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/ethereum-optimism/infra/op-dirtest/types"
)

var (
	// ErrRead is returned when a config file cannot be opened or read.
	ErrRead = errors.New("failed to read config file")
	// ErrParse is returned when a config file is not valid JSON.
	ErrParse = errors.New("failed to parse config file")
	// ErrShape is returned when a config file is valid JSON but some values
	// have an unexpected type. The values that did match are still decoded.
	ErrShape = errors.New("unexpected value type in config file")
)

// Load decodes the JSON document filename inside dir into v.
// Unknown fields are ignored. Values of the wrong type are left unset and
// reported with ErrShape once the rest of the document has been decoded.
// TODO: validate against a per-level JSON schema once the schemas are published.
func Load(dir, filename string, v any) error {
	path := filepath.Join(dir, filename)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w %s in directory %s: %w", ErrRead, filename, dir, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return fmt.Errorf("%w %s in directory %s: %w", ErrShape, filename, dir, err)
		}
		return fmt.Errorf("%w %s in directory %s: %w", ErrParse, filename, dir, err)
	}
	return nil
}

// ConfigFileFor returns the config file name expected at level if it appears
// in files, or "" when the level has no config.
func ConfigFileFor(level types.Level, files []string) string {
	name := level.ConfigFile()
	if name != "" && slices.Contains(files, name) {
		return name
	}
	return ""
}
