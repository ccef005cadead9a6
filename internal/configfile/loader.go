// Package configfile loads, validates, and parses the regulators
// configuration file into the executable hierarchy. The file is validated
// against an embedded JSON schema before parsing, so structural defects are
// reported with schema paths instead of nil dereferences.
package configfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/smccarney/phosphor-power/internal/types"
)

type Loader struct {
	validator   *Validator
	searchPaths []string
}

func NewLoader(searchPaths []string) (*Loader, error) {
	validator, err := NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}

	return &Loader{
		validator:   validator,
		searchPaths: searchPaths,
	}, nil
}

// Load reads and validates the named config file. Name may be an absolute
// path or a file name resolved against the loader's search paths.
func (l *Loader) Load(name string) (*types.ConfigFile, error) {
	data, foundPath, err := l.read(name)
	if err != nil {
		return nil, err
	}

	if err := l.validator.Validate(data); err != nil {
		return nil, fmt.Errorf("validation failed for %s: %w", foundPath, err)
	}

	var config types.ConfigFile
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", foundPath, err)
	}

	return &config, nil
}

func (l *Loader) read(name string) ([]byte, string, error) {
	if filepath.IsAbs(name) {
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read config file: %w", err)
		}
		return data, name, nil
	}

	for _, searchPath := range l.searchPaths {
		fullPath := filepath.Join(searchPath, name)
		data, err := os.ReadFile(fullPath)
		if err == nil {
			return data, fullPath, nil
		}
	}

	return nil, "", fmt.Errorf("config file not found: %s (searched in: %v)", name, l.searchPaths)
}
