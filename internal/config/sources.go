package config

import (
	_ "embed"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/vchiuchiolo/district-stats/pkg/errors"
)

// defaultSourcesYAML carries the shipped source definitions: endpoint
// shapes, organizational scopes, and the staff endpoint fallback chain.
//
//go:embed sources.yaml
var defaultSourcesYAML []byte

// SourceDefaults are the non-secret per-source settings. They mirror the
// deployment's backends and can be overridden with a sources.yaml file.
type SourceDefaults struct {
	Directory          DirectoryConfig          `yaml:"directory"`
	DeviceManagement   DeviceManagementConfig   `yaml:"device_management"`
	StudentInformation StudentInformationConfig `yaml:"student_information"`
}

// LoadSourceDefaults parses the embedded source definitions, then applies
// the override file at path when one is given.
func LoadSourceDefaults(path string) (*SourceDefaults, error) {
	var defs SourceDefaults
	if err := yaml.Unmarshal(defaultSourcesYAML, &defs); err != nil {
		return nil, errors.WrapParse("yaml", "embedded sources.yaml", err)
	}

	if path == "" {
		return &defs, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	return &defs, nil
}
