package domain

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultSettingsYAML []byte

// DefaultSettings returns the built-in four night protocol.
func DefaultSettings() Settings {
	settings, err := ParseSettingsYAML(defaultSettingsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default settings: %v", err))
	}
	return settings
}

// ParseSettingsYAML decodes and validates a protocol document.
func ParseSettingsYAML(data []byte) (Settings, error) {
	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// LoadSettingsYAML reads a protocol document from r.
func LoadSettingsYAML(r io.Reader) (Settings, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Settings{}, err
	}
	return ParseSettingsYAML(data)
}

// LoadSettingsFile reads a protocol document from path. An empty path yields the built-in default.
func LoadSettingsFile(path string) (Settings, error) {
	if path == "" {
		return DefaultSettings(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Settings{}, err
	}
	defer f.Close()
	return LoadSettingsYAML(f)
}
