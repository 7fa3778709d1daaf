package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and parsing of a RunConfig from a file.
type Loader struct {
	filePath string
}

// NewLoader creates a configuration loader for the given file path.
func NewLoader(filePath string) *Loader {
	return &Loader{filePath: filePath}
}

// Load reads the configuration file, unmarshals it into RunConfig and applies
// defaults. A missing or empty file is an error; callers that treat the
// config file as optional should stat it first.
func (l *Loader) Load() (*RunConfig, error) {
	if l.filePath == "" {
		return nil, fmt.Errorf("configuration file path is empty")
	}
	content, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", l.filePath, err)
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("configuration file '%s' is empty", l.filePath)
	}

	var cfg RunConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML from '%s': %w", l.filePath, err)
	}

	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("config validation failed: invalid port %d in '%s'", cfg.Port, l.filePath)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// LoadOrDefault returns the file-based config when path is non-empty, or a
// defaulted RunConfig otherwise.
func LoadOrDefault(path string) (*RunConfig, error) {
	if path == "" {
		cfg := &RunConfig{}
		cfg.ApplyDefaults()
		return cfg, nil
	}
	return NewLoader(path).Load()
}
