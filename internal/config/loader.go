package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads, decodes, defaults, and validates the YAML config at path.
// Unknown fields are silently ignored, since yaml.v3 does that by default
// absent KnownFields(true).
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %q: %w", path, err)
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
