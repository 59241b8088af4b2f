package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// LoadTOML loads configuration from a TOML file
func LoadTOML(path string, target interface{}) error {
	if _, err := toml.DecodeFile(path, target); err != nil {
		return fmt.Errorf("failed to decode TOML file %s: %w", path, err)
	}
	return nil
}
