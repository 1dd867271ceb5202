package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Template renders DefaultConfig in the format implied by path.
func Template(path string) ([]byte, error) {
	f, err := formatOf(path)
	if err != nil {
		return nil, err
	}
	raw := toFile(DefaultConfig())
	switch f {
	case formatYAML:
		return yaml.Marshal(raw)
	default:
		return toml.Marshal(raw)
	}
}

func WriteTemplate(path string, overwrite bool) error {
	data, err := Template(path)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, data, 0o600)
}
