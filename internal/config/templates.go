package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Template renders a starter node.toml with defaults filled in.
func Template() (string, error) {
	def := DefaultNodeConfig()
	raw := fileConfig{
		ID:                def.ID.String(),
		Name:              def.Name,
		NodeType:          def.NodeType.String(),
		Root:              "00",
		EndNodes:          []string{},
		AdvertiseInterval: def.AdvertiseInterval.String(),
		AdminAddr:         "127.0.0.1:9300",
	}
	out, err := toml.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("config template: %w", err)
	}
	return string(out), nil
}

func WriteTemplate(path string, overwrite bool) error {
	template, err := Template()
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}
