package inputs

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default file names inside an input directory.
const (
	ProfileFile = "user_profile.json"
	ContextFile = "weekly_context.json"
	SignalsFile = "outcome_signals.json"
)

// LoadFile decodes a JSON or YAML record into out.
func LoadFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// LoadDir reads the three records from dir. The signals file is optional;
// when it is absent every signal is treated as missing.
func LoadDir(dir string) (Bundle, error) {
	var b Bundle
	if err := LoadFile(filepath.Join(dir, ProfileFile), &b.Profile); err != nil {
		return Bundle{}, err
	}
	if err := LoadFile(filepath.Join(dir, ContextFile), &b.Week); err != nil {
		return Bundle{}, err
	}
	signalsPath := filepath.Join(dir, SignalsFile)
	if _, err := os.Stat(signalsPath); err == nil {
		if err := LoadFile(signalsPath, &b.Signals); err != nil {
			return Bundle{}, err
		}
	}
	return b, nil
}
