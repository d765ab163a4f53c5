// Package preset reads and writes saved forms as YAML or TOML files and
// watches them for edits.
package preset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/litescript/ls-sensitivity/internal/form"
)

// ErrUnsupportedFormat is returned for files that are neither YAML nor TOML.
var ErrUnsupportedFormat = errors.New("unsupported preset format")

type format int

const (
	formatYAML format = iota
	formatTOML
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML, nil
	case ".toml":
		return formatTOML, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}
}

// Load reads a preset, choosing the decoder from the file extension.
func Load(path string) (form.Preset, error) {
	f, err := formatOf(path)
	if err != nil {
		return form.Preset{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return form.Preset{}, fmt.Errorf("reading preset: %w", err)
	}
	return decode(data, f)
}

func decode(data []byte, f format) (form.Preset, error) {
	var p form.Preset
	switch f {
	case formatTOML:
		if err := toml.Unmarshal(data, &p); err != nil {
			return form.Preset{}, fmt.Errorf("parsing preset: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &p); err != nil {
			return form.Preset{}, fmt.Errorf("parsing preset: %w", err)
		}
	}
	return p, nil
}

// Save writes p atomically (write temp + rename).
func Save(path string, p form.Preset) error {
	f, err := formatOf(path)
	if err != nil {
		return err
	}

	var data []byte
	switch f {
	case formatTOML:
		data, err = toml.Marshal(p)
	default:
		data, err = yaml.Marshal(p)
	}
	if err != nil {
		return fmt.Errorf("marshaling preset: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing temp preset: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming preset: %w", err)
	}
	return nil
}
