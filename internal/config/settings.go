package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/xelth-com/shoprecs/internal/recommend"
)

var validate = validator.New()

// LoadSettings returns the recommendation settings: defaults overlaid by the
// YAML file at path, if any. A missing file yields the defaults.
func LoadSettings(path string) (recommend.Settings, error) {
	s := recommend.DefaultSettings()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read settings %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse settings %s: %w", path, err)
	}
	if err := ValidateSettings(s); err != nil {
		return s, fmt.Errorf("settings %s: %w", path, err)
	}
	return s, nil
}

// ValidateSettings checks ranges and enum values
func ValidateSettings(s recommend.Settings) error {
	return validate.Struct(s)
}

// StaticSettings serves a fixed Settings value
type StaticSettings struct {
	Value recommend.Settings
}

func (s StaticSettings) Settings(context.Context) (recommend.Settings, error) {
	return s.Value, nil
}
