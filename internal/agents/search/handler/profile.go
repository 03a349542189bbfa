package handler

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"go-tripplanner/pkg/models"
)

//go:embed profiles.yaml
var defaultProfiles []byte

// Capability describes what one search agent is allowed to do.
type Capability struct {
	Category     models.Category `yaml:"category" validate:"required"`
	Instructions string          `yaml:"instructions" validate:"required"`
	AllowedTools []string        `yaml:"allowed_tools" validate:"min=1,dive,required"`
	OutputShape  string          `yaml:"output_shape"`
	MaxCalls     int             `yaml:"max_calls" validate:"gte=1"`
}

func (c Capability) Allows(tool string) bool {
	for _, t := range c.AllowedTools {
		if t == tool {
			return true
		}
	}
	return false
}

var validate = validator.New()

// LoadCapabilities reads a YAML list of capabilities keyed by category.
func LoadCapabilities(r io.Reader) (map[models.Category]Capability, error) {
	var list []Capability
	if err := yaml.NewDecoder(r).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode capabilities: %w", err)
	}
	out := make(map[models.Category]Capability, len(list))
	for i, c := range list {
		if err := validate.Struct(c); err != nil {
			return nil, fmt.Errorf("capability %d (%s): %w", i, c.Category, err)
		}
		cat, ok := models.ParseCategory(string(c.Category))
		if !ok {
			return nil, fmt.Errorf("capability %d: unknown category %q", i, c.Category)
		}
		c.Category = cat
		if _, dup := out[cat]; dup {
			return nil, fmt.Errorf("capability %d: duplicate category %q", i, cat)
		}
		out[cat] = c
	}
	return out, nil
}

func LoadCapabilitiesFile(path string) (map[models.Category]Capability, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadCapabilities(f)
}

// DefaultCapabilities returns the built-in capability for every search category.
func DefaultCapabilities() map[models.Category]Capability {
	caps, err := LoadCapabilities(bytes.NewReader(defaultProfiles))
	if err != nil {
		panic(fmt.Sprintf("embedded profiles: %v", err))
	}
	return caps
}
