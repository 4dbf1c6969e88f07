// Package personality defines who the bot pretends to be and where that is kept.
package personality

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPreset is used when nothing else is configured.
const DefaultPreset = "companion"

var (
	// ErrUnknownPreset is returned when a preset name is not defined.
	ErrUnknownPreset = errors.New("unknown personality preset")
	// ErrInvalid is returned when a personality misses a required field.
	ErrInvalid = errors.New("invalid personality")
)

//go:embed presets.yaml
var presetsYAML []byte

var presets map[string]Personality

func init() {
	if err := yaml.Unmarshal(presetsYAML, &presets); err != nil {
		panic(fmt.Sprintf("personality: invalid embedded presets: %v", err))
	}
}

// Personality is the character description injected into every prompt.
type Personality struct {
	Name     string   `yaml:"name" json:"name"`
	Byline   string   `yaml:"byline" json:"byline"`
	Identity []string `yaml:"identity" json:"identity"`
	Behavior []string `yaml:"behavior" json:"behavior"`
}

// Validate checks the fields every prompt needs.
func (p Personality) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if strings.TrimSpace(p.Byline) == "" {
		return fmt.Errorf("%w: byline is required", ErrInvalid)
	}
	return nil
}

// Preset returns a copy of the named preset.
func Preset(name string) (Personality, error) {
	p, ok := presets[name]
	if !ok {
		return Personality{}, fmt.Errorf("%w: %s", ErrUnknownPreset, name)
	}
	p.Identity = append([]string(nil), p.Identity...)
	p.Behavior = append([]string(nil), p.Behavior...)
	return p, nil
}

// Presets returns the preset names, sorted.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
