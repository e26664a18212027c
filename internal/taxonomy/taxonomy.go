// Package taxonomy provides the embedded classification tables with user
// override support. Definitions are loaded with resolution order:
// 1. User override: taxonomyDir/{name}.yaml
// 2. Embedded default: internal/taxonomy/{name}.yaml
package taxonomy

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed *.yaml
var fs embed.FS

// Entry is one weighted classification target consumed by the rule
// classifier. Keywords are matched as substrings unless
// require_word_boundary is set.
type Entry struct {
	Name                string   `yaml:"name"`
	Weight              int      `yaml:"weight"`
	Keywords            []string `yaml:"keywords"`
	URLPatterns         []string `yaml:"url_patterns,omitempty"`
	ContentIndicators   []string `yaml:"content_indicators,omitempty"`
	Exclusions          []string `yaml:"exclusions,omitempty"`
	RequireWordBoundary bool     `yaml:"require_word_boundary,omitempty"`
}

// Taxonomy is the built-in weighted classification table plus the
// exact-host domain map.
type Taxonomy struct {
	Entries []Entry           `yaml:"entries"`
	Domains map[string]string `yaml:"domains"` // exact host -> entry name
}

// Preset is one node of the built-in category tree. Roots have no
// parent; child presets name their parent preset.
type Preset struct {
	Name        string   `yaml:"name"`
	Slug        string   `yaml:"slug"`
	Description string   `yaml:"description,omitempty"`
	Parent      string   `yaml:"parent,omitempty"`
	Keywords    []string `yaml:"keywords,omitempty"`
}

// PresetFile is the on-disk shape of the preset tree.
type PresetFile struct {
	Categories []Preset `yaml:"categories"`
}

// LoadTaxonomy loads the weighted classification table with resolution order:
// 1. User override: taxonomyDir/default.yaml
// 2. Embedded default
func LoadTaxonomy(taxonomyDir string) (*Taxonomy, error) {
	data, err := readFile("default.yaml", taxonomyDir)
	if err != nil {
		return nil, err
	}

	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy: %w", err)
	}
	if len(t.Entries) == 0 {
		return nil, fmt.Errorf("taxonomy has no entries")
	}
	return &t, nil
}

// LoadPresets loads the built-in category tree with the same resolution
// order as LoadTaxonomy.
func LoadPresets(taxonomyDir string) ([]Preset, error) {
	data, err := readFile("presets.yaml", taxonomyDir)
	if err != nil {
		return nil, err
	}

	var f PresetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse presets: %w", err)
	}
	if len(f.Categories) == 0 {
		return nil, fmt.Errorf("preset tree has no categories")
	}
	return f.Categories, nil
}

// RootPresets returns only the root nodes of the preset tree, in
// declaration order. These seed the default taxonomy on first run.
func RootPresets(presets []Preset) []Preset {
	var roots []Preset
	for _, p := range presets {
		if p.Parent == "" {
			roots = append(roots, p)
		}
	}
	return roots
}

// FindPreset returns the preset with the given name, or nil.
func FindPreset(presets []Preset, name string) *Preset {
	for i := range presets {
		if presets[i].Name == name {
			return &presets[i]
		}
	}
	return nil
}

func readFile(name string, taxonomyDir string) ([]byte, error) {
	// Try user override first
	if taxonomyDir != "" {
		userPath := filepath.Join(taxonomyDir, name)
		if data, err := os.ReadFile(userPath); err == nil {
			return data, nil
		}
	}

	// Fall back to embedded default
	data, err := fs.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("taxonomy file '%s' not found (checked user override and embedded)", name)
	}
	return data, nil
}
