package taxonomy

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadTaxonomyEmbedded(t *testing.T) {
	tax, err := LoadTaxonomy("")
	if err != nil {
		t.Fatalf("LoadTaxonomy: %v", err)
	}

	if len(tax.Entries) < 15 {
		t.Errorf("expected a reasonably sized taxonomy, got %d entries", len(tax.Entries))
	}

	// Every domain must map to a declared entry
	names := map[string]bool{}
	for _, e := range tax.Entries {
		if e.Name == "" {
			t.Error("entry with empty name")
		}
		if e.Weight <= 0 {
			t.Errorf("entry %q has non-positive weight %d", e.Name, e.Weight)
		}
		if names[e.Name] {
			t.Errorf("duplicate entry name %q", e.Name)
		}
		names[e.Name] = true
	}
	for host, name := range tax.Domains {
		if !names[name] {
			t.Errorf("domain %q maps to unknown entry %q", host, name)
		}
	}

	if tax.Domains["github.com"] != "Web Development" {
		t.Errorf("github.com maps to %q, want Web Development", tax.Domains["github.com"])
	}
}

func TestLoadPresetsEmbedded(t *testing.T) {
	presets, err := LoadPresets("")
	if err != nil {
		t.Fatalf("LoadPresets: %v", err)
	}

	roots := RootPresets(presets)
	if len(roots) != 9 {
		t.Errorf("expected 9 root presets, got %d", len(roots))
	}

	// Parent references must resolve, and only to roots (depth stays at 2)
	for _, p := range presets {
		if p.Slug == "" {
			t.Errorf("preset %q has no slug", p.Name)
		}
		if p.Parent == "" {
			continue
		}
		parent := FindPreset(presets, p.Parent)
		if parent == nil {
			t.Errorf("preset %q references unknown parent %q", p.Name, p.Parent)
			continue
		}
		if parent.Parent != "" {
			t.Errorf("preset %q has a non-root parent %q", p.Name, p.Parent)
		}
	}

	wd := FindPreset(presets, "Web Development")
	if wd == nil {
		t.Fatal("Web Development preset missing")
	}
	if wd.Slug != "web-development" {
		t.Errorf("Web Development slug = %q, want web-development", wd.Slug)
	}
	if wd.Parent != "Technology" {
		t.Errorf("Web Development parent = %q, want Technology", wd.Parent)
	}

	if other := FindPreset(presets, "Other"); other == nil || other.Slug != "other" {
		t.Error("Other preset with slug \"other\" must exist")
	}
}

func TestLoadTaxonomyUserOverride(t *testing.T) {
	dir := t.TempDir()
	override := "entries:\n  - name: Only One\n    weight: 1\n    keywords: [one]\ndomains:\n  one.example: Only One\n"
	if err := os.WriteFile(filepath.Join(dir, "default.yaml"), []byte(override), 0644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	tax, err := LoadTaxonomy(dir)
	if err != nil {
		t.Fatalf("LoadTaxonomy with override: %v", err)
	}
	if len(tax.Entries) != 1 || tax.Entries[0].Name != "Only One" {
		t.Errorf("override not applied, got %d entries", len(tax.Entries))
	}
}
