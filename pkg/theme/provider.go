package theme

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// themesFile mirrors the on-disk YAML shape: a theme_id -> theme entry
// mapping nested under a top-level "themes" key. Entries are kept as raw
// nodes and decoded one by one, so a malformed entry can be skipped alone.
type themesFile struct {
	Themes map[string]yaml.Node `yaml:"themes"`
}

// Provider holds the immutable, process-scoped theme table. It is loaded
// once at construction and never mutated afterward.
type Provider struct {
	themes map[string]Theme
	order  []string
}

// LoadProvider reads and parses the theme table at path. A theme entry that
// fails to parse is skipped with a returned warning list rather than
// aborting the whole load; callers typically log these.
func LoadProvider(path string) (*Provider, []string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Provider{themes: map[string]Theme{}}, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("theme: read config: %w", err)
	}

	var file themesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("theme: parse config: %w", err)
	}

	themes := make(map[string]Theme, len(file.Themes))
	var order []string
	var warnings []string
	for id, node := range file.Themes {
		if id == "" {
			warnings = append(warnings, "theme: skipping entry with empty id")
			continue
		}
		var t Theme
		if err := node.Decode(&t); err != nil {
			warnings = append(warnings, fmt.Sprintf("theme: skipping malformed entry %q: %v", id, err))
			continue
		}
		if t.DisplayName == "" {
			t.DisplayName = id
		}
		t.ID = id
		themes[id] = t
		order = append(order, id)
	}

	return &Provider{themes: themes, order: order}, warnings, nil
}

// NewProvider constructs a Provider directly from an in-memory table,
// primarily for tests and programmatic configuration.
func NewProvider(themes map[string]Theme) *Provider {
	p := &Provider{themes: make(map[string]Theme, len(themes))}
	for id, t := range themes {
		t.ID = id
		p.themes[id] = t
		p.order = append(p.order, id)
	}
	return p
}

// List returns all loaded themes in load order.
func (p *Provider) List() []Theme {
	out := make([]Theme, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.themes[id])
	}
	return out
}

// Get returns the theme with the given id, if any.
func (p *Provider) Get(id string) (Theme, bool) {
	t, ok := p.themes[id]
	return t, ok
}

// InferLabel maps a chunk's facet metadata to the first matching theme's
// display name, or "" if none match. A theme's facet constraints that are
// unset act as wildcards; a set constraint requires the chunk's facet to be
// equal to it.
func InferLabel(p *Provider, domain, section, platform, role string) string {
	for _, id := range p.order {
		t := p.themes[id]
		if t.Domain != "" && t.Domain != domain {
			continue
		}
		if t.Section != "" && t.Section != section {
			continue
		}
		if t.Platform != "" && t.Platform != platform {
			continue
		}
		if t.Role != "" && t.Role != role {
			continue
		}
		return t.DisplayName
	}
	return ""
}
