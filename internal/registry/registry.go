// Package registry holds the versioned feature-capability data that maps
// filter and gradient primitives to simplified categories with per-strategy
// support levels. Instances are immutable after load and injected where
// needed; there is no package-level cache.
package registry

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed capabilities.yaml
var embedded []byte

// Support levels a category can declare for a strategy tag.
const (
	SupportFull        = "full"
	SupportApproximate = "approximate"
	SupportRasterized  = "rasterized"
	SupportNone        = "none"
)

// Category describes one capability group.
type Category struct {
	Description string            `yaml:"description"`
	Primitives  []string          `yaml:"primitives"`
	Support     map[string]string `yaml:"support"`
	Note        string            `yaml:"note"`
}

// Registry is the loaded capability table plus a reverse index from
// primitive tag to category name.
type Registry struct {
	Version    int                 `yaml:"version"`
	Categories map[string]Category `yaml:"categories"`

	byPrimitive map[string]string
}

// Load parses the embedded capability data.
func Load() (*Registry, error) {
	return NewFromBytes(embedded)
}

// NewFromBytes builds a registry from raw YAML, used by Load and by tests
// that want their own instances.
func NewFromBytes(data []byte) (*Registry, error) {
	var r Registry
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("registry: parse capabilities: %w", err)
	}
	if len(r.Categories) == 0 {
		return nil, fmt.Errorf("registry: no categories defined")
	}
	r.byPrimitive = make(map[string]string)
	for name, cat := range r.Categories {
		for _, p := range cat.Primitives {
			r.byPrimitive[p] = name
		}
	}
	return &r, nil
}

// Lookup returns the named category. A miss reports the valid category
// names so a caller can surface an actionable message.
func (r *Registry) Lookup(category string) (Category, error) {
	cat, ok := r.Categories[category]
	if !ok {
		return Category{}, fmt.Errorf("registry: unknown category %q (valid: %s)",
			category, strings.Join(r.CategoryNames(), ", "))
	}
	return cat, nil
}

// PrimitiveCategory maps a primitive tag (feGaussianBlur, linearGradient)
// to its category name.
func (r *Registry) PrimitiveCategory(primitive string) (string, bool) {
	name, ok := r.byPrimitive[primitive]
	return name, ok
}

// SupportFor reports the category's support level for a strategy tag,
// defaulting to none when the category does not mention the strategy.
func (c Category) SupportFor(strategyTag string) string {
	if s, ok := c.Support[strategyTag]; ok {
		return s
	}
	return SupportNone
}

// CategoryNames lists the known categories sorted for stable output.
func (r *Registry) CategoryNames() []string {
	names := make([]string, 0, len(r.Categories))
	for name := range r.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
