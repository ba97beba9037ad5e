// Package content provides the static site content: the manifesto, the
// orbiting navigation items and the pages they open.
package content

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed content.yaml
var embedded []byte

var (
	// ErrPageNotFound is returned when no page matches a lookup.
	ErrPageNotFound = errors.New("page not found")
	// ErrAmbiguous is returned when a prefix matches more than one page.
	ErrAmbiguous = errors.New("ambiguous page name")
)

// NavItem is a navigation bubble orbiting the central sphere.
type NavItem struct {
	Label       string  `yaml:"label" json:"label"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
	OrbitRadius float64 `yaml:"orbit_radius" json:"orbit_radius"`
	OrbitSpeed  float64 `yaml:"orbit_speed" json:"orbit_speed"`
	YOffset     float64 `yaml:"y_offset" json:"y_offset"`
	Scale       float64 `yaml:"scale" json:"scale"`
}

// Page is the content shown when a navigation item is opened.
type Page struct {
	Name        string   `yaml:"name" json:"name"`
	Title       string   `yaml:"title" json:"title"`
	Subtitle    string   `yaml:"subtitle" json:"subtitle"`
	Description string   `yaml:"description" json:"description"`
	Images      []string `yaml:"images" json:"images"`
}

// Catalog is the full content table.
type Catalog struct {
	Manifesto  string    `yaml:"manifesto" json:"manifesto"`
	Navigation []NavItem `yaml:"navigation" json:"navigation"`
	Pages      []Page    `yaml:"pages" json:"pages"`
}

// Vec3 is a point in scene space.
type Vec3 struct {
	X, Y, Z float64
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Load returns the embedded catalog. It is parsed once.
func Load() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Parse(embedded)
	})
	return defaultCatalog, defaultErr
}

// Parse decodes a catalog from YAML.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse content: %w", err)
	}
	for i, p := range c.Pages {
		if p.Name == "" {
			return nil, fmt.Errorf("page %d has no name", i)
		}
	}
	return &c, nil
}

// PageNames returns page names in catalog order.
func (c *Catalog) PageNames() []string {
	names := make([]string, 0, len(c.Pages))
	for _, p := range c.Pages {
		names = append(names, p.Name)
	}
	return names
}

// Page finds a page by name. An exact (case-insensitive) match wins;
// otherwise a unique prefix is accepted.
func (c *Catalog) Page(name string) (*Page, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrPageNotFound
	}

	for i := range c.Pages {
		if strings.EqualFold(c.Pages[i].Name, name) {
			return &c.Pages[i], nil
		}
	}

	var match *Page
	lower := strings.ToLower(name)
	for i := range c.Pages {
		if strings.HasPrefix(strings.ToLower(c.Pages[i].Name), lower) {
			if match != nil {
				return nil, fmt.Errorf("%w: %q", ErrAmbiguous, name)
			}
			match = &c.Pages[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %q", ErrPageNotFound, name)
	}
	return match, nil
}

// Search returns pages whose title, subtitle or description contain term.
// Case-insensitive substring match.
func (c *Catalog) Search(term string) []Page {
	if term == "" {
		return c.Pages
	}

	term = strings.ToLower(term)
	var result []Page
	for _, p := range c.Pages {
		if strings.Contains(strings.ToLower(p.Title), term) ||
			strings.Contains(strings.ToLower(p.Subtitle), term) ||
			strings.Contains(strings.ToLower(p.Description), term) {
			result = append(result, p)
		}
	}
	return result
}

// bobFrequency and bobAmplitude shape the vertical drift of every item.
const (
	bobFrequency = 0.3
	bobAmplitude = 0.5
)

// OrbitPosition returns where the item at index of count sits at elapsed
// seconds t. Items start evenly spaced around the orbit and bob vertically
// out of phase with each other.
func (n NavItem) OrbitPosition(t float64, index, count int) Vec3 {
	angle := t * n.OrbitSpeed
	if count > 0 {
		angle += float64(index) * 2 * math.Pi / float64(count)
	}
	return Vec3{
		X: math.Cos(angle) * n.OrbitRadius,
		Y: n.YOffset + math.Sin(t*bobFrequency+float64(index))*bobAmplitude,
		Z: math.Sin(angle) * n.OrbitRadius,
	}
}

// OrbitPositions returns every navigation item's position at elapsed
// seconds t, in navigation order.
func (c *Catalog) OrbitPositions(t float64) []Vec3 {
	out := make([]Vec3, len(c.Navigation))
	for i, n := range c.Navigation {
		out[i] = n.OrbitPosition(t, i, len(c.Navigation))
	}
	return out
}

// NavItem finds a navigation item by its label, case-insensitively.
func (c *Catalog) NavItem(label string) (*NavItem, bool) {
	for i := range c.Navigation {
		if strings.EqualFold(c.Navigation[i].Label, label) {
			return &c.Navigation[i], true
		}
	}
	return nil, false
}
