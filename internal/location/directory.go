// Package location holds the static province, city and branch table used for in-store pickup.
package location

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locations.yaml
var defaultTable []byte

type Province struct {
	Name   string `yaml:"name" json:"name"`
	Cities []City `yaml:"cities" json:"cities"`
}

type City struct {
	Name     string   `yaml:"name" json:"name"`
	Branches []string `yaml:"branches" json:"branches"`
}

type table struct {
	Provinces []Province `yaml:"provinces"`
}

// Directory answers pickup membership questions. Lookups ignore case and surrounding whitespace.
type Directory struct {
	provinces []Province
	index     map[string]map[string]map[string]string
}

// Default returns the embedded directory.
func Default() (*Directory, error) {
	return Parse(defaultTable)
}

// Load reads a directory from path, or the embedded table when path is empty.
func Load(path string) (*Directory, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read locations file: %w", err)
	}
	return Parse(data)
}

// Parse builds a directory from YAML.
func Parse(data []byte) (*Directory, error) {
	var t table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse locations: %w", err)
	}
	if len(t.Provinces) == 0 {
		return nil, fmt.Errorf("failed to parse locations: no provinces defined")
	}

	d := &Directory{
		provinces: t.Provinces,
		index:     make(map[string]map[string]map[string]string, len(t.Provinces)),
	}
	for _, p := range t.Provinces {
		cities := make(map[string]map[string]string, len(p.Cities))
		for _, c := range p.Cities {
			branches := make(map[string]string, len(c.Branches))
			for _, b := range c.Branches {
				branches[key(b)] = b
			}
			cities[key(c.Name)] = branches
		}
		d.index[key(p.Name)] = cities
	}
	return d, nil
}

// Contains reports whether branch belongs to city and city belongs to province.
func (d *Directory) Contains(province, city, branch string) bool {
	_, ok := d.Canonical(province, city, branch)
	return ok
}

// Canonical returns the stored spelling of a valid pickup triple.
func (d *Directory) Canonical(province, city, branch string) ([3]string, bool) {
	cities, ok := d.index[key(province)]
	if !ok {
		return [3]string{}, false
	}
	branches, ok := cities[key(city)]
	if !ok {
		return [3]string{}, false
	}
	canonicalBranch, ok := branches[key(branch)]
	if !ok {
		return [3]string{}, false
	}

	for _, p := range d.provinces {
		if key(p.Name) != key(province) {
			continue
		}
		for _, c := range p.Cities {
			if key(c.Name) == key(city) {
				return [3]string{p.Name, c.Name, canonicalBranch}, true
			}
		}
	}
	return [3]string{}, false
}

// Provinces returns the full table for clients building pickup selectors.
func (d *Directory) Provinces() []Province {
	return d.provinces
}

func key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
