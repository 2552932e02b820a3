package source

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// Descriptor identifies one catalog source and where to reach it.
type Descriptor struct {
	// ID is the stable identifier used in tokens, metrics, and exclusion
	// flags.
	ID string `yaml:"id" json:"id"`

	// Name is a human-readable label for logs.
	Name string `yaml:"name" json:"name"`

	// BaseURL is the root of the source's holdings API.
	BaseURL string `yaml:"base_url" json:"base_url"`
}

// Validate checks that the descriptor is usable.
func (d Descriptor) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("source descriptor missing id")
	}
	if d.BaseURL == "" {
		return fmt.Errorf("source %q: missing base_url", d.ID)
	}
	u, err := url.Parse(d.BaseURL)
	if err != nil {
		return fmt.Errorf("source %q: invalid base_url: %w", d.ID, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("source %q: base_url must be absolute, got %q", d.ID, d.BaseURL)
	}
	return nil
}

// Registry is the static set of known catalog sources. Order is the order
// sources were registered in; it decides tie-breaks during the merge and is
// stable across requests.
type Registry struct {
	sources []Descriptor
	byID    map[string]Descriptor
}

// NewRegistry builds a registry from descriptors, validating each and
// rejecting duplicate ids.
func NewRegistry(descriptors []Descriptor) (*Registry, error) {
	if len(descriptors) == 0 {
		return nil, fmt.Errorf("at least one source is required")
	}

	r := &Registry{
		sources: make([]Descriptor, 0, len(descriptors)),
		byID:    make(map[string]Descriptor, len(descriptors)),
	}
	for _, d := range descriptors {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, exists := r.byID[d.ID]; exists {
			return nil, fmt.Errorf("duplicate source id %q", d.ID)
		}
		r.sources = append(r.sources, d)
		r.byID[d.ID] = d
	}
	return r, nil
}

// registryFile is the YAML shape of a sources config file.
type registryFile struct {
	Sources []Descriptor `yaml:"sources"`
}

// LoadRegistry reads a registry from a YAML file:
//
//	sources:
//	  - id: central
//	    name: Central Library
//	    base_url: https://central.example.org/api
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources config: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse sources config: %w", err)
	}

	return NewRegistry(file.Sources)
}

// Active returns the descriptors that participate in a request, in registry
// order, with excluded ids dropped.
func (r *Registry) Active(exclude map[string]bool) []Descriptor {
	active := make([]Descriptor, 0, len(r.sources))
	for _, d := range r.sources {
		if exclude[d.ID] {
			continue
		}
		active = append(active, d)
	}
	return active
}

// Lookup returns the descriptor for an id.
func (r *Registry) Lookup(id string) (Descriptor, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// IDs returns all source ids in registry order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.sources))
	for i, d := range r.sources {
		ids[i] = d.ID
	}
	return ids
}
