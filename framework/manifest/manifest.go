package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/km-arc/go-dicontainer/framework/container"
)

// Manifest selects catalog definitions and binds them.
//
//	bindings:
//	  - definition: greeter.english
//	    qualifier: en
//	  - definition: greeter.french
//	    qualifier: fr
//	    scope: request
//	    inject:
//	      0: utc          # qualifier for the first injection point
//	  - definition: greeter.debug
//	    disabled: true
type Manifest struct {
	Bindings []Entry `yaml:"bindings"`
}

// Entry is one binding in a manifest.
type Entry struct {
	Definition string         `yaml:"definition"`
	Qualifier  string         `yaml:"qualifier,omitempty"`
	Scope      string         `yaml:"scope,omitempty"`
	Inject     map[int]string `yaml:"inject,omitempty"`
	Disabled   bool           `yaml:"disabled,omitempty"`
}

// Parse decodes a YAML manifest. Unknown fields are rejected.
func Parse(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return &m, nil
		}
		return nil, fmt.Errorf("manifest: parsing YAML: %w", err)
	}
	for i, e := range m.Bindings {
		if e.Definition == "" {
			return nil, fmt.Errorf("manifest: binding %d: missing required field: definition", i)
		}
	}
	return &m, nil
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Apply registers every enabled entry on c. All entries are attempted;
// failures are returned together.
func (m *Manifest) Apply(c *container.Container, cat *Catalog) error {
	var errs error
	for i, e := range m.Bindings {
		if e.Disabled {
			continue
		}
		if err := apply(c, cat, e); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("manifest: binding %d (%s): %w", i, e.Definition, err))
		}
	}
	return errs
}

func apply(c *container.Container, cat *Catalog, e Entry) error {
	def, ok := cat.Lookup(e.Definition)
	if !ok {
		return fmt.Errorf("unknown definition %q", e.Definition)
	}

	scope := def.Scope
	if e.Scope != "" {
		s, err := container.ParseScope(e.Scope)
		if err != nil {
			return err
		}
		scope = s
	}

	points := make([]container.InjectionPoint, len(def.Needs))
	copy(points, def.Needs)
	for idx, qualifier := range e.Inject {
		if idx < 0 || idx >= len(points) {
			return fmt.Errorf("inject index %d out of range (%d injection points)", idx, len(points))
		}
		points[idx].Contract = points[idx].Contract.Named(qualifier)
	}

	return c.Register(container.Binding{
		Contract: def.Contract.Named(e.Qualifier),
		Scope:    scope,
		Strategy: container.FactoryStrategy{Points: points, Fn: def.Factory},
		Dispose:  def.Dispose,
	})
}
