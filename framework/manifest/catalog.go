package manifest

import (
	"fmt"
	"sort"

	"github.com/km-arc/go-dicontainer/framework/container"
)

// Definition is a named construction recipe the manifest can bind.
// The manifest supplies qualifier and scope; the definition supplies the type,
// the injection points and the factory.
type Definition struct {
	Contract container.Contract // qualifier ignored
	Scope    container.Scope    // used when the manifest entry names none
	Needs    []container.InjectionPoint
	Factory  container.FactoryFunc
	Dispose  func(instance any) error
}

// Catalog holds the definitions manifests may reference.
type Catalog struct {
	defs map[string]Definition
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{defs: make(map[string]Definition)}
}

// Add registers a definition under name.
func (c *Catalog) Add(name string, d Definition) error {
	if name == "" {
		return fmt.Errorf("manifest: definition name is empty")
	}
	if d.Contract.IsZero() {
		return fmt.Errorf("manifest: definition %q: %w", name, container.ErrInvalidContract)
	}
	if d.Factory == nil {
		return fmt.Errorf("manifest: definition %q: %w", name, container.ErrNilStrategy)
	}
	if _, exists := c.defs[name]; exists {
		return fmt.Errorf("manifest: definition %q already exists", name)
	}
	c.defs[name] = d
	return nil
}

// Lookup returns the definition registered under name.
func (c *Catalog) Lookup(name string) (Definition, bool) {
	d, ok := c.defs[name]
	return d, ok
}

// Names returns the definition names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.defs))
	for n := range c.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Define adds a typed definition for T.
//
//	manifest.Define(cat, "greeter.french", container.PerLookup,
//	    func(a container.Args) (Greeter, error) { return NewFrench(container.Arg[*Clock](a, 0)), nil },
//	    container.Key[*Clock]())
func Define[T any](c *Catalog, name string, scope container.Scope, fn func(args container.Args) (T, error), needs ...container.Contract) error {
	points := make([]container.InjectionPoint, len(needs))
	for i, n := range needs {
		points[i] = container.InjectionPoint{Contract: n}
	}
	return c.Add(name, Definition{
		Contract: container.Key[T](),
		Scope:    scope,
		Needs:    points,
		Factory:  func(args container.Args) (any, error) { return fn(args) },
	})
}
