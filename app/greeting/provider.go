package greeting

import (
	"bytes"
	_ "embed"
	"fmt"
	"net/http"
	"time"

	"github.com/km-arc/go-dicontainer/framework/container"
	"github.com/km-arc/go-dicontainer/framework/manifest"
	"github.com/km-arc/go-dicontainer/framework/routing"
)

//go:embed bindings.yaml
var defaultBindings []byte

// Catalog returns the greeter definitions a bindings manifest can refer to.
func Catalog() (*manifest.Catalog, error) {
	cat := manifest.NewCatalog()
	phrases := []struct {
		name, lang string
		format     func(string) string
	}{
		{"greeter.english", "en", func(n string) string { return "Hello, " + n + "!" }},
		{"greeter.french", "fr", func(n string) string { return "Bonjour, " + n + " !" }},
		{"greeter.spanish", "es", func(n string) string { return "¡Hola, " + n + "!" }},
		{"greeter.german", "de", func(n string) string { return "Hallo, " + n + "!" }},
	}
	for _, ph := range phrases {
		err := manifest.Define(cat, ph.name, container.PerLookup, func(a container.Args) (Greeter, error) {
			return &phrasebook{lang: ph.lang, format: ph.format, clock: container.Arg[*Clock](a, 0)}, nil
		}, container.Key[*Clock]())
		if err != nil {
			return nil, err
		}
	}
	return cat, nil
}

// ServiceProvider binds the greeting application and mounts its routes.
//
// Bound contracts:
//   - *http.Request  (seeded per request)
//   - *Clock, *Stats (singletons)
//   - *Visitor, *Audit (request-scoped)
//   - Greeter#<lang> (per-lookup, from the bindings manifest)
type ServiceProvider struct {
	container.BaseProvider

	// Manifest is the path of a bindings file. Empty uses the built-in one.
	Manifest string
	// Now overrides the clock's time source.
	Now func() time.Time
}

func (p *ServiceProvider) Register(c *container.Container) error {
	if err := c.Bind(container.Key[*http.Request]()).ToSeeded(); err != nil {
		return err
	}
	if err := c.Instance(container.Key[*Clock](), NewClock(p.Now)); err != nil {
		return err
	}
	if err := container.Provide(c, container.Singleton, func(container.Args) (*Stats, error) {
		return NewStats(), nil
	}); err != nil {
		return err
	}
	if err := container.Provide(c, container.RequestScoped, func(a container.Args) (*Visitor, error) {
		return NewVisitor(container.Arg[*http.Request](a, 0)), nil
	}, container.Key[*http.Request]()); err != nil {
		return err
	}
	if err := c.Bind(container.Key[*Audit]()).AsRequestScoped().ToStruct((*Audit)(nil)); err != nil {
		return err
	}
	return p.applyManifest(c)
}

func (p *ServiceProvider) applyManifest(c *container.Container) error {
	cat, err := Catalog()
	if err != nil {
		return err
	}
	var m *manifest.Manifest
	if p.Manifest != "" {
		m, err = manifest.Load(p.Manifest)
	} else {
		m, err = manifest.Parse(bytes.NewReader(defaultBindings))
	}
	if err != nil {
		return fmt.Errorf("greeting: %w", err)
	}
	return m.Apply(c, cat)
}

func (p *ServiceProvider) Provides() []container.Contract {
	return []container.Contract{
		container.Key[*http.Request](),
		container.Key[*Clock](),
		container.Key[*Stats](),
		container.Key[*Visitor](),
		container.Key[*Audit](),
	}
}

// Boot mounts the routes.
func (p *ServiceProvider) Boot(c *container.Container) error {
	router, err := container.Make[*routing.Router](c, "")
	if err != nil {
		return err
	}
	h := &Handlers{}
	router.Get("/greet", h.Greet)
	router.Get("/greet/{lang}", h.Greet)
	router.Get("/languages", h.Languages)
	router.Get("/stats", h.Stats)
	return nil
}
