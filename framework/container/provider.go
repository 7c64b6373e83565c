package container

import (
	"fmt"

	"go.uber.org/multierr"
)

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups related bindings.
//
// Register runs during configuration and must only declare bindings. Boot runs
// after every provider has registered and the registry is frozen, so it may
// resolve singletons.
//
//	type ClockProvider struct{ container.BaseProvider }
//
//	func (p *ClockProvider) Register(c *container.Container) error {
//	    return container.Provide(c, container.Singleton, func(container.Args) (*Clock, error) {
//	        return NewClock(), nil
//	    })
//	}
type ServiceProvider interface {
	// Register binds services into the container.
	Register(c *Container) error

	// Boot is called once, after all providers are registered.
	Boot(c *Container) error

	// Provides lists the contracts Register is expected to bind.
	// Return nil to skip the check.
	Provides() []Contract
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable struct with no-op Boot and Provides.
//
//	type MyProvider struct{ container.BaseProvider }
//	func (p *MyProvider) Register(c *container.Container) error { ... }
type BaseProvider struct{}

func (p *BaseProvider) Boot(_ *Container) error { return nil }
func (p *BaseProvider) Provides() []Contract    { return nil }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry runs the configuration phase: Register every provider,
// then Boot, which freezes the registry, optionally validates the graph and
// boots providers in registration order.
type ProviderRegistry struct {
	app        *Container
	providers  []ServiceProvider
	registered map[ServiceProvider]bool
	booted     bool
	validate   bool
}

// NewProviderRegistry creates a registry bound to app.
func NewProviderRegistry(app *Container) *ProviderRegistry {
	return &ProviderRegistry{
		app:        app,
		registered: make(map[ServiceProvider]bool),
	}
}

// ValidateOnBoot makes Boot fail when Container.Validate reports problems.
func (r *ProviderRegistry) ValidateOnBoot(on bool) *ProviderRegistry {
	r.validate = on
	return r
}

// Register adds a provider and calls its Register method. Registering the
// same provider twice is a no-op.
func (r *ProviderRegistry) Register(provider ServiceProvider) error {
	if r.registered[provider] {
		return nil
	}
	if r.booted {
		return fmt.Errorf("container: provider %T registered after boot: %w", provider, ErrRegistryFrozen)
	}
	r.registered[provider] = true

	if err := provider.Register(r.app); err != nil {
		return fmt.Errorf("container: provider %T: %w", provider, err)
	}
	for _, c := range provider.Provides() {
		if !r.app.Bound(c) {
			return fmt.Errorf("container: provider %T declares %s but did not bind it", provider, c)
		}
	}
	r.providers = append(r.providers, provider)
	return nil
}

// Boot freezes the container and calls Boot on every provider. It is
// idempotent.
func (r *ProviderRegistry) Boot() error {
	if r.booted {
		return nil
	}
	r.booted = true
	r.app.Freeze()

	if r.validate {
		if err := r.app.Validate(); err != nil {
			return err
		}
	}

	var errs error
	for _, provider := range r.providers {
		if err := provider.Boot(r.app); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("container: boot %T: %w", provider, err))
		}
	}
	return errs
}

// Booted returns true if Boot has been called.
func (r *ProviderRegistry) Booted() bool { return r.booted }

// Providers returns the registered providers in order.
func (r *ProviderRegistry) Providers() []ServiceProvider { return r.providers }
