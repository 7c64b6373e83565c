package container

import (
	"fmt"

	"go.uber.org/zap"
)

// ── Container ─────────────────────────────────────────────────────────────────

// Container wires the four parts of the engine together:
//
//   - Registry: contract → binding, read-only after Freeze
//   - ScopeManager: singleton cache and request scope caches
//   - Resolver: graph walk, cycle detection, scope rules
//   - Bridge: the per-request entry point for the dispatch layer
//
// Configure it single-threaded (Bind/Register/Instance), call Freeze (or
// ProviderRegistry.Boot), then serve requests through Bridge.
type Container struct {
	registry *Registry
	scopes   *ScopeManager
	resolver *Resolver
	bridge   *Bridge
	log      *zap.Logger
}

// New creates an empty container.
func New(opts ...Option) *Container {
	o := newOptions(opts)
	registry := NewRegistry()
	scopes := NewScopeManager(opts...)
	resolver := NewResolver(registry, scopes, opts...)
	return &Container{
		registry: registry,
		scopes:   scopes,
		resolver: resolver,
		bridge:   NewBridge(resolver, scopes, opts...),
		log:      o.logger,
	}
}

// ── Registration ──────────────────────────────────────────────────────────────

// Register adds a fully described binding.
func (c *Container) Register(b Binding) error {
	if err := c.registry.Register(b); err != nil {
		return err
	}
	c.log.Debug("binding registered",
		zap.Stringer("contract", b.Contract),
		zap.Stringer("scope", b.Scope),
		zap.Int("injection_points", len(b.InjectionPoints())),
	)
	return nil
}

// Instance registers a pre-built value as a singleton.
//
//	c.Instance(container.Key[*config.Config](), cfg)
func (c *Container) Instance(contract Contract, v any) error {
	return c.Bind(contract).ToInstance(v)
}

// Singleton registers a singleton factory.
func (c *Container) Singleton(contract Contract, fn FactoryFunc, needs ...Contract) error {
	return c.Bind(contract).In(Singleton).Needs(needs...).ToFactory(fn)
}

// Scoped registers a request-scoped factory.
func (c *Container) Scoped(contract Contract, fn FactoryFunc, needs ...Contract) error {
	return c.Bind(contract).In(RequestScoped).Needs(needs...).ToFactory(fn)
}

// Transient registers a per-lookup factory.
func (c *Container) Transient(contract Contract, fn FactoryFunc, needs ...Contract) error {
	return c.Bind(contract).In(PerLookup).Needs(needs...).ToFactory(fn)
}

// AfterResolving registers a callback fired after every construction.
func (c *Container) AfterResolving(cb func(contract Contract, instance any)) {
	c.resolver.AfterResolving(cb)
}

// Freeze ends the configuration phase.
func (c *Container) Freeze() {
	c.registry.Freeze()
	c.log.Info("container configured", zap.Int("bindings", len(c.registry.Bindings())))
}

// ── Accessors ─────────────────────────────────────────────────────────────────

// Bridge returns the per-request entry point.
func (c *Container) Bridge() *Bridge { return c.bridge }

// Registry returns the binding registry.
func (c *Container) Registry() *Registry { return c.registry }

// Scopes returns the scope manager.
func (c *Container) Scopes() *ScopeManager { return c.scopes }

// Resolver returns the graph resolver.
func (c *Container) Resolver() *Resolver { return c.resolver }

// Bound reports whether a binding exists for the exact contract.
func (c *Container) Bound(contract Contract) bool {
	_, err := c.registry.Lookup(contract)
	return err == nil
}

// Bindings returns all bindings in registration order.
func (c *Container) Bindings() []*Binding { return c.registry.Bindings() }

// Shutdown disposes singletons. Open request scopes are left to their owners
// and only logged.
func (c *Container) Shutdown() error {
	if open := c.scopes.OpenScopes(); open > 0 {
		c.log.Warn("shutting down with open request scopes", zap.Int("open", open))
	}
	return c.scopes.Shutdown()
}

// Make resolves T (optionally qualified) outside any request scope. Only
// singleton and per-lookup bindings can be made this way.
//
//	cfg, err := container.Make[*config.Config](app, "")
func Make[T any](c *Container, qualifier string) (T, error) {
	var zero T
	contract := Named[T](qualifier)
	v, err := c.resolver.Resolve(nil, contract)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("container: Make[%s]: %s resolved to %T", contract.Type, contract, v)
	}
	return typed, nil
}
