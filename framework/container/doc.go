// Package container is a dependency injection engine with three scopes and
// a request-scope bridge for HTTP dispatch.
//
// # Overview
//
// A contract is a Go type plus an optional qualifier. Bindings say how a
// contract is built (factory, tagged struct or pre-built instance), which
// scope owns the result, and which other contracts it needs.
//
//	Singleton      one instance per container, built at most once even under
//	               concurrent first use
//	RequestScoped  one instance per open request scope, disposed when the
//	               scope closes, dependents first
//	PerLookup      a fresh instance on every resolution
//
// # Container Lifecycle
//
//  1. Create: c := container.New(container.WithLogger(log))
//  2. Register bindings directly or through providers
//  3. Boot: registry.Boot() freezes the registry (optionally validating it)
//  4. Serve requests through c.Bridge()
//  5. c.Shutdown() disposes singletons
//
// # Bindings
//
//	// Singleton factory
//	container.Provide(c, container.Singleton, func(container.Args) (*Clock, error) {
//	    return NewClock(), nil
//	})
//
//	// Request-scoped, qualified, with a dependency
//	c.Bind(container.Key[Greeter]()).
//	    Named("fr").
//	    In(container.RequestScoped).
//	    Needs(container.Key[*Clock]()).
//	    ToFactory(func(a container.Args) (any, error) {
//	        return &French{Clock: container.Arg[*Clock](a, 0)}, nil
//	    })
//
//	// Struct injection through field tags
//	c.Bind(container.Key[*Handler]()).ToStruct((*Handler)(nil))
//
//	// Pre-built value
//	c.Instance(container.Key[*config.Config](), cfg)
//
// # Qualifiers
//
// A qualified request matches only a binding with the same qualifier. An
// unqualified request takes the unqualified binding if there is one, the
// single binding of the type if there is exactly one, and otherwise fails
// with AmbiguousBindingError.
//
// # Cycles and lazy edges
//
// An eager cycle fails with CyclicDependencyError carrying the path, e.g.
// A -> B -> C -> A. Declare one edge lazy (NeedsLazy, or a Lazy[T] field) to
// break it: the dependent receives a Provider and resolves it later. Called
// while A is still being built, the Provider of a struct-bound A returns the
// instance under construction; a factory-bound A still fails as a cycle.
// Two goroutines first-resolving opposite ends of an eager singleton cycle
// fail the same way instead of waiting on each other.
//
// # Request scopes
//
//	scope := bridge.BeginRequest(r.Context())
//	defer bridge.EndRequest(scope)
//	h, err := container.Resolve[*Handler](bridge, scope, "")
//
// A singleton may not depend eagerly on a request-scoped contract
// (ScopeViolationError); it may hold a Provider instead.
package container
