package container

import (
	"go.uber.org/multierr"
)

// ── Static dependency graph ───────────────────────────────────────────────────

// graph is the eager dependency graph of a registry. Lazy points are not
// edges; they are exactly the edges allowed to close a cycle.
type graph struct {
	order []*Binding
	deps  map[*Binding][]*Binding
	errs  error
}

func buildGraph(r *Registry) *graph {
	g := &graph{
		order: r.Bindings(),
		deps:  make(map[*Binding][]*Binding),
	}
	for _, b := range g.order {
		for _, p := range b.InjectionPoints() {
			dep, err := r.Select(p.Contract)
			if err != nil {
				if unbound, ok := err.(UnboundContractError); ok {
					unbound.RequiredBy = b.Contract
					err = unbound
				}
				g.errs = multierr.Append(g.errs, err)
				continue
			}
			if p.Lazy {
				continue
			}
			g.deps[b] = append(g.deps[b], dep)
		}
	}
	return g
}

// sort returns bindings dependencies-first. Bindings with no ordering
// constraint keep registration order. Every distinct cycle is reported.
func (g *graph) sort() ([]*Binding, error) {
	var (
		errs     error
		visited  = make(map[*Binding]bool)
		visiting = make(map[*Binding]bool)
		stack    []*Binding
		result   = make([]*Binding, 0, len(g.order))
		reported = make(map[*Binding]bool)
	)

	var visit func(b *Binding)
	visit = func(b *Binding) {
		if visited[b] {
			return
		}
		if visiting[b] {
			if reported[b] {
				return
			}
			reported[b] = true
			var path []Contract
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i] == b {
					for _, s := range stack[i:] {
						path = append(path, s.Contract)
					}
					break
				}
			}
			errs = multierr.Append(errs, CyclicDependencyError{Path: append(path, b.Contract)})
			return
		}

		visiting[b] = true
		stack = append(stack, b)
		for _, dep := range g.deps[b] {
			visit(dep)
		}
		stack = stack[:len(stack)-1]
		visiting[b] = false
		visited[b] = true
		result = append(result, b)
	}

	for _, b := range g.order {
		visit(b)
	}
	return result, errs
}

// violations reports every singleton that reaches a request-scoped binding
// over eager edges, with the shortest path found.
func (g *graph) violations() error {
	var errs error
	for _, root := range g.order {
		if root.Scope != Singleton {
			continue
		}
		if path := g.pathToRequestScoped(root); path != nil {
			errs = multierr.Append(errs, ScopeViolationError{
				Singleton:  root.Contract,
				Dependency: path[len(path)-1],
				Path:       path,
			})
		}
	}
	return errs
}

// pathToRequestScoped runs a breadth-first search from root.
func (g *graph) pathToRequestScoped(root *Binding) []Contract {
	prev := map[*Binding]*Binding{root: nil}
	queue := []*Binding{root}
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		for _, dep := range g.deps[b] {
			if _, seen := prev[dep]; seen {
				continue
			}
			prev[dep] = b
			if dep.Scope == RequestScoped {
				var path []Contract
				for n := dep; n != nil; n = prev[n] {
					path = append([]Contract{n.Contract}, path...)
				}
				return path
			}
			queue = append(queue, dep)
		}
	}
	return nil
}

// ── Container entry points ────────────────────────────────────────────────────

// Validate checks the whole graph without constructing anything:
// unbound or ambiguous injection points, eager cycles and singletons that
// reach request-scoped bindings. All problems are returned together; use
// multierr.Errors to inspect them.
func (c *Container) Validate() error {
	g := buildGraph(c.registry)
	_, cycles := g.sort()
	return multierr.Combine(g.errs, cycles, g.violations())
}

// Graph returns the bindings in construction order, dependencies first.
func (c *Container) Graph() ([]*Binding, error) {
	g := buildGraph(c.registry)
	order, cycles := g.sort()
	if err := multierr.Combine(g.errs, cycles); err != nil {
		return nil, err
	}
	return order, nil
}
