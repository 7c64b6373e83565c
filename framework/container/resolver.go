package container

import (
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// ── Resolution chain ──────────────────────────────────────────────────────────

type frame struct {
	contract Contract
	scope    Scope
	early    any
}

// chain is the resolution stack of one root resolution. A chain started by a
// Provider while its originating chain is still building inherits that
// chain's frames for cycle detection.
type chain struct {
	scope  *RequestScope
	parent *chain

	mu     sync.Mutex
	frames []frame
	done   bool
}

func newChain(s *RequestScope, parent *chain) *chain {
	return &chain{scope: s, parent: parent}
}

func (ch *chain) push(b *Binding, early any) {
	ch.mu.Lock()
	ch.frames = append(ch.frames, frame{contract: b.Contract, scope: b.Scope, early: early})
	ch.mu.Unlock()
}

func (ch *chain) pop() {
	ch.mu.Lock()
	ch.frames = ch.frames[:len(ch.frames)-1]
	ch.mu.Unlock()
}

func (ch *chain) finish() {
	ch.mu.Lock()
	ch.done = true
	ch.frames = nil
	ch.mu.Unlock()
}

// path returns the contracts under construction, outermost first, including
// those of still-active ancestors.
func (ch *chain) path() []Contract {
	var out []Contract
	if ch.parent != nil {
		out = ch.parent.path()
	}
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.done {
		return out
	}
	for _, f := range ch.frames {
		out = append(out, f.contract)
	}
	return out
}

// actor returns the outermost chain still building on behalf of ch. Chains
// sharing an actor belong to one flow of control.
func (ch *chain) actor() *chain {
	a := ch
	for a.parent != nil {
		a.parent.mu.Lock()
		done := a.parent.done
		a.parent.mu.Unlock()
		if done {
			break
		}
		a = a.parent
	}
	return a
}

// early returns the allocated but not yet populated instance of c when c is
// under construction on ch or an active ancestor and that instance is the
// one s would observe.
func (ch *chain) early(c Contract, s *RequestScope) (any, bool) {
	ch.mu.Lock()
	if !ch.done {
		for _, f := range ch.frames {
			if f.contract != c || f.early == nil {
				continue
			}
			switch {
			case f.scope == Singleton, f.scope == RequestScoped && s == ch.scope:
				ch.mu.Unlock()
				return f.early, true
			}
		}
	}
	ch.mu.Unlock()
	if ch.parent != nil {
		return ch.parent.early(c, s)
	}
	return nil, false
}

// cycle returns the cycle closed by c, or nil.
func (ch *chain) cycle(c Contract) []Contract {
	p := ch.path()
	for i, seen := range p {
		if seen == c {
			cycle := make([]Contract, 0, len(p)-i+1)
			cycle = append(cycle, p[i:]...)
			return append(cycle, c)
		}
	}
	return nil
}

// singletonOwner returns the outermost singleton on this chain's own frames
// and the path from it to the top of the stack.
func (ch *chain) singletonOwner() (Contract, []Contract, bool) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	for i, f := range ch.frames {
		if f.scope == Singleton {
			path := make([]Contract, 0, len(ch.frames)-i)
			for _, g := range ch.frames[i:] {
				path = append(path, g.contract)
			}
			return f.contract, path, true
		}
	}
	return Contract{}, nil, false
}

// ── Resolver ──────────────────────────────────────────────────────────────────

// Resolver walks dependency chains, detects cycles and drives construction
// through the ScopeManager.
type Resolver struct {
	registry *Registry
	scopes   *ScopeManager
	log      *zap.Logger
	metrics  *Metrics

	mu             sync.RWMutex
	afterResolving []func(Contract, any)
}

// NewResolver creates a resolver over registry and scopes.
func NewResolver(registry *Registry, scopes *ScopeManager, opts ...Option) *Resolver {
	o := newOptions(opts)
	return &Resolver{
		registry: registry,
		scopes:   scopes,
		log:      o.logger,
		metrics:  o.metrics,
	}
}

// AfterResolving registers a callback fired after each construction.
func (r *Resolver) AfterResolving(cb func(c Contract, instance any)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.afterResolving = append(r.afterResolving, cb)
}

// Resolve produces a fully constructed instance for c. s may be nil when the
// chain touches no request-scoped binding.
func (r *Resolver) Resolve(s *RequestScope, c Contract) (any, error) {
	return r.resolveRoot(s, c, nil)
}

// ResolveAll resolves every binding of type t, in registration order.
func (r *Resolver) ResolveAll(s *RequestScope, t reflect.Type) ([]any, error) {
	candidates := r.registry.LookupCandidates(t)
	out := make([]any, 0, len(candidates))
	for _, b := range candidates {
		v, err := r.Resolve(s, b.Contract)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *Resolver) resolveRoot(s *RequestScope, c Contract, parent *chain) (any, error) {
	ch := newChain(s, parent)
	v, b, err := r.resolve(ch, c)
	ch.finish()

	scope := PerLookup
	if b != nil {
		scope = b.Scope
	}
	r.metrics.resolved(scope, err)
	if err != nil {
		r.log.Debug("resolution failed", zap.Stringer("contract", c), zap.Error(err))
	}
	return v, err
}

func (r *Resolver) resolve(ch *chain, c Contract) (any, *Binding, error) {
	b, err := r.registry.Select(c)
	if err != nil {
		return nil, nil, err
	}

	if cycle := ch.cycle(b.Contract); cycle != nil {
		return nil, b, CyclicDependencyError{Path: cycle}
	}

	if b.Scope == RequestScoped {
		if owner, path, ok := ch.singletonOwner(); ok {
			return nil, b, ScopeViolationError{
				Singleton:  owner,
				Dependency: b.Contract,
				Path:       append(path, b.Contract),
			}
		}
		if ch.scope == nil {
			return nil, b, NoActiveScopeError{Contract: b.Contract}
		}
	}

	v, err := r.scopes.getOrCreate(b, ch.scope, ch, func() (any, error) {
		return r.construct(ch, b)
	})
	return v, b, err
}

// construct builds one instance: push, resolve injection points, run the
// strategy and post-construct hook, pop. Caching is left to the ScopeManager.
// Struct strategies allocate first and keep the instance on the frame as its
// early reference.
func (r *Resolver) construct(ch *chain, b *Binding) (any, error) {
	var instance any
	alloc, allocates := b.Strategy.(allocator)
	if allocates {
		instance = alloc.allocate()
	}
	ch.push(b, instance)
	defer ch.pop()

	points := b.InjectionPoints()
	args := make(Args, len(points))
	for i, p := range points {
		if p.Lazy {
			args[i] = r.provider(ch, p.Contract)
			continue
		}
		v, _, err := r.resolve(ch, p.Contract)
		if err != nil {
			if unbound, ok := err.(UnboundContractError); ok && unbound.RequiredBy.IsZero() {
				unbound.RequiredBy = b.Contract
				return nil, unbound
			}
			return nil, err
		}
		args[i] = v
	}

	var err error
	if allocates {
		err = alloc.populate(instance, args)
	} else {
		instance, err = b.Strategy.Construct(args)
	}
	if err != nil {
		return nil, ConstructionFailedError{Contract: b.Contract, Phase: PhaseConstruct, Err: err}
	}
	if b.PostConstruct != nil {
		if err := safeCall(func() error { return b.PostConstruct(instance) }); err != nil {
			return nil, ConstructionFailedError{Contract: b.Contract, Phase: PhasePostConstruct, Err: err}
		}
	}

	r.mu.RLock()
	callbacks := r.afterResolving
	r.mu.RUnlock()
	for _, cb := range callbacks {
		cb(b.Contract, instance)
	}
	return instance, nil
}

// provider creates the deferred handle for a lazy injection point. Handles
// created while a singleton is under construction are detached from the
// request scope so they cannot leak it.
func (r *Resolver) provider(ch *chain, c Contract) *deferred {
	s := ch.scope
	if _, _, ok := ch.singletonOwner(); ok {
		s = nil
	}
	return &deferred{resolver: r, contract: c, scope: s, origin: ch}
}
