package container

import (
	"reflect"
	"strconv"
	"sync"
	"sync/atomic"
)

// Registry holds the declarative map from contract to binding.
//
// Registration is a single-threaded configuration step. Freeze publishes the
// bindings; from then on the registry is read-only and lookups take no locks.
type Registry struct {
	mu     sync.Mutex
	frozen atomic.Bool

	// exact (type, qualifier) → binding
	bindings map[Contract]*Binding

	// type → bindings across qualifiers, in registration order
	byType map[reflect.Type][]*Binding

	order []*Binding
}

// NewRegistry creates an empty, writable registry.
func NewRegistry() *Registry {
	return &Registry{
		bindings: make(map[Contract]*Binding),
		byType:   make(map[reflect.Type][]*Binding),
	}
}

// Register adds a binding. A second binding for the exact (type, qualifier)
// pair fails with DuplicateBindingError.
func (r *Registry) Register(b Binding) error {
	if b.Contract.IsZero() {
		return ErrInvalidContract
	}
	if b.Strategy == nil {
		return ErrNilStrategy
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen.Load() {
		return ErrRegistryFrozen
	}
	if _, exists := r.bindings[b.Contract]; exists {
		return DuplicateBindingError{Contract: b.Contract}
	}

	stored := b
	stored.seq = len(r.order)
	stored.id = strconv.Itoa(stored.seq)

	r.bindings[stored.Contract] = &stored
	r.byType[stored.Contract.Type] = append(r.byType[stored.Contract.Type], &stored)
	r.order = append(r.order, &stored)
	return nil
}

// Freeze ends the configuration phase. It is idempotent.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen.Store(true)
}

// Frozen reports whether configuration has completed.
func (r *Registry) Frozen() bool { return r.frozen.Load() }

// Lookup returns the binding registered for the exact contract.
func (r *Registry) Lookup(c Contract) (*Binding, error) {
	unlock := r.read()
	defer unlock()

	b, ok := r.bindings[c]
	if !ok {
		return nil, UnboundContractError{Contract: c}
	}
	return b, nil
}

// LookupCandidates returns every binding for t across qualifiers.
func (r *Registry) LookupCandidates(t reflect.Type) []*Binding {
	unlock := r.read()
	defer unlock()

	found := r.byType[t]
	out := make([]*Binding, len(found))
	copy(out, found)
	return out
}

// Select applies qualifier resolution:
//   - a qualified request matches only the identical qualifier;
//   - an unqualified request takes the unqualified binding when present,
//     else the single candidate, else fails as ambiguous.
func (r *Registry) Select(c Contract) (*Binding, error) {
	if c.IsZero() {
		return nil, ErrInvalidContract
	}
	if c.IsQualified() {
		return r.Lookup(c)
	}

	unlock := r.read()
	defer unlock()

	if b, ok := r.bindings[c]; ok {
		return b, nil
	}
	candidates := r.byType[c.Type]
	switch len(candidates) {
	case 0:
		return nil, UnboundContractError{Contract: c}
	case 1:
		return candidates[0], nil
	default:
		qualifiers := make([]string, len(candidates))
		for i, b := range candidates {
			qualifiers[i] = b.Contract.Qualifier
		}
		return nil, AmbiguousBindingError{Contract: c, Qualifiers: qualifiers}
	}
}

// Bindings returns all bindings in registration order.
func (r *Registry) Bindings() []*Binding {
	unlock := r.read()
	defer unlock()

	out := make([]*Binding, len(r.order))
	copy(out, r.order)
	return out
}

// read takes the configuration lock only while the registry is still writable.
func (r *Registry) read() func() {
	if r.frozen.Load() {
		return func() {}
	}
	r.mu.Lock()
	return r.mu.Unlock
}
