package container

import (
	"fmt"
	"reflect"
)

// Provider is a deferred handle to a contract. Lazy injection points receive
// a Provider instead of an instance, which is how legitimate circular
// collaborators are wired.
type Provider interface {
	Contract() Contract
	// Get resolves the contract in the request scope the handle was created in.
	Get() (any, error)
	// GetIn resolves the contract in s.
	GetIn(s *RequestScope) (any, error)
}

type deferred struct {
	resolver *Resolver
	contract Contract
	scope    *RequestScope
	origin   *chain
}

func (d *deferred) Contract() Contract { return d.contract }

func (d *deferred) Get() (any, error) { return d.GetIn(d.scope) }

// GetIn resolves on a fresh chain. While the originating chain is still
// building, a contract it is constructing through a struct strategy yields
// the early reference: the allocated instance, whose injected fields are set
// once its construction completes. Factory constructions have no instance until
// the factory returns, so re-entering one fails as a cycle.
func (d *deferred) GetIn(s *RequestScope) (any, error) {
	if d.origin != nil {
		if b, err := d.resolver.registry.Select(d.contract); err == nil {
			if v, ok := d.origin.early(b.Contract, s); ok {
				return v, nil
			}
		}
	}
	return d.resolver.resolveRoot(s, d.contract, d.origin)
}

func (d *deferred) String() string { return "provider(" + d.contract.String() + ")" }

// Get resolves p and asserts the result to T.
func Get[T any](p Provider) (T, error) {
	var zero T
	if p == nil {
		return zero, fmt.Errorf("container: Get[%s]: nil provider", reflect.TypeFor[T]())
	}
	v, err := p.Get()
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("container: Get[%s]: %s resolved to %T", reflect.TypeFor[T](), p.Contract(), v)
	}
	return typed, nil
}

// Lazy is a typed Provider for struct injection.
//
//	type Audit struct {
//	    Greeter container.Lazy[*Greeter] `inject:""`
//	}
type Lazy[T any] struct {
	p Provider
}

// Get resolves the deferred contract.
func (l Lazy[T]) Get() (T, error) { return Get[T](l.p) }

// Provider returns the underlying handle.
func (l Lazy[T]) Provider() Provider { return l.p }

// Bound reports whether the field was injected.
func (l Lazy[T]) Bound() bool { return l.p != nil }

func (Lazy[T]) target() reflect.Type { return reflect.TypeFor[T]() }

func (Lazy[T]) bind(p Provider) any { return Lazy[T]{p: p} }

// LazyOf wraps p for code that builds Lazy values by hand, e.g. in factories.
func LazyOf[T any](p Provider) Lazy[T] { return Lazy[T]{p: p} }
