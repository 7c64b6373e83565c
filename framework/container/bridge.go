package container

import (
	"context"
	"fmt"
	"reflect"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Bridge is the only surface the dispatch layer touches:
//
//	scope := bridge.BeginRequest(ctx)
//	defer bridge.EndRequest(scope)
//	handler, err := bridge.ResolveForRequest(scope, container.Key[*Handler]())
type Bridge struct {
	resolver *Resolver
	scopes   *ScopeManager
	log      *zap.Logger
}

// NewBridge creates a bridge over a resolver and its scope manager.
func NewBridge(resolver *Resolver, scopes *ScopeManager, opts ...Option) *Bridge {
	o := newOptions(opts)
	return &Bridge{resolver: resolver, scopes: scopes, log: o.logger}
}

// BeginRequest opens a request scope. The caller owns the handle and must
// call EndRequest exactly once, on every exit path.
func (b *Bridge) BeginRequest(ctx context.Context) *RequestScope {
	return b.scopes.OpenRequestScope(ctx)
}

// ResolveForRequest resolves c within the request scope s.
func (b *Bridge) ResolveForRequest(s *RequestScope, c Contract) (any, error) {
	if !s.Active() {
		return nil, NoActiveScopeError{Contract: c}
	}
	return b.resolver.Resolve(s, c)
}

// ResolveAllForRequest resolves every binding of type t within s.
func (b *Bridge) ResolveAllForRequest(s *RequestScope, t reflect.Type) ([]any, error) {
	if !s.Active() {
		return nil, NoActiveScopeError{Contract: Of(t)}
	}
	return b.resolver.ResolveAll(s, t)
}

// Seed supplies the value of a request-scoped contract for s, typically
// request data only the dispatch layer has. The contract must be bound.
//
//	bridge.Seed(scope, container.Key[*http.Request](), r)
func (b *Bridge) Seed(s *RequestScope, c Contract, v any) error {
	binding, err := b.resolver.registry.Lookup(c)
	if err != nil {
		return err
	}
	if err := checkAssignable(c, v); err != nil {
		return err
	}
	return b.scopes.Seed(s, binding, v)
}

// EndRequest closes the scope and disposes its instances.
func (b *Bridge) EndRequest(s *RequestScope) error {
	err := b.scopes.CloseRequestScope(s)
	if err != nil {
		b.log.Warn("request scope closed with errors", zap.String("scope_id", s.ID()), zap.Error(err))
	}
	return err
}

// Do runs fn inside a fresh request scope and always ends it, including when
// fn panics. Errors from fn and from disposal are combined.
func (b *Bridge) Do(ctx context.Context, fn func(s *RequestScope) error) (err error) {
	s := b.BeginRequest(ctx)
	defer func() {
		rec := recover()
		err = multierr.Append(err, b.EndRequest(s))
		if rec != nil {
			panic(rec)
		}
	}()
	return fn(s)
}

// ── Typed helpers ─────────────────────────────────────────────────────────────

// Resolve resolves T (optionally qualified) within s.
//
//	handler, err := container.Resolve[*UserHandler](bridge, scope, "")
func Resolve[T any](b *Bridge, s *RequestScope, qualifier string) (T, error) {
	var zero T
	c := Named[T](qualifier)
	v, err := b.ResolveForRequest(s, c)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("container: Resolve[%s]: %s resolved to %T", c.Type, c, v)
	}
	return typed, nil
}

// MustResolve is like Resolve but panics on failure.
func MustResolve[T any](b *Bridge, s *RequestScope, qualifier string) T {
	v, err := Resolve[T](b, s, qualifier)
	if err != nil {
		panic(err)
	}
	return v
}

// ResolveAll resolves every binding of T within s, in registration order.
func ResolveAll[T any](b *Bridge, s *RequestScope) ([]T, error) {
	raw, err := b.ResolveAllForRequest(s, reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raw))
	for _, v := range raw {
		typed, ok := v.(T)
		if !ok {
			return nil, fmt.Errorf("container: ResolveAll[%s]: got %T", reflect.TypeFor[T](), v)
		}
		out = append(out, typed)
	}
	return out, nil
}
