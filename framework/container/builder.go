package container

import (
	"fmt"
	"reflect"
)

// BindingBuilder implements the fluent registration API.
//
//	c.Bind(container.Key[Greeter]()).
//	    Named("fr").
//	    In(container.PerLookup).
//	    Needs(container.Key[*Clock]()).
//	    ToFactory(func(a container.Args) (any, error) {
//	        return &FrenchGreeter{Clock: container.Arg[*Clock](a, 0)}, nil
//	    })
//
// Nothing is registered until one of the To* methods is called; that call
// returns any registration error.
type BindingBuilder struct {
	container *Container
	binding   Binding
	points    []InjectionPoint
}

// Bind starts a binding for contract. The default scope is PerLookup.
func (c *Container) Bind(contract Contract) *BindingBuilder {
	return &BindingBuilder{
		container: c,
		binding:   Binding{Contract: contract, Scope: PerLookup},
	}
}

// Named sets the qualifier.
func (b *BindingBuilder) Named(qualifier string) *BindingBuilder {
	b.binding.Contract.Qualifier = qualifier
	return b
}

// In sets the scope.
func (b *BindingBuilder) In(s Scope) *BindingBuilder {
	b.binding.Scope = s
	return b
}

// AsSingleton is shorthand for In(Singleton).
func (b *BindingBuilder) AsSingleton() *BindingBuilder { return b.In(Singleton) }

// AsRequestScoped is shorthand for In(RequestScoped).
func (b *BindingBuilder) AsRequestScoped() *BindingBuilder { return b.In(RequestScoped) }

// Needs appends eager injection points, in factory argument order.
func (b *BindingBuilder) Needs(contracts ...Contract) *BindingBuilder {
	for _, c := range contracts {
		b.points = append(b.points, InjectionPoint{Contract: c})
	}
	return b
}

// NeedsLazy appends lazy injection points; the factory receives a Provider.
func (b *BindingBuilder) NeedsLazy(contracts ...Contract) *BindingBuilder {
	for _, c := range contracts {
		b.points = append(b.points, InjectionPoint{Contract: c, Lazy: true})
	}
	return b
}

// OnConstruct sets the post-construction hook.
func (b *BindingBuilder) OnConstruct(fn func(instance any) error) *BindingBuilder {
	b.binding.PostConstruct = fn
	return b
}

// OnDispose sets the disposal hook.
func (b *BindingBuilder) OnDispose(fn func(instance any) error) *BindingBuilder {
	b.binding.Dispose = fn
	return b
}

// ToFactory registers the binding with a factory strategy.
func (b *BindingBuilder) ToFactory(fn FactoryFunc) error {
	if fn == nil {
		return ErrNilStrategy
	}
	b.binding.Strategy = FactoryStrategy{Points: b.points, Fn: fn}
	return b.container.Register(b.binding)
}

// ToStruct registers the binding with a struct strategy for the concrete
// struct type of sample, e.g. (*UserHandler)(nil). Injection points come from
// `inject` field tags.
func (b *BindingBuilder) ToStruct(sample any) error {
	if len(b.points) > 0 {
		return fmt.Errorf("container: %s: struct bindings declare dependencies with field tags, not Needs", b.binding.Contract)
	}
	t := reflect.TypeOf(sample)
	if t == nil {
		return fmt.Errorf("container: %s: nil struct sample", b.binding.Contract)
	}
	s, err := NewStructStrategy(t)
	if err != nil {
		return err
	}
	if ptr := reflect.PointerTo(s.typ); b.binding.Contract.Type != nil && !ptr.AssignableTo(b.binding.Contract.Type) {
		return fmt.Errorf("container: %s is not assignable to %s", ptr, b.binding.Contract.Type)
	}
	b.binding.Strategy = s
	return b.container.Register(b.binding)
}

// ToInstance registers a pre-built value. The scope is forced to Singleton.
// The container disposes it only when an OnDispose hook is set.
func (b *BindingBuilder) ToInstance(v any) error {
	if err := checkAssignable(b.binding.Contract, v); err != nil {
		return err
	}
	b.binding.Scope = Singleton
	b.binding.Strategy = instanceStrategy{value: v}
	return b.container.Register(b.binding)
}

// ToSeeded registers a request-scoped binding whose value is supplied per
// request with Bridge.Seed, e.g. the *http.Request being served.
func (b *BindingBuilder) ToSeeded() error {
	if len(b.points) > 0 {
		return fmt.Errorf("container: %s: seeded bindings have no dependencies", b.binding.Contract)
	}
	b.binding.Scope = RequestScoped
	b.binding.Strategy = seededStrategy{}
	return b.container.Register(b.binding)
}

func checkAssignable(c Contract, v any) error {
	if c.Type == nil {
		return ErrInvalidContract
	}
	if v == nil {
		return fmt.Errorf("container: %s: nil instance", c)
	}
	if t := reflect.TypeOf(v); !t.AssignableTo(c.Type) {
		return fmt.Errorf("container: %s is not assignable to %s", t, c)
	}
	return nil
}

// Provide registers a typed factory for T.
//
//	container.Provide(c, container.Singleton, func(a container.Args) (*Clock, error) {
//	    return NewClock(), nil
//	})
func Provide[T any](c *Container, s Scope, fn func(args Args) (T, error), needs ...Contract) error {
	return c.Bind(Key[T]()).In(s).Needs(needs...).ToFactory(func(args Args) (any, error) {
		return fn(args)
	})
}

// ProvideNamed is Provide with a qualifier.
func ProvideNamed[T any](c *Container, qualifier string, s Scope, fn func(args Args) (T, error), needs ...Contract) error {
	return c.Bind(Named[T](qualifier)).In(s).Needs(needs...).ToFactory(func(args Args) (any, error) {
		return fn(args)
	})
}
