package container

import (
	"fmt"
	"io"
	"reflect"
	"strings"
)

// ── Binding ───────────────────────────────────────────────────────────────────

// Binding is the registry's answer to "how is this contract satisfied".
// Bindings are immutable once registered.
type Binding struct {
	Contract Contract
	Scope    Scope
	Strategy Strategy

	// PostConstruct runs after the strategy built the instance, before caching.
	PostConstruct func(instance any) error

	// Dispose runs when the owning scope closes. When nil, instances that
	// implement Disposer or io.Closer are disposed through those.
	Dispose func(instance any) error

	id  string // cache and flight key, assigned at registration
	seq int    // registration order
}

// InjectionPoints returns the dependency slots of the binding's strategy.
func (b *Binding) InjectionPoints() []InjectionPoint {
	if b.Strategy == nil {
		return nil
	}
	return b.Strategy.InjectionPoints()
}

func (b *Binding) String() string {
	return b.Contract.String() + " [" + b.Scope.String() + "]"
}

// dispose invokes the disposal hook for one cached instance. Pre-built
// instances belong to the caller and are only disposed through an explicit
// hook.
func (b *Binding) dispose(instance any) error {
	switch {
	case b.Dispose != nil:
		return b.Dispose(instance)
	case b.external():
		return nil
	default:
		switch d := instance.(type) {
		case Disposer:
			return d.Dispose()
		case io.Closer:
			return d.Close()
		}
	}
	return nil
}

func (b *Binding) external() bool {
	_, ok := b.Strategy.(instanceStrategy)
	return ok
}

// Disposer is implemented by instances that release resources at scope end.
type Disposer interface {
	Dispose() error
}

// InjectionPoint is one dependency slot of a construction strategy.
// Lazy points receive a Provider and are exempt from the cycle check.
type InjectionPoint struct {
	Contract Contract
	Lazy     bool
}

func (p InjectionPoint) String() string {
	if p.Lazy {
		return "lazy " + p.Contract.String()
	}
	return p.Contract.String()
}

// ── Strategies ────────────────────────────────────────────────────────────────

// Args holds resolved injection point values in declaration order.
// Lazy points hold a Provider.
type Args []any

// Arg returns args[i] typed as T. It panics on a mismatch; the panic surfaces
// as a ConstructionFailedError for the binding being built.
func Arg[T any](args Args, i int) T {
	if i < 0 || i >= len(args) {
		panic(fmt.Sprintf("container: Arg[%s]: index %d out of range (%d args)", reflect.TypeFor[T](), i, len(args)))
	}
	if args[i] == nil {
		var zero T
		return zero
	}
	v, ok := args[i].(T)
	if !ok {
		panic(fmt.Sprintf("container: Arg[%s]: argument %d is %T", reflect.TypeFor[T](), i, args[i]))
	}
	return v
}

// Strategy builds an instance from its resolved injection points.
type Strategy interface {
	InjectionPoints() []InjectionPoint
	Construct(args Args) (any, error)
}

// FactoryFunc builds an instance from resolved dependencies.
type FactoryFunc func(args Args) (any, error)

// FactoryStrategy constructs instances through a factory function.
type FactoryStrategy struct {
	Points []InjectionPoint
	Fn     FactoryFunc
}

func (f FactoryStrategy) InjectionPoints() []InjectionPoint { return f.Points }

func (f FactoryStrategy) Construct(args Args) (any, error) { return f.Fn(args) }

// instanceStrategy returns a pre-built value.
type instanceStrategy struct{ value any }

func (s instanceStrategy) InjectionPoints() []InjectionPoint { return nil }

func (s instanceStrategy) Construct(Args) (any, error) { return s.value, nil }

// seededStrategy marks request-scoped bindings whose instance is supplied by
// the scope owner through Bridge.Seed.
type seededStrategy struct{}

func (seededStrategy) InjectionPoints() []InjectionPoint { return nil }

func (seededStrategy) Construct(Args) (any, error) { return nil, errNotSeeded }

// StructStrategy constructs a *T for a concrete struct type T and assigns its
// injection points to fields.
type StructStrategy struct {
	typ    reflect.Type
	fields []int
	points []InjectionPoint
}

// lazyField is implemented by Lazy[T] so struct tags can declare lazy points.
type lazyField interface {
	target() reflect.Type
	bind(p Provider) any
}

// NewStructStrategy reads `inject` tags on the fields of struct type t.
//
//	type Handler struct {
//	    Repo   *UserRepo       `inject:""`
//	    Mailer Mailer          `inject:"smtp"`
//	    Audit  container.Lazy[*Audit] `inject:""`
//	}
//
// Tag reading happens once, here, at configuration time.
func NewStructStrategy(t reflect.Type) (*StructStrategy, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("container: struct strategy needs a struct type, got %s", t)
	}
	s := &StructStrategy{typ: t}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag, ok := f.Tag.Lookup("inject")
		if !ok {
			continue
		}
		if !f.IsExported() {
			return nil, fmt.Errorf("container: %s.%s is tagged for injection but unexported", t, f.Name)
		}
		qualifier, _, _ := strings.Cut(tag, ",")
		point := InjectionPoint{Contract: Contract{Type: f.Type, Qualifier: qualifier}}
		if lf, ok := reflect.Zero(f.Type).Interface().(lazyField); ok {
			point = InjectionPoint{Contract: Contract{Type: lf.target(), Qualifier: qualifier}, Lazy: true}
		}
		s.fields = append(s.fields, i)
		s.points = append(s.points, point)
	}
	return s, nil
}

func (s *StructStrategy) InjectionPoints() []InjectionPoint { return s.points }

func (s *StructStrategy) Construct(args Args) (any, error) {
	instance := s.allocate()
	if err := s.populate(instance, args); err != nil {
		return nil, err
	}
	return instance, nil
}

// allocator is implemented by strategies whose instance exists before its
// injection points are resolved. The resolver exposes that early reference
// to deferred handles invoked while the instance is being populated.
type allocator interface {
	allocate() any
	populate(instance any, args Args) error
}

func (s *StructStrategy) allocate() any { return reflect.New(s.typ).Interface() }

func (s *StructStrategy) populate(instance any, args Args) error {
	elem := reflect.ValueOf(instance).Elem()
	for i, idx := range s.fields {
		field := elem.Field(idx)
		if args[i] == nil {
			continue
		}
		if s.points[i].Lazy {
			p, ok := args[i].(Provider)
			if !ok {
				return fmt.Errorf("field %s: lazy argument is %T", s.typ.Field(idx).Name, args[i])
			}
			lf := reflect.Zero(field.Type()).Interface().(lazyField)
			field.Set(reflect.ValueOf(lf.bind(p)))
			continue
		}
		v := reflect.ValueOf(args[i])
		if !v.Type().AssignableTo(field.Type()) {
			return fmt.Errorf("field %s: cannot assign %s to %s", s.typ.Field(idx).Name, v.Type(), field.Type())
		}
		field.Set(v)
	}
	return nil
}
