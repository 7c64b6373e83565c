package container

import (
	"fmt"
	"reflect"
	"strings"
)

// ── Contract ──────────────────────────────────────────────────────────────────

// Contract identifies what is requested: a type plus an optional qualifier.
//
// Contracts are comparable and used directly as map keys.
//
//	container.Key[*UserRepository]()          // unqualified
//	container.Named[Greeter]("fr")            // qualified
type Contract struct {
	Type      reflect.Type
	Qualifier string
}

// Key returns the unqualified contract for T.
func Key[T any]() Contract {
	return Contract{Type: reflect.TypeFor[T]()}
}

// Named returns the contract for T with the given qualifier.
func Named[T any](qualifier string) Contract {
	return Contract{Type: reflect.TypeFor[T](), Qualifier: qualifier}
}

// Of returns the unqualified contract for a reflect.Type.
func Of(t reflect.Type) Contract {
	return Contract{Type: t}
}

// Named returns a copy of c carrying qualifier.
func (c Contract) Named(qualifier string) Contract {
	c.Qualifier = qualifier
	return c
}

// Unqualified returns a copy of c without its qualifier.
func (c Contract) Unqualified() Contract {
	c.Qualifier = ""
	return c
}

// IsQualified reports whether c names a qualifier.
func (c Contract) IsQualified() bool { return c.Qualifier != "" }

// IsZero reports whether c has no type.
func (c Contract) IsZero() bool { return c.Type == nil }

// String renders the contract as "pkg.Type" or "pkg.Type#qualifier".
func (c Contract) String() string {
	if c.Type == nil {
		return "<nil>"
	}
	name := c.Type.String()
	if c.Qualifier == "" {
		return name
	}
	return name + "#" + c.Qualifier
}

// formatPath renders a resolution path as "A -> B -> C -> A".
func formatPath(path []Contract) string {
	parts := make([]string, len(path))
	for i, c := range path {
		parts[i] = c.String()
	}
	return strings.Join(parts, " -> ")
}

// ── Scope ─────────────────────────────────────────────────────────────────────

// Scope is the lifetime policy of a binding.
type Scope int

const (
	// Singleton instances are built at most once per process.
	Singleton Scope = iota
	// RequestScoped instances are built at most once per open request scope.
	RequestScoped
	// PerLookup instances are built on every resolution and never cached.
	PerLookup
)

// String returns the manifest spelling of the scope.
func (s Scope) String() string {
	switch s {
	case Singleton:
		return "singleton"
	case RequestScoped:
		return "request"
	case PerLookup:
		return "per-lookup"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// ParseScope accepts the spellings produced by String plus a few aliases
// ("scoped", "transient", "prototype").
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "singleton", "":
		return Singleton, nil
	case "request", "request-scoped", "scoped":
		return RequestScoped, nil
	case "per-lookup", "perlookup", "transient", "prototype":
		return PerLookup, nil
	default:
		return 0, fmt.Errorf("container: unknown scope %q", s)
	}
}

// UnmarshalText lets Scope be decoded from YAML and env values.
func (s *Scope) UnmarshalText(text []byte) error {
	v, err := ParseScope(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (s Scope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
