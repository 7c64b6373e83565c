package container

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrRegistryFrozen is returned by Register once configuration has completed.
	ErrRegistryFrozen = errors.New("container: registry is frozen, bindings are read-only")

	// ErrNilStrategy is returned when a binding has no construction strategy.
	ErrNilStrategy = errors.New("container: binding has no construction strategy")

	// ErrInvalidContract is returned when a contract has no type.
	ErrInvalidContract = errors.New("container: contract has no type")

	errNotSeeded = errors.New("value was not seeded into the request scope")
)

// DuplicateBindingError is returned when a primary binding already exists for
// the exact (type, qualifier) pair.
type DuplicateBindingError struct{ Contract Contract }

func (e DuplicateBindingError) Error() string {
	return "container: duplicate binding for " + e.Contract.String()
}

// UnboundContractError is returned when no binding satisfies a contract.
type UnboundContractError struct {
	Contract Contract
	// RequiredBy is set when the missing contract is an injection point of another binding.
	RequiredBy Contract
}

func (e UnboundContractError) Error() string {
	msg := "container: no binding registered for " + e.Contract.String()
	if !e.RequiredBy.IsZero() {
		msg += " (required by " + e.RequiredBy.String() + ")"
	}
	return msg
}

// AmbiguousBindingError is returned when an unqualified request matches several
// qualified bindings.
type AmbiguousBindingError struct {
	Contract   Contract
	Qualifiers []string
}

func (e AmbiguousBindingError) Error() string {
	quoted := make([]string, len(e.Qualifiers))
	for i, q := range e.Qualifiers {
		quoted[i] = strconv.Quote(q)
	}
	return "container: ambiguous binding for " + e.Contract.String() +
		", candidates qualified as [" + strings.Join(quoted, ", ") + "]"
}

// CyclicDependencyError carries the resolution path from the first occurrence
// of the repeated contract back to itself.
type CyclicDependencyError struct{ Path []Contract }

func (e CyclicDependencyError) Error() string {
	return "container: cyclic dependency " + formatPath(e.Path)
}

// ScopeViolationError is returned when a singleton reaches a request-scoped
// binding through eager edges.
type ScopeViolationError struct {
	Singleton  Contract
	Dependency Contract
	Path       []Contract
}

func (e ScopeViolationError) Error() string {
	return "container: singleton " + e.Singleton.String() +
		" cannot depend on request-scoped " + e.Dependency.String() +
		" (" + formatPath(e.Path) + ")"
}

// NoActiveScopeError is returned when a request-scoped binding is resolved
// without an open request scope.
type NoActiveScopeError struct{ Contract Contract }

func (e NoActiveScopeError) Error() string {
	if e.Contract.IsZero() {
		return "container: no active request scope"
	}
	return "container: no active request scope to resolve " + e.Contract.String()
}

// InvalidScopeHandleError is returned when closing a handle that is not open.
type InvalidScopeHandleError struct{ ID string }

func (e InvalidScopeHandleError) Error() string {
	return "container: request scope " + strconv.Quote(e.ID) + " is not open"
}

// Phases reported by ConstructionFailedError.
const (
	PhaseConstruct     = "construct"
	PhasePostConstruct = "post-construct"
	PhaseDispose       = "dispose"
)

// ConstructionFailedError wraps a failure raised by a construction strategy,
// a post-construction hook or a disposal hook.
type ConstructionFailedError struct {
	Contract Contract
	Phase    string
	Err      error
}

func (e ConstructionFailedError) Error() string {
	return "container: " + e.Phase + " " + e.Contract.String() + ": " + e.Err.Error()
}

func (e ConstructionFailedError) Unwrap() error { return e.Err }
