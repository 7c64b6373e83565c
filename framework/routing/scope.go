package routing

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/km-arc/go-dicontainer/framework/container"
)

type scopeKey struct{}

type requestScope struct {
	bridge *container.Bridge
	scope  *container.RequestScope
}

// RequestScope opens a container request scope for every request and ends it
// when the handler returns, including on panic. The *http.Request is seeded
// into the scope when the container binds it with ToSeeded.
//
//	router.Middleware(routing.RequestScope(app.Bridge(), log))
func RequestScope(bridge *container.Bridge, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := bridge.BeginRequest(r.Context())
			defer func() {
				// Disposal failures are logged by the bridge.
				_ = bridge.EndRequest(s)
			}()

			ctx := context.WithValue(s.Context(), scopeKey{}, requestScope{bridge: bridge, scope: s})
			r = r.WithContext(ctx)

			err := bridge.Seed(s, container.Key[*http.Request](), r)
			var unbound container.UnboundContractError
			if err != nil && !errors.As(err, &unbound) {
				log.Error("seeding request scope", zap.String("scope_id", s.ID()), zap.Error(err))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ScopeFrom returns the request scope opened by RequestScope.
func ScopeFrom(ctx context.Context) (*container.RequestScope, *container.Bridge, bool) {
	rs, ok := ctx.Value(scopeKey{}).(requestScope)
	if !ok {
		return nil, nil, false
	}
	return rs.scope, rs.bridge, true
}

// Resolve resolves T (optionally qualified) in the request's scope.
//
//	greeter, err := routing.Resolve[app.Greeter](r, lang)
func Resolve[T any](r *http.Request, qualifier string) (T, error) {
	s, bridge, ok := ScopeFrom(r.Context())
	if !ok {
		var zero T
		return zero, fmt.Errorf("routing: %w", container.NoActiveScopeError{Contract: container.Named[T](qualifier)})
	}
	return container.Resolve[T](bridge, s, qualifier)
}
