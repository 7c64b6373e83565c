package routing_test

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-dicontainer/framework/container"
	"github.com/km-arc/go-dicontainer/framework/routing"
)

type visit struct {
	path     string
	disposed *atomic.Int64
}

func (v *visit) Dispose() error {
	v.disposed.Add(1)
	return nil
}

func newScopedRouter(t *testing.T, disposed *atomic.Int64) (*routing.Router, *container.Container) {
	t.Helper()
	c := container.New()
	require.NoError(t, c.Bind(container.Key[*http.Request]()).ToSeeded())
	require.NoError(t, c.Scoped(container.Key[*visit](), func(a container.Args) (any, error) {
		return &visit{path: container.Arg[*http.Request](a, 0).URL.Path, disposed: disposed}, nil
	}, container.Key[*http.Request]()))
	c.Freeze()

	r := routing.New(nil)
	r.Middleware(routing.RequestScope(c.Bridge(), nil))
	return r, c
}

func TestRequestScope_ResolvesPerRequestAndDisposes(t *testing.T) {
	var disposed atomic.Int64
	r, c := newScopedRouter(t, &disposed)

	r.Get("/visit", func(w http.ResponseWriter, req *http.Request) {
		first, err := routing.Resolve[*visit](req, "")
		require.NoError(t, err)
		second, err := routing.Resolve[*visit](req, "")
		require.NoError(t, err)
		assert.Same(t, first, second)
		_, _ = w.Write([]byte(first.path))
	})

	for range 3 {
		rr := do(t, r, http.MethodGet, "/visit")
		assert.Equal(t, "/visit", rr.Body.String())
	}

	assert.Equal(t, int64(3), disposed.Load())
	assert.Zero(t, c.Scopes().OpenScopes())
}

func TestRequestScope_EndsScopeOnPanic(t *testing.T) {
	var disposed atomic.Int64
	r, c := newScopedRouter(t, &disposed)
	r.Get("/panic", func(w http.ResponseWriter, req *http.Request) {
		_, err := routing.Resolve[*visit](req, "")
		require.NoError(t, err)
		panic("handler failed")
	})

	rr := do(t, r, http.MethodGet, "/panic")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, int64(1), disposed.Load())
	assert.Zero(t, c.Scopes().OpenScopes())
}

func TestScopeFrom_HandleIsRequestBound(t *testing.T) {
	var disposed atomic.Int64
	r, _ := newScopedRouter(t, &disposed)

	var captured *http.Request
	r.Get("/capture", func(w http.ResponseWriter, req *http.Request) {
		s, bridge, ok := routing.ScopeFrom(req.Context())
		require.True(t, ok)
		assert.NotNil(t, bridge)
		assert.True(t, s.Active())
		captured = req
	})
	do(t, r, http.MethodGet, "/capture")

	s, _, ok := routing.ScopeFrom(captured.Context())
	require.True(t, ok)
	assert.False(t, s.Active())

	_, err := routing.Resolve[*visit](captured, "")
	var noScope container.NoActiveScopeError
	assert.ErrorAs(t, err, &noScope)
}

func TestResolve_WithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, err := routing.Resolve[*visit](req, "")

	var noScope container.NoActiveScopeError
	require.ErrorAs(t, err, &noScope)
	assert.Equal(t, container.Key[*visit](), noScope.Contract)
}
