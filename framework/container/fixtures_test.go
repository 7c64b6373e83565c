package container_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-dicontainer/framework/container"
)

// ── fixtures ──────────────────────────────────────────────────────────────────

type clock struct{ id int64 }

type greeter struct {
	Clock *clock
	Lang  string
}

type requestInfo struct{ id int64 }

type handler struct {
	Info    *requestInfo
	Greeter *greeter
}

type nodeA struct{ B *nodeB }
type nodeB struct{ C *nodeC }
type nodeC struct{ A *nodeA }

// audit and mailer form a legitimate cycle closed by a lazy edge.
type audit struct {
	Mailer container.Lazy[*mailer] `inject:""`
}

type mailer struct {
	Audit *audit `inject:""`
}

// ring is a struct-injected A -> B -> C -> A cycle closed lazily at C.
type ringA struct {
	B *ringB `inject:""`
}

type ringB struct {
	C *ringC `inject:""`
}

type ringC struct {
	A container.Lazy[*ringA] `inject:""`

	seen *ringA
}

// disposable records its disposal into a shared log.
type disposable struct {
	name string
	log  *disposalLog
	err  error
}

func (d *disposable) Dispose() error {
	d.log.add(d.name)
	return d.err
}

type disposalLog struct {
	mu    sync.Mutex
	names []string
}

func (l *disposalLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.names = append(l.names, name)
}

func (l *disposalLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.names...)
}

var errBoom = errors.New("boom")

// ── helpers ───────────────────────────────────────────────────────────────────

// counting returns a factory that builds a new value per call and counts calls.
func counting[T any](n *atomic.Int64, build func(id int64) T) container.FactoryFunc {
	return func(container.Args) (any, error) {
		return build(n.Add(1)), nil
	}
}

func newFrozen(t *testing.T, setup func(c *container.Container)) *container.Container {
	t.Helper()
	c := container.New()
	setup(c)
	c.Freeze()
	return c
}

func must(t *testing.T, err error) {
	t.Helper()
	require.NoError(t, err)
}
