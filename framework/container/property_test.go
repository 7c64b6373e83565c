package container_test

import (
	"context"
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/km-arc/go-dicontainer/framework/container"
)

// TestDisposalOrder_Property builds a random DAG of request-scoped disposables,
// resolves a random subset and checks that disposal is the exact reverse of
// construction and that every built instance is disposed once.
func TestDisposalOrder_Property(t *testing.T) {
	rapid.Check(t, func(r *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(r, "nodes")
		log := &disposalLog{}
		built := &disposalLog{}

		c := container.New()
		for i := range n {
			name := fmt.Sprintf("n%d", i)
			var needs []container.Contract
			for j := range i {
				if rapid.Bool().Draw(r, fmt.Sprintf("edge_%d_%d", i, j)) {
					needs = append(needs, container.Named[*disposable](fmt.Sprintf("n%d", j)))
				}
			}
			err := c.Bind(container.Named[*disposable](name)).AsRequestScoped().Needs(needs...).ToFactory(
				func(container.Args) (any, error) {
					built.add(name)
					return &disposable{name: name, log: log}, nil
				})
			require.NoError(r, err)
		}
		c.Freeze()
		bridge := c.Bridge()

		s := bridge.BeginRequest(context.Background())
		roots := rapid.SliceOfN(rapid.IntRange(0, n-1), 1, n).Draw(r, "roots")
		for _, root := range roots {
			_, err := container.Resolve[*disposable](bridge, s, fmt.Sprintf("n%d", root))
			require.NoError(r, err)
		}
		require.NoError(r, bridge.EndRequest(s))

		constructed := built.list()
		disposed := log.list()
		slices.Reverse(disposed)
		require.Equal(r, constructed, disposed)

		seen := map[string]bool{}
		for _, name := range constructed {
			require.False(r, seen[name], "%s built twice in one scope", name)
			seen[name] = true
		}
	})
}

// TestPerLookup_Property checks that per-lookup dependencies are rebuilt for
// every dependent while singletons are shared.
func TestPerLookup_Property(t *testing.T) {
	rapid.Check(t, func(r *rapid.T) {
		lookups := rapid.IntRange(1, 20).Draw(r, "lookups")
		var clocks, greeters int

		c := container.New()
		require.NoError(r, c.Singleton(container.Key[*clock](), func(container.Args) (any, error) {
			clocks++
			return &clock{}, nil
		}))
		require.NoError(r, c.Transient(container.Key[*greeter](), func(a container.Args) (any, error) {
			greeters++
			return &greeter{Clock: container.Arg[*clock](a, 0)}, nil
		}, container.Key[*clock]()))
		c.Freeze()

		var first *greeter
		for range lookups {
			v, err := c.Resolver().Resolve(nil, container.Key[*greeter]())
			require.NoError(r, err)
			g := v.(*greeter)
			if first == nil {
				first = g
			}
			require.Same(r, first.Clock, g.Clock)
		}
		require.Equal(r, 1, clocks)
		require.Equal(r, lookups, greeters)
	})
}
