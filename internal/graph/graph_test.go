package graph_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	cascadeerrors "cascade.dev/cascade/internal/errors"
	"cascade.dev/cascade/internal/graph"
)

func isMain(name string) bool { return name == "main" }

// newStack builds main <- a <- b <- c plus main <- x
func newStack(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New(isMain)
	require.NoError(t, g.Track("a", "main"))
	require.NoError(t, g.Track("b", "a"))
	require.NoError(t, g.Track("c", "b"))
	require.NoError(t, g.Track("x", "main"))
	return g
}

func TestTrack(t *testing.T) {
	t.Run("creates pending node without fork point", func(t *testing.T) {
		g := graph.New(isMain)
		require.NoError(t, g.Track("feature", "main"))

		node, ok := g.Get("feature")
		require.True(t, ok)
		require.Equal(t, "main", node.Parent)
		require.Empty(t, node.ForkPoint)
		require.Equal(t, graph.StatusPendingCascade, node.Status)
		require.Equal(t, []string{"feature"}, g.Children("main"))
	})

	t.Run("rejects self parent", func(t *testing.T) {
		g := graph.New(isMain)
		err := g.Track("feature", "feature")
		require.ErrorIs(t, err, cascadeerrors.ErrCyclicDependency)
		require.Equal(t, 0, g.Len())
	})

	t.Run("rejects unknown parent", func(t *testing.T) {
		g := graph.New(isMain)
		err := g.Track("feature", "develop")
		require.ErrorIs(t, err, cascadeerrors.ErrUnknownParent)
		require.False(t, g.Has("feature"))
	})

	t.Run("rejects already tracked", func(t *testing.T) {
		g := newStack(t)
		err := g.Track("b", "main")
		require.ErrorIs(t, err, cascadeerrors.ErrBranchAlreadyTracked)
		node, _ := g.Get("b")
		require.Equal(t, "a", node.Parent)
	})

	t.Run("rejects stacking a tracked branch on its descendant", func(t *testing.T) {
		g := newStack(t)
		before := g.Document()

		err := g.Track("a", "c")
		require.ErrorIs(t, err, cascadeerrors.ErrCyclicDependency)
		require.Equal(t, before, g.Document())
	})

	t.Run("rejects trunk as node", func(t *testing.T) {
		g := graph.New(isMain)
		require.ErrorIs(t, g.Track("main", "main"), cascadeerrors.ErrTrunkOperation)
	})
}

func TestReparent(t *testing.T) {
	t.Run("moves node and resets fork point", func(t *testing.T) {
		g := newStack(t)
		require.NoError(t, g.Advance("c", "c1", "b1"))

		require.NoError(t, g.Reparent("c", "x"))

		node, _ := g.Get("c")
		require.Equal(t, "x", node.Parent)
		require.Empty(t, node.ForkPoint)
		require.Equal(t, graph.StatusPendingCascade, node.Status)
		require.Empty(t, g.Children("b"))
		require.Equal(t, []string{"c"}, g.Children("x"))
	})

	t.Run("rejects moving onto a descendant", func(t *testing.T) {
		g := newStack(t)
		err := g.Reparent("a", "c")
		require.ErrorIs(t, err, cascadeerrors.ErrCyclicDependency)

		var cyc *cascadeerrors.CyclicDependencyError
		require.True(t, errors.As(err, &cyc))
		require.Equal(t, "a", cyc.BranchName)

		node, _ := g.Get("a")
		require.Equal(t, "main", node.Parent)
		require.Equal(t, []string{"b"}, g.Children("a"))
	})

	t.Run("rejects unknown branch", func(t *testing.T) {
		g := newStack(t)
		require.ErrorIs(t, g.Reparent("nope", "main"), cascadeerrors.ErrBranchNotFound)
	})
}

func TestDescendants(t *testing.T) {
	t.Run("preorder with sorted siblings", func(t *testing.T) {
		g := graph.New(isMain)
		require.NoError(t, g.Track("a", "main"))
		require.NoError(t, g.Track("c", "a"))
		require.NoError(t, g.Track("b", "a"))
		require.NoError(t, g.Track("b2", "b"))
		require.NoError(t, g.Track("c2", "c"))

		require.Equal(t, []string{"b", "b2", "c", "c2"}, g.Descendants("a"))
		require.Equal(t, []string{"a", "b", "b2", "c", "c2"}, g.Descendants("main"))
	})

	t.Run("parents precede children for every node", func(t *testing.T) {
		g := newStack(t)
		order := g.Descendants("main")
		pos := make(map[string]int)
		for i, name := range order {
			pos[name] = i
		}
		for _, name := range g.Names() {
			node, _ := g.Get(name)
			if g.Has(node.Parent) {
				require.Less(t, pos[node.Parent], pos[name])
			}
		}
	})

	t.Run("leaf has none", func(t *testing.T) {
		g := newStack(t)
		require.Empty(t, g.Descendants("c"))
	})
}

func TestAccessors(t *testing.T) {
	g := newStack(t)
	require.Equal(t, []string{"a", "b", "c", "x"}, g.Names())
	require.Equal(t, []string{"a", "x"}, g.Roots())
	require.Equal(t, []string{"main"}, g.Trunks())
}

func TestRemove(t *testing.T) {
	t.Run("refuses to orphan children", func(t *testing.T) {
		g := newStack(t)
		err := g.Remove("b")
		require.ErrorIs(t, err, cascadeerrors.ErrDanglingChildren)
		require.True(t, g.Has("b"))
	})

	t.Run("removes leaf", func(t *testing.T) {
		g := newStack(t)
		require.NoError(t, g.Remove("c"))
		require.False(t, g.Has("c"))
		require.Empty(t, g.Children("b"))
	})

	t.Run("promote moves children to grandparent", func(t *testing.T) {
		g := newStack(t)
		promoted, err := g.RemovePromote("a")
		require.NoError(t, err)
		require.Equal(t, []string{"b"}, promoted)

		node, _ := g.Get("b")
		require.Equal(t, "main", node.Parent)
		require.Equal(t, graph.StatusPendingCascade, node.Status)
		require.Equal(t, []string{"b", "x"}, g.Children("main"))
	})
}

func TestMarkConflicted(t *testing.T) {
	g := newStack(t)
	require.NoError(t, g.MarkConflicted("b"))
	require.NoError(t, g.MarkConflicted("b"))
	require.ErrorIs(t, g.MarkConflicted("c"), cascadeerrors.ErrConflictInProgress)

	name, ok := g.Conflicted()
	require.True(t, ok)
	require.Equal(t, "b", name)

	require.NoError(t, g.Advance("b", "b2", "a2"))
	_, ok = g.Conflicted()
	require.False(t, ok)
}

func TestClone(t *testing.T) {
	g := newStack(t)
	pr := 7
	require.NoError(t, g.SetReviewRequest("a", &pr))

	c := g.Clone()
	require.NoError(t, c.Reparent("c", "x"))
	require.NoError(t, c.SetReviewRequest("a", nil))

	node, _ := g.Get("c")
	require.Equal(t, "b", node.Parent)
	a, _ := g.Get("a")
	require.NotNil(t, a.ReviewRequestID)
	require.Equal(t, 7, *a.ReviewRequestID)
}

func TestDocument(t *testing.T) {
	t.Run("round trips through json", func(t *testing.T) {
		g := newStack(t)
		pr := 12
		require.NoError(t, g.SetReviewRequest("b", &pr))
		require.NoError(t, g.Advance("a", "a1", "m1"))
		require.NoError(t, g.MarkConflicted("b"))

		data, err := json.Marshal(g)
		require.NoError(t, err)
		require.Contains(t, string(data), `"status":"conflicted"`)
		require.Contains(t, string(data), `"reviewRequestId":12`)

		loaded, err := graph.Unmarshal(data, isMain)
		require.NoError(t, err)
		require.Equal(t, g.Names(), loaded.Names())
		require.Equal(t, g.Descendants("main"), loaded.Descendants("main"))
		a, _ := loaded.Get("a")
		require.Equal(t, "a1", a.Tip)
		require.Equal(t, "m1", a.ForkPoint)
		require.Equal(t, graph.StatusClean, a.Status)
		name, ok := loaded.Conflicted()
		require.True(t, ok)
		require.Equal(t, "b", name)
	})

	t.Run("empty input is empty graph", func(t *testing.T) {
		g, err := graph.Unmarshal(nil, isMain)
		require.NoError(t, err)
		require.Equal(t, 0, g.Len())
	})

	t.Run("rejects cycles", func(t *testing.T) {
		doc := graph.Document{
			Version: graph.DocumentVersion,
			Branches: map[string]graph.BranchRecord{
				"a": {Parent: "b"},
				"b": {Parent: "a"},
			},
		}
		_, err := graph.FromDocument(doc, isMain)
		require.ErrorIs(t, err, cascadeerrors.ErrCyclicDependency)
	})

	t.Run("rejects unknown parents", func(t *testing.T) {
		doc := graph.Document{
			Version:  graph.DocumentVersion,
			Branches: map[string]graph.BranchRecord{"a": {Parent: "develop"}},
		}
		_, err := graph.FromDocument(doc, isMain)
		require.ErrorIs(t, err, cascadeerrors.ErrUnknownParent)
	})
}

// requireRooted asserts every node reaches a trunk by following parents
func requireRooted(t *testing.T, g *graph.Graph) {
	t.Helper()
	for _, name := range g.Names() {
		node, _ := g.Get(name)
		for steps := 0; g.Has(node.Parent); steps++ {
			require.Less(t, steps, g.Len(), "%s sits on a cycle", name)
			node, _ = g.Get(node.Parent)
		}
		require.True(t, g.IsTrunk(node.Parent), "%s is not rooted on a trunk", name)
	}
}

func TestEditSequence(t *testing.T) {
	type op struct {
		reparent     bool
		name, parent string
		err          error
	}
	steps := []op{
		{name: "a", parent: "main"},
		{name: "b", parent: "a"},
		{name: "c", parent: "b"},
		{name: "d", parent: "c"},
		{name: "e", parent: "main"},
		{name: "f", parent: "e"},
		{reparent: true, name: "a", parent: "d", err: cascadeerrors.ErrCyclicDependency},
		{reparent: true, name: "b", parent: "c", err: cascadeerrors.ErrCyclicDependency},
		{reparent: true, name: "c", parent: "c", err: cascadeerrors.ErrCyclicDependency},
		{reparent: true, name: "e", parent: "f", err: cascadeerrors.ErrCyclicDependency},
		{reparent: true, name: "c", parent: "f"},
		{reparent: true, name: "e", parent: "d", err: cascadeerrors.ErrCyclicDependency},
		{reparent: true, name: "e", parent: "b"},
		{reparent: true, name: "a", parent: "d", err: cascadeerrors.ErrCyclicDependency},
		{reparent: true, name: "b", parent: "f", err: cascadeerrors.ErrCyclicDependency},
		{reparent: true, name: "main", parent: "a", err: cascadeerrors.ErrTrunkOperation},
		{reparent: true, name: "ghost", parent: "a", err: cascadeerrors.ErrBranchNotFound},
		{reparent: true, name: "d", parent: "ghost", err: cascadeerrors.ErrUnknownParent},
		{name: "b", parent: "main", err: cascadeerrors.ErrBranchAlreadyTracked},
		{name: "g", parent: "g", err: cascadeerrors.ErrCyclicDependency},
		{name: "g", parent: "ghost", err: cascadeerrors.ErrUnknownParent},
		{name: "main", parent: "d", err: cascadeerrors.ErrTrunkOperation},
		{name: "g", parent: "d"},
		{reparent: true, name: "d", parent: "main"},
		{reparent: true, name: "a", parent: "g"},
		{reparent: true, name: "d", parent: "a", err: cascadeerrors.ErrCyclicDependency},
	}

	g := graph.New(isMain)
	for i, step := range steps {
		before := g.Document()
		var err error
		if step.reparent {
			err = g.Reparent(step.name, step.parent)
		} else {
			err = g.Track(step.name, step.parent)
		}
		if step.err != nil {
			require.ErrorIs(t, err, step.err, "step %d", i)
			require.Equal(t, before, g.Document(), "step %d changed the graph", i)
		} else {
			require.NoError(t, err, "step %d", i)
			node, _ := g.Get(step.name)
			require.Equal(t, step.parent, node.Parent)
		}
		requireRooted(t, g)
	}

	t.Run("random edits never leave a cycle", func(t *testing.T) {
		rng := rand.New(rand.NewSource(7))
		names := []string{"main"}
		for i := 0; i < 12; i++ {
			names = append(names, fmt.Sprintf("n%d", i))
		}
		g := graph.New(isMain)
		for i := 0; i < 2000; i++ {
			name := names[rng.Intn(len(names))]
			parent := names[rng.Intn(len(names))]
			before := g.Document()
			var err error
			if rng.Intn(2) == 0 {
				err = g.Track(name, parent)
			} else {
				err = g.Reparent(name, parent)
			}
			if err != nil {
				require.Equal(t, before, g.Document(), "rejected edit %s -> %s changed the graph", name, parent)
			}
			requireRooted(t, g)
		}
	})
}
