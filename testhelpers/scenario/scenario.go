// Package scenario provides a high-level test scenario that combines a Scene
// and a runtime Context to provide a terse API for integration tests.
package scenario

import (
	"bytes"
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"cascade.dev/cascade/internal/actions"
	"cascade.dev/cascade/internal/engine"
	"cascade.dev/cascade/internal/graph"
	"cascade.dev/cascade/internal/runtime"
	"cascade.dev/cascade/testhelpers"
)

// Scenario represents a high-level test scenario over a real repository
type Scenario struct {
	T       *testing.T
	Scene   *testhelpers.Scene
	Context *runtime.Context
	Out     *bytes.Buffer

	sync engine.PRSyncAdapter
}

// NewScenario creates a Scenario with an optional setup function.
// NOTE: This function is NOT safe for parallel tests as it uses t.Setenv.
func NewScenario(t *testing.T, setup testhelpers.SceneSetup) *Scenario {
	t.Helper()

	t.Setenv("CASCADE_NO_INTERACTIVE", "true")
	t.Setenv("CASCADE_LOG_FILE", "")

	s := &Scenario{
		T:     t,
		Scene: testhelpers.NewScene(t, setup),
		Out:   &bytes.Buffer{},
	}
	return s.Rebuild()
}

// WithSync routes review updates to adapter and rebuilds the context
func (s *Scenario) WithSync(adapter engine.PRSyncAdapter) *Scenario {
	s.sync = adapter
	return s.Rebuild()
}

// Rebuild opens a fresh context, as a new cascade process would
func (s *Scenario) Rebuild() *Scenario {
	s.T.Helper()
	if s.Context != nil {
		require.NoError(s.T, s.Context.Close())
	}
	ctx, err := runtime.GetContext(context.Background(), runtime.Options{
		Dir:  s.Scene.Dir,
		Out:  s.Out,
		Sync: s.sync,
	})
	require.NoError(s.T, err)
	s.Context = ctx
	s.T.Cleanup(func() { _ = ctx.Close() })
	return s
}

// Output returns everything printed since the last ResetOutput
func (s *Scenario) Output() string {
	return s.Out.String()
}

// ResetOutput discards captured output
func (s *Scenario) ResetOutput() *Scenario {
	s.Out.Reset()
	return s
}

// RunGit runs a git command in the scenario's repository
func (s *Scenario) RunGit(args ...string) *Scenario {
	s.T.Helper()
	require.NoError(s.T, s.Scene.Repo.RunGitCommand(args...))
	return s
}

// Checkout checks out a branch
func (s *Scenario) Checkout(branch string) *Scenario {
	s.T.Helper()
	require.NoError(s.T, s.Scene.Repo.CheckoutBranch(branch))
	return s
}

// CreateBranch creates and checks out a new branch
func (s *Scenario) CreateBranch(name string) *Scenario {
	s.T.Helper()
	require.NoError(s.T, s.Scene.Repo.CreateAndCheckoutBranch(name))
	return s
}

// CommitChange writes <name>_test.txt and commits it with message
func (s *Scenario) CommitChange(name, message string) *Scenario {
	s.T.Helper()
	require.NoError(s.T, s.Scene.Repo.CreateChangeAndCommit(message, name))
	return s
}

// TrackBranch tracks a branch on parent
func (s *Scenario) TrackBranch(branch, parent string) *Scenario {
	s.T.Helper()
	require.NoError(s.T, actions.TrackAction(s.Context, actions.TrackOptions{
		BranchName: branch,
		Parent:     parent,
	}))
	return s
}

// WithStack creates and tracks a branch hierarchy. The map keys are branch
// names and values are their parents. Each branch gets one commit touching
// its own file. The trunk is checked out afterwards.
func (s *Scenario) WithStack(structure map[string]string) *Scenario {
	s.T.Helper()

	created := map[string]bool{}
	names := make([]string, 0, len(structure))
	for name := range structure {
		names = append(names, name)
	}
	sort.Strings(names)

	for len(created) < len(structure) {
		progress := false
		for _, name := range names {
			parent := structure[name]
			if created[name] {
				continue
			}
			if _, isBranch := structure[parent]; isBranch && !created[parent] {
				continue
			}
			s.Checkout(parent).CreateBranch(name).CommitChange(name, name)
			created[name] = true
			progress = true
		}
		require.True(s.T, progress, "stack structure has a cycle")
	}

	for len(created) > 0 {
		for _, name := range names {
			parent := structure[name]
			if !created[name] {
				continue
			}
			if _, isBranch := structure[parent]; isBranch && created[parent] {
				continue
			}
			s.TrackBranch(name, parent)
			delete(created, name)
		}
	}

	return s.Checkout(s.Context.Config.PrimaryTrunk())
}

// Node returns a tracked node
func (s *Scenario) Node(branch string) graph.Node {
	s.T.Helper()
	node, ok := s.Context.Engine.Graph().Get(branch)
	require.True(s.T, ok, "branch %s is not tracked", branch)
	return node
}

// ExpectStackStructure asserts the graph's parent relationships
func (s *Scenario) ExpectStackStructure(expected map[string]string) *Scenario {
	s.T.Helper()
	g := s.Context.Engine.Graph()
	actual := make(map[string]string, g.Len())
	for _, name := range g.Names() {
		node, _ := g.Get(name)
		actual[name] = node.Parent
	}
	require.Equal(s.T, expected, actual)
	return s
}

// ExpectStatus asserts a branch's cascade status
func (s *Scenario) ExpectStatus(branch string, status graph.Status) *Scenario {
	s.T.Helper()
	require.Equal(s.T, status, s.Node(branch).Status, "status of %s", branch)
	return s
}

// ExpectContains asserts that descendant's history includes ancestor
func (s *Scenario) ExpectContains(ancestor, descendant string) *Scenario {
	s.T.Helper()
	require.True(s.T, s.Scene.Repo.IsAncestor(ancestor, descendant), "%s should contain %s", descendant, ancestor)
	return s
}

// ExpectCommits asserts the commit subjects of from..to, oldest first
func (s *Scenario) ExpectCommits(from, to string, expected ...string) *Scenario {
	s.T.Helper()
	messages, err := s.Scene.Repo.CommitMessages(from, to)
	require.NoError(s.T, err)
	require.Equal(s.T, expected, messages)
	return s
}

// ExpectBranch asserts the checked out branch
func (s *Scenario) ExpectBranch(expected string) *Scenario {
	s.T.Helper()
	current, err := s.Scene.Repo.CurrentBranchName()
	require.NoError(s.T, err)
	require.Equal(s.T, expected, current)
	return s
}
