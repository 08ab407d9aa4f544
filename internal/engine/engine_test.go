package engine_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cascade.dev/cascade/internal/engine"
	cascadeerrors "cascade.dev/cascade/internal/errors"
	"cascade.dev/cascade/internal/git"
	"cascade.dev/cascade/internal/graph"
	"cascade.dev/cascade/testhelpers"
)

func isMain(name string) bool { return name == "main" }

type fixture struct {
	vcs   *testhelpers.FakeVCS
	store *engine.MemoryStore
	sync  *testhelpers.FakePRSync
	lock  string
	eng   engine.Engine
}

func (f *fixture) node(t *testing.T, name string) graph.Node {
	t.Helper()
	node, ok := f.eng.Graph().Get(name)
	require.True(t, ok, "branch %s is not tracked", name)
	return node
}

// newFixture wraps vcs in an engine and tracks each branch on its parent
func newFixture(t *testing.T, vcs *testhelpers.FakeVCS, tracks ...[2]string) *fixture {
	t.Helper()
	f := &fixture{
		vcs:   vcs,
		store: engine.NewMemoryStore(isMain),
		sync:  testhelpers.NewFakePRSync(),
		lock:  t.TempDir(),
	}
	f.eng = f.newEngine(t)
	require.NoError(t, f.eng.Edit(func(g *graph.Graph) error {
		for _, tr := range tracks {
			if err := g.Track(tr[0], tr[1]); err != nil {
				return err
			}
		}
		return nil
	}))
	return f
}

// newEngine builds a fresh engine over the fixture's store, as a new process would
func (f *fixture) newEngine(t *testing.T) engine.Engine {
	t.Helper()
	eng, err := engine.New(engine.Options{
		VCS:    f.vcs,
		Store:  f.store,
		Locker: git.NewWorkTreeLock(f.lock),
		Sync:   f.sync,
		SyncPolicy: engine.SyncPolicy{
			Timeout:      time.Second,
			Retries:      1,
			Backoff:      time.Millisecond,
			DrainTimeout: 5 * time.Second,
		},
	})
	require.NoError(t, err)
	return eng
}

// linearStack builds main <- a <- b <- c with one commit each and records
// every fork point with an initial restack
func linearStack(t *testing.T) *fixture {
	t.Helper()
	vcs := testhelpers.NewFakeVCS("m0")
	vcs.Branch("a", "main")
	vcs.Commit("a", "a1")
	vcs.Branch("b", "a")
	vcs.Commit("b", "b1")
	vcs.Branch("c", "b")
	vcs.Commit("c", "c1")

	f := newFixture(t, vcs, [2]string{"a", "main"}, [2]string{"b", "a"}, [2]string{"c", "b"})
	res, err := f.eng.Restack(context.Background(), "main")
	require.NoError(t, err)
	require.Equal(t, engine.OutcomeCompleted, res.Outcome)
	require.Empty(t, vcs.Replays)
	return f
}

func stepKinds(res *engine.Result) []engine.StepKind {
	kinds := make([]engine.StepKind, len(res.Steps))
	for i, s := range res.Steps {
		kinds[i] = s.Kind
	}
	return kinds
}

func TestRestackLinearStack(t *testing.T) {
	f := linearStack(t)
	f.vcs.Amend("a", "a2")

	res, err := f.eng.Restack(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, engine.OutcomeCompleted, res.Outcome)
	require.Equal(t, []string{"b", "c"}, res.Run.Queue)
	require.Equal(t, []engine.StepKind{engine.StepReplayed, engine.StepReplayed}, stepKinds(res))

	b := f.node(t, "b")
	c := f.node(t, "c")
	require.Equal(t, graph.StatusClean, b.Status)
	require.Equal(t, graph.StatusClean, c.Status)
	require.Equal(t, "a2", b.ForkPoint)
	require.Equal(t, f.vcs.MustTip("b"), b.Tip)
	require.Equal(t, b.Tip, c.ForkPoint)
	require.Equal(t, f.vcs.MustTip("c"), c.Tip)

	// Only the branch's own commits were replayed
	require.Equal(t, []string{"a2", "b1", "c1"}, f.vcs.Log("main", "c"))
	require.Equal(t, "a1", f.vcs.Replays[0].Upstream)

	_, err = f.eng.PendingRun()
	require.ErrorIs(t, err, cascadeerrors.ErrNoCascadeRun)
}

func TestRestackConflictAndResume(t *testing.T) {
	ctx := context.Background()
	f := linearStack(t)
	f.vcs.ConflictOn("b1")
	f.vcs.Amend("a", "a2")

	res, err := f.eng.Restack(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, engine.OutcomeHalted, res.Outcome)
	require.NotNil(t, res.Halt)
	require.Equal(t, "b", res.Halt.BranchName)
	require.Equal(t, "b1", res.Halt.Commit)
	require.ErrorIs(t, res.Halt, cascadeerrors.ErrCascadeHalted)
	require.ErrorIs(t, res.Halt, cascadeerrors.ErrReplayConflict)

	t.Run("halt leaves later branches untouched", func(t *testing.T) {
		b := f.node(t, "b")
		require.Equal(t, graph.StatusConflicted, b.Status)
		require.Equal(t, "a1", b.ForkPoint)

		c := f.node(t, "c")
		require.Equal(t, graph.StatusPendingCascade, c.Status)
		require.Equal(t, "c1", c.Tip)
		require.Equal(t, "b1", c.ForkPoint)

		run, err := f.eng.PendingRun()
		require.NoError(t, err)
		require.Equal(t, []string{"b", "c"}, run.Queue)
		require.Equal(t, -1, run.Cursor)
		require.Equal(t, "b", run.HaltedNode)
		require.Equal(t, "b1", run.HaltedCommit)
		require.Equal(t, "a2", run.HaltedOnto)
		require.Equal(t, engine.HaltConflict, run.Reason)
		require.Equal(t, []string{"b", "c"}, run.Remaining())
		require.Equal(t, "main", run.ReturnBranch)
	})

	t.Run("continue before resolving is rejected", func(t *testing.T) {
		_, err := f.eng.Resume(ctx)
		require.ErrorIs(t, err, cascadeerrors.ErrUnresolvedConflict)
		require.Equal(t, graph.StatusConflicted, f.node(t, "b").Status)

		run, err := f.eng.PendingRun()
		require.NoError(t, err)
		require.Equal(t, "b", run.HaltedNode)
	})

	t.Run("new runs and edits are refused", func(t *testing.T) {
		_, err := f.eng.Restack(ctx, "main")
		require.ErrorIs(t, err, cascadeerrors.ErrCascadeInProgress)
		err = f.eng.Edit(func(g *graph.Graph) error { return g.Remove("c") })
		require.ErrorIs(t, err, cascadeerrors.ErrCascadeInProgress)
	})

	t.Run("continue after resolving processes the rest", func(t *testing.T) {
		require.NoError(t, f.vcs.ResolveConflict())
		replaysBefore := len(f.vcs.Replays)

		// A new process picks the run up from the store
		eng := f.newEngine(t)
		res, err := eng.Resume(ctx)
		require.NoError(t, err)
		require.Equal(t, engine.OutcomeCompleted, res.Outcome)
		require.Equal(t, []engine.StepKind{engine.StepResolved, engine.StepReplayed}, stepKinds(res))
		require.Len(t, f.vcs.Replays, replaysBefore+1)
		require.Equal(t, "c", f.vcs.Replays[replaysBefore].Branch)

		g := eng.Graph()
		b, _ := g.Get("b")
		c, _ := g.Get("c")
		require.Equal(t, graph.StatusClean, b.Status)
		require.Equal(t, "a2", b.ForkPoint)
		require.Equal(t, graph.StatusClean, c.Status)
		require.Equal(t, b.Tip, c.ForkPoint)
		require.Equal(t, []string{"a2", "b1", "c1"}, f.vcs.Log("main", "c"))

		_, err = eng.PendingRun()
		require.ErrorIs(t, err, cascadeerrors.ErrNoCascadeRun)
	})
}

func TestRestackBranchWithoutCommits(t *testing.T) {
	vcs := testhelpers.NewFakeVCS("m0")
	vcs.Branch("a", "main")
	vcs.Commit("a", "a1")
	vcs.Branch("b", "a")
	f := newFixture(t, vcs, [2]string{"a", "main"}, [2]string{"b", "a"})
	_, err := f.eng.Restack(context.Background(), "main")
	require.NoError(t, err)

	vcs.Commit("a", "a2")
	res, err := f.eng.Restack(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, engine.OutcomeCompleted, res.Outcome)
	require.Equal(t, []engine.StepKind{engine.StepMoved}, stepKinds(res))
	require.Empty(t, vcs.Replays)
	require.Equal(t, []string{"b"}, vcs.Moves)

	b := f.node(t, "b")
	require.Equal(t, "a2", b.Tip)
	require.Equal(t, "a2", b.ForkPoint)
	require.Equal(t, "a2", vcs.MustTip("b"))
}

func TestRestackNoOp(t *testing.T) {
	f := linearStack(t)
	before := f.eng.Graph().Document()

	res, err := f.eng.Restack(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, engine.OutcomeCompleted, res.Outcome)
	require.Equal(t, []engine.StepKind{engine.StepUpToDate, engine.StepUpToDate}, stepKinds(res))
	require.Empty(t, f.vcs.Replays)
	require.Empty(t, f.vcs.Moves)
	require.Equal(t, before, f.eng.Graph().Document())
}

func TestRestackEmpty(t *testing.T) {
	f := linearStack(t)

	res, err := f.eng.Restack(context.Background(), "c")
	require.NoError(t, err)
	require.Equal(t, engine.OutcomeEmpty, res.Outcome)
	require.Empty(t, res.Steps)

	_, err = f.eng.PendingRun()
	require.ErrorIs(t, err, cascadeerrors.ErrNoCascadeRun)
}

func TestRestackUnknownTrigger(t *testing.T) {
	f := linearStack(t)
	_, err := f.eng.Restack(context.Background(), "nope")
	require.ErrorIs(t, err, cascadeerrors.ErrBranchNotFound)
}

func TestRestackAmbiguousTrigger(t *testing.T) {
	ctx := context.Background()
	vcs := testhelpers.NewFakeVCS("m0")
	vcs.Branch("a", "main")
	vcs.Commit("main", "m1")
	// a briefly pointed at m1, then was rewritten back on top of m0
	require.NoError(t, vcs.MoveBranch(ctx, "a", "m1"))
	vcs.Amend("a", "a1")
	vcs.Branch("b", "a")
	vcs.Commit("b", "b1")

	f := newFixture(t, vcs, [2]string{"a", "main"}, [2]string{"b", "a"})
	before := f.eng.Graph().Document()

	_, err := f.eng.Restack(ctx, "a")
	require.ErrorIs(t, err, cascadeerrors.ErrAmbiguousForkPoint)

	var amb *cascadeerrors.AmbiguousForkPointError
	require.True(t, errors.As(err, &amb))
	require.Equal(t, "a", amb.BranchName)
	require.Equal(t, []string{"m1", "m0"}, amb.Candidates)

	require.Equal(t, before, f.eng.Graph().Document())
	_, err = f.eng.PendingRun()
	require.ErrorIs(t, err, cascadeerrors.ErrNoCascadeRun)
	require.Empty(t, vcs.Replays)
}

func TestRestackAmbiguousDescendant(t *testing.T) {
	ctx := context.Background()
	vcs := testhelpers.NewFakeVCS("m0")
	vcs.Branch("a", "main")
	vcs.Commit("a", "a1")
	vcs.Branch("b", "a")
	vcs.Commit("a", "a2")
	require.NoError(t, vcs.MoveBranch(ctx, "b", "a2"))
	vcs.Amend("b", "b1")

	f := newFixture(t, vcs, [2]string{"a", "main"}, [2]string{"b", "a"})

	res, err := f.eng.Restack(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, engine.OutcomeHalted, res.Outcome)
	require.ErrorIs(t, res.Halt, cascadeerrors.ErrAmbiguousForkPoint)
	require.Equal(t, string(engine.HaltAmbiguousForkPoint), res.Halt.Reason)
	require.Equal(t, graph.StatusConflicted, f.node(t, "b").Status)

	run, err := f.eng.PendingRun()
	require.NoError(t, err)
	require.Equal(t, engine.HaltAmbiguousForkPoint, run.Reason)
	require.Equal(t, "a2", run.HaltedOnto)

	// The user rebuilds b on top of a2 by hand
	require.NoError(t, vcs.MoveBranch(ctx, "b", "a2"))
	vcs.Commit("b", "b2")

	res, err = f.eng.Resume(ctx)
	require.NoError(t, err)
	require.Equal(t, engine.OutcomeCompleted, res.Outcome)
	b := f.node(t, "b")
	require.Equal(t, graph.StatusClean, b.Status)
	require.Equal(t, "a2", b.ForkPoint)
	require.Equal(t, "b2", b.Tip)
}

func TestRestackReplayError(t *testing.T) {
	ctx := context.Background()
	f := linearStack(t)
	f.vcs.Amend("a", "a2")
	f.vcs.ReplayErr = errors.New("disk full")

	res, err := f.eng.Restack(ctx, "a")
	require.Error(t, err)
	require.NotErrorIs(t, err, cascadeerrors.ErrCascadeHalted)
	require.NotNil(t, res)
	require.Equal(t, engine.OutcomeHalted, res.Outcome)

	run, err := f.eng.PendingRun()
	require.NoError(t, err)
	require.Equal(t, engine.HaltError, run.Reason)
	require.Equal(t, graph.StatusPendingCascade, f.node(t, "b").Status)
	_, conflicted := f.eng.Graph().Conflicted()
	require.False(t, conflicted)

	f.vcs.ReplayErr = nil
	res, err = f.eng.Resume(ctx)
	require.NoError(t, err)
	require.Equal(t, engine.OutcomeCompleted, res.Outcome)
	require.Equal(t, []string{"a2", "b1", "c1"}, f.vcs.Log("main", "c"))
}

func TestAbort(t *testing.T) {
	ctx := context.Background()

	t.Run("without a run", func(t *testing.T) {
		f := linearStack(t)
		_, err := f.eng.Abort(ctx)
		require.ErrorIs(t, err, cascadeerrors.ErrNoCascadeRun)
	})

	t.Run("discards the halted run", func(t *testing.T) {
		f := linearStack(t)
		f.vcs.ConflictOn("c1")
		f.vcs.Amend("a", "a2")

		res, err := f.eng.Restack(ctx, "a")
		require.NoError(t, err)
		require.Equal(t, engine.OutcomeHalted, res.Outcome)
		bTip := f.node(t, "b").Tip
		require.True(t, f.vcs.RebaseInProgress())

		run, err := f.eng.Abort(ctx)
		require.NoError(t, err)
		require.Equal(t, engine.RunAborted, run.State)
		require.Equal(t, "c", run.HaltedNode)
		require.False(t, f.vcs.RebaseInProgress())

		// b stays advanced, c is pending again
		b := f.node(t, "b")
		require.Equal(t, bTip, b.Tip)
		require.Equal(t, graph.StatusClean, b.Status)
		c := f.node(t, "c")
		require.Equal(t, graph.StatusPendingCascade, c.Status)
		require.Equal(t, "c1", f.vcs.MustTip("c"))

		_, err = f.eng.PendingRun()
		require.ErrorIs(t, err, cascadeerrors.ErrNoCascadeRun)
	})
}

func TestWorkTreeLock(t *testing.T) {
	ctx := context.Background()
	f := linearStack(t)

	other := git.NewWorkTreeLock(f.lock)
	require.NoError(t, other.Lock())

	_, err := f.eng.Restack(ctx, "a")
	require.ErrorIs(t, err, cascadeerrors.ErrWorkTreeBusy)

	require.NoError(t, other.Unlock())
	_, err = f.eng.Restack(ctx, "a")
	require.NoError(t, err)

	_, err = os.Stat(other.Path())
	require.True(t, os.IsNotExist(err))
}

func TestEdit(t *testing.T) {
	f := linearStack(t)
	before := f.eng.Graph().Document()

	err := f.eng.Edit(func(g *graph.Graph) error {
		if err := g.Track("d", "c"); err != nil {
			return err
		}
		return g.Reparent("a", "d")
	})
	require.ErrorIs(t, err, cascadeerrors.ErrCyclicDependency)
	require.Equal(t, before, f.eng.Graph().Document())

	stored, err := f.store.LoadGraph()
	require.NoError(t, err)
	require.Equal(t, before, stored.Document())
}

func withReviewRequests(t *testing.T, f *fixture, prs map[string]int) {
	t.Helper()
	require.NoError(t, f.eng.Edit(func(g *graph.Graph) error {
		for name, n := range prs {
			n := n
			if err := g.SetReviewRequest(name, &n); err != nil {
				return err
			}
		}
		return nil
	}))
}

func TestReviewSync(t *testing.T) {
	ctx := context.Background()

	t.Run("updates linked review requests", func(t *testing.T) {
		f := linearStack(t)
		withReviewRequests(t, f, map[string]int{"b": 2, "c": 3})
		f.vcs.Amend("a", "a2")

		res, err := f.eng.Restack(ctx, "a")
		require.NoError(t, err)
		require.Empty(t, res.SyncFailures)

		updates := f.sync.Updates()
		require.Len(t, updates, 2)
		require.Equal(t, testhelpers.PRUpdate{Branch: "b", Parent: "a", PRNumber: 2, ParentTip: "a2"}, updates[0])
		require.Equal(t, "c", updates[1].Branch)
		require.Equal(t, f.node(t, "b").Tip, updates[1].ParentTip)
	})

	t.Run("failures do not change the outcome", func(t *testing.T) {
		f := linearStack(t)
		withReviewRequests(t, f, map[string]int{"b": 2, "c": 3})
		f.sync.Err = errors.New("502 bad gateway")
		f.vcs.Amend("a", "a2")

		res, err := f.eng.Restack(ctx, "a")
		require.NoError(t, err)
		require.Equal(t, engine.OutcomeCompleted, res.Outcome)
		require.Len(t, res.SyncFailures, 2)
		for _, failure := range res.SyncFailures {
			require.ErrorIs(t, failure, cascadeerrors.ErrSync)
		}
		// one retry each
		require.Equal(t, 4, f.sync.Calls())
		require.Equal(t, graph.StatusClean, f.node(t, "c").Status)
	})

	t.Run("retries transient failures", func(t *testing.T) {
		f := linearStack(t)
		withReviewRequests(t, f, map[string]int{"b": 2})
		f.sync.Err = errors.New("timeout")
		f.sync.FailTimes["b"] = 1
		f.vcs.Amend("a", "a2")

		res, err := f.eng.Restack(ctx, "a")
		require.NoError(t, err)
		require.Empty(t, res.SyncFailures)
		require.Len(t, f.sync.Updates(), 1)
	})

	t.Run("slow calls time out", func(t *testing.T) {
		vcs := testhelpers.NewFakeVCS("m0")
		vcs.Branch("a", "main")
		vcs.Commit("a", "a1")
		f := newFixture(t, vcs, [2]string{"a", "main"})
		f.sync.Delay = time.Second
		eng, err := engine.New(engine.Options{
			VCS:        vcs,
			Store:      f.store,
			Sync:       f.sync,
			SyncPolicy: engine.SyncPolicy{Timeout: 20 * time.Millisecond, Retries: 0, DrainTimeout: 5 * time.Second},
		})
		require.NoError(t, err)
		require.NoError(t, eng.Edit(func(g *graph.Graph) error {
			pr := 1
			return g.SetReviewRequest("a", &pr)
		}))

		res, err := eng.Restack(ctx, "main")
		require.NoError(t, err)
		require.Equal(t, engine.OutcomeCompleted, res.Outcome)
		require.Len(t, res.SyncFailures, 1)
		require.ErrorIs(t, res.SyncFailures[0], context.DeadlineExceeded)
	})
}
