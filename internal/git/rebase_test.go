package git_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	cascadeerrors "cascade.dev/cascade/internal/errors"
	"cascade.dev/cascade/internal/git"
	"cascade.dev/cascade/testhelpers"
)

// conflictScene leaves branch1 and main both editing conflict_test.txt and
// returns the commit branch1 forked from.
func conflictScene(t *testing.T) (*testhelpers.Scene, string) {
	t.Helper()
	scene := testhelpers.NewScene(t, func(s *testhelpers.Scene) error {
		return s.Repo.CreateChangeAndCommit("initial content", "conflict")
	})

	forkPoint, err := scene.Repo.GetRevision("main")
	require.NoError(t, err)

	require.NoError(t, scene.Repo.CreateAndCheckoutBranch("branch1"))
	require.NoError(t, scene.Repo.CreateChange("branch1 modification", "conflict", false))
	require.NoError(t, scene.Repo.CreateChangeAndCommit("branch1 change", "b1"))

	require.NoError(t, scene.Repo.CheckoutBranch("main"))
	require.NoError(t, scene.Repo.CreateChange("main conflicting modification", "conflict", false))
	require.NoError(t, scene.Repo.CreateChangeAndCommit("main conflicting change", "main"))

	return scene, forkPoint
}

func TestReplay(t *testing.T) {
	t.Run("replays branch onto moved parent", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		forkPoint, err := scene.Repo.GetRevision("main")
		require.NoError(t, err)

		require.NoError(t, scene.Repo.CreateAndCheckoutBranch("branch1"))
		require.NoError(t, scene.Repo.CreateChangeAndCommit("branch1 change", "b1"))
		require.NoError(t, scene.Repo.CheckoutBranch("main"))
		require.NoError(t, scene.Repo.CreateChangeAndCommit("main update", "main"))
		mainTip, err := scene.Repo.GetRevision("main")
		require.NoError(t, err)

		repo, err := git.OpenRepository(scene.Dir)
		require.NoError(t, err)

		ctx := context.Background()
		commits, err := repo.UniqueCommits(ctx, forkPoint, "branch1")
		require.NoError(t, err)
		require.Len(t, commits, 1)

		newTip, err := repo.Replay(ctx, git.ReplayRequest{
			Branch:   "branch1",
			Onto:     mainTip,
			Upstream: forkPoint,
			Commits:  commits,
		})
		require.NoError(t, err)
		require.NotEqual(t, commits[0], newTip)

		tip, err := repo.Tip("branch1")
		require.NoError(t, err)
		require.Equal(t, newTip, tip)

		contains, err := repo.IsAncestor(ctx, mainTip, newTip)
		require.NoError(t, err)
		require.True(t, contains)
		require.False(t, repo.IsRebaseInProgress())
	})

	t.Run("reports conflicts and leaves rebase in progress", func(t *testing.T) {
		scene, forkPoint := conflictScene(t)
		repo, err := git.OpenRepository(scene.Dir)
		require.NoError(t, err)

		ctx := context.Background()
		commits, err := repo.UniqueCommits(ctx, forkPoint, "branch1")
		require.NoError(t, err)
		mainTip, err := repo.Tip("main")
		require.NoError(t, err)

		_, err = repo.Replay(ctx, git.ReplayRequest{
			Branch:   "branch1",
			Onto:     mainTip,
			Upstream: forkPoint,
			Commits:  commits,
		})
		require.ErrorIs(t, err, cascadeerrors.ErrReplayConflict)

		var conflict *cascadeerrors.ReplayConflictError
		require.True(t, errors.As(err, &conflict))
		require.Equal(t, "branch1", conflict.BranchName)
		require.Equal(t, commits[0], conflict.Commit)
		require.Equal(t, 0, conflict.Index)
		require.True(t, repo.IsRebaseInProgress())

		files, err := repo.UnmergedFiles(ctx)
		require.NoError(t, err)
		require.Contains(t, files, "conflict_test.txt")

		_, resolved, err := repo.ReplayResolved(ctx, "branch1", mainTip)
		require.NoError(t, err)
		require.False(t, resolved)

		require.NoError(t, repo.AbortReplay(ctx))
		require.False(t, repo.IsRebaseInProgress())
	})

	t.Run("continue after resolving finishes on the branch", func(t *testing.T) {
		scene, forkPoint := conflictScene(t)
		repo, err := git.OpenRepository(scene.Dir)
		require.NoError(t, err)

		ctx := context.Background()
		mainTip, err := repo.Tip("main")
		require.NoError(t, err)
		_, err = repo.Replay(ctx, git.ReplayRequest{Branch: "branch1", Onto: mainTip, Upstream: forkPoint})
		require.ErrorIs(t, err, cascadeerrors.ErrReplayConflict)

		require.NoError(t, scene.Repo.ResolveMergeConflicts())
		require.NoError(t, repo.StageAll(ctx))
		require.NoError(t, repo.RebaseContinue(ctx))

		tip, resolved, err := repo.ReplayResolved(ctx, "branch1", mainTip)
		require.NoError(t, err)
		require.True(t, resolved)
		branchTip, err := repo.Tip("branch1")
		require.NoError(t, err)
		require.Equal(t, branchTip, tip)
	})
}

func TestAbortReplayWithoutRebase(t *testing.T) {
	scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
	repo, err := git.OpenRepository(scene.Dir)
	require.NoError(t, err)
	require.NoError(t, repo.AbortReplay(context.Background()))
}
