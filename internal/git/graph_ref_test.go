package git_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"cascade.dev/cascade/internal/git"
	"cascade.dev/cascade/testhelpers"
)

func TestGraphBlob(t *testing.T) {
	scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
	repo, err := git.OpenRepository(scene.Dir)
	require.NoError(t, err)

	t.Run("missing ref reads as empty", func(t *testing.T) {
		content, err := repo.ReadGraphBlob()
		require.NoError(t, err)
		require.Nil(t, content)
	})

	t.Run("write then read", func(t *testing.T) {
		require.NoError(t, repo.WriteGraphBlob([]byte(`{"version":1}`)))
		content, err := repo.ReadGraphBlob()
		require.NoError(t, err)
		require.JSONEq(t, `{"version":1}`, string(content))

		sha, err := scene.Repo.GetRevision(string(git.GraphRef))
		require.NoError(t, err)
		require.NotEmpty(t, sha)
	})

	t.Run("overwrite replaces content", func(t *testing.T) {
		require.NoError(t, repo.WriteGraphBlob([]byte(`{"version":1,"branches":{}}`)))
		content, err := repo.ReadGraphBlob()
		require.NoError(t, err)
		require.JSONEq(t, `{"version":1,"branches":{}}`, string(content))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteGraphRef())
		content, err := repo.ReadGraphBlob()
		require.NoError(t, err)
		require.Nil(t, content)
	})
}
