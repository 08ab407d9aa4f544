package testhelpers

import (
	"os"
	"path/filepath"
	"testing"

	"cascade.dev/cascade/internal/config"
)

// Scene represents a test scene with a temporary directory and Git repository.
// The process working directory is never changed, so scenes are safe to use
// from parallel tests.
type Scene struct {
	Dir  string
	Repo *GitRepo
}

// SceneSetup is a function type for setting up a scene.
type SceneSetup func(*Scene) error

// NewScene creates a new test scene with a temporary directory and Git repository.
// It automatically handles cleanup using t.Cleanup().
func NewScene(t *testing.T, setup SceneSetup) *Scene {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "cascade-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	// macOS temp dirs are symlinks; git reports the resolved path
	if resolved, err := filepath.EvalSymlinks(tmpDir); err == nil {
		tmpDir = resolved
	}

	repo, err := NewGitRepo(tmpDir)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to create Git repo: %v", err)
	}

	scene := &Scene{
		Dir:  tmpDir,
		Repo: repo,
	}

	if err := scene.writeDefaultConfigs(); err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to write config files: %v", err)
	}

	if setup != nil {
		if err := setup(scene); err != nil {
			os.RemoveAll(tmpDir)
			t.Fatalf("Setup failed: %v", err)
		}
	}

	t.Cleanup(func() {
		if os.Getenv("DEBUG") == "" {
			os.RemoveAll(tmpDir)
		}
	})

	return scene
}

// GitDir returns the scene's .git directory
func (s *Scene) GitDir() string {
	return filepath.Join(s.Dir, ".git")
}

// writeDefaultConfigs writes a repo config with main as the trunk and GitHub
// integration disabled.
func (s *Scene) writeDefaultConfigs() error {
	trunk := "main"
	disabled := false
	return config.SaveRepoConfig(s.GitDir(), &config.RepoConfig{
		Trunk:                      &trunk,
		IsGithubIntegrationEnabled: &disabled,
	})
}

// BasicSceneSetup is a setup function that creates a basic scene with a single commit.
func BasicSceneSetup(scene *Scene) error {
	return scene.Repo.CreateChangeAndCommit("1", "1")
}

// StackSceneSetup creates main <- a <- b, each with one commit, and leaves
// main checked out.
func StackSceneSetup(scene *Scene) error {
	if err := BasicSceneSetup(scene); err != nil {
		return err
	}
	for _, branch := range []string{"a", "b"} {
		if err := scene.Repo.CreateAndCheckoutBranch(branch); err != nil {
			return err
		}
		if err := scene.Repo.CreateChangeAndCommit(branch, branch); err != nil {
			return err
		}
	}
	return scene.Repo.CheckoutBranch("main")
}
