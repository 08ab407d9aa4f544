package runtime

import (
	"context"
	"fmt"
	"io"

	"cascade.dev/cascade/internal/config"
	"cascade.dev/cascade/internal/engine"
	"cascade.dev/cascade/internal/forkpoint"
	"cascade.dev/cascade/internal/git"
	"cascade.dev/cascade/internal/github"
	"cascade.dev/cascade/internal/tui"
)

// Context provides access to the repository, engine and output for commands
type Context struct {
	Context  context.Context
	Engine   engine.Engine
	Splog    *tui.Splog
	Repo     *git.Repository
	Config   *config.RepoConfig
	RepoRoot string
}

// Options configures GetContext
type Options struct {
	// Dir is any directory inside the repository
	Dir   string
	Out   io.Writer
	Debug bool
	// Sync overrides the GitHub adapter built from the repo config
	Sync engine.PRSyncAdapter
	// AllowUninitialized skips the init check, for the init command itself
	AllowUninitialized bool
}

// NewContext creates a context from already constructed parts
func NewContext(ctx context.Context, repo *git.Repository, cfg *config.RepoConfig, eng engine.Engine, splog *tui.Splog) *Context {
	return &Context{
		Context:  ctx,
		Engine:   eng,
		Splog:    splog,
		Repo:     repo,
		Config:   cfg,
		RepoRoot: repo.Root(),
	}
}

// GetContext opens the repository, loads its config and builds an engine
// wired to the git store, the work tree lock and, when enabled, GitHub.
// Callers must Close the context.
func GetContext(ctx context.Context, opts Options) (*Context, error) {
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	repo, err := git.OpenRepository(dir)
	if err != nil {
		return nil, err
	}

	if !opts.AllowUninitialized && !config.IsInitialized(repo.GitDir()) {
		return nil, fmt.Errorf("cascade not initialized. Run 'cascade init' first")
	}
	cfg, err := config.GetRepoConfig(repo.GitDir())
	if err != nil {
		return nil, err
	}

	splog, err := tui.NewSplogWithConfig(opts.Out, opts.Debug, tui.LogFilePath(repo.GitDir()))
	if err != nil {
		return nil, err
	}
	logger := splog.Logger()

	sync := opts.Sync
	if sync == nil && cfg.GitHubEnabled() {
		prSync, err := github.NewPRSyncForRepo(ctx, repo, logger)
		if err != nil {
			splog.Warn("GitHub integration is enabled but unavailable: %v", err)
		} else {
			sync = prSync
		}
	}

	eng, err := engine.New(engine.Options{
		VCS:       repo,
		Store:     engine.NewGitStore(repo, cfg.IsTrunk),
		Locker:    git.NewWorkTreeLock(repo.GitDir()),
		Sync:      sync,
		ForkPoint: forkpoint.Policy{MaxDrift: cfg.MaxDrift()},
		SyncPolicy: engine.SyncPolicy{
			Timeout:      cfg.SyncTimeout(),
			Retries:      cfg.SyncRetryCount(),
			DrainTimeout: cfg.SyncDrainTimeout(),
		},
		Logger: logger,
	})
	if err != nil {
		_ = splog.Close()
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	return NewContext(ctx, repo, cfg, eng, splog), nil
}

// Close releases the log file
func (c *Context) Close() error {
	return c.Splog.Close()
}
