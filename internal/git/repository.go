package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	cascadeerrors "cascade.dev/cascade/internal/errors"
)

// Repository is the cascade view of a git repository
type Repository struct {
	repo   *gogit.Repository
	runner *CommandRunner
	root   string
	gitDir string
	mu     sync.Mutex // go-git repositories are not safe for concurrent use
}

// OpenRepository opens the repository containing path
func OpenRepository(path string) (*Repository, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	repo, err := gogit.PlainOpenWithOptions(absPath, &gogit.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	root := worktree.Filesystem.Root()

	runner := NewCommandRunner(root)
	gitDir, err := runner.Run(context.Background(), "rev-parse", "--absolute-git-dir")
	if err != nil {
		return nil, fmt.Errorf("failed to locate git directory: %w", err)
	}

	return &Repository{
		repo:   repo,
		runner: runner,
		root:   root,
		gitDir: gitDir,
	}, nil
}

// Root returns the working tree root
func (r *Repository) Root() string {
	return r.root
}

// GitDir returns the absolute git directory
func (r *Repository) GitDir() string {
	return r.gitDir
}

// Runner returns the CLI runner bound to the working tree
func (r *Repository) Runner() *CommandRunner {
	return r.runner
}

// resolveRefHash resolves a branch name, full ref name or revision to a commit hash
func (r *Repository) resolveRefHash(ref string) (plumbing.Hash, error) {
	if ref == "" {
		return plumbing.ZeroHash, fmt.Errorf("empty revision")
	}
	if plumbing.IsHash(ref) {
		return plumbing.NewHash(ref), nil
	}
	if rf, err := r.repo.Reference(plumbing.ReferenceName(ref), true); err == nil {
		return rf.Hash(), nil
	}
	if rf, err := r.repo.Reference(plumbing.NewBranchReferenceName(ref), true); err == nil {
		return rf.Hash(), nil
	}
	hash, err := r.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to resolve %s: %w", ref, err)
	}
	return *hash, nil
}

// Tip returns the commit a local branch points at
func (r *Repository) Tip(branch string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ref, err := r.repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", cascadeerrors.NewBranchNotFoundError(branch)
		}
		return "", fmt.Errorf("failed to read branch %s: %w", branch, err)
	}
	return ref.Hash().String(), nil
}

// BranchExists reports whether a local branch exists
func (r *Repository) BranchExists(branch string) bool {
	_, err := r.Tip(branch)
	return err == nil
}

// BranchNames lists local branches in name order
func (r *Repository) BranchNames() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	iter, err := r.repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	defer iter.Close()

	var names []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// CurrentBranch returns the checked out branch
func (r *Repository) CurrentBranch() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	head, err := r.repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", fmt.Errorf("failed to read HEAD: %w", err)
	}
	if head.Type() != plumbing.SymbolicReference || !head.Target().IsBranch() {
		return "", cascadeerrors.ErrNotOnBranch
	}
	return head.Target().Short(), nil
}

// CheckoutBranch checks out an existing branch
func (r *Repository) CheckoutBranch(ctx context.Context, branch string) error {
	if _, err := r.runner.Run(ctx, "checkout", "--quiet", branch); err != nil {
		return fmt.Errorf("failed to checkout %s: %w", branch, err)
	}
	return nil
}

// MoveBranch points branch at commit. A checked out branch is moved with
// reset --keep so local changes survive or the move fails.
func (r *Repository) MoveBranch(ctx context.Context, branch, commit string) error {
	current, err := r.CurrentBranch()
	if err == nil && current == branch {
		if _, err := r.runner.Run(ctx, "reset", "--keep", commit); err != nil {
			return fmt.Errorf("failed to move %s to %s: %w", branch, cascadeerrors.ShortSHA(commit), err)
		}
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(branch), plumbing.NewHash(commit))
	if err := r.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("failed to move %s to %s: %w", branch, cascadeerrors.ShortSHA(commit), err)
	}
	return nil
}

// StageAll stages every change in the working tree
func (r *Repository) StageAll(ctx context.Context) error {
	if _, err := r.runner.Run(ctx, "add", "--all"); err != nil {
		return fmt.Errorf("failed to stage changes: %w", err)
	}
	return nil
}

// UnmergedFiles lists files with unresolved conflicts
func (r *Repository) UnmergedFiles(ctx context.Context) ([]string, error) {
	lines, err := r.runner.RunLines(ctx, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, err
	}
	var files []string
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

// RemoteURL returns the fetch URL of a remote
func (r *Repository) RemoteURL(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	remote, err := r.repo.Remote(name)
	if err != nil {
		return "", fmt.Errorf("failed to read remote %s: %w", name, err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("remote %s has no url", name)
	}
	return urls[0], nil
}
