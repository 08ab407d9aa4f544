package engine

import (
	"context"

	"cascade.dev/cascade/internal/forkpoint"
	"cascade.dev/cascade/internal/git"
	"cascade.dev/cascade/internal/graph"
)

// Engine drives cascades over the branch graph
type Engine interface {
	// Graph returns a snapshot of the current graph
	Graph() *graph.Graph
	// Edit applies fn to a copy of the graph and persists the copy if fn succeeds
	Edit(fn func(g *graph.Graph) error) error
	// PendingRun returns the persisted cascade run, or errors.ErrNoCascadeRun
	PendingRun() (*Run, error)

	Restack(ctx context.Context, trigger string) (*Result, error)
	Resume(ctx context.Context) (*Result, error)
	Abort(ctx context.Context) (*Run, error)
}

// VCS is the version-control surface the engine needs
type VCS interface {
	forkpoint.History

	// CurrentBranch returns the checked out branch
	CurrentBranch() (string, error)
	// Tip returns the commit a branch points at
	Tip(branch string) (string, error)
	// UniqueCommits returns commits reachable from tip but not base, oldest first
	UniqueCommits(ctx context.Context, base, tip string) ([]string, error)
	// MoveBranch points branch at commit without replaying anything
	MoveBranch(ctx context.Context, branch, commit string) error
	// Replay re-applies commits onto a new base and returns the new tip. A
	// conflict is reported as *errors.ReplayConflictError.
	Replay(ctx context.Context, req git.ReplayRequest) (string, error)
	// ReplayResolved reports whether a halted replay has been finished
	// externally, returning the branch tip when it has
	ReplayResolved(ctx context.Context, branch, onto string) (string, bool, error)
	// AbortReplay cancels an in-progress replay, if any
	AbortReplay(ctx context.Context) error
}

// Store persists the graph and the cascade run
type Store interface {
	LoadGraph() (*graph.Graph, error)
	SaveGraph(g *graph.Graph) error
	// LoadRun returns errors.ErrNoCascadeRun when nothing is persisted
	LoadRun() (*Run, error)
	SaveRun(run *Run) error
	ClearRun() error
}

// Locker grants exclusive use of the working tree
type Locker interface {
	Lock() error
	Unlock() error
}

// PRSyncAdapter updates the hosted review system after a branch moves
type PRSyncAdapter interface {
	UpdateBase(ctx context.Context, node graph.Node, newParentTip string) error
}
