package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	cascadeerrors "cascade.dev/cascade/internal/errors"
	"cascade.dev/cascade/internal/forkpoint"
	"cascade.dev/cascade/internal/graph"
)

// Options configures an engine
type Options struct {
	VCS    VCS
	Store  Store
	Locker Locker
	// Sync is optional; without it review requests are never updated
	Sync       PRSyncAdapter
	ForkPoint  forkpoint.Policy
	SyncPolicy SyncPolicy
	Logger     *slog.Logger
}

// engineImpl is the Engine backed by a VCS and a Store
type engineImpl struct {
	vcs        VCS
	store      Store
	locker     Locker
	sync       PRSyncAdapter
	resolver   *forkpoint.Resolver
	syncPolicy SyncPolicy
	logger     *slog.Logger

	graph *graph.Graph
	mu    sync.RWMutex
}

// New creates an engine and loads the persisted graph
func New(opts Options) (Engine, error) {
	if opts.VCS == nil || opts.Store == nil {
		return nil, errors.New("engine requires a VCS and a store")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	locker := opts.Locker
	if locker == nil {
		locker = noopLocker{}
	}

	g, err := opts.Store.LoadGraph()
	if err != nil {
		return nil, err
	}

	return &engineImpl{
		vcs:        opts.VCS,
		store:      opts.Store,
		locker:     locker,
		sync:       opts.Sync,
		resolver:   forkpoint.NewResolver(opts.VCS, opts.ForkPoint),
		syncPolicy: opts.SyncPolicy.withDefaults(),
		logger:     logger,
		graph:      g,
	}, nil
}

// Graph returns a snapshot of the current graph
func (e *engineImpl) Graph() *graph.Graph {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.graph.Clone()
}

// Edit applies fn to a copy of the graph and persists it. Edits are refused
// while a cascade run is waiting to be continued.
func (e *engineImpl) Edit(fn func(g *graph.Graph) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureNoRun(); err != nil {
		return err
	}
	g := e.graph.Clone()
	if err := fn(g); err != nil {
		return err
	}
	return e.commit(g)
}

// PendingRun returns the persisted run
func (e *engineImpl) PendingRun() (*Run, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.LoadRun()
}

// Restack cascades trigger's descendants onto their parents' current tips
func (e *engineImpl) Restack(ctx context.Context, trigger string) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureNoRun(); err != nil {
		return nil, err
	}
	if err := e.locker.Lock(); err != nil {
		return nil, err
	}
	defer e.unlock()

	g := e.graph.Clone()
	run := &Run{Trigger: trigger, Cursor: -1, State: RunBuilding}
	if current, err := e.vcs.CurrentBranch(); err == nil {
		run.ReturnBranch = current
	}
	if !g.Has(trigger) && !g.IsTrunk(trigger) {
		return nil, cascadeerrors.NewBranchNotFoundError(trigger)
	}

	queue := g.Descendants(trigger)
	refresh := queue
	if g.Has(trigger) {
		refresh = append([]string{trigger}, queue...)
	}
	for _, name := range refresh {
		tip, err := e.vcs.Tip(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read tip of %s: %w", name, err)
		}
		if err := g.SetTip(name, tip); err != nil {
			return nil, err
		}
	}

	trunkTips := make(map[string]string)
	if node, ok := g.Get(trigger); ok {
		parentTip, err := e.parentTip(g, node.Parent, trunkTips)
		if err != nil {
			return nil, err
		}
		res, err := e.resolver.Resolve(ctx, node, parentTip)
		if err != nil {
			return nil, err
		}
		e.logger.Debug("resolved trigger fork point", "branch", trigger, "fork_point", cascadeerrors.ShortSHA(res.Commit), "source", res.Source)
	}

	if len(queue) == 0 {
		e.logger.Debug("nothing to restack", "trigger", trigger)
		if err := e.commit(g); err != nil {
			return nil, err
		}
		run.State = RunCompleted
		return &Result{Outcome: OutcomeEmpty, Run: run}, nil
	}

	// A conflicted node without a persisted run is left over from a discarded
	// run and no longer blocks a new one.
	if name, ok := g.Conflicted(); ok {
		if err := g.MarkPending(name); err != nil {
			return nil, err
		}
	}
	for _, name := range queue {
		if err := g.MarkPending(name); err != nil {
			return nil, err
		}
	}

	run.Queue = queue
	run.State = RunRunning
	if err := e.commit(g); err != nil {
		return nil, err
	}
	if err := e.store.SaveRun(run); err != nil {
		return nil, err
	}
	e.logger.Debug("cascade started", "trigger", trigger, "queue", queue)

	result := &Result{Run: run}
	d := e.newDispatcher(len(queue))
	return e.execute(ctx, g, run, result, d, trunkTips)
}

// Resume continues a halted run. A conflicted step must have been finished
// outside the engine first.
func (e *engineImpl) Resume(ctx context.Context) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	run, err := e.store.LoadRun()
	if err != nil {
		return nil, err
	}
	if err := e.locker.Lock(); err != nil {
		return nil, err
	}
	defer e.unlock()

	g := e.graph.Clone()
	result := &Result{Run: run}
	trunkTips := make(map[string]string)

	switch run.Reason {
	case HaltConflict, HaltAmbiguousForkPoint:
		node, ok := g.Get(run.HaltedNode)
		if !ok {
			return nil, cascadeerrors.NewBranchNotFoundError(run.HaltedNode)
		}
		tip, resolved, err := e.vcs.ReplayResolved(ctx, run.HaltedNode, run.HaltedOnto)
		if err != nil {
			return nil, err
		}
		if !resolved {
			return nil, cascadeerrors.NewUnresolvedConflictError(run.HaltedNode)
		}

		index := indexOf(run.Queue, run.HaltedNode)
		if index < 0 {
			return nil, fmt.Errorf("halted branch %s is not in the cascade queue", run.HaltedNode)
		}
		if err := g.Advance(run.HaltedNode, tip, run.HaltedOnto); err != nil {
			return nil, err
		}
		if err := e.commit(g); err != nil {
			return nil, err
		}
		result.Steps = append(result.Steps, StepRecord{
			Branch:    run.HaltedNode,
			Kind:      StepResolved,
			OldTip:    node.Tip,
			NewTip:    tip,
			ForkPoint: run.HaltedOnto,
		})
		e.logger.Debug("resolved halted branch", "branch", run.HaltedNode, "tip", cascadeerrors.ShortSHA(tip))

		onto := run.HaltedOnto
		run.Cursor = index
		run.clearHalt()
		run.State = RunRunning
		if err := e.store.SaveRun(run); err != nil {
			return nil, err
		}

		d := e.newDispatcher(len(run.Queue) - index)
		if advanced, ok := g.Get(node.Name); ok && advanced.HasReviewRequest() {
			d.enqueue(advanced, onto)
		}
		return e.execute(ctx, g, run, result, d, trunkTips)

	default:
		// An error halt retries the halted branch from scratch
		run.clearHalt()
		run.State = RunRunning
		if err := e.store.SaveRun(run); err != nil {
			return nil, err
		}
		d := e.newDispatcher(len(run.Remaining()))
		return e.execute(ctx, g, run, result, d, trunkTips)
	}
}

// Abort discards the persisted run. Branches that were already advanced keep
// their new tips.
func (e *engineImpl) Abort(ctx context.Context) (*Run, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	run, err := e.store.LoadRun()
	if err != nil {
		return nil, err
	}
	if err := e.locker.Lock(); err != nil {
		return nil, err
	}
	defer e.unlock()

	if err := e.vcs.AbortReplay(ctx); err != nil {
		return nil, err
	}

	g := e.graph.Clone()
	if run.HaltedNode != "" && g.Has(run.HaltedNode) {
		if err := g.MarkPending(run.HaltedNode); err != nil {
			return nil, err
		}
	}
	if err := e.commit(g); err != nil {
		return nil, err
	}
	if err := e.store.ClearRun(); err != nil {
		return nil, err
	}

	run.State = RunAborted
	e.logger.Debug("cascade aborted", "trigger", run.Trigger, "halted", run.HaltedNode)
	return run, nil
}

// execute processes the queue entries after the cursor
func (e *engineImpl) execute(ctx context.Context, g *graph.Graph, run *Run, result *Result, d *syncDispatcher, trunkTips map[string]string) (*Result, error) {
	finish := func() {
		result.SyncFailures = append(result.SyncFailures, d.drain()...)
	}

	for i := run.Cursor + 1; i < len(run.Queue); i++ {
		name := run.Queue[i]
		step, h := e.processNode(ctx, g, name, trunkTips)
		if h != nil {
			err := e.halt(g, run, name, h)
			finish()
			if err != nil {
				return nil, err
			}
			result.Outcome = OutcomeHalted
			result.Halt = &cascadeerrors.CascadeHaltedError{
				BranchName: name,
				Commit:     h.commit,
				Reason:     string(h.reason),
				Err:        h.err,
			}
			if h.reason == HaltError {
				return result, fmt.Errorf("cascade stopped at %s: %w", name, h.err)
			}
			return result, nil
		}

		if err := e.commit(g); err != nil {
			finish()
			return nil, err
		}
		run.Cursor = i
		if err := e.store.SaveRun(run); err != nil {
			finish()
			return nil, err
		}
		result.Steps = append(result.Steps, step)
		e.logger.Debug("cascade step", "branch", name, "kind", step.Kind.String(), "tip", cascadeerrors.ShortSHA(step.NewTip))

		if node, ok := g.Get(name); ok && node.HasReviewRequest() {
			d.enqueue(node, step.ForkPoint)
		}
	}

	if err := e.store.ClearRun(); err != nil {
		finish()
		return nil, err
	}
	run.State = RunCompleted
	result.Outcome = OutcomeCompleted
	finish()
	return result, nil
}

// halt records a stopped step in the graph and the run
func (e *engineImpl) halt(g *graph.Graph, run *Run, name string, h *haltInfo) error {
	run.HaltedNode = name
	run.HaltedCommit = h.commit
	run.HaltedOnto = h.onto
	run.HaltedBase = h.base
	run.Reason = h.reason
	run.State = RunHalted

	if h.reason != HaltError {
		if err := g.MarkConflicted(name); err != nil {
			return err
		}
	}
	if err := e.commit(g); err != nil {
		return err
	}
	if err := e.store.SaveRun(run); err != nil {
		return err
	}
	e.logger.Debug("cascade halted", "branch", name, "reason", string(h.reason), "error", h.err)
	return nil
}

// commit persists g and makes it the engine's graph
func (e *engineImpl) commit(g *graph.Graph) error {
	if err := e.store.SaveGraph(g); err != nil {
		return err
	}
	e.graph = g.Clone()
	return nil
}

func (e *engineImpl) ensureNoRun() error {
	_, err := e.store.LoadRun()
	if err == nil {
		return cascadeerrors.ErrCascadeInProgress
	}
	if errors.Is(err, cascadeerrors.ErrNoCascadeRun) {
		return nil
	}
	return err
}

func (e *engineImpl) unlock() {
	if err := e.locker.Unlock(); err != nil {
		e.logger.Warn("failed to release work tree lock", "error", err)
	}
}

func (e *engineImpl) newDispatcher(size int) *syncDispatcher {
	if e.sync == nil {
		return nil
	}
	return newSyncDispatcher(e.sync, e.syncPolicy, e.logger, size+1)
}

// parentTip returns the graph tip of a managed parent or the VCS tip of a
// trunk, reading each trunk once per run
func (e *engineImpl) parentTip(g *graph.Graph, parent string, trunkTips map[string]string) (string, error) {
	if node, ok := g.Get(parent); ok && node.Tip != "" {
		return node.Tip, nil
	}
	if tip, ok := trunkTips[parent]; ok {
		return tip, nil
	}
	tip, err := e.vcs.Tip(parent)
	if err != nil {
		return "", fmt.Errorf("failed to read tip of %s: %w", parent, err)
	}
	trunkTips[parent] = tip
	return tip, nil
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

type noopLocker struct{}

func (noopLocker) Lock() error   { return nil }
func (noopLocker) Unlock() error { return nil }
