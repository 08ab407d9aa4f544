package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	cascadeerrors "cascade.dev/cascade/internal/errors"
	"cascade.dev/cascade/internal/graph"
)

// SyncPolicy bounds review system updates
type SyncPolicy struct {
	Timeout      time.Duration // per call
	Retries      int
	Backoff      time.Duration // wait before retry n is n*Backoff
	DrainTimeout time.Duration // how long a command waits for queued updates
}

// DefaultSyncPolicy is used for zero fields of a SyncPolicy
var DefaultSyncPolicy = SyncPolicy{
	Timeout:      10 * time.Second,
	Retries:      2,
	Backoff:      500 * time.Millisecond,
	DrainTimeout: 30 * time.Second,
}

func (p SyncPolicy) withDefaults() SyncPolicy {
	if p.Timeout <= 0 {
		p.Timeout = DefaultSyncPolicy.Timeout
	}
	if p.Retries < 0 {
		p.Retries = 0
	}
	if p.Backoff <= 0 {
		p.Backoff = DefaultSyncPolicy.Backoff
	}
	if p.DrainTimeout <= 0 {
		p.DrainTimeout = DefaultSyncPolicy.DrainTimeout
	}
	return p
}

type syncJob struct {
	node      graph.Node
	parentTip string
}

// syncDispatcher runs review updates on a background worker so a slow review
// system never stalls the cascade
type syncDispatcher struct {
	adapter PRSyncAdapter
	policy  SyncPolicy
	logger  *slog.Logger

	jobs   chan syncJob
	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	failures []error
	closed   bool
}

func newSyncDispatcher(adapter PRSyncAdapter, policy SyncPolicy, logger *slog.Logger, capacity int) *syncDispatcher {
	if capacity < 1 {
		capacity = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)
	d := &syncDispatcher{
		adapter: adapter,
		policy:  policy.withDefaults(),
		logger:  logger,
		jobs:    make(chan syncJob, capacity),
		group:   group,
		ctx:     ctx,
		cancel:  cancel,
	}
	group.Go(d.work)
	return d
}

// enqueue schedules an update. It never blocks the caller: when the buffer is
// full the update is recorded as failed.
func (d *syncDispatcher) enqueue(node graph.Node, parentTip string) {
	if d == nil || d.adapter == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	select {
	case d.jobs <- syncJob{node: node, parentTip: parentTip}:
	default:
		d.failures = append(d.failures, cascadeerrors.NewSyncError(node.Name, fmt.Errorf("sync queue full")))
	}
}

func (d *syncDispatcher) work() error {
	for job := range d.jobs {
		if err := d.deliver(job); err != nil {
			d.logger.Warn("review update failed", "branch", job.node.Name, "error", err)
			d.mu.Lock()
			d.failures = append(d.failures, cascadeerrors.NewSyncError(job.node.Name, err))
			d.mu.Unlock()
		}
	}
	return nil
}

func (d *syncDispatcher) deliver(job syncJob) error {
	var err error
	for attempt := 0; attempt <= d.policy.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * d.policy.Backoff):
			case <-d.ctx.Done():
				return fmt.Errorf("%w (gave up after %d attempts)", err, attempt)
			}
		}
		ctx, cancel := context.WithTimeout(d.ctx, d.policy.Timeout)
		err = d.adapter.UpdateBase(ctx, job.node, job.parentTip)
		cancel()
		if err == nil {
			d.logger.Debug("updated review base", "branch", job.node.Name, "parent", job.node.Parent)
			return nil
		}
		d.logger.Debug("review update attempt failed", "branch", job.node.Name, "attempt", attempt+1, "error", err)
	}
	return err
}

// drain stops accepting updates and waits for queued ones to finish, up to
// the drain timeout. It returns every failure recorded.
func (d *syncDispatcher) drain() []error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = d.group.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(d.policy.DrainTimeout):
		d.cancel()
		<-done
		d.mu.Lock()
		d.failures = append(d.failures, fmt.Errorf("%w: review updates still pending after %s", cascadeerrors.ErrSync, d.policy.DrainTimeout))
		d.mu.Unlock()
	}
	d.cancel()

	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]error(nil), d.failures...)
}
