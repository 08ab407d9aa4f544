package testhelpers

import (
	"context"
	"sync"
	"time"

	"cascade.dev/cascade/internal/graph"
)

// PRUpdate is one recorded review base update
type PRUpdate struct {
	Branch    string
	Parent    string
	PRNumber  int
	ParentTip string
}

// FakePRSync records review base updates
type FakePRSync struct {
	mu      sync.Mutex
	updates []PRUpdate
	calls   int

	// Err is returned by every call when set
	Err error
	// FailTimes fails the first n calls for a branch with Err
	FailTimes map[string]int
	// Delay makes each call wait, honoring the context
	Delay time.Duration
}

// NewFakePRSync creates a recorder that always succeeds
func NewFakePRSync() *FakePRSync {
	return &FakePRSync{FailTimes: make(map[string]int)}
}

func (f *FakePRSync) UpdateBase(ctx context.Context, node graph.Node, newParentTip string) error {
	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			f.mu.Lock()
			f.calls++
			f.mu.Unlock()
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.Err != nil {
		if n, limited := f.FailTimes[node.Name]; !limited || n > 0 {
			if limited {
				f.FailTimes[node.Name] = n - 1
			}
			return f.Err
		}
	}
	number := 0
	if node.ReviewRequestID != nil {
		number = *node.ReviewRequestID
	}
	f.updates = append(f.updates, PRUpdate{
		Branch:    node.Name,
		Parent:    node.Parent,
		PRNumber:  number,
		ParentTip: newParentTip,
	})
	return nil
}

// Updates returns the successful updates in call order
func (f *FakePRSync) Updates() []PRUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]PRUpdate(nil), f.updates...)
}

// Calls returns the number of attempts, failed ones included
func (f *FakePRSync) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
