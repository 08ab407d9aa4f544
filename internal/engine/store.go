package engine

import (
	"encoding/json"
	"errors"

	"cascade.dev/cascade/internal/config"
	cascadeerrors "cascade.dev/cascade/internal/errors"
	"cascade.dev/cascade/internal/git"
	"cascade.dev/cascade/internal/graph"
)

// GitStore keeps the graph behind a ref in the repository and the run in
// the continuation file of the git directory
type GitStore struct {
	repo    *git.Repository
	isTrunk func(string) bool
}

// NewGitStore creates a store over repo
func NewGitStore(repo *git.Repository, isTrunk func(string) bool) *GitStore {
	return &GitStore{repo: repo, isTrunk: isTrunk}
}

// LoadGraph reads the graph, returning an empty one when none was saved
func (s *GitStore) LoadGraph() (*graph.Graph, error) {
	data, err := s.repo.ReadGraphBlob()
	if err != nil {
		return nil, cascadeerrors.NewPersistenceError("read branch graph", err)
	}
	g, err := graph.Unmarshal(data, s.isTrunk)
	if err != nil {
		return nil, cascadeerrors.NewPersistenceError("parse branch graph", err)
	}
	return g, nil
}

// SaveGraph replaces the stored graph with a single ref update
func (s *GitStore) SaveGraph(g *graph.Graph) error {
	data, err := json.Marshal(g)
	if err != nil {
		return cascadeerrors.NewPersistenceError("encode branch graph", err)
	}
	if err := s.repo.WriteGraphBlob(data); err != nil {
		return cascadeerrors.NewPersistenceError("write branch graph", err)
	}
	return nil
}

// LoadRun reads the persisted cascade run
func (s *GitStore) LoadRun() (*Run, error) {
	state, err := config.GetContinuationState(s.repo.GitDir())
	if err != nil {
		if errors.Is(err, config.ErrNoContinuationState) {
			return nil, cascadeerrors.ErrNoCascadeRun
		}
		return nil, cascadeerrors.NewPersistenceError("read cascade run", err)
	}
	return runFromState(state), nil
}

// SaveRun persists run
func (s *GitStore) SaveRun(run *Run) error {
	if err := config.PersistContinuationState(s.repo.GitDir(), stateFromRun(run)); err != nil {
		return cascadeerrors.NewPersistenceError("write cascade run", err)
	}
	return nil
}

// ClearRun removes the persisted run
func (s *GitStore) ClearRun() error {
	if err := config.ClearContinuationState(s.repo.GitDir()); err != nil {
		return cascadeerrors.NewPersistenceError("clear cascade run", err)
	}
	return nil
}

func stateFromRun(run *Run) *config.ContinuationState {
	return &config.ContinuationState{
		Trigger:      run.Trigger,
		Queue:        run.Queue,
		Cursor:       run.Cursor,
		HaltedNode:   run.HaltedNode,
		HaltedCommit: run.HaltedCommit,
		HaltedOnto:   run.HaltedOnto,
		HaltedBase:   run.HaltedBase,
		Reason:       string(run.Reason),

		CurrentBranchOverride: run.ReturnBranch,
	}
}

func runFromState(state *config.ContinuationState) *Run {
	run := &Run{
		Trigger:      state.Trigger,
		Queue:        state.Queue,
		Cursor:       state.Cursor,
		HaltedNode:   state.HaltedNode,
		HaltedCommit: state.HaltedCommit,
		HaltedOnto:   state.HaltedOnto,
		HaltedBase:   state.HaltedBase,
		Reason:       HaltReason(state.Reason),
		State:        RunRunning,
		ReturnBranch: state.CurrentBranchOverride,
	}
	if run.Queue == nil {
		run.Queue = []string{}
	}
	if run.HaltedNode != "" {
		run.State = RunHalted
	}
	return run
}

// MemoryStore keeps the graph and run in memory
type MemoryStore struct {
	graph   []byte
	run     *Run
	isTrunk func(string) bool
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(isTrunk func(string) bool) *MemoryStore {
	return &MemoryStore{isTrunk: isTrunk}
}

func (s *MemoryStore) LoadGraph() (*graph.Graph, error) {
	return graph.Unmarshal(s.graph, s.isTrunk)
}

func (s *MemoryStore) SaveGraph(g *graph.Graph) error {
	data, err := json.Marshal(g)
	if err != nil {
		return cascadeerrors.NewPersistenceError("encode branch graph", err)
	}
	s.graph = data
	return nil
}

func (s *MemoryStore) LoadRun() (*Run, error) {
	if s.run == nil {
		return nil, cascadeerrors.ErrNoCascadeRun
	}
	run := *s.run
	run.Queue = append([]string(nil), s.run.Queue...)
	return &run, nil
}

func (s *MemoryStore) SaveRun(run *Run) error {
	c := *run
	c.Queue = append([]string(nil), run.Queue...)
	s.run = &c
	return nil
}

func (s *MemoryStore) ClearRun() error {
	s.run = nil
	return nil
}
