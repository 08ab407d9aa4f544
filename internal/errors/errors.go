// Package errors provides sentinel errors and custom error types for cascade.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common conditions
var (
	// ErrNotOnBranch indicates that HEAD is not on a branch
	ErrNotOnBranch = errors.New("not on a branch")

	// ErrBranchNotFound indicates that a branch does not exist
	ErrBranchNotFound = errors.New("branch not found")

	// ErrBranchAlreadyTracked indicates that a branch is already part of the graph
	ErrBranchAlreadyTracked = errors.New("branch already tracked")

	// ErrTrunkOperation indicates an invalid operation on a trunk branch
	ErrTrunkOperation = errors.New("invalid operation on trunk branch")

	// ErrCyclicDependency indicates that a graph edit would make a branch its own ancestor
	ErrCyclicDependency = errors.New("cyclic dependency")

	// ErrUnknownParent indicates that a parent is neither tracked nor a trunk
	ErrUnknownParent = errors.New("unknown parent")

	// ErrDanglingChildren indicates that a branch cannot be removed while it has children
	ErrDanglingChildren = errors.New("dangling children")

	// ErrAmbiguousForkPoint indicates that fork point heuristics disagree
	ErrAmbiguousForkPoint = errors.New("ambiguous fork point")

	// ErrReplayConflict indicates that replaying commits onto a new base hit a conflict
	ErrReplayConflict = errors.New("replay conflict")

	// ErrUnresolvedConflict indicates that a halted cascade was resumed before its conflict was resolved
	ErrUnresolvedConflict = errors.New("unresolved conflict")

	// ErrConflictInProgress indicates that another branch is already conflicted
	ErrConflictInProgress = errors.New("another branch is already conflicted")

	// ErrCascadeHalted indicates that a cascade stopped and can be continued
	ErrCascadeHalted = errors.New("cascade halted")

	// ErrCascadeInProgress indicates that a persisted cascade run is waiting to be continued or aborted
	ErrCascadeInProgress = errors.New("a cascade is already in progress")

	// ErrNoCascadeRun indicates that there is no persisted cascade run
	ErrNoCascadeRun = errors.New("no cascade in progress")

	// ErrWorkTreeBusy indicates that another process holds the work tree lock
	ErrWorkTreeBusy = errors.New("work tree is locked by another cascade")

	// ErrSync indicates that the review system could not be updated
	ErrSync = errors.New("review sync failed")

	// ErrPersistence indicates that graph or run state could not be read or written
	ErrPersistence = errors.New("persistence failure")
)

// BranchNotFoundError represents an error when a branch is not found
type BranchNotFoundError struct {
	BranchName string
}

func (e *BranchNotFoundError) Error() string {
	return fmt.Sprintf("branch %s does not exist", e.BranchName)
}

// Is returns true if the target error is ErrBranchNotFound
func (e *BranchNotFoundError) Is(target error) bool {
	return target == ErrBranchNotFound
}

// NewBranchNotFoundError creates a new BranchNotFoundError
func NewBranchNotFoundError(branchName string) *BranchNotFoundError {
	return &BranchNotFoundError{BranchName: branchName}
}

// CyclicDependencyError reports a parent assignment that would close a cycle
type CyclicDependencyError struct {
	BranchName string
	ParentName string
}

func (e *CyclicDependencyError) Error() string {
	if e.BranchName == e.ParentName {
		return fmt.Sprintf("branch %s cannot be stacked on itself", e.BranchName)
	}
	return fmt.Sprintf("stacking %s on %s would create a cycle: %s is a descendant of %s",
		e.BranchName, e.ParentName, e.ParentName, e.BranchName)
}

// Is returns true if the target error is ErrCyclicDependency
func (e *CyclicDependencyError) Is(target error) bool {
	return target == ErrCyclicDependency
}

// NewCyclicDependencyError creates a new CyclicDependencyError
func NewCyclicDependencyError(branchName, parentName string) *CyclicDependencyError {
	return &CyclicDependencyError{BranchName: branchName, ParentName: parentName}
}

// UnknownParentError reports a parent that is neither tracked nor a trunk
type UnknownParentError struct {
	BranchName string
	ParentName string
}

func (e *UnknownParentError) Error() string {
	return fmt.Sprintf("parent branch %s of %s is not tracked and is not a trunk", e.ParentName, e.BranchName)
}

// Is returns true if the target error is ErrUnknownParent
func (e *UnknownParentError) Is(target error) bool {
	return target == ErrUnknownParent
}

// NewUnknownParentError creates a new UnknownParentError
func NewUnknownParentError(branchName, parentName string) *UnknownParentError {
	return &UnknownParentError{BranchName: branchName, ParentName: parentName}
}

// DanglingChildrenError reports a removal that would orphan children
type DanglingChildrenError struct {
	BranchName string
	Children   []string
}

func (e *DanglingChildrenError) Error() string {
	return fmt.Sprintf("cannot remove %s: reparent its children first (%s)", e.BranchName, strings.Join(e.Children, ", "))
}

// Is returns true if the target error is ErrDanglingChildren
func (e *DanglingChildrenError) Is(target error) bool {
	return target == ErrDanglingChildren
}

// NewDanglingChildrenError creates a new DanglingChildrenError
func NewDanglingChildrenError(branchName string, children []string) *DanglingChildrenError {
	return &DanglingChildrenError{BranchName: branchName, Children: children}
}

// AmbiguousForkPointError reports disagreeing fork point candidates
type AmbiguousForkPointError struct {
	BranchName string
	Candidates []string
}

func (e *AmbiguousForkPointError) Error() string {
	short := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		short[i] = ShortSHA(c)
	}
	return fmt.Sprintf("ambiguous fork point for %s: candidates %s", e.BranchName, strings.Join(short, ", "))
}

// Is returns true if the target error is ErrAmbiguousForkPoint
func (e *AmbiguousForkPointError) Is(target error) bool {
	return target == ErrAmbiguousForkPoint
}

// NewAmbiguousForkPointError creates a new AmbiguousForkPointError
func NewAmbiguousForkPointError(branchName string, candidates ...string) *AmbiguousForkPointError {
	return &AmbiguousForkPointError{BranchName: branchName, Candidates: candidates}
}

// ReplayConflictError represents a conflict while replaying a branch onto a new base
type ReplayConflictError struct {
	BranchName string
	Commit     string // commit that failed to apply
	Index      int    // position of Commit in the replayed set, 0-based
	Message    string
}

func (e *ReplayConflictError) Error() string {
	msg := fmt.Sprintf("replay conflict on branch %s", e.BranchName)
	if e.Commit != "" {
		msg += fmt.Sprintf(" at commit %s", ShortSHA(e.Commit))
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Is returns true if the target error is ErrReplayConflict
func (e *ReplayConflictError) Is(target error) bool {
	return target == ErrReplayConflict
}

// NewReplayConflictError creates a new ReplayConflictError
func NewReplayConflictError(branchName, commit string, index int) *ReplayConflictError {
	return &ReplayConflictError{
		BranchName: branchName,
		Commit:     commit,
		Index:      index,
	}
}

// UnresolvedConflictError is returned when continuing before a conflict is resolved
type UnresolvedConflictError struct {
	BranchName string
}

func (e *UnresolvedConflictError) Error() string {
	return fmt.Sprintf("conflict on %s is not resolved yet", e.BranchName)
}

// Is returns true if the target error is ErrUnresolvedConflict
func (e *UnresolvedConflictError) Is(target error) bool {
	return target == ErrUnresolvedConflict
}

// NewUnresolvedConflictError creates a new UnresolvedConflictError
func NewUnresolvedConflictError(branchName string) *UnresolvedConflictError {
	return &UnresolvedConflictError{BranchName: branchName}
}

// CascadeHaltedError reports a cascade that stopped at a branch and can be continued
type CascadeHaltedError struct {
	BranchName string
	Commit     string
	Reason     string
	Err        error
}

func (e *CascadeHaltedError) Error() string {
	msg := fmt.Sprintf("cascade halted at %s", e.BranchName)
	if e.Commit != "" {
		msg += fmt.Sprintf(" (commit %s)", ShortSHA(e.Commit))
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Is returns true if the target error is ErrCascadeHalted
func (e *CascadeHaltedError) Is(target error) bool {
	return target == ErrCascadeHalted
}

func (e *CascadeHaltedError) Unwrap() error {
	return e.Err
}

// SyncError wraps a failure reported by the review system
type SyncError struct {
	BranchName string
	Err        error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("failed to update review base for %s: %v", e.BranchName, e.Err)
}

// Is returns true if the target error is ErrSync
func (e *SyncError) Is(target error) bool {
	return target == ErrSync
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// NewSyncError creates a new SyncError
func NewSyncError(branchName string, err error) *SyncError {
	return &SyncError{BranchName: branchName, Err: err}
}

// PersistenceError wraps a failure reading or writing persisted state
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

// Is returns true if the target error is ErrPersistence
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewPersistenceError creates a new PersistenceError
func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}

// GitCommandError represents an error from a git command execution
type GitCommandError struct {
	Command string
	Args    []string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *GitCommandError) Error() string {
	msg := fmt.Sprintf("git command failed: %s", e.Command)
	if len(e.Args) > 0 {
		msg += fmt.Sprintf(" %v", e.Args)
	}
	if e.Stderr != "" {
		msg += fmt.Sprintf("\nstderr: %s", e.Stderr)
	}
	if e.Stdout != "" {
		msg += fmt.Sprintf("\nstdout: %s", e.Stdout)
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n%v", e.Err)
	}
	return msg
}

func (e *GitCommandError) Unwrap() error {
	return e.Err
}

// NewGitCommandError creates a new GitCommandError
func NewGitCommandError(command string, args []string, stdout, stderr string, err error) *GitCommandError {
	return &GitCommandError{
		Command: command,
		Args:    args,
		Stdout:  stdout,
		Stderr:  stderr,
		Err:     err,
	}
}

// ShortSHA abbreviates a commit id for messages
func ShortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
