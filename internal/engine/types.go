package engine

import (
	"fmt"

	cascadeerrors "cascade.dev/cascade/internal/errors"
)

// RunState is the state of a cascade run
type RunState int

const (
	// RunBuilding means the queue is being computed
	RunBuilding RunState = iota
	// RunRunning means queued branches are being processed
	RunRunning
	// RunCompleted means every queued branch was processed
	RunCompleted
	// RunHalted means the run stopped at a branch and can be continued
	RunHalted
	// RunAborted means the run was discarded
	RunAborted
)

func (s RunState) String() string {
	switch s {
	case RunBuilding:
		return "building"
	case RunRunning:
		return "running"
	case RunCompleted:
		return "completed"
	case RunHalted:
		return "halted"
	case RunAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// HaltReason says why a run stopped
type HaltReason string

const (
	HaltConflict           HaltReason = "conflict"
	HaltAmbiguousForkPoint HaltReason = "ambiguous-fork-point"
	HaltError              HaltReason = "error"
)

// Run is a cascade in progress
type Run struct {
	Trigger string
	Queue   []string
	// Cursor is the index of the last completed queue entry, -1 before the first
	Cursor       int
	HaltedNode   string
	HaltedCommit string
	// HaltedOnto is the parent tip the halted step was replaying onto
	HaltedOnto string
	HaltedBase string
	Reason     HaltReason
	State      RunState
	// ReturnBranch was checked out when the run started
	ReturnBranch string
}

// Remaining returns the queue entries after the cursor
func (r *Run) Remaining() []string {
	if r.Cursor+1 >= len(r.Queue) {
		return []string{}
	}
	return append([]string(nil), r.Queue[r.Cursor+1:]...)
}

func (r *Run) clearHalt() {
	r.HaltedNode = ""
	r.HaltedCommit = ""
	r.HaltedOnto = ""
	r.HaltedBase = ""
	r.Reason = ""
}

// Outcome is the result of a cascade command
type Outcome int

const (
	// OutcomeCompleted means every queued branch was processed
	OutcomeCompleted Outcome = iota
	// OutcomeHalted means the run stopped on a conflict or ambiguity
	OutcomeHalted
	// OutcomeEmpty means the trigger has no tracked descendants
	OutcomeEmpty
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeHalted:
		return "halted"
	case OutcomeEmpty:
		return "empty"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// StepKind says what happened to one branch
type StepKind int

const (
	// StepReplayed means the branch's commits were re-applied onto its parent
	StepReplayed StepKind = iota
	// StepMoved means the branch had no commits of its own and was moved
	StepMoved
	// StepUpToDate means the branch already sat on its parent's tip
	StepUpToDate
	// StepResolved means a halted replay was finished externally
	StepResolved
)

func (k StepKind) String() string {
	switch k {
	case StepReplayed:
		return "replayed"
	case StepMoved:
		return "moved"
	case StepUpToDate:
		return "up to date"
	case StepResolved:
		return "resolved"
	default:
		return fmt.Sprintf("step(%d)", int(k))
	}
}

// StepRecord describes one processed branch
type StepRecord struct {
	Branch    string
	Kind      StepKind
	OldTip    string
	NewTip    string
	ForkPoint string
	Commits   int
}

// Result reports a cascade command
type Result struct {
	Outcome Outcome
	Run     *Run
	Steps   []StepRecord
	// Halt is set when Outcome is OutcomeHalted
	Halt         *cascadeerrors.CascadeHaltedError
	SyncFailures []error
}
