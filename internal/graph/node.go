package graph

import "fmt"

// Status is the cascade state of a managed branch
type Status int

const (
	// StatusClean means the branch contains its parent's tip at its fork point
	StatusClean Status = iota
	// StatusPendingCascade means the branch still has to be replayed onto its parent
	StatusPendingCascade
	// StatusConflicted means the cascade halted on this branch
	StatusConflicted
)

func (s Status) String() string {
	switch s {
	case StatusClean:
		return "clean"
	case StatusPendingCascade:
		return "pending-cascade"
	case StatusConflicted:
		return "conflicted"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler
func (s Status) MarshalText() ([]byte, error) {
	switch s {
	case StatusClean, StatusPendingCascade, StatusConflicted:
		return []byte(s.String()), nil
	default:
		return nil, fmt.Errorf("unknown branch status %d", int(s))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "clean", "":
		*s = StatusClean
	case "pending-cascade":
		*s = StatusPendingCascade
	case "conflicted":
		*s = StatusConflicted
	default:
		return fmt.Errorf("unknown branch status %q", string(text))
	}
	return nil
}

// Node is a managed branch
type Node struct {
	Name   string
	Parent string
	Tip    string
	// ForkPoint is the parent commit the branch was last synced onto.
	// Empty until first resolved.
	ForkPoint       string
	ReviewRequestID *int
	Status          Status
}

// HasReviewRequest reports whether a pull request is linked to the branch
func (n Node) HasReviewRequest() bool {
	return n.ReviewRequestID != nil
}
