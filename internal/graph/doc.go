// Package graph holds the branch dependency graph: the forest of managed
// branches, each stacked on another managed branch or on a trunk.
//
// The graph enforces its own invariants. Edits that would create a cycle,
// point at an unknown parent or orphan children are rejected before any
// state changes, and at most one node may be conflicted at a time.
//
// Graph is not safe for concurrent use; the engine serializes access.
package graph
