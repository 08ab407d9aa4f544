// Package actions provides high-level business logic for CLI commands.
//
// Each action corresponds to a cascade command (track, restack, continue,
// abort, ...) and orchestrates the engine, the git repository and the tui.
//
// Key patterns:
//   - Actions accept runtime.Context which provides Engine, Repo and Splog
//   - Graph changes go through Engine.Edit so they are persisted atomically
//   - Cascades go through Engine.Restack/Resume/Abort; actions only report
package actions
