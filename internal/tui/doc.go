// Package tui provides the terminal output layer for cascade.
//
// It handles:
//   - Structured logging and status reporting (Splog)
//   - Rendering the branch graph as a tree (using lipgloss)
//   - Confirmation prompts (using survey) gated on a real terminal
package tui
