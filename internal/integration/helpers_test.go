package integration

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"

	"cascade.dev/cascade/internal/cli"
	"cascade.dev/cascade/testhelpers"
)

const (
	// mainBranchName is the name of the main/default trunk branch used in tests
	mainBranchName = "main"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// =============================================================================
// Test Shell - A helper to make integration tests read like terminal sessions
// =============================================================================

// TestShell wraps a test scene and provides a fluent interface for running
// commands. Commands run in-process through the cobra root command.
type TestShell struct {
	t          *testing.T
	scene      *testhelpers.Scene
	lastOutput string
	lastErr    error
}

// NewTestShell creates a shell-like test environment with an initialized repo.
// NOTE: uses t.Setenv, so shells cannot run in parallel tests.
func NewTestShell(t *testing.T) *TestShell {
	t.Helper()
	t.Setenv("CASCADE_NO_INTERACTIVE", "true")
	t.Setenv("CASCADE_LOG_FILE", "")

	scene := testhelpers.NewScene(t, func(s *testhelpers.Scene) error {
		return s.Repo.CreateChangeAndCommit("initial", "init")
	})
	shell := &TestShell{t: t, scene: scene}
	return shell.Run("init --trunk " + mainBranchName)
}

// Scene returns the underlying test scene for direct access when needed.
func (s *TestShell) Scene() *testhelpers.Scene {
	return s.scene
}

// =============================================================================
// Command Execution
// =============================================================================

func (s *TestShell) exec(args string) {
	var out bytes.Buffer
	cmd := cli.NewRootCmd("test", "none", "unknown")
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--cwd", s.scene.Dir}, splitArgs(args)...))
	s.lastErr = cmd.ExecuteContext(context.Background())
	s.lastOutput = out.String()
}

// Run executes a cascade command (e.g., "track --onto main")
func (s *TestShell) Run(args string) *TestShell {
	s.t.Helper()
	s.exec(args)
	require.NoError(s.t, s.lastErr, "$ cascade %s\n%s", args, s.lastOutput)
	return s
}

// RunExpectError executes a cascade command and expects it to fail.
func (s *TestShell) RunExpectError(args string) *TestShell {
	s.t.Helper()
	s.exec(args)
	require.Error(s.t, s.lastErr, "$ cascade %s (expected error)\n%s", args, s.lastOutput)
	return s
}

// ExitCode asserts the exit code the last command would have produced
func (s *TestShell) ExitCode(expected int) *TestShell {
	s.t.Helper()
	require.Equal(s.t, expected, cli.ExitCode(s.lastErr), "last error: %v", s.lastErr)
	return s
}

// Git executes a raw git command
func (s *TestShell) Git(args string) *TestShell {
	s.t.Helper()
	output, err := s.scene.Repo.RunGitCommandAndGetOutput(splitArgs(args)...)
	s.lastOutput = output
	require.NoError(s.t, err, "$ git %s\n%s", args, s.lastOutput)
	return s
}

// Checkout switches to an existing branch
func (s *TestShell) Checkout(branch string) *TestShell {
	s.t.Helper()
	return s.Git("checkout --quiet " + branch)
}

// Branch creates a branch from the current one, commits a change to
// <file>_test.txt and tracks it on parent
func (s *TestShell) Branch(name, parent, file string) *TestShell {
	s.t.Helper()
	return s.Git("checkout --quiet -b "+name).
		Commit(file, "Commit "+name).
		Run("track --onto " + parent)
}

// =============================================================================
// File Operations
// =============================================================================

// Amend modifies a file and amends the last commit using raw git
func (s *TestShell) Amend(filename, content string) *TestShell {
	s.t.Helper()
	err := s.scene.Repo.CreateChangeAndAmend(content, filename)
	require.NoError(s.t, err, "failed to amend with %s", filename)
	return s
}

// Commit creates a file change and commits it
func (s *TestShell) Commit(filename, message string) *TestShell {
	s.t.Helper()
	err := s.scene.Repo.CreateChangeAndCommit(message, filename)
	require.NoError(s.t, err, "failed to commit %s", filename)
	return s
}

// =============================================================================
// Output Inspection
// =============================================================================

// Output returns the last command's output
func (s *TestShell) Output() string {
	return s.lastOutput
}

// OutputContains asserts the last output contains the given string
func (s *TestShell) OutputContains(substr string) *TestShell {
	s.t.Helper()
	require.Contains(s.t, s.lastOutput, substr)
	return s
}

// OutputNotContains asserts the last output does NOT contain the given string
func (s *TestShell) OutputNotContains(substr string) *TestShell {
	s.t.Helper()
	require.NotContains(s.t, s.lastOutput, substr)
	return s
}

// =============================================================================
// Assertions
// =============================================================================

// OnBranch asserts we're on the expected branch
func (s *TestShell) OnBranch(expected string) *TestShell {
	s.t.Helper()
	branch, err := s.scene.Repo.CurrentBranchName()
	require.NoError(s.t, err)
	require.Equal(s.t, expected, branch)
	return s
}

// Contains asserts that descendant's history includes ancestor
func (s *TestShell) Contains(ancestor, descendant string) *TestShell {
	s.t.Helper()
	require.True(s.t, s.scene.Repo.IsAncestor(ancestor, descendant), "%s should contain %s", descendant, ancestor)
	return s
}

// NotContains asserts that descendant's history does not include ancestor
func (s *TestShell) NotContains(ancestor, descendant string) *TestShell {
	s.t.Helper()
	require.False(s.t, s.scene.Repo.IsAncestor(ancestor, descendant), "%s should not contain %s", descendant, ancestor)
	return s
}

// CommitCount asserts the number of commits between two refs
func (s *TestShell) CommitCount(from, to string, expected int) *TestShell {
	s.t.Helper()
	actual, err := s.scene.Repo.GetCommitCount(from, to)
	require.NoError(s.t, err)
	require.Equal(s.t, expected, actual, "expected %d commits between %s..%s, got %d", expected, from, to, actual)
	return s
}

// RebaseInProgress asserts whether git is stopped in a rebase
func (s *TestShell) RebaseInProgress(expected bool) *TestShell {
	s.t.Helper()
	require.Equal(s.t, expected, s.scene.Repo.RebaseInProgress())
	return s
}

// Log prints a message (useful for documenting test steps)
func (s *TestShell) Log(msg string) *TestShell {
	s.t.Log(msg)
	return s
}

// splitArgs splits a command string into args, respecting quotes
func splitArgs(s string) []string {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := rune(0)

	for _, r := range s {
		switch {
		case r == '"' || r == '\'':
			switch {
			case inQuote && r == quoteChar:
				inQuote = false
			case !inQuote:
				inQuote = true
				quoteChar = r
			default:
				current.WriteRune(r)
			}
		case r == ' ' && !inQuote:
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		args = append(args, current.String())
	}
	return args
}
