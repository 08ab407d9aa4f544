package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ContinuationFileName is the persisted cascade run inside the git directory
const ContinuationFileName = ".cascade_run"

// ErrNoContinuationState is returned when no cascade run is persisted
var ErrNoContinuationState = errors.New("no continuation state found")

// ContinuationState is the persisted form of a cascade run that has not finished
type ContinuationState struct {
	Trigger      string   `json:"trigger"`
	Queue        []string `json:"queue"`
	Cursor       int      `json:"cursor"`
	HaltedNode   string   `json:"haltedNode,omitempty"`
	HaltedCommit string   `json:"haltedCommit,omitempty"`
	HaltedOnto   string   `json:"haltedOnto,omitempty"`
	HaltedBase   string   `json:"haltedBase,omitempty"`
	Reason       string   `json:"reason,omitempty"`
	// CurrentBranchOverride is the branch to check out once the run completes
	CurrentBranchOverride string `json:"currentBranchOverride,omitempty"`
}

func continuationPath(gitDir string) string {
	return filepath.Join(gitDir, ContinuationFileName)
}

// GetContinuationState reads the continuation state from disk
func GetContinuationState(gitDir string) (*ContinuationState, error) {
	data, err := os.ReadFile(continuationPath(gitDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoContinuationState
		}
		return nil, fmt.Errorf("failed to read continuation state: %w", err)
	}

	var state ContinuationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse continuation state: %w", err)
	}
	return &state, nil
}

// HasContinuationState reports whether a continuation file exists
func HasContinuationState(gitDir string) bool {
	_, err := os.Stat(continuationPath(gitDir))
	return err == nil
}

// PersistContinuationState writes the continuation state to disk. The file is
// replaced atomically so a crash never leaves a partial run behind.
func PersistContinuationState(gitDir string, state *ContinuationState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal continuation state: %w", err)
	}

	tmp, err := os.CreateTemp(gitDir, ContinuationFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create continuation state: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write continuation state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write continuation state: %w", err)
	}
	if err := os.Rename(tmpName, continuationPath(gitDir)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to persist continuation state: %w", err)
	}
	return nil
}

// ClearContinuationState removes the continuation state file
func ClearContinuationState(gitDir string) error {
	err := os.Remove(continuationPath(gitDir))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear continuation state: %w", err)
	}
	return nil
}
