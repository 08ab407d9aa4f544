package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"
)

// RepoConfigFileName is the repo config file inside the git directory
const RepoConfigFileName = ".cascade_config"

// Defaults applied when a setting is absent
const (
	DefaultTrunk              = "main"
	DefaultSyncTimeoutSeconds = 10
	DefaultSyncRetries        = 2
	DefaultSyncDrainSeconds   = 30
)

// RepoConfig represents the repository configuration
type RepoConfig struct {
	Trunk                      *string  `json:"trunk,omitempty"`
	Trunks                     []string `json:"trunks,omitempty"`
	IsGithubIntegrationEnabled *bool    `json:"isGithubIntegrationEnabled,omitempty"`
	ForkPointMaxDrift          *int     `json:"forkPointMaxDrift,omitempty"`
	SyncTimeoutSeconds         *int     `json:"syncTimeoutSeconds,omitempty"`
	SyncRetries                *int     `json:"syncRetries,omitempty"`
	SyncDrainSeconds           *int     `json:"syncDrainSeconds,omitempty"`
	PromoteChildrenOnRemove    *bool    `json:"promoteChildrenOnRemove,omitempty"`
}

func repoConfigPath(gitDir string) string {
	return filepath.Join(gitDir, RepoConfigFileName)
}

// GetRepoConfig reads the repository configuration. A missing file yields an
// empty config.
func GetRepoConfig(gitDir string) (*RepoConfig, error) {
	data, err := os.ReadFile(repoConfigPath(gitDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &RepoConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read repo config: %w", err)
	}

	var config RepoConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse repo config: %w", err)
	}
	return &config, nil
}

// SaveRepoConfig writes the repository configuration
func SaveRepoConfig(gitDir string, config *RepoConfig) error {
	configJSON, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(repoConfigPath(gitDir), configJSON, 0600)
}

// IsInitialized checks if cascade has been initialized in the repository
func IsInitialized(gitDir string) bool {
	config, err := GetRepoConfig(gitDir)
	if err != nil {
		return false
	}
	return config.Trunk != nil && *config.Trunk != ""
}

// SetTrunk updates the primary trunk in the config
func SetTrunk(gitDir string, trunkName string) error {
	config, err := GetRepoConfig(gitDir)
	if err != nil {
		config = &RepoConfig{}
	}

	config.Trunk = &trunkName
	if config.IsGithubIntegrationEnabled == nil {
		enabled := false
		config.IsGithubIntegrationEnabled = &enabled
	}
	return SaveRepoConfig(gitDir, config)
}

// AddTrunk adds an additional trunk branch to the config
func AddTrunk(gitDir string, trunkName string) error {
	config, err := GetRepoConfig(gitDir)
	if err != nil {
		return err
	}
	if config.Trunk != nil && *config.Trunk == trunkName {
		return fmt.Errorf("'%s' is already the primary trunk", trunkName)
	}
	if slices.Contains(config.Trunks, trunkName) {
		return fmt.Errorf("'%s' is already configured as a trunk", trunkName)
	}
	config.Trunks = append(config.Trunks, trunkName)
	return SaveRepoConfig(gitDir, config)
}

// PrimaryTrunk returns the primary trunk branch name, or "main" as default
func (c *RepoConfig) PrimaryTrunk() string {
	if c.Trunk != nil && *c.Trunk != "" {
		return *c.Trunk
	}
	return DefaultTrunk
}

// AllTrunks returns the primary trunk followed by any additional trunks
func (c *RepoConfig) AllTrunks() []string {
	trunks := []string{c.PrimaryTrunk()}
	for _, t := range c.Trunks {
		if t != "" && !slices.Contains(trunks, t) {
			trunks = append(trunks, t)
		}
	}
	return trunks
}

// IsTrunk checks if a branch is configured as a trunk
func (c *RepoConfig) IsTrunk(branchName string) bool {
	return slices.Contains(c.AllTrunks(), branchName)
}

// GitHubEnabled reports whether pull request bases should be kept in sync
func (c *RepoConfig) GitHubEnabled() bool {
	return c.IsGithubIntegrationEnabled != nil && *c.IsGithubIntegrationEnabled
}

// MaxDrift returns the fork point drift limit; zero disables the check
func (c *RepoConfig) MaxDrift() int {
	if c.ForkPointMaxDrift != nil && *c.ForkPointMaxDrift > 0 {
		return *c.ForkPointMaxDrift
	}
	return 0
}

// SyncTimeout returns the per-call timeout for review updates
func (c *RepoConfig) SyncTimeout() time.Duration {
	return seconds(c.SyncTimeoutSeconds, DefaultSyncTimeoutSeconds)
}

// SyncDrainTimeout returns how long a command waits for pending review updates
func (c *RepoConfig) SyncDrainTimeout() time.Duration {
	return seconds(c.SyncDrainSeconds, DefaultSyncDrainSeconds)
}

// SyncRetryCount returns how many times a failed review update is retried
func (c *RepoConfig) SyncRetryCount() int {
	if c.SyncRetries != nil && *c.SyncRetries >= 0 {
		return *c.SyncRetries
	}
	return DefaultSyncRetries
}

// PromoteOnRemove reports whether untracking re-parents children by default
func (c *RepoConfig) PromoteOnRemove() bool {
	return c.PromoteChildrenOnRemove != nil && *c.PromoteChildrenOnRemove
}

func seconds(v *int, def int) time.Duration {
	if v != nil && *v > 0 {
		return time.Duration(*v) * time.Second
	}
	return time.Duration(def) * time.Second
}
