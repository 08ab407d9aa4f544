package actions

import (
	"fmt"
	"io"
	"slices"

	"cascade.dev/cascade/internal/config"
	"cascade.dev/cascade/internal/engine"
	"cascade.dev/cascade/internal/git"
	"cascade.dev/cascade/internal/tui"
)

// InitOptions contains options for the init command
type InitOptions struct {
	Dir    string
	Trunk  string
	GitHub bool
	Out    io.Writer
}

// InitAction writes the repo config. It runs before a runtime context can
// exist, so it opens the repository itself.
func InitAction(opts InitOptions) error {
	repo, err := git.OpenRepository(opts.Dir)
	if err != nil {
		return err
	}
	splog := tui.NewSplog(opts.Out, false)

	trunk := opts.Trunk
	if trunk == "" {
		trunk = config.DefaultTrunk
	}
	if !repo.BranchExists(trunk) {
		return fmt.Errorf("trunk branch %s does not exist", trunk)
	}

	cfg, err := config.GetRepoConfig(repo.GitDir())
	if err != nil {
		return err
	}
	// Stacks already rooted on the old trunks keep their base.
	g, err := engine.NewGitStore(repo, cfg.IsTrunk).LoadGraph()
	if err != nil {
		return err
	}
	if g.Has(trunk) {
		return fmt.Errorf("branch %s is tracked; untrack it before making it the trunk", trunk)
	}
	var kept []string
	for _, base := range g.Trunks() {
		if base != trunk {
			kept = append(kept, base)
		}
	}
	for _, t := range cfg.Trunks {
		if t != trunk && !slices.Contains(kept, t) {
			kept = append(kept, t)
		}
	}

	cfg.Trunk = &trunk
	cfg.Trunks = kept
	enabled := opts.GitHub
	cfg.IsGithubIntegrationEnabled = &enabled
	if err := config.SaveRepoConfig(repo.GitDir(), cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	splog.Info("Initialized cascade with trunk %s.", tui.ColorBranchName(trunk, false))
	for _, t := range kept {
		splog.Info("Keeping %s as an additional trunk.", tui.ColorBranchName(t, false))
	}
	return nil
}
