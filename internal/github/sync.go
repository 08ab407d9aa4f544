package github

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/go-github/v62/github"

	"cascade.dev/cascade/internal/git"
	"cascade.dev/cascade/internal/graph"
)

// PRSync points pull requests at their branch's parent after a cascade step
type PRSync struct {
	client *github.Client
	owner  string
	repo   string
	logger *slog.Logger
}

// NewPRSync creates a PRSync for owner/repo
func NewPRSync(client *github.Client, owner, repo string, logger *slog.Logger) *PRSync {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PRSync{client: client, owner: owner, repo: repo, logger: logger}
}

// NewPRSyncForRepo creates a PRSync for the repository behind the origin remote
func NewPRSyncForRepo(ctx context.Context, repo *git.Repository, logger *slog.Logger) (*PRSync, error) {
	remoteURL, err := repo.RemoteURL("origin")
	if err != nil {
		return nil, fmt.Errorf("failed to get remote URL: %w", err)
	}
	info, err := ParseGitHubRemoteURL(remoteURL)
	if err != nil {
		return nil, err
	}
	token, err := Token(ctx, repo.Runner())
	if err != nil {
		return nil, err
	}
	client, err := NewClient(ctx, info.Hostname, token)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}
	return NewPRSync(client, info.Owner, info.Repo, logger), nil
}

// UpdateBase sets the base of the node's pull request to its parent branch.
// Closed pull requests and ones already based on the parent are left alone.
func (s *PRSync) UpdateBase(ctx context.Context, node graph.Node, newParentTip string) error {
	if node.ReviewRequestID == nil {
		return nil
	}
	number := *node.ReviewRequestID

	pr, _, err := s.client.PullRequests.Get(ctx, s.owner, s.repo, number)
	if err != nil {
		return fmt.Errorf("failed to get pull request #%d: %w", number, err)
	}
	if pr.GetState() == "closed" {
		s.logger.Debug("skipping closed pull request", "branch", node.Name, "pr", number)
		return nil
	}
	if pr.GetBase().GetRef() == node.Parent {
		return nil
	}

	update := &github.PullRequest{
		Base: &github.PullRequestBranch{Ref: github.String(node.Parent)},
	}
	if _, _, err := s.client.PullRequests.Edit(ctx, s.owner, s.repo, number, update); err != nil {
		return fmt.Errorf("failed to update base of pull request #%d: %w", number, err)
	}
	s.logger.Debug("updated pull request base", "branch", node.Name, "pr", number, "base", node.Parent, "parent_tip", newParentTip)
	return nil
}
