package testhelpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-github/v62/github"
)

// MockGitHubServerConfig configures the behavior of a mock GitHub server
type MockGitHubServerConfig struct {
	mu sync.Mutex

	// PRs maps pull request numbers to their current state
	PRs map[int]*github.PullRequest
	// BaseEdits records every base ref set through PATCH, in order
	BaseEdits []BaseEdit
	// FailStatus makes requests for a pull request answer with this status
	FailStatus map[int]int
	Owner      string
	Repo       string
}

// BaseEdit is one recorded base change
type BaseEdit struct {
	Number int
	Base   string
}

// NewMockGitHubServerConfig creates a new mock server config with defaults
func NewMockGitHubServerConfig() *MockGitHubServerConfig {
	return &MockGitHubServerConfig{
		PRs:        make(map[int]*github.PullRequest),
		FailStatus: make(map[int]int),
		Owner:      "owner",
		Repo:       "repo",
	}
}

// AddPR registers a pull request with the mock server
func (c *MockGitHubServerConfig) AddPR(pr *github.PullRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.PRs[pr.GetNumber()] = pr
}

// Edits returns the recorded base changes
func (c *MockGitHubServerConfig) Edits() []BaseEdit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]BaseEdit(nil), c.BaseEdits...)
}

// NewMockGitHubServer creates an httptest server that serves
// GET and PATCH /repos/{owner}/{repo}/pulls/{number}
func NewMockGitHubServer(t *testing.T, config *MockGitHubServerConfig) *httptest.Server {
	t.Helper()
	if config == nil {
		config = NewMockGitHubServerConfig()
	}

	prefix := "/repos/" + config.Owner + "/" + config.Repo + "/pulls/"
	mux := http.NewServeMux()
	mux.HandleFunc(prefix, func(w http.ResponseWriter, r *http.Request) {
		number, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, prefix))
		if err != nil {
			http.Error(w, "bad pull request number", http.StatusNotFound)
			return
		}

		config.mu.Lock()
		defer config.mu.Unlock()

		if status, ok := config.FailStatus[number]; ok {
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": http.StatusText(status)})
			return
		}
		pr, ok := config.PRs[number]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "Not Found"})
			return
		}

		switch r.Method {
		case http.MethodGet:
		case http.MethodPatch:
			var body struct {
				Base *string `json:"base"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if body.Base != nil {
				pr.Base = &github.PullRequestBranch{Ref: github.String(*body.Base)}
				config.BaseEdits = append(config.BaseEdits, BaseEdit{Number: number, Base: *body.Base})
			}
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(pr)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// NewMockGitHubClient creates a GitHub client configured to use a mock server
func NewMockGitHubClient(t *testing.T, config *MockGitHubServerConfig) (*github.Client, string, string) {
	t.Helper()
	server := NewMockGitHubServer(t, config)
	client := github.NewClient(nil)
	baseURL, _ := url.Parse(server.URL + "/")
	client.BaseURL = baseURL
	client.UploadURL = baseURL
	return client, config.Owner, config.Repo
}
