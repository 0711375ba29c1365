package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/BrainStation-23/learnathon-leaderboard/internal/types"
	"golang.org/x/time/rate"
)

const defaultGitHubBaseURL = "https://api.github.com"

// gitHubRepo is the subset of the repository payload the dashboard needs
type gitHubRepo struct {
	Name      string `json:"name"`
	FullName  string `json:"full_name"`
	HTMLURL   string `json:"html_url"`
	UpdatedAt string `json:"updated_at"`
	PushedAt  string `json:"pushed_at"`
}

// gitHubContributor mirrors one entry of the contributors listing
type gitHubContributor struct {
	Login         string `json:"login"`
	ID            int64  `json:"id"`
	AvatarURL     string `json:"avatar_url"`
	Contributions int    `json:"contributions"`
}

// gitHubCommit mirrors one entry of the commits listing
type gitHubCommit struct {
	SHA    string `json:"sha"`
	Commit struct {
		Author struct {
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
	Author *struct {
		Login string `json:"login"`
	} `json:"author"`
}

// RepoInfo is the repository metadata returned to callers
type RepoInfo struct {
	Name        string
	FullName    string
	HTMLURL     string
	LastUpdated time.Time
}

// GitHubAdapter fetches repository metadata, contributors and commits from
// the GitHub REST API. Requests are throttled client-side to stay inside
// the API quota when refreshing a whole cohort.
type GitHubAdapter struct {
	token   string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewGitHubAdapter creates a GitHub adapter with client-side throttling
func NewGitHubAdapter(token string) *GitHubAdapter {
	return &GitHubAdapter{
		token:   token,
		baseURL: defaultGitHubBaseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		// GitHub allows 5000 authenticated requests per hour; one per
		// second with a small burst keeps a cohort refresh inside it.
		limiter: rate.NewLimiter(rate.Limit(1), 5),
	}
}

// NewGitHubAdapterWithBaseURL creates an adapter against a custom API base,
// used by tests and GitHub Enterprise installs.
func NewGitHubAdapterWithBaseURL(token, baseURL string) *GitHubAdapter {
	adapter := NewGitHubAdapter(token)
	adapter.baseURL = baseURL
	adapter.limiter = rate.NewLimiter(rate.Inf, 1)
	return adapter
}

// FetchRepo fetches repository metadata
func (g *GitHubAdapter) FetchRepo(ctx context.Context, owner, repo string) (*RepoInfo, error) {
	url := fmt.Sprintf("%s/repos/%s/%s", g.baseURL, owner, repo)

	var repoData gitHubRepo
	if err := g.getJSON(ctx, url, &repoData); err != nil {
		return nil, fmt.Errorf("failed to fetch repo data: %w", err)
	}

	info := &RepoInfo{
		Name:     repoData.Name,
		FullName: repoData.FullName,
		HTMLURL:  repoData.HTMLURL,
	}

	// pushed_at tracks code activity; updated_at also moves on stars and
	// settings changes, so prefer the former when present.
	if ts, err := time.Parse(time.RFC3339, repoData.PushedAt); err == nil {
		info.LastUpdated = ts
	} else if ts, err := time.Parse(time.RFC3339, repoData.UpdatedAt); err == nil {
		info.LastUpdated = ts
	}

	return info, nil
}

// FetchContributors fetches the contributor list with contribution counts
func (g *GitHubAdapter) FetchContributors(ctx context.Context, owner, repo string) ([]types.Contributor, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/contributors?per_page=100", g.baseURL, owner, repo)

	var raw []gitHubContributor
	if err := g.getJSON(ctx, url, &raw); err != nil {
		return nil, fmt.Errorf("failed to fetch contributors: %w", err)
	}

	contributors := make([]types.Contributor, 0, len(raw))
	for _, c := range raw {
		contributors = append(contributors, types.Contributor{
			Login:         c.Login,
			ID:            c.ID,
			AvatarURL:     c.AvatarURL,
			Contributions: c.Contributions,
		})
	}

	return contributors, nil
}

// FetchCommits fetches commits since the given time. The zero time fetches
// the default listing.
func (g *GitHubAdapter) FetchCommits(ctx context.Context, owner, repo string, since time.Time) ([]types.RawCommit, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/commits?per_page=100", g.baseURL, owner, repo)
	if !since.IsZero() {
		url += "&since=" + since.UTC().Format(time.RFC3339)
	}

	var raw []gitHubCommit
	if err := g.getJSON(ctx, url, &raw); err != nil {
		return nil, fmt.Errorf("failed to fetch commits: %w", err)
	}

	commits := make([]types.RawCommit, 0, len(raw))
	for _, c := range raw {
		commit := types.RawCommit{
			SHA:         c.SHA,
			CommittedAt: c.Commit.Author.Date,
		}
		if c.Author != nil {
			commit.AuthorLogin = c.Author.Login
		}
		commits = append(commits, commit)
	}

	return commits, nil
}

// getJSON makes a throttled GET request and decodes the JSON response
func (g *GitHubAdapter) getJSON(ctx context.Context, url string, out interface{}) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait cancelled: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "Learnathon-Leaderboard/1.0")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("github API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
