package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGitHubAdapter(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"creates adapter with valid token", "ghp_test_token"},
		{"creates adapter with empty token", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := NewGitHubAdapter(tt.token)
			assert.NotNil(t, adapter)
			assert.Equal(t, tt.token, adapter.token)
			assert.Equal(t, defaultGitHubBaseURL, adapter.baseURL)
		})
	}
}

func TestGitHubAdapterFetchRepo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/cohort/project-one", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"name": "project-one",
			"full_name": "cohort/project-one",
			"html_url": "https://github.com/cohort/project-one",
			"updated_at": "2024-05-01T10:00:00Z",
			"pushed_at": "2024-05-10T08:30:00Z"
		}`))
	}))
	defer server.Close()

	adapter := NewGitHubAdapterWithBaseURL("test-token", server.URL)

	info, err := adapter.FetchRepo(context.Background(), "cohort", "project-one")
	require.NoError(t, err)
	assert.Equal(t, "project-one", info.Name)
	assert.Equal(t, "cohort/project-one", info.FullName)
	assert.Equal(t, "https://github.com/cohort/project-one", info.HTMLURL)
	// pushed_at wins over updated_at
	assert.Equal(t, time.Date(2024, time.May, 10, 8, 30, 0, 0, time.UTC), info.LastUpdated)
}

func TestGitHubAdapterFetchContributors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/cohort/project-one/contributors", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"login": "alice", "id": 101, "avatar_url": "https://avatars.test/alice", "contributions": 42},
			{"login": "bob", "id": 102, "avatar_url": "https://avatars.test/bob", "contributions": 7}
		]`))
	}))
	defer server.Close()

	adapter := NewGitHubAdapterWithBaseURL("", server.URL)

	contributors, err := adapter.FetchContributors(context.Background(), "cohort", "project-one")
	require.NoError(t, err)
	require.Len(t, contributors, 2)
	assert.Equal(t, "alice", contributors[0].Login)
	assert.Equal(t, int64(101), contributors[0].ID)
	assert.Equal(t, 42, contributors[0].Contributions)
	assert.Equal(t, "bob", contributors[1].Login)
}

func TestGitHubAdapterFetchCommits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/cohort/project-one/commits", r.URL.Path)
		assert.Equal(t, "2024-01-01T00:00:00Z", r.URL.Query().Get("since"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{
				"sha": "abc123",
				"commit": {"author": {"date": "2024-05-02T12:00:00Z"}},
				"author": {"login": "alice"}
			},
			{
				"sha": "def456",
				"commit": {"author": {"date": "2024-04-28T09:00:00Z"}},
				"author": null
			}
		]`))
	}))
	defer server.Close()

	adapter := NewGitHubAdapterWithBaseURL("", server.URL)
	since := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	commits, err := adapter.FetchCommits(context.Background(), "cohort", "project-one", since)
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, "abc123", commits[0].SHA)
	assert.Equal(t, "alice", commits[0].AuthorLogin)
	assert.Equal(t, "", commits[1].AuthorLogin)
	assert.Equal(t, time.Date(2024, time.April, 28, 9, 0, 0, 0, time.UTC), commits[1].CommittedAt)
}

func TestGitHubAdapterAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message": "API rate limit exceeded"}`))
	}))
	defer server.Close()

	adapter := NewGitHubAdapterWithBaseURL("", server.URL)

	_, err := adapter.FetchRepo(context.Background(), "cohort", "project-one")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}
