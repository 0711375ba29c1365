// Package dashboard orchestrates the refresh pipeline: fetch repository data
// from GitHub and SonarCloud, score it, aggregate the cohort snapshot and
// persist the result.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BrainStation-23/learnathon-leaderboard/internal/adapters"
	"github.com/BrainStation-23/learnathon-leaderboard/internal/cohort"
	"github.com/BrainStation-23/learnathon-leaderboard/internal/database"
	"github.com/BrainStation-23/learnathon-leaderboard/internal/resilience"
	"github.com/BrainStation-23/learnathon-leaderboard/internal/types"
)

// GitHubClient is the subset of the GitHub adapter the service uses
type GitHubClient interface {
	FetchRepo(ctx context.Context, owner, repo string) (*adapters.RepoInfo, error)
	FetchContributors(ctx context.Context, owner, repo string) ([]types.Contributor, error)
	FetchCommits(ctx context.Context, owner, repo string, since time.Time) ([]types.RawCommit, error)
}

// SonarClient is the subset of the SonarCloud adapter the service uses
type SonarClient interface {
	FetchMetrics(ctx context.Context, projectKey string) (*types.SonarMetrics, error)
}

// Store is the persistence surface the service depends on
type Store interface {
	UpsertRepository(rec *types.RepoRecord) error
	SaveMetrics(repositoryID string, m *types.SonarMetrics) error
	LoadRepositories() ([]types.RepoRecord, error)
	RecordWebhookCommits(deliveryID, repositoryID string, commits int) (bool, error)
	SaveSnapshot(data string, generatedAt time.Time) (*database.SnapshotRecord, error)
	LatestSnapshot() (*database.SnapshotRecord, error)
}

// Config holds the cohort-level service settings
type Config struct {
	// Organization is the GitHub org owning every tracked repository
	Organization string
	// SonarOrganization prefixes SonarCloud project keys (<org>_<repo>)
	SonarOrganization string
}

// Service drives the dashboard refresh pipeline
type Service struct {
	cfg        Config
	github     GitHubClient
	sonar      SonarClient
	store      Store
	aggregator *cohort.Aggregator

	mutex   sync.RWMutex
	current *cohort.Snapshot
}

// NewService creates a dashboard service
func NewService(cfg Config, github GitHubClient, sonar SonarClient, store Store, aggregator *cohort.Aggregator) *Service {
	return &Service{
		cfg:        cfg,
		github:     github,
		sonar:      sonar,
		store:      store,
		aggregator: aggregator,
	}
}

// Refresh fetches fresh data for every tracked repository, recomputes the
// cohort snapshot and persists it. A repository whose remote fetch fails
// keeps its stored data; only a failed load of the tracked set is fatal.
func (s *Service) Refresh(ctx context.Context) (*cohort.Snapshot, error) {
	records, err := s.store.LoadRepositories()
	if err != nil {
		return nil, fmt.Errorf("failed to load tracked repositories: %w", err)
	}

	for i := range records {
		if err := s.refreshRepository(ctx, &records[i]); err != nil {
			slog.Warn("Repository refresh failed, keeping stored data",
				"repository", records[i].Name, "error", err)
			continue
		}

		if err := s.store.UpsertRepository(&records[i]); err != nil {
			slog.Error("Failed to persist repository", "repository", records[i].Name, "error", err)
		}
		if err := s.store.SaveMetrics(records[i].ID, records[i].Metrics); err != nil {
			slog.Error("Failed to persist metrics", "repository", records[i].Name, "error", err)
		}
	}

	snapshot, err := s.aggregator.Recompute(records)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate cohort: %w", err)
	}

	if err := s.persistSnapshot(snapshot); err != nil {
		slog.Error("Failed to persist snapshot", "error", err)
	}

	s.mutex.Lock()
	s.current = snapshot
	s.mutex.Unlock()

	slog.Info("Cohort snapshot refreshed",
		"repositories", len(snapshot.Leaderboard),
		"generated_at", snapshot.GeneratedAt)

	return snapshot, nil
}

// refreshRepository pulls the latest GitHub and SonarCloud state into rec.
// Transient upstream failures are retried with backoff before giving up.
func (s *Service) refreshRepository(ctx context.Context, rec *types.RepoRecord) error {
	var info *adapters.RepoInfo
	err := resilience.Retry(ctx, func() error {
		var fetchErr error
		info, fetchErr = s.github.FetchRepo(ctx, s.cfg.Organization, rec.Name)
		return fetchErr
	})
	if err != nil {
		return fmt.Errorf("failed to fetch repo metadata: %w", err)
	}
	rec.GitHubURL = info.HTMLURL
	rec.LastUpdated = info.LastUpdated

	contributors, err := s.github.FetchContributors(ctx, s.cfg.Organization, rec.Name)
	if err != nil {
		slog.Warn("Failed to fetch contributors", "repository", rec.Name, "error", err)
	} else {
		rec.Contributors = contributors
	}

	since := time.Now().AddDate(0, -5, 0)
	commits, err := s.github.FetchCommits(ctx, s.cfg.Organization, rec.Name, since)
	if err != nil {
		slog.Warn("Failed to fetch commits", "repository", rec.Name, "error", err)
	} else {
		rec.Commits = commits
	}

	var metrics *types.SonarMetrics
	err = resilience.Retry(ctx, func() error {
		var fetchErr error
		metrics, fetchErr = s.sonar.FetchMetrics(ctx, s.projectKey(rec.Name))
		return fetchErr
	})
	if errors.Is(err, adapters.ErrProjectNotFound) {
		// Never analyzed on SonarCloud: not collected, scored as absent
		rec.Metrics = nil
		return nil
	}
	if err != nil {
		slog.Warn("Failed to fetch metrics", "repository", rec.Name, "error", err)
		return nil
	}
	rec.Metrics = metrics

	return nil
}

// projectKey maps a repository name onto its SonarCloud project key
func (s *Service) projectKey(repoName string) string {
	return fmt.Sprintf("%s_%s", s.cfg.SonarOrganization, repoName)
}

// Snapshot returns the current cohort snapshot. When no refresh has run yet
// it falls back to the last persisted snapshot, then to a recompute over
// stored data.
func (s *Service) Snapshot(ctx context.Context) (*cohort.Snapshot, error) {
	s.mutex.RLock()
	current := s.current
	s.mutex.RUnlock()
	if current != nil {
		return current, nil
	}

	record, err := s.store.LatestSnapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted snapshot: %w", err)
	}
	if record != nil {
		var snapshot cohort.Snapshot
		if err := json.Unmarshal([]byte(record.Data), &snapshot); err != nil {
			return nil, fmt.Errorf("failed to decode persisted snapshot: %w", err)
		}

		s.mutex.Lock()
		s.current = &snapshot
		s.mutex.Unlock()
		return &snapshot, nil
	}

	// Cold start: aggregate whatever is already stored
	records, err := s.store.LoadRepositories()
	if err != nil {
		return nil, fmt.Errorf("failed to load tracked repositories: %w", err)
	}
	snapshot, err := s.aggregator.Recompute(records)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate cohort: %w", err)
	}

	s.mutex.Lock()
	s.current = snapshot
	s.mutex.Unlock()

	return snapshot, nil
}

// ApplyWebhook applies one GitHub push delivery to the stored commit counter.
// Redelivered events are deduplicated on the delivery ID; it reports whether
// the delivery was applied.
func (s *Service) ApplyWebhook(deliveryID, repositoryID string, commits int) (bool, error) {
	if deliveryID == "" {
		return false, fmt.Errorf("missing delivery id")
	}
	if commits <= 0 {
		return false, nil
	}

	applied, err := s.store.RecordWebhookCommits(deliveryID, repositoryID, commits)
	if err != nil {
		return false, fmt.Errorf("failed to apply webhook: %w", err)
	}

	if applied {
		slog.Info("Webhook commits recorded",
			"repository", repositoryID, "delivery", deliveryID, "commits", commits)
	} else {
		slog.Info("Webhook redelivery ignored",
			"repository", repositoryID, "delivery", deliveryID)
	}

	return applied, nil
}

// persistSnapshot serializes and stores one snapshot
func (s *Service) persistSnapshot(snapshot *cohort.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if _, err := s.store.SaveSnapshot(string(data), snapshot.GeneratedAt); err != nil {
		return err
	}

	return nil
}
