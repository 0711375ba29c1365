package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/BrainStation-23/learnathon-leaderboard/internal/types"
)

// ErrRepositoryNotFound reports an operation against a repository id that is
// not in the tracked set
var ErrRepositoryNotFound = errors.New("repository not tracked")

// Repository handles database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// UpsertRepository inserts or refreshes one tracked repository row
func (r *Repository) UpsertRepository(rec *types.RepoRecord) error {
	stacks, err := json.Marshal(rec.TechStacks)
	if err != nil {
		return fmt.Errorf("failed to encode tech stacks: %w", err)
	}

	stmt, err := r.db.GetPreparedStatement("upsert_repository")
	if err != nil {
		return fmt.Errorf("failed to get prepared statement: %w", err)
	}

	now := time.Now()
	_, err = stmt.Exec(rec.ID, rec.Name, rec.GitHubURL, string(stacks), string(rec.FunnelStatus),
		rec.CommitsCount, rec.LastUpdated, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert repository: %w", err)
	}

	return nil
}

// SaveMetrics stores the latest raw metrics for a repository. A nil metrics
// object is valid and clears any previously stored values.
func (r *Repository) SaveMetrics(repositoryID string, m *types.SonarMetrics) error {
	if m == nil {
		m = &types.SonarMetrics{}
	}

	stmt, err := r.db.GetPreparedStatement("upsert_metrics")
	if err != nil {
		return fmt.Errorf("failed to get prepared statement: %w", err)
	}

	_, err = stmt.Exec(repositoryID, m.LinesOfCode, m.Coverage, m.Bugs, m.Vulnerabilities,
		m.CodeSmells, m.TechnicalDebt, m.Complexity, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save metrics: %w", err)
	}

	return nil
}

// LoadRepositories returns all tracked repositories with their stored metrics
func (r *Repository) LoadRepositories() ([]types.RepoRecord, error) {
	rows, err := r.db.Query(`
		SELECT r.id, r.name, r.github_url, r.tech_stacks, r.funnel_status, r.commits_count, r.last_updated,
			m.lines_of_code, m.coverage, m.bugs, m.vulnerabilities, m.code_smells, m.technical_debt, m.complexity
		FROM repositories r
		LEFT JOIN repo_metrics m ON m.repository_id = r.id
		ORDER BY r.name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query repositories: %w", err)
	}
	defer rows.Close()

	// An empty table is a valid tracked set, distinct from a failed load
	records := make([]types.RepoRecord, 0)
	for rows.Next() {
		var (
			rec     types.RepoRecord
			url     sql.NullString
			stacks  sql.NullString
			funnel  sql.NullString
			commits sql.NullInt64
			loc     sql.NullInt64
			cov     sql.NullFloat64
			bugs    sql.NullInt64
			vulns   sql.NullInt64
			smells  sql.NullInt64
			debt    sql.NullString
			cmplx   sql.NullInt64
		)

		err := rows.Scan(&rec.ID, &rec.Name, &url, &stacks, &funnel, &commits, &rec.LastUpdated,
			&loc, &cov, &bugs, &vulns, &smells, &debt, &cmplx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan repository row: %w", err)
		}

		rec.GitHubURL = url.String
		rec.FunnelStatus = types.FunnelStatus(funnel.String)
		if stacks.Valid && stacks.String != "" {
			if err := json.Unmarshal([]byte(stacks.String), &rec.TechStacks); err != nil {
				return nil, fmt.Errorf("failed to decode tech stacks for %s: %w", rec.ID, err)
			}
		}
		if commits.Valid {
			count := int(commits.Int64)
			rec.CommitsCount = &count
		}
		rec.Metrics = buildMetrics(loc, cov, bugs, vulns, smells, debt, cmplx)

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate repositories: %w", err)
	}

	return records, nil
}

// buildMetrics converts nullable metric columns into the optional-field form.
// All-NULL columns mean no metrics row existed, reported as a nil object.
func buildMetrics(loc sql.NullInt64, cov sql.NullFloat64, bugs, vulns, smells sql.NullInt64, debt sql.NullString, cmplx sql.NullInt64) *types.SonarMetrics {
	if !loc.Valid && !cov.Valid && !bugs.Valid && !vulns.Valid && !smells.Valid && !debt.Valid && !cmplx.Valid {
		return nil
	}

	m := &types.SonarMetrics{}
	if loc.Valid {
		v := int(loc.Int64)
		m.LinesOfCode = &v
	}
	if cov.Valid {
		v := cov.Float64
		m.Coverage = &v
	}
	if bugs.Valid {
		v := int(bugs.Int64)
		m.Bugs = &v
	}
	if vulns.Valid {
		v := int(vulns.Int64)
		m.Vulnerabilities = &v
	}
	if smells.Valid {
		v := int(smells.Int64)
		m.CodeSmells = &v
	}
	if debt.Valid {
		v := debt.String
		m.TechnicalDebt = &v
	}
	if cmplx.Valid {
		v := int(cmplx.Int64)
		m.Complexity = &v
	}

	return m
}

// RecordWebhookCommits applies one push delivery to a repository's commit
// counter. Deliveries are deduplicated on the GitHub delivery ID so redelivered
// webhooks never double-count; it reports whether the delivery was applied.
func (r *Repository) RecordWebhookCommits(deliveryID, repositoryID string, commits int) (bool, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT OR IGNORE INTO webhook_events (delivery_id, repository_id, commits, received_at)
		VALUES (?, ?, ?, ?)
	`, deliveryID, repositoryID, commits, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to record webhook event: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check webhook event insert: %w", err)
	}
	if affected == 0 {
		// Redelivery of an already processed event
		return false, nil
	}

	now := time.Now()
	res, err = tx.Exec(`
		UPDATE repositories
		SET commits_count = COALESCE(commits_count, 0) + ?, last_updated = ?, updated_at = ?
		WHERE id = ?
	`, commits, now, now, repositoryID)
	if err != nil {
		return false, fmt.Errorf("failed to increment commit counter: %w", err)
	}

	updated, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check commit counter update: %w", err)
	}
	if updated == 0 {
		// Rolls back the event record so a retry after onboarding can apply
		return false, fmt.Errorf("%w: %s", ErrRepositoryNotFound, repositoryID)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit webhook update: %w", err)
	}

	return true, nil
}

// SaveSnapshot persists one serialized cohort snapshot
func (r *Repository) SaveSnapshot(data string, generatedAt time.Time) (*SnapshotRecord, error) {
	record := NewSnapshotRecord(data, generatedAt)

	stmt, err := r.db.GetPreparedStatement("insert_snapshot")
	if err != nil {
		return nil, fmt.Errorf("failed to get prepared statement: %w", err)
	}

	_, err = stmt.Exec(record.ID, record.Data, record.GeneratedAt, record.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}

	return record, nil
}

// LatestSnapshot returns the most recently persisted snapshot, or nil when
// none has been generated yet
func (r *Repository) LatestSnapshot() (*SnapshotRecord, error) {
	stmt, err := r.db.GetPreparedStatement("latest_snapshot")
	if err != nil {
		return nil, fmt.Errorf("failed to get prepared statement: %w", err)
	}

	var record SnapshotRecord
	err = stmt.QueryRow().Scan(&record.ID, &record.Data, &record.GeneratedAt, &record.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest snapshot: %w", err)
	}

	return &record, nil
}
