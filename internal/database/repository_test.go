package database

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrainStation-23/learnathon-leaderboard/internal/types"
)

// setupTestDB creates a repository backed by a sqlmock connection
func setupTestDB(t *testing.T) (*Repository, sqlmock.Sqlmock, func()) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	database := &DB{DB: mockDB, prepared: make(map[string]*sql.Stmt)}
	for name, query := range map[string]string{
		"upsert_repository": "INSERT INTO repositories",
		"upsert_metrics":    "INSERT INTO repo_metrics",
		"insert_snapshot":   "INSERT INTO cohort_snapshots",
		"latest_snapshot":   "SELECT id, snapshot_data",
	} {
		mock.ExpectPrepare(query)
		stmt, err := mockDB.Prepare(query)
		require.NoError(t, err)
		database.prepared[name] = stmt
	}
	repo := NewRepository(database)

	cleanup := func() {
		mockDB.Close()
	}

	return repo, mock, cleanup
}

func intPtr(v int) *int { return &v }

func TestUpsertRepository(t *testing.T) {
	tests := []struct {
		name      string
		record    types.RepoRecord
		mockSetup func(sqlmock.Sqlmock)
		wantErr   bool
	}{
		{
			name: "insert with stacks and commit count",
			record: types.RepoRecord{
				ID:           "repo-1",
				Name:         "alpha",
				GitHubURL:    "https://github.com/org/alpha",
				TechStacks:   []string{"dotnet", "web"},
				FunnelStatus: types.FunnelStillActive,
				CommitsCount: intPtr(42),
				LastUpdated:  time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO repositories").
					WithArgs(
						"repo-1", "alpha", "https://github.com/org/alpha",
						`["dotnet","web"]`, "still_active", intPtr(42),
						time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
						sqlmock.AnyArg(), sqlmock.AnyArg(),
					).
					WillReturnResult(sqlmock.NewResult(1, 1))
			},
		},
		{
			name:   "database failure surfaces",
			record: types.RepoRecord{ID: "repo-2", Name: "beta"},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO repositories").
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupTestDB(t)
			defer cleanup()

			tt.mockSetup(mock)

			err := repo.UpsertRepository(&tt.record)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSaveMetricsNilObjectClearsRow(t *testing.T) {
	repo, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO repo_metrics").
		WithArgs("repo-1", nil, nil, nil, nil, nil, nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.SaveMetrics("repo-1", nil)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadRepositories(t *testing.T) {
	repo, mock, cleanup := setupTestDB(t)
	defer cleanup()

	columns := []string{
		"id", "name", "github_url", "tech_stacks", "funnel_status", "commits_count", "last_updated",
		"lines_of_code", "coverage", "bugs", "vulnerabilities", "code_smells", "technical_debt", "complexity",
	}
	lastUpdated := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(columns).
		AddRow(
			"repo-1", "alpha", "https://github.com/org/alpha", `["web"]`, "still_active", 42, lastUpdated,
			1200, 85.5, 2, 0, 14, "1d 2h", 75,
		).
		AddRow(
			"repo-2", "beta", nil, nil, nil, nil, lastUpdated,
			nil, nil, nil, nil, nil, nil, nil,
		)
	mock.ExpectQuery("SELECT r.id, r.name").WillReturnRows(rows)

	records, err := repo.LoadRepositories()
	require.NoError(t, err)
	require.Len(t, records, 2)

	alpha := records[0]
	assert.Equal(t, "repo-1", alpha.ID)
	assert.Equal(t, []string{"web"}, alpha.TechStacks)
	assert.Equal(t, types.FunnelStillActive, alpha.FunnelStatus)
	require.NotNil(t, alpha.CommitsCount)
	assert.Equal(t, 42, *alpha.CommitsCount)
	require.NotNil(t, alpha.Metrics)
	assert.Equal(t, 85.5, *alpha.Metrics.Coverage)
	assert.Equal(t, "1d 2h", *alpha.Metrics.TechnicalDebt)

	beta := records[1]
	assert.Nil(t, beta.CommitsCount)
	assert.Nil(t, beta.Metrics)
	assert.Empty(t, beta.TechStacks)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadRepositoriesEmptyTable(t *testing.T) {
	repo, mock, cleanup := setupTestDB(t)
	defer cleanup()

	columns := []string{
		"id", "name", "github_url", "tech_stacks", "funnel_status", "commits_count", "last_updated",
		"lines_of_code", "coverage", "bugs", "vulnerabilities", "code_smells", "technical_debt", "complexity",
	}
	mock.ExpectQuery("SELECT r.id, r.name").WillReturnRows(sqlmock.NewRows(columns))

	records, err := repo.LoadRepositories()
	require.NoError(t, err)
	require.NotNil(t, records)
	assert.Len(t, records, 0)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordWebhookCommits(t *testing.T) {
	tests := []struct {
		name        string
		mockSetup   func(sqlmock.Sqlmock)
		wantApplied bool
		wantErr     bool
	}{
		{
			name: "new delivery increments counter",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT OR IGNORE INTO webhook_events").
					WithArgs("delivery-1", "repo-1", 3, sqlmock.AnyArg()).
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectExec("UPDATE repositories").
					WithArgs(3, sqlmock.AnyArg(), sqlmock.AnyArg(), "repo-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			wantApplied: true,
		},
		{
			name: "redelivered event is ignored",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT OR IGNORE INTO webhook_events").
					WithArgs("delivery-1", "repo-1", 3, sqlmock.AnyArg()).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectRollback()
			},
			wantApplied: false,
		},
		{
			name: "transaction failure surfaces",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupTestDB(t)
			defer cleanup()

			tt.mockSetup(mock)

			applied, err := repo.RecordWebhookCommits("delivery-1", "repo-1", 3)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantApplied, applied)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRecordWebhookCommitsUntrackedRepository(t *testing.T) {
	repo, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT OR IGNORE INTO webhook_events").
		WithArgs("delivery-9", "ghost", 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE repositories").
		WithArgs(2, sqlmock.AnyArg(), sqlmock.AnyArg(), "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	applied, err := repo.RecordWebhookCommits("delivery-9", "ghost", 2)
	assert.False(t, applied)
	assert.ErrorIs(t, err, ErrRepositoryNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveSnapshot(t *testing.T) {
	repo, mock, cleanup := setupTestDB(t)
	defer cleanup()

	generatedAt := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO cohort_snapshots").
		WithArgs(sqlmock.AnyArg(), `{"leaderboard":[]}`, generatedAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	record, err := repo.SaveSnapshot(`{"leaderboard":[]}`, generatedAt)
	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, generatedAt, record.GeneratedAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestSnapshot(t *testing.T) {
	t.Run("returns stored snapshot", func(t *testing.T) {
		repo, mock, cleanup := setupTestDB(t)
		defer cleanup()

		generatedAt := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
		rows := sqlmock.NewRows([]string{"id", "snapshot_data", "generated_at", "created_at"}).
			AddRow("snap-1", `{"leaderboard":[]}`, generatedAt, generatedAt)
		mock.ExpectQuery("SELECT id, snapshot_data").WillReturnRows(rows)

		record, err := repo.LatestSnapshot()
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, "snap-1", record.ID)
		assert.Equal(t, `{"leaderboard":[]}`, record.Data)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no snapshot yet", func(t *testing.T) {
		repo, mock, cleanup := setupTestDB(t)
		defer cleanup()

		mock.ExpectQuery("SELECT id, snapshot_data").WillReturnError(sql.ErrNoRows)

		record, err := repo.LatestSnapshot()
		assert.NoError(t, err)
		assert.Nil(t, record)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
