package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB represents the database connection with pooling
type DB struct {
	*sql.DB
	pool     *ConnectionPool
	prepared map[string]*sql.Stmt
	mutex    sync.RWMutex
}

// ConnectionPool manages database connection pooling
type ConnectionPool struct {
	db           *sql.DB
	maxOpenConns int
	maxIdleConns int
	maxLifetime  time.Duration
}

// NewConnectionPool creates a new database connection pool
func NewConnectionPool(db *sql.DB, maxOpen, maxIdle int, maxLifetime time.Duration) *ConnectionPool {
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)

	return &ConnectionPool{
		db:           db,
		maxOpenConns: maxOpen,
		maxIdleConns: maxIdle,
		maxLifetime:  maxLifetime,
	}
}

// GetStats returns connection pool statistics
func (cp *ConnectionPool) GetStats() map[string]interface{} {
	stats := cp.db.Stats()

	return map[string]interface{}{
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"max_open_connections": cp.maxOpenConns,
		"max_idle_connections": cp.maxIdleConns,
		"max_lifetime_seconds": cp.maxLifetime.Seconds(),
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
		"max_idle_closed":      stats.MaxIdleClosed,
		"max_lifetime_closed":  stats.MaxLifetimeClosed,
	}
}

// NewDB creates a new database connection with optimized pooling
func NewDB(dataDir string) (*DB, error) {
	// Ensure data directory exists
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "leaderboard.db")

	// Configure connection string for better performance
	connStr := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pool := NewConnectionPool(db, 25, 5, 5*time.Minute)

	database := &DB{
		DB:       db,
		pool:     pool,
		prepared: make(map[string]*sql.Stmt),
	}

	// Run migrations
	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Initialize prepared statements
	if err := database.initPreparedStatements(); err != nil {
		return nil, fmt.Errorf("failed to initialize prepared statements: %w", err)
	}

	slog.Info("Database initialized with connection pooling",
		"max_open_conns", pool.maxOpenConns,
		"max_idle_conns", pool.maxIdleConns,
		"max_lifetime", pool.maxLifetime)

	return database, nil
}

// migrate creates the necessary tables
func (db *DB) migrate() error {
	queries := []string{
		// Tracked learnathon repositories
		`CREATE TABLE IF NOT EXISTS repositories (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			github_url TEXT,
			tech_stacks TEXT, -- JSON array of stack labels
			funnel_status TEXT,
			commits_count INTEGER,
			last_updated DATETIME NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,

		// Latest raw SonarCloud metrics per repository
		`CREATE TABLE IF NOT EXISTS repo_metrics (
			repository_id TEXT PRIMARY KEY,
			lines_of_code INTEGER,
			coverage REAL,
			bugs INTEGER,
			vulnerabilities INTEGER,
			code_smells INTEGER,
			technical_debt TEXT,
			complexity INTEGER,
			collected_at DATETIME NOT NULL,
			FOREIGN KEY (repository_id) REFERENCES repositories(id)
		)`,

		// Serialized cohort snapshots for history and warm restarts
		`CREATE TABLE IF NOT EXISTS cohort_snapshots (
			id TEXT PRIMARY KEY,
			snapshot_data TEXT NOT NULL, -- JSON snapshot
			generated_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		// Processed GitHub webhook deliveries, kept for dedupe
		`CREATE TABLE IF NOT EXISTS webhook_events (
			delivery_id TEXT PRIMARY KEY,
			repository_id TEXT NOT NULL,
			commits INTEGER NOT NULL,
			received_at DATETIME NOT NULL
		)`,

		// Indexes for performance
		`CREATE INDEX IF NOT EXISTS idx_repositories_name ON repositories(name)`,
		`CREATE INDEX IF NOT EXISTS idx_repositories_updated ON repositories(last_updated DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_cohort_snapshots_created ON cohort_snapshots(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_webhook_events_repo ON webhook_events(repository_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	return nil
}

// initPreparedStatements prepares the hot-path statements the repository
// retrieves by name. The webhook transaction manages its own statements.
func (db *DB) initPreparedStatements() error {
	statements := map[string]string{
		"upsert_repository": `INSERT INTO repositories (id, name, github_url, tech_stacks, funnel_status, commits_count, last_updated, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			github_url = excluded.github_url,
			tech_stacks = excluded.tech_stacks,
			funnel_status = excluded.funnel_status,
			commits_count = excluded.commits_count,
			last_updated = excluded.last_updated,
			updated_at = excluded.updated_at`,

		"upsert_metrics": `INSERT INTO repo_metrics (
			repository_id, lines_of_code, coverage, bugs, vulnerabilities,
			code_smells, technical_debt, complexity, collected_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(repository_id) DO UPDATE SET
			lines_of_code = excluded.lines_of_code,
			coverage = excluded.coverage,
			bugs = excluded.bugs,
			vulnerabilities = excluded.vulnerabilities,
			code_smells = excluded.code_smells,
			technical_debt = excluded.technical_debt,
			complexity = excluded.complexity,
			collected_at = excluded.collected_at`,

		"insert_snapshot": `INSERT INTO cohort_snapshots (id, snapshot_data, generated_at, created_at)
			VALUES (?, ?, ?, ?)`,

		"latest_snapshot": `SELECT id, snapshot_data, generated_at, created_at
			FROM cohort_snapshots ORDER BY created_at DESC LIMIT 1`,
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, query := range statements {
		stmt, err := db.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement %s: %w", name, err)
		}
		db.prepared[name] = stmt

		slog.Debug("Prepared statement initialized", "name", name)
	}

	return nil
}

// GetPreparedStatement retrieves a prepared statement
func (db *DB) GetPreparedStatement(name string) (*sql.Stmt, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	stmt, exists := db.prepared[name]
	if !exists {
		return nil, fmt.Errorf("prepared statement %s not found", name)
	}

	return stmt, nil
}

// GetPoolStats returns database connection pool statistics
func (db *DB) GetPoolStats() map[string]interface{} {
	return db.pool.GetStats()
}

// Close closes the database connection and prepared statements
func (db *DB) Close() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, stmt := range db.prepared {
		if err := stmt.Close(); err != nil {
			slog.Warn("Failed to close prepared statement", "name", name, "error", err)
		}
	}

	db.prepared = make(map[string]*sql.Stmt)

	return db.DB.Close()
}
