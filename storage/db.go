// Package storage persists carousel runs: progress snapshots, the usage
// ledger and post generation status live in one SQLite database; brands are
// JSON files and generated media are plain files under the data directory.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"carousel/config"

	_ "modernc.org/sqlite"
)

// DB is the SQLite database shared by the progress, usage and post stores.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) carousel.db in dataDir.
func Open(dataDir string) (*DB, error) {
	return OpenPath(filepath.Join(dataDir, "carousel.db"))
}

// OpenPath opens a database file at an explicit path.
func OpenPath(dbPath string) (*DB, error) {
	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection serializes writers; fan-out stages only write
	// through the progress consumer and the usage recorder
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &DB{db: db}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if config.Debug {
		config.DebugLog.Printf("[Storage] opened %s", dbPath)
	}
	return store, nil
}

func (s *DB) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS posts (
		id TEXT PRIMARY KEY,
		brand_id TEXT NOT NULL,
		generation_status TEXT NOT NULL DEFAULT 'idle',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_posts_brand ON posts(brand_id);

	CREATE TABLE IF NOT EXISTS progress (
		run_id TEXT PRIMARY KEY,
		post_id TEXT,
		step TEXT NOT NULL,
		step_index INTEGER NOT NULL,
		total_steps INTEGER NOT NULL,
		message TEXT NOT NULL,
		agent_type TEXT,
		sub_current INTEGER,
		sub_total INTEGER,
		sub_item TEXT,
		cost_usd REAL NOT NULL DEFAULT 0,
		error TEXT,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS progress_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		snapshot TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_progress_events_run ON progress_events(run_id);

	CREATE TABLE IF NOT EXISTS usage (
		execution_id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		brand_id TEXT NOT NULL,
		agent_type TEXT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		prompt_tokens INTEGER NOT NULL,
		completion_tokens INTEGER NOT NULL,
		total_tokens INTEGER NOT NULL,
		images_generated INTEGER NOT NULL,
		cost_usd REAL NOT NULL,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_usage_brand ON usage(brand_id);
	CREATE INDEX IF NOT EXISTS idx_usage_run ON usage(run_id);

	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		post_id TEXT,
		brand_id TEXT NOT NULL,
		success INTEGER NOT NULL,
		result TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	if err := s.migrateSchema(); err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}
	return nil
}

// migrateSchema adds columns introduced after the first schema version.
func (s *DB) migrateSchema() error {
	hasLastError, err := s.columnExists("posts", "last_error")
	if err != nil {
		return fmt.Errorf("failed to check for last_error column: %w", err)
	}
	if !hasLastError {
		if _, err := s.db.Exec(`ALTER TABLE posts ADD COLUMN last_error TEXT DEFAULT ''`); err != nil {
			return fmt.Errorf("failed to add last_error column: %w", err)
		}
	}
	return nil
}

// columnExists checks if a column exists in a table using PRAGMA table_info
func (s *DB) columnExists(tableName, columnName string) (bool, error) {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid          int
			name         string
			dataType     string
			notNull      int
			defaultValue any
			pk           int
		)
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pk); err != nil {
			return false, err
		}
		if name == columnName {
			return true, nil
		}
	}
	return false, rows.Err()
}

// Ping checks that the database is reachable.
func (s *DB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *DB) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
