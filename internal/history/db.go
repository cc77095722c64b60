package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB is the local log of every usage query run by the tool
type DB struct {
	db *sql.DB
}

// Entry represents a query history row
type Entry struct {
	ID        int64
	Username  string
	StartDate string
	EndDate   string
	Total     float64
	Failed    bool
	Error     string
	QueriedAt int64 // Unix timestamp
}

// Open opens the database at the given path, creating its directory if needed
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// batch workers share the handle; sqlite allows one writer
	db.SetMaxOpenConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return d, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.db.Close()
}

// migrate creates the database tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS queries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		total REAL DEFAULT 0,
		failed INTEGER DEFAULT 0,
		error TEXT,
		queried_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_queries_username ON queries(username);
	CREATE INDEX IF NOT EXISTS idx_queries_queried_at ON queries(queried_at);
	`

	_, err := db.db.Exec(schema)
	return err
}

// Record appends a query result and returns its ID
func (db *DB) Record(ctx context.Context, e *Entry) (int64, error) {
	query := `INSERT INTO queries (username, start_date, end_date, total, failed, error, queried_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := db.db.ExecContext(ctx, query,
		e.Username, e.StartDate, e.EndDate, e.Total, e.Failed, e.Error, e.QueriedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to record query: %w", err)
	}
	return result.LastInsertId()
}

// Recent returns the most recent N entries, newest first. An empty
// username matches every user.
func (db *DB) Recent(ctx context.Context, username string, limit int) ([]Entry, error) {
	query := `SELECT id, username, start_date, end_date, total, failed, COALESCE(error, ''), queried_at
		FROM queries WHERE (? = '' OR username = ?) ORDER BY queried_at DESC, id DESC LIMIT ?`

	rows, err := db.db.QueryContext(ctx, query, username, username, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Username, &e.StartDate, &e.EndDate, &e.Total,
			&e.Failed, &e.Error, &e.QueriedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of logged queries
func (db *DB) Count(ctx context.Context) (int64, error) {
	var count int64
	err := db.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM queries`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return count, nil
}
