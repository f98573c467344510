package scar

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteStore persists scars in SQLite. It shares the database handle with
// the record store; database/sql pools connections per operation.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a scar store over an existing database handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// InitSchema creates the scars table if it doesn't exist.
func (s *SQLiteStore) InitSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS scars (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			pattern_key TEXT NOT NULL,
			severity REAL NOT NULL,
			lesson TEXT NOT NULL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP
		);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize scar schema: %w", err)
	}
	return nil
}

// Insert appends a new scar row.
func (s *SQLiteStore) Insert(ctx context.Context, patternKey string, severity float64, lesson string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scars (pattern_key, severity, lesson, created_at) VALUES (?, ?, ?, ?)`,
		patternKey, severity, lesson, time.Now().UTC().Format(time.RFC3339))
	return err
}

// List returns all scars in insertion order.
func (s *SQLiteStore) List(ctx context.Context) ([]Scar, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, pattern_key, severity, lesson, created_at FROM scars ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scars []Scar
	for rows.Next() {
		var sc Scar
		var createdAt string
		if err := rows.Scan(&sc.ID, &sc.PatternKey, &sc.Severity, &sc.Lesson, &createdAt); err != nil {
			return nil, err
		}
		sc.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		scars = append(scars, sc)
	}
	return scars, rows.Err()
}

// CountMatching counts scars whose lesson contains the category,
// case-insensitively.
func (s *SQLiteStore) CountMatching(ctx context.Context, category string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scars WHERE LOWER(lesson) LIKE '%' || LOWER(?) || '%'`, category).Scan(&n)
	return n, err
}

var _ Store = (*SQLiteStore)(nil)
