package scar

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists scars in PostgreSQL, sharing the pool with the
// record store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a scar store over an existing connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// InitSchema creates the scars table if it doesn't exist.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS scars (
			id BIGSERIAL PRIMARY KEY,
			pattern_key TEXT NOT NULL,
			severity DOUBLE PRECISION NOT NULL,
			lesson TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Insert appends a new scar row.
func (s *PostgresStore) Insert(ctx context.Context, patternKey string, severity float64, lesson string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO scars (pattern_key, severity, lesson) VALUES ($1, $2, $3)`,
		patternKey, severity, lesson)
	return err
}

// List returns all scars in insertion order.
func (s *PostgresStore) List(ctx context.Context) ([]Scar, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, pattern_key, severity, lesson, created_at FROM scars ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scars []Scar
	for rows.Next() {
		var sc Scar
		if err := rows.Scan(&sc.ID, &sc.PatternKey, &sc.Severity, &sc.Lesson, &sc.CreatedAt); err != nil {
			return nil, err
		}
		scars = append(scars, sc)
	}
	return scars, rows.Err()
}

// CountMatching counts scars whose lesson contains the category,
// case-insensitively.
func (s *PostgresStore) CountMatching(ctx context.Context, category string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM scars WHERE lesson ILIKE '%' || $1 || '%'`, category).Scan(&n)
	return n, err
}

var _ Store = (*PostgresStore)(nil)
