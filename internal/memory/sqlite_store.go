package memory

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite.
// Embeddings are stored as little-endian float32 BLOBs and similarity is
// computed in application memory, which is suitable for the local-agent
// scale this store serves (< 10K records).
//
// database/sql hands each operation its own pooled connection, so the
// foreground loop and the background scanner never share a cursor.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore connected to the given database path.
// The path should be a file path (e.g., "./sentinel.db") or ":memory:" for an
// in-memory database. It opens the database connection and verifies
// connectivity with a ping.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	// Enable WAL mode so the scanner can write while the foreground loop reads
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each additional pooled connection to :memory: opens its own private,
	// empty database, so the pool must never grow past one connection there.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Verify connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// InitSchema creates the necessary tables if they don't exist.
// This should be called after creating a new SQLiteStore.
func (s *SQLiteStore) InitSchema(ctx context.Context) error {
	schema := `
		-- Institutional memory records
		CREATE TABLE IF NOT EXISTS memories (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			source TEXT NOT NULL,
			outcome TEXT NOT NULL DEFAULT 'neutral',
			confidence REAL NOT NULL DEFAULT 0.5,
			tier TEXT NOT NULL DEFAULT 'tactical',
			embedding BLOB,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP
		);

		-- Delta-sync cursor for the sensitivity scanner
		CREATE TABLE IF NOT EXISTS processed_files (
			filepath TEXT PRIMARY KEY,
			content_hash TEXT NOT NULL
		);
	`

	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// Append persists a new record as a single atomic insert.
func (s *SQLiteStore) Append(ctx context.Context, rec Record) (string, error) {
	if rec.Content == "" {
		return "", ErrEmptyContent
	}

	query := `
		INSERT INTO memories (id, content, source, outcome, confidence, tier, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Content, rec.Source, string(rec.Outcome), rec.Confidence,
		string(rec.Tier), encodeVector(rec.Embedding), rec.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("failed to append record: %w", err)
	}

	return rec.ID, nil
}

// All returns every stored record.
func (s *SQLiteStore) All(ctx context.Context) ([]Record, error) {
	query := `
		SELECT id, content, source, outcome, confidence, tier, embedding, created_at
		FROM memories
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var outcome, tier, createdAt string
		var embeddingBlob []byte
		if err := rows.Scan(&rec.ID, &rec.Content, &rec.Source, &outcome,
			&rec.Confidence, &tier, &embeddingBlob, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec.Outcome = Outcome(outcome)
		rec.Tier = Tier(tier)
		rec.Embedding = decodeVector(embeddingBlob)
		// A malformed timestamp leaves CreatedAt zero; trust scoring treats
		// that as "now" rather than failing the whole read.
		rec.CreatedAt, _ = parseTimestamp(createdAt)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return records, nil
}

// SetOutcome back-fills the outcome of a record once it is known.
func (s *SQLiteStore) SetOutcome(ctx context.Context, id string, outcome Outcome) error {
	res, err := s.db.ExecContext(ctx, `UPDATE memories SET outcome = ? WHERE id = ?`, string(outcome), id)
	if err != nil {
		return fmt.Errorf("failed to set outcome: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("no record with id %s", id)
	}
	return nil
}

// DeleteMatching removes all records whose content contains the keyword,
// case-insensitively, and returns the count removed.
func (s *SQLiteStore) DeleteMatching(ctx context.Context, keyword string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM memories WHERE LOWER(content) LIKE '%' || LOWER(?) || '%'`, keyword)
	if err != nil {
		return 0, fmt.Errorf("failed to delete records: %w", err)
	}
	return res.RowsAffected()
}

// LookupFileHash returns the stored digest for a path, or "" when unseen.
func (s *SQLiteStore) LookupFileHash(ctx context.Context, path string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT content_hash FROM processed_files WHERE filepath = ?`, path).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up file hash: %w", err)
	}
	return hash, nil
}

// UpsertFileHash inserts or overwrites the digest for a path.
func (s *SQLiteStore) UpsertFileHash(ctx context.Context, path, hash string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO processed_files (filepath, content_hash) VALUES (?, ?)`, path, hash)
	if err != nil {
		return fmt.Errorf("failed to upsert file hash: %w", err)
	}
	return nil
}

// CountRecords returns the number of stored records.
func (s *SQLiteStore) CountRecords(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

// CountProcessedFiles returns the number of delta-sync entries.
func (s *SQLiteStore) CountProcessedFiles(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM processed_files`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count processed files: %w", err)
	}
	return n, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle so sibling packages sharing the same
// database file (the scar ledger) can reuse the pooled connections.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// encodeVector converts a float32 slice to a byte slice for storage.
// Each float32 is encoded as 4 bytes in little-endian format.
func encodeVector(v []float32) []byte {
	if v == nil {
		return nil
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector converts a byte slice back to a float32 slice.
func decodeVector(b []byte) []float32 {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		bits := binary.LittleEndian.Uint32(b[i*4:])
		v[i] = math.Float32frombits(bits)
	}
	return v
}

// CosineSimilarity calculates the cosine similarity between two vectors.
// The result is in range [-1, 1]; mismatched or zero-norm vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// parseTimestamp parses a SQLite timestamp string to time.Time.
// SQLite stores timestamps as TEXT in ISO8601/RFC3339 format.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		"2006-01-02T15:04:05.000",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse timestamp: %s", s)
}

var _ Store = (*SQLiteStore)(nil)
