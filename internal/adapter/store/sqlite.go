package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	_ "modernc.org/sqlite" // pure Go driver, registers "sqlite"

	"askdocs/internal/domain"
	"askdocs/internal/errors"
	"askdocs/internal/port"
)

// SQLiteStore keeps chunks in a SQLite file. Like BoltStore it searches an
// in-memory index rebuilt from the table on open.
type SQLiteStore struct {
	db     *sql.DB
	metric Metric

	mu        sync.RWMutex
	index     vectorIndex
	dimension int
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	id        TEXT PRIMARY KEY,
	source    TEXT NOT NULL,
	idx       INTEGER NOT NULL,
	text      TEXT NOT NULL,
	metadata  TEXT NOT NULL,
	embedding TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source);
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

func NewSQLiteStore(path string, opts Options) (*SQLiteStore, error) {
	metric, err := parseMetric(opts.Metric)
	if err != nil {
		return nil, errors.ConfigError(err.Error(), nil)
	}
	index, err := newIndex(opts.Index, metric)
	if err != nil {
		return nil, errors.ConfigError(err.Error(), nil)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.StoreError("failed to open sqlite db", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000", sqliteSchema} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, errors.StoreError("failed to initialize sqlite db", err)
		}
	}

	s := &SQLiteStore{db: db, metric: metric, index: index}
	if err := s.load(); err != nil {
		_ = db.Close()
		return nil, errors.StoreError("failed to load vectors", err)
	}
	return s, nil
}

func (s *SQLiteStore) load() error {
	dim, err := s.GetMeta(keyDimension)
	if err != nil {
		return err
	}
	if dim != "" {
		if s.dimension, err = strconv.Atoi(dim); err != nil {
			return fmt.Errorf("invalid stored dimension %q: %w", dim, err)
		}
	}

	rows, err := s.db.Query(`SELECT id, embedding FROM chunks`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id, embedding string
		if err := rows.Scan(&id, &embedding); err != nil {
			return err
		}
		var vec []float32
		if err := json.Unmarshal([]byte(embedding), &vec); err != nil {
			return fmt.Errorf("corrupt embedding for chunk %s: %w", id, err)
		}
		s.index.add(id, vec)
	}
	return rows.Err()
}

func (s *SQLiteStore) Add(ctx context.Context, records []port.VectorRecord) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dim, err := checkDimensions(s.dimension, records)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.StoreError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	ids := newIDs(len(records))
	if err := s.insertChunks(ctx, tx, ids, records, dim); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.StoreError("failed to commit chunks", err)
	}

	s.dimension = dim
	for i, r := range records {
		s.index.add(ids[i], r.Vector)
	}
	return ids, nil
}

// ReplaceSource deletes the chunks of source and inserts records in one
// transaction.
func (s *SQLiteStore) ReplaceSource(ctx context.Context, source string, records []port.VectorRecord) (int, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.dimension
	if len(records) > 0 {
		var err error
		if dim, err = checkDimensions(s.dimension, records); err != nil {
			return 0, nil, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, errors.StoreError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	removed, err := deleteSourceRows(ctx, tx, source)
	if err != nil {
		return 0, nil, err
	}
	ids := newIDs(len(records))
	if len(records) > 0 {
		if err := s.insertChunks(ctx, tx, ids, records, dim); err != nil {
			return 0, nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, nil, errors.StoreError(fmt.Sprintf("failed to replace chunks of %s", source), err)
	}

	for _, id := range removed {
		s.index.remove(id)
	}
	s.dimension = dim
	for i, r := range records {
		s.index.add(ids[i], r.Vector)
	}
	return len(removed), ids, nil
}

func (s *SQLiteStore) insertChunks(ctx context.Context, tx *sql.Tx, ids []string, records []port.VectorRecord, dim int) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, source, idx, text, metadata, embedding) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.StoreError("failed to prepare insert", err)
	}
	defer stmt.Close()

	for i, r := range records {
		meta, err := json.Marshal(r.Chunk.Metadata)
		if err != nil {
			return errors.StoreError("failed to encode metadata", err)
		}
		vec, err := json.Marshal(r.Vector)
		if err != nil {
			return errors.StoreError("failed to encode embedding", err)
		}
		if _, err := stmt.ExecContext(ctx, ids[i], r.Chunk.SourceID, r.Chunk.Index, r.Chunk.Text, string(meta), string(vec)); err != nil {
			return errors.StoreError("failed to insert chunk", err)
		}
	}

	if s.dimension == 0 {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, keyDimension, strconv.Itoa(dim)); err != nil {
			return errors.StoreError("failed to record dimension", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Query(ctx context.Context, vector []float32, k int) ([]port.VectorMatch, error) {
	if k > MaxQueryK {
		k = MaxQueryK
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.index.len() == 0 || k <= 0 {
		return nil, nil
	}
	if len(vector) != s.dimension {
		return nil, errors.New(errors.ErrCodeDimensionMismatch,
			fmt.Sprintf("query dimension mismatch: expected %d, got %d", s.dimension, len(vector)), nil)
	}

	scores := s.index.search(vector, k)
	matches := make([]port.VectorMatch, 0, len(scores))
	for _, sc := range scores {
		var source, text, meta string
		var idx int
		err := s.db.QueryRowContext(ctx,
			`SELECT source, idx, text, metadata FROM chunks WHERE id = ?`, sc.id).Scan(&source, &idx, &text, &meta)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, errors.StoreError("failed to read chunk", err)
		}

		chunk := domain.Chunk{ID: sc.id, SourceID: source, Index: idx, Text: text}
		if err := json.Unmarshal([]byte(meta), &chunk.Metadata); err != nil {
			return nil, errors.StoreError("failed to decode metadata", err)
		}
		matches = append(matches, port.VectorMatch{Chunk: chunk, Distance: sc.distance})
	}
	return matches, nil
}

func (s *SQLiteStore) DeleteBySource(ctx context.Context, source string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.StoreError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	ids, err := deleteSourceRows(ctx, tx, source)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.StoreError(fmt.Sprintf("failed to delete chunks of %s", source), err)
	}
	for _, id := range ids {
		s.index.remove(id)
	}
	return len(ids), nil
}

// deleteSourceRows removes the rows of source and returns their IDs.
func deleteSourceRows(ctx context.Context, tx *sql.Tx, source string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM chunks WHERE source = ?`, source)
	if err != nil {
		return nil, errors.StoreError(fmt.Sprintf("failed to delete chunks of %s", source), err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, errors.StoreError("failed to scan chunk id", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if len(ids) == 0 {
		return nil, nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE source = ?`, source); err != nil {
		return nil, errors.StoreError(fmt.Sprintf("failed to delete chunks of %s", source), err)
	}
	return ids, nil
}

func (s *SQLiteStore) Sources(ctx context.Context) ([]domain.SourceSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, COUNT(*), MIN(metadata) FROM chunks GROUP BY source ORDER BY source`)
	if err != nil {
		return nil, errors.StoreError("failed to list sources", err)
	}
	defer rows.Close()

	var out []domain.SourceSummary
	for rows.Next() {
		var summary domain.SourceSummary
		var meta string
		if err := rows.Scan(&summary.ID, &summary.Chunks, &meta); err != nil {
			return nil, errors.StoreError("failed to scan source", err)
		}
		var m map[string]string
		if json.Unmarshal([]byte(meta), &m) == nil {
			summary.Kind = m["type"]
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.len(), nil
}

func (s *SQLiteStore) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, stmt := range []string{`DELETE FROM chunks`, `DELETE FROM meta WHERE key = '` + keyDimension + `'`} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.StoreError("failed to clear store", err)
		}
	}
	s.index.reset()
	s.dimension = 0
	return nil
}

func (s *SQLiteStore) GetMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (s *SQLiteStore) PutMeta(key, value string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, key, value)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
