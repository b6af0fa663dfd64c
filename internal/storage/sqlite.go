//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"ampclimb/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveBatch(ctx context.Context, batch model.Batch) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeBatch(batch)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO batches (id, created_at_utc, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created_at_utc = excluded.created_at_utc,
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, batch.ID, batch.CreatedAtUTC, batch.SchemaVersion, batch.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetBatch(ctx context.Context, id string) (model.Batch, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.Batch{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM batches WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Batch{}, false, nil
		}
		return model.Batch{}, false, err
	}

	batch, err := DecodeBatch(payload)
	if err != nil {
		return model.Batch{}, false, fmt.Errorf("decode batch %s: %w", id, err)
	}
	return batch, true, nil
}

func (s *SQLiteStore) ListBatches(ctx context.Context) ([]model.BatchSummary, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id, payload FROM batches`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BatchSummary
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		batch, err := DecodeBatch(payload)
		if err != nil {
			return nil, fmt.Errorf("decode batch %s: %w", id, err)
		}
		out = append(out, batch.Summarize())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *SQLiteStore) DeleteBatch(ctx context.Context, id string) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `DELETE FROM batches WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS batches (
			id TEXT PRIMARY KEY,
			created_at_utc TEXT NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	return err
}
