// Package sqliteDB is the local embedded index: one SQLite file holding every
// topic, shared by the offline ingester and the server.
//
// Entries are keyed by (topic, ordinal). UpsertBatch replaces by that key and
// ReplaceTopic deletes and re-inserts the topic inside a single transaction,
// so readers see the old content until the commit. The vector size is written
// to a meta table on first open and checked on every later open.
package sqliteDB

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/akolanti/PortfolioRAG/internal/domain/commonModels"
	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioRAG/internal/rag/vectorDB"
	"github.com/akolanti/PortfolioRAG/pkg/logger_i"
	_ "github.com/mattn/go-sqlite3"
)

var (
	once     sync.Once
	instance *Store
	initErr  error
)

type Store struct {
	db        *sql.DB
	dimension int
	logger    *logger_i.Logger
}

// GetSQLiteStore opens the process-wide store on first use.
func GetSQLiteStore(ctx context.Context, path string, dimension int) (*Store, error) {
	once.Do(func() {
		instance, initErr = New(ctx, path, dimension)
	})
	return instance, initErr
}

func New(ctx context.Context, path string, dimension int) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, ragErrors.New(ragErrors.Configuration, "sqlite", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, ragErrors.New(ragErrors.Configuration, "sqlite", fmt.Errorf("sqlite open: %w", err))
	}
	s := &Store{db: db, dimension: dimension, logger: logger_i.NewLogger("sqlite_index")}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.logger.Info("SQLite index opened", "path", path, "dimension", dimension)
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chunks (
			topic   TEXT    NOT NULL,
			ordinal INTEGER NOT NULL,
			content TEXT    NOT NULL,
			vector  BLOB    NOT NULL,
			PRIMARY KEY (topic, ordinal)
		)`,
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return ragErrors.New(ragErrors.Configuration, "sqlite", fmt.Errorf("sqlite migrate: %w", err))
		}
	}

	var stored string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'dimension'`).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES ('dimension', ?)`, strconv.Itoa(s.dimension))
		if err != nil {
			return ragErrors.New(ragErrors.Configuration, "sqlite", err)
		}
	case err != nil:
		return ragErrors.New(ragErrors.Configuration, "sqlite", err)
	case stored != strconv.Itoa(s.dimension):
		return ragErrors.Newf(ragErrors.Configuration, "sqlite", "index was built with dimension %s, configured %d", stored, s.dimension)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, topic string, vector []float32, k int) ([]commonModels.SearchResult, error) {
	if err := vectorDB.CheckQuery(vector, k, s.dimension); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT ordinal, content, vector FROM chunks WHERE topic = ?`, topic)
	if err != nil {
		return nil, ragErrors.FromProvider("vector_search", err)
	}
	defer rows.Close()

	var entries []vectorDB.Entry
	for rows.Next() {
		var e vectorDB.Entry
		var blob []byte
		if err := rows.Scan(&e.Ordinal, &e.Text, &blob); err != nil {
			return nil, ragErrors.FromProvider("vector_search", err)
		}
		e.Vector = decodeVector(blob)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, ragErrors.FromProvider("vector_search", err)
	}
	return vectorDB.Rank(entries, vector, k), nil
}

func (s *Store) UpsertBatch(ctx context.Context, topic string, chunks []commonModels.DocChunk, vectors [][]float32) error {
	if err := vectorDB.CheckBatch(chunks, vectors, s.dimension); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return insert(ctx, tx, topic, chunks, vectors)
	})
}

func (s *Store) ReplaceTopic(ctx context.Context, topic string, chunks []commonModels.DocChunk, vectors [][]float32) error {
	if err := vectorDB.CheckBatch(chunks, vectors, s.dimension); err != nil {
		return err
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE topic = ?`, topic); err != nil {
			return err
		}
		return insert(ctx, tx, topic, chunks, vectors)
	})
	if err == nil {
		s.logger.Info("Topic replaced", "topic", topic, "chunks", len(chunks))
	}
	return err
}

func insert(ctx context.Context, tx *sql.Tx, topic string, chunks []commonModels.DocChunk, vectors [][]float32) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (topic, ordinal, content, vector) VALUES (?, ?, ?, ?)
		ON CONFLICT (topic, ordinal) DO UPDATE SET content = excluded.content, vector = excluded.vector`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, c := range chunks {
		if _, err := stmt.ExecContext(ctx, topic, c.Ordinal, c.Text, encodeVector(vectors[i])); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ragErrors.FromProvider("upsert", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return ragErrors.FromProvider("upsert", err)
	}
	if err := tx.Commit(); err != nil {
		return ragErrors.FromProvider("upsert", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v
}
