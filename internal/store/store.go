// Package store persists document chunks and their embeddings in
// PostgreSQL with the pgvector extension.
//
// The table is a flat append-only row store: inserts happen in batches
// (one transaction per ingested document) and retrieval reads the
// whole table back. There is no nearest-neighbor index at this corpus
// scale; keeping the scan behind ScanAll lets an indexed search
// replace it later without touching callers.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Chunk is a persisted unit of retrievable text.
type Chunk struct {
	ID         int64
	Source     string // identifier of the originating document
	ChunkIndex int    // zero-based ordinal within the source
	Content    string
	Embedding  []float32
	CreatedAt  time.Time
}

// SourceInfo summarizes one ingested source.
type SourceInfo struct {
	Source       string    `json:"source"`
	Chunks       int64     `json:"chunks"`
	LastIngested time.Time `json:"lastIngested"`
}

// Store manages the chunks table.
//
// Store is safe for concurrent use; writes serialize at the storage
// layer through per-batch transactions while scans read concurrently.
type Store struct {
	pool      *pgxpool.Pool
	dimension int
	logger    *slog.Logger
}

// New creates a Store. dimension is the embedding length every stored
// vector must have; mixing embedding models with different dimensions
// in one corpus is rejected, not silently stored.
func New(pool *pgxpool.Pool, dimension int, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, dimension: dimension, logger: logger}
}

// InsertBatch stores all chunks in a single transaction and returns
// the number inserted. Either every row lands or none do, so a failed
// ingestion never leaves a partially-indexed document behind.
//
// Duplicate (source, chunkIndex) pairs are allowed by design:
// re-ingesting a document appends a new version of its chunks.
func (s *Store) InsertBatch(ctx context.Context, chunks []Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	for i, c := range chunks {
		if len(c.Embedding) != s.dimension {
			return 0, fmt.Errorf("chunk %d of %q: embedding dimension %d, store requires %d",
				i, c.Source, len(c.Embedding), s.dimension)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin insert transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, c := range chunks {
		batch.Queue(
			`INSERT INTO chunks (source, chunk_index, content, embedding, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			c.Source, c.ChunkIndex, c.Content, pgvector.NewVector(c.Embedding), c.CreatedAt,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for range chunks {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return 0, fmt.Errorf("insert chunk batch: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("close chunk batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit chunk batch: %w", err)
	}

	s.logger.Debug("inserted chunk batch",
		"source", chunks[0].Source,
		"chunks", len(chunks),
	)
	return len(chunks), nil
}

// ScanAll returns every stored chunk with its vector, in insertion
// order. Insertion order is the tie-break order for equal similarity
// scores downstream.
func (s *Store) ScanAll(ctx context.Context) ([]Chunk, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, source, chunk_index, content, embedding, created_at
		 FROM chunks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("scan chunks: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var (
			c   Chunk
			vec pgvector.Vector
		)
		if err := rows.Scan(&c.ID, &c.Source, &c.ChunkIndex, &c.Content, &vec, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		c.Embedding = vec.Slice()
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunk rows: %w", err)
	}
	return chunks, nil
}

// ListSources returns every distinct source with its chunk count and
// most recent ingestion time. No embeddings are read.
func (s *Store) ListSources(ctx context.Context) ([]SourceInfo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT source, COUNT(*), MAX(created_at)
		 FROM chunks GROUP BY source ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var infos []SourceInfo
	for rows.Next() {
		var info SourceInfo
		if err := rows.Scan(&info.Source, &info.Chunks, &info.LastIngested); err != nil {
			return nil, fmt.Errorf("scan source row: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source rows: %w", err)
	}
	return infos, nil
}
