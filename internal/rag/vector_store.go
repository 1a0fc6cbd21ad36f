package rag

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
)

// DB is the subset of pgxpool.Pool the vector store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const (
	insertEmbedding = `
INSERT INTO memory_embeddings (hash, source, translated, engine, embedding)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (hash) DO UPDATE
SET translated = EXCLUDED.translated, engine = EXCLUDED.engine, embedding = EXCLUDED.embedding`

	searchEmbeddings = `
SELECT source, translated, 1 - (embedding <=> $1) AS similarity
FROM memory_embeddings
ORDER BY embedding <=> $1
LIMIT $2`
)

// VectorStore handles pgvector-backed embedding storage and similarity search.
type VectorStore struct {
	db         DB
	dimensions int
}

// NewVectorStore creates a new vector store for vectors of the given size.
func NewVectorStore(db DB, dimensions int) *VectorStore {
	return &VectorStore{db: db, dimensions: dimensions}
}

// EmbeddingRecord is a translated source text with its embedding.
type EmbeddingRecord struct {
	Hash       string
	Source     string
	Translated string
	Engine     string
	Vector     []float32
}

// SearchResult represents a similarity search match.
type SearchResult struct {
	Source     string
	Translated string
	Score      float64
}

// EnsureSchema creates the vector extension and the embeddings table.
func (vs *VectorStore) EnsureSchema(ctx context.Context) error {
	if _, err := vs.db.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}
	table := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS memory_embeddings (
	hash       TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	translated TEXT NOT NULL,
	engine     TEXT NOT NULL DEFAULT '',
	embedding  vector(%d) NOT NULL
)`, vs.dimensions)
	if _, err := vs.db.Exec(ctx, table); err != nil {
		return fmt.Errorf("create memory_embeddings: %w", err)
	}
	return nil
}

// Store upserts embedding records.
func (vs *VectorStore) Store(ctx context.Context, records []EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}

	for _, r := range records {
		if len(r.Vector) != vs.dimensions {
			return fmt.Errorf("insert embedding %s: got %d dimensions, want %d", r.Hash, len(r.Vector), vs.dimensions)
		}
		_, err := vs.db.Exec(ctx, insertEmbedding, r.Hash, r.Source, r.Translated, r.Engine, pgvector.NewVector(r.Vector))
		if err != nil {
			return fmt.Errorf("insert embedding %s: %w", r.Hash, err)
		}
	}

	log.Info().Int("count", len(records)).Msg("Stored embeddings")
	return nil
}

// Search finds the top-K most similar embeddings to the query vector.
func (vs *VectorStore) Search(ctx context.Context, queryVector []float32, topK int) ([]SearchResult, error) {
	rows, err := vs.db.Query(ctx, searchEmbeddings, pgvector.NewVector(queryVector), topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Source, &r.Translated, &r.Score); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return results, nil
}
