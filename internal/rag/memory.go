package rag

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"bga/internal/interpolation"
	"bga/internal/model"
	"bga/internal/textutil"
	"bga/internal/worker"
)

// ExactStore is an exact-match translation memory, satisfied by cache.TranslationCache.
type ExactStore interface {
	Get(ctx context.Context, source string) (string, bool)
	Set(ctx context.Context, engine, source, translated string) error
}

// Embedder turns texts into vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex stores and searches embeddings.
type VectorIndex interface {
	Store(ctx context.Context, records []EmbeddingRecord) error
	Search(ctx context.Context, query []float32, topK int) ([]SearchResult, error)
}

const embedBatchSize = 32

// Memory answers translation lookups from previously translated strings: exact
// matches first, then the closest embedding above the similarity threshold.
type Memory struct {
	exact     ExactStore
	embedder  Embedder
	vectors   VectorIndex
	threshold float64
}

// NewMemory creates a memory. embedder and vectors may be nil, which disables fuzzy
// matching.
func NewMemory(exact ExactStore, embedder Embedder, vectors VectorIndex, threshold float64) *Memory {
	return &Memory{exact: exact, embedder: embedder, vectors: vectors, threshold: threshold}
}

func (m *Memory) fuzzy() bool { return m.embedder != nil && m.vectors != nil }

// Lookup returns a remembered translation for source.
func (m *Memory) Lookup(ctx context.Context, source string) (string, bool) {
	if v, ok := m.exact.Get(ctx, source); ok {
		return v, true
	}
	if !m.fuzzy() {
		return "", false
	}

	vecs, err := m.embedder.Embed(ctx, []string{source})
	if err != nil || len(vecs) == 0 || vecs[0] == nil {
		log.Warn().Err(err).Str("text", textutil.Truncate(source, 40)).Msg("Query embedding failed")
		return "", false
	}

	results, err := m.vectors.Search(ctx, vecs[0], 1)
	if err != nil {
		log.Warn().Err(err).Msg("Vector search failed")
		return "", false
	}
	if len(results) == 0 || results[0].Score < m.threshold {
		return "", false
	}
	// A near-identical line with different control codes would show the wrong name
	// or colour.
	if !interpolation.Same(source, results[0].Source) {
		return "", false
	}

	log.Debug().
		Str("text", textutil.Truncate(source, 40)).
		Str("match", textutil.Truncate(results[0].Source, 40)).
		Float64("score", results[0].Score).
		Msg("Fuzzy memory hit")
	return results[0].Translated, true
}

// Ingest remembers every translated entry and returns how many were stored.
func (m *Memory) Ingest(ctx context.Context, engine string, entries []model.TextEntry) (int, error) {
	var translated []model.TextEntry
	seen := make(map[string]struct{})
	for _, e := range entries {
		if !e.Translated() {
			continue
		}
		key := textutil.MemoryKey(e.Source)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		translated = append(translated, e)
	}

	for _, e := range translated {
		if err := m.exact.Set(ctx, engine, e.Source, e.Text); err != nil {
			return 0, fmt.Errorf("remember %q: %w", textutil.Truncate(e.Source, 40), err)
		}
	}
	if !m.fuzzy() {
		return len(translated), nil
	}

	for i, batch := range worker.Batch(translated, embedBatchSize) {
		texts := make([]string, len(batch))
		for j, e := range batch {
			texts[j] = e.Source
		}
		vecs, err := m.embedder.Embed(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embed batch %d: %w", i, err)
		}

		records := make([]EmbeddingRecord, 0, len(batch))
		for j, e := range batch {
			if j >= len(vecs) || vecs[j] == nil {
				continue
			}
			records = append(records, EmbeddingRecord{
				Hash:       textutil.MemoryKey(e.Source),
				Source:     e.Source,
				Translated: e.Text,
				Engine:     engine,
				Vector:     vecs[j],
			})
		}
		if err := m.vectors.Store(ctx, records); err != nil {
			return 0, fmt.Errorf("store batch %d: %w", i, err)
		}

		log.Info().
			Int("batch", i+1).
			Int("total", len(translated)).
			Msg("Embedding progress")
	}

	return len(translated), nil
}
