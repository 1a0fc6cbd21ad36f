package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"

	"bga/internal/textutil"
)

// DB is the subset of pgxpool.Pool the cache uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schema = `
CREATE TABLE IF NOT EXISTS translation_memory (
	hash       TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	translated TEXT NOT NULL,
	engine     TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const (
	getQuery    = `SELECT translated FROM translation_memory WHERE hash = $1`
	upsertQuery = `
INSERT INTO translation_memory (hash, source, translated, engine)
VALUES ($1, $2, $3, $4)
ON CONFLICT (hash) DO UPDATE
SET translated = EXCLUDED.translated, engine = EXCLUDED.engine, updated_at = now()`
	listQuery = `SELECT hash, translated FROM translation_memory`
)

// TranslationCache provides in-memory + PostgreSQL-backed exact translation memory.
type TranslationCache struct {
	db     DB
	mu     sync.RWMutex
	memory map[string]string // hash → translated text
}

// NewTranslationCache creates a new cache backed by PostgreSQL. A nil db keeps the
// cache in memory only.
func NewTranslationCache(db DB) *TranslationCache {
	return &TranslationCache{
		db:     db,
		memory: make(map[string]string),
	}
}

// EnsureSchema creates the memory table.
func (c *TranslationCache) EnsureSchema(ctx context.Context) error {
	if c.db == nil {
		return nil
	}
	if _, err := c.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create translation_memory: %w", err)
	}
	return nil
}

// Get retrieves a cached translation. Returns empty string and false if not found.
func (c *TranslationCache) Get(ctx context.Context, sourceText string) (string, bool) {
	hash := textutil.MemoryKey(sourceText)

	c.mu.RLock()
	if v, ok := c.memory[hash]; ok {
		c.mu.RUnlock()
		return v, true
	}
	c.mu.RUnlock()

	if c.db == nil {
		return "", false
	}

	var translated string
	if err := c.db.QueryRow(ctx, getQuery, hash).Scan(&translated); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			log.Warn().Err(err).Str("text", textutil.Truncate(sourceText, 40)).Msg("Translation memory lookup failed")
		}
		return "", false
	}

	c.mu.Lock()
	c.memory[hash] = translated
	c.mu.Unlock()

	return translated, true
}

// Set stores a translation in both in-memory and PostgreSQL cache.
func (c *TranslationCache) Set(ctx context.Context, engine, sourceText, translated string) error {
	hash := textutil.MemoryKey(sourceText)

	c.mu.Lock()
	c.memory[hash] = translated
	c.mu.Unlock()

	if c.db == nil {
		return nil
	}
	if _, err := c.db.Exec(ctx, upsertQuery, hash, sourceText, translated, engine); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Preload loads all cached translations into memory.
func (c *TranslationCache) Preload(ctx context.Context) error {
	if c.db == nil {
		return nil
	}
	rows, err := c.db.Query(ctx, listQuery)
	if err != nil {
		return fmt.Errorf("preload cache: %w", err)
	}
	defer rows.Close()

	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for rows.Next() {
		var hash, translated string
		if err := rows.Scan(&hash, &translated); err != nil {
			return fmt.Errorf("scan cache row: %w", err)
		}
		c.memory[hash] = translated
		count++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("preload cache: %w", err)
	}

	log.Info().Int("count", count).Msg("Preloaded translation cache")
	return nil
}

// Len returns the number of translations held in memory.
func (c *TranslationCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.memory)
}
