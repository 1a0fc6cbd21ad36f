// Package project persists analyzed projects and their in-progress translations,
// along with the learned ignore patterns of each engine.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"bga/internal/classifier"
	"bga/internal/model"
)

var (
	bucketProjects = []byte("projects")
	bucketFilters  = []byte("filters")
)

// ErrNotFound is returned for unknown project IDs.
var ErrNotFound = errors.New("project not found")

// Store is a bbolt-backed project database.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the store at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketProjects, bucketFilters} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Create stores a new project snapshot for an analysis result.
func (s *Store) Create(engine, source string, entries []model.TextEntry) (*Project, error) {
	now := time.Now().UTC()
	p := &Project{
		ID:        uuid.NewString(),
		Engine:    engine,
		Source:    source,
		CreatedAt: now,
		UpdatedAt: now,
		Strings:   entries,
	}
	if err := s.put(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get loads a project.
func (s *Store) Get(id string) (*Project, error) {
	var p Project
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketProjects).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Update stores p, refreshing its modification time.
func (s *Store) Update(p *Project) error {
	p.UpdatedAt = time.Now().UTC()
	return s.put(p)
}

func (s *Store) put(p *Project) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode project: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketProjects).Put([]byte(p.ID), data)
	})
}

// Delete removes a project.
func (s *Store) Delete(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketProjects)
		if b.Get([]byte(id)) == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return b.Delete([]byte(id))
	})
}

// List returns a summary of every project, most recently updated first.
func (s *Store) List() ([]Summary, error) {
	var out []Summary
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketProjects).ForEach(func(_, v []byte) error {
			var p Project
			if err := json.Unmarshal(v, &p); err != nil {
				return err
			}
			out = append(out, p.Summary())
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// Patterns returns the learned ignore patterns of an engine.
func (s *Store) Patterns(engine string) ([]string, error) {
	var patterns []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketFilters).Get([]byte(normalize(engine)))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &patterns)
	})
	if err != nil {
		return nil, fmt.Errorf("load patterns: %w", err)
	}
	return patterns, nil
}

// SetPatterns replaces the learned patterns of an engine. Every pattern must compile.
func (s *Store) SetPatterns(engine string, patterns []string) error {
	if _, err := classifier.NewFilter(patterns); err != nil {
		return fmt.Errorf("set patterns: %w", err)
	}
	data, err := json.Marshal(patterns)
	if err != nil {
		return fmt.Errorf("encode patterns: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketFilters).Put([]byte(normalize(engine)), data)
	})
}

// Filters returns every engine's patterns.
func (s *Store) Filters() (map[string][]string, error) {
	out := make(map[string][]string)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketFilters).ForEach(func(k, v []byte) error {
			var patterns []string
			if err := json.Unmarshal(v, &patterns); err != nil {
				return err
			}
			out[string(k)] = patterns
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load filters: %w", err)
	}
	return out, nil
}

// ExportFilters renders every engine's patterns as a JSON object.
func (s *Store) ExportFilters() ([]byte, error) {
	filters, err := s.Filters()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(filters, "", "  ")
}

// ImportFilters merges a JSON object of engine patterns into the store and returns
// how many new patterns were added.
func (s *Store) ImportFilters(data []byte) (int, error) {
	var incoming map[string][]string
	if err := json.Unmarshal(data, &incoming); err != nil {
		return 0, fmt.Errorf("decode filters: %w", err)
	}

	for engine, patterns := range incoming {
		if _, err := classifier.NewFilter(nonEmpty(patterns)); err != nil {
			return 0, fmt.Errorf("import filters for %s: %w", engine, err)
		}
	}

	added := 0
	for engine, patterns := range incoming {
		current, err := s.Patterns(engine)
		if err != nil {
			return added, err
		}
		for _, p := range patterns {
			if p != "" && !slices.Contains(current, p) {
				current = append(current, p)
				added++
			}
		}
		if err := s.SetPatterns(engine, current); err != nil {
			return added, err
		}
	}
	return added, nil
}

func nonEmpty(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalize(engine string) string {
	return strings.ToLower(strings.TrimSpace(engine))
}

// Filter compiles the learned patterns of one engine.
func (s *Store) Filter(engine string) (*classifier.Filter, error) {
	patterns, err := s.Patterns(engine)
	if err != nil {
		return nil, err
	}
	return classifier.NewFilter(patterns)
}

// CompiledFilters compiles every engine's patterns, keyed by engine name.
func (s *Store) CompiledFilters() (map[string]*classifier.Filter, error) {
	stored, err := s.Filters()
	if err != nil {
		return nil, err
	}
	filters := make(map[string]*classifier.Filter, len(stored))
	for name, patterns := range stored {
		f, err := classifier.NewFilter(patterns)
		if err != nil {
			return nil, fmt.Errorf("engine %s: %w", name, err)
		}
		filters[name] = f
	}
	return filters, nil
}
