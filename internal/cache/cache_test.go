package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bga/internal/textutil"
)

type row struct {
	value string
	err   error
}

func (r row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*string)) = r.value
	return nil
}

type fakeDB struct {
	rows    map[string]string
	execs   [][]any
	queries int
}

func (f *fakeDB) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, args)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDB) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	f.queries++
	if v, ok := f.rows[args[0].(string)]; ok {
		return row{value: v}
	}
	return row{err: pgx.ErrNoRows}
}

func TestTranslationCache_GetFromDatabase(t *testing.T) {
	db := &fakeDB{rows: map[string]string{textutil.MemoryKey("Potion"): "Poción"}}
	c := NewTranslationCache(db)

	got, ok := c.Get(context.Background(), "Potion ")
	require.True(t, ok)
	assert.Equal(t, "Poción", got)

	_, ok = c.Get(context.Background(), "Potion")
	assert.True(t, ok)
	assert.Equal(t, 1, db.queries, "second lookup is served from memory")

	_, ok = c.Get(context.Background(), "Ether")
	assert.False(t, ok)
}

func TestTranslationCache_Set(t *testing.T) {
	db := &fakeDB{}
	c := NewTranslationCache(db)

	require.NoError(t, c.Set(context.Background(), "rpgm", "Yes", "Sí"))
	require.Len(t, db.execs, 1)
	assert.Equal(t, []any{textutil.MemoryKey("Yes"), "Yes", "Sí", "rpgm"}, db.execs[0])

	got, ok := c.Get(context.Background(), "Yes")
	require.True(t, ok)
	assert.Equal(t, "Sí", got)
	assert.Zero(t, db.queries)
	assert.Equal(t, 1, c.Len())
}

func TestTranslationCache_MemoryOnly(t *testing.T) {
	c := NewTranslationCache(nil)
	require.NoError(t, c.EnsureSchema(context.Background()))
	require.NoError(t, c.Preload(context.Background()))

	_, ok := c.Get(context.Background(), "Yes")
	assert.False(t, ok)

	require.NoError(t, c.Set(context.Background(), "renpy", "Yes", "Oui"))
	got, ok := c.Get(context.Background(), "Yes")
	require.True(t, ok)
	assert.Equal(t, "Oui", got)
}

func TestTranslationCache_EnsureSchema(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, NewTranslationCache(db).EnsureSchema(context.Background()))
	assert.Len(t, db.execs, 1)
}
