package project

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bga/internal/model"
)

func sample() []model.TextEntry {
	return []model.TextEntry{
		{Source: "Hello", Path: "/g/data/Map002.json", Key: "events[1].name"},
		{Source: "Yes", Path: "/g/data/Map002.json", Key: "events[1].pages[0].list[2].parameters[0][0]"},
		{Source: "Yes", Path: "/g/data/Map002.json", Key: "events[2].pages[0].list[2].parameters[0][0]"},
		{Source: "Potion", Path: "/g/data/Items.json", Key: "[1].name", Text: "Poción"},
		{Source: "Yes", Path: "/g/data/Items.json", Key: "[2].name"},
	}
}

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "bga.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestProject_Files(t *testing.T) {
	p := &Project{Strings: sample()}
	assert.Equal(t, []FileSummary{
		{Path: "/g/data/Items.json", Name: "Items.json", Total: 2, Translated: 1},
		{Path: "/g/data/Map002.json", Name: "Map002.json", Total: 3},
	}, p.Files())
}

func TestProject_StringsIn(t *testing.T) {
	p := &Project{Strings: sample()}
	assert.Len(t, p.StringsIn("/g/data/Items.json", false), 2)

	pending := p.StringsIn("/g/data/Items.json", true)
	require.Len(t, pending, 1)
	assert.Equal(t, "Yes", pending[0].Source)
}

func TestProject_SetTranslation(t *testing.T) {
	p := &Project{Strings: sample()}

	assert.Equal(t, 2, p.SetTranslation("/g/data/Map002.json", "Yes", "Sí"))
	assert.Equal(t, 0, p.SetTranslation("/g/data/Map002.json", "Yes", "Sí"))
	assert.Empty(t, p.Strings[4].Text, "other files keep their own translation")
	assert.Equal(t, Summary{Total: 5, Translated: 3}, p.Summary())

	assert.Equal(t, 2, p.SetTranslation("/g/data/Map002.json", "Yes", ""))
}

func TestProject_Fill(t *testing.T) {
	p := &Project{Strings: sample()}
	memory := map[string]string{"Yes": "Sí", "Potion": "Brebaje"}

	n := p.Fill(func(source string) (string, bool) {
		text, ok := memory[source]
		return text, ok
	})
	assert.Equal(t, 3, n)
	assert.Equal(t, "Poción", p.Strings[3].Text, "existing translations are kept")
}

func TestStore_CreateGetUpdate(t *testing.T) {
	s := openStore(t)

	p, err := s.Create("rpgm", "/g", sample())
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)

	p.SetTranslation("/g/data/Map002.json", "Hello", "Hola")
	require.NoError(t, s.Update(p))

	got, err := s.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hola", got.Strings[0].Text)
	assert.Equal(t, "rpgm", got.Engine)

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].Translated)

	require.NoError(t, s.Delete(p.ID))
	_, err = s.Get(p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(p.ID), ErrNotFound)
}

func TestStore_Patterns(t *testing.T) {
	s := openStore(t)

	patterns, err := s.Patterns("rpgm")
	require.NoError(t, err)
	assert.Empty(t, patterns)

	require.NoError(t, s.SetPatterns("RPGM", []string{`^Var_?\d+$`}))
	patterns, err = s.Patterns("rpgm")
	require.NoError(t, err)
	assert.Equal(t, []string{`^Var_?\d+$`}, patterns)
}

func TestStore_ExportImportFilters(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.SetPatterns("rpgm", []string{`^A$`}))

	exported, err := s.ExportFilters()
	require.NoError(t, err)
	var decoded map[string][]string
	require.NoError(t, json.Unmarshal(exported, &decoded))
	assert.Equal(t, map[string][]string{"rpgm": {`^A$`}}, decoded)

	added, err := s.ImportFilters([]byte(`{"rpgm": ["^A$", "^B$"], "renpy": ["^C$", ""]}`))
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	filters, err := s.Filters()
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"rpgm": {`^A$`, `^B$`}, "renpy": {`^C$`}}, filters)

	_, err = s.ImportFilters([]byte(`[1, 2]`))
	assert.Error(t, err)
}

func TestStore_ImportFiltersRejectsInvalidPattern(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.SetPatterns("rpgm", []string{`^A$`}))

	added, err := s.ImportFilters([]byte(`{"renpy": ["^Ok$"], "rpgm": ["^Guard$", "("]}`))
	require.Error(t, err)
	assert.Zero(t, added)

	filters, err := s.Filters()
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"rpgm": {`^A$`}}, filters, "nothing is written")

	_, err = s.Filter("rpgm")
	require.NoError(t, err)
	_, err = s.CompiledFilters()
	require.NoError(t, err)

	assert.Error(t, s.SetPatterns("rpgm", []string{"("}))
}

func TestStore_CompiledFilters(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.SetPatterns("rpgm", []string{`^Switch_?\d+$`}))

	filters, err := s.CompiledFilters()
	require.NoError(t, err)
	require.Contains(t, filters, "rpgm")
	assert.True(t, filters["rpgm"].Learned("Switch_12"))

	f, err := s.Filter("unity")
	require.NoError(t, err)
	assert.Empty(t, f.Patterns())

	require.Error(t, s.SetPatterns("renpy", []string{"("}))
	filters, err = s.CompiledFilters()
	require.NoError(t, err)
	assert.NotContains(t, filters, "renpy")
}
