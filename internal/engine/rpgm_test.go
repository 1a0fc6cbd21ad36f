package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bga/internal/document"
	"bga/internal/model"
)

const actorsJSON = `[
null,
{"id": 1, "name": "Harold", "nickname": "", "profile": "A young hero.", "faceName": "Actor1", "battlerName": "Actor1_1", "note": ""}
]`

func rpgmProject(t *testing.T) (root, actors string) {
	t.Helper()
	root = t.TempDir()
	actors = writeFile(t, root, "data/Actors.json", actorsJSON)
	writeFile(t, root, "data/Broken.json", `{not json`)
	writeFile(t, root, "fonts/GameFont.ttf", "font")
	writeFile(t, root, "package.json", `{"name": "Game"}`)
	return root, actors
}

func TestRPGMaker_Analyze(t *testing.T) {
	root, actors := rpgmProject(t)

	p := payloadOf(t, NewRPGMaker(Options{Workers: 2}).Analyze(context.Background(), root))
	assert.Equal(t, "rpgm", p.Engine)
	assert.Equal(t, root, p.Source)
	assert.Equal(t, 1, p.FilesProcessed)
	assert.Equal(t, 1, p.FilesFailed)
	assert.Equal(t, []model.TextEntry{
		{Source: "Harold", Path: actors, Key: "[1].name"},
		{Source: "A young hero.", Path: actors, Key: "[1].profile"},
	}, p.Strings)
	require.Len(t, p.Fonts, 1)
	assert.Equal(t, "GameFont", p.Fonts[0].Name)
}

func TestRPGMaker_AnalyzeEmptyProject(t *testing.T) {
	p := payloadOf(t, NewRPGMaker(Options{}).Analyze(context.Background(), t.TempDir()))
	assert.Empty(t, p.Strings)
	assert.Zero(t, p.FilesProcessed)
}

func TestRPGMaker_SaveRoundTrip(t *testing.T) {
	root, actors := rpgmProject(t)
	d := NewRPGMaker(Options{})

	p := payloadOf(t, d.Analyze(context.Background(), root))
	require.Len(t, p.Strings, 2)

	texts := append([]model.TextEntry{}, p.Strings...)
	texts[0].Text = "Haroldo"
	texts[1].Text = "Un joven \"héroe\"."
	texts = append(texts,
		model.TextEntry{Source: "Gone", Path: actors, Key: "[5].name", Text: "Parti"},
		model.TextEntry{Source: "Untranslated", Path: actors, Key: "[1].nickname"},
	)

	report, err := d.Save(context.Background(), texts)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Applied)
	assert.Equal(t, []string{actors}, report.FilesWritten)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, "[5].name", report.Warnings[0].Path)

	data, err := os.ReadFile(actors)
	require.NoError(t, err)
	doc, err := document.DecodeJSON(data)
	require.NoError(t, err)
	actor := doc.([]any)[1].(map[string]any)
	assert.Equal(t, "Haroldo", actor["name"])
	assert.Equal(t, "Un joven \"héroe\".", actor["profile"])
	assert.Equal(t, "Actor1", actor["faceName"])
	assert.Contains(t, string(data), "\n  {\n    \"battlerName\"")

	_, err = os.Stat(actors + ".backup")
	assert.True(t, os.IsNotExist(err), "backup is removed after a successful write")

	again := payloadOf(t, d.Analyze(context.Background(), root))
	assert.Equal(t, "Haroldo", again.Strings[0].Source)
}

func TestRPGMaker_SaveReportsBrokenFiles(t *testing.T) {
	root, actors := rpgmProject(t)
	broken := filepath.Join(root, "data", "Broken.json")

	report, err := NewRPGMaker(Options{}).Save(context.Background(), []model.TextEntry{
		{Source: "Harold", Path: actors, Key: "[1].name", Text: "Haroldo"},
		{Source: "x", Path: broken, Key: "name", Text: "y"},
		{Source: "x", Path: filepath.Join(root, "data", "Missing.json"), Key: "name", Text: "y"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Broken.json")
	assert.Contains(t, err.Error(), "Missing.json")
	assert.Equal(t, []string{actors}, report.FilesWritten)
	assert.Equal(t, 1, report.Applied)
}

func TestRPGMaker_SaveSkipsFileWhenNoEditApplies(t *testing.T) {
	_, actors := rpgmProject(t)
	before, err := os.ReadFile(actors)
	require.NoError(t, err)

	report, err := NewRPGMaker(Options{}).Save(context.Background(), []model.TextEntry{
		{Source: "Gone", Path: actors, Key: "[5].name", Text: "Parti"},
		{Source: "Nope", Path: actors, Key: "[1].missing.deep", Text: "Non"},
	})
	require.NoError(t, err)
	assert.Zero(t, report.Applied)
	assert.Empty(t, report.FilesWritten)
	assert.Len(t, report.Warnings, 2)

	after, err := os.ReadFile(actors)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after), "file is left byte-for-byte untouched")
	_, err = os.Stat(actors + ".backup")
	assert.True(t, os.IsNotExist(err))
}

func TestRPGMaker_SaveNothing(t *testing.T) {
	report, err := NewRPGMaker(Options{}).Save(context.Background(), []model.TextEntry{{Source: "a", Path: "x.json", Key: "name"}})
	require.NoError(t, err)
	assert.Zero(t, report.Applied)
	assert.Empty(t, report.FilesWritten)
}

func TestRPGMaker_ScriptTarget(t *testing.T) {
	root := t.TempDir()
	d := NewRPGMaker(Options{})

	_, ok := d.ScriptTarget(root)
	assert.False(t, ok)

	mz := writeFile(t, root, "js/rmmz_windows.js", "")
	target, ok := d.ScriptTarget(root)
	require.True(t, ok)
	assert.Equal(t, model.ScriptTarget{Path: mz, Function: "Window_Base.prototype.convertEscapeCharacters"}, target)

	mv := writeFile(t, root, "www/js/rpg_windows.js", "")
	target, ok = d.ScriptTarget(filepath.Join(root, "data"))
	require.True(t, ok)
	assert.Equal(t, mv, target.Path)
}
