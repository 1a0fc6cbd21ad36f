package bridge

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bga/internal/classifier"
	"bga/internal/engine"
	"bga/internal/model"
)

func project(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	actors := filepath.Join(root, "data", "Actors.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(actors), 0o755))
	require.NoError(t, os.WriteFile(actors, []byte(`[null, {"id": 1, "name": "Harold"}]`), 0o644))
	return root, actors
}

func TestAnalyze(t *testing.T) {
	root, actors := project(t)
	b := New(engine.DefaultOptions(), nil)

	raw, ok := b.Analyze(context.Background(), "RPGM", root)
	require.True(t, ok)

	var out model.Output
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	p, err := model.DecodePayload(out)
	require.NoError(t, err)
	assert.Equal(t, []model.TextEntry{{Source: "Harold", Path: actors, Key: "[1].name"}}, p.Strings)
}

func TestAnalyze_FailureCarriesMessage(t *testing.T) {
	raw, ok := New(engine.DefaultOptions(), nil).Analyze(context.Background(), "rpgm", filepath.Join(t.TempDir(), "missing"))
	require.True(t, ok)
	assert.Contains(t, raw, `"error_message":"Path does not exist"`)
}

func TestAnalyze_NilSentinels(t *testing.T) {
	b := New(engine.DefaultOptions(), nil)

	_, ok := b.Analyze(context.Background(), "godot", t.TempDir())
	assert.False(t, ok)

	_, ok = b.Analyze(context.Background(), "rpgm", string([]byte{0xff, 0xfe}))
	assert.False(t, ok)
}

func TestSave(t *testing.T) {
	_, actors := project(t)
	b := New(engine.DefaultOptions(), nil)

	texts, err := json.Marshal([]model.TextEntry{{Source: "Harold", Path: actors, Key: "[1].name", Text: "Haroldo"}})
	require.NoError(t, err)

	assert.Equal(t, StatusOK, b.Save(context.Background(), "rpgm", string(texts)))

	data, err := os.ReadFile(actors)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name": "Haroldo"`)
}

func TestSave_StatusCodes(t *testing.T) {
	b := New(engine.DefaultOptions(), nil)
	valid := `[{"source": "a", "path": "/nonexistent/x.json", "key": "name", "text": "b"}]`

	assert.Equal(t, StatusEngineEncoding, b.Save(context.Background(), string([]byte{0xff}), valid))
	assert.Equal(t, StatusTextsEncoding, b.Save(context.Background(), "rpgm", string([]byte{0xff})))
	assert.Equal(t, StatusInvalidJSON, b.Save(context.Background(), "rpgm", `{"not": "an array"}`))
	assert.Equal(t, StatusUnknownEngine, b.Save(context.Background(), "godot", valid))
	assert.Equal(t, StatusSaveFailed, b.Save(context.Background(), "rpgm", valid))
	assert.Equal(t, StatusSaveFailed, b.Save(context.Background(), "unity", valid))
}

func TestAvailable(t *testing.T) {
	assert.JSONEq(t, `["rpgm", "unity", "renpy"]`, New(engine.DefaultOptions(), nil).Available())
}

func TestScriptTarget(t *testing.T) {
	root, _ := project(t)
	b := New(engine.DefaultOptions(), nil)

	_, ok := b.ScriptTarget("rpgm", root)
	assert.False(t, ok)

	script := filepath.Join(root, "js", "rpg_windows.js")
	require.NoError(t, os.MkdirAll(filepath.Dir(script), 0o755))
	require.NoError(t, os.WriteFile(script, nil, 0o644))

	raw, ok := b.ScriptTarget("rpgm", root)
	require.True(t, ok)
	var target model.ScriptTarget
	require.NoError(t, json.Unmarshal([]byte(raw), &target))
	assert.Equal(t, script, target.Path)

	_, ok = b.ScriptTarget("renpy", root)
	assert.False(t, ok)
}

func TestAnalyze_LearnedFilterPerEngine(t *testing.T) {
	root, _ := project(t)
	filter, err := classifier.NewFilter([]string{classifier.PatternFor("Harold")})
	require.NoError(t, err)

	b := New(engine.DefaultOptions(), map[string]*classifier.Filter{"rpgm": filter})
	raw, ok := b.Analyze(context.Background(), "Rpgm", root)
	require.True(t, ok)

	var out model.Output
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	p, err := model.DecodePayload(out)
	require.NoError(t, err)
	assert.Empty(t, p.Strings)
}
