package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bga/internal/document"
	"bga/internal/model"
	"bga/internal/project"
	"bga/internal/relation"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("BGA_STORE_PATH", filepath.Join(dir, "bga.db"))
	t.Setenv("BGA_LOG_LEVEL", "error")
	return dir
}

func gameProject(t *testing.T) (root, actors string) {
	t.Helper()
	root = t.TempDir()
	actors = filepath.Join(root, "data", "Actors.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(actors), 0o755))
	require.NoError(t, os.WriteFile(actors, []byte(`[null, {"id": 1, "name": "Harold", "profile": "A young hero.", "faceName": "Actor1"}]`), 0o644))
	return root, actors
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestEngines(t *testing.T) {
	setupEnv(t)
	out, err := run(t, "", "engines")
	require.NoError(t, err)

	var names []string
	require.NoError(t, json.Unmarshal([]byte(out), &names))
	assert.Equal(t, []string{"rpgm", "unity", "renpy"}, names)
}

func TestAnalyzeAndSave(t *testing.T) {
	setupEnv(t)
	root, actors := gameProject(t)

	out, err := run(t, "", "analyze", "rpgm", root)
	require.NoError(t, err)

	var envelope model.Output
	require.NoError(t, json.Unmarshal([]byte(out), &envelope))
	payload, err := model.DecodePayload(envelope)
	require.NoError(t, err)
	require.Len(t, payload.Strings, 2)

	texts := payload.Strings
	texts[0].Text = "Haroldo"
	data, err := json.Marshal(texts)
	require.NoError(t, err)

	out, err = run(t, string(data), "save", "rpgm", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `"applied": 1`)

	raw, err := os.ReadFile(actors)
	require.NoError(t, err)
	doc, err := document.DecodeJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, "Haroldo", doc.([]any)[1].(map[string]any)["name"])
}

func TestAnalyze_MissingPath(t *testing.T) {
	setupEnv(t)
	out, err := run(t, "", "analyze", "rpgm", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Contains(t, out, "Path does not exist")
}

func TestAnalyze_UnknownEngine(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "", "analyze", "godot", t.TempDir())
	assert.Error(t, err)
}

func TestSave_InvalidInput(t *testing.T) {
	setupEnv(t)
	_, err := run(t, `[{"source": "x"}]`, "save", "rpgm", "-")
	assert.Error(t, err)
}

func TestProjectWorkflow(t *testing.T) {
	dir := setupEnv(t)
	root, actors := gameProject(t)

	out, err := run(t, "", "project", "open", "rpgm", root)
	require.NoError(t, err)
	var summary project.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 2, summary.Total)

	out, err = run(t, "", "project", "translate", summary.ID, actors, "Harold", "Haroldo")
	require.NoError(t, err)
	assert.Equal(t, "1 updated\n", out)

	out, err = run(t, "", "project", "strings", summary.ID, actors, "--hide-completed")
	require.NoError(t, err)
	var remaining []model.TextEntry
	require.NoError(t, json.Unmarshal([]byte(out), &remaining))
	require.Len(t, remaining, 1)
	assert.Equal(t, "A young hero.", remaining[0].Source)

	_, err = run(t, "", "project", "apply", summary.ID)
	require.NoError(t, err)
	raw, err := os.ReadFile(actors)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"Haroldo"`)

	out, err = run(t, "", "project", "list")
	require.NoError(t, err)
	var list []project.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].Translated)

	assert.FileExists(t, filepath.Join(dir, "bga.db"))
}

func TestFilterLearnAffectsAnalyze(t *testing.T) {
	dir := setupEnv(t)
	root, _ := gameProject(t)

	out, err := run(t, "", "filter", "learn", "rpgm", "Harold")
	require.NoError(t, err)
	assert.Contains(t, out, `^Harold$`)

	out, err = run(t, "", "analyze", "rpgm", root)
	require.NoError(t, err)
	assert.NotContains(t, out, `\"source\":\"Harold\"`)

	exported := filepath.Join(dir, "filters.json")
	_, err = run(t, "", "filter", "export", exported)
	require.NoError(t, err)

	_, err = run(t, "", "filter", "unlearn", "rpgm", "Harold")
	require.NoError(t, err)

	out, err = run(t, "", "filter", "import", exported)
	require.NoError(t, err)
	assert.Equal(t, "1 imported\n", out)
}

func TestRelations(t *testing.T) {
	setupEnv(t)
	root := t.TempDir()
	data := filepath.Join(root, "data")
	require.NoError(t, os.MkdirAll(data, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(data, "CommonEvents.json"),
		[]byte(`[null, {"id": 1, "name": "Intro", "list": [{"code": 117, "indent": 0, "parameters": [1]}]}]`), 0o644))

	out, err := run(t, "", "relations", root)
	require.NoError(t, err)

	var deps []relation.Dependency
	require.NoError(t, json.Unmarshal([]byte(out), &deps))
	require.Len(t, deps, 1)
	assert.Equal(t, relation.Calls, deps[0].Relation)
	assert.Equal(t, "ce_1", deps[0].Target.ID)
}

func TestScriptTarget(t *testing.T) {
	setupEnv(t)
	root := t.TempDir()
	script := filepath.Join(root, "js", "rmmz_windows.js")
	require.NoError(t, os.MkdirAll(filepath.Dir(script), 0o755))
	require.NoError(t, os.WriteFile(script, []byte("//"), 0o644))

	out, err := run(t, "", "script-target", "rpgm", root)
	require.NoError(t, err)
	assert.Contains(t, out, "Window_Base.prototype.convertEscapeCharacters")

	_, err = run(t, "", "script-target", "renpy", root)
	assert.Error(t, err)
}
