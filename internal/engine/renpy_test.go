package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bga/internal/classifier"
	"bga/internal/decompile"
	"bga/internal/model"
)

const scriptRPY = `label start:
    e "Hello, world!"
    "Narration line."
    menu:
        "Go left":
            jump left
    $ x = "not text"
`

func TestRenpy_Analyze(t *testing.T) {
	root := t.TempDir()
	script := writeFile(t, root, "script.rpy", scriptRPY)

	p := payloadOf(t, NewRenpy(Options{}).Analyze(context.Background(), root))
	assert.Equal(t, "renpy", p.Engine)
	assert.Equal(t, []model.TextEntry{
		{Source: "Hello, world!", Path: script, Key: "line:2"},
		{Source: "Narration line.", Path: script, Key: "line:3"},
		{Source: "Go left", Path: script, Key: "line:5"},
	}, p.Strings)
}

func TestRenpy_AnalyzeLearnedFilter(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "script.rpy", scriptRPY)

	filter, err := classifier.NewFilter([]string{classifier.PatternFor("Go left")})
	require.NoError(t, err)

	p := payloadOf(t, NewRenpy(Options{Filter: filter}).Analyze(context.Background(), root))
	assert.Len(t, p.Strings, 2)
}

func TestRenpy_AnalyzeNoScripts(t *testing.T) {
	out := NewRenpy(Options{}).Analyze(context.Background(), t.TempDir())
	require.True(t, out.Failed())
	assert.Equal(t, "No .rpy files found", *out.ErrorMessage)
}

func TestRenpy_AnalyzeWithoutDecompiler(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "script.rpyc", "compiled")

	missing := &decompile.Unrpyc{Run: func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("executable file not found")
	}}
	out := NewRenpy(Options{Decompiler: missing}).Analyze(context.Background(), root)
	require.True(t, out.Failed())
	assert.Equal(t, "unrpyc not found. Install: pip install unrpyc-ng", *out.ErrorMessage)
}

func TestRenpy_AnalyzeDecompiles(t *testing.T) {
	root := t.TempDir()
	compiled := writeFile(t, root, "script.rpyc", "compiled")

	fake := &decompile.Unrpyc{Command: "unrpyc", Run: func(_ context.Context, _ string, args ...string) ([]byte, error) {
		require.Equal(t, []string{compiled}, args)
		return nil, os.WriteFile(filepath.Join(root, "script.rpy"), []byte(scriptRPY), 0o644)
	}}
	p := payloadOf(t, NewRenpy(Options{Decompiler: fake}).Analyze(context.Background(), root))
	assert.Len(t, p.Strings, 3)
}

func TestRenpy_Save(t *testing.T) {
	root := t.TempDir()
	script := writeFile(t, root, "script.rpy", scriptRPY)

	report, err := NewRenpy(Options{}).Save(context.Background(), []model.TextEntry{
		{Source: "Hello, world!", Path: script, Key: "line:2", Text: `Bonjour, "monde" !`},
		{Source: "Narration line.", Path: script, Key: "line:3"},
	})
	require.NoError(t, err)

	output := filepath.Join(root, "translations.rpy")
	assert.Equal(t, &model.SaveReport{FilesWritten: []string{output}, Applied: 1}, report)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "translate None:\n    old \"Hello, world!\"\n    new \"Bonjour, \\\"monde\\\" !\"\n\n", string(data))
}

func TestRenderTranslations_Backslashes(t *testing.T) {
	got := renderTranslations([]model.TextEntry{
		{Source: `Line one\nLine two`, Text: `C:\saves\`},
		{Source: "Path", Text: "a\nb"},
	})
	want := "translate None:\n" +
		"    old \"Line one\\nLine two\"\n" +
		"    new \"C:\\\\saves\\\\\"\n\n" +
		"translate None:\n" +
		"    old \"Path\"\n" +
		"    new \"a\\nb\"\n\n"
	assert.Equal(t, want, string(got))
}

func TestRenpy_SaveAbsoluteOutput(t *testing.T) {
	output := filepath.Join(t.TempDir(), "fr.rpy")
	_, err := NewRenpy(Options{RenpyOutput: output}).Save(context.Background(), []model.TextEntry{
		{Source: "Yes", Path: "/elsewhere/script.rpy", Key: "line:1", Text: "Oui"},
	})
	require.NoError(t, err)
	assert.FileExists(t, output)
}

func TestMatchLine(t *testing.T) {
	tests := []struct {
		line string
		want string
		ok   bool
	}{
		{`    "Plain narration"`, "Plain narration", true},
		{`    mc "Speaker line" with dissolve`, "Speaker line", true},
		{`    "Choice one":`, "Choice one", true},
		{`    "   "`, "", false},
		{`    show eileen happy`, "", false},
		{`    $ name = "Eileen"`, "", false},
	}
	for _, tt := range tests {
		got, ok := matchLine(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}
}
