package engine

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"bga/internal/decompile"
	"bga/internal/filewalker"
	"bga/internal/fsutil"
	"bga/internal/model"
)

var (
	// dialoguePattern matches `"Text"` and `speaker "Text"` lines.
	dialoguePattern = regexp.MustCompile(`^\s*(?:[a-zA-Z_]\w*\s+)?"([^"]+)"`)
	// menuPattern matches a menu choice: `"Choice":`.
	menuPattern = regexp.MustCompile(`^\s*"([^"]+)"\s*:`)
)

var (
	rpyExt  = map[string]bool{".rpy": true}
	rpycExt = map[string]bool{".rpyc": true}
)

// Renpy handles Ren'Py games by scanning script lines. Saves produce a separate
// translation file instead of editing the scripts.
type Renpy struct {
	opts Options
}

// NewRenpy creates the Ren'Py driver.
func NewRenpy(opts Options) *Renpy {
	return &Renpy{opts: opts.withDefaults()}
}

func (r *Renpy) Name() string { return "renpy" }

func (r *Renpy) SupportsScriptPatch() bool { return false }

// Analyze decompiles compiled scripts when needed, then scans every .rpy directly
// inside source.
func (r *Renpy) Analyze(ctx context.Context, source string) model.Output {
	if _, err := checkSource(source); err != nil {
		return failure(err)
	}

	compiled, err := filewalker.Shallow(source, rpycExt)
	if err != nil {
		return failure(err)
	}
	if len(compiled) > 0 {
		n, err := r.opts.Decompiler.Dir(ctx, source)
		if errors.Is(err, decompile.ErrNotFound) {
			return model.Failure("unrpyc not found. Install: pip install unrpyc-ng")
		}
		if err != nil {
			return model.Failure(fmt.Sprintf("Decompile failed: %v", err))
		}
		log.Info().Int("files", n).Msg("Decompiled Ren'Py scripts")
	}

	scripts, err := filewalker.Shallow(source, rpyExt)
	if err != nil {
		return failure(err)
	}

	payload := model.Payload{Engine: r.Name(), Source: source, Strings: []model.TextEntry{}}
	for _, script := range scripts {
		entries, err := r.scanFile(script.Path)
		if err != nil {
			log.Warn().Err(err).Str("file", script.Path).Msg("Failed to scan script")
			payload.FilesFailed++
			continue
		}
		payload.FilesProcessed++
		payload.Strings = append(payload.Strings, entries...)
	}

	if len(payload.Strings) == 0 {
		return model.Failure("No .rpy files found")
	}

	log.Info().
		Str("source", source).
		Int("strings", len(payload.Strings)).
		Int("files", payload.FilesProcessed).
		Msg("Analyzed Ren'Py project")

	return model.Success(payload)
}

// scanFile extracts dialogue and menu lines. Keys are "line:N", 1-based.
func (r *Renpy) scanFile(path string) ([]model.TextEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open script: %w", err)
	}
	defer f.Close()

	var entries []model.TextEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 1; scanner.Scan(); line++ {
		text, ok := matchLine(scanner.Text())
		if !ok || r.opts.Filter.Learned(text) {
			continue
		}
		entries = append(entries, model.TextEntry{
			Source: text,
			Path:   path,
			Key:    fmt.Sprintf("line:%d", line),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan script: %w", err)
	}
	return entries, nil
}

// matchLine tries the dialogue pattern, then the menu pattern.
func matchLine(line string) (string, bool) {
	m := dialoguePattern.FindStringSubmatch(line)
	if m == nil {
		m = menuPattern.FindStringSubmatch(line)
	}
	if m == nil || strings.TrimSpace(m[1]) == "" {
		return "", false
	}
	return m[1], true
}

// Save writes a "translate None:" block for every translated entry.
func (r *Renpy) Save(ctx context.Context, texts []model.TextEntry) (*model.SaveReport, error) {
	entries := translated(texts)
	if len(entries) == 0 {
		return &model.SaveReport{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	output := r.opts.RenpyOutput
	if !filepath.IsAbs(output) {
		output = filepath.Join(filepath.Dir(entries[0].Path), output)
	}

	if err := fsutil.WriteAtomic(output, renderTranslations(entries)); err != nil {
		return nil, fmt.Errorf("write translations: %w", err)
	}

	log.Info().Str("output", output).Int("entries", len(entries)).Msg("Wrote Ren'Py translations")
	return &model.SaveReport{FilesWritten: []string{output}, Applied: len(entries)}, nil
}

func renderTranslations(entries []model.TextEntry) []byte {
	var buf bytes.Buffer
	for _, e := range entries {
		buf.WriteString("translate None:\n")
		fmt.Fprintf(&buf, "    old \"%s\"\n", oldEscaper.Replace(e.Source))
		fmt.Fprintf(&buf, "    new \"%s\"\n", newEscaper.Replace(e.Text))
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

var (
	// oldEscaper keeps backslashes as scanned so existing escapes in the script
	// still match Ren'Py's lookup key.
	oldEscaper = strings.NewReplacer(`"`, `\"`, "\n", `\n`)
	// newEscaper treats the translation as plain text.
	newEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
)
