// Package bridge is the string-in, string-out surface exposed to host applications
// through the C shared library. Every failure maps to a status code or a nil result.
package bridge

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"bga/internal/classifier"
	"bga/internal/engine"
)

// Version is reported by the shared library.
const Version = "0.1.0"

// Save status codes.
const (
	StatusOK             = 0
	StatusEngineEncoding = -1
	StatusTextsEncoding  = -2
	StatusInvalidJSON    = -3
	StatusUnknownEngine  = -4
	StatusSaveFailed     = -5
)

// Bridge dispatches calls to the engine drivers.
type Bridge struct {
	opts    engine.Options
	filters map[string]*classifier.Filter
}

// New creates a bridge whose drivers use opts. filters holds the learned ignore
// patterns per engine name and may be nil.
func New(opts engine.Options, filters map[string]*classifier.Filter) *Bridge {
	return &Bridge{opts: opts, filters: filters}
}

func (b *Bridge) driver(name string) (engine.Driver, error) {
	opts := b.opts
	if f, ok := b.filters[strings.ToLower(strings.TrimSpace(name))]; ok {
		opts.Filter = f
	}
	return engine.New(name, opts)
}

// Analyze returns the analyze envelope as JSON. ok is false for arguments that are
// not UTF-8 and for unknown engines; the caller then returns a null pointer.
func (b *Bridge) Analyze(ctx context.Context, engineName, path string) (string, bool) {
	if !utf8.ValidString(engineName) || !utf8.ValidString(path) {
		return "", false
	}
	d, err := b.driver(engineName)
	if err != nil {
		log.Warn().Err(err).Msg("Analyze rejected")
		return "", false
	}

	data, err := json.Marshal(d.Analyze(ctx, path))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Save parses the JSON text list and saves it with the named engine.
func (b *Bridge) Save(ctx context.Context, engineName, texts string) int {
	if !utf8.ValidString(engineName) {
		return StatusEngineEncoding
	}
	if !utf8.ValidString(texts) {
		return StatusTextsEncoding
	}

	entries, err := engine.ParseTexts([]byte(texts))
	if err != nil {
		log.Warn().Err(err).Msg("Save input rejected")
		return StatusInvalidJSON
	}

	d, err := b.driver(engineName)
	if err != nil {
		return StatusUnknownEngine
	}

	report, err := d.Save(ctx, entries)
	if err != nil {
		log.Error().Err(err).Str("engine", d.Name()).Msg("Save failed")
		return StatusSaveFailed
	}
	for _, w := range report.Warnings {
		log.Warn().Str("file", w.File).Str("path", w.Path).Str("reason", w.Reason).Msg("Translation not applied")
	}
	return StatusOK
}

// Available returns the engine names as a JSON array.
func (b *Bridge) Available() string {
	data, _ := json.Marshal(engine.Names())
	return string(data)
}

// ScriptTarget returns the script patch target of a project as JSON. ok is false when
// the engine is unknown, does not patch scripts, or no script file exists.
func (b *Bridge) ScriptTarget(engineName, project string) (string, bool) {
	if !utf8.ValidString(engineName) || !utf8.ValidString(project) {
		return "", false
	}
	d, err := b.driver(engineName)
	if err != nil {
		return "", false
	}
	patcher, ok := d.(engine.ScriptPatcher)
	if !ok || !d.SupportsScriptPatch() {
		return "", false
	}
	target, ok := patcher.ScriptTarget(project)
	if !ok {
		return "", false
	}
	data, err := json.Marshal(target)
	if err != nil {
		return "", false
	}
	return string(data), true
}
