// Package engine implements the per-engine drivers that turn a game project into
// text entries and write translations back.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"bga/internal/classifier"
	"bga/internal/decompile"
	"bga/internal/extract"
	"bga/internal/model"
)

var (
	ErrUnknownEngine = errors.New("unknown engine")
	ErrUnsupported   = errors.New("operation not supported")
	ErrPathNotFound  = errors.New("path does not exist")
)

// Driver analyzes and saves one engine's projects.
type Driver interface {
	Name() string
	// Analyze never fails with an error; failures are carried by the envelope.
	Analyze(ctx context.Context, source string) model.Output
	// Save writes the translated entries back. Entries without text are ignored.
	Save(ctx context.Context, texts []model.TextEntry) (*model.SaveReport, error)
	SupportsScriptPatch() bool
}

// ScriptPatcher is implemented by drivers whose runtime text hook can be patched.
type ScriptPatcher interface {
	ScriptTarget(project string) (model.ScriptTarget, bool)
}

// Options configures the drivers.
type Options struct {
	Workers      int
	BackupSuffix string
	// RenpyOutput is the translation file Ren'Py saves write. Relative paths are
	// resolved next to the translated scripts.
	RenpyOutput string
	Decompiler  *decompile.Unrpyc
	// Filter adds learned ignore patterns. Nil means heuristics only.
	Filter *classifier.Filter
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Workers:      4,
		BackupSuffix: ".backup",
		RenpyOutput:  "translations.rpy",
		Decompiler:   decompile.New("", 0),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Workers < 1 {
		o.Workers = d.Workers
	}
	if o.BackupSuffix == "" {
		o.BackupSuffix = d.BackupSuffix
	}
	if o.RenpyOutput == "" {
		o.RenpyOutput = d.RenpyOutput
	}
	if o.Decompiler == nil {
		o.Decompiler = d.Decompiler
	}
	return o
}

func (o Options) classifier() extract.Classifier {
	if o.Filter != nil {
		return o.Filter
	}
	return classifier.Default
}

var constructors = map[string]func(Options) Driver{
	"rpgm":  func(o Options) Driver { return NewRPGMaker(o) },
	"unity": func(o Options) Driver { return NewUnity(o) },
	"renpy": func(o Options) Driver { return NewRenpy(o) },
}

// Names lists the registered engines.
func Names() []string {
	return []string{"rpgm", "unity", "renpy"}
}

// New returns the driver registered under name, matched case-insensitively.
func New(name string, opts Options) (Driver, error) {
	ctor, ok := constructors[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
	return ctor(opts.withDefaults()), nil
}

// translated returns the entries that carry a translation.
func translated(texts []model.TextEntry) []model.TextEntry {
	var out []model.TextEntry
	for _, t := range texts {
		if t.Translated() {
			out = append(out, t)
		}
	}
	return out
}

// checkSource stats a project location.
func checkSource(source string) (os.FileInfo, error) {
	info, err := os.Stat(source)
	if os.IsNotExist(err) {
		return nil, ErrPathNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}
	return info, nil
}

// failure turns an analyze error into an envelope.
func failure(err error) model.Output {
	if errors.Is(err, ErrPathNotFound) {
		return model.Failure("Path does not exist")
	}
	return model.Failure(err.Error())
}
