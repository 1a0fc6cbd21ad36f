package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"bga/internal/document"
	"bga/internal/extract"
	"bga/internal/filewalker"
	"bga/internal/fsutil"
	"bga/internal/model"
	"bga/internal/mutate"
	"bga/internal/worker"
)

// scriptCandidates are tried in order, relative to the project root.
var scriptCandidates = []string{
	"www/js/rpg_windows.js",
	"js/rpg_windows.js",
	"js/rmmz_windows.js",
}

const scriptFunction = "Window_Base.prototype.convertEscapeCharacters"

// RPGMaker handles RPG Maker MV/MZ projects.
type RPGMaker struct {
	opts   Options
	walker *extract.Walker
}

// NewRPGMaker creates the RPG Maker driver.
func NewRPGMaker(opts Options) *RPGMaker {
	opts = opts.withDefaults()
	return &RPGMaker{
		opts:   opts,
		walker: extract.New(extract.RPGMaker, opts.classifier()),
	}
}

func (r *RPGMaker) Name() string { return "rpgm" }

func (r *RPGMaker) SupportsScriptPatch() bool { return true }

// ScriptTarget finds the window script that renders message text.
func (r *RPGMaker) ScriptTarget(project string) (model.ScriptTarget, bool) {
	path, ok := filewalker.FirstExisting(filewalker.ProjectRoot(project), scriptCandidates...)
	if !ok {
		return model.ScriptTarget{}, false
	}
	return model.ScriptTarget{Path: path, Function: scriptFunction}, true
}

// Analyze extracts text from the data and plugin JSON files. Files that fail to
// parse are counted and skipped.
func (r *RPGMaker) Analyze(ctx context.Context, source string) model.Output {
	if _, err := checkSource(source); err != nil {
		return failure(err)
	}

	files, err := filewalker.RPGMakerData(source)
	if err != nil {
		return failure(err)
	}

	pool := worker.NewPool(r.opts.Workers, r.analyzeFile)
	tasks := pool.Execute(ctx, files)

	payload := model.Payload{
		Engine:  r.Name(),
		Source:  source,
		Strings: []model.TextEntry{},
		Fonts:   filewalker.Fonts(source),
	}
	for _, task := range tasks {
		if task.Err != nil {
			log.Warn().Err(task.Err).Str("file", task.Input).Msg("Failed to analyze file")
			payload.FilesFailed++
			continue
		}
		payload.FilesProcessed++
		payload.Strings = append(payload.Strings, task.Result...)
	}

	log.Info().
		Str("source", source).
		Int("strings", len(payload.Strings)).
		Int("processed", payload.FilesProcessed).
		Int("failed", payload.FilesFailed).
		Msg("Analyzed RPG Maker project")

	return model.Success(payload)
}

func (r *RPGMaker) analyzeFile(ctx context.Context, path string) ([]model.TextEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	doc, err := document.DecodeJSON(data)
	if err != nil {
		return nil, err
	}
	return r.walker.Walk(doc, path), nil
}

// Save applies translations file by file. A file that cannot be read, parsed or
// written fails on its own; paths that no longer resolve are reported as warnings.
func (r *RPGMaker) Save(ctx context.Context, texts []model.TextEntry) (*model.SaveReport, error) {
	byFile := make(map[string][]mutate.Edit)
	for _, t := range translated(texts) {
		byFile[t.Path] = append(byFile[t.Path], mutate.Edit{Path: t.Key, Text: t.Text})
	}

	files := make([]string, 0, len(byFile))
	for f := range byFile {
		files = append(files, f)
	}
	sort.Strings(files)

	report := &model.SaveReport{}
	var (
		mu   sync.Mutex
		errs []error
	)

	var g errgroup.Group
	g.SetLimit(r.opts.Workers)
	for _, file := range files {
		file := file
		g.Go(func() error {
			applied, warnings, err := r.saveFile(ctx, file, byFile[file])

			mu.Lock()
			defer mu.Unlock()
			report.Warnings = append(report.Warnings, warnings...)
			if err != nil {
				errs = append(errs, fmt.Errorf("save %s: %w", file, err))
				return nil
			}
			if applied == 0 {
				return nil
			}
			report.Applied += applied
			report.FilesWritten = append(report.FilesWritten, file)
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(report.FilesWritten)
	sort.Slice(report.Warnings, func(i, j int) bool {
		if report.Warnings[i].File != report.Warnings[j].File {
			return report.Warnings[i].File < report.Warnings[j].File
		}
		return report.Warnings[i].Path < report.Warnings[j].Path
	})

	log.Info().
		Int("files", len(report.FilesWritten)).
		Int("applied", report.Applied).
		Int("warnings", len(report.Warnings)).
		Msg("Saved RPG Maker translations")

	return report, errors.Join(errs...)
}

func (r *RPGMaker) saveFile(ctx context.Context, file string, edits []mutate.Edit) (int, []model.SaveWarning, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return 0, nil, fmt.Errorf("read file: %w", err)
	}
	doc, err := document.DecodeJSON(data)
	if err != nil {
		return 0, nil, err
	}

	updated, failures := mutate.Apply(doc, edits)
	warnings := make([]model.SaveWarning, 0, len(failures))
	for _, f := range failures {
		log.Warn().Str("file", file).Str("path", f.Path).Err(f.Err).Msg("Failed to update value")
		warnings = append(warnings, model.SaveWarning{File: file, Path: f.Path, Reason: f.Err.Error()})
	}
	if len(failures) == len(edits) {
		return 0, warnings, nil
	}

	out, err := document.EncodeJSON(updated)
	if err != nil {
		return 0, warnings, err
	}
	if backup, err := fsutil.SafeWrite(file, out, r.opts.BackupSuffix); err != nil {
		if backup != "" {
			log.Error().Str("backup", backup).Msg("Original kept as backup")
		}
		return 0, warnings, err
	}
	return len(edits) - len(failures), warnings, nil
}
