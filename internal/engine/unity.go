package engine

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"github.com/rs/zerolog/log"

	"bga/internal/document"
	"bga/internal/extract"
	"bga/internal/filewalker"
	"bga/internal/model"
	"bga/internal/worker"
)

var (
	// unityDirective matches the %YAML and %TAG header lines.
	unityDirective = regexp.MustCompile(`(?m)^%(YAML|TAG) .*$`)
	// unityDocument matches document separators such as "--- !u!114 &1234 stripped".
	unityDocument = regexp.MustCompile(`(?m)^--- !u!\d+ &-?\d+(?: stripped)?[ \t]*$`)
)

// Unity lists serialized assets and extracts the text fields of text-format ones.
type Unity struct {
	opts   Options
	walker *extract.Walker
}

// NewUnity creates the Unity driver.
func NewUnity(opts Options) *Unity {
	opts = opts.withDefaults()
	return &Unity{
		opts:   opts,
		walker: extract.New(extract.Unity, opts.classifier()),
	}
}

func (u *Unity) Name() string { return "unity" }

func (u *Unity) SupportsScriptPatch() bool { return false }

// Analyze lists every .asset and .prefab under source and walks the ones stored as
// text. Binary-serialized assets count as failed.
func (u *Unity) Analyze(ctx context.Context, source string) model.Output {
	if _, err := checkSource(source); err != nil {
		return failure(err)
	}

	files, err := filewalker.Recursive(source, filewalker.UnityExtensions)
	if err != nil {
		return failure(err)
	}

	payload := model.Payload{
		Engine:  u.Name(),
		Source:  source,
		Strings: []model.TextEntry{},
		Entries: make([]model.AssetEntry, 0, len(files)),
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		payload.Entries = append(payload.Entries, model.AssetEntry{Path: f.Path, Type: f.Ext})
		paths = append(paths, f.Path)
	}

	pool := worker.NewPool(u.opts.Workers, u.analyzeFile)
	for _, task := range pool.Execute(ctx, paths) {
		if task.Err != nil {
			log.Debug().Err(task.Err).Str("file", task.Input).Msg("Skipped asset")
			payload.FilesFailed++
			continue
		}
		payload.FilesProcessed++
		payload.Strings = append(payload.Strings, task.Result...)
	}

	log.Info().
		Str("source", source).
		Int("assets", len(payload.Entries)).
		Int("strings", len(payload.Strings)).
		Int("failed", payload.FilesFailed).
		Msg("Analyzed Unity project")

	return model.Success(payload)
}

func (u *Unity) analyzeFile(ctx context.Context, path string) ([]model.TextEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read asset: %w", err)
	}
	docs, err := document.DecodeYAMLStream(normalizeUnityYAML(data))
	if err != nil {
		return nil, err
	}
	return u.walker.Walk(docs, path), nil
}

// normalizeUnityYAML drops the Unity tag directives and per-document class tags,
// which a standard decoder rejects after the first document.
func normalizeUnityYAML(data []byte) []byte {
	data = unityDirective.ReplaceAll(data, nil)
	return unityDocument.ReplaceAll(data, []byte("---"))
}

// Save is not supported for Unity assets.
func (u *Unity) Save(context.Context, []model.TextEntry) (*model.SaveReport, error) {
	return nil, fmt.Errorf("%w: Saving for Unity projects is not yet implemented due to complex asset format.", ErrUnsupported)
}
