package project

import (
	"path/filepath"
	"sort"
	"time"

	"bga/internal/model"
)

// Project is a saved analysis with the translations entered so far.
type Project struct {
	ID        string            `json:"id"`
	Engine    string            `json:"engine"`
	Source    string            `json:"source"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
	Strings   []model.TextEntry `json:"strings"`
}

// Summary describes a project without its strings.
type Summary struct {
	ID         string    `json:"id"`
	Engine     string    `json:"engine"`
	Source     string    `json:"source"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Total      int       `json:"total"`
	Translated int       `json:"translated"`
}

// FileSummary is the translation progress of one file.
type FileSummary struct {
	Path       string `json:"path"`
	Name       string `json:"name"`
	Total      int    `json:"total"`
	Translated int    `json:"translated"`
}

func (p *Project) Summary() Summary {
	s := Summary{ID: p.ID, Engine: p.Engine, Source: p.Source, UpdatedAt: p.UpdatedAt, Total: len(p.Strings)}
	for _, e := range p.Strings {
		if e.Translated() {
			s.Translated++
		}
	}
	return s
}

// Files lists the files that contributed strings, sorted by base name.
func (p *Project) Files() []FileSummary {
	index := make(map[string]int)
	var files []FileSummary
	for _, e := range p.Strings {
		i, ok := index[e.Path]
		if !ok {
			i = len(files)
			index[e.Path] = i
			files = append(files, FileSummary{Path: e.Path, Name: filepath.Base(e.Path)})
		}
		files[i].Total++
		if e.Translated() {
			files[i].Translated++
		}
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].Name != files[j].Name {
			return files[i].Name < files[j].Name
		}
		return files[i].Path < files[j].Path
	})
	return files
}

// StringsIn returns the entries of one file in extraction order, optionally hiding
// the translated ones.
func (p *Project) StringsIn(file string, hideCompleted bool) []model.TextEntry {
	var out []model.TextEntry
	for _, e := range p.Strings {
		if e.Path != file {
			continue
		}
		if hideCompleted && e.Translated() {
			continue
		}
		out = append(out, e)
	}
	return out
}

// SetTranslation sets text on every entry of file with the given source and returns
// how many entries changed. An empty text clears the translation.
func (p *Project) SetTranslation(file, source, text string) int {
	n := 0
	for i := range p.Strings {
		e := &p.Strings[i]
		if e.Path == file && e.Source == source && e.Text != text {
			e.Text = text
			n++
		}
	}
	return n
}

// Fill sets the translation of every untranslated entry for which lookup finds one,
// and returns how many entries were filled.
func (p *Project) Fill(lookup func(source string) (string, bool)) int {
	n := 0
	for i := range p.Strings {
		e := &p.Strings[i]
		if e.Translated() {
			continue
		}
		if text, ok := lookup(e.Source); ok && text != "" {
			e.Text = text
			n++
		}
	}
	return n
}
