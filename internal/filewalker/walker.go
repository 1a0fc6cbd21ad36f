// Package filewalker discovers the files each engine driver reads.
package filewalker

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"bga/internal/model"
)

// FontExtensions lists the font formats reported with an RPG Maker project.
var FontExtensions = map[string]bool{
	".ttf":   true,
	".otf":   true,
	".woff":  true,
	".woff2": true,
}

// UnityExtensions lists the serialized asset types scanned in a Unity project.
var UnityExtensions = map[string]bool{
	".asset":  true,
	".prefab": true,
}

// FileEntry is a discovered file.
type FileEntry struct {
	Path string
	// Ext is the lower-cased extension without the dot.
	Ext string
}

// Shallow lists the regular files directly inside dir whose lower-cased extension is
// in exts. A missing directory yields no entries.
func Shallow(dir string, exts map[string]bool) ([]FileEntry, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var entries []FileEntry
	for _, item := range items {
		if !item.Type().IsRegular() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(item.Name()))
		if !exts[ext] {
			continue
		}
		entries = append(entries, FileEntry{
			Path: filepath.Join(dir, item.Name()),
			Ext:  strings.TrimPrefix(ext, "."),
		})
	}
	return entries, nil
}

// Recursive lists every regular file under root whose extension is in exts.
// Unreadable subdirectories are logged and skipped.
func Recursive(root string, exts map[string]bool) ([]FileEntry, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", root)
	}

	var entries []FileEntry
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Error walking path")
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if exts[ext] {
			entries = append(entries, FileEntry{Path: path, Ext: strings.TrimPrefix(ext, ".")})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}

	log.Debug().Int("count", len(entries)).Str("root", root).Msg("Discovered files")
	return entries, nil
}

// IsDataDir reports whether dir is itself an RPG Maker data folder.
func IsDataDir(dir string) bool {
	return strings.EqualFold(filepath.Base(filepath.Clean(dir)), "data")
}

// ProjectRoot returns the project directory for a path that may point at the data
// folder itself.
func ProjectRoot(dir string) string {
	if IsDataDir(dir) {
		return filepath.Dir(filepath.Clean(dir))
	}
	return dir
}

var jsonExt = map[string]bool{".json": true}

// RPGMakerData lists the JSON files of an RPG Maker project: the data folder and the
// plugin folder. package.json is never included.
func RPGMakerData(dir string) ([]string, error) {
	var dirs []string
	if IsDataDir(dir) {
		dirs = []string{dir}
	} else {
		dirs = uniqueDirs(
			filepath.Join(dir, "data"),
			filepath.Join(dir, "Data"),
			filepath.Join(dir, "js", "plugins"),
		)
	}

	var files []string
	for _, d := range dirs {
		entries, err := Shallow(d, jsonExt)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if strings.EqualFold(filepath.Base(e.Path), "package.json") {
				continue
			}
			files = append(files, e.Path)
		}
	}
	return files, nil
}

// Fonts lists the font files in the project's fonts folder.
func Fonts(dir string) []model.Font {
	root := ProjectRoot(dir)

	var fonts []model.Font
	for _, d := range uniqueDirs(filepath.Join(root, "fonts"), filepath.Join(root, "Fonts")) {
		entries, err := Shallow(d, FontExtensions)
		if err != nil {
			log.Warn().Err(err).Str("dir", d).Msg("Failed to list fonts")
			continue
		}
		for _, e := range entries {
			base := filepath.Base(e.Path)
			fonts = append(fonts, model.Font{
				Name: strings.TrimSuffix(base, filepath.Ext(base)),
				Path: e.Path,
			})
		}
	}
	sort.Slice(fonts, func(i, j int) bool { return fonts[i].Path < fonts[j].Path })
	return fonts
}

// FirstExisting returns the first candidate, joined onto root, that is a regular file.
func FirstExisting(root string, candidates ...string) (string, bool) {
	for _, c := range candidates {
		path := filepath.Join(root, c)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}

// uniqueDirs drops directories that resolve to one already listed, which happens for
// data/Data on case-insensitive filesystems.
func uniqueDirs(dirs ...string) []string {
	var out []string
	var seen []os.FileInfo
	for _, d := range dirs {
		info, err := os.Stat(d)
		if err != nil || !info.IsDir() {
			continue
		}
		dup := false
		for _, s := range seen {
			if os.SameFile(s, info) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		seen = append(seen, info)
		out = append(out, d)
	}
	return out
}
