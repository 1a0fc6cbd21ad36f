// Package extract walks generic document trees and collects the strings a player
// would see, addressed by codec paths so they can be written back later.
package extract

import (
	"sort"

	"bga/internal/docpath"
	"bga/internal/document"
	"bga/internal/model"
)

// Classifier rejects strings that are not human-readable text.
type Classifier interface {
	IsSystemString(text string) bool
}

// Walker extracts text entries from documents. It holds no per-walk state and is safe
// for concurrent use.
type Walker struct {
	policy     *Policy
	classifier Classifier
}

// New creates a walker for a policy.
func New(policy *Policy, classifier Classifier) *Walker {
	return &Walker{policy: policy, classifier: classifier}
}

// Walk returns the entries found in doc, in document order with mapping keys sorted.
// The document is never modified.
func (w *Walker) Walk(doc any, filePath string) []model.TextEntry {
	return w.walk(doc, docpath.Path{}, !w.policy.StrictSequences, filePath, nil)
}

// walk descends into node. textual says whether a string found directly at node may
// be extracted.
func (w *Walker) walk(node any, path docpath.Path, textual bool, file string, out []model.TextEntry) []model.TextEntry {
	switch v := node.(type) {
	case string:
		if textual {
			out = w.emit(v, path, file, out)
		}
	case []any:
		for i, item := range v {
			out = w.walk(item, path.Index(i), textual || !w.policy.StrictSequences, file, out)
		}
	case map[string]any:
		out = w.walkMapping(v, path, file, out)
	}
	return out
}

func (w *Walker) walkMapping(m map[string]any, path docpath.Path, file string, out []model.TextEntry) []model.TextEntry {
	if w.policy.SkipAudio && isAudio(m) {
		return out
	}

	if code, params, ok := commandShape(m); ok && w.policy.Events != nil {
		return w.walkCommand(m, code, params, path, file, out)
	}

	for _, key := range sortedKeys(m) {
		if w.policy.blacklisted(key) {
			continue
		}
		switch value := m[key].(type) {
		case string:
			if w.policy.whitelisted(key) {
				out = w.emit(value, path.Field(key), file, out)
			}
		case []any, map[string]any:
			out = w.walk(value, path.Field(key), w.policy.whitelisted(key), file, out)
		}
	}
	return out
}

// walkCommand handles an event command. Recognized commands contribute their text
// slots and their parameters are not scanned again.
func (w *Walker) walkCommand(m map[string]any, code int64, params []any, path docpath.Path, file string, out []model.TextEntry) []model.TextEntry {
	cmd, recognized := w.policy.Events.Lookup(code)
	if recognized {
		base := path.Field("parameters")
		for _, slot := range cmd.Slots(params) {
			out = w.emit(slot.Text, base.Join(slot.Suffix), file, out)
		}
	}

	for _, key := range sortedKeys(m) {
		switch key {
		case "code", "indent":
			continue
		case "parameters":
			if recognized {
				continue
			}
		}
		switch value := m[key].(type) {
		case []any, map[string]any:
			out = w.walk(value, path.Field(key), false, file, out)
		}
	}
	return out
}

func (w *Walker) emit(text string, path docpath.Path, file string, out []model.TextEntry) []model.TextEntry {
	if w.classifier.IsSystemString(text) {
		return out
	}
	return append(out, model.TextEntry{Source: text, Path: file, Key: path.String()})
}

// commandShape reports whether m looks like an event command: an integral code and an
// array of parameters.
func commandShape(m map[string]any) (int64, []any, bool) {
	rawCode, ok := m["code"]
	if !ok {
		return 0, nil, false
	}
	code, ok := document.Int(rawCode)
	if !ok {
		return 0, nil, false
	}
	params, ok := m["parameters"].([]any)
	if !ok {
		return 0, nil, false
	}
	return code, params, true
}

func isAudio(m map[string]any) bool {
	for _, key := range []string{"name", "volume", "pitch", "pan"} {
		if _, ok := m[key]; !ok {
			return false
		}
	}
	return true
}

// sortedKeys returns the keys of m that can be addressed by a path, sorted.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		if docpath.ValidField(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
