package classifier

import (
	"fmt"
	"regexp"
	"slices"
	"sync"
)

// numberSuffix matches a trailing counter such as "_001" or "12".
var numberSuffix = regexp.MustCompile(`_?\d+$`)

// Filter layers user-learned ignore patterns on top of the built-in heuristics.
// It is safe for concurrent use.
type Filter struct {
	mu       sync.RWMutex
	patterns []string
	compiled []*regexp.Regexp
}

// NewFilter compiles previously learned patterns.
func NewFilter(patterns []string) (*Filter, error) {
	f := &Filter{}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", p, err)
		}
		f.patterns = append(f.patterns, p)
		f.compiled = append(f.compiled, re)
	}
	return f, nil
}

// PatternFor returns the anchored pattern learned for text. A trailing counter is
// generalised so that "Var_001" also covers "Var_002".
func PatternFor(text string) string {
	quoted := regexp.QuoteMeta(text)
	if numberSuffix.MatchString(text) {
		quoted = numberSuffix.ReplaceAllLiteralString(quoted, `_?\d+`)
	}
	return "^" + quoted + "$"
}

// Learn adds the pattern for text. It reports the pattern and whether it was new.
func (f *Filter) Learn(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	pattern := PatternFor(text)

	f.mu.Lock()
	defer f.mu.Unlock()

	if slices.Contains(f.patterns, pattern) {
		return pattern, false
	}
	f.patterns = append(f.patterns, pattern)
	f.compiled = append(f.compiled, regexp.MustCompile(pattern))
	return pattern, true
}

// Unlearn removes the pattern previously learned for text.
func (f *Filter) Unlearn(text string) bool {
	pattern := PatternFor(text)

	f.mu.Lock()
	defer f.mu.Unlock()

	idx := slices.Index(f.patterns, pattern)
	if idx < 0 {
		return false
	}
	f.patterns = slices.Delete(f.patterns, idx, idx+1)
	f.compiled = slices.Delete(f.compiled, idx, idx+1)
	return true
}

// Patterns returns a copy of the learned patterns in insertion order.
func (f *Filter) Patterns() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.patterns)
}

// IsSystemString applies the heuristics first, then the learned patterns.
func (f *Filter) IsSystemString(text string) bool {
	return IsSystemString(text) || f.Learned(text)
}

// Learned reports whether text matches a learned pattern. A nil filter matches nothing.
func (f *Filter) Learned(text string) bool {
	if f == nil {
		return false
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, re := range f.compiled {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
