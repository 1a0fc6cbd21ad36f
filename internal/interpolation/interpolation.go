// Package interpolation finds the control codes embedded in game strings: RPG Maker
// escape sequences, Ren'Py substitutions and text tags, and printf/format placeholders.
package interpolation

import (
	"regexp"
	"slices"
	"sort"
)

// match stores a detected control code position.
type match struct {
	start, end int
	value      string
}

// patterns to detect control codes in game strings.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`\\[A-Za-z]+\[[^\]]*\]`),                   // \N[1], \C[2], \V[10]
	regexp.MustCompile(`\\[A-Za-z]+<[^>]*>`),                      // plugin escapes like \FS<24>
	regexp.MustCompile(`\\[{}.|!<>^$G]`),                          // \{, \., \|, \!, \G
	regexp.MustCompile(`\[[A-Za-z_][A-Za-z0-9_.]*(?:![a-z]+)?\]`), // Ren'Py [player_name]
	regexp.MustCompile(`\{/?[a-z]+(?:=[^}]*)?\}`),                 // Ren'Py {b}, {/color}, {size=+2}
	regexp.MustCompile(`\$\{[a-zA-Z_][a-zA-Z0-9_]*\}`),            // ${value}
	regexp.MustCompile(`\{[0-9]+\}`),                              // {0}, {1}
	regexp.MustCompile(`%[-+0-9]*\.?[0-9]*[dsfieEgGxXoubcpq]`),    // %d, %s, %2d
	regexp.MustCompile(`%%`),                                      // escaped percent literal
}

// Codes returns the control codes of text in order of appearance. Overlapping matches
// keep the earliest, then longest.
func Codes(text string) []string {
	var all []match
	for _, p := range patterns {
		for _, loc := range p.FindAllStringIndex(text, -1) {
			all = append(all, match{start: loc[0], end: loc[1], value: text[loc[0]:loc[1]]})
		}
	}
	if len(all) == 0 {
		return nil
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].start != all[j].start {
			return all[i].start < all[j].start
		}
		return all[i].end-all[i].start > all[j].end-all[j].start
	})

	var codes []string
	lastEnd := -1
	for _, m := range all {
		if m.start >= lastEnd {
			codes = append(codes, m.value)
			lastEnd = m.end
		}
	}
	return codes
}

// Same reports whether a and b carry the same control codes, ignoring order. A
// translation may reorder codes but must not add, drop or change one.
func Same(a, b string) bool {
	ca, cb := Codes(a), Codes(b)
	if len(ca) != len(cb) {
		return false
	}
	slices.Sort(ca)
	slices.Sort(cb)
	return slices.Equal(ca, cb)
}

// Missing returns the codes of source that translated lacks, one entry per missing
// occurrence.
func Missing(source, translated string) []string {
	have := make(map[string]int)
	for _, c := range Codes(translated) {
		have[c]++
	}
	var missing []string
	for _, c := range Codes(source) {
		if have[c] > 0 {
			have[c]--
			continue
		}
		missing = append(missing, c)
	}
	return missing
}
