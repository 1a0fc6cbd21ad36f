// Package classifier decides whether a string is translatable text or technical noise.
package classifier

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	urlPattern = regexp.MustCompile(`(?i)^(https?|ftp|file)://`)

	assetExtPattern = regexp.MustCompile(`(?i)\.(png|jpg|jpeg|gif|bmp|wav|ogg|m4a|mp3|json|js)$`)

	// controlCodePattern matches inline escapes such as \C[1] or \N[2].
	controlCodePattern = regexp.MustCompile(`^\\?[A-Za-z]\[\d+\]$`)

	// identifierPattern matches generated names such as EV001.
	identifierPattern = regexp.MustCompile(`^[A-Z]{2}\d{3,}$`)

	pluginCommandPattern = regexp.MustCompile(`^[A-Z][a-zA-Z]+ (?i:open|close|add|remove|set|get|show|hide|enable|disable)`)

	// symbolOnlyPattern matches strings with no letters or digits in any supported script.
	symbolOnlyPattern = regexp.MustCompile(`^[^\p{Latin}0-9\p{Greek}\p{Cyrillic}\p{Thai}\p{Han}\p{Hiragana}\p{Katakana}\p{Hangul}\p{Arabic}\p{Hebrew}\p{Devanagari}]+$`)
)

// systemPrefixes are compared case-insensitively against the start of the text.
var systemPrefixes = []string{
	"img/", "audio/", "data/", "js/", "fonts/",
	"actor", "class", "skill", "item", "weapon", "armor",
	"enemy", "troop", "state", "animation", "tileset",
	"commonevent", "system", "mapinfo",
}

// runtimeMarker marks references to engine runtime objects ($gameVariables, $gameParty...).
const runtimeMarker = "$game"

// IsSystemString reports whether text must be excluded from extraction.
// The checks run in a fixed order and the first match wins.
func IsSystemString(text string) bool {
	trimmed := strings.TrimSpace(text)

	if trimmed == "" {
		return true
	}
	if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return true
	}
	if strings.Contains(text, "/") {
		return true
	}
	if urlPattern.MatchString(text) {
		return true
	}
	if assetExtPattern.MatchString(text) {
		return true
	}

	lower := strings.ToLower(text)
	for _, prefix := range systemPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}

	if controlCodePattern.MatchString(trimmed) {
		return true
	}
	if identifierPattern.MatchString(text) {
		return true
	}
	if pluginCommandPattern.MatchString(text) {
		return true
	}
	if strings.Contains(lower, runtimeMarker) {
		return true
	}
	return symbolOnlyPattern.MatchString(trimmed)
}

// Func adapts a plain predicate to the Classifier interface used by the walker.
type Func func(text string) bool

// IsSystemString calls f.
func (f Func) IsSystemString(text string) bool { return f(text) }

// Default is the built-in heuristic classifier.
var Default = Func(IsSystemString)
