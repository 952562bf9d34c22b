package dream

import (
	"strings"
	"unicode/utf8"
)

// MaxThemeLength caps normalized keys so they stay usable as storage sort keys.
const MaxThemeLength = 64

// themeSeparator replaces runs of whitespace inside a normalized key.
const themeSeparator = "_"

// NormalizeTheme case-folds s, collapses whitespace runs to a single separator and caps the
// result at MaxThemeLength runes. It returns "" for blank input.
func NormalizeTheme(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) == 0 {
		return ""
	}
	key := strings.Join(fields, themeSeparator)
	if utf8.RuneCountInString(key) <= MaxThemeLength {
		return key
	}
	runes := []rune(key)
	return strings.TrimRight(string(runes[:MaxThemeLength]), themeSeparator)
}

// NormalizeSet normalizes every item, drops blanks and duplicates, and keeps first-seen order.
func NormalizeSet(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		key := NormalizeTheme(item)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
