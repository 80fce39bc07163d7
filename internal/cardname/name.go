// Package cardname cleans up card and set names reported by the vision model
// so they compare reliably against catalog names.
package cardname

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	englishInParens = regexp.MustCompile(`\(([A-Za-z][A-Za-z0-9\s\-'.]+)\)`)

	placeholders = []string{"not visible", "unknown", "n/a", "none", "unreadable", "illegible"}
)

// cjk reports runes from the Japanese, Chinese and Korean blocks the model
// copies verbatim from non-English prints.
func cjk(r rune) bool {
	switch {
	case r >= 0x3040 && r <= 0x30FF: // hiragana, katakana
		return true
	case r >= 0xAC00 && r <= 0xD7AF: // hangul syllables
		return true
	default:
		return unicode.Is(unicode.Han, r)
	}
}

// Sanitize extracts a usable English name.
//
//	Sanitize("ガマゲロゲ (Seismitoad)") // "Seismitoad"
//	Sanitize("リザードン Charizard")     // "Charizard"
//
// A name made only of CJK text is returned unchanged.
func Sanitize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || IsPlaceholder(name) {
		return ""
	}
	if m := englishInParens.FindStringSubmatch(name); m != nil {
		return strings.TrimSpace(m[1])
	}
	stripped := strings.Join(strings.Fields(strings.Map(func(r rune) rune {
		if cjk(r) {
			return ' '
		}
		return r
	}, name)), " ")
	if stripped == "" {
		return name
	}
	return stripped
}

// Fold lowercases s and removes diacritics, so "Pokémon" and "pokemon" compare
// equal. Whitespace runs collapse to one space.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// Compact folds s and keeps only ASCII letters and digits. Used for prefix
// checks where punctuation and spacing are noise ("Mr. Mime" vs "mr mime").
func Compact(s string) string {
	folded := Fold(s)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsPlaceholder reports model filler such as "not visible" or "Unknown".
func IsPlaceholder(s string) bool {
	f := Fold(s)
	if f == "" || strings.Contains(f, "not visible") || strings.Contains(f, "unknown") {
		return true
	}
	for _, p := range placeholders {
		if f == p {
			return true
		}
	}
	return false
}

// Clean returns s trimmed, or "" when it is a placeholder.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	if IsPlaceholder(s) {
		return ""
	}
	return s
}
